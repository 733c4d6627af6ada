// Command sierraromeo is a headless harness for the authority client core:
// it runs the PRODA login flow, looks up PBS items and restriction
// questions, and submits authority requests from a JSON file. The desktop
// shell wires the same packages behind a GUI.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/sierraromeo/go-pbs-authority/authority"
	"github.com/sierraromeo/go-pbs-authority/internal/config"
	"github.com/sierraromeo/go-pbs-authority/items"
	"github.com/sierraromeo/go-pbs-authority/questions"
	"github.com/sierraromeo/go-pbs-authority/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetProductName())

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		return errors.New("usage: sierraromeo login | search <query> | questions <item> <restriction> | submit <request.json>")
	}

	mgr := session.NewManager(session.Provider{
		Host:        c.GetProviderHost(),
		ClientID:    c.GetClientID(),
		RedirectURI: c.GetURIScheme() + ":authcode",
		Scope:       session.DefaultScope,
	},
		session.WithLogger(log),
		session.WithStateListener(func(state session.State, loggedOn bool) {
			log.Info().Str("state", string(state)).Bool("logged_on", loggedOn).Msg("session state")
		}),
	)
	defer mgr.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "login":
		return login(ctx, c, mgr, log)

	case "search":
		if len(os.Args) < 3 {
			return errors.New("usage: sierraromeo search <query>")
		}
		return search(ctx, c, log, os.Args[2])

	case "questions":
		if len(os.Args) < 4 {
			return errors.New("usage: sierraromeo questions <item> <restriction>")
		}
		return showQuestions(ctx, c, mgr, log, os.Args[2], os.Args[3])

	case "submit":
		if len(os.Args) < 3 {
			return errors.New("usage: sierraromeo submit <request.json>")
		}
		return submit(ctx, c, mgr, log, os.Args[2])

	default:
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

// login walks the PKCE flow on the terminal: the user opens the printed
// URL in a browser and pastes the redirect callback URI back in.
func login(ctx context.Context, c config.Config, mgr *session.Manager, log zerolog.Logger) error {
	url, err := mgr.BeginLogin()
	if err != nil {
		return err
	}
	fmt.Printf("Open this URL in your browser:\n\n  %s\n\n", url)
	fmt.Print("Paste the redirect URI here: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return err
	}
	reply, err := session.ParseAuthReply(strings.TrimSpace(line), c.GetURIScheme())
	if err != nil {
		return err
	}
	if err := mgr.HandleRedirectReply(ctx, reply.State, reply.Code); err != nil {
		return err
	}
	if !mgr.IsLoggedOn() {
		return errors.New("login did not complete")
	}
	log.Info().Time("expiry", mgr.Token().Expiry).Msg("logged on")
	return nil
}

func search(ctx context.Context, c config.Config, log zerolog.Logger, query string) error {
	client := items.NewClient(c.GetItemSearchEndpoint(), items.WithLogger(log))
	results, err := client.Search(ctx, query)
	if err != nil {
		return err
	}
	for _, item := range results {
		fmt.Printf("%-8s %-10s %s (%s)\n", item.ItemCode, item.RestrictionCode, item.Drug, item.Brands)
	}
	return nil
}

func showQuestions(ctx context.Context, c config.Config, mgr *session.Manager, log zerolog.Logger, itemCode, restrictionCode string) error {
	if err := login(ctx, c, mgr, log); err != nil {
		return err
	}
	controller := authority.NewController(c.GetPBSEndpoint(), c.GetProductName(), mgr, authority.WithLogger(log))

	req := authority.NewRequest(c.GetPrescriberNumber())
	req.ItemDetails.ItemCode = itemCode
	req.RestrictionQuestionDetails.RestrictionCode = restrictionCode

	raw, err := controller.RestrictionQuestions(ctx, req)
	if err != nil {
		return err
	}
	qs, err := questions.Normalize(raw, itemCode, restrictionCode)
	if err != nil {
		return err
	}
	for _, q := range qs {
		fmt.Printf("%T\t%s\t%s\n", q, q.Base().ID, q.Base().Text)
	}
	return nil
}

func submit(ctx context.Context, c config.Config, mgr *session.Manager, log zerolog.Logger, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	req := authority.NewRequest(c.GetPrescriberNumber())
	if err := json.Unmarshal(data, req); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := login(ctx, c, mgr, log); err != nil {
		return err
	}
	controller := authority.NewController(c.GetPBSEndpoint(), c.GetProductName(), mgr, authority.WithLogger(log))

	result, err := controller.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Assessment: %s (%s)\n", result.AssessmentDetails.Text, result.AssessmentDetails.Code)
	for _, msg := range result.StatusMessages {
		fmt.Printf("  %s: %s\n", msg.ReasonCode, msg.ReasonText)
	}
	if result.AuthorityApprovalNumber != "" {
		fmt.Printf("Approval number: %s\n", result.AuthorityApprovalNumber)
	}
	if !req.Editable {
		fmt.Println("Request is finalised.")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
