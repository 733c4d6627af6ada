package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const tokenGenerationLength = 32

// Provider describes the PRODA identity provider endpoints and the client
// registration used for the authorization-code flow.
type Provider struct {
	// Host is the provider base URL, e.g. "https://proda.humanservices.gov.au".
	Host string
	// ClientID is the registered OAuth2 client identifier.
	ClientID string
	// RedirectURI is the private-scheme callback, e.g. "x-sierra-romeo:authcode".
	RedirectURI string
	// Scope requested on login. The PBS authorities channel uses a single
	// fixed scope.
	Scope string
}

// Scope requested for every authority session.
const DefaultScope = "PBSAuthorities"

func (p Provider) AuthorizeEndpoint() string {
	return p.Host + "/mga/sps/oauth/oauth20/authorize"
}

func (p Provider) TokenEndpoint() string {
	return p.Host + "/mga/sps/oauth/oauth20/token"
}

func (p Provider) RevokeEndpoint() string {
	return p.Host + "/mga/sps/oauth/oauth20/revoke"
}

// AuthRequest holds the one-time secrets for a single login attempt. The
// verifier never leaves the process; only its challenge appears in the
// authorization URL.
type AuthRequest struct {
	State    string
	Verifier string
	Nonce    string
}

// NewAuthRequest generates a fresh state/verifier/nonce triple, each an
// independently drawn 256-bit random value.
func NewAuthRequest() (*AuthRequest, error) {
	state, err := randomToken()
	if err != nil {
		return nil, errors.Wrap(err, "[NewAuthRequest] state")
	}
	verifier, err := randomToken()
	if err != nil {
		return nil, errors.Wrap(err, "[NewAuthRequest] verifier")
	}
	nonce, err := randomToken()
	if err != nil {
		return nil, errors.Wrap(err, "[NewAuthRequest] nonce")
	}
	return &AuthRequest{State: state, Verifier: verifier, Nonce: nonce}, nil
}

func randomToken() (string, error) {
	b := make([]byte, tokenGenerationLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Challenge derives the S256 code challenge from a verifier.
func Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// AuthorizeURL builds the provider authorization URL for req.
func (p Provider) AuthorizeURL(req *AuthRequest) string {
	cfg := p.oauthConfig()
	return cfg.AuthCodeURL(req.State,
		oauth2.SetAuthURLParam("nonce", req.Nonce),
		oauth2.SetAuthURLParam("code_challenge", Challenge(req.Verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p Provider) oauthConfig() *oauth2.Config {
	scope := p.Scope
	if scope == "" {
		scope = DefaultScope
	}
	return &oauth2.Config{
		ClientID:    p.ClientID,
		RedirectURL: p.RedirectURI,
		Scopes:      []string{scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthorizeEndpoint(),
			TokenURL: p.TokenEndpoint(),
		},
	}
}
