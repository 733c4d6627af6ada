// Package session manages the PRODA OAuth2 PKCE session for the authority
// client: login kickoff, redirect correlation, token exchange and the
// renewal cycle that keeps the access token fresh for as long as the
// program runs.
package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	clienterrors "github.com/sierraromeo/go-pbs-authority/internal/errors"
)

// State of the session lifecycle.
type State string

const (
	StateLoggedOff      State = "LoggedOff"
	StateAuthenticating State = "Authenticating"
	StateLoggedOn       State = "LoggedOn"
	StateRenewing       State = "Renewing"
)

const (
	// renewalLead is how long before expiry the renewal fires.
	renewalLead = 60 * time.Second
	// pendingTTL bounds how long an un-answered login attempt stays in the
	// pending map before it is swept.
	pendingTTL = 15 * time.Minute
)

// Token is the current session token. Zero value means no token.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// StateListener is notified after every state transition. It is invoked
// synchronously on the mutating goroutine and must not call back into the
// Manager.
type StateListener func(state State, loggedOn bool)

// Manager owns the session state machine, the token store, the
// pending-login correlation map and the renewal timer. All mutation is
// serialized behind one mutex.
type Manager struct {
	provider Provider
	client   *http.Client
	log      zerolog.Logger

	mu         sync.Mutex
	state      State
	loggedOn   bool
	token      Token
	pending    map[string]pendingAuth
	renewTimer *time.Timer

	listener  StateListener
	nowTime   func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
}

type pendingAuth struct {
	req     *AuthRequest
	created time.Time
}

// ManagerOption modifies a Manager at construction time.
type ManagerOption func(*Manager)

// WithHTTPClient sets the HTTP client used for token endpoint calls.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) { m.client = client }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithStateListener registers a state transition callback.
func WithStateListener(l StateListener) ManagerOption {
	return func(m *Manager) { m.listener = l }
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) { m.nowTime = nowFunc }
}

// WithAfterFunc sets the timer factory (primarily for testing)
func WithAfterFunc(afterFunc func(d time.Duration, f func()) *time.Timer) ManagerOption {
	return func(m *Manager) { m.afterFunc = afterFunc }
}

// NewManager creates a Manager in the LoggedOff state.
func NewManager(provider Provider, options ...ManagerOption) *Manager {
	m := &Manager{
		provider:  provider,
		client:    http.DefaultClient,
		log:       zerolog.Nop(),
		state:     StateLoggedOff,
		pending:   make(map[string]pendingAuth),
		nowTime:   time.Now,
		afterFunc: time.AfterFunc,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsLoggedOn reports whether a usable token is held.
func (m *Manager) IsLoggedOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loggedOn
}

// Token returns a copy of the current session token.
func (m *Manager) Token() Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// BearerToken returns the current access token for the Authorization
// header, or empty when logged off.
func (m *Manager) BearerToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.AccessToken
}

// BeginLogin starts a new login attempt and returns the provider
// authorization URL the caller should open in the user's browser. The
// attempt stays pending until its redirect reply arrives or its TTL lapses.
func (m *Manager) BeginLogin() (string, error) {
	req, err := NewAuthRequest()
	if err != nil {
		return "", errors.Wrap(err, "[BeginLogin] generating auth request")
	}

	m.mu.Lock()
	m.sweepPendingLocked()
	m.pending[req.State] = pendingAuth{req: req, created: m.nowTime()}
	m.mu.Unlock()

	url := m.provider.AuthorizeURL(req)
	m.log.Debug().Str("state", req.State).Msg("prepared new authorization request")
	return url, nil
}

// HandleRedirectReply processes the state and code carried by a redirect
// callback. The callback arrives from outside the process boundary, so a
// missing parameter or an unknown state is logged and dropped without
// touching session state: replayed, forged and stale redirects all land
// here.
func (m *Manager) HandleRedirectReply(ctx context.Context, state, code string) error {
	if state == "" || code == "" {
		m.log.Warn().Str("state", state).Msg("authorization reply missing state or code")
		return nil
	}

	m.mu.Lock()
	m.sweepPendingLocked()
	pend, ok := m.pending[state]
	if !ok {
		m.mu.Unlock()
		m.log.Warn().Str("state", state).Msg("authorization reply for unknown state")
		return nil
	}
	delete(m.pending, state)
	m.setStateLocked(StateAuthenticating, m.loggedOn)
	m.mu.Unlock()

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {m.provider.RedirectURI},
		"client_id":     {m.provider.ClientID},
		"code_verifier": {pend.req.Verifier},
	}
	return m.exchange(ctx, form, pend.req.Nonce)
}

// RenewNow runs one renewal cycle immediately. It is the handler the
// renewal timer fires; callers may also invoke it directly.
func (m *Manager) RenewNow() {
	m.mu.Lock()
	m.stopRenewTimerLocked()

	if m.token.Expiry.Before(m.nowTime()) {
		// The refresh token is assumed as stale as the access token.
		m.log.Info().Msg("token expired before renewal could take place; logging off")
		m.token = Token{}
		m.setStateLocked(StateLoggedOff, false)
		m.mu.Unlock()
		return
	}

	m.setStateLocked(StateRenewing, m.loggedOn)
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {m.token.RefreshToken},
		"client_id":     {m.provider.ClientID},
	}
	m.mu.Unlock()

	if err := m.exchange(context.Background(), form, ""); err != nil {
		m.log.Err(err).Msg("token renewal failed")
	}
}

// Logout revokes the refresh token, clears the token store and stops the
// renewal timer. Revocation is best effort: the session is torn down
// locally even when the provider cannot be reached.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.stopRenewTimerLocked()
	refreshToken := m.token.RefreshToken
	m.token = Token{}
	m.setStateLocked(StateLoggedOff, false)
	m.mu.Unlock()

	if refreshToken == "" {
		return
	}
	form := url.Values{
		"token":     {refreshToken},
		"client_id": {m.provider.ClientID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.provider.RevokeEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		m.log.Err(err).Msg("building revocation request")
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := m.client.Do(req)
	if err != nil {
		m.log.Err(err).Msg("token revocation failed")
		return
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
}

// Close stops the renewal timer. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopRenewTimerLocked()
}

// tokenResponse is the token endpoint reply. The provider reports failures
// as an error/error_description pair inside an otherwise well-formed body.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	ExpiresIn        int    `json:"expires_in"`
	IDToken          string `json:"id_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// exchange posts form to the token endpoint and applies the outcome to the
// session. expectedNonce, when set, is matched against the id_token nonce
// claim. A transport failure leaves the state as it was; a provider error
// logs the session off.
func (m *Manager) exchange(ctx context.Context, form url.Values, expectedNonce string) error {
	requestTime := m.nowTime()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.provider.TokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "[exchange] building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := m.client.Do(req)
	if err != nil {
		return clienterrors.Wrapf(clienterrors.ErrTransport, "token endpoint: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return clienterrors.Wrapf(clienterrors.ErrTransport, "reading token response: %v", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return clienterrors.Wrapf(clienterrors.ErrDecode, "token response %q: %v", string(body), err)
	}

	if tr.Error != "" {
		m.logOff()
		m.log.Warn().Str("error", tr.Error).Str("description", tr.ErrorDescription).Msg("token request rejected")
		return errors.Wrapf(ProviderRejectedErr, "%s: %s", tr.Error, tr.ErrorDescription)
	}

	if expectedNonce != "" && tr.IDToken != "" {
		if err := checkNonce(tr.IDToken, expectedNonce); err != nil {
			m.logOff()
			return err
		}
	}

	m.mu.Lock()
	m.token = Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Expiry:       requestTime.Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	m.setStateLocked(StateLoggedOn, true)
	m.armRenewTimerLocked(tr.ExpiresIn)
	m.mu.Unlock()

	m.log.Debug().
		Time("expiry", requestTime.Add(time.Duration(tr.ExpiresIn)*time.Second)).
		Int("expires_in", tr.ExpiresIn).
		Msg("got new access token")
	return nil
}

// checkNonce parses the id_token and compares its nonce claim with the one
// issued for the login attempt. The token signature is the provider's
// concern; the nonce binds the reply to this process's request.
func checkNonce(idToken, expectedNonce string) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return clienterrors.Wrapf(clienterrors.ErrDecode, "parsing id_token: %v", err)
	}
	nonce, _ := claims["nonce"].(string)
	if nonce != expectedNonce {
		return NonceMismatchErr
	}
	return nil
}

func (m *Manager) logOff() {
	m.mu.Lock()
	m.token = Token{}
	m.setStateLocked(StateLoggedOff, false)
	m.mu.Unlock()
}

// armRenewTimerLocked (re)arms the renewal timer for expiresIn - 60s.
func (m *Manager) armRenewTimerLocked(expiresIn int) {
	m.stopRenewTimerLocked()
	d := time.Duration(expiresIn)*time.Second - renewalLead
	if d < 0 {
		d = 0
	}
	m.renewTimer = m.afterFunc(d, m.RenewNow)
}

func (m *Manager) stopRenewTimerLocked() {
	if m.renewTimer != nil {
		m.renewTimer.Stop()
		m.renewTimer = nil
	}
}

func (m *Manager) sweepPendingLocked() {
	cutoff := m.nowTime().Add(-pendingTTL)
	for state, pend := range m.pending {
		if pend.created.Before(cutoff) {
			m.log.Debug().Str("state", state).Msg("sweeping abandoned login attempt")
			delete(m.pending, state)
		}
	}
}

func (m *Manager) setStateLocked(state State, loggedOn bool) {
	m.state = state
	m.loggedOn = loggedOn
	if m.listener != nil {
		m.listener(state, loggedOn)
	}
}
