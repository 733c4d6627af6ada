package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sierraromeo/go-pbs-authority/internal/errors"
	"github.com/sierraromeo/go-pbs-authority/session"
	"github.com/stretchr/testify/require"
)

// tokenServer fakes the PRODA token endpoint. Every request's form is
// recorded; the canned response body is served verbatim.
type tokenServer struct {
	srv      *httptest.Server
	mu       sync.Mutex
	response string
	forms    []url.Values
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{
		response: `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","scope":"PBSAuthorities","expires_in":3600}`,
	}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		ts.mu.Lock()
		ts.forms = append(ts.forms, r.PostForm)
		body := ts.response
		ts.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *tokenServer) setResponse(body string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.response = body
}

func (ts *tokenServer) lastForm(t *testing.T) url.Values {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NotEmpty(t, ts.forms)
	return ts.forms[len(ts.forms)-1]
}

func (ts *tokenServer) requestCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.forms)
}

// testFixture wires a Manager to a fake token endpoint with a frozen clock
// and captured timers.
type testFixture struct {
	mgr    *session.Manager
	server *tokenServer

	mu          sync.Mutex
	now         time.Time
	armed       []time.Duration
	transitions []session.State
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		server: newTokenServer(t),
		now:    time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}

	provider := session.Provider{
		Host:        f.server.srv.URL,
		ClientID:    "test-client-1",
		RedirectURI: "x-sierra-romeo:authcode",
	}

	f.mgr = session.NewManager(provider,
		session.WithNowTime(func() time.Time {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.now
		}),
		session.WithAfterFunc(func(d time.Duration, fn func()) *time.Timer {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.armed = append(f.armed, d)
			// Never let the timer actually fire during a test.
			return time.AfterFunc(time.Hour, func() {})
		}),
		session.WithStateListener(func(state session.State, loggedOn bool) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.transitions = append(f.transitions, state)
		}),
	)
	t.Cleanup(f.mgr.Close)
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *testFixture) lastArmed(t *testing.T) time.Duration {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.armed)
	return f.armed[len(f.armed)-1]
}

// login drives a full BeginLogin/HandleRedirectReply cycle and returns the
// state token used.
func (f *testFixture) login(t *testing.T) string {
	t.Helper()
	authURL, err := f.mgr.BeginLogin()
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	require.NoError(t, f.mgr.HandleRedirectReply(context.Background(), state, "code-1"))
	return state
}

func TestHandleRedirectReply_UnknownState(t *testing.T) {
	f := setupTestFixture(t)

	err := f.mgr.HandleRedirectReply(context.Background(), "never-issued", "code-1")
	require.NoError(t, err)
	require.Equal(t, session.StateLoggedOff, f.mgr.State())
	require.False(t, f.mgr.IsLoggedOn())
	require.Empty(t, f.mgr.Token().AccessToken)
	require.Zero(t, f.server.requestCount())
}

func TestHandleRedirectReply_MissingParameters(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.mgr.BeginLogin()
	require.NoError(t, err)

	require.NoError(t, f.mgr.HandleRedirectReply(context.Background(), "", "code-1"))
	require.NoError(t, f.mgr.HandleRedirectReply(context.Background(), "some-state", ""))
	require.Equal(t, session.StateLoggedOff, f.mgr.State())
	require.Zero(t, f.server.requestCount())
}

func TestHandleRedirectReply_Success(t *testing.T) {
	f := setupTestFixture(t)
	authURL, err := f.mgr.BeginLogin()
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	challenge := u.Query().Get("code_challenge")

	require.NoError(t, f.mgr.HandleRedirectReply(context.Background(), state, "code-1"))

	require.Equal(t, session.StateLoggedOn, f.mgr.State())
	require.True(t, f.mgr.IsLoggedOn())

	token := f.mgr.Token()
	require.Equal(t, "access-1", token.AccessToken)
	require.Equal(t, "refresh-1", token.RefreshToken)
	require.Equal(t, f.now.Add(3600*time.Second), token.Expiry)

	form := f.server.lastForm(t)
	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, "code-1", form.Get("code"))
	require.Equal(t, "x-sierra-romeo:authcode", form.Get("redirect_uri"))
	require.Equal(t, "test-client-1", form.Get("client_id"))
	// The code_verifier sent to the token endpoint must hash to the
	// challenge that went out in the authorization URL.
	require.Equal(t, challenge, session.Challenge(form.Get("code_verifier")))

	t.Run("renewal timer armed for expires_in minus 60s", func(t *testing.T) {
		require.Equal(t, 3540*time.Second, f.lastArmed(t))
	})

	t.Run("state cannot be replayed", func(t *testing.T) {
		before := f.server.requestCount()
		require.NoError(t, f.mgr.HandleRedirectReply(context.Background(), state, "code-1"))
		require.Equal(t, before, f.server.requestCount())
	})
}

func TestHandleRedirectReply_ProviderError(t *testing.T) {
	f := setupTestFixture(t)
	f.server.setResponse(`{"error":"invalid_grant","error_description":"code expired"}`)

	authURL, err := f.mgr.BeginLogin()
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	err = f.mgr.HandleRedirectReply(context.Background(), u.Query().Get("state"), "code-1")
	require.Error(t, err)
	require.ErrorIs(t, err, session.ProviderRejectedErr)
	require.Contains(t, err.Error(), "code expired")
	require.Equal(t, session.StateLoggedOff, f.mgr.State())
	require.False(t, f.mgr.IsLoggedOn())
}

func TestHandleRedirectReply_TransportFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.server.srv.Close()

	authURL, err := f.mgr.BeginLogin()
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	err = f.mgr.HandleRedirectReply(context.Background(), u.Query().Get("state"), "code-1")
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrTransport)
	// Transport failures never pretend the login worked.
	require.Equal(t, session.StateAuthenticating, f.mgr.State())
	require.False(t, f.mgr.IsLoggedOn())
	require.Empty(t, f.mgr.Token().AccessToken)
}

func TestHandleRedirectReply_NonceMismatch(t *testing.T) {
	f := setupTestFixture(t)

	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"nonce": "someone-elses-nonce",
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	f.server.setResponse(`{"access_token":"access-1","refresh_token":"refresh-1","expires_in":3600,"id_token":"` + idToken + `"}`)

	authURL, err := f.mgr.BeginLogin()
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	err = f.mgr.HandleRedirectReply(context.Background(), u.Query().Get("state"), "code-1")
	require.ErrorIs(t, err, session.NonceMismatchErr)
	require.Equal(t, session.StateLoggedOff, f.mgr.State())
	require.False(t, f.mgr.IsLoggedOn())
}

func TestRenewNow(t *testing.T) {
	t.Run("renews with the refresh token grant", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)

		f.server.setResponse(`{"access_token":"access-2","refresh_token":"refresh-2","expires_in":7200}`)
		f.advance(30 * time.Minute)
		f.mgr.RenewNow()

		require.Equal(t, session.StateLoggedOn, f.mgr.State())
		token := f.mgr.Token()
		require.Equal(t, "access-2", token.AccessToken)
		require.Equal(t, "refresh-2", token.RefreshToken)
		require.Equal(t, f.now.Add(7200*time.Second), token.Expiry)
		require.Equal(t, 7140*time.Second, f.lastArmed(t))

		form := f.server.lastForm(t)
		require.Equal(t, "refresh_token", form.Get("grant_type"))
		require.Equal(t, "refresh-1", form.Get("refresh_token"))
		require.Equal(t, "test-client-1", form.Get("client_id"))
	})

	t.Run("logs off when the token already expired", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		before := f.server.requestCount()

		f.advance(2 * time.Hour)
		f.mgr.RenewNow()

		require.Equal(t, session.StateLoggedOff, f.mgr.State())
		require.False(t, f.mgr.IsLoggedOn())
		require.Empty(t, f.mgr.Token().AccessToken)
		// No renewal request goes out for a stale refresh token.
		require.Equal(t, before, f.server.requestCount())
	})
}

func TestStateListener(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, []session.State{session.StateAuthenticating, session.StateLoggedOn}, f.transitions)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.mgr.Logout(context.Background())

	require.Equal(t, session.StateLoggedOff, f.mgr.State())
	require.False(t, f.mgr.IsLoggedOn())
	require.Empty(t, f.mgr.BearerToken())
}

func TestBeginLogin_SweepsAbandonedAttempts(t *testing.T) {
	f := setupTestFixture(t)

	authURL, err := f.mgr.BeginLogin()
	require.NoError(t, err)
	u, _ := url.Parse(authURL)
	staleState := u.Query().Get("state")

	// A redirect that arrives 20 minutes later finds nothing to correlate.
	f.advance(20 * time.Minute)
	_, err = f.mgr.BeginLogin()
	require.NoError(t, err)

	require.NoError(t, f.mgr.HandleRedirectReply(context.Background(), staleState, "code-1"))
	require.Equal(t, session.StateLoggedOff, f.mgr.State())
	require.Zero(t, f.server.requestCount())
}
