package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	sqrlhttp "github.com/aussiebroadwan/sqrl/internal/sqrl/http"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store/drivers/memory"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/jwtx"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "https://sqrl.test"
	askPath    = "/MessageMe/Now"
)

type testServer struct {
	*httptest.Server

	client *sqrlsdk.Client
	admin  *sqrlsdk.Identity
	store  *memory.Store
}

func newTestServer(t *testing.T, diagnostics bool) *testServer {
	t.Helper()

	admin, err := sqrlsdk.NewIdentity()
	require.NoError(t, err)

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, NumKeys: 1})
	require.NoError(t, err)

	rules := service.NewPathRules(true,
		service.PathRule{Prefix: "/"},
		service.PathRule{Prefix: "/MessageMe"},
		service.PathRule{Prefix: askPath, AskEligible: true},
	)
	questions := func(context.Context, string, string) *domain.AskQuestion {
		return &domain.AskQuestion{
			Message: "Confirm?",
			Button1: &domain.AskButton{Label: "Yes"},
			Button2: &domain.AskButton{Label: "No", URL: "/NoMessagePage"},
		}
	}

	st := memory.NewStore()
	nuts := service.NewNutRegistry(service.NutRegistryConfig{}, service.WithAskQuestions(rules, questions))
	tickets := service.NewTicketService(km, testIssuer, nil, time.Hour, []string{admin.IDK()})

	router := sqrlhttp.NewRouter(km, "test", st, slogx.Discard())
	router.Diagnostics = diagnostics
	router.Nuts = nuts
	router.LoginService = &service.LoginService{
		Nuts:       nuts,
		Identities: st.Identities(),
		Verifier:   cryptox.Ed25519Verifier{},
		Rules:      rules,
		Sessions:   tickets,
	}
	router.AskService = &service.AskService{
		Nuts:  nuts,
		Rules: rules,
		Interpret: func(_ context.Context, _, _ string, button int) bool {
			return button == 1
		},
		Sessions: tickets,
	}
	router.IdentityService = &service.IdentityService{
		Nuts:     nuts,
		Store:    st,
		Verifier: cryptox.Ed25519Verifier{},
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		Server: srv,
		client: sqrlsdk.NewClient(srv.URL),
		admin:  admin,
		store:  st,
	}
}

// signIn registers (if needed) and logs id in on path, returning the ticket.
func (s *testServer) signIn(t *testing.T, id *sqrlsdk.Identity, path string) string {
	t.Helper()
	ctx := context.Background()

	nut, err := s.client.RequestNut(ctx, path)
	require.NoError(t, err)

	resp, err := s.client.Login(ctx, id, nut.Nut, path, sqrlsdk.LoginOptions{Register: true})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomeAuthenticated, resp.Outcome, "reason: %s", resp.Reason)
	require.NotEmpty(t, resp.Ticket)
	return resp.Ticket
}

func newIdentity(t *testing.T) *sqrlsdk.Identity {
	t.Helper()
	id, err := sqrlsdk.NewIdentity()
	require.NoError(t, err)
	return id
}

func TestRouter_LoginFlow(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()
	id := newIdentity(t)

	nut, err := s.client.RequestNut(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 180, nut.ExpiresIn)
	require.Equal(t, 1000, nut.CheckMS)
	require.Nil(t, nut.Question)

	resp, err := s.client.Login(ctx, id, nut.Nut, "/", sqrlsdk.LoginOptions{Register: true, WantSUK: true})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomeAuthenticated, resp.Outcome)
	require.Equal(t, id.IDK(), resp.UserID)
	require.Equal(t, id.SUK(), resp.SUK)
	require.NotNil(t, resp.ExpiresAt)

	session, err := s.client.GetSession(ctx, resp.Ticket)
	require.NoError(t, err)
	require.Equal(t, id.IDK(), session.UserID)
	require.Equal(t, jwtx.RoleUser, session.Role)
	require.NotEmpty(t, session.SessionID)

	replay, err := s.client.Login(ctx, id, nut.Nut, "/", sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomeDenied, replay.Outcome)
	require.Equal(t, sqrlsdk.ReasonReplay, replay.Reason)
}

func TestRouter_LoginSetsCookie(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()
	id := newIdentity(t)

	nut, err := s.client.RequestNut(ctx, "/")
	require.NoError(t, err)

	body := []byte(`{"nut":"` + nut.Nut + `","path":"/","idk":"` + id.IDK() +
		`","ids":"` + id.Sign(sqrlsdk.CmdIdent, nut.Nut, "/") +
		`","suk":"` + id.SUK() + `","vuk":"` + id.VUK() + `"}`)
	res, err := http.Post(s.URL+"/sqrl/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == sqrlhttp.DefaultCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/v1/session", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	sres, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer sres.Body.Close()
	require.Equal(t, http.StatusOK, sres.StatusCode)
}

func TestRouter_DenialsAreDecisions(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()
	id := newIdentity(t)

	resp, err := s.client.Login(ctx, id, "no-such-nut", "/", sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomeDenied, resp.Outcome)
	require.Equal(t, sqrlsdk.ReasonInvalidNut, resp.Reason)

	nut, err := s.client.RequestNut(ctx, "/")
	require.NoError(t, err)
	resp, err = s.client.Login(ctx, id, nut.Nut, "/", sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.ReasonUnknownUser, resp.Reason)
}

func TestRouter_BadRequests(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()

	_, err := s.client.RequestNut(ctx, "relative")
	require.ErrorIs(t, err, sqrlsdk.ErrInvalidRequest)

	res, err := http.Post(s.URL+"/sqrl/login", "application/json",
		bytes.NewReader([]byte(`{"nut":"x","path":"/","idk":"abc","ids":"!!not base64!!"}`)))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, err = http.Post(s.URL+"/sqrl/login", "application/json",
		bytes.NewReader([]byte(`{"nut":"x","unexpected":true}`)))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	_, err = s.client.IdentityCommand(ctx, "reboot", sqrlsdk.IdentityCommandRequest{Nut: "x", IDK: "y"})
	require.ErrorIs(t, err, sqrlsdk.ErrInvalidRequest)
}

func TestRouter_AskFlow(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()
	id := newIdentity(t)
	s.signIn(t, id, "/")

	nut, err := s.client.RequestNut(ctx, askPath)
	require.NoError(t, err)
	require.NotNil(t, nut.Question)
	require.Equal(t, "Confirm?", nut.Question.Message)
	require.Equal(t, "/NoMessagePage", nut.Question.Button2.URL)

	resp, err := s.client.Login(ctx, id, nut.Nut, askPath, sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomePending, resp.Outcome)
	require.NotNil(t, resp.Question)

	st, err := s.client.PollAsk(ctx, nut.Nut)
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.AskStatePending, st.State)
	require.Nil(t, st.Accepted)

	require.ErrorIs(t, s.client.AnswerAsk(ctx, nut.Nut, 3), sqrlsdk.ErrInvalidButton)
	require.NoError(t, s.client.AnswerAsk(ctx, nut.Nut, 1))
	require.ErrorIs(t, s.client.AnswerAsk(ctx, nut.Nut, 2), sqrlsdk.ErrNotPending)

	st, err = s.client.PollAsk(ctx, nut.Nut)
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.AskStateResolved, st.State)
	require.NotNil(t, st.Accepted)
	require.True(t, *st.Accepted)

	resp, err = s.client.Login(ctx, id, nut.Nut, askPath, sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomeAuthenticated, resp.Outcome)

	session, err := s.client.GetSession(ctx, resp.Ticket)
	require.NoError(t, err)
	require.Equal(t, id.IDK(), session.UserID)
}

func TestRouter_AskDenyAndUnknownNut(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()
	id := newIdentity(t)
	s.signIn(t, id, "/")

	st, err := s.client.PollAsk(ctx, "never-issued")
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.AskStateExpired, st.State)

	nut, err := s.client.RequestNut(ctx, askPath)
	require.NoError(t, err)
	require.ErrorIs(t, s.client.AnswerAsk(ctx, nut.Nut, 1), sqrlsdk.ErrNotPending)

	_, err = s.client.Login(ctx, id, nut.Nut, askPath, sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.NoError(t, s.client.AnswerAsk(ctx, nut.Nut, 2))

	st, err = s.client.PollAsk(ctx, nut.Nut)
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.AskStateResolved, st.State)
	require.False(t, *st.Accepted)

	resp, err := s.client.Login(ctx, id, nut.Nut, askPath, sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.ReasonUserRejected, resp.Reason)
}

func TestRouter_IdentityCommands(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()
	id := newIdentity(t)
	next := newIdentity(t)
	s.signIn(t, id, "/")

	nut, err := s.client.RequestNut(ctx, "/")
	require.NoError(t, err)
	resp, err := s.client.Disable(ctx, id, nut.Nut, "/")
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomeAuthenticated, resp.Outcome)

	nut, err = s.client.RequestNut(ctx, "/")
	require.NoError(t, err)
	login, err := s.client.Login(ctx, id, nut.Nut, "/", sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.ReasonAccountLocked, login.Reason)

	nut, err = s.client.RequestNut(ctx, "/")
	require.NoError(t, err)
	resp, err = s.client.Enable(ctx, id, nut.Nut, "/")
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomeAuthenticated, resp.Outcome)

	nut, err = s.client.RequestNut(ctx, "/")
	require.NoError(t, err)
	resp, err = s.client.Rekey(ctx, id, next, nut.Nut, "/")
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomeAuthenticated, resp.Outcome)
	require.Equal(t, next.IDK(), resp.UserID)

	s.signIn(t, next, "/")
}

func TestRouter_AdminLock(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()
	user := newIdentity(t)

	userTicket := s.signIn(t, user, "/")
	adminTicket := s.signIn(t, s.admin, "/")

	session, err := s.client.GetSession(ctx, adminTicket)
	require.NoError(t, err)
	require.Equal(t, jwtx.RoleAdmin, session.Role)

	_, err = s.client.AdminLock(ctx, userTicket, s.admin.IDK())
	var apiErr *sqrlsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	locked, err := s.client.AdminLock(ctx, adminTicket, user.IDK())
	require.NoError(t, err)
	require.True(t, locked.Locked)

	nut, err := s.client.RequestNut(ctx, "/")
	require.NoError(t, err)
	login, err := s.client.Login(ctx, user, nut.Nut, "/", sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.ReasonAccountLocked, login.Reason)

	unlocked, err := s.client.AdminUnlock(ctx, adminTicket, user.IDK())
	require.NoError(t, err)
	require.False(t, unlocked.Locked)

	_, err = s.client.AdminLock(ctx, adminTicket, "nobody")
	require.ErrorIs(t, err, sqrlsdk.ErrNotFound)
}

func TestRouter_SessionRequiresTicket(t *testing.T) {
	s := newTestServer(t, false)

	_, err := s.client.GetSession(context.Background(), "")
	var apiErr *sqrlsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = s.client.GetSession(context.Background(), "not.a.jwt")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestRouter_System(t *testing.T) {
	s := newTestServer(t, false)
	ctx := context.Background()

	live, err := s.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := s.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks["database"])

	jwks, err := s.client.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)

	res, err := http.Get(s.URL + "/sqrl/diag")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestRouter_Diagnostics(t *testing.T) {
	s := newTestServer(t, true)
	_, err := s.client.RequestNut(context.Background(), "/")
	require.NoError(t, err)

	res, err := http.Get(s.URL + "/sqrl/diag")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}
