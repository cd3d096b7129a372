package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Issuer:              "sqrl-test",
		CheckInterval:       time.Second,
		NutMultiplier:       30,
		LoginPaths:          []string{"/", "/MessageMe"},
		AskPaths:            []AskPath{{Prefix: "/MessageMe/Now"}},
		AllowRegistration:   true,
		StoreDriver:         "sqlite",
		DatabaseFile:        filepath.Join(t.TempDir(), "sqrl.db"),
		KeyStorageMode:      "ephemeral",
		SessionTTL:          time.Hour,
		CookieName:          "sqrl_session",
		Env:                 "test",
		LogLevel:            "error",
		ShutdownGracePeriod: time.Second,
	}
}

func TestApplication_EndToEnd(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := sqrlsdk.NewClient(srv.URL)
	id, err := sqrlsdk.NewIdentity()
	require.NoError(t, err)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)

	nut, err := client.RequestNut(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 30, nut.ExpiresIn)

	resp, err := client.Login(ctx, id, nut.Nut, "/", sqrlsdk.LoginOptions{Register: true})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomeAuthenticated, resp.Outcome)

	// The demo question guards /MessageMe/Now.
	nut, err = client.RequestNut(ctx, "/MessageMe/Now")
	require.NoError(t, err)
	require.NotNil(t, nut.Question)
	require.Equal(t, RejectURL, nut.Question.Button2.URL)

	resp, err = client.Login(ctx, id, nut.Nut, "/MessageMe/Now", sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.OutcomePending, resp.Outcome)

	require.NoError(t, client.AnswerAsk(ctx, nut.Nut, 2))
	resp, err = client.Login(ctx, id, nut.Nut, "/MessageMe/Now", sqrlsdk.LoginOptions{})
	require.NoError(t, err)
	require.Equal(t, sqrlsdk.ReasonUserRejected, resp.Reason)
}

func TestApplication_PersistentKeysSurviveRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.KeyStorageMode = "persistent"
	cfg.MasterKeyPath = filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, writeFile(cfg.MasterKeyPath, "correct horse battery staple"))

	first, err := New(cfg)
	require.NoError(t, err)
	kids := first.keyManager.KeySet.PublicJWKS().Keys
	require.NoError(t, first.db.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.db.Close() })

	require.ElementsMatch(t, kids, second.keyManager.KeySet.PublicJWKS().Keys)
}

func TestApplication_KeyRotationPersists(t *testing.T) {
	ctx := context.Background()
	admin, err := sqrlsdk.NewIdentity()
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.KeyStorageMode = "persistent"
	cfg.MasterKeyPath = filepath.Join(t.TempDir(), "master.key")
	cfg.AdminIDs = []string{admin.UserID()}
	require.NoError(t, writeFile(cfg.MasterKeyPath, "correct horse battery staple"))

	first, err := New(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(first.Handler())
	client := sqrlsdk.NewClient(srv.URL)

	nut, err := client.RequestNut(ctx, "/")
	require.NoError(t, err)
	login, err := client.Login(ctx, admin, nut.Nut, "/", sqrlsdk.LoginOptions{Register: true})
	require.NoError(t, err)
	require.NotEmpty(t, login.Ticket)

	rotated, err := client.RotateSigningKey(ctx, login.Ticket, true)
	require.NoError(t, err)
	require.Equal(t, 1, rotated.ActiveKeys)
	require.Len(t, rotated.RetiredKeys, 2)

	keys, err := client.ListSigningKeys(ctx, login.Ticket)
	require.NoError(t, err)
	require.Len(t, keys, 3)

	err = client.RetireSigningKey(ctx, login.Ticket, rotated.NewKey.Kid)
	require.ErrorIs(t, err, sqrlsdk.ErrConflict)

	srv.Close()
	require.NoError(t, first.db.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.db.Close() })

	var kids []string
	for _, s := range second.keyManager.Signers() {
		kids = append(kids, s.KID())
	}
	require.Contains(t, kids, rotated.NewKey.Kid)
	for _, k := range rotated.RetiredKeys {
		require.NotContains(t, kids, k.Kid)
	}

	// Tickets signed before the rotation still verify after a restart.
	srv = httptest.NewServer(second.Handler())
	t.Cleanup(srv.Close)
	sess, err := sqrlsdk.NewClient(srv.URL).GetSession(ctx, login.Ticket)
	require.NoError(t, err)
	require.Equal(t, admin.UserID(), sess.UserID)
}

// Identity commands allow 5 requests per minute per client IP.
func TestApplication_RateLimitsIdentityCommands(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := sqrlsdk.NewClient(srv.URL)

	var lastErr error
	for i := range 6 {
		_, err := client.IdentityCommand(ctx, sqrlsdk.CmdDisable, sqrlsdk.IdentityCommandRequest{Nut: "nope"})
		require.Error(t, err)

		var apiErr *sqrlsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		if i < 5 {
			require.NotEqual(t, http.StatusTooManyRequests, apiErr.StatusCode, "request %d", i+1)
			continue
		}
		lastErr = apiErr
	}

	var apiErr *sqrlsdk.APIError
	require.ErrorAs(t, lastErr, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestHost_DemoCollaborators(t *testing.T) {
	q := DemoQuestion(context.Background(), "/MessageMe/Now", "nut")
	require.True(t, q.Valid())
	require.True(t, q.HasButton(2))

	require.True(t, AcceptFirstButton(context.Background(), "/", "nut", 1))
	require.False(t, AcceptFirstButton(context.Background(), "/", "nut", 2))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
