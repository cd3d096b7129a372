package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, time.Second, cfg.CheckInterval)
	require.Equal(t, 180, cfg.NutMultiplier)
	require.Equal(t, []string{"/", "/MessageMe"}, cfg.LoginPaths)
	require.Equal(t, []AskPath{{Prefix: "/MessageMe/Now"}}, cfg.AskPaths)
	require.True(t, cfg.AllowRegistration)
	require.False(t, cfg.Diagnostics)
	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, "sqrl_session", cfg.CookieName)
	require.Equal(t, 3*time.Hour, cfg.SessionTTL)
	require.Equal(t, 7*24*time.Hour, cfg.KeyGracePeriod)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SQRL_CHECK_MS", "500")
	t.Setenv("SQRL_NUT_MULTIPLIER", "6")
	t.Setenv("SQRL_LOGIN_PATHS", "/, /app ,")
	t.Setenv("SQRL_ASK_PATHS", "/app/pay:true,/app/confirm")
	t.Setenv("SQRL_ALLOW_REGISTRATION", "false")
	t.Setenv("SQRL_DIAGNOSTICS", "1")
	t.Setenv("SQRL_ADMIN_IDS", "abc,def")
	t.Setenv("SQRL_STORE", "memory")
	t.Setenv("SQRL_COOKIE_NAME", "-")
	t.Setenv("SQRL_SESSION_TTL", "90")
	t.Setenv("SQRL_KEY_GRACE_PERIOD", "48h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 500*time.Millisecond, cfg.CheckInterval)
	require.Equal(t, 6, cfg.NutMultiplier)
	require.Equal(t, []string{"/", "/app"}, cfg.LoginPaths)
	require.Equal(t, []AskPath{
		{Prefix: "/app/pay", AuthenticateSeparately: true},
		{Prefix: "/app/confirm"},
	}, cfg.AskPaths)
	require.False(t, cfg.AllowRegistration)
	require.True(t, cfg.Diagnostics)
	require.Equal(t, []string{"abc", "def"}, cfg.AdminIDs)
	require.Empty(t, cfg.CookieName)
	require.Equal(t, 90*time.Minute, cfg.SessionTTL)
	require.Equal(t, 48*time.Hour, cfg.KeyGracePeriod)

	rules := cfg.PathRules()
	r, ok := rules.Match("/app/pay/now")
	require.True(t, ok)
	require.True(t, r.AskEligible)
	require.True(t, r.AuthenticateSeparately)
	require.False(t, rules.RegistrationAllowed("/app"))
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("bad ask flag", func(t *testing.T) {
		t.Setenv("SQRL_ASK_PATHS", "/x:maybe")
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("SQRL_STORE", "postgres")
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("SQRL_STORE", "mongo")
		_, err := LoadConfig()
		require.Error(t, err)
	})
}
