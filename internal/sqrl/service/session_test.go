package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/sqrl/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTicketService(t *testing.T, admins ...string) *TicketService {
	t.Helper()
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:   "https://sqrl.test",
		Audience: []string{"sqrl"},
		NumKeys:  1,
	})
	require.NoError(t, err)
	return NewTicketService(km, "https://sqrl.test", []string{"sqrl"}, time.Hour, admins)
}

func TestTicketService_EmitSession(t *testing.T) {
	svc := newTicketService(t, "admin-idk")
	ctx := context.Background()

	ticket, err := svc.EmitSession(ctx, SessionRequest{UserID: "user-idk", Path: "/"})
	require.NoError(t, err)
	require.NotEmpty(t, ticket.Token)
	require.NotEmpty(t, ticket.SessionID)
	require.WithinDuration(t, time.Now().Add(time.Hour), ticket.ExpiresAt, 5*time.Second)

	claims, err := svc.Verify(ticket.Token)
	require.NoError(t, err)
	require.Equal(t, "user-idk", claims.Subject)
	require.Equal(t, jwtx.RoleUser, claims.Role)
	require.Equal(t, []string{AMRSQRL}, claims.AMR)
	require.Equal(t, ticket.SessionID, claims.SID)
	require.Empty(t, claims.Scope)
}

func TestTicketService_AdminAskedAndScoped(t *testing.T) {
	svc := newTicketService(t, "admin-idk")

	ticket, err := svc.EmitSession(context.Background(), SessionRequest{
		UserID: "admin-idk",
		Path:   "/Members/inbox",
		Scope:  "/Members",
		Asked:  true,
	})
	require.NoError(t, err)
	require.Equal(t, "/Members", ticket.Scope)

	claims, err := svc.Verify(ticket.Token)
	require.NoError(t, err)
	require.True(t, claims.IsAdmin())
	require.Equal(t, []string{AMRSQRL, AMRAsk}, claims.AMR)
	require.Equal(t, "/Members", claims.Scope)
}

func TestTicketService_RequiresUser(t *testing.T) {
	svc := newTicketService(t)
	_, err := svc.EmitSession(context.Background(), SessionRequest{})
	require.Error(t, err)
}
