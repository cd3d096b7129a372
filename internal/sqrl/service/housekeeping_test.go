package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeeping_SweepsNutsAndKeys(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	nut := h.issue(t, "/")
	require.NoError(t, h.store.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
		ID:        "01",
		Kid:       "gone",
		Algorithm: "EdDSA",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	h.clock.Advance(time.Hour)

	hk := NewHousekeepingService(h.nuts, h.store, slogx.Discard(), time.Hour)
	hk.cleanup()

	_, err := h.nuts.Lookup(nut.Token)
	require.ErrorIs(t, err, ErrNutNotFound)

	_, err = h.store.SigningKeys().GetSigningKeyByKid(ctx, "gone")
	require.Error(t, err)
}

func TestHousekeeping_StartStop(t *testing.T) {
	h := newHarness(t)
	hk := NewHousekeepingService(h.nuts, nil, slogx.Discard(), 0)
	require.Equal(t, time.Minute, hk.Interval)

	hk.Start()
	hk.Stop()
}
