package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/stretchr/testify/require"
)

func TestNutRegistry_Issue(t *testing.T) {
	h := newHarness(t)

	nut := h.issue(t, "/")
	require.Len(t, nut.Token, 43)
	require.Equal(t, "/", nut.Path)
	require.Equal(t, 180*time.Second, nut.ExpiresAt.Sub(nut.CreatedAt))
	require.Equal(t, domain.StateAwaitingSignature, nut.State)
	require.False(t, nut.Consumed)
	require.Nil(t, nut.Question)

	other := h.issue(t, "/")
	require.NotEqual(t, nut.Token, other.Token)
}

func TestNutRegistry_IssueAttachesQuestionOnAskPaths(t *testing.T) {
	clock := newFakeClock()
	rules := NewPathRules(true, PathRule{Prefix: "/"}, PathRule{Prefix: askPath, AskEligible: true})
	r := NewNutRegistry(NutRegistryConfig{},
		WithNutClock(clock.Now),
		WithAskQuestions(rules, func(context.Context, string, string) *domain.AskQuestion {
			return confirmQuestion()
		}),
	)

	plain, err := r.Issue(context.Background(), IssueRequest{Path: "/"})
	require.NoError(t, err)
	require.Nil(t, plain.Question)

	asked, err := r.Issue(context.Background(), IssueRequest{Path: askPath})
	require.NoError(t, err)
	require.NotNil(t, asked.Question)
	require.Equal(t, "Confirm?", asked.Question.Message)
}

func TestNutRegistry_IssueRejectsUnknownPaths(t *testing.T) {
	rules := NewPathRules(true, PathRule{Prefix: "/MessageMe"})
	r := NewNutRegistry(NutRegistryConfig{}, WithAskQuestions(rules, nil))

	_, err := r.Issue(context.Background(), IssueRequest{Path: "/admin"})
	require.ErrorIs(t, err, ErrPathNotAllowed)

	_, err = r.Issue(context.Background(), IssueRequest{Path: "/MessageMe/Now"})
	require.NoError(t, err)
}

func TestNutRegistry_IssueWhenFull(t *testing.T) {
	h := newHarness(t, func(c *harnessConfig) { c.nuts.MaxNuts = 2 })
	h.issue(t, "/")
	h.issue(t, "/")

	_, err := h.nuts.Issue(context.Background(), IssueRequest{Path: "/"})
	require.ErrorIs(t, err, ErrRegistryFull)

	h.clock.Advance(time.Hour)
	require.Equal(t, 2, h.nuts.Sweep(h.clock.Now()))
	h.issue(t, "/")
}

func TestNutRegistry_ConcurrentIssueRespectsCap(t *testing.T) {
	h := newHarness(t, func(c *harnessConfig) { c.nuts.MaxNuts = 8 })

	const workers = 64
	var (
		issued atomic.Int32
		wg     sync.WaitGroup
		start  = make(chan struct{})
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := h.nuts.Issue(context.Background(), IssueRequest{Path: "/"}); err == nil {
				issued.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(8), issued.Load())
	require.Equal(t, 8, h.nuts.Stats().Live)
}

func TestNutRegistry_LookupExpiry(t *testing.T) {
	h := newHarness(t, func(c *harnessConfig) {
		c.nuts = NutRegistryConfig{CheckInterval: time.Second, Multiplier: 3}
	})
	nut := h.issue(t, "/")

	_, err := h.nuts.Lookup("never-issued")
	require.ErrorIs(t, err, ErrNutNotFound)

	h.clock.Advance(2999 * time.Millisecond)
	got, err := h.nuts.Lookup(nut.Token)
	require.NoError(t, err)
	require.Equal(t, nut.Token, got.Token)

	// The deadline itself is already too late.
	h.clock.Advance(time.Millisecond)
	_, err = h.nuts.Lookup(nut.Token)
	require.ErrorIs(t, err, ErrNutExpired)

	// Evicted by the expired lookup.
	_, err = h.nuts.Lookup(nut.Token)
	require.ErrorIs(t, err, ErrNutNotFound)
}

func TestNutRegistry_ConsumeExactlyOnce(t *testing.T) {
	h := newHarness(t)
	nut := h.issue(t, "/")

	const workers = 64
	var (
		wins  atomic.Int32
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if h.nuts.Consume(nut.Token) {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())

	got, err := h.nuts.Lookup(nut.Token)
	require.ErrorIs(t, err, ErrNutConsumed)
	require.Equal(t, domain.StateDenied, got.State)
}

func TestNutRegistry_ConsumedNutIsSettled(t *testing.T) {
	h := newHarness(t)
	nut, req := pendingAsk(t, h)
	require.True(t, h.nuts.Consume(nut.Token))

	require.Equal(t, domain.AskStatus{State: domain.AskResolved, Accepted: false}, poll(t, h, nut.Token))
	require.ErrorIs(t, h.ask.SubmitAskResponse(context.Background(), nut.Token, 1), ErrAlreadyAnswered)
	requireDenied(t, h.doLogin(t, req), domain.ReasonReplay)
	require.Empty(t, h.emitter.calls())
}

func TestNutRegistry_ConsumeExpiredOrMissing(t *testing.T) {
	h := newHarness(t)
	require.False(t, h.nuts.Consume("missing"))

	nut := h.issue(t, "/")
	h.clock.Advance(time.Hour)
	require.False(t, h.nuts.Consume(nut.Token))
}

func TestNutRegistry_AttachQuestion(t *testing.T) {
	h := newHarness(t)
	nut := h.issue(t, "/")

	require.False(t, h.nuts.AttachQuestion(nut.Token, &domain.AskQuestion{Message: "no buttons"}))
	require.False(t, h.nuts.AttachQuestion("missing", confirmQuestion()))

	q := confirmQuestion()
	require.True(t, h.nuts.AttachQuestion(nut.Token, q))

	// The registry keeps its own copy.
	q.Message = "changed"
	got, err := h.nuts.Lookup(nut.Token)
	require.NoError(t, err)
	require.Equal(t, "Confirm?", got.Question.Message)

	require.True(t, h.nuts.Consume(nut.Token))
	require.False(t, h.nuts.AttachQuestion(nut.Token, confirmQuestion()))
}

func TestNutRegistry_SweepAndStats(t *testing.T) {
	h := newHarness(t)
	old1 := h.issue(t, "/")
	h.issue(t, "/")
	h.issue(t, "/")
	require.True(t, h.nuts.Consume(old1.Token))

	st := h.nuts.Stats()
	require.Equal(t, NutStats{Live: 2, Tombstones: 1}, st)

	h.clock.Advance(time.Hour)
	fresh := h.issue(t, "/")

	require.Equal(t, 3, h.nuts.Sweep(h.clock.Now()))
	require.Equal(t, NutStats{Live: 1}, h.nuts.Stats())

	_, err := h.nuts.Lookup(old1.Token)
	require.ErrorIs(t, err, ErrNutNotFound)
	_, err = h.nuts.Lookup(fresh.Token)
	require.NoError(t, err)
}

func TestNutStateTransitions(t *testing.T) {
	tests := []struct {
		from, to domain.NutState
		ok       bool
	}{
		{domain.StateIssued, domain.StateAwaitingSignature, true},
		{domain.StateAwaitingSignature, domain.StateVerifying, true},
		{domain.StateVerifying, domain.StateAwaitingSignature, true},
		{domain.StateVerifying, domain.StateAwaitingAskResponse, true},
		{domain.StateAwaitingAskResponse, domain.StateAuthenticated, true},
		{domain.StateAwaitingAskResponse, domain.StateDenied, true},
		{domain.StateAwaitingSignature, domain.StateAuthenticated, false},
		{domain.StateAuthenticated, domain.StateDenied, false},
		{domain.StateDenied, domain.StateAuthenticated, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			require.Equal(t, tt.ok, domain.CanTransition(tt.from, tt.to))
		})
	}
}
