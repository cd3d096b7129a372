package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store/drivers/memory"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingEmitter counts EmitSession calls and hands out numbered tickets.
type recordingEmitter struct {
	mu   sync.Mutex
	reqs []SessionRequest
	err  error
}

func (e *recordingEmitter) EmitSession(_ context.Context, req SessionRequest) (domain.Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return domain.Ticket{}, e.err
	}
	e.reqs = append(e.reqs, req)
	return domain.Ticket{
		Token:     fmt.Sprintf("ticket-%d", len(e.reqs)),
		SessionID: fmt.Sprintf("sid-%d", len(e.reqs)),
		Scope:     req.Scope,
	}, nil
}

func (e *recordingEmitter) calls() []SessionRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SessionRequest(nil), e.reqs...)
}

const (
	askPath      = "/MessageMe/Now"
	separatePath = "/Members"
)

func confirmQuestion() *domain.AskQuestion {
	return &domain.AskQuestion{
		Message: "Confirm?",
		Button1: &domain.AskButton{Label: "Yes"},
		Button2: &domain.AskButton{Label: "No", URL: "/NoMessagePage"},
	}
}

type harness struct {
	clock    *fakeClock
	rules    *PathRules
	nuts     *NutRegistry
	store    *memory.Store
	emitter  *recordingEmitter
	login    *LoginService
	ask      *AskService
	identity *IdentityService
}

type harnessConfig struct {
	nuts              NutRegistryConfig
	allowRegistration bool
	questions         QuestionResolver
}

func newHarness(t *testing.T, opts ...func(*harnessConfig)) *harness {
	t.Helper()

	cfg := harnessConfig{
		allowRegistration: true,
		questions: func(context.Context, string, string) *domain.AskQuestion {
			return confirmQuestion()
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := newFakeClock()
	rules := NewPathRules(cfg.allowRegistration,
		PathRule{Prefix: "/"},
		PathRule{Prefix: "/MessageMe"},
		PathRule{Prefix: askPath, AskEligible: true},
		PathRule{Prefix: separatePath, AuthenticateSeparately: true},
	)
	nuts := NewNutRegistry(cfg.nuts, WithNutClock(clock.Now))
	mem := memory.NewStore()
	emitter := &recordingEmitter{}

	return &harness{
		clock:   clock,
		rules:   rules,
		nuts:    nuts,
		store:   mem,
		emitter: emitter,
		login: &LoginService{
			Nuts:       nuts,
			Identities: mem.Identities(),
			Verifier:   cryptox.Ed25519Verifier{},
			Rules:      rules,
			Questions:  cfg.questions,
			Sessions:   emitter,
		},
		ask: &AskService{
			Nuts:  nuts,
			Rules: rules,
			Interpret: func(_ context.Context, _, _ string, button int) bool {
				return button == 1
			},
			Sessions: emitter,
		},
		identity: &IdentityService{
			Nuts:     nuts,
			Store:    mem,
			Verifier: cryptox.Ed25519Verifier{},
		},
	}
}

func (h *harness) issue(t *testing.T, path string) domain.Nut {
	t.Helper()
	nut, err := h.nuts.Issue(context.Background(), IssueRequest{Path: path})
	require.NoError(t, err)
	return nut
}

func (h *harness) register(t *testing.T, id *sqrlsdk.Identity) {
	t.Helper()
	require.NoError(t, h.store.Identities().CreateUser(context.Background(),
		id.IDK(), decode(t, id.SUK()), decode(t, id.VUK())))
}

func newIdentity(t *testing.T) *sqrlsdk.Identity {
	t.Helper()
	id, err := sqrlsdk.NewIdentity()
	require.NoError(t, err)
	return id
}

func decode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.RawURLEncoding.DecodeString(s)
	require.NoError(t, err)
	return b
}

func loginRequest(t *testing.T, id *sqrlsdk.Identity, nut, path string) LoginRequest {
	t.Helper()
	return LoginRequest{
		Nut:       nut,
		Path:      path,
		IDK:       id.IDK(),
		Signature: decode(t, id.Sign(sqrlsdk.CmdIdent, nut, path)),
	}
}

func registeringLogin(t *testing.T, id *sqrlsdk.Identity, nut, path string) LoginRequest {
	t.Helper()
	req := loginRequest(t, id, nut, path)
	req.SUK = decode(t, id.SUK())
	req.VUK = decode(t, id.VUK())
	return req
}

func (h *harness) doLogin(t *testing.T, req LoginRequest) domain.Decision {
	t.Helper()
	d, err := h.login.HandleLoginRequest(context.Background(), req)
	require.NoError(t, err)
	return d
}

func requireDenied(t *testing.T, d domain.Decision, reason domain.Reason) {
	t.Helper()
	require.Equal(t, domain.OutcomeDenied, d.Outcome, "decision: %+v", d)
	require.Equal(t, reason, d.Reason)
}
