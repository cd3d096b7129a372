package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
)

var (
	ErrNutNotFound    = errors.New("nut not found")
	ErrNutExpired     = errors.New("nut expired")
	ErrNutConsumed    = errors.New("nut already consumed")
	ErrRegistryFull   = errors.New("nut registry is full")
	ErrPathNotAllowed = errors.New("path is not a login path")
)

const (
	nutShards = 32

	DefaultCheckInterval = time.Second
	DefaultNutMultiplier = 180
	DefaultMaxNuts       = 100_000
)

// QuestionResolver supplies the Ask question for a login on path, or nil
// when the host has nothing to ask.
type QuestionResolver func(ctx context.Context, path, nut string) *domain.AskQuestion

// NutRegistryConfig sizes the registry.
type NutRegistryConfig struct {
	// CheckInterval is how often clients are expected to poll.
	CheckInterval time.Duration

	// Multiplier times CheckInterval is the nut lifetime.
	Multiplier int

	// MaxNuts caps live nuts plus tombstones.
	MaxNuts int
}

func (c *NutRegistryConfig) normalise() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.Multiplier <= 0 {
		c.Multiplier = DefaultNutMultiplier
	}
	if c.MaxNuts <= 0 {
		c.MaxNuts = DefaultMaxNuts
	}
}

// Lifetime is CheckInterval × Multiplier.
func (c NutRegistryConfig) Lifetime() time.Duration {
	return c.CheckInterval * time.Duration(c.Multiplier)
}

// NutRegistryOption customizes registry construction.
type NutRegistryOption func(*NutRegistry)

// WithNutClock overrides the registry clock, mostly for tests.
func WithNutClock(now func() time.Time) NutRegistryOption {
	return func(r *NutRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithAskQuestions attaches a question at issuance to nuts whose path is
// Ask-eligible under rules.
func WithAskQuestions(rules *PathRules, resolve QuestionResolver) NutRegistryOption {
	return func(r *NutRegistry) {
		r.rules = rules
		r.resolve = resolve
	}
}

type nutEntry struct {
	mu        sync.Mutex
	nut       domain.Nut
	delivered bool // Decision has been handed to a login continuation
	removed   bool
}

type nutShard struct {
	mu sync.RWMutex
	m  map[string]*nutEntry
}

// NutRegistry is the in-memory table of outstanding nuts. Lookups are O(1);
// every mutation of a nut happens under that nut's own lock so concurrent
// consumers see exactly one winner.
type NutRegistry struct {
	cfg    NutRegistryConfig
	shards [nutShards]nutShard
	size   atomic.Int64
	now    func() time.Time

	rules   *PathRules
	resolve QuestionResolver
}

func NewNutRegistry(cfg NutRegistryConfig, opts ...NutRegistryOption) *NutRegistry {
	cfg.normalise()
	r := &NutRegistry{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
	for i := range r.shards {
		r.shards[i].m = make(map[string]*nutEntry)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the normalised configuration.
func (r *NutRegistry) Config() NutRegistryConfig { return r.cfg }

func (r *NutRegistry) shard(token string) *nutShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return &r.shards[h.Sum32()%nutShards]
}

// IssueRequest describes the page a nut is being issued for.
type IssueRequest struct {
	Path string
}

// Issue creates a fresh nut for req.Path.
func (r *NutRegistry) Issue(ctx context.Context, req IssueRequest) (domain.Nut, error) {
	path := normalisePath(req.Path)
	if r.rules != nil && !r.rules.Allowed(path) {
		return domain.Nut{}, ErrPathNotAllowed
	}
	// Reserve the slot up front so concurrent issuers can't overshoot.
	if r.size.Add(1) > int64(r.cfg.MaxNuts) {
		r.size.Add(-1)
		return domain.Nut{}, ErrRegistryFull
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		r.size.Add(-1)
		return domain.Nut{}, err
	}

	now := r.now()
	n := domain.Nut{
		Token:     token,
		Path:      path,
		CreatedAt: now,
		ExpiresAt: now.Add(r.cfg.Lifetime()),
		State:     domain.StateIssued,
	}

	if r.resolve != nil && r.rules != nil {
		if rule, ok := r.rules.Match(path); ok && rule.AskEligible {
			if q := r.resolve(ctx, path, token); q.Valid() {
				n.Question = q.Clone()
			}
		}
	}

	// The nut is handed to the client as soon as it is stored.
	if err := setState(&n, domain.StateAwaitingSignature); err != nil {
		r.size.Add(-1)
		return domain.Nut{}, err
	}

	s := r.shard(token)
	s.mu.Lock()
	s.m[token] = &nutEntry{nut: n}
	s.mu.Unlock()

	slogx.FromContext(ctx).Debug("sqrl: nut issued",
		"nut", cryptox.FingerprintToken(token),
		"path", path,
		"ask", n.Question != nil,
	)
	return snapshot(n), nil
}

// Lookup returns a copy of the nut. Tombstones come back alongside
// ErrNutConsumed so callers can inspect the recorded decision.
func (r *NutRegistry) Lookup(token string) (domain.Nut, error) {
	e := r.entry(token)
	if e == nil {
		return domain.Nut{}, ErrNutNotFound
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return domain.Nut{}, ErrNutNotFound
	}
	if e.nut.Expired(r.now()) {
		e.mu.Unlock()
		r.evict(token)
		return domain.Nut{}, ErrNutExpired
	}
	n := snapshot(e.nut)
	e.mu.Unlock()

	if n.Consumed {
		return n, ErrNutConsumed
	}
	return n, nil
}

// Consume marks a live nut as used. Exactly one of any number of concurrent
// callers gets true.
//
// The engine never authorizes anything through a nut consumed this way: it
// becomes a denied tombstone, Ask polls read it as resolved and not accepted,
// and later logins on it get Replay.
func (r *NutRegistry) Consume(token string) bool {
	_, err := r.update(token, false, func(e *nutEntry) error {
		if e.nut.Consumed {
			return ErrNutConsumed
		}
		if err := enterVerifying(&e.nut); err != nil {
			return err
		}
		if err := setState(&e.nut, domain.StateDenied); err != nil {
			return err
		}
		d := domain.Denied(domain.ReasonReplay)
		e.nut.Consumed = true
		e.nut.Decision = &d
		e.delivered = true
		return nil
	})
	return err == nil
}

// claim consumes a nut whose Ask answer was accepted. The decision follows
// through settle once the session is emitted.
func (r *NutRegistry) claim(token string) error {
	_, err := r.update(token, false, func(e *nutEntry) error {
		if e.nut.Consumed {
			return ErrNutConsumed
		}
		if e.nut.State != domain.StateAwaitingAskResponse {
			return ErrAskNotPending
		}
		e.nut.Consumed = true
		return nil
	})
	return err
}

// AttachQuestion sets the Ask question on a nut nobody has signed for yet.
func (r *NutRegistry) AttachQuestion(token string, q *domain.AskQuestion) bool {
	if !q.Valid() {
		return false
	}
	_, err := r.update(token, false, func(e *nutEntry) error {
		if e.nut.Consumed {
			return ErrNutConsumed
		}
		switch e.nut.State {
		case domain.StateIssued, domain.StateAwaitingSignature:
		default:
			return domain.ErrInvalidTransition
		}
		e.nut.Question = q.Clone()
		return nil
	})
	return err == nil
}

// Sweep evicts every nut expired at now and returns how many went.
func (r *NutRegistry) Sweep(now time.Time) int {
	removed := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for token, e := range s.m {
			e.mu.Lock()
			if e.nut.Expired(now) {
				e.removed = true
				delete(s.m, token)
				removed++
			}
			e.mu.Unlock()
		}
		s.mu.Unlock()
	}
	r.size.Add(-int64(removed))
	return removed
}

// NutStats is a point-in-time count of the registry contents.
type NutStats struct {
	Live           int
	Tombstones     int
	AwaitingAnswer int
}

// Stats walks the registry. It is O(n) and meant for diagnostics only.
func (r *NutRegistry) Stats() NutStats {
	var st NutStats
	now := r.now()
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, e := range s.m {
			e.mu.Lock()
			switch {
			case e.nut.Expired(now):
			case e.nut.Consumed:
				st.Tombstones++
			default:
				st.Live++
				if e.nut.State == domain.StateAwaitingAskResponse && e.nut.Button == 0 {
					st.AwaitingAnswer++
				}
			}
			e.mu.Unlock()
		}
		s.mu.RUnlock()
	}
	return st
}

// bindUser records a verified identity on the nut and parks it waiting for
// the answer to q.
func (r *NutRegistry) bindUser(token, userID string, q *domain.AskQuestion) (domain.Nut, error) {
	return r.update(token, false, func(e *nutEntry) error {
		if e.nut.Consumed {
			return ErrNutConsumed
		}
		if err := enterVerifying(&e.nut); err != nil {
			return err
		}
		if err := setState(&e.nut, domain.StateAwaitingAskResponse); err != nil {
			return err
		}
		e.nut.UserID = userID
		e.nut.Question = q.Clone()
		return nil
	})
}

// consumeFor is Consume for a verified identity on the direct login path.
func (r *NutRegistry) consumeFor(token, userID string) error {
	_, err := r.update(token, false, func(e *nutEntry) error {
		if e.nut.Consumed {
			return ErrNutConsumed
		}
		if e.nut.State == domain.StateAwaitingAskResponse {
			return domain.ErrInvalidTransition
		}
		if err := enterVerifying(&e.nut); err != nil {
			return err
		}
		e.nut.Consumed = true
		e.nut.UserID = userID
		return nil
	})
	return err
}

// recordAnswer stores the pressed button. Only the first answer counts.
func (r *NutRegistry) recordAnswer(token string, button int) (domain.Nut, error) {
	return r.update(token, false, func(e *nutEntry) error {
		switch {
		case e.nut.Consumed || e.nut.Button != 0:
			return ErrAlreadyAnswered
		case e.nut.Question == nil:
			return ErrNoQuestion
		case e.nut.State != domain.StateAwaitingAskResponse:
			return ErrAskNotPending
		case !e.nut.Question.HasButton(button):
			return ErrInvalidButton
		}
		e.nut.Button = button
		return nil
	})
}

// retire consumes the nut with a terminal denial. Later lookups report
// ErrNutConsumed and carry d.
func (r *NutRegistry) retire(token string, d domain.Decision, delivered bool) error {
	_, err := r.update(token, false, func(e *nutEntry) error {
		if e.nut.Consumed {
			return ErrNutConsumed
		}
		if err := enterVerifying(&e.nut); err != nil {
			return err
		}
		if err := setState(&e.nut, domain.StateDenied); err != nil {
			return err
		}
		e.nut.Consumed = true
		e.nut.Decision = &d
		e.delivered = delivered
		return nil
	})
	return err
}

// settle records the outcome on a nut this caller already consumed. It
// tolerates expiry so a slow emitter can't strand the decision.
func (r *NutRegistry) settle(token string, d domain.Decision, delivered bool) error {
	_, err := r.update(token, true, func(e *nutEntry) error {
		if !e.nut.Consumed || e.nut.Decision != nil {
			return domain.ErrInvalidTransition
		}
		to := domain.StateDenied
		if d.Outcome == domain.OutcomeAuthenticated {
			to = domain.StateAuthenticated
		}
		if err := setState(&e.nut, to); err != nil {
			return err
		}
		e.nut.Decision = &d
		e.delivered = delivered
		return nil
	})
	return err
}

// takeDecision hands an undelivered decision to the identity it belongs to,
// once.
func (r *NutRegistry) takeDecision(token, userID string) (domain.Decision, error) {
	var d domain.Decision
	_, err := r.update(token, false, func(e *nutEntry) error {
		if e.nut.Decision == nil || e.delivered || e.nut.UserID != userID {
			return ErrNutConsumed
		}
		e.delivered = true
		d = *e.nut.Decision
		return nil
	})
	return d, err
}

func (r *NutRegistry) entry(token string) *nutEntry {
	s := r.shard(token)
	s.mu.RLock()
	e := s.m[token]
	s.mu.RUnlock()
	return e
}

// update runs fn under the nut lock after the liveness checks.
func (r *NutRegistry) update(token string, allowExpired bool, fn func(e *nutEntry) error) (domain.Nut, error) {
	e := r.entry(token)
	if e == nil {
		return domain.Nut{}, ErrNutNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return domain.Nut{}, ErrNutNotFound
	}
	if !allowExpired && e.nut.Expired(r.now()) {
		return domain.Nut{}, ErrNutExpired
	}
	if err := fn(e); err != nil {
		return domain.Nut{}, err
	}
	return snapshot(e.nut), nil
}

// evict drops token if it is still expired once both locks are held.
func (r *NutRegistry) evict(token string) {
	s := r.shard(token)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[token]
	if !ok {
		return
	}
	e.mu.Lock()
	if e.nut.Expired(r.now()) {
		e.removed = true
		delete(s.m, token)
		r.size.Add(-1)
	}
	e.mu.Unlock()
}

func enterVerifying(n *domain.Nut) error {
	switch n.State {
	case domain.StateVerifying, domain.StateAwaitingAskResponse:
		return nil
	}
	return setState(n, domain.StateVerifying)
}

func setState(n *domain.Nut, to domain.NutState) error {
	if !domain.CanTransition(n.State, to) {
		return domain.ErrInvalidTransition
	}
	n.State = to
	return nil
}

func snapshot(n domain.Nut) domain.Nut {
	n.Question = n.Question.Clone()
	if n.Decision != nil {
		d := *n.Decision
		d.Question = d.Question.Clone()
		n.Decision = &d
	}
	return n
}
