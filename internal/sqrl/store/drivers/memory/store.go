// Package memory is a process-local Store for demos and tests. Nothing
// survives a restart.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory: transaction already finished")

type data struct {
	identities map[string]domain.Identity
	keys       map[string]domain.SigningKey
}

func (d *data) clone() *data {
	cp := &data{
		identities: make(map[string]domain.Identity, len(d.identities)),
		keys:       make(map[string]domain.SigningKey, len(d.keys)),
	}
	for k, v := range d.identities {
		v.SUK = slices.Clone(v.SUK)
		v.VUK = slices.Clone(v.VUK)
		cp.identities[k] = v
	}
	for k, v := range d.keys {
		cp.keys[k] = v
	}
	return cp
}

type Store struct {
	mu  sync.Mutex
	d   *data
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		d: &data{
			identities: make(map[string]domain.Identity),
			keys:       make(map[string]domain.SigningKey),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Identities() store.Identities { return &identitiesRepo{view: s} }
func (s *Store) SigningKeys() store.SigningKeys { return &signingKeysRepo{view: s} }

func (s *Store) ApplyMigrations(context.Context) error { return nil }
func (s *Store) Close() error                          { return nil }
func (s *Store) Ping(context.Context) error            { return nil }

// Tx holds the store lock until Commit or Rollback. Writes go to a copy that
// replaces the live data on Commit.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &txStore{parent: s, d: s.d.clone()}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// view runs fn with exclusive access to the live data.
func (s *Store) view(fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.d)
}

func (s *Store) clock() time.Time { return s.now() }

type txStore struct {
	parent *Store
	d      *data
	done   bool
}

func (t *txStore) view(fn func(d *data) error) error {
	if t.done {
		return ErrTxDone
	}
	return fn(t.d)
}

func (t *txStore) clock() time.Time { return t.parent.now() }

func (t *txStore) Identities() store.Identities { return &identitiesRepo{view: t} }
func (t *txStore) SigningKeys() store.SigningKeys { return &signingKeysRepo{view: t} }

func (t *txStore) ApplyMigrations(context.Context) error { return nil }
func (t *txStore) Close() error                          { return nil }
func (t *txStore) Ping(context.Context) error            { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, ErrTxDone }
func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error {
	return ErrTxDone
}

func (t *txStore) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.parent.d = t.d
	t.parent.mu.Unlock()
	return nil
}

func (t *txStore) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.parent.mu.Unlock()
	return nil
}

type viewer interface {
	view(fn func(d *data) error) error
	clock() time.Time
}
