package memory

import (
	"context"
	"slices"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
)

type signingKeysRepo struct {
	view viewer
}

func (r *signingKeysRepo) CreateSigningKey(_ context.Context, key domain.SigningKey) error {
	return r.view.view(func(d *data) error {
		if _, ok := d.keys[key.Kid]; ok {
			return store.ErrAlreadyExists
		}
		key.PrivateKeyEncrypted = slices.Clone(key.PrivateKeyEncrypted)
		d.keys[key.Kid] = key
		return nil
	})
}

func (r *signingKeysRepo) GetSigningKeyByKid(_ context.Context, kid string) (domain.SigningKey, error) {
	var out domain.SigningKey
	err := r.view.view(func(d *data) error {
		k, ok := d.keys[kid]
		if !ok {
			return store.ErrNotFound
		}
		out = k
		return nil
	})
	return out, err
}

func (r *signingKeysRepo) ListActiveSigningKeys(context.Context) ([]domain.SigningKey, error) {
	now := r.view.clock()
	return r.list(func(k domain.SigningKey) bool { return k.IsActive(now) })
}

func (r *signingKeysRepo) ListAllSigningKeys(context.Context) ([]domain.SigningKey, error) {
	now := r.view.clock()
	return r.list(func(k domain.SigningKey) bool { return !k.IsExpired(now) })
}

func (r *signingKeysRepo) list(keep func(domain.SigningKey) bool) ([]domain.SigningKey, error) {
	var out []domain.SigningKey
	err := r.view.view(func(d *data) error {
		for _, k := range d.keys {
			if keep(k) {
				out = append(out, k)
			}
		}
		return nil
	})
	// Newest first, matching the SQL drivers.
	slices.SortFunc(out, func(a, b domain.SigningKey) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, err
}

func (r *signingKeysRepo) RetireSigningKey(_ context.Context, kid string) error {
	now := r.view.clock()
	return r.view.view(func(d *data) error {
		k, ok := d.keys[kid]
		if !ok {
			return store.ErrNotFound
		}
		if k.RetiredAt == nil {
			k.RetiredAt = &now
		}
		d.keys[kid] = k
		return nil
	})
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(context.Context) error {
	now := r.view.clock()
	return r.view.view(func(d *data) error {
		for kid, k := range d.keys {
			if k.IsExpired(now) {
				delete(d.keys, kid)
			}
		}
		return nil
	})
}
