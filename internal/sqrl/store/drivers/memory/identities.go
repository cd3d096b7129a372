package memory

import (
	"context"
	"slices"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
)

type identitiesRepo struct {
	view viewer
}

func (r *identitiesRepo) UserExists(_ context.Context, userID string) (domain.UserLookup, error) {
	res := domain.UserUnknown
	err := r.view.view(func(d *data) error {
		id, ok := d.identities[userID]
		switch {
		case !ok:
			res = domain.UserUnknown
		case id.Locked:
			res = domain.UserDisabled
		default:
			res = domain.UserExists
		}
		return nil
	})
	return res, err
}

func (r *identitiesRepo) CreateUser(_ context.Context, userID string, suk, vuk []byte) error {
	now := r.view.clock()
	return r.view.view(func(d *data) error {
		if _, ok := d.identities[userID]; ok {
			return store.ErrAlreadyExists
		}
		d.identities[userID] = domain.Identity{
			UserID:    userID,
			SUK:       slices.Clone(suk),
			VUK:       slices.Clone(vuk),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	})
}

func (r *identitiesRepo) GetUserSUK(ctx context.Context, userID string) ([]byte, error) {
	id, err := r.GetIdentity(ctx, userID)
	if err != nil {
		return nil, err
	}
	return id.SUK, nil
}

func (r *identitiesRepo) GetUserVUK(ctx context.Context, userID string) ([]byte, error) {
	id, err := r.GetIdentity(ctx, userID)
	if err != nil {
		return nil, err
	}
	return id.VUK, nil
}

func (r *identitiesRepo) UpdateUserID(_ context.Context, newUserID string, suk, vuk []byte, oldUserID string) error {
	now := r.view.clock()
	return r.view.view(func(d *data) error {
		id, ok := d.identities[oldUserID]
		if !ok {
			return store.ErrNotFound
		}
		if _, taken := d.identities[newUserID]; taken && newUserID != oldUserID {
			return store.ErrAlreadyExists
		}
		delete(d.identities, oldUserID)
		id.UserID = newUserID
		id.SUK = slices.Clone(suk)
		id.VUK = slices.Clone(vuk)
		id.UpdatedAt = now
		d.identities[newUserID] = id
		return nil
	})
}

func (r *identitiesRepo) LockUser(_ context.Context, userID string) error {
	return r.setLocked(userID, true)
}

func (r *identitiesRepo) UnlockUser(_ context.Context, userID string) error {
	return r.setLocked(userID, false)
}

func (r *identitiesRepo) setLocked(userID string, locked bool) error {
	now := r.view.clock()
	return r.view.view(func(d *data) error {
		id, ok := d.identities[userID]
		if !ok {
			return store.ErrNotFound
		}
		id.Locked = locked
		id.UpdatedAt = now
		d.identities[userID] = id
		return nil
	})
}

func (r *identitiesRepo) RemoveUser(_ context.Context, userID string) error {
	return r.view.view(func(d *data) error {
		if _, ok := d.identities[userID]; !ok {
			return store.ErrNotFound
		}
		delete(d.identities, userID)
		return nil
	})
}

func (r *identitiesRepo) GetIdentity(_ context.Context, userID string) (domain.Identity, error) {
	var out domain.Identity
	err := r.view.view(func(d *data) error {
		id, ok := d.identities[userID]
		if !ok {
			return store.ErrNotFound
		}
		out = id
		out.SUK = slices.Clone(id.SUK)
		out.VUK = slices.Clone(id.VUK)
		return nil
	})
	return out, err
}
