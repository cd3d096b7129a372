package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
)

type identitiesRepo struct {
	db  dbtx
	now func() time.Time
}

func (r *identitiesRepo) UserExists(ctx context.Context, userID string) (domain.UserLookup, error) {
	var locked bool
	err := r.db.QueryRowContext(ctx,
		`SELECT locked FROM identities WHERE user_id = ?`, userID,
	).Scan(&locked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.UserUnknown, nil
	case err != nil:
		return domain.UserUnknown, err
	case locked:
		return domain.UserDisabled, nil
	default:
		return domain.UserExists, nil
	}
}

func (r *identitiesRepo) CreateUser(ctx context.Context, userID string, suk, vuk []byte) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (user_id, suk, vuk, locked, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, suk, vuk, now, now,
	)
	if err != nil {
		return err
	}
	return requireRow(res, store.ErrAlreadyExists)
}

func (r *identitiesRepo) GetUserSUK(ctx context.Context, userID string) ([]byte, error) {
	var suk []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT suk FROM identities WHERE user_id = ?`, userID,
	).Scan(&suk)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return suk, nil
}

func (r *identitiesRepo) GetUserVUK(ctx context.Context, userID string) ([]byte, error) {
	var vuk []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT vuk FROM identities WHERE user_id = ?`, userID,
	).Scan(&vuk)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return vuk, nil
}

func (r *identitiesRepo) UpdateUserID(ctx context.Context, newUserID string, suk, vuk []byte, oldUserID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities
		 SET user_id = ?, suk = ?, vuk = ?, updated_at = ?
		 WHERE user_id = ?
		   AND (? = user_id OR NOT EXISTS (SELECT 1 FROM identities WHERE user_id = ?))`,
		newUserID, suk, vuk, r.now(), oldUserID, newUserID, newUserID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 1 {
		return nil
	}

	// Nothing changed: either the old id is gone or the new one is taken.
	lookup, err := r.UserExists(ctx, oldUserID)
	if err != nil {
		return err
	}
	if lookup == domain.UserUnknown {
		return store.ErrNotFound
	}
	return store.ErrAlreadyExists
}

func (r *identitiesRepo) LockUser(ctx context.Context, userID string) error {
	return r.setLocked(ctx, userID, true)
}

func (r *identitiesRepo) UnlockUser(ctx context.Context, userID string) error {
	return r.setLocked(ctx, userID, false)
}

func (r *identitiesRepo) setLocked(ctx context.Context, userID string, locked bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET locked = ?, updated_at = ? WHERE user_id = ?`,
		locked, r.now(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, store.ErrNotFound)
}

func (r *identitiesRepo) RemoveUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res, store.ErrNotFound)
}

func (r *identitiesRepo) GetIdentity(ctx context.Context, userID string) (domain.Identity, error) {
	var id domain.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, suk, vuk, locked, created_at, updated_at
		 FROM identities WHERE user_id = ?`, userID,
	).Scan(&id.UserID, &id.SUK, &id.VUK, &id.Locked, &id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return id, nil
}

// requireRow returns errNone when res touched no rows.
func requireRow(res sql.Result, errNone error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNone
	}
	return nil
}
