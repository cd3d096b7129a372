package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
)

type signingKeysRepo struct {
	db  dbtx
	now func() time.Time
}

const signingKeyColumns = `id, kid, algorithm, private_key_encrypted, created_at, retired_at, expires_at`

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, key domain.SigningKey) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO signing_keys (`+signingKeyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT DO NOTHING`,
		key.ID, key.Kid, key.Algorithm, key.PrivateKeyEncrypted,
		key.CreatedAt.UTC(), mapOptionalTime(key.RetiredAt), key.ExpiresAt.UTC(),
	)
	if err != nil {
		return err
	}
	return requireRow(res, store.ErrAlreadyExists)
}

func (r *signingKeysRepo) GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+signingKeyColumns+` FROM signing_keys WHERE kid = $1`, kid)
	key, err := scanSigningKey(row)
	if err != nil {
		return domain.SigningKey{}, mapNotFound(err)
	}
	return key, nil
}

func (r *signingKeysRepo) ListActiveSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx,
		`SELECT `+signingKeyColumns+` FROM signing_keys
		 WHERE retired_at IS NULL AND expires_at > $1
		 ORDER BY created_at DESC`, r.now())
}

func (r *signingKeysRepo) ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx,
		`SELECT `+signingKeyColumns+` FROM signing_keys
		 WHERE expires_at > $1
		 ORDER BY created_at DESC`, r.now())
}

func (r *signingKeysRepo) list(ctx context.Context, query string, args ...any) ([]domain.SigningKey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.SigningKey
	for rows.Next() {
		key, err := scanSigningKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE signing_keys SET retired_at = COALESCE(retired_at, $1) WHERE kid = $2`,
		r.now(), kid)
	if err != nil {
		return err
	}
	return requireRow(res, store.ErrNotFound)
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM signing_keys WHERE expires_at <= $1`, r.now())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSigningKey(row rowScanner) (domain.SigningKey, error) {
	var (
		key     domain.SigningKey
		retired sql.NullTime
	)
	err := row.Scan(&key.ID, &key.Kid, &key.Algorithm, &key.PrivateKeyEncrypted,
		&key.CreatedAt, &retired, &key.ExpiresAt)
	if err != nil {
		return domain.SigningKey{}, err
	}
	key.RetiredAt = mapNullTimePtr(retired)
	return key, nil
}
