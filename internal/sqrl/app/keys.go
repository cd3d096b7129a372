package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/store"
	"github.com/aussiebroadwan/sqrl/pkg/cryptox"
	"github.com/aussiebroadwan/sqrl/pkg/jwtx"
)

// InitSessionKeys creates the KeyManager that signs session tickets. The
// returned encrypter is nil for ephemeral keys.
//
// Storage modes:
//   - "ephemeral": Keys are generated on startup and stored only in memory.
//     All existing tickets become invalid when the service restarts.
//   - "persistent": Keys are stored in the database, sealed with the master
//     key. Tickets survive restarts.
func InitSessionKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, *cryptox.KeyEncrypter, error) {
	opts := jwtx.KeyManagerOptions{
		Issuer:  cfg.Issuer,
		NumKeys: cfg.NumKeys,
	}

	switch cfg.KeyStorageMode {
	case "persistent":
		enc, ephemeral, err := cryptox.LoadKeyEncrypter(cfg.MasterKeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load master key: %w", err)
		}
		if ephemeral {
			logger.Warn("no master key configured, persisted signing keys will be unreadable after restart",
				"env", cryptox.MasterKeyEnv,
			)
		}

		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			KeyManagerOptions: opts,
			Store:             store.KeyStoreAdapter{Keys: db.SigningKeys()},
			Encrypter:         enc,
			GracePeriod:       cfg.KeyGracePeriod,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded/generated",
			"num_keys", km.NumSigners(),
			"issuer", cfg.Issuer,
		)
		return km, enc, nil

	case "ephemeral", "":
		km, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("generated ephemeral signing keys",
			"num_keys", km.NumSigners(),
			"issuer", cfg.Issuer,
		)
		logger.Warn("all existing session tickets are now invalid due to key rotation on startup")
		return km, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown key storage mode %q", cfg.KeyStorageMode)
	}
}
