package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
	"github.com/aussiebroadwan/sqrl/pkg/httpx"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
)

// KeyRotationHandler serves the admin signing key endpoints.
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

// HandleRotate godoc
//
//	@Summary		Rotate ticket signing keys
//	@Description	Activates a new signing key and optionally retires the current ones. Retired keys
//	@Description	keep verifying tickets until they expire. Requires the admin role.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		sqrlsdk.RotateKeyRequest	false	"Rotation options"
//	@Success		200		{object}	sqrlsdk.RotateKeyResponse
//	@Failure		400		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		401		"Missing or invalid session"
//	@Failure		403		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/keys/rotate [post].
func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req sqrlsdk.RotateKeyRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
			return
		}
	}

	res, err := h.KeyRotationService.RotateKey(ctx, req.RetireExisting)
	if err != nil {
		log.Error("signing key rotation failed", "err", err)
		sqrlsdk.ErrServerError.WriteError(w)
		return
	}

	log.Info("signing key rotated",
		"kid", res.NewKey.Kid,
		"retired", len(res.RetiredKeys),
		"active", res.ActiveKeys,
		"admin", httpx.SubjectFromContext(ctx),
	)
	httpx.WriteJSON(w, http.StatusOK, sqrlsdk.RotateKeyResponse{
		NewKey:      keyInfo(res.NewKey),
		RetiredKeys: keyInfos(res.RetiredKeys),
		ActiveKeys:  res.ActiveKeys,
	})
}

// HandleList godoc
//
//	@Summary		List ticket signing keys
//	@Description	Persisted keys including retired ones still in their grace period, or the active
//	@Description	in-memory keys when keys are ephemeral. Requires the admin role.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		sqrlsdk.SigningKeyInfo
//	@Failure		401	"Missing or invalid session"
//	@Failure		403	{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		500	{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/keys [get].
func (h *KeyRotationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	keys, err := h.KeyRotationService.ListSigningKeys(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("listing signing keys failed", "err", err)
		sqrlsdk.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, keyInfos(keys))
}

// HandleRetire godoc
//
//	@Summary		Retire a ticket signing key
//	@Description	Stops the key from signing. Tickets it already signed keep verifying. The last
//	@Description	active key cannot be retired. Requires the admin role.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			kid	path	string	true	"Key id"
//	@Success		204
//	@Failure		401	"Missing or invalid session"
//	@Failure		403	{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		409	{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/keys/{kid}/retire [post].
func (h *KeyRotationHandler) HandleRetire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	kid := r.PathValue("kid")

	err := h.KeyRotationService.RetireKey(ctx, kid)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrKeyNotFound):
		sqrlsdk.ErrNotFound.WriteError(w)
		return
	case errors.Is(err, service.ErrKeyAlreadyRetired),
		errors.Is(err, service.ErrLastSigningKey):
		sqrlsdk.ErrConflict.WithDescription(err.Error()).WriteError(w)
		return
	default:
		log.Error("signing key retirement failed", "kid", kid, "err", err)
		sqrlsdk.ErrServerError.WriteError(w)
		return
	}

	log.Info("signing key retired", "kid", kid, "admin", httpx.SubjectFromContext(ctx))
	w.WriteHeader(http.StatusNoContent)
}

func keyInfo(k domain.SigningKey) sqrlsdk.SigningKeyInfo {
	return sqrlsdk.SigningKeyInfo{
		ID:        k.ID,
		Kid:       k.Kid,
		Algorithm: k.Algorithm,
		CreatedAt: optionalTime(k.CreatedAt),
		RetiredAt: k.RetiredAt,
		ExpiresAt: optionalTime(k.ExpiresAt),
	}
}

func keyInfos(keys []domain.SigningKey) []sqrlsdk.SigningKeyInfo {
	out := make([]sqrlsdk.SigningKeyInfo, len(keys))
	for i, k := range keys {
		out[i] = keyInfo(k)
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
