package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
	"github.com/aussiebroadwan/sqrl/pkg/httpx"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
)

// SessionHandler godoc
//
//	@Summary		Describe the current session
//	@Description	Returns the claims of the session ticket presented as a bearer token or cookie.
//	@Tags			Session
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	sqrlsdk.SessionResponse	"user_id, role, scope, sid, expires_at"
//	@Failure		401	"Missing or invalid session"
//	@Router			/v1/session [get].
func SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext(r.Context())
		if !ok {
			sqrlsdk.ErrUnauthorized.WriteError(w)
			return
		}

		resp := sqrlsdk.SessionResponse{
			UserID:    claims.Subject,
			Role:      claims.Role,
			Scope:     claims.Scope,
			SessionID: claims.SID,
		}
		if claims.ExpiresAt != nil {
			resp.ExpiresAt = claims.ExpiresAt.Time
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

// AdminHandler serves the administrative lock and unlock endpoints.
type AdminHandler struct {
	IdentityService *service.IdentityService
}

// HandleLock godoc
//
//	@Summary		Lock an identity
//	@Description	Disables logins for the identity without its keys. Requires the admin role.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string							true	"User id (base64url identity key)"
//	@Success		200	{object}	sqrlsdk.AdminIdentityResponse	"user_id, locked"
//	@Failure		401	"Missing or invalid session"
//	@Failure		403	{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/identities/{id}/lock [post].
func (h *AdminHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, true)
}

// HandleUnlock godoc
//
//	@Summary		Unlock an identity
//	@Description	Re-enables logins for the identity. Requires the admin role.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string							true	"User id (base64url identity key)"
//	@Success		200	{object}	sqrlsdk.AdminIdentityResponse	"user_id, locked"
//	@Failure		401	"Missing or invalid session"
//	@Failure		403	{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/admin/identities/{id}/unlock [post].
func (h *AdminHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, false)
}

func (h *AdminHandler) setLocked(w http.ResponseWriter, r *http.Request, locked bool) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := r.PathValue("id")

	ident, err := h.IdentityService.SetLocked(ctx, userID, locked)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			sqrlsdk.ErrNotFound.WriteError(w)
			return
		}
		log.Error("admin lock change failed", "user_id", userID, "locked", locked, "err", err)
		sqrlsdk.ErrServerError.WriteError(w)
		return
	}

	log.Info("identity lock changed by admin",
		"user_id", userID,
		"locked", ident.Locked,
		"admin", httpx.SubjectFromContext(ctx),
	)
	httpx.WriteJSON(w, http.StatusOK, sqrlsdk.AdminIdentityResponse{
		UserID: ident.UserID,
		Locked: ident.Locked,
	})
}
