package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
	"github.com/aussiebroadwan/sqrl/pkg/httpx"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
)

// LoginHandler serves POST /sqrl/login.
type LoginHandler struct {
	LoginService *service.LoginService

	// CookieName, when set, receives the session ticket on success.
	CookieName string
}

// ServeHTTP godoc
//
//	@Summary		Submit a signed login
//	@Description	Verifies the identity key signature over the nut and path and returns the decision.
//	@Description	Denials are decisions, not errors: the response is 200 with outcome "denied" and a reason.
//	@Description	On "authenticated" the session ticket is returned and set as a cookie.
//	@Tags			SQRL
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sqrlsdk.LoginRequest	true	"Signed ident command"
//	@Success		200		{object}	sqrlsdk.LoginResponse	"outcome, reason, user_id, ticket, question"
//	@Failure		400		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Router			/sqrl/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var body sqrlsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	req := service.LoginRequest{
		Nut:     body.Nut,
		Path:    body.Path,
		IDK:     body.IDK,
		WantSUK: body.WantSUK,
	}
	err := decodeFields(
		map[string]string{"ids": body.Signature, "suk": body.SUK, "vuk": body.VUK},
		map[string]*[]byte{"ids": &req.Signature, "suk": &req.SUK, "vuk": &req.VUK},
	)
	if err != nil {
		sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	d, err := h.LoginService.HandleLoginRequest(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrMalformedRequest) {
			sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
		sqrlsdk.ErrServerError.WriteError(w)
		return
	}

	if d.Outcome == domain.OutcomeAuthenticated && d.Ticket != nil && h.CookieName != "" {
		setSessionCookie(w, r, h.CookieName, d.Ticket)
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse(d))
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, name string, t *domain.Ticket) {
	path := "/"
	if t.Scope != "" {
		path = t.Scope
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    t.Token,
		Path:     path,
		Expires:  t.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
