package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
	"github.com/aussiebroadwan/sqrl/pkg/httpx"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
)

var errRegistryFull = &sqrlsdk.APIError{
	StatusCode:  http.StatusServiceUnavailable,
	Code:        "temporarily_unavailable",
	Description: "too many logins in flight, try again shortly",
}

// NutHandler serves POST /sqrl/nut.
type NutHandler struct {
	Nuts *service.NutRegistry
}

// ServeHTTP godoc
//
//	@Summary		Issue a nut
//	@Description	Issues a single-use challenge bound to the login page path. On Ask-eligible paths
//	@Description	the question the client should show is returned alongside.
//	@Tags			SQRL
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sqrlsdk.NutRequest		true	"Login page path"
//	@Success		201		{object}	sqrlsdk.NutResponse		"nut, expires_in, check_ms, question"
//	@Failure		400		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		503		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Router			/sqrl/nut [post].
func (h *NutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req sqrlsdk.NutRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}
	if !strings.HasPrefix(req.Path, "/") {
		sqrlsdk.ErrInvalidRequest.WithDescription("path must be absolute").WriteError(w)
		return
	}

	nut, err := h.Nuts.Issue(ctx, service.IssueRequest{Path: req.Path})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPathNotAllowed):
			sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		case errors.Is(err, service.ErrRegistryFull):
			log.Warn("nut registry full")
			errRegistryFull.WriteError(w)
		default:
			log.Error("issue nut failed", "err", err)
			sqrlsdk.ErrServerError.WriteError(w)
		}
		return
	}

	cfg := h.Nuts.Config()
	httpx.WriteJSON(w, http.StatusCreated, sqrlsdk.NutResponse{
		Nut:       nut.Token,
		ExpiresIn: int(nut.ExpiresAt.Sub(nut.CreatedAt).Seconds()),
		CheckMS:   int(cfg.CheckInterval.Milliseconds()),
		Question:  questionResponse(nut.Question),
	})
}
