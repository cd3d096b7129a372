package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
	"github.com/aussiebroadwan/sqrl/pkg/httpx"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
)

// IdentityHandler serves POST /sqrl/identity/{cmd}.
type IdentityHandler struct {
	IdentityService *service.IdentityService
}

// ServeHTTP godoc
//
//	@Summary		Run a signed identity command
//	@Description	disable, enable, remove or rekey the caller's account. Every command consumes a nut
//	@Description	and is signed by the identity key. enable, remove and rekey also carry an unlock
//	@Description	request signature checked against the stored verify unlock key.
//	@Tags			SQRL
//	@Accept			json
//	@Produce		json
//	@Param			cmd		path		string							true	"Command"	Enums(disable, enable, remove, rekey)
//	@Param			request	body		sqrlsdk.IdentityCommandRequest	true	"Signed command"
//	@Success		200		{object}	sqrlsdk.IdentityCommandResponse	"outcome, reason, user_id"
//	@Failure		400		{object}	sqrlsdk.ErrorResponse			"error, error_description"
//	@Failure		500		{object}	sqrlsdk.ErrorResponse			"error, error_description"
//	@Router			/sqrl/identity/{cmd} [post].
func (h *IdentityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var body sqrlsdk.IdentityCommandRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	cmd := service.IdentityCommand{
		Command: sqrlsdk.Command(r.PathValue("cmd")),
		Nut:     body.Nut,
		Path:    body.Path,
		IDK:     body.IDK,
		NewIDK:  body.NewIDK,
	}
	err := decodeFields(
		map[string]string{
			"ids":     body.Signature,
			"suk":     body.SUK,
			"vuk":     body.VUK,
			"urs":     body.URS,
			"new_suk": body.NewSUK,
			"new_vuk": body.NewVUK,
			"new_ids": body.NewSignature,
		},
		map[string]*[]byte{
			"ids":     &cmd.Signature,
			"suk":     &cmd.SUK,
			"vuk":     &cmd.VUK,
			"urs":     &cmd.URS,
			"new_suk": &cmd.NewSUK,
			"new_vuk": &cmd.NewVUK,
			"new_ids": &cmd.NewSignature,
		},
	)
	if err != nil {
		sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	d, err := h.IdentityService.ExecuteCommand(ctx, cmd)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownCommand),
			errors.Is(err, service.ErrMalformedRequest):
			sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		default:
			log.Error("identity command failed", "cmd", cmd.Command, "err", err)
			sqrlsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sqrlsdk.IdentityCommandResponse{
		Outcome: string(d.Outcome),
		Reason:  string(d.Reason),
		UserID:  d.UserID,
	})
}
