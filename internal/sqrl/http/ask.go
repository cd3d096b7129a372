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

// AskHandler serves the Ask poll and answer endpoints.
type AskHandler struct {
	AskService *service.AskService
}

// HandlePoll godoc
//
//	@Summary		Poll an Ask question
//	@Description	Reports whether the question attached to a nut is still pending, has been resolved,
//	@Description	or expired. Unknown nuts read as expired.
//	@Tags			Ask
//	@Produce		json
//	@Param			nut	path		string						true	"Nut"
//	@Success		200	{object}	sqrlsdk.AskStatusResponse	"state, accepted"
//	@Router			/sqrl/ask/{nut} [get].
func (h *AskHandler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	st, err := h.AskService.PollAskStatus(ctx, r.PathValue("nut"))
	if err != nil {
		slogx.FromContext(ctx).Error("ask poll failed", "err", err)
		sqrlsdk.ErrServerError.WriteError(w)
		return
	}

	resp := sqrlsdk.AskStatusResponse{State: string(st.State)}
	if st.State == domain.AskResolved {
		accepted := st.Accepted
		resp.Accepted = &accepted
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleSubmit godoc
//
//	@Summary		Answer an Ask question
//	@Description	Records the pressed button. Only the first answer counts.
//	@Tags			Ask
//	@Accept			json
//	@Param			nut		path	string						true	"Nut"
//	@Param			request	body	sqrlsdk.AskAnswerRequest	true	"Button 1 or 2"
//	@Success		202		"Answer accepted"
//	@Failure		400		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		404		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	sqrlsdk.ErrorResponse	"error, error_description"
//	@Router			/sqrl/ask/{nut} [post].
func (h *AskHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req sqrlsdk.AskAnswerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		sqrlsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	err := h.AskService.SubmitAskResponse(ctx, r.PathValue("nut"), req.Button)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidButton):
			sqrlsdk.ErrInvalidButton.WriteError(w)
		case errors.Is(err, service.ErrNoQuestion),
			errors.Is(err, service.ErrAskNotPending),
			errors.Is(err, service.ErrAlreadyAnswered):
			sqrlsdk.ErrNotPending.WithDescription(err.Error()).WriteError(w)
		case errors.Is(err, service.ErrNutNotFound),
			errors.Is(err, service.ErrNutExpired),
			errors.Is(err, service.ErrNutConsumed):
			sqrlsdk.ErrInvalidNut.WriteError(w)
		default:
			log.Error("ask answer failed", "err", err)
			sqrlsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusAccepted)
}
