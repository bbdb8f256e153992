// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/forum-polls/middleware"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/polls"
)

type ResponseHandler struct {
	svc *polls.Service
}

func NewResponseHandler(svc *polls.Service) *ResponseHandler {
	return &ResponseHandler{svc: svc}
}

// submitStatus is 201 for a new response and 200 for an update or no-op.
func submitStatus(res models.SubmitResult) int {
	if res.Outcome == models.OutcomeCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}

// SubmitResponse handles POST /posts/{postID}/poll/responses
func (h *ResponseHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var payload models.AnswerPayload
	if err := middleware.DecodeAndValidate(r, &payload); err != nil {
		middleware.WriteError(w, err)
		return
	}

	res, err := h.svc.SubmitResponse(r.Context(), p, r.PathValue("postID"), payload)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, submitStatus(res), res)
}

// GetMyResponse handles GET /posts/{postID}/poll/responses/me
func (h *ResponseHandler) GetMyResponse(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	resp, err := h.svc.GetMyResponse(r.Context(), p, r.PathValue("postID"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// ReplaceSelections handles PUT /posts/{postID}/poll/responses/{responseID}/selections
func (h *ResponseHandler) ReplaceSelections(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var payload models.AnswerPayload
	if err := middleware.DecodeAndValidate(r, &payload); err != nil {
		middleware.WriteError(w, err)
		return
	}

	res, err := h.svc.ReplaceSelections(r.Context(), p, r.PathValue("postID"), r.PathValue("responseID"), payload)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}

// AppendSelection handles POST /posts/{postID}/poll/responses/{responseID}/selections
func (h *ResponseHandler) AppendSelection(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var in models.SelectionInput
	if err := middleware.DecodeAndValidate(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	row, err := h.svc.AppendSelection(r.Context(), p, r.PathValue("postID"), r.PathValue("responseID"), in)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, row)
}

// EditSelection handles PATCH /posts/{postID}/poll/responses/{responseID}/selections/{selectionID}
func (h *ResponseHandler) EditSelection(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var patch models.SelectionPatch
	if err := middleware.DecodeAndValidate(r, &patch); err != nil {
		middleware.WriteError(w, err)
		return
	}

	resp, err := h.svc.EditSelection(r.Context(), p,
		r.PathValue("postID"), r.PathValue("responseID"), r.PathValue("selectionID"), patch)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// WithdrawResponse handles POST /posts/{postID}/poll/responses/{responseID}/withdraw
func (h *ResponseHandler) WithdrawResponse(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	resp, err := h.svc.WithdrawResponse(r.Context(), p, r.PathValue("postID"), r.PathValue("responseID"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// InvalidateResponse handles POST /posts/{postID}/poll/responses/{responseID}/invalidate
func (h *ResponseHandler) InvalidateResponse(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	resp, err := h.svc.InvalidateResponse(r.Context(), p, r.PathValue("postID"), r.PathValue("responseID"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}
