// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/forum-polls/middleware"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/polls"
)

type PollHandler struct {
	svc *polls.Service
}

func NewPollHandler(svc *polls.Service) *PollHandler {
	return &PollHandler{svc: svc}
}

// principal returns the caller resolved by middleware.RequireAuth.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
	}
	return p, ok
}

// GetPoll handles GET /posts/{postID}/poll
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.svc.GetPoll(r.Context(), r.PathValue("postID"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// CreatePoll handles POST /posts/{postID}/poll
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var def models.PollDefinition
	if err := middleware.DecodeAndValidate(r, &def); err != nil {
		middleware.WriteError(w, err)
		return
	}

	poll, err := h.svc.CreatePoll(r.Context(), p, r.PathValue("postID"), def)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, poll)
}

// UpdatePoll handles PATCH /posts/{postID}/poll
func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var patch models.PollPatch
	if err := middleware.DecodeAndValidate(r, &patch); err != nil {
		middleware.WriteError(w, err)
		return
	}

	poll, err := h.svc.UpdatePoll(r.Context(), p, r.PathValue("postID"), patch)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// DeletePoll handles DELETE /posts/{postID}/poll
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeletePoll(r.Context(), p, r.PathValue("postID")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddOption handles POST /posts/{postID}/poll/options
func (h *PollHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var in models.OptionInput
	if err := middleware.DecodeAndValidate(r, &in); err != nil {
		middleware.WriteError(w, err)
		return
	}

	option, err := h.svc.AddOption(r.Context(), p, r.PathValue("postID"), in)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, option)
}

// UpdateOption handles PATCH /posts/{postID}/poll/options/{optionID}
func (h *PollHandler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var patch models.OptionPatch
	if err := middleware.DecodeAndValidate(r, &patch); err != nil {
		middleware.WriteError(w, err)
		return
	}

	option, err := h.svc.UpdateOption(r.Context(), p, r.PathValue("postID"), r.PathValue("optionID"), patch)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, option)
}

// GetResults handles GET /posts/{postID}/poll/results
func (h *PollHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	results, err := h.svc.Results(r.Context(), p, r.PathValue("postID"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, results)
}
