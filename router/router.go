// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/forum-polls/cliparse"
	"github.com/danielhkuo/forum-polls/handlers"
	"github.com/danielhkuo/forum-polls/metrics"
	"github.com/danielhkuo/forum-polls/middleware"
	"github.com/danielhkuo/forum-polls/polls"
)

func NewRouter(svc *polls.Service, cfg cliparse.Config, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	pollHandler := handlers.NewPollHandler(svc)
	responseHandler := handlers.NewResponseHandler(svc)

	public := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.WithMetrics(pattern, middleware.WithLogging(h)))
	}
	authed := func(pattern string, h http.HandlerFunc) {
		public(pattern, middleware.RequireAuth(cfg.JWTSecret, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler(gatherer))

	// Poll lifecycle (post author)
	public("GET /posts/{postID}/poll", pollHandler.GetPoll)
	authed("POST /posts/{postID}/poll", pollHandler.CreatePoll)
	authed("PATCH /posts/{postID}/poll", pollHandler.UpdatePoll)
	authed("DELETE /posts/{postID}/poll", pollHandler.DeletePoll)
	authed("POST /posts/{postID}/poll/options", pollHandler.AddOption)
	authed("PATCH /posts/{postID}/poll/options/{optionID}", pollHandler.UpdateOption)
	authed("GET /posts/{postID}/poll/results", pollHandler.GetResults)

	// Responses (voters)
	authed("POST /posts/{postID}/poll/responses", responseHandler.SubmitResponse)
	authed("GET /posts/{postID}/poll/responses/me", responseHandler.GetMyResponse)
	authed("PUT /posts/{postID}/poll/responses/{responseID}/selections", responseHandler.ReplaceSelections)
	authed("POST /posts/{postID}/poll/responses/{responseID}/selections", responseHandler.AppendSelection)
	authed("PATCH /posts/{postID}/poll/responses/{responseID}/selections/{selectionID}", responseHandler.EditSelection)
	authed("POST /posts/{postID}/poll/responses/{responseID}/withdraw", responseHandler.WithdrawResponse)

	// Moderation
	authed("POST /posts/{postID}/poll/responses/{responseID}/invalidate", responseHandler.InvalidateResponse)

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("forum-polls API v1"))
	})

	return mux
}
