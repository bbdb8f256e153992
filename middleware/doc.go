// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging and Metrics

Wrap handlers with request logging and the duration histogram:

	mux.HandleFunc("GET /posts/{postID}/poll",
		middleware.WithMetrics("GET /posts/{postID}/poll", middleware.WithLogging(handler)))

Logs request start (method, path, remote) and completion (status,
duration_ms). WithMetrics labels observations with the route pattern,
not the concrete path.

# Authentication

RequireAuth resolves "Authorization: Bearer <jwt>" into a models.Principal
and stores it on the request context:

	mux.HandleFunc("POST /posts/{postID}/poll/responses",
		middleware.RequireAuth(cfg.JWTSecret, handler))

	p, ok := middleware.PrincipalFrom(r.Context())

Missing, expired or foreign tokens are answered with 401.

# Request Validation

DecodeAndValidate parses a JSON body and checks its validator struct tags.
Every failing field is listed in the error details, named by its JSON key:

	var def models.PollDefinition
	if err := middleware.DecodeAndValidate(r, &def); err != nil {
		middleware.WriteError(w, err)
		return
	}

# Error Mapping

WriteError turns an apperr kind into its status code:

	not_found             404
	forbidden             403
	eligibility_denied    422
	validation_failed     400
	policy_conflict       409
	concurrency_conflict  412
	anything else         500 (message hidden, error logged)

# CORS Middleware

Enable cross-origin requests for the forum frontend:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

# Client IP Extraction

GetClientIP returns the original client address (X-Forwarded-For,
X-Real-IP, then RemoteAddr). It is logged with every request.
*/
package middleware
