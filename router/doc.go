// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the forum-polls API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(svc, cfg, prometheus.DefaultGatherer)

Every poll route is wrapped with request metrics and logging. Routes other
than GET /posts/{postID}/poll also require a bearer token.

# Endpoints

Operational:

	GET /health
	GET /metrics

Poll lifecycle (post author, options also moderators):

	GET    /posts/{postID}/poll                    - Poll and options (public)
	POST   /posts/{postID}/poll                    - Attach poll
	PATCH  /posts/{postID}/poll                    - Update poll
	DELETE /posts/{postID}/poll                    - Retire poll
	POST   /posts/{postID}/poll/options            - Add option
	PATCH  /posts/{postID}/poll/options/{optionID} - Edit option
	GET    /posts/{postID}/poll/results            - Aggregated results

Responses:

	POST  /posts/{postID}/poll/responses                                        - Submit
	GET   /posts/{postID}/poll/responses/me                                     - Own response
	PUT   /posts/{postID}/poll/responses/{responseID}/selections                - Replace
	POST  /posts/{postID}/poll/responses/{responseID}/selections                - Append
	PATCH /posts/{postID}/poll/responses/{responseID}/selections/{selectionID}  - Edit one
	POST  /posts/{postID}/poll/responses/{responseID}/withdraw                  - Withdraw
	POST  /posts/{postID}/poll/responses/{responseID}/invalidate                - Moderator
*/
package router
