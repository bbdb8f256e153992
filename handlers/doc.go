// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the forum-polls API.

# Handler Types

Handlers are thin adapters over *polls.Service:

  - PollHandler: poll lifecycle, options and results
  - ResponseHandler: voter responses, selections and moderation

	svc := polls.NewService(store.New(conn, db.TypeSQLite), eligibility.NewGate(nil), cache)
	pollHandler := handlers.NewPollHandler(svc)

Every handler except GetPoll expects the caller to be resolved already by
middleware.RequireAuth; a missing principal is answered with 401.

# Request Bodies

Bodies are decoded and tag-validated with middleware.DecodeAndValidate before
reaching the service. Question-type specific checks (shape, bounds, steps)
happen in the service.

# Status Codes

Service errors are written through middleware.WriteError, which maps the
apperr kind to a status. Successful writes use:

	201 Created    new poll, option, response or appended selection
	200 OK         updates, resubmissions, withdraw and invalidate
	204 No Content poll deleted
*/
package handlers
