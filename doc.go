// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the forum-polls API server.

forum-polls attaches at most one poll to a forum post and collects one
response per eligible voter. Polls can be single or multiple choice,
rankings, Likert scales or numeric estimates, and can be limited by
reputation, account age and expert credentials.

# Starting the Server

The server reads a .env file, environment variables or CLI flags:

	DATABASE_URL=file:polls.db JWT_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --jwt-secret ...

# Configuration

Required settings:

  - DATABASE_URL (-d): database connection string
  - JWT_SECRET (--jwt-secret): bearer token signing secret

Optional settings:

  - PORT (-p): server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - REDIS_URL (--redis): poll cache; disabled when unset
  - LOG_LEVEL (--log-level): debug, info, warn or error (default: info)

# Architecture

  - polls: poll lifecycle, responses, selections and results
  - answers: per question type answer validation
  - eligibility: voter eligibility gate
  - store: goqu query layer over database/sql
  - handlers, router, middleware: HTTP surface
  - auth: bearer tokens
  - cache: Redis poll cache
  - metrics: Prometheus collectors
  - apperr: error kinds and HTTP status mapping
  - db: connections and schema
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
