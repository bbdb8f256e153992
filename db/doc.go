// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens connections and creates the schema.

# Drivers

Two database types are supported:

  - postgres: github.com/lib/pq
  - sqlite: modernc.org/sqlite (default, and what the tests run on)

	conn, err := db.Open(ctx, db.TypeSQLite, "file:polls.db?_pragma=foreign_keys(1)")

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn, db.TypeSQLite); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - account, reputation, expert_credential, post: collaborator data, read only
  - poll: one active poll per post
  - poll_option: ordered options of option-bearing polls
  - poll_response: one response per respondent per poll
  - poll_response_option: options chosen by a response (ranked for ranking polls)

# Relationships

	post 1──1 poll
	poll 1──* poll_option
	poll 1──* poll_response
	poll_response 1──* poll_response_option *──1 poll_option

Rows are retired with deleted_at rather than removed. Uniqueness is enforced
by partial indexes over rows where deleted_at IS NULL.

# Errors

IsUniqueViolation recognises unique constraint failures from both drivers so
callers can turn lost races into conflicts.
*/
package db
