// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dbType string) error {
	ddl, err := schemaFor(dbType)
	if err != nil {
		return err
	}

	// sqlite drivers do not always run multi-statement strings in one Exec.
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

func schemaFor(dbType string) (string, error) {
	var ts, float string
	switch dbType {
	case TypePostgres:
		ts, float = "TIMESTAMPTZ", "DOUBLE PRECISION"
	case TypeSQLite:
		ts, float = "TIMESTAMP", "REAL"
	default:
		return "", fmt.Errorf("unsupported database type %q", dbType)
	}

	return strings.NewReplacer("{{ts}}", ts, "{{float}}", float).Replace(schema), nil
}

const schema = `
-- Accounts (owned by the identity service, read only here)
CREATE TABLE IF NOT EXISTS account (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL DEFAULT 'member',
    created_at {{ts}} NOT NULL,
    deleted_at {{ts}}
);

-- Reputation scores (computed elsewhere)
CREATE TABLE IF NOT EXISTS reputation (
    user_id TEXT PRIMARY KEY REFERENCES account(id) ON DELETE CASCADE,
    score INTEGER NOT NULL DEFAULT 0,
    updated_at {{ts}} NOT NULL
);

-- Verified-expert records and badges
CREATE TABLE IF NOT EXISTS expert_credential (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES account(id) ON DELETE CASCADE,
    kind TEXT NOT NULL CHECK (kind IN ('verified_expert', 'badge')),
    status TEXT NOT NULL CHECK (status IN ('active', 'revoked', 'expired')),
    valid_from {{ts}},
    valid_until {{ts}},
    created_at {{ts}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_expert_credential_user ON expert_credential(user_id);

-- Discussion posts
CREATE TABLE IF NOT EXISTS post (
    id TEXT PRIMARY KEY,
    author_id TEXT NOT NULL REFERENCES account(id),
    title TEXT NOT NULL,
    created_at {{ts}} NOT NULL,
    deleted_at {{ts}}
);

-- Polls (one active poll per post)
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    post_id TEXT NOT NULL REFERENCES post(id) ON DELETE CASCADE,
    question TEXT NOT NULL,
    question_type TEXT NOT NULL CHECK (question_type IN ('single_choice', 'multiple_choice', 'ranking', 'likert', 'numeric_estimate')),
    visibility_mode TEXT NOT NULL DEFAULT 'always' CHECK (visibility_mode IN ('always', 'after_vote', 'after_close')),
    expert_only BOOLEAN NOT NULL DEFAULT FALSE,
    allow_vote_change BOOLEAN NOT NULL DEFAULT TRUE,
    min_voter_reputation INTEGER,
    min_account_age_hours INTEGER,
    min_selections INTEGER,
    max_selections INTEGER,
    scale_points INTEGER,
    scale_labels TEXT,
    numeric_min {{float}},
    numeric_max {{float}},
    numeric_step {{float}},
    numeric_unit TEXT,
    start_at {{ts}},
    end_at {{ts}},
    created_at {{ts}} NOT NULL,
    updated_at {{ts}} NOT NULL,
    deleted_at {{ts}}
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_poll_post ON poll(post_id) WHERE deleted_at IS NULL;

-- Poll options
CREATE TABLE IF NOT EXISTS poll_option (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    position INTEGER NOT NULL CHECK (position >= 1),
    created_at {{ts}} NOT NULL,
    updated_at {{ts}} NOT NULL,
    deleted_at {{ts}}
);

CREATE INDEX IF NOT EXISTS idx_poll_option_poll ON poll_option(poll_id);
CREATE UNIQUE INDEX IF NOT EXISTS ux_poll_option_text ON poll_option(poll_id, text) WHERE deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS ux_poll_option_position ON poll_option(poll_id, position) WHERE deleted_at IS NULL;

-- Responses (one per respondent per poll, mutated in place)
CREATE TABLE IF NOT EXISTS poll_response (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    respondent_id TEXT NOT NULL REFERENCES account(id),
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'withdrawn', 'invalidated')),
    likert_value INTEGER,
    numeric_value {{float}},
    withdrawn_at {{ts}},
    version INTEGER NOT NULL DEFAULT 0,
    created_at {{ts}} NOT NULL,
    updated_at {{ts}} NOT NULL,
    deleted_at {{ts}}
);

CREATE INDEX IF NOT EXISTS idx_poll_response_poll ON poll_response(poll_id);
CREATE UNIQUE INDEX IF NOT EXISTS ux_poll_response_respondent ON poll_response(poll_id, respondent_id) WHERE deleted_at IS NULL;

-- Selected options per response
CREATE TABLE IF NOT EXISTS poll_response_option (
    id TEXT PRIMARY KEY,
    response_id TEXT NOT NULL REFERENCES poll_response(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES poll_option(id) ON DELETE CASCADE,
    position INTEGER CHECK (position >= 1),
    created_at {{ts}} NOT NULL,
    updated_at {{ts}} NOT NULL,
    deleted_at {{ts}}
);

CREATE INDEX IF NOT EXISTS idx_poll_response_option_option ON poll_response_option(option_id);
CREATE UNIQUE INDEX IF NOT EXISTS ux_poll_response_option ON poll_response_option(response_id, option_id) WHERE deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS ux_poll_response_option_position ON poll_response_option(response_id, position) WHERE deleted_at IS NULL AND position IS NOT NULL
`
