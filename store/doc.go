// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store holds the SQL behind the poll engine.

Queries are built with goqu so the same code emits $n placeholders for
postgres and ? placeholders for sqlite:

	st := store.New(conn, cfg.DatabaseType)

	err := st.InTx(ctx, func(q *store.Queries) error {
		poll, err := q.PollByPost(ctx, postID)
		...
	})

Lookups that match nothing return ErrNotFound. Retired rows (deleted_at set)
are invisible to every lookup except Post and Account, whose callers decide
what a retired record means.

Reads of collaborator data (post, account, reputation, expert credentials)
live here too so they can run inside the same transaction as the write they
gate.
*/
package store
