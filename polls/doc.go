// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package polls is the poll engine behind forum posts.

# Lifecycle

A post author attaches one poll to a post with CreatePoll and edits it with
UpdatePoll. Once the poll has started or holds an active response, the
structural fields (min_selections, max_selections, scale_points, numeric_min,
numeric_max, numeric_step) are frozen; everything else stays editable.
Options can be added or changed by the author or a moderator.

# Responses

Each (poll, respondent) pair owns at most one response:

	none -> active -> active (edited) | withdrawn | invalidated

Every mutating call runs in one transaction that re-reads the poll, the
caller's eligibility snapshot and the response, so nothing read before the
transaction is trusted. Resubmitting an answer equal to the stored one is a
successful no-op. Changing an answer requires allow_vote_change.

Selections are replaced by difference: rows for dropped options are retired,
kept rows are renumbered, new options are inserted. A uniqueness violation
from a concurrent writer rolls the whole submission back; the engine then
re-reads and reports either an unchanged success or a concurrency conflict.
It never retries.

# Results

Results honours the poll's visibility mode and counts active responses only.
*/
package polls
