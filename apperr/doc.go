// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package apperr classifies poll engine failures.

# Kinds

	not_found             → 404  post, poll, response, option or selection missing
	forbidden             → 403  caller is not the owner, author or moderator
	eligibility_denied    → 422  reputation, account age, expert or window check failed
	validation_failed     → 400  malformed or out-of-range request
	policy_conflict       → 409  well-formed request refused by a stateful rule
	concurrency_conflict  → 412  a racing write won; resubmit against current state
	internal              → 500  anything unclassified

All kinds are terminal. Nothing in the engine retries.

	if apperr.Is(err, apperr.KindPolicyConflict) {
		...
	}
*/
package apperr
