// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package eligibility decides whether a voter may answer a poll: expert-only
// gating, reputation floor, minimum account age and the time window. All time
// reads go through the Gate's Clock.
package eligibility
