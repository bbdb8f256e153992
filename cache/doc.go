// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cache keeps public poll reads in Redis. Only the poll definition and
// its options are cached; responses and results always hit the database.
package cache
