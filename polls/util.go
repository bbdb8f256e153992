// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"sort"
	"time"

	"github.com/danielhkuo/forum-polls/models"
)

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sortedOptions(options []models.PollOption) []models.PollOption {
	sort.Slice(options, func(i, j int) bool { return options[i].Position < options[j].Position })
	return options
}
