// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package eligibility

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/models"
)

// Clock is the single time source for window and age checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Tests move it by reassigning T.
type FixedClock struct{ T time.Time }

func (c *FixedClock) Now() time.Time { return c.T }

// Voter is the caller's identity snapshot, read fresh for every mutating call.
type Voter struct {
	Account     models.Account
	Reputation  int
	Credentials []models.ExpertCredential
}

// IsExpert reports whether any credential grants expert status at now.
func (v Voter) IsExpert(now time.Time) bool {
	for _, c := range v.Credentials {
		if (c.Kind == models.CredentialVerifiedExpert || c.Kind == models.CredentialBadge) && c.ValidAt(now) {
			return true
		}
	}
	return false
}

// Gate decides whether a voter may answer a poll.
type Gate struct {
	Clock Clock
}

// NewGate returns a gate on the given clock, or the system clock when nil.
func NewGate(clock Clock) *Gate {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Gate{Clock: clock}
}

// Now returns the gate's current time.
func (g *Gate) Now() time.Time {
	return g.Clock.Now()
}

// Check runs every admission check and returns one eligibility error listing
// all that failed, or nil.
func (g *Gate) Check(poll models.Poll, v Voter) error {
	now := g.Clock.Now()
	var failed []string

	if !v.Account.Active() {
		failed = append(failed, "account is deleted")
	}

	if poll.ExpertOnly && !v.IsExpert(now) {
		failed = append(failed, "poll is open to verified experts only")
	}

	if poll.MinVoterReputation != nil && v.Reputation < *poll.MinVoterReputation {
		failed = append(failed, fmt.Sprintf("reputation %s is below the required %s",
			humanize.Comma(int64(v.Reputation)), humanize.Comma(int64(*poll.MinVoterReputation))))
	}

	if poll.MinAccountAgeHours != nil {
		age := now.Sub(v.Account.CreatedAt)
		if age < time.Duration(*poll.MinAccountAgeHours)*time.Hour {
			failed = append(failed, fmt.Sprintf("account was created %s, accounts must be at least %d hours old",
				humanize.RelTime(v.Account.CreatedAt, now, "ago", "from now"), *poll.MinAccountAgeHours))
		}
	}

	if msg := windowProblem(poll, now); msg != "" {
		failed = append(failed, msg)
	}

	if len(failed) > 0 {
		return apperr.Ineligible("not eligible to answer this poll").WithDetails(failed...)
	}
	return nil
}

// Open returns a policy conflict when now lies outside the poll window.
func (g *Gate) Open(poll models.Poll) error {
	if msg := windowProblem(poll, g.Clock.Now()); msg != "" {
		return apperr.PolicyConflict("%s", msg)
	}
	return nil
}

func windowProblem(poll models.Poll, now time.Time) string {
	if poll.OpenAt(now) {
		return ""
	}
	if poll.StartAt != nil && now.Before(*poll.StartAt) {
		return fmt.Sprintf("poll opens %s", humanize.RelTime(*poll.StartAt, now, "ago", "from now"))
	}
	return fmt.Sprintf("poll closed %s", humanize.RelTime(*poll.EndAt, now, "ago", "from now"))
}
