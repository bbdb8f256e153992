// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package eligibility

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/models"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int              { return &v }
func timePtr(t time.Time) *time.Time { return &t }
func hoursAgo(h int) time.Time       { return now.Add(-time.Duration(h) * time.Hour) }

func voter(reputation int, ageHours int) Voter {
	return Voter{
		Account:    models.Account{ID: "u1", CreatedAt: hoursAgo(ageHours)},
		Reputation: reputation,
	}
}

func TestCheck(t *testing.T) {
	gate := NewGate(&FixedClock{T: now})

	expert := voter(0, 1)
	expert.Credentials = []models.ExpertCredential{
		{Kind: models.CredentialVerifiedExpert, Status: models.CredentialActive},
	}
	revoked := voter(0, 1)
	revoked.Credentials = []models.ExpertCredential{
		{Kind: models.CredentialVerifiedExpert, Status: models.CredentialRevoked},
	}
	lapsed := voter(0, 1)
	lapsed.Credentials = []models.ExpertCredential{
		{Kind: models.CredentialBadge, Status: models.CredentialActive, ValidUntil: timePtr(hoursAgo(1))},
	}
	deleted := voter(100, 100)
	deleted.Account.DeletedAt = timePtr(hoursAgo(1))

	tests := []struct {
		name      string
		poll      models.Poll
		voter     Voter
		wantErr   bool
		wantFails int
	}{
		{"no floors", models.Poll{}, voter(0, 0), false, 0},
		{"reputation exactly at floor", models.Poll{MinVoterReputation: intPtr(50)}, voter(50, 0), false, 0},
		{"reputation one below floor", models.Poll{MinVoterReputation: intPtr(50)}, voter(49, 0), true, 1},
		{"account old enough", models.Poll{MinAccountAgeHours: intPtr(24)}, voter(0, 24), false, 0},
		{"account too young", models.Poll{MinAccountAgeHours: intPtr(24)}, voter(0, 23), true, 1},
		{"expert only with expert", models.Poll{ExpertOnly: true}, expert, false, 0},
		{"expert only without credential", models.Poll{ExpertOnly: true}, voter(0, 1), true, 1},
		{"expert only with revoked credential", models.Poll{ExpertOnly: true}, revoked, true, 1},
		{"expert only with lapsed badge", models.Poll{ExpertOnly: true}, lapsed, true, 1},
		{"before start", models.Poll{StartAt: timePtr(now.Add(time.Hour))}, voter(0, 0), true, 1},
		{"after end", models.Poll{EndAt: timePtr(now.Add(-time.Hour))}, voter(0, 0), true, 1},
		{"inside window", models.Poll{StartAt: timePtr(hoursAgo(1)), EndAt: timePtr(now.Add(time.Hour))}, voter(0, 0), false, 0},
		{"deleted account", models.Poll{}, deleted, true, 1},
		{
			"every check fails",
			models.Poll{
				ExpertOnly:         true,
				MinVoterReputation: intPtr(10),
				MinAccountAgeHours: intPtr(48),
				EndAt:              timePtr(hoursAgo(2)),
			},
			voter(0, 1),
			true,
			4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Check(tt.poll, tt.voter)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("Check() unexpected error = %v", err)
				}
				return
			}

			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Kind != apperr.KindIneligible {
				t.Fatalf("Check() error = %v, want eligibility denial", err)
			}
			if len(appErr.Details) != tt.wantFails {
				t.Errorf("Check() details = %v, want %d entries", appErr.Details, tt.wantFails)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	clock := &FixedClock{T: now}
	gate := NewGate(clock)
	poll := models.Poll{EndAt: timePtr(now.Add(time.Minute))}

	if err := gate.Open(poll); err != nil {
		t.Fatalf("Open() before end = %v, want nil", err)
	}

	clock.T = now.Add(2 * time.Minute)
	if err := gate.Open(poll); !apperr.Is(err, apperr.KindPolicyConflict) {
		t.Errorf("Open() after end = %v, want policy conflict", err)
	}

	clock.T = now
	notYet := models.Poll{StartAt: timePtr(now.Add(time.Minute))}
	err := gate.Open(notYet)
	if !apperr.Is(err, apperr.KindPolicyConflict) || !strings.Contains(err.Error(), "poll opens") {
		t.Errorf("Open() before start = %v, want policy conflict naming the start", err)
	}
}

func TestIsExpertValidityWindow(t *testing.T) {
	v := Voter{Credentials: []models.ExpertCredential{{
		Kind:       models.CredentialVerifiedExpert,
		Status:     models.CredentialActive,
		ValidFrom:  timePtr(now.Add(time.Hour)),
		ValidUntil: timePtr(now.Add(48 * time.Hour)),
	}}}

	if v.IsExpert(now) {
		t.Error("credential should not count before valid_from")
	}
	if !v.IsExpert(now.Add(2 * time.Hour)) {
		t.Error("credential should count inside its window")
	}
}
