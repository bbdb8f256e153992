// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"math"
	"testing"
	"time"

	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/testutil"
)

func TestResultsVisibility(t *testing.T) {
	t.Run("after vote", func(t *testing.T) {
		f := newFixture(t)
		def := choiceDef(models.SingleChoice, "A", "B")
		def.VisibilityMode = models.VisibilityAfterVote
		poll := f.createPoll(def)
		v := f.voter("v1")

		_, err := f.svc.Results(f.ctx, v, f.postID)
		wantKind(t, err, apperr.KindForbidden)

		if _, err := f.svc.Results(f.ctx, f.author, f.postID); err != nil {
			t.Errorf("author Results() error = %v", err)
		}

		res := f.submit(v, models.AnswerPayload{OptionIDs: optionIDs(poll)[:1]})
		if _, err := f.svc.Results(f.ctx, v, f.postID); err != nil {
			t.Errorf("voter Results() error = %v", err)
		}

		if _, err := f.svc.WithdrawResponse(f.ctx, v, f.postID, res.Result.Response.ID); err != nil {
			t.Fatal(err)
		}
		_, err = f.svc.Results(f.ctx, v, f.postID)
		wantKind(t, err, apperr.KindForbidden)
	})

	t.Run("after close", func(t *testing.T) {
		f := newFixture(t)
		def := choiceDef(models.SingleChoice, "A", "B")
		def.VisibilityMode = models.VisibilityAfterClose
		def.EndAt = timePtr(f.clock.T.Add(time.Hour))
		f.createPoll(def)
		v := f.voter("v1")

		_, err := f.svc.Results(f.ctx, v, f.postID)
		wantKind(t, err, apperr.KindForbidden)

		f.clock.T = f.clock.T.Add(2 * time.Hour)
		if _, err := f.svc.Results(f.ctx, v, f.postID); err != nil {
			t.Errorf("Results() after close error = %v", err)
		}
	})

	t.Run("missing poll", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Results(f.ctx, f.author, f.postID)
		wantKind(t, err, apperr.KindNotFound)
	})
}

func TestResultsCountsOnlyActiveResponses(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(choiceDef(models.MultipleChoice, "A", "B", "C"))
	ids := optionIDs(poll)

	f.submit(f.voter("v1"), models.AnswerPayload{OptionIDs: []string{ids[0], ids[1]}})
	f.submit(f.voter("v2"), models.AnswerPayload{OptionIDs: []string{ids[0]}})

	withdrawer := f.voter("v3")
	w := f.submit(withdrawer, models.AnswerPayload{OptionIDs: []string{ids[2]}})
	if _, err := f.svc.WithdrawResponse(f.ctx, withdrawer, f.postID, w.Result.Response.ID); err != nil {
		t.Fatal(err)
	}

	spammer := f.voter("v4")
	sp := f.submit(spammer, models.AnswerPayload{OptionIDs: []string{ids[2]}})
	if _, err := f.svc.InvalidateResponse(f.ctx, testutil.Moderator(f.voter("mod").ID), f.postID, sp.Result.Response.ID); err != nil {
		t.Fatal(err)
	}

	results, err := f.svc.Results(f.ctx, f.author, f.postID)
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	if results.Respondents != 2 {
		t.Errorf("Respondents = %d, want 2", results.Respondents)
	}

	want := map[string]int{ids[0]: 2, ids[1]: 1, ids[2]: 0}
	for _, tally := range results.Options {
		if tally.Count != want[tally.OptionID] {
			t.Errorf("count of %s = %d, want %d", tally.Text, tally.Count, want[tally.OptionID])
		}
	}
}

func TestRankingResults(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(choiceDef(models.Ranking, "A", "B", "C"))
	ids := optionIDs(poll)

	rank := func(order ...string) models.AnswerPayload {
		var p models.AnswerPayload
		for i, id := range order {
			p.Rankings = append(p.Rankings, models.RankedChoice{OptionID: id, Position: i + 1})
		}
		return p
	}
	f.submit(f.voter("v1"), rank(ids[1], ids[0]))
	f.submit(f.voter("v2"), rank(ids[1], ids[0]))
	f.submit(f.voter("v3"), rank(ids[0], ids[1]))

	results, err := f.svc.Results(f.ctx, f.author, f.postID)
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}

	byID := map[string]models.OptionTally{}
	for _, tally := range results.Options {
		byID[tally.OptionID] = tally
	}

	b := byID[ids[1]]
	if b.Rank != 1 || b.MeanPosition == nil || math.Abs(*b.MeanPosition-4.0/3.0) > 1e-9 {
		t.Errorf("B tally = %+v, want rank 1 mean 1.33", b)
	}
	a := byID[ids[0]]
	if a.Rank != 2 || a.MeanPosition == nil || math.Abs(*a.MeanPosition-5.0/3.0) > 1e-9 {
		t.Errorf("A tally = %+v, want rank 2 mean 1.67", a)
	}
	c := byID[ids[2]]
	if c.Rank != 3 || c.MeanPosition != nil || c.Count != 0 {
		t.Errorf("C tally = %+v, want unranked last", c)
	}
}

func TestLikertAndNumericResults(t *testing.T) {
	t.Run("likert", func(t *testing.T) {
		f := newFixture(t)
		f.createPoll(models.PollDefinition{Question: "Rate", QuestionType: models.Likert, ScalePoints: intPtr(5)})
		for i, v := range []int{5, 4, 4} {
			f.submit(f.voter("v"+string(rune('a'+i))), models.AnswerPayload{LikertValue: intPtr(v)})
		}

		results, err := f.svc.Results(f.ctx, f.author, f.postID)
		if err != nil {
			t.Fatalf("Results() error = %v", err)
		}
		if results.Likert == nil {
			t.Fatal("missing likert tally")
		}
		if len(results.Likert.Distribution) != 5 || results.Likert.Distribution[4] != 2 || results.Likert.Distribution[1] != 0 {
			t.Errorf("Distribution = %v", results.Likert.Distribution)
		}
		if results.Likert.Mean == nil || math.Abs(*results.Likert.Mean-13.0/3.0) > 1e-9 {
			t.Errorf("Mean = %v, want 4.33", results.Likert.Mean)
		}
	})

	t.Run("numeric", func(t *testing.T) {
		f := newFixture(t)
		f.createPoll(models.PollDefinition{Question: "Guess", QuestionType: models.NumericEstimate})
		for i, v := range []float64{10, 30, 20, 40} {
			f.submit(f.voter("v"+string(rune('a'+i))), models.AnswerPayload{NumericValue: floatPtr(v)})
		}

		results, err := f.svc.Results(f.ctx, f.author, f.postID)
		if err != nil {
			t.Fatalf("Results() error = %v", err)
		}
		n := results.Numeric
		if n == nil || n.Count != 4 {
			t.Fatalf("Numeric = %+v", n)
		}
		if *n.Mean != 25 || *n.Median != 25 {
			t.Errorf("mean/median = %v/%v, want 25/25", *n.Mean, *n.Median)
		}
		if math.Abs(*n.P10-13) > 1e-9 || math.Abs(*n.P90-37) > 1e-9 {
			t.Errorf("p10/p90 = %v/%v, want 13/37", *n.P10, *n.P90)
		}
	})
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 0.5, 0},
		{"single", []float64{7}, 0.9, 7},
		{"median odd", []float64{1, 2, 3}, 0.5, 2},
		{"median even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"max", []float64{1, 2, 3}, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.sorted, tt.p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("percentile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarizeNumericEmpty(t *testing.T) {
	s := summarizeNumeric(nil)
	if s.Count != 0 || s.Mean != nil || s.Median != nil {
		t.Errorf("summarizeNumeric(nil) = %+v", s)
	}
}
