// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/store"
)

// Results tallies the active responses of a poll, subject to its visibility
// mode.
func (s *Service) Results(ctx context.Context, p models.Principal, postID string) (models.PollResults, error) {
	q := s.store.Read()
	post, poll, err := loadPoll(ctx, q, postID)
	if err != nil {
		return models.PollResults{}, err
	}
	if err := s.canSeeResults(ctx, q, post, poll, p); err != nil {
		return models.PollResults{}, s.fail(OpResults, err)
	}

	responses, err := q.ActiveResponses(ctx, poll.ID)
	if err != nil {
		return models.PollResults{}, s.fail(OpResults, fmt.Errorf("failed to load responses: %w", err))
	}

	out := models.PollResults{
		PollID:       poll.ID,
		QuestionType: poll.QuestionType,
		Respondents:  len(responses),
	}

	switch poll.QuestionType {
	case models.Likert:
		out.Likert = tallyLikert(poll, responses)
	case models.NumericEstimate:
		out.Numeric = summarizeNumeric(responses)
	default:
		options, err := q.Options(ctx, poll.ID)
		if err != nil {
			return models.PollResults{}, s.fail(OpResults, fmt.Errorf("failed to load options: %w", err))
		}
		selections, err := q.PollSelections(ctx, poll.ID)
		if err != nil {
			return models.PollResults{}, s.fail(OpResults, fmt.Errorf("failed to load selections: %w", err))
		}
		out.Options = tallyOptions(poll.QuestionType, options, selections)
	}
	return out, nil
}

func (s *Service) canSeeResults(ctx context.Context, q *store.Queries, post models.Post, poll models.Poll, p models.Principal) error {
	if post.AuthorID == p.ID {
		return nil
	}

	switch poll.VisibilityMode {
	case models.VisibilityAfterVote:
		resp, err := q.ResponseByRespondent(ctx, poll.ID, p.ID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !resp.Active()) {
			return apperr.Forbidden("results are visible after voting")
		}
		return err
	case models.VisibilityAfterClose:
		if !poll.Closed(s.now()) {
			return apperr.Forbidden("results are visible after the poll closes")
		}
	}
	return nil
}

// tallyOptions counts selections per option. Ranking polls also get the mean
// position and a rank, best (lowest) mean first.
func tallyOptions(t models.QuestionType, options []models.PollOption, selections []models.PollResponseOption) []models.OptionTally {
	counts := make(map[string]int, len(options))
	positions := make(map[string][]float64, len(options))
	for _, sel := range selections {
		counts[sel.OptionID]++
		if sel.Position != nil {
			positions[sel.OptionID] = append(positions[sel.OptionID], float64(*sel.Position))
		}
	}

	tallies := make([]models.OptionTally, len(options))
	for i, o := range options {
		tallies[i] = models.OptionTally{OptionID: o.ID, Text: o.Text, Count: counts[o.ID]}
		if t == models.Ranking && len(positions[o.ID]) > 0 {
			m := mean(positions[o.ID])
			tallies[i].MeanPosition = &m
		}
	}
	if t != models.Ranking {
		return tallies
	}

	order := make([]int, len(tallies))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := tallies[order[i]], tallies[order[j]]

		// 1. Ranked options come before unranked ones
		if (a.MeanPosition == nil) != (b.MeanPosition == nil) {
			return a.MeanPosition != nil
		}

		// 2. Lower mean position wins
		if a.MeanPosition != nil && *a.MeanPosition != *b.MeanPosition {
			return *a.MeanPosition < *b.MeanPosition
		}

		// 3. More appearances win
		return a.Count > b.Count
	})
	for rank, i := range order {
		tallies[i].Rank = rank + 1
	}
	return tallies
}

func tallyLikert(poll models.Poll, responses []models.PollResponse) *models.LikertTally {
	tally := &models.LikertTally{Distribution: map[int]int{}}
	if poll.ScalePoints != nil {
		for v := 1; v <= *poll.ScalePoints; v++ {
			tally.Distribution[v] = 0
		}
	}

	var values []float64
	for _, r := range responses {
		if r.LikertValue == nil {
			continue
		}
		tally.Distribution[*r.LikertValue]++
		values = append(values, float64(*r.LikertValue))
	}
	if len(values) > 0 {
		m := mean(values)
		tally.Mean = &m
	}
	return tally
}

func summarizeNumeric(responses []models.PollResponse) *models.NumericSummary {
	var values []float64
	for _, r := range responses {
		if r.NumericValue != nil {
			values = append(values, *r.NumericValue)
		}
	}

	summary := &models.NumericSummary{Count: len(values)}
	if len(values) == 0 {
		return summary
	}

	sort.Float64s(values)
	m := mean(values)
	median := percentile(values, 0.5)
	p10 := percentile(values, 0.1)
	p90 := percentile(values, 0.9)
	summary.Mean = &m
	summary.Median = &median
	summary.P10 = &p10
	summary.P90 = &p90
	return summary
}

// percentile calculates the p-th percentile of sorted data
// p should be in range [0, 1]
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0.0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	// Linear interpolation between closest ranks
	rank := p * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// mean calculates the arithmetic mean
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
