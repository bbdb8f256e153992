// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package answers

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/models"
)

// StepTolerance is the allowed drift, relative to the step, when checking that
// a numeric estimate lands on the step grid.
const StepTolerance = 1e-9

// Selection is one chosen option. Position is set for ranking answers only.
type Selection struct {
	OptionID string
	Position *int
}

// Answer is a validated answer in canonical form. Exactly one of Selections,
// Likert or Numeric is meaningful, decided by Type.
type Answer struct {
	Type       models.QuestionType
	Selections []Selection
	Likert     *int
	Numeric    *float64
}

// Normalize validates a raw payload against the poll and its active options and
// returns the canonical answer.
func Normalize(poll models.Poll, options []models.PollOption, payload models.AnswerPayload) (Answer, error) {
	if payload.QuestionType != "" && payload.QuestionType != poll.QuestionType {
		return Answer{}, mismatch(poll.QuestionType, string(payload.QuestionType))
	}

	shape, err := shapeOf(payload)
	if err != nil {
		return Answer{}, err
	}

	switch poll.QuestionType {
	case models.SingleChoice:
		if shape != shapeOptionIDs {
			return Answer{}, mismatch(poll.QuestionType, shape)
		}
		return normalizeSingle(options, payload.OptionIDs)
	case models.MultipleChoice:
		if shape != shapeOptionIDs {
			return Answer{}, mismatch(poll.QuestionType, shape)
		}
		return normalizeMultiple(poll, options, payload.OptionIDs)
	case models.Ranking:
		if shape != shapeRankings {
			return Answer{}, mismatch(poll.QuestionType, shape)
		}
		return normalizeRanking(options, payload.Rankings)
	case models.Likert:
		if shape != shapeLikert {
			return Answer{}, mismatch(poll.QuestionType, shape)
		}
		return normalizeLikert(poll, *payload.LikertValue)
	case models.NumericEstimate:
		if shape != shapeNumeric {
			return Answer{}, mismatch(poll.QuestionType, shape)
		}
		return normalizeNumeric(poll, *payload.NumericValue)
	default:
		return Answer{}, apperr.Invalid("poll has unknown question type %q", poll.QuestionType)
	}
}

const (
	shapeOptionIDs = "option_ids"
	shapeRankings  = "rankings"
	shapeLikert    = "likert_value"
	shapeNumeric   = "numeric_value"
)

func shapeOf(p models.AnswerPayload) (string, error) {
	var shapes []string
	if p.OptionIDs != nil {
		shapes = append(shapes, shapeOptionIDs)
	}
	if p.Rankings != nil {
		shapes = append(shapes, shapeRankings)
	}
	if p.LikertValue != nil {
		shapes = append(shapes, shapeLikert)
	}
	if p.NumericValue != nil {
		shapes = append(shapes, shapeNumeric)
	}

	switch len(shapes) {
	case 0:
		return "", apperr.Invalid("answer is empty")
	case 1:
		return shapes[0], nil
	default:
		return "", apperr.Invalid("answer carries more than one shape: %s", strings.Join(shapes, ", "))
	}
}

func mismatch(want models.QuestionType, got string) error {
	return apperr.Invalid("question type mismatch: poll is %s, answer is shaped as %s", want, got)
}

// checkMembership reports ids that are not among the poll's active options.
func checkMembership(options []models.PollOption, ids []string) error {
	known := make(map[string]bool, len(options))
	for _, o := range options {
		known[o.ID] = true
	}

	var unknown []string
	for _, id := range ids {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return apperr.Invalid("%d option(s) do not belong to this poll", len(unknown)).WithDetails(unknown...)
	}
	return nil
}

func checkDuplicates(ids []string) error {
	seen := make(map[string]bool, len(ids))
	var dups []string
	for _, id := range ids {
		if seen[id] {
			dups = append(dups, id)
		}
		seen[id] = true
	}
	if len(dups) > 0 {
		return apperr.Invalid("duplicate option ids").WithDetails(dups...)
	}
	return nil
}

func normalizeSingle(options []models.PollOption, ids []string) (Answer, error) {
	if len(ids) != 1 {
		return Answer{}, apperr.Invalid("single choice takes exactly one option, got %d", len(ids))
	}
	if err := checkMembership(options, ids); err != nil {
		return Answer{}, err
	}
	return Answer{Type: models.SingleChoice, Selections: []Selection{{OptionID: ids[0]}}}, nil
}

// SelectionBounds returns the effective [min, max] for a multiple choice poll.
func SelectionBounds(poll models.Poll, optionCount int) (int, int) {
	lo, hi := 0, optionCount
	if poll.MinSelections != nil {
		lo = *poll.MinSelections
	}
	if poll.MaxSelections != nil {
		hi = *poll.MaxSelections
	}
	return lo, hi
}

func normalizeMultiple(poll models.Poll, options []models.PollOption, ids []string) (Answer, error) {
	if err := checkDuplicates(ids); err != nil {
		return Answer{}, err
	}
	lo, hi := SelectionBounds(poll, len(options))
	if len(ids) < lo || len(ids) > hi {
		return Answer{}, apperr.Invalid("select between %d and %d options, got %d", lo, hi, len(ids))
	}
	if err := checkMembership(options, ids); err != nil {
		return Answer{}, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	selections := make([]Selection, len(sorted))
	for i, id := range sorted {
		selections[i] = Selection{OptionID: id}
	}
	return Answer{Type: models.MultipleChoice, Selections: selections}, nil
}

func normalizeRanking(options []models.PollOption, rankings []models.RankedChoice) (Answer, error) {
	n := len(rankings)
	if n == 0 {
		return Answer{}, apperr.Invalid("ranking needs at least one option")
	}

	ids := make([]string, n)
	for i, r := range rankings {
		ids[i] = r.OptionID
	}
	if err := checkDuplicates(ids); err != nil {
		return Answer{}, err
	}

	taken := make(map[int]bool, n)
	var details []string
	for _, r := range rankings {
		switch {
		case r.Position < 1 || r.Position > n:
			details = append(details, fmt.Sprintf("position %d is outside 1..%d", r.Position, n))
		case taken[r.Position]:
			details = append(details, fmt.Sprintf("position %d is used twice", r.Position))
		}
		taken[r.Position] = true
	}
	if len(details) > 0 {
		return Answer{}, apperr.Invalid("ranking positions must be a permutation of 1..%d", n).WithDetails(details...)
	}
	if err := checkMembership(options, ids); err != nil {
		return Answer{}, err
	}

	selections := make([]Selection, n)
	for _, r := range rankings {
		pos := r.Position
		selections[pos-1] = Selection{OptionID: r.OptionID, Position: &pos}
	}
	return Answer{Type: models.Ranking, Selections: selections}, nil
}

func normalizeLikert(poll models.Poll, v int) (Answer, error) {
	if poll.ScalePoints == nil {
		return Answer{}, apperr.Invalid("poll does not define a scale")
	}
	if v < 1 || v > *poll.ScalePoints {
		return Answer{}, apperr.Invalid("likert value must be between 1 and %d, got %d", *poll.ScalePoints, v)
	}
	return Answer{Type: models.Likert, Likert: &v}, nil
}

func normalizeNumeric(poll models.Poll, v float64) (Answer, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Answer{}, apperr.Invalid("numeric value must be finite")
	}
	if poll.NumericMin != nil && v < *poll.NumericMin {
		return Answer{}, apperr.Invalid("value %g is below the minimum %g", v, *poll.NumericMin)
	}
	if poll.NumericMax != nil && v > *poll.NumericMax {
		return Answer{}, apperr.Invalid("value %g is above the maximum %g", v, *poll.NumericMax)
	}
	if poll.NumericStep != nil && !OnStep(v, base(poll), *poll.NumericStep) {
		return Answer{}, apperr.Invalid("value %g is not a multiple of %g from %g", v, *poll.NumericStep, base(poll))
	}
	return Answer{Type: models.NumericEstimate, Numeric: &v}, nil
}

func base(poll models.Poll) float64 {
	if poll.NumericMin != nil {
		return *poll.NumericMin
	}
	return 0
}

// OnStep reports whether (v - base) / step is an integer within StepTolerance.
func OnStep(v, base, step float64) bool {
	if step <= 0 {
		return false
	}
	k := (v - base) / step
	return math.Abs(k-math.Round(k)) <= StepTolerance*math.Max(1, math.Abs(k))
}

// FromStored rebuilds the canonical answer held by a stored response.
func FromStored(t models.QuestionType, r models.PollResponse, rows []models.PollResponseOption) Answer {
	a := Answer{Type: t, Likert: r.LikertValue, Numeric: r.NumericValue}
	if !t.HasOptions() {
		return a
	}

	a.Selections = make([]Selection, len(rows))
	for i, row := range rows {
		a.Selections[i] = Selection{OptionID: row.OptionID}
		if t == models.Ranking {
			a.Selections[i].Position = row.Position
		}
	}
	canonicalize(a.Selections, t == models.Ranking)
	return a
}

func canonicalize(s []Selection, byPosition bool) {
	sort.Slice(s, func(i, j int) bool {
		if byPosition {
			return posOf(s[i]) < posOf(s[j])
		}
		return s[i].OptionID < s[j].OptionID
	})
}

func posOf(s Selection) int {
	if s.Position == nil {
		return 0
	}
	return *s.Position
}

// Equal reports whether two answers mean the same thing: set-equal options for
// choice types, position-equal rankings, equal scalars.
func (a Answer) Equal(b Answer) bool {
	if a.Type != b.Type {
		return false
	}

	switch a.Type {
	case models.Likert:
		return a.Likert != nil && b.Likert != nil && *a.Likert == *b.Likert
	case models.NumericEstimate:
		return a.Numeric != nil && b.Numeric != nil && *a.Numeric == *b.Numeric
	}

	if len(a.Selections) != len(b.Selections) {
		return false
	}
	ranked := a.Type == models.Ranking
	x := append([]Selection(nil), a.Selections...)
	y := append([]Selection(nil), b.Selections...)
	canonicalize(x, ranked)
	canonicalize(y, ranked)
	for i := range x {
		if x[i].OptionID != y[i].OptionID {
			return false
		}
		if ranked && posOf(x[i]) != posOf(y[i]) {
			return false
		}
	}
	return true
}

// OptionIDs lists the selected option ids in canonical order.
func (a Answer) OptionIDs() []string {
	ids := make([]string, len(a.Selections))
	for i, s := range a.Selections {
		ids[i] = s.OptionID
	}
	return ids
}
