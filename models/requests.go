// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Request types. Struct tags carry shape checks only; poll rules live in package polls.

type OptionInput struct {
	Text     string `json:"text" validate:"required,max=200"`
	Position *int   `json:"position,omitempty" validate:"omitempty,gte=1"`
}

// PollDefinition is the body of POST /posts/{postID}/poll.
type PollDefinition struct {
	Question           string        `json:"question" validate:"required,max=500"`
	QuestionType       QuestionType  `json:"question_type" validate:"required,oneof=single_choice multiple_choice ranking likert numeric_estimate"`
	VisibilityMode     string        `json:"visibility_mode,omitempty" validate:"omitempty,oneof=always after_vote after_close"`
	ExpertOnly         bool          `json:"expert_only"`
	AllowVoteChange    *bool         `json:"allow_vote_change,omitempty"`
	MinVoterReputation *int          `json:"min_voter_reputation,omitempty" validate:"omitempty,gte=0"`
	MinAccountAgeHours *int          `json:"min_account_age_hours,omitempty" validate:"omitempty,gte=0"`
	MinSelections      *int          `json:"min_selections,omitempty"`
	MaxSelections      *int          `json:"max_selections,omitempty"`
	ScalePoints        *int          `json:"scale_points,omitempty"`
	ScaleLabels        []string      `json:"scale_labels,omitempty" validate:"omitempty,dive,max=100"`
	NumericMin         *float64      `json:"numeric_min,omitempty"`
	NumericMax         *float64      `json:"numeric_max,omitempty"`
	NumericStep        *float64      `json:"numeric_step,omitempty"`
	NumericUnit        *string       `json:"numeric_unit,omitempty" validate:"omitempty,max=32"`
	StartAt            *time.Time    `json:"start_at,omitempty"`
	EndAt              *time.Time    `json:"end_at,omitempty"`
	Options            []OptionInput `json:"options,omitempty" validate:"omitempty,max=50,dive"`
}

// PollPatch is the body of PATCH /posts/{postID}/poll. Nil fields are left alone.
type PollPatch struct {
	Question           *string    `json:"question,omitempty" validate:"omitempty,min=1,max=500"`
	VisibilityMode     *string    `json:"visibility_mode,omitempty" validate:"omitempty,oneof=always after_vote after_close"`
	ExpertOnly         *bool      `json:"expert_only,omitempty"`
	AllowVoteChange    *bool      `json:"allow_vote_change,omitempty"`
	MinVoterReputation *int       `json:"min_voter_reputation,omitempty" validate:"omitempty,gte=0"`
	MinAccountAgeHours *int       `json:"min_account_age_hours,omitempty" validate:"omitempty,gte=0"`
	MinSelections      *int       `json:"min_selections,omitempty"`
	MaxSelections      *int       `json:"max_selections,omitempty"`
	ScalePoints        *int       `json:"scale_points,omitempty"`
	ScaleLabels        []string   `json:"scale_labels,omitempty" validate:"omitempty,dive,max=100"`
	NumericMin         *float64   `json:"numeric_min,omitempty"`
	NumericMax         *float64   `json:"numeric_max,omitempty"`
	NumericStep        *float64   `json:"numeric_step,omitempty"`
	NumericUnit        *string    `json:"numeric_unit,omitempty" validate:"omitempty,max=32"`
	StartAt            *time.Time `json:"start_at,omitempty"`
	EndAt              *time.Time `json:"end_at,omitempty"`
}

type OptionPatch struct {
	Text     *string `json:"text,omitempty" validate:"omitempty,min=1,max=200"`
	Position *int    `json:"position,omitempty" validate:"omitempty,gte=1"`
}

type RankedChoice struct {
	OptionID string `json:"option_id" validate:"required"`
	Position int    `json:"position"`
}

// AnswerPayload carries exactly one answer shape. A nil slice means the shape
// is absent; an empty slice is an empty selection.
type AnswerPayload struct {
	QuestionType QuestionType   `json:"question_type,omitempty"`
	OptionIDs    []string       `json:"option_ids"`
	Rankings     []RankedChoice `json:"rankings" validate:"omitempty,dive"`
	LikertValue  *int           `json:"likert_value,omitempty"`
	NumericValue *float64       `json:"numeric_value,omitempty"`
}

// SelectionInput is the body of the append-one-selection call.
type SelectionInput struct {
	OptionID string `json:"option_id" validate:"required"`
	Position *int   `json:"position,omitempty" validate:"omitempty,gte=1"`
}

// SelectionPatch is the body of the single selection-row edit.
type SelectionPatch struct {
	OptionID *string `json:"option_id,omitempty" validate:"omitempty,min=1"`
	Position *int    `json:"position,omitempty" validate:"omitempty,gte=1"`
}
