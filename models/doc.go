// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - PollDefinition: question, question_type, type-specific config, options
  - PollPatch: any subset of poll fields
  - OptionInput / OptionPatch: option text and position
  - AnswerPayload: question_type plus one of option_ids, rankings,
    likert_value, numeric_value
  - SelectionInput / SelectionPatch: one selection row

# Response Types

  - PollWithOptions: poll and its ordered active options
  - ResponseWithSelections: a response and its active selection rows
  - SubmitResult: outcome (created, updated, unchanged) and the stored response
  - PollResults: tallies per question type
  - ErrorResponse: error, code, message, details

# Domain Types

  - Poll, PollOption, PollResponse, PollResponseOption
  - Post, Account, ExpertCredential (collaborator records, read only)
  - Principal: the resolved caller

# Constants

Question types:

	SingleChoice    = "single_choice"
	MultipleChoice  = "multiple_choice"
	Ranking         = "ranking"
	Likert          = "likert"
	NumericEstimate = "numeric_estimate"

Response status:

	ResponseActive      = "active"
	ResponseWithdrawn   = "withdrawn"
	ResponseInvalidated = "invalidated"

Visibility modes:

	VisibilityAlways     = "always"
	VisibilityAfterVote  = "after_vote"
	VisibilityAfterClose = "after_close"
*/
package models
