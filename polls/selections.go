// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/forum-polls/answers"
	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/auth"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/store"
)

// AppendSelection adds one option to an active multiple choice or ranking
// response without touching its other rows.
func (s *Service) AppendSelection(ctx context.Context, p models.Principal, postID, responseID string, in models.SelectionInput) (models.PollResponseOption, error) {
	var out models.PollResponseOption

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		_, poll, err := loadPoll(ctx, q, postID)
		if err != nil {
			return err
		}
		if poll.QuestionType != models.MultipleChoice && poll.QuestionType != models.Ranking {
			return apperr.Invalid("%s answers cannot be extended one option at a time", poll.QuestionType)
		}

		resp, rows, err := s.editableResponse(ctx, q, poll, responseID, p)
		if err != nil {
			return err
		}
		if err := s.checkVoter(ctx, q, poll, p.ID); err != nil {
			return err
		}

		if err := requireOption(ctx, q, poll, in.OptionID); err != nil {
			return err
		}
		for _, row := range rows {
			if row.OptionID == in.OptionID {
				return apperr.PolicyConflict("option %s is already selected", in.OptionID)
			}
		}

		var position *int
		switch poll.QuestionType {
		case models.MultipleChoice:
			if in.Position != nil {
				return apperr.Invalid("multiple choice selections have no position")
			}
			options, err := q.Options(ctx, poll.ID)
			if err != nil {
				return err
			}
			if _, hi := answers.SelectionBounds(poll, len(options)); len(rows)+1 > hi {
				return apperr.PolicyConflict("at most %d options can be selected", hi)
			}
		case models.Ranking:
			next := len(rows) + 1
			if in.Position != nil && *in.Position != next {
				if *in.Position >= 1 && *in.Position < next {
					return apperr.PolicyConflict("position %d is taken", *in.Position)
				}
				return apperr.Invalid("next free position is %d, got %d", next, *in.Position)
			}
			position = &next
		}

		now := s.now()
		resp.UpdatedAt = now
		if err := q.UpdateResponse(ctx, &resp); err != nil {
			return fmt.Errorf("failed to update response: %w", err)
		}

		out = models.PollResponseOption{
			ID:         auth.GenerateID(),
			ResponseID: resp.ID,
			OptionID:   in.OptionID,
			Position:   position,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := q.InsertSelection(ctx, out); err != nil {
			return fmt.Errorf("failed to insert selection: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.PollResponseOption{}, s.fail(OpAppendSelection, conflictOnRace(err))
	}

	slog.Info("selection appended", "selection_id", out.ID, "response_id", out.ResponseID)
	return out, nil
}

// EditSelection changes the option or, for rankings, the position of one
// selection row. A position already held by another row is swapped with it.
func (s *Service) EditSelection(ctx context.Context, p models.Principal, postID, responseID, selectionID string, patch models.SelectionPatch) (models.ResponseWithSelections, error) {
	var out models.ResponseWithSelections

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		_, poll, err := loadPoll(ctx, q, postID)
		if err != nil {
			return err
		}
		if !poll.QuestionType.HasOptions() {
			return apperr.Invalid("%s answers have no selections", poll.QuestionType)
		}
		if patch.Position != nil && poll.QuestionType != models.Ranking {
			return apperr.Invalid("only ranking selections have a position")
		}

		resp, rows, err := s.editableResponse(ctx, q, poll, responseID, p)
		if err != nil {
			return err
		}
		if err := s.checkVoter(ctx, q, poll, p.ID); err != nil {
			return err
		}

		idx := -1
		for i, row := range rows {
			if row.ID == selectionID {
				idx = i
			}
		}
		if idx < 0 {
			return apperr.NotFound("selection %s not found", selectionID)
		}

		now := s.now()
		target := rows[idx]
		changed := []models.PollResponseOption{}

		if patch.OptionID != nil && *patch.OptionID != target.OptionID {
			if err := requireOption(ctx, q, poll, *patch.OptionID); err != nil {
				return err
			}
			for i, row := range rows {
				if i != idx && row.OptionID == *patch.OptionID {
					return apperr.PolicyConflict("option %s is already selected", *patch.OptionID)
				}
			}
			target.OptionID = *patch.OptionID
		}

		if patch.Position != nil && !sameInt(target.Position, patch.Position) {
			pos := *patch.Position
			if pos < 1 || pos > len(rows) {
				return apperr.Invalid("position must be between 1 and %d", len(rows))
			}
			for i, row := range rows {
				if i != idx && row.Position != nil && *row.Position == pos {
					row.Position = target.Position
					row.UpdatedAt = now
					rows[i] = row
					changed = append(changed, row)
				}
			}
			target.Position = &pos
		}

		target.UpdatedAt = now
		rows[idx] = target
		changed = append(changed, target)

		resp.UpdatedAt = now
		if err := q.UpdateResponse(ctx, &resp); err != nil {
			return fmt.Errorf("failed to update response: %w", err)
		}

		ids := make([]string, len(changed))
		for i, row := range changed {
			ids[i] = row.ID
		}
		if err := q.ClearSelectionPositions(ctx, ids, now); err != nil {
			return fmt.Errorf("failed to clear selection positions: %w", err)
		}
		for _, row := range changed {
			if err := q.UpdateSelection(ctx, row); err != nil {
				return fmt.Errorf("failed to update selection: %w", err)
			}
		}

		out = models.ResponseWithSelections{Response: resp, Selections: rows}
		return nil
	})
	if err != nil {
		return models.ResponseWithSelections{}, s.fail(OpEditSelection, conflictOnRace(err))
	}

	slog.Info("selection edited", "selection_id", selectionID, "response_id", responseID)
	return out, nil
}

// editableResponse loads an active response owned by the caller, provided the
// poll allows changes and is still open.
func (s *Service) editableResponse(ctx context.Context, q *store.Queries, poll models.Poll, responseID string, p models.Principal) (models.PollResponse, []models.PollResponseOption, error) {
	resp, err := ownResponse(ctx, q, poll, responseID, p)
	if err != nil {
		return models.PollResponse{}, nil, err
	}
	if !resp.Active() {
		return models.PollResponse{}, nil, apperr.PolicyConflict("response is %s", resp.Status)
	}
	if !poll.AllowVoteChange {
		return models.PollResponse{}, nil, apperr.PolicyConflict("this poll does not allow changing a vote")
	}
	if err := s.gate.Open(poll); err != nil {
		return models.PollResponse{}, nil, err
	}

	rows, err := q.Selections(ctx, resp.ID)
	if err != nil {
		return models.PollResponse{}, nil, err
	}
	return resp, rows, nil
}

func requireOption(ctx context.Context, q *store.Queries, poll models.Poll, optionID string) error {
	_, err := q.OptionByID(ctx, poll.ID, optionID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Invalid("option %s does not belong to this poll", optionID)
	}
	return err
}
