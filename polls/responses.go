// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/forum-polls/answers"
	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/auth"
	"github.com/danielhkuo/forum-polls/metrics"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/store"
)

// SubmitResponse records the caller's answer to the poll of a post. A
// resubmission of the same answer succeeds without writing.
func (s *Service) SubmitResponse(ctx context.Context, p models.Principal, postID string, payload models.AnswerPayload) (models.SubmitResult, error) {
	var out models.SubmitResult
	var poll models.Poll
	var answer answers.Answer

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		poll, answer, err = s.admit(ctx, q, p, postID, payload)
		if err != nil {
			return err
		}

		var existing *models.PollResponse
		resp, err := q.ResponseByRespondent(ctx, poll.ID, p.ID)
		switch {
		case err == nil:
			existing = &resp
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		out, err = s.apply(ctx, q, poll, p.ID, existing, answer)
		return err
	})
	if raced(err) {
		out, err = s.resolveRace(ctx, poll, p.ID, answer)
	}
	if err != nil {
		return models.SubmitResult{}, s.fail(OpSubmitResponse, err)
	}

	s.recordOutcome(OpSubmitResponse, poll, out)
	return out, nil
}

// ReplaceSelections replaces the full answer of an existing response owned by
// the caller.
func (s *Service) ReplaceSelections(ctx context.Context, p models.Principal, postID, responseID string, payload models.AnswerPayload) (models.SubmitResult, error) {
	var out models.SubmitResult
	var poll models.Poll
	var answer answers.Answer

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		poll, answer, err = s.admit(ctx, q, p, postID, payload)
		if err != nil {
			return err
		}

		resp, err := ownResponse(ctx, q, poll, responseID, p)
		if err != nil {
			return err
		}

		out, err = s.apply(ctx, q, poll, p.ID, &resp, answer)
		return err
	})
	if raced(err) {
		out, err = s.resolveRace(ctx, poll, p.ID, answer)
	}
	if err != nil {
		return models.SubmitResult{}, s.fail(OpReplaceSelections, err)
	}

	s.recordOutcome(OpReplaceSelections, poll, out)
	return out, nil
}

// WithdrawResponse retracts the caller's response and retires its selection
// rows. Withdrawing twice is a no-op.
func (s *Service) WithdrawResponse(ctx context.Context, p models.Principal, postID, responseID string) (models.PollResponse, error) {
	var out models.PollResponse

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		_, poll, err := loadPoll(ctx, q, postID)
		if err != nil {
			return err
		}
		resp, err := ownResponse(ctx, q, poll, responseID, p)
		if err != nil {
			return err
		}

		switch resp.Status {
		case models.ResponseWithdrawn:
			out = resp
			return nil
		case models.ResponseInvalidated:
			return apperr.PolicyConflict("response was invalidated by a moderator")
		}
		if !poll.AllowVoteChange {
			return apperr.PolicyConflict("this poll does not allow changing a vote")
		}
		if err := s.gate.Open(poll); err != nil {
			return err
		}

		now := s.now()
		resp.Status = models.ResponseWithdrawn
		resp.WithdrawnAt = &now
		resp.UpdatedAt = now
		if err := q.UpdateResponse(ctx, &resp); err != nil {
			return fmt.Errorf("failed to withdraw response: %w", err)
		}

		rows, err := q.Selections(ctx, resp.ID)
		if err != nil {
			return err
		}
		ids := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		if err := q.RetireSelections(ctx, ids, now); err != nil {
			return fmt.Errorf("failed to retire selections: %w", err)
		}
		out = resp
		return nil
	})
	if err != nil {
		return models.PollResponse{}, s.fail(OpWithdrawResponse, conflictOnRace(err))
	}

	slog.Info("response withdrawn", "response_id", out.ID, "poll_id", out.PollID)
	return out, nil
}

// InvalidateResponse lets a moderator discard a response. The owner can no
// longer change it.
func (s *Service) InvalidateResponse(ctx context.Context, p models.Principal, postID, responseID string) (models.PollResponse, error) {
	var out models.PollResponse

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if !p.CanModerate() {
			return apperr.Forbidden("only moderators can invalidate responses")
		}
		_, poll, err := loadPoll(ctx, q, postID)
		if err != nil {
			return err
		}
		resp, err := q.ResponseByID(ctx, poll.ID, responseID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("response %s not found", responseID)
		}
		if err != nil {
			return err
		}
		if resp.Status == models.ResponseInvalidated {
			out = resp
			return nil
		}

		resp.Status = models.ResponseInvalidated
		resp.UpdatedAt = s.now()
		if err := q.UpdateResponse(ctx, &resp); err != nil {
			return fmt.Errorf("failed to invalidate response: %w", err)
		}
		out = resp
		return nil
	})
	if err != nil {
		return models.PollResponse{}, s.fail(OpInvalidateResponse, conflictOnRace(err))
	}

	slog.Info("response invalidated", "response_id", out.ID, "poll_id", out.PollID, "moderator_id", p.ID)
	return out, nil
}

// GetMyResponse returns the caller's response to the poll of a post.
func (s *Service) GetMyResponse(ctx context.Context, p models.Principal, postID string) (models.ResponseWithSelections, error) {
	q := s.store.Read()
	_, poll, err := loadPoll(ctx, q, postID)
	if err != nil {
		return models.ResponseWithSelections{}, err
	}

	resp, err := q.ResponseByRespondent(ctx, poll.ID, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return models.ResponseWithSelections{}, apperr.NotFound("no response to this poll")
	}
	if err != nil {
		return models.ResponseWithSelections{}, err
	}

	rows, err := q.Selections(ctx, resp.ID)
	if err != nil {
		return models.ResponseWithSelections{}, fmt.Errorf("failed to load selections: %w", err)
	}
	return models.ResponseWithSelections{Response: resp, Selections: rows}, nil
}

// admit loads the poll, gates the caller and normalizes the answer, all
// inside the caller's transaction.
func (s *Service) admit(ctx context.Context, q *store.Queries, p models.Principal, postID string, payload models.AnswerPayload) (models.Poll, answers.Answer, error) {
	_, poll, err := loadPoll(ctx, q, postID)
	if err != nil {
		return models.Poll{}, answers.Answer{}, err
	}
	if err := s.checkVoter(ctx, q, poll, p.ID); err != nil {
		return poll, answers.Answer{}, err
	}

	options, err := q.Options(ctx, poll.ID)
	if err != nil {
		return poll, answers.Answer{}, err
	}
	answer, err := answers.Normalize(poll, options, payload)
	return poll, answer, err
}

func ownResponse(ctx context.Context, q *store.Queries, poll models.Poll, responseID string, p models.Principal) (models.PollResponse, error) {
	resp, err := q.ResponseByID(ctx, poll.ID, responseID)
	if errors.Is(err, store.ErrNotFound) {
		return models.PollResponse{}, apperr.NotFound("response %s not found", responseID)
	}
	if err != nil {
		return models.PollResponse{}, err
	}
	if resp.RespondentID != p.ID {
		return models.PollResponse{}, apperr.Forbidden("response belongs to another user")
	}
	return resp, nil
}

// apply decides between no-op, rejection and write for a normalized answer,
// then upserts the response and replaces its selections.
func (s *Service) apply(ctx context.Context, q *store.Queries, poll models.Poll, respondentID string, existing *models.PollResponse, answer answers.Answer) (models.SubmitResult, error) {
	now := s.now()

	if existing == nil {
		resp := models.PollResponse{
			ID:           auth.GenerateID(),
			PollID:       poll.ID,
			RespondentID: respondentID,
			Status:       models.ResponseActive,
			LikertValue:  answer.Likert,
			NumericValue: answer.Numeric,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := q.InsertResponse(ctx, resp); err != nil {
			return models.SubmitResult{}, fmt.Errorf("failed to insert response: %w", err)
		}
		selections, err := replaceSelections(ctx, q, resp.ID, nil, answer, now)
		if err != nil {
			return models.SubmitResult{}, err
		}
		return models.SubmitResult{
			Outcome: models.OutcomeCreated,
			Result:  models.ResponseWithSelections{Response: resp, Selections: selections},
		}, nil
	}

	resp := *existing
	rows, err := q.Selections(ctx, resp.ID)
	if err != nil {
		return models.SubmitResult{}, err
	}

	switch resp.Status {
	case models.ResponseInvalidated:
		return models.SubmitResult{}, apperr.PolicyConflict("response was invalidated by a moderator")
	case models.ResponseActive:
		if answers.FromStored(poll.QuestionType, resp, rows).Equal(answer) {
			return models.SubmitResult{
				Outcome: models.OutcomeUnchanged,
				Result:  models.ResponseWithSelections{Response: resp, Selections: rows},
			}, nil
		}
		if !poll.AllowVoteChange {
			return models.SubmitResult{}, apperr.PolicyConflict("this poll does not allow changing a vote")
		}
	}

	resp.Status = models.ResponseActive
	resp.WithdrawnAt = nil
	resp.LikertValue = answer.Likert
	resp.NumericValue = answer.Numeric
	resp.UpdatedAt = now
	// Guarded on the version read with rows, so selections replaced by another
	// writer in the meantime surface as ErrStale instead of being merged.
	if err := q.UpdateResponse(ctx, &resp); err != nil {
		return models.SubmitResult{}, fmt.Errorf("failed to update response: %w", err)
	}

	selections, err := replaceSelections(ctx, q, resp.ID, rows, answer, now)
	if err != nil {
		return models.SubmitResult{}, err
	}
	return models.SubmitResult{
		Outcome: models.OutcomeUpdated,
		Result:  models.ResponseWithSelections{Response: resp, Selections: selections},
	}, nil
}

// replaceSelections moves the stored selection rows of a response to the
// answer's set: retire rows no longer chosen, renumber kept rows whose
// position changed, insert newly chosen options.
func replaceSelections(ctx context.Context, q *store.Queries, responseID string, rows []models.PollResponseOption, answer answers.Answer, now time.Time) ([]models.PollResponseOption, error) {
	want := make(map[string]*int, len(answer.Selections))
	for _, sel := range answer.Selections {
		want[sel.OptionID] = sel.Position
	}

	var retired, moved []string
	var renumbered []models.PollResponseOption
	kept := make(map[string]models.PollResponseOption, len(rows))
	for _, row := range rows {
		pos, ok := want[row.OptionID]
		if !ok {
			retired = append(retired, row.ID)
			continue
		}
		if !sameInt(row.Position, pos) {
			row.Position = pos
			row.UpdatedAt = now
			moved = append(moved, row.ID)
			renumbered = append(renumbered, row)
		}
		kept[row.OptionID] = row
	}

	if err := q.RetireSelections(ctx, retired, now); err != nil {
		return nil, fmt.Errorf("failed to retire selections: %w", err)
	}
	// Positions are cleared first so a swap never collides on the position index.
	if err := q.ClearSelectionPositions(ctx, moved, now); err != nil {
		return nil, fmt.Errorf("failed to clear selection positions: %w", err)
	}
	for _, row := range renumbered {
		if err := q.UpdateSelection(ctx, row); err != nil {
			return nil, fmt.Errorf("failed to update selection: %w", err)
		}
	}

	result := make([]models.PollResponseOption, 0, len(answer.Selections))
	for _, sel := range answer.Selections {
		if row, ok := kept[sel.OptionID]; ok {
			result = append(result, row)
			continue
		}
		row := models.PollResponseOption{
			ID:         auth.GenerateID(),
			ResponseID: responseID,
			OptionID:   sel.OptionID,
			Position:   sel.Position,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := q.InsertSelection(ctx, row); err != nil {
			return nil, fmt.Errorf("failed to insert selection: %w", err)
		}
		result = append(result, row)
	}
	return result, nil
}

// resolveRace runs after a lost race rolled a submission back. If
// the state another writer left equals the caller's answer the submission is
// reported as unchanged, otherwise as a concurrency conflict.
func (s *Service) resolveRace(ctx context.Context, poll models.Poll, respondentID string, answer answers.Answer) (models.SubmitResult, error) {
	conflict := apperr.ConcurrencyConflict("response changed concurrently, resubmit against the current state")
	if poll.ID == "" {
		return models.SubmitResult{}, conflict
	}

	q := s.store.Read()
	resp, err := q.ResponseByRespondent(ctx, poll.ID, respondentID)
	if errors.Is(err, store.ErrNotFound) {
		return models.SubmitResult{}, conflict
	}
	if err != nil {
		return models.SubmitResult{}, err
	}
	rows, err := q.Selections(ctx, resp.ID)
	if err != nil {
		return models.SubmitResult{}, err
	}

	if resp.Active() && answers.FromStored(poll.QuestionType, resp, rows).Equal(answer) {
		return models.SubmitResult{
			Outcome: models.OutcomeUnchanged,
			Result:  models.ResponseWithSelections{Response: resp, Selections: rows},
		}, nil
	}
	return models.SubmitResult{}, conflict
}

func (s *Service) recordOutcome(op string, poll models.Poll, out models.SubmitResult) {
	metrics.ResponsesTotal.WithLabelValues(string(poll.QuestionType), out.Outcome).Inc()
	slog.Info("response recorded",
		"operation", op,
		"poll_id", poll.ID,
		"response_id", out.Result.Response.ID,
		"outcome", out.Outcome,
	)
}
