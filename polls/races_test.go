// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"errors"
	"testing"

	"github.com/danielhkuo/forum-polls/answers"
	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/store"
)

const activeSelections = `
	SELECT COUNT(*) FROM poll_response_option
	WHERE response_id = $1 AND deleted_at IS NULL`

func (f *fixture) normalize(poll models.PollWithOptions, payload models.AnswerPayload) answers.Answer {
	f.t.Helper()
	a, err := answers.Normalize(poll.Poll, poll.Options, payload)
	if err != nil {
		f.t.Fatalf("Normalize() error = %v", err)
	}
	return a
}

// A writer that read the response and its rows before another writer
// committed must fail instead of merging its stale rows into the new state.
func TestStaleSelectionsAreRejected(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(choiceDef(models.SingleChoice, "X", "Y", "Z"))
	ids := optionIDs(poll)
	v := f.voter("v1")

	f.submit(v, models.AnswerPayload{OptionIDs: ids[:1]})

	// Writer B snapshots the response while it still holds X.
	q := f.svc.store.Read()
	staleResp, err := q.ResponseByRespondent(f.ctx, poll.Poll.ID, v.ID)
	if err != nil {
		t.Fatalf("ResponseByRespondent() error = %v", err)
	}
	staleRows, err := q.Selections(f.ctx, staleResp.ID)
	if err != nil {
		t.Fatalf("Selections() error = %v", err)
	}

	// Writer A moves the answer to Y and commits first.
	if res := f.submit(v, models.AnswerPayload{OptionIDs: ids[1:2]}); res.Outcome != models.OutcomeUpdated {
		t.Fatalf("writer A outcome = %s, want updated", res.Outcome)
	}

	// Writer B resumes with its snapshot and tries to switch to Z.
	toZ := f.normalize(poll, models.AnswerPayload{OptionIDs: ids[2:]})
	err = f.svc.store.InTx(f.ctx, func(q *store.Queries) error {
		resp := staleResp
		resp.UpdatedAt = f.clock.T
		if err := q.UpdateResponse(f.ctx, &resp); err != nil {
			return err
		}
		_, err := replaceSelections(f.ctx, q, resp.ID, staleRows, toZ, f.clock.T)
		return err
	})
	if !errors.Is(err, store.ErrStale) {
		t.Fatalf("stale writer error = %v, want ErrStale", err)
	}
	wantKind(t, conflictOnRace(err), apperr.KindConcurrencyConflict)

	// The same interleaving through apply.
	err = f.svc.store.InTx(f.ctx, func(q *store.Queries) error {
		resp := staleResp
		_, err := f.svc.apply(f.ctx, q, poll.Poll, v.ID, &resp, toZ)
		return err
	})
	if !errors.Is(err, store.ErrStale) {
		t.Fatalf("apply() with stale response error = %v, want ErrStale", err)
	}

	if n := f.count(activeSelections, staleResp.ID); n != 1 {
		t.Errorf("active selection rows = %d, want 1", n)
	}
	mine, err := f.svc.GetMyResponse(f.ctx, v, f.postID)
	if err != nil {
		t.Fatalf("GetMyResponse() error = %v", err)
	}
	if len(mine.Selections) != 1 || mine.Selections[0].OptionID != ids[1] {
		t.Errorf("selections = %+v, want only Y", mine.Selections)
	}
}

// Two appends racing on a response must not push it past max_selections.
func TestStaleAppendIsRejected(t *testing.T) {
	f := newFixture(t)
	def := choiceDef(models.MultipleChoice, "A", "B", "C")
	def.MaxSelections = intPtr(2)
	poll := f.createPoll(def)
	ids := optionIDs(poll)
	v := f.voter("v1")

	respID := f.submit(v, models.AnswerPayload{OptionIDs: ids[:1]}).Result.Response.ID
	staleResp, err := f.svc.store.Read().ResponseByID(f.ctx, poll.Poll.ID, respID)
	if err != nil {
		t.Fatalf("ResponseByID() error = %v", err)
	}

	if _, err := f.svc.AppendSelection(f.ctx, v, f.postID, respID, models.SelectionInput{OptionID: ids[1]}); err != nil {
		t.Fatalf("AppendSelection() error = %v", err)
	}

	// The second appender validated the bound against one row and now writes.
	err = f.svc.store.InTx(f.ctx, func(q *store.Queries) error {
		resp := staleResp
		return q.UpdateResponse(f.ctx, &resp)
	})
	if !errors.Is(err, store.ErrStale) {
		t.Fatalf("stale append error = %v, want ErrStale", err)
	}
	if n := f.count(activeSelections, respID); n != 2 {
		t.Errorf("active selection rows = %d, want 2", n)
	}

	// Once serialized, the bound is enforced against the current rows.
	_, err = f.svc.AppendSelection(f.ctx, v, f.postID, respID, models.SelectionInput{OptionID: ids[2]})
	wantKind(t, err, apperr.KindPolicyConflict)
}

func TestEveryResponseWriteBumpsVersion(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(choiceDef(models.Ranking, "A", "B", "C"))
	ids := optionIDs(poll)
	v := f.voter("v1")

	res := f.submit(v, models.AnswerPayload{Rankings: []models.RankedChoice{{OptionID: ids[0], Position: 1}}})
	respID := res.Result.Response.ID
	if res.Result.Response.Version != 0 {
		t.Errorf("new response version = %d, want 0", res.Result.Response.Version)
	}

	row, err := f.svc.AppendSelection(f.ctx, v, f.postID, respID, models.SelectionInput{OptionID: ids[1]})
	if err != nil {
		t.Fatalf("AppendSelection() error = %v", err)
	}
	edited, err := f.svc.EditSelection(f.ctx, v, f.postID, respID, row.ID, models.SelectionPatch{Position: intPtr(1)})
	if err != nil {
		t.Fatalf("EditSelection() error = %v", err)
	}
	if edited.Response.Version != 2 {
		t.Errorf("version after append and edit = %d, want 2", edited.Response.Version)
	}

	withdrawn, err := f.svc.WithdrawResponse(f.ctx, v, f.postID, respID)
	if err != nil {
		t.Fatalf("WithdrawResponse() error = %v", err)
	}
	if withdrawn.Version != 3 {
		t.Errorf("version after withdraw = %d, want 3", withdrawn.Version)
	}
}

func TestResolveRace(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(choiceDef(models.MultipleChoice, "A", "B", "C"))
	ids := optionIDs(poll)
	v := f.voter("v1")

	t.Run("no stored response", func(t *testing.T) {
		_, err := f.svc.resolveRace(f.ctx, poll.Poll, v.ID, f.normalize(poll, models.AnswerPayload{OptionIDs: ids[:1]}))
		wantKind(t, err, apperr.KindConcurrencyConflict)
	})

	t.Run("poll never loaded", func(t *testing.T) {
		_, err := f.svc.resolveRace(f.ctx, models.Poll{}, v.ID, answers.Answer{})
		wantKind(t, err, apperr.KindConcurrencyConflict)
	})

	f.submit(v, models.AnswerPayload{OptionIDs: ids[:2]})

	t.Run("other writer stored the same answer", func(t *testing.T) {
		same := f.normalize(poll, models.AnswerPayload{OptionIDs: []string{ids[1], ids[0]}})
		res, err := f.svc.resolveRace(f.ctx, poll.Poll, v.ID, same)
		if err != nil {
			t.Fatalf("resolveRace() error = %v", err)
		}
		if res.Outcome != models.OutcomeUnchanged || len(res.Result.Selections) != 2 {
			t.Errorf("resolveRace() = %+v, want unchanged with 2 selections", res)
		}
	})

	t.Run("other writer stored a different answer", func(t *testing.T) {
		other := f.normalize(poll, models.AnswerPayload{OptionIDs: ids[2:]})
		_, err := f.svc.resolveRace(f.ctx, poll.Poll, v.ID, other)
		wantKind(t, err, apperr.KindConcurrencyConflict)
	})

	t.Run("stored answer withdrawn", func(t *testing.T) {
		mine, err := f.svc.GetMyResponse(f.ctx, v, f.postID)
		if err != nil {
			t.Fatalf("GetMyResponse() error = %v", err)
		}
		if _, err := f.svc.WithdrawResponse(f.ctx, v, f.postID, mine.Response.ID); err != nil {
			t.Fatalf("WithdrawResponse() error = %v", err)
		}
		_, err = f.svc.resolveRace(f.ctx, poll.Poll, v.ID, f.normalize(poll, models.AnswerPayload{OptionIDs: ids[:2]}))
		wantKind(t, err, apperr.KindConcurrencyConflict)
	})
}

func TestWithdrawRetiresSelections(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(choiceDef(models.MultipleChoice, "A", "B", "C"))
	ids := optionIDs(poll)
	v := f.voter("v1")

	respID := f.submit(v, models.AnswerPayload{OptionIDs: ids[:2]}).Result.Response.ID
	if _, err := f.svc.WithdrawResponse(f.ctx, v, f.postID, respID); err != nil {
		t.Fatalf("WithdrawResponse() error = %v", err)
	}

	if n := f.count(activeSelections, respID); n != 0 {
		t.Errorf("active selection rows after withdraw = %d, want 0", n)
	}
	mine, err := f.svc.GetMyResponse(f.ctx, v, f.postID)
	if err != nil {
		t.Fatalf("GetMyResponse() error = %v", err)
	}
	if mine.Response.Status != models.ResponseWithdrawn || len(mine.Selections) != 0 {
		t.Errorf("GetMyResponse() = %+v, want withdrawn with no selections", mine)
	}

	back := f.submit(v, models.AnswerPayload{OptionIDs: ids[:2]})
	if back.Outcome != models.OutcomeUpdated || len(back.Result.Selections) != 2 {
		t.Errorf("resubmission = %+v", back)
	}
	if n := f.count(activeSelections, respID); n != 2 {
		t.Errorf("active selection rows after resubmission = %d, want 2", n)
	}
}
