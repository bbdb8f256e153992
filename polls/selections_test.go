// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"testing"
	"time"

	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/models"
)

func TestAppendSelectionMultipleChoice(t *testing.T) {
	f := newFixture(t)
	def := choiceDef(models.MultipleChoice, "A", "B", "C")
	def.MaxSelections = intPtr(2)
	poll := f.createPoll(def)
	ids := optionIDs(poll)
	v := f.voter("v1")
	respID := f.submit(v, models.AnswerPayload{OptionIDs: ids[:1]}).Result.Response.ID

	row, err := f.svc.AppendSelection(f.ctx, v, f.postID, respID, models.SelectionInput{OptionID: ids[1]})
	if err != nil {
		t.Fatalf("AppendSelection() error = %v", err)
	}
	if row.OptionID != ids[1] || row.Position != nil {
		t.Errorf("appended row = %+v", row)
	}

	tests := []struct {
		name string
		in   models.SelectionInput
		want apperr.Kind
	}{
		{"already selected", models.SelectionInput{OptionID: ids[0]}, apperr.KindPolicyConflict},
		{"over max", models.SelectionInput{OptionID: ids[2]}, apperr.KindPolicyConflict},
		{"position on multiple choice", models.SelectionInput{OptionID: ids[2], Position: intPtr(3)}, apperr.KindValidation},
		{"unknown option", models.SelectionInput{OptionID: "nope"}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AppendSelection(f.ctx, v, f.postID, respID, tt.in)
			wantKind(t, err, tt.want)
		})
	}

	if n := f.count(`SELECT COUNT(*) FROM poll_response_option WHERE response_id = $1 AND deleted_at IS NULL`, respID); n != 2 {
		t.Errorf("selection rows = %d, want 2", n)
	}
}

func TestAppendSelectionRanking(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(choiceDef(models.Ranking, "A", "B", "C", "D"))
	ids := optionIDs(poll)
	v := f.voter("v1")
	respID := f.submit(v, models.AnswerPayload{Rankings: []models.RankedChoice{{OptionID: ids[0], Position: 1}}}).Result.Response.ID

	row, err := f.svc.AppendSelection(f.ctx, v, f.postID, respID, models.SelectionInput{OptionID: ids[1]})
	if err != nil {
		t.Fatalf("AppendSelection() error = %v", err)
	}
	if row.Position == nil || *row.Position != 2 {
		t.Errorf("default position = %v, want 2", row.Position)
	}

	row, err = f.svc.AppendSelection(f.ctx, v, f.postID, respID, models.SelectionInput{OptionID: ids[2], Position: intPtr(3)})
	if err != nil {
		t.Fatalf("AppendSelection() with explicit position error = %v", err)
	}
	if row.Position == nil || *row.Position != 3 {
		t.Errorf("explicit position = %v, want 3", row.Position)
	}

	_, err = f.svc.AppendSelection(f.ctx, v, f.postID, respID, models.SelectionInput{OptionID: ids[3], Position: intPtr(1)})
	wantKind(t, err, apperr.KindPolicyConflict)

	_, err = f.svc.AppendSelection(f.ctx, v, f.postID, respID, models.SelectionInput{OptionID: ids[3], Position: intPtr(9)})
	wantKind(t, err, apperr.KindValidation)
}

func TestAppendSelectionPreconditions(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(choiceDef(models.SingleChoice, "A", "B"))
	ids := optionIDs(poll)
	v := f.voter("v1")
	respID := f.submit(v, models.AnswerPayload{OptionIDs: ids[:1]}).Result.Response.ID

	_, err := f.svc.AppendSelection(f.ctx, v, f.postID, respID, models.SelectionInput{OptionID: ids[1]})
	wantKind(t, err, apperr.KindValidation)

	g := newFixture(t)
	mc := g.createPoll(choiceDef(models.MultipleChoice, "A", "B", "C"))
	mcIDs := optionIDs(mc)
	owner := g.voter("owner")
	mcResp := g.submit(owner, models.AnswerPayload{OptionIDs: mcIDs[:1]}).Result.Response.ID

	_, err = g.svc.AppendSelection(g.ctx, g.voter("intruder"), g.postID, mcResp, models.SelectionInput{OptionID: mcIDs[1]})
	wantKind(t, err, apperr.KindForbidden)

	if _, err := g.svc.WithdrawResponse(g.ctx, owner, g.postID, mcResp); err != nil {
		t.Fatalf("WithdrawResponse() error = %v", err)
	}
	_, err = g.svc.AppendSelection(g.ctx, owner, g.postID, mcResp, models.SelectionInput{OptionID: mcIDs[1]})
	wantKind(t, err, apperr.KindPolicyConflict)
}

func TestEditSelectionSwapsRankingPositions(t *testing.T) {
	f := newFixture(t)
	poll := f.createPoll(choiceDef(models.Ranking, "A", "B", "C"))
	ids := optionIDs(poll)
	v := f.voter("v1")
	res := f.submit(v, models.AnswerPayload{Rankings: []models.RankedChoice{
		{OptionID: ids[0], Position: 1},
		{OptionID: ids[1], Position: 2},
		{OptionID: ids[2], Position: 3},
	}})

	var lastRow string
	for _, row := range res.Result.Selections {
		if row.OptionID == ids[2] {
			lastRow = row.ID
		}
	}

	edited, err := f.svc.EditSelection(f.ctx, v, f.postID, res.Result.Response.ID, lastRow, models.SelectionPatch{Position: intPtr(1)})
	if err != nil {
		t.Fatalf("EditSelection() error = %v", err)
	}

	got := map[string]int{}
	for _, row := range edited.Selections {
		got[row.OptionID] = *row.Position
	}
	want := map[string]int{ids[0]: 3, ids[1]: 2, ids[2]: 1}
	for id, pos := range want {
		if got[id] != pos {
			t.Errorf("position of %s = %d, want %d", id, got[id], pos)
		}
	}

	mine, err := f.svc.GetMyResponse(f.ctx, v, f.postID)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range mine.Selections {
		if *row.Position != want[row.OptionID] {
			t.Errorf("stored position of %s = %d, want %d", row.OptionID, *row.Position, want[row.OptionID])
		}
	}
}

func TestEditSelectionRejections(t *testing.T) {
	f := newFixture(t)
	def := choiceDef(models.MultipleChoice, "A", "B", "C")
	def.EndAt = timePtr(f.clock.T.Add(time.Hour))
	poll := f.createPoll(def)
	ids := optionIDs(poll)
	v := f.voter("v1")
	res := f.submit(v, models.AnswerPayload{OptionIDs: ids[:2]})
	respID := res.Result.Response.ID
	rowID := res.Result.Selections[0].ID

	tests := []struct {
		name  string
		rowID string
		patch models.SelectionPatch
		want  apperr.Kind
	}{
		{"duplicate option", rowID, models.SelectionPatch{OptionID: &res.Result.Selections[1].OptionID}, apperr.KindPolicyConflict},
		{"position on multiple choice", rowID, models.SelectionPatch{Position: intPtr(1)}, apperr.KindValidation},
		{"unknown option", rowID, models.SelectionPatch{OptionID: strPtr("nope")}, apperr.KindValidation},
		{"unknown row", "missing", models.SelectionPatch{OptionID: &ids[2]}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.EditSelection(f.ctx, v, f.postID, respID, tt.rowID, tt.patch)
			wantKind(t, err, tt.want)
		})
	}

	edited, err := f.svc.EditSelection(f.ctx, v, f.postID, respID, rowID, models.SelectionPatch{OptionID: &ids[2]})
	if err != nil {
		t.Fatalf("EditSelection() error = %v", err)
	}
	for _, row := range edited.Selections {
		if row.ID == rowID && row.OptionID != ids[2] {
			t.Errorf("edited option = %s, want %s", row.OptionID, ids[2])
		}
	}

	f.clock.T = f.clock.T.Add(2 * time.Hour)
	_, err = f.svc.EditSelection(f.ctx, v, f.postID, respID, rowID, models.SelectionPatch{OptionID: &ids[0]})
	wantKind(t, err, apperr.KindPolicyConflict)
}
