// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/danielhkuo/forum-polls/models"
)

var responseColumns = []any{
	"id", "poll_id", "respondent_id", "status", "likert_value", "numeric_value",
	"withdrawn_at", "version", "created_at", "updated_at", "deleted_at",
}

func scanResponse(row scanner) (models.PollResponse, error) {
	var r models.PollResponse
	err := row.Scan(
		&r.ID, &r.PollID, &r.RespondentID, &r.Status, &r.LikertValue, &r.NumericValue,
		&r.WithdrawnAt, &r.Version, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt,
	)
	return r, err
}

// ResponseByRespondent returns the respondent's response to a poll in any status.
func (q *Queries) ResponseByRespondent(ctx context.Context, pollID, respondentID string) (models.PollResponse, error) {
	row, err := q.queryRow(ctx, q.dialect.From(PollResponseTable).Prepared(true).
		Select(responseColumns...).
		Where(goqu.C("poll_id").Eq(pollID), goqu.C("respondent_id").Eq(respondentID), active()))
	if err != nil {
		return models.PollResponse{}, err
	}
	r, err := scanResponse(row)
	return r, notFound(err)
}

// ResponseByID returns a response of the given poll.
func (q *Queries) ResponseByID(ctx context.Context, pollID, responseID string) (models.PollResponse, error) {
	row, err := q.queryRow(ctx, q.dialect.From(PollResponseTable).Prepared(true).
		Select(responseColumns...).
		Where(goqu.C(colID).Eq(responseID), goqu.C("poll_id").Eq(pollID), active()))
	if err != nil {
		return models.PollResponse{}, err
	}
	r, err := scanResponse(row)
	return r, notFound(err)
}

// ActiveResponses returns the poll's responses in the active state.
func (q *Queries) ActiveResponses(ctx context.Context, pollID string) ([]models.PollResponse, error) {
	rows, err := q.query(ctx, q.dialect.From(PollResponseTable).Prepared(true).
		Select(responseColumns...).
		Where(goqu.C("poll_id").Eq(pollID), goqu.C("status").Eq(string(models.ResponseActive)), active()).
		Order(goqu.C("created_at").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []models.PollResponse{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// InsertResponse stores a new response row.
func (q *Queries) InsertResponse(ctx context.Context, r models.PollResponse) error {
	_, err := q.exec(ctx, q.dialect.Insert(PollResponseTable).Prepared(true).Rows(goqu.Record{
		"id":            r.ID,
		"poll_id":       r.PollID,
		"respondent_id": r.RespondentID,
		"status":        string(r.Status),
		"likert_value":  nullable(r.LikertValue),
		"numeric_value": nullable(r.NumericValue),
		"withdrawn_at":  nullable(r.WithdrawnAt),
		"version":       r.Version,
		"created_at":    r.CreatedAt,
		"updated_at":    r.UpdatedAt,
	}))
	return err
}

// UpdateResponse writes status, scalar answers and timestamps, provided the
// stored version still equals r.Version. On success r.Version is bumped; a
// row changed by another writer since r was read yields ErrStale.
func (q *Queries) UpdateResponse(ctx context.Context, r *models.PollResponse) error {
	err := q.execOne(ctx, q.dialect.Update(PollResponseTable).Prepared(true).
		Set(goqu.Record{
			"status":        string(r.Status),
			"likert_value":  nullable(r.LikertValue),
			"numeric_value": nullable(r.NumericValue),
			"withdrawn_at":  nullable(r.WithdrawnAt),
			"version":       r.Version + 1,
			colUpdatedAt:    r.UpdatedAt,
		}).
		Where(goqu.C(colID).Eq(r.ID), goqu.C("version").Eq(r.Version), active()))
	if errors.Is(err, ErrNotFound) {
		return ErrStale
	}
	if err != nil {
		return err
	}
	r.Version++
	return nil
}

var selectionColumns = []any{"id", "response_id", "option_id", "position", "created_at", "updated_at", "deleted_at"}

func scanSelection(row scanner) (models.PollResponseOption, error) {
	var s models.PollResponseOption
	err := row.Scan(&s.ID, &s.ResponseID, &s.OptionID, &s.Position, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	return s, err
}

// Selections returns the active selection rows of a response.
func (q *Queries) Selections(ctx context.Context, responseID string) ([]models.PollResponseOption, error) {
	rows, err := q.query(ctx, q.dialect.From(PollResponseOptionTable).Prepared(true).
		Select(selectionColumns...).
		Where(goqu.C("response_id").Eq(responseID), active()).
		Order(goqu.C("position").Asc(), goqu.C("option_id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	selections := []models.PollResponseOption{}
	for rows.Next() {
		s, err := scanSelection(rows)
		if err != nil {
			return nil, err
		}
		selections = append(selections, s)
	}
	return selections, rows.Err()
}

// PollSelections returns every active selection row that belongs to an
// active response of the poll.
func (q *Queries) PollSelections(ctx context.Context, pollID string) ([]models.PollResponseOption, error) {
	ro := PollResponseOptionTable.As("ro")
	r := PollResponseTable.As("r")

	rows, err := q.query(ctx, q.dialect.From(ro).Prepared(true).
		Join(r, goqu.On(goqu.I("ro.response_id").Eq(goqu.I("r.id")))).
		Select(
			goqu.I("ro.id"), goqu.I("ro.response_id"), goqu.I("ro.option_id"), goqu.I("ro.position"),
			goqu.I("ro.created_at"), goqu.I("ro.updated_at"), goqu.I("ro.deleted_at"),
		).
		Where(
			goqu.I("r.poll_id").Eq(pollID),
			goqu.I("r.status").Eq(string(models.ResponseActive)),
			goqu.I("r.deleted_at").IsNull(),
			goqu.I("ro.deleted_at").IsNull(),
		))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	selections := []models.PollResponseOption{}
	for rows.Next() {
		s, err := scanSelection(rows)
		if err != nil {
			return nil, err
		}
		selections = append(selections, s)
	}
	return selections, rows.Err()
}

// InsertSelection stores a new selection row.
func (q *Queries) InsertSelection(ctx context.Context, s models.PollResponseOption) error {
	_, err := q.exec(ctx, q.dialect.Insert(PollResponseOptionTable).Prepared(true).Rows(goqu.Record{
		"id":          s.ID,
		"response_id": s.ResponseID,
		"option_id":   s.OptionID,
		"position":    nullable(s.Position),
		"created_at":  s.CreatedAt,
		"updated_at":  s.UpdatedAt,
	}))
	return err
}

// UpdateSelection writes a selection row's option and position.
func (q *Queries) UpdateSelection(ctx context.Context, s models.PollResponseOption) error {
	return q.execOne(ctx, q.dialect.Update(PollResponseOptionTable).Prepared(true).
		Set(goqu.Record{
			"option_id":  s.OptionID,
			"position":   nullable(s.Position),
			colUpdatedAt: s.UpdatedAt,
		}).
		Where(goqu.C(colID).Eq(s.ID), active()))
}

// ClearSelectionPositions nulls the positions of the given rows so they can be
// renumbered without tripping the per-response position index.
func (q *Queries) ClearSelectionPositions(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.exec(ctx, q.dialect.Update(PollResponseOptionTable).Prepared(true).
		Set(goqu.Record{"position": nil, colUpdatedAt: at}).
		Where(goqu.C(colID).In(ids), active()))
	return err
}

// RetireSelections soft-deletes the given selection rows.
func (q *Queries) RetireSelections(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.exec(ctx, q.dialect.Update(PollResponseOptionTable).Prepared(true).
		Set(goqu.Record{colDeletedAt: at, colUpdatedAt: at}).
		Where(goqu.C(colID).In(ids), active()))
	return err
}
