// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/danielhkuo/forum-polls/models"
)

var pollColumns = []any{
	"id", "post_id", "question", "question_type", "visibility_mode",
	"expert_only", "allow_vote_change", "min_voter_reputation", "min_account_age_hours",
	"min_selections", "max_selections", "scale_points", "scale_labels",
	"numeric_min", "numeric_max", "numeric_step", "numeric_unit",
	"start_at", "end_at", "created_at", "updated_at", "deleted_at",
}

func scanPoll(row scanner) (models.Poll, error) {
	var p models.Poll
	var labels *string
	err := row.Scan(
		&p.ID, &p.PostID, &p.Question, &p.QuestionType, &p.VisibilityMode,
		&p.ExpertOnly, &p.AllowVoteChange, &p.MinVoterReputation, &p.MinAccountAgeHours,
		&p.MinSelections, &p.MaxSelections, &p.ScalePoints, &labels,
		&p.NumericMin, &p.NumericMax, &p.NumericStep, &p.NumericUnit,
		&p.StartAt, &p.EndAt, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return models.Poll{}, err
	}
	if labels != nil && *labels != "" {
		if err := json.Unmarshal([]byte(*labels), &p.ScaleLabels); err != nil {
			return models.Poll{}, fmt.Errorf("failed to decode scale labels: %w", err)
		}
	}
	return p, nil
}

func encodeLabels(labels []string) (any, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scale labels: %w", err)
	}
	return string(b), nil
}

func pollRecord(p models.Poll) (goqu.Record, error) {
	labels, err := encodeLabels(p.ScaleLabels)
	if err != nil {
		return nil, err
	}
	return goqu.Record{
		"question":              p.Question,
		"visibility_mode":       p.VisibilityMode,
		"expert_only":           p.ExpertOnly,
		"allow_vote_change":     p.AllowVoteChange,
		"min_voter_reputation":  nullable(p.MinVoterReputation),
		"min_account_age_hours": nullable(p.MinAccountAgeHours),
		"min_selections":        nullable(p.MinSelections),
		"max_selections":        nullable(p.MaxSelections),
		"scale_points":          nullable(p.ScalePoints),
		"scale_labels":          labels,
		"numeric_min":           nullable(p.NumericMin),
		"numeric_max":           nullable(p.NumericMax),
		"numeric_step":          nullable(p.NumericStep),
		"numeric_unit":          nullable(p.NumericUnit),
		"start_at":              nullable(p.StartAt),
		"end_at":                nullable(p.EndAt),
		"updated_at":            p.UpdatedAt,
	}, nil
}

// PollByPost returns the active poll attached to a post.
func (q *Queries) PollByPost(ctx context.Context, postID string) (models.Poll, error) {
	row, err := q.queryRow(ctx, q.dialect.From(PollTable).Prepared(true).
		Select(pollColumns...).
		Where(goqu.C("post_id").Eq(postID), active()))
	if err != nil {
		return models.Poll{}, err
	}
	p, err := scanPoll(row)
	return p, notFound(err)
}

// InsertPoll stores a new poll row.
func (q *Queries) InsertPoll(ctx context.Context, p models.Poll) error {
	rec, err := pollRecord(p)
	if err != nil {
		return err
	}
	rec["id"] = p.ID
	rec["post_id"] = p.PostID
	rec["question_type"] = string(p.QuestionType)
	rec["created_at"] = p.CreatedAt

	_, err = q.exec(ctx, q.dialect.Insert(PollTable).Prepared(true).Rows(rec))
	return err
}

// UpdatePoll writes every mutable poll field. Type and post never change.
func (q *Queries) UpdatePoll(ctx context.Context, p models.Poll) error {
	rec, err := pollRecord(p)
	if err != nil {
		return err
	}
	return q.execOne(ctx, q.dialect.Update(PollTable).Prepared(true).
		Set(rec).
		Where(goqu.C(colID).Eq(p.ID), active()))
}

// RetirePoll soft-deletes a poll.
func (q *Queries) RetirePoll(ctx context.Context, pollID string, at time.Time) error {
	return q.execOne(ctx, q.dialect.Update(PollTable).Prepared(true).
		Set(goqu.Record{colDeletedAt: at, colUpdatedAt: at}).
		Where(goqu.C(colID).Eq(pollID), active()))
}

var optionColumns = []any{"id", "poll_id", "text", "position", "created_at", "updated_at", "deleted_at"}

func scanOption(row scanner) (models.PollOption, error) {
	var o models.PollOption
	err := row.Scan(&o.ID, &o.PollID, &o.Text, &o.Position, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt)
	return o, err
}

// Options returns the active options of a poll in position order.
func (q *Queries) Options(ctx context.Context, pollID string) ([]models.PollOption, error) {
	rows, err := q.query(ctx, q.dialect.From(PollOptionTable).Prepared(true).
		Select(optionColumns...).
		Where(goqu.C("poll_id").Eq(pollID), active()).
		Order(goqu.C("position").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []models.PollOption{}
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// OptionByID returns an active option of the given poll.
func (q *Queries) OptionByID(ctx context.Context, pollID, optionID string) (models.PollOption, error) {
	row, err := q.queryRow(ctx, q.dialect.From(PollOptionTable).Prepared(true).
		Select(optionColumns...).
		Where(goqu.C(colID).Eq(optionID), goqu.C("poll_id").Eq(pollID), active()))
	if err != nil {
		return models.PollOption{}, err
	}
	o, err := scanOption(row)
	return o, notFound(err)
}

// InsertOption stores a new option row.
func (q *Queries) InsertOption(ctx context.Context, o models.PollOption) error {
	_, err := q.exec(ctx, q.dialect.Insert(PollOptionTable).Prepared(true).Rows(goqu.Record{
		"id":         o.ID,
		"poll_id":    o.PollID,
		"text":       o.Text,
		"position":   o.Position,
		"created_at": o.CreatedAt,
		"updated_at": o.UpdatedAt,
	}))
	return err
}

// UpdateOption writes an option's text and position.
func (q *Queries) UpdateOption(ctx context.Context, o models.PollOption) error {
	return q.execOne(ctx, q.dialect.Update(PollOptionTable).Prepared(true).
		Set(goqu.Record{"text": o.Text, "position": o.Position, colUpdatedAt: o.UpdatedAt}).
		Where(goqu.C(colID).Eq(o.ID), active()))
}

// CountActiveResponses counts responses in the active state.
func (q *Queries) CountActiveResponses(ctx context.Context, pollID string) (int, error) {
	row, err := q.queryRow(ctx, q.dialect.From(PollResponseTable).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("poll_id").Eq(pollID), goqu.C("status").Eq(string(models.ResponseActive)), active()))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
