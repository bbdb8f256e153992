// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"

	"github.com/danielhkuo/forum-polls/models"
)

// Post returns a post, retired or not. Callers check Active.
func (q *Queries) Post(ctx context.Context, postID string) (models.Post, error) {
	row, err := q.queryRow(ctx, q.dialect.From(PostTable).Prepared(true).
		Select("id", "author_id", "title", "created_at", "deleted_at").
		Where(goqu.C(colID).Eq(postID)))
	if err != nil {
		return models.Post{}, err
	}

	var p models.Post
	err = row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.CreatedAt, &p.DeletedAt)
	return p, notFound(err)
}

// Account returns an account, deleted or not. Callers check Active.
func (q *Queries) Account(ctx context.Context, userID string) (models.Account, error) {
	row, err := q.queryRow(ctx, q.dialect.From(AccountTable).Prepared(true).
		Select("id", "username", "role", "created_at", "deleted_at").
		Where(goqu.C(colID).Eq(userID)))
	if err != nil {
		return models.Account{}, err
	}

	var a models.Account
	err = row.Scan(&a.ID, &a.Username, &a.Role, &a.CreatedAt, &a.DeletedAt)
	return a, notFound(err)
}

// Reputation returns the user's current score, 0 when no record exists.
func (q *Queries) Reputation(ctx context.Context, userID string) (int, error) {
	row, err := q.queryRow(ctx, q.dialect.From(ReputationTable).Prepared(true).
		Select("score").
		Where(goqu.C("user_id").Eq(userID)))
	if err != nil {
		return 0, err
	}

	var score int
	err = notFound(row.Scan(&score))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	return score, err
}

// ExpertCredentials returns all expert and badge records of a user.
func (q *Queries) ExpertCredentials(ctx context.Context, userID string) ([]models.ExpertCredential, error) {
	rows, err := q.query(ctx, q.dialect.From(ExpertCredentialTable).Prepared(true).
		Select("id", "user_id", "kind", "status", "valid_from", "valid_until").
		Where(goqu.C("user_id").Eq(userID)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creds := []models.ExpertCredential{}
	for rows.Next() {
		var c models.ExpertCredential
		if err := rows.Scan(&c.ID, &c.UserID, &c.Kind, &c.Status, &c.ValidFrom, &c.ValidUntil); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}
