// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/cache"
	"github.com/danielhkuo/forum-polls/db"
	"github.com/danielhkuo/forum-polls/eligibility"
	"github.com/danielhkuo/forum-polls/metrics"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/store"
)

// Operation names used in logs and failure metrics
const (
	OpCreatePoll         = "create_poll"
	OpUpdatePoll         = "update_poll"
	OpDeletePoll         = "delete_poll"
	OpAddOption          = "add_option"
	OpUpdateOption       = "update_option"
	OpSubmitResponse     = "submit_response"
	OpReplaceSelections  = "replace_selections"
	OpWithdrawResponse   = "withdraw_response"
	OpInvalidateResponse = "invalidate_response"
	OpAppendSelection    = "append_selection"
	OpEditSelection      = "edit_selection"
	OpResults            = "results"
)

// Service is the poll engine: poll lifecycle, response engine and results.
type Service struct {
	store *store.Store
	gate  *eligibility.Gate
	cache *cache.Cache
}

// NewService wires the engine. A nil cache disables caching.
func NewService(st *store.Store, gate *eligibility.Gate, c *cache.Cache) *Service {
	if gate == nil {
		gate = eligibility.NewGate(nil)
	}
	return &Service{store: st, gate: gate, cache: c}
}

func (s *Service) now() time.Time {
	return s.gate.Now().UTC()
}

// fail records a rejected or failed operation. Internal errors are logged at
// error level, classified rejections at debug.
func (s *Service) fail(op string, err error) error {
	kind := apperr.KindOf(err)
	metrics.FailuresTotal.WithLabelValues(op, string(kind)).Inc()
	if kind == apperr.KindInternal {
		slog.Error("failed to "+op, "error", err)
	} else {
		slog.Debug("operation rejected", "operation", op, "kind", kind, "error", err)
	}
	return err
}

// raced reports whether a transaction lost to a concurrent writer: either a
// uniqueness index rejected its insert or a guarded update found the response
// already changed.
func raced(err error) bool {
	return db.IsUniqueViolation(err) || errors.Is(err, store.ErrStale)
}

// conflictOnRace surfaces a lost race as a concurrency conflict.
func conflictOnRace(err error) error {
	if raced(err) {
		return apperr.ConcurrencyConflict("response changed concurrently, reload and retry")
	}
	return err
}

// loadPost returns an active post.
func loadPost(ctx context.Context, q *store.Queries, postID string) (models.Post, error) {
	post, err := q.Post(ctx, postID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !post.Active()) {
		return models.Post{}, apperr.NotFound("post %s not found", postID)
	}
	return post, err
}

// loadPoll returns an active post and its active poll.
func loadPoll(ctx context.Context, q *store.Queries, postID string) (models.Post, models.Poll, error) {
	post, err := loadPost(ctx, q, postID)
	if err != nil {
		return models.Post{}, models.Poll{}, err
	}
	poll, err := q.PollByPost(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Post{}, models.Poll{}, apperr.NotFound("post %s has no poll", postID)
	}
	return post, poll, err
}

// voterSnapshot reads the caller's identity, reputation and credentials.
func voterSnapshot(ctx context.Context, q *store.Queries, userID string) (eligibility.Voter, error) {
	account, err := q.Account(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return eligibility.Voter{}, apperr.Ineligible("no account for %s", userID)
	}
	if err != nil {
		return eligibility.Voter{}, err
	}

	reputation, err := q.Reputation(ctx, userID)
	if err != nil {
		return eligibility.Voter{}, err
	}

	creds, err := q.ExpertCredentials(ctx, userID)
	if err != nil {
		return eligibility.Voter{}, err
	}

	return eligibility.Voter{Account: account, Reputation: reputation, Credentials: creds}, nil
}

// checkVoter runs the eligibility gate against a fresh snapshot.
func (s *Service) checkVoter(ctx context.Context, q *store.Queries, poll models.Poll, userID string) error {
	v, err := voterSnapshot(ctx, q, userID)
	if err != nil {
		return err
	}
	return s.gate.Check(poll, v)
}

func requireAuthor(post models.Post, p models.Principal) error {
	if post.AuthorID != p.ID {
		return apperr.Forbidden("only the post author can do this")
	}
	return nil
}

func requireAuthorOrModerator(post models.Post, p models.Principal) error {
	if post.AuthorID != p.ID && !p.CanModerate() {
		return apperr.Forbidden("only the post author or a moderator can do this")
	}
	return nil
}
