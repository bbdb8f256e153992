// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/cache"
	"github.com/danielhkuo/forum-polls/db"
	"github.com/danielhkuo/forum-polls/eligibility"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/store"
	"github.com/danielhkuo/forum-polls/testutil"
)

func intPtr(v int) *int              { return &v }
func floatPtr(v float64) *float64    { return &v }
func boolPtr(v bool) *bool           { return &v }
func strPtr(v string) *string        { return &v }
func timePtr(t time.Time) *time.Time { return &t }

type fixture struct {
	t      *testing.T
	ctx    context.Context
	conn   *sql.DB
	clock  *eligibility.FixedClock
	svc    *Service
	author models.Principal
	postID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	clock := &eligibility.FixedClock{T: time.Now().UTC().Truncate(time.Second)}
	svc := NewService(store.New(conn, db.TypeSQLite), eligibility.NewGate(clock), cache.NewWithClient(nil))

	authorID := testutil.CreateTestAccount(t, conn, "author", clock.T.Add(-1000*time.Hour))
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		conn:   conn,
		clock:  clock,
		svc:    svc,
		author: testutil.Member(authorID),
		postID: testutil.CreateTestPost(t, conn, authorID),
	}
}

// voter creates an account old enough for any age floor used in tests.
func (f *fixture) voter(name string) models.Principal {
	f.t.Helper()
	return testutil.Member(testutil.CreateTestAccount(f.t, f.conn, name, f.clock.T.Add(-1000*time.Hour)))
}

func (f *fixture) createPoll(def models.PollDefinition) models.PollWithOptions {
	f.t.Helper()
	poll, err := f.svc.CreatePoll(f.ctx, f.author, f.postID, def)
	if err != nil {
		f.t.Fatalf("CreatePoll() error = %v", err)
	}
	return poll
}

func (f *fixture) submit(p models.Principal, payload models.AnswerPayload) models.SubmitResult {
	f.t.Helper()
	res, err := f.svc.SubmitResponse(f.ctx, p, f.postID, payload)
	if err != nil {
		f.t.Fatalf("SubmitResponse() error = %v", err)
	}
	return res
}

func (f *fixture) count(query string, args ...any) int {
	f.t.Helper()
	var n int
	if err := f.conn.QueryRow(query, args...).Scan(&n); err != nil {
		f.t.Fatalf("count query failed: %v", err)
	}
	return n
}

func choiceDef(t models.QuestionType, texts ...string) models.PollDefinition {
	def := models.PollDefinition{Question: "Which one?", QuestionType: t}
	for _, text := range texts {
		def.Options = append(def.Options, models.OptionInput{Text: text})
	}
	return def
}

func optionIDs(p models.PollWithOptions) []string {
	ids := make([]string, len(p.Options))
	for i, o := range p.Options {
		ids[i] = o.ID
	}
	return ids
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if got := apperr.KindOf(err); err == nil || got != kind {
		t.Fatalf("error = %v (kind %s), want kind %s", err, got, kind)
	}
}
