// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/forum-polls/auth"
	"github.com/danielhkuo/forum-polls/cliparse"
	"github.com/danielhkuo/forum-polls/db"
	"github.com/danielhkuo/forum-polls/models"
)

// TestJWTSecret signs every token minted by tests
const TestJWTSecret = "test-jwt-secret"

// SetupTestDB creates a fresh on-disk sqlite database with the full schema.
// It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := "file:" + filepath.Join(t.TempDir(), "polls.db") + "?_pragma=foreign_keys(1)"
	conn, err := db.Open(context.Background(), db.TypeSQLite, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.TypeSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  "file::memory:",
		DatabaseType: db.TypeSQLite,
		JWTSecret:    TestJWTSecret,
		LogLevel:     "error",
	}
}

// CreateTestAccount inserts an account created at createdAt and returns its ID
func CreateTestAccount(t *testing.T, conn *sql.DB, username string, createdAt time.Time) string {
	t.Helper()

	id := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO account (id, username, role, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, username, models.RoleMember, createdAt.UTC())
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}
	return id
}

// DeleteTestAccount marks an account deleted
func DeleteTestAccount(t *testing.T, conn *sql.DB, userID string) {
	t.Helper()

	if _, err := conn.Exec(`UPDATE account SET deleted_at = $1 WHERE id = $2`, time.Now().UTC(), userID); err != nil {
		t.Fatalf("Failed to delete test account: %v", err)
	}
}

// SetTestReputation writes a reputation score for a user
func SetTestReputation(t *testing.T, conn *sql.DB, userID string, score int) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO reputation (user_id, score, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at
	`, userID, score, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to set test reputation: %v", err)
	}
}

// AddTestCredential gives a user an expert credential with an open validity window
func AddTestCredential(t *testing.T, conn *sql.DB, userID, kind, status string) string {
	t.Helper()

	id := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO expert_credential (id, user_id, kind, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, userID, kind, status, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test credential: %v", err)
	}
	return id
}

// CreateTestPost inserts a post by authorID and returns its ID
func CreateTestPost(t *testing.T, conn *sql.DB, authorID string) string {
	t.Helper()

	id := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO post (id, author_id, title, created_at)
		VALUES ($1, $2, 'Test Post', $3)
	`, id, authorID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test post: %v", err)
	}
	return id
}

// Member returns the principal of a regular account
func Member(userID string) models.Principal {
	return models.Principal{ID: userID, Type: auth.PrincipalUser, Role: models.RoleMember}
}

// Moderator returns the principal of a moderator account
func Moderator(userID string) models.Principal {
	return models.Principal{ID: userID, Type: auth.PrincipalUser, Role: models.RoleModerator}
}

// BearerToken signs a token for p and returns the Authorization header map
func BearerToken(t *testing.T, p models.Principal) map[string]string {
	t.Helper()

	token, err := auth.GenerateToken(TestJWTSecret, p, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
