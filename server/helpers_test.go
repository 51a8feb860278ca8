package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	passwordCost = bcrypt.MinCost
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := openDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	store := NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

type testEnv struct {
	t     *testing.T
	store *Store
	api   *api
	h     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newTestStore(t)
	files, err := newFileStore(t.TempDir(), 1024)
	require.NoError(t, err)
	a := newAPI(store, discardLogger(), tokenIssuer{secret: []byte("test-secret"), ttl: time.Hour}, files)
	return &testEnv{t: t, store: store, api: a, h: a.handler()}
}

// user creates an account directly in the store and returns a bearer token for it.
func (e *testEnv) user(name string) (User, string) {
	e.t.Helper()
	hash, err := hashPassword("secret123")
	require.NoError(e.t, err)
	u, err := e.store.CreateUser(context.Background(), name, name+"@example.com", hash)
	require.NoError(e.t, err)
	tok, _, err := e.api.tokens.Issue(u)
	require.NoError(e.t, err)
	return u, tok
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func pathf(format string, args ...any) string { return fmt.Sprintf(format, args...) }

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// createBoard, createList and createCard go through the HTTP API and fail the test on error.
func (e *testEnv) createBoard(token, title string) Board {
	e.t.Helper()
	rec := e.do("POST", "/api/boards", token, map[string]any{"title": title})
	require.Equal(e.t, 201, rec.Code, rec.Body.String())
	return decode[Board](e.t, rec)
}

func (e *testEnv) createList(token string, boardID int64, title string) List {
	e.t.Helper()
	rec := e.do("POST", pathf("/api/boards/%d/lists", boardID), token, map[string]any{"title": title})
	require.Equal(e.t, 201, rec.Code, rec.Body.String())
	return decode[List](e.t, rec)
}

func (e *testEnv) createCard(token string, listID int64, title string) Card {
	e.t.Helper()
	rec := e.do("POST", pathf("/api/lists/%d/cards", listID), token, map[string]any{"title": title})
	require.Equal(e.t, 201, rec.Code, rec.Body.String())
	return decode[Card](e.t, rec)
}

func (e *testEnv) addMember(token string, boardID, userID int64, perm string) {
	e.t.Helper()
	rec := e.do("POST", pathf("/api/boards/%d/members", boardID), token, map[string]any{"user_id": userID, "permission": perm})
	require.Equal(e.t, 201, rec.Code, rec.Body.String())
}

func (e *testEnv) activity(boardID int64) []Activity {
	e.t.Helper()
	items, err := e.store.RecentActivity(context.Background(), boardID, "")
	require.NoError(e.t, err)
	return items
}

func activityTypesOf(items []Activity) []ActivityType {
	out := make([]ActivityType, len(items))
	for i, a := range items {
		out[i] = a.Type
	}
	return out
}
