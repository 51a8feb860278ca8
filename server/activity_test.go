package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBoard(t *testing.T, store *Store) (User, Board) {
	t.Helper()
	ctx := context.Background()
	u, err := store.CreateUser(ctx, "ann", "ann@example.com", "x")
	require.NoError(t, err)
	b, err := store.CreateBoard(ctx, u.ID, "Board", "")
	require.NoError(t, err)
	return u, b
}

func TestRecorderRejectsUnknownType(t *testing.T) {
	store := newTestStore(t)
	u, b := seedBoard(t, store)
	rec := NewRecorder(store, discardLogger())

	err := rec.Record(context.Background(), b.ID, u.ID, ActivityType("card_exploded"), "boom")
	require.Error(t, err)
	assert.True(t, hasCategory(err, goerrors.CategoryValidation))

	items, err := rec.Recent(context.Background(), b.ID, "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRecorderRecentIsBoundedAndNewestFirst(t *testing.T) {
	store := newTestStore(t)
	u, b := seedBoard(t, store)
	rec := NewRecorder(store, discardLogger())
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		require.NoError(t, rec.Record(ctx, b.ID, u.ID, ActivityCardCreated, "card"))
	}
	items, err := rec.Recent(ctx, b.ID, "")
	require.NoError(t, err)
	require.Len(t, items, activityLimit)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt))
		assert.Less(t, items[i].ID, items[i-1].ID)
	}
}

func TestRecorderFiltersByType(t *testing.T) {
	store := newTestStore(t)
	u, b := seedBoard(t, store)
	rec := NewRecorder(store, discardLogger())
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, b.ID, u.ID, ActivityCardCreated, "a"))
	require.NoError(t, rec.Record(ctx, b.ID, u.ID, ActivityCardMoved, "b"))
	require.NoError(t, rec.Record(ctx, b.ID, u.ID, ActivityCardCreated, "c"))

	items, err := rec.Recent(ctx, b.ID, ActivityCardCreated)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].Details)
	assert.Equal(t, "a", items[1].Details)

	_, err = rec.Recent(ctx, b.ID, ActivityType("nope"))
	assert.True(t, hasCategory(err, goerrors.CategoryValidation))
}

type failingActivityStore struct{}

func (failingActivityStore) InsertActivity(context.Context, *Activity) error {
	return errors.New("disk full")
}

func (failingActivityStore) RecentActivity(context.Context, int64, ActivityType) ([]Activity, error) {
	return nil, nil
}

func TestRecordBestEffortLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(failingActivityStore{}, slog.New(slog.NewTextHandler(&buf, nil)))

	rec.RecordBestEffort(context.Background(), 1, 1, ActivityCardCreated, "x")
	assert.Contains(t, buf.String(), "record activity")
	assert.Contains(t, buf.String(), "disk full")
}

func TestParseActivityType(t *testing.T) {
	typ, err := ParseActivityType("card_moved")
	require.NoError(t, err)
	assert.Equal(t, ActivityCardMoved, typ)

	_, err = ParseActivityType("card_teleported")
	assert.True(t, hasCategory(err, goerrors.CategoryValidation))
	assert.Len(t, activityTypes, 20)
}
