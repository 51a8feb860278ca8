package main

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccess struct {
	owners  map[int64]int64
	members map[[2]int64]PermissionLevel
	err     error
}

func (f fakeAccess) BoardOwner(_ context.Context, boardID int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	owner, ok := f.owners[boardID]
	if !ok {
		return 0, notFound("board")
	}
	return owner, nil
}

func (f fakeAccess) MemberPermission(_ context.Context, boardID, userID int64) (PermissionLevel, error) {
	perm, ok := f.members[[2]int64{boardID, userID}]
	if !ok {
		return "", notFound("member")
	}
	return perm, nil
}

func TestEvaluate(t *testing.T) {
	src := fakeAccess{
		owners: map[int64]int64{1: 10},
		members: map[[2]int64]PermissionLevel{
			{1, 20}: PermissionView,
			{1, 30}: PermissionEdit,
			// a stale row for the owner must not downgrade them
			{1, 10}: PermissionView,
		},
	}
	ev := NewEvaluator(src)
	ctx := context.Background()

	cases := []struct {
		name    string
		user    int64
		board   int64
		want    Level
		fails   bool
		wantCat goerrors.Category
	}{
		{name: "owner", user: 10, board: 1, want: LevelOwner},
		{name: "view member", user: 20, board: 1, want: LevelView},
		{name: "edit member", user: 30, board: 1, want: LevelEdit},
		{name: "stranger", user: 40, board: 1, fails: true, wantCat: goerrors.CategoryAuthz},
		{name: "missing board", user: 10, board: 99, fails: true, wantCat: goerrors.CategoryNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lvl, err := ev.Evaluate(ctx, Principal{ID: tc.user}, tc.board)
			if tc.fails {
				require.Error(t, err)
				assert.True(t, hasCategory(err, tc.wantCat), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, lvl)
		})
	}
}

func TestEvaluatePassesThroughStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewEvaluator(fakeAccess{err: boom}).Evaluate(context.Background(), Principal{ID: 1}, 1)
	require.ErrorIs(t, err, boom)
}

func TestLevelCapabilities(t *testing.T) {
	assert.False(t, LevelNone.CanRead())
	assert.False(t, LevelNone.CanWrite())
	assert.True(t, LevelView.CanRead())
	assert.False(t, LevelView.CanWrite())
	assert.True(t, LevelEdit.CanWrite())
	assert.True(t, LevelOwner.CanRead())
	assert.True(t, LevelOwner.CanWrite())
}

func TestRequire(t *testing.T) {
	ev := NewEvaluator(fakeAccess{
		owners:  map[int64]int64{1: 10},
		members: map[[2]int64]PermissionLevel{{1, 30}: PermissionEdit},
	})
	ctx := context.Background()

	_, err := ev.Require(ctx, Principal{ID: 30}, 1, LevelEdit)
	require.NoError(t, err)

	lvl, err := ev.Require(ctx, Principal{ID: 30}, 1, LevelOwner)
	require.Error(t, err)
	assert.True(t, hasCategory(err, goerrors.CategoryAuthz))
	assert.Equal(t, LevelEdit, lvl)
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("view")
	require.NoError(t, err)
	assert.Equal(t, PermissionView, p)

	p, err = ParsePermission("edit")
	require.NoError(t, err)
	assert.Equal(t, PermissionEdit, p)

	for _, bad := range []string{"owner", "admin", "", "VIEW"} {
		_, err := ParsePermission(bad)
		assert.True(t, hasCategory(err, goerrors.CategoryValidation), bad)
	}
}

func TestEvaluateAgainstStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	owner, err := store.CreateUser(ctx, "owner", "owner@example.com", "x")
	require.NoError(t, err)
	other, err := store.CreateUser(ctx, "other", "other@example.com", "x")
	require.NoError(t, err)
	b, err := store.CreateBoard(ctx, owner.ID, "Board", "")
	require.NoError(t, err)

	ev := NewEvaluator(store)
	lvl, err := ev.Evaluate(ctx, Principal{ID: owner.ID}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, LevelOwner, lvl)

	_, err = ev.Evaluate(ctx, Principal{ID: other.ID}, b.ID)
	assert.True(t, hasCategory(err, goerrors.CategoryAuthz))

	_, err = store.AddMember(ctx, b.ID, other.ID, PermissionView)
	require.NoError(t, err)
	lvl, err = ev.Evaluate(ctx, Principal{ID: other.ID}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, LevelView, lvl)

	_, err = store.UpdateMember(ctx, b.ID, other.ID, PermissionEdit)
	require.NoError(t, err)
	lvl, err = ev.Evaluate(ctx, Principal{ID: other.ID}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, LevelEdit, lvl)
}
