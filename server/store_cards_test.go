package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotFor(t *testing.T) {
	cases := []struct {
		name      string
		positions []int64
		index     int
		want      int64
		ok        bool
	}{
		{"empty", nil, 0, 1000, true},
		{"append", []int64{1000, 2000}, 2, 3000, true},
		{"append past end", []int64{1000}, 7, 2000, true},
		{"front", []int64{1000, 2000}, 0, 500, true},
		{"negative index is front", []int64{1000}, -3, 500, true},
		{"front without room", []int64{1, 2}, 0, 0, false},
		{"middle", []int64{1000, 2000}, 1, 1500, true},
		{"middle without room", []int64{1000, 1001}, 1, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := slotFor(tc.positions, tc.index)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func cardTitles(t *testing.T, store *Store, listID int64) []string {
	t.Helper()
	cards, err := store.CardsByList(context.Background(), listID, false)
	require.NoError(t, err)
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Title
	}
	return out
}

func TestMoveCardOrdering(t *testing.T) {
	store := newTestStore(t)
	_, b := seedBoard(t, store)
	ctx := context.Background()
	l1, err := store.CreateList(ctx, b.ID, "L1")
	require.NoError(t, err)
	l2, err := store.CreateList(ctx, b.ID, "L2")
	require.NoError(t, err)

	a, err := store.CreateCard(ctx, l1.ID, cardInput{Title: "a"})
	require.NoError(t, err)
	_, err = store.CreateCard(ctx, l1.ID, cardInput{Title: "b"})
	require.NoError(t, err)
	c, err := store.CreateCard(ctx, l1.ID, cardInput{Title: "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cardTitles(t, store, l1.ID))

	_, err = store.MoveCard(ctx, c.ID, l1.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, cardTitles(t, store, l1.ID))

	moved, err := store.MoveCard(ctx, a.ID, l2.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, l2.ID, moved.ListID)
	assert.Equal(t, []string{"c", "b"}, cardTitles(t, store, l1.ID))
	assert.Equal(t, []string{"a"}, cardTitles(t, store, l2.ID))
}

func TestMoveCardRenumbersWhenCrowded(t *testing.T) {
	store := newTestStore(t)
	_, b := seedBoard(t, store)
	ctx := context.Background()
	l, err := store.CreateList(ctx, b.ID, "L")
	require.NoError(t, err)

	x, err := store.CreateCard(ctx, l.ID, cardInput{Title: "x"})
	require.NoError(t, err)
	y, err := store.CreateCard(ctx, l.ID, cardInput{Title: "y"})
	require.NoError(t, err)
	z, err := store.CreateCard(ctx, l.ID, cardInput{Title: "z"})
	require.NoError(t, err)

	// squeeze x and y together so there is no gap between them
	_, err = store.db.NewUpdate().Model((*Card)(nil)).Set("pos = ?", 1).Where("id = ?", x.ID).Exec(ctx)
	require.NoError(t, err)
	_, err = store.db.NewUpdate().Model((*Card)(nil)).Set("pos = ?", 2).Where("id = ?", y.ID).Exec(ctx)
	require.NoError(t, err)

	_, err = store.MoveCard(ctx, z.ID, l.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "z", "y"}, cardTitles(t, store, l.ID))

	cards, err := store.CardsByList(ctx, l.ID, false)
	require.NoError(t, err)
	seen := map[int64]bool{}
	for _, c := range cards {
		assert.False(t, seen[c.Pos], "duplicate pos %d", c.Pos)
		seen[c.Pos] = true
	}
}

func TestMoveList(t *testing.T) {
	store := newTestStore(t)
	_, b := seedBoard(t, store)
	ctx := context.Background()
	var ids []int64
	for _, title := range []string{"one", "two", "three"} {
		l, err := store.CreateList(ctx, b.ID, title)
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}
	_, err := store.MoveList(ctx, ids[2], 0)
	require.NoError(t, err)

	lists, err := store.ListsByBoard(ctx, b.ID)
	require.NoError(t, err)
	got := []string{}
	for _, l := range lists {
		got = append(got, l.Title)
	}
	assert.Equal(t, []string{"three", "one", "two"}, got)
}

func TestDeleteBoardCascades(t *testing.T) {
	store := newTestStore(t)
	u, b := seedBoard(t, store)
	ctx := context.Background()
	l, err := store.CreateList(ctx, b.ID, "L")
	require.NoError(t, err)
	c, err := store.CreateCard(ctx, l.ID, cardInput{Title: "c"})
	require.NoError(t, err)
	require.NoError(t, NewRecorder(store, discardLogger()).Record(ctx, b.ID, u.ID, ActivityCardCreated, "c"))

	require.NoError(t, store.DeleteBoard(ctx, b.ID))

	_, err = store.GetList(ctx, l.ID)
	assert.True(t, isNotFound(err))
	_, err = store.GetCard(ctx, c.ID)
	assert.True(t, isNotFound(err))
	items, err := store.RecentActivity(ctx, b.ID, "")
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.True(t, isNotFound(store.DeleteBoard(ctx, b.ID)))
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.CreateUser(ctx, "sam", "sam@example.com", "x")
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, "sam", "other@example.com", "x")
	assert.ErrorContains(t, err, "username already taken")
	_, err = store.CreateUser(ctx, "sammy", "sam@example.com", "x")
	assert.ErrorContains(t, err, "email already registered")
}

func TestBoardStats(t *testing.T) {
	store := newTestStore(t)
	_, b := seedBoard(t, store)
	ctx := context.Background()
	l1, err := store.CreateList(ctx, b.ID, "L1")
	require.NoError(t, err)
	_, err = store.CreateList(ctx, b.ID, "L2")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = store.CreateCard(ctx, l1.ID, cardInput{Title: "c"})
		require.NoError(t, err)
	}
	archived, err := store.CreateCard(ctx, l1.ID, cardInput{Title: "old"})
	require.NoError(t, err)
	_, err = store.SetCardArchived(ctx, archived.ID, true)
	require.NoError(t, err)

	st, err := store.BoardStats(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalLists)
	assert.Equal(t, 3, st.TotalCards)
	require.Len(t, st.Lists, 2)
	assert.Equal(t, "L1", st.Lists[0].Title)
	assert.Equal(t, 3, st.Lists[0].CardCount)
	assert.Equal(t, 0, st.Lists[1].CardCount)
}
