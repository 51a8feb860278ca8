package main

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchScopesToReadableBoards(t *testing.T) {
	e := newTestEnv(t)
	_, aliceTok := e.user("alice")
	bob, bobTok := e.user("bob")

	mine := e.createBoard(aliceTok, "Roadmap Q3")
	l := e.createList(aliceTok, mine.ID, "Roadmap items")
	c := e.createCard(aliceTok, l.ID, "Publish ROADMAP")
	hidden := e.createBoard(aliceTok, "Secret roadmap")

	rec := e.do("GET", "/api/search?q=roadmap", aliceTok, nil)
	require.Equal(t, 200, rec.Code)
	got := decode[[]SearchResult](t, rec)
	assert.ElementsMatch(t, []SearchResult{
		{Type: "board", ID: mine.ID, Title: "Roadmap Q3", BoardID: mine.ID},
		{Type: "board", ID: hidden.ID, Title: "Secret roadmap", BoardID: hidden.ID},
		{Type: "list", ID: l.ID, Title: "Roadmap items", BoardID: mine.ID},
		{Type: "card", ID: c.ID, Title: "Publish ROADMAP", BoardID: mine.ID},
	}, got)

	rec = e.do("GET", "/api/search?q=roadmap", bobTok, nil)
	require.Equal(t, 200, rec.Code)
	assert.Empty(t, decode[[]SearchResult](t, rec))

	e.addMember(aliceTok, mine.ID, bob.ID, "view")
	rec = e.do("GET", "/api/search?q=ROADMAP", bobTok, nil)
	require.Equal(t, 200, rec.Code)
	got = decode[[]SearchResult](t, rec)
	assert.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, mine.ID, r.BoardID)
	}
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user("alice")
	e.createBoard(tok, "100% done")
	e.createBoard(tok, "1000 done")

	rec := e.do("GET", "/api/search?q=100%25", tok, nil)
	require.Equal(t, 200, rec.Code)
	got := decode[[]SearchResult](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "100% done", got[0].Title)

	rec = e.do("GET", "/api/search?q=_", tok, nil)
	require.Equal(t, 200, rec.Code)
	assert.Empty(t, decode[[]SearchResult](t, rec))
}

func TestSearchRequiresQuery(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user("alice")
	rec := e.do("GET", "/api/search?q=%20%20", tok, nil)
	assert.Equal(t, 400, rec.Code)
	rec = e.do("GET", "/api/search", tok, nil)
	assert.Equal(t, 400, rec.Code)
}

func TestSearchSkipsArchivedCards(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user("alice")
	b := e.createBoard(tok, "B")
	l := e.createList(tok, b.ID, "L")
	c := e.createCard(tok, l.ID, "needle")
	rec := e.do("POST", pathf("/api/cards/%d/archive", c.ID), tok, map[string]any{"archived": true})
	require.Equal(t, 200, rec.Code)

	rec = e.do("GET", "/api/search?q=needle", tok, nil)
	require.Equal(t, 200, rec.Code)
	assert.Empty(t, decode[[]SearchResult](t, rec))
}

func TestSearchFoldsNonASCII(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user("alice")
	b := e.createBoard(tok, "ÉTÉ planning")
	e.createBoard(tok, "Winter")

	for _, q := range []string{"ÉTÉ", "été", "Été plan"} {
		rec := e.do("GET", "/api/search?q="+url.QueryEscape(q), tok, nil)
		require.Equal(t, 200, rec.Code)
		got := decode[[]SearchResult](t, rec)
		require.Len(t, got, 1, q)
		assert.Equal(t, b.ID, got[0].ID)
	}
}
