package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberLifecycle(t *testing.T) {
	e := newTestEnv(t)
	_, ownerTok := e.user("owner")
	member, memberTok := e.user("member")
	b := e.createBoard(ownerTok, "B")

	rec := e.do("POST", pathf("/api/boards/%d/members", b.ID), ownerTok, map[string]any{"username": "member", "permission": "view"})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	m := decode[BoardMember](t, rec)
	assert.Equal(t, member.ID, m.UserID)
	assert.Equal(t, PermissionView, m.Permission)

	rec = e.do("GET", pathf("/api/boards/%d/members", b.ID), memberTok, nil)
	require.Equal(t, 200, rec.Code)
	views := decode[[]MemberView](t, rec)
	require.Len(t, views, 1)
	assert.Equal(t, "member", views[0].Username)

	rec = e.do("POST", pathf("/api/boards/%d/lists", b.ID), memberTok, map[string]any{"title": "nope"})
	assert.Equal(t, 403, rec.Code)

	rec = e.do("PATCH", pathf("/api/boards/%d/members/%d", b.ID, member.ID), ownerTok, map[string]any{"permission": "edit"})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	assert.Equal(t, PermissionEdit, decode[BoardMember](t, rec).Permission)

	// takes effect on the very next request
	rec = e.do("POST", pathf("/api/boards/%d/lists", b.ID), memberTok, map[string]any{"title": "yes"})
	assert.Equal(t, 201, rec.Code)

	rec = e.do("DELETE", pathf("/api/boards/%d/members/%d", b.ID, member.ID), ownerTok, nil)
	require.Equal(t, 200, rec.Code)
	rec = e.do("GET", pathf("/api/boards/%d", b.ID), memberTok, nil)
	assert.Equal(t, 403, rec.Code)

	rec = e.do("DELETE", pathf("/api/boards/%d/members/%d", b.ID, member.ID), ownerTok, nil)
	assert.Equal(t, 404, rec.Code)

	assert.Equal(t,
		[]ActivityType{ActivityMemberRemoved, ActivityListCreated, ActivityMemberUpdated, ActivityMemberAdded, ActivityBoardCreated},
		activityTypesOf(e.activity(b.ID)))
}

func TestAddMemberValidation(t *testing.T) {
	e := newTestEnv(t)
	owner, ownerTok := e.user("owner")
	other, _ := e.user("other")
	editor, editorTok := e.user("editor")
	b := e.createBoard(ownerTok, "B")
	e.addMember(ownerTok, b.ID, editor.ID, "edit")

	path := pathf("/api/boards/%d/members", b.ID)
	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"owner as member", map[string]any{"user_id": owner.ID, "permission": "view"}, 400},
		{"duplicate", map[string]any{"user_id": editor.ID, "permission": "view"}, 400},
		{"owner permission", map[string]any{"user_id": other.ID, "permission": "owner"}, 400},
		{"unknown permission", map[string]any{"user_id": other.ID, "permission": "admin"}, 400},
		{"no user", map[string]any{"permission": "view"}, 400},
		{"missing user", map[string]any{"user_id": 9999, "permission": "view"}, 404},
		{"unknown username", map[string]any{"username": "ghost", "permission": "view"}, 404},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do("POST", path, ownerTok, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	// edit members cannot manage membership
	rec := e.do("POST", path, editorTok, map[string]any{"user_id": other.ID, "permission": "view"})
	assert.Equal(t, 403, rec.Code)
	rec = e.do("PATCH", pathf("/api/boards/%d/members/%d", b.ID, editor.ID), editorTok, map[string]any{"permission": "view"})
	assert.Equal(t, 403, rec.Code)
	rec = e.do("PATCH", pathf("/api/boards/%d/members/%d", b.ID, editor.ID), ownerTok, map[string]any{"permission": "owner"})
	assert.Equal(t, 400, rec.Code)

	rec = e.do("GET", pathf("/api/boards/%d/members", b.ID), ownerTok, nil)
	require.Equal(t, 200, rec.Code)
	assert.Len(t, decode[[]MemberView](t, rec), 1)
}
