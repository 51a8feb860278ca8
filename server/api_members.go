package main

import (
	"context"
	"net/http"
	"strings"
)

func (a *api) handleListMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !a.canRead(w, r, id) {
		return
	}
	items, err := a.store.Members(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "list members")
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleAddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		UserID     int64  `json:"user_id"`
		Username   string `json:"username"`
		Permission string `json:"permission"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	var m BoardMember
	err := a.guard.OwnerWrite(r.Context(), a.principal(r), id, func(ctx context.Context, tx *Store, changes *Changeset) error {
		perm, err := ParsePermission(req.Permission)
		if err != nil {
			return err
		}
		username := strings.TrimSpace(req.Username)
		if req.UserID == 0 && username == "" {
			return badRequest("user_id or username is required")
		}
		uid := req.UserID
		if uid == 0 {
			u, err := tx.UserByUsername(ctx, username)
			if err != nil {
				return err
			}
			uid = u.ID
		}
		if m, err = tx.AddMember(ctx, id, uid, perm); err != nil {
			return err
		}
		changes.Add(ActivityMemberAdded, "added user %d with %s permission", uid, perm)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "add member")
		return
	}
	writeJSON(w, 201, m)
}

func (a *api) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	uid, ok := pathID(w, r, "uid")
	if !ok {
		return
	}
	var req struct {
		Permission string `json:"permission"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	var m BoardMember
	err := a.guard.OwnerWrite(r.Context(), a.principal(r), id, func(ctx context.Context, tx *Store, changes *Changeset) error {
		perm, err := ParsePermission(req.Permission)
		if err != nil {
			return err
		}
		if m, err = tx.UpdateMember(ctx, id, uid, perm); err != nil {
			return err
		}
		changes.Add(ActivityMemberUpdated, "changed user %d to %s permission", uid, perm)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "update member")
		return
	}
	writeJSON(w, 200, m)
}

func (a *api) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	uid, ok := pathID(w, r, "uid")
	if !ok {
		return
	}
	err := a.guard.OwnerWrite(r.Context(), a.principal(r), id, func(ctx context.Context, tx *Store, changes *Changeset) error {
		if err := tx.RemoveMember(ctx, id, uid); err != nil {
			return err
		}
		changes.Add(ActivityMemberRemoved, "removed user %d", uid)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "remove member")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
