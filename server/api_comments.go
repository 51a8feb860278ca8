package main

import (
	"context"
	"net/http"
	"strings"
)

const maxCommentLen = 10000

func (a *api) handleCommentsByCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "comments by card")
		return
	}
	if !a.canRead(w, r, boardID) {
		return
	}
	items, err := a.store.CommentsByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "comments by card")
		return
	}
	writeJSON(w, 200, items)
}

// Commenting is a write: view members can read comments but not add them.
func (a *api) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "add comment")
		return
	}
	p := a.principal(r)
	var c Comment
	err = a.guard.Write(r.Context(), p, boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		if strings.TrimSpace(req.Body) == "" {
			return badRequest("comment must not be empty")
		}
		if len(req.Body) > maxCommentLen {
			return badRequest("comment too long")
		}
		var err error
		if c, err = tx.AddComment(ctx, id, p.ID, req.Body); err != nil {
			return err
		}
		changes.Add(ActivityCommentAdded, "commented on card %d", id)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "add comment")
		return
	}
	writeJSON(w, 201, c)
}
