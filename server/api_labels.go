package main

import (
	"context"
	"net/http"
	"strings"
)

func (a *api) handleLabelsByCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "labels by card")
		return
	}
	if !a.canRead(w, r, boardID) {
		return
	}
	items, err := a.store.LabelsByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "labels by card")
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleAddLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "add label")
		return
	}
	var l Label
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		name := strings.TrimSpace(req.Name)
		color := strings.TrimSpace(req.Color)
		if name == "" || color == "" {
			return badRequest("name and color are required")
		}
		var err error
		if l, err = tx.AddLabel(ctx, id, name, color); err != nil {
			return err
		}
		changes.Add(ActivityLabelAdded, "added label %q to card %d", l.Name, id)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "add label")
		return
	}
	writeJSON(w, 201, l)
}

func (a *api) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, err := a.store.BoardIDByLabel(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "delete label")
		return
	}
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		l, err := tx.GetLabel(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteLabel(ctx, id); err != nil {
			return err
		}
		changes.Add(ActivityLabelRemoved, "removed label %q from card %d", l.Name, l.CardID)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "delete label")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
