package main

import (
	"context"
	"net/http"
)

func (a *api) handleListsByBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !a.canRead(w, r, id) {
		return
	}
	items, err := a.store.ListsByBoard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "lists by board")
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	var l List
	err := a.guard.Write(r.Context(), a.principal(r), id, func(ctx context.Context, tx *Store, changes *Changeset) error {
		title, err := cleanTitle(req.Title)
		if err != nil {
			return err
		}
		if l, err = tx.CreateList(ctx, id, title); err != nil {
			return err
		}
		changes.Add(ActivityListCreated, "created list %q", l.Title)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "create list")
		return
	}
	writeJSON(w, 201, l)
}

func (a *api) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Title *string `json:"title"`
		Color *string `json:"color"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	boardID, err := a.store.BoardIDByList(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "update list")
		return
	}
	var l List
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		if req.Title == nil && req.Color == nil {
			return badRequest("nothing to update")
		}
		title, err := cleanTitlePtr(req.Title)
		if err != nil {
			return err
		}
		if l, err = tx.UpdateList(ctx, id, title, req.Color); err != nil {
			return err
		}
		changes.Add(ActivityListUpdated, "updated list %q", l.Title)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "update list")
		return
	}
	writeJSON(w, 200, l)
}

func (a *api) handleMoveList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		NewIndex int `json:"new_index"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	boardID, err := a.store.BoardIDByList(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "move list")
		return
	}
	var l List
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		var err error
		if l, err = tx.MoveList(ctx, id, req.NewIndex); err != nil {
			return err
		}
		changes.Add(ActivityListMoved, "moved list %q to position %d", l.Title, req.NewIndex)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "move list")
		return
	}
	writeJSON(w, 200, l)
}

func (a *api) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, err := a.store.BoardIDByList(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "delete list")
		return
	}
	var files []string
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		l, err := tx.GetList(ctx, id)
		if err != nil {
			return err
		}
		if files, err = tx.StoredNamesForList(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteList(ctx, id); err != nil {
			return err
		}
		changes.Add(ActivityListDeleted, "deleted list %q", l.Title)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "delete list")
		return
	}
	a.removeFiles(files)
	writeJSON(w, 200, map[string]any{"ok": true})
}
