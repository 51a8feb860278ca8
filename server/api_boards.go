package main

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxTitleLen = 200

// cleanTitle trims a title and rejects empty or overlong ones.
func cleanTitle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", badRequest("title must not be empty")
	}
	if utf8.RuneCountInString(s) > maxTitleLen {
		return "", badRequest("title too long")
	}
	return s, nil
}

// cleanTitlePtr validates a present title; nil means "leave unchanged".
func cleanTitlePtr(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	t, err := cleanTitle(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (a *api) handleListBoards(w http.ResponseWriter, r *http.Request) {
	items, err := a.store.BoardsForUser(r.Context(), a.principal(r).ID)
	if err != nil {
		a.writeErr(w, err, "list boards")
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Color string `json:"color"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	title, err := cleanTitle(req.Title)
	if err != nil {
		a.writeErr(w, err, "create board")
		return
	}
	p := a.principal(r)
	var b Board
	_, err = a.guard.NewBoard(r.Context(), p, func(ctx context.Context, tx *Store, changes *Changeset) (int64, error) {
		var err error
		b, err = tx.CreateBoard(ctx, p.ID, title, strings.TrimSpace(req.Color))
		if err != nil {
			return 0, err
		}
		changes.Add(ActivityBoardCreated, "created board %q", b.Title)
		return b.ID, nil
	})
	if err != nil {
		a.writeErr(w, err, "create board")
		return
	}
	writeJSON(w, 201, b)
}

func (a *api) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !a.canRead(w, r, id) {
		return
	}
	b, err := a.store.GetBoard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "get board")
		return
	}
	writeJSON(w, 200, b)
}

type listWithCards struct {
	List
	Cards []Card `json:"cards"`
}

func (a *api) handleGetBoardFull(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !a.canRead(w, r, id) {
		return
	}
	board, err := a.store.GetBoard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "get board")
		return
	}
	lists, err := a.store.ListsByBoard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "lists by board")
		return
	}
	out := make([]listWithCards, 0, len(lists))
	for _, l := range lists {
		cards, err := a.store.CardsByList(r.Context(), l.ID, false)
		if err != nil {
			a.writeErr(w, err, "cards by list")
			return
		}
		out = append(out, listWithCards{List: l, Cards: cards})
	}
	writeJSON(w, 200, map[string]any{"board": board, "lists": out})
}

func (a *api) handleBoardStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !a.canRead(w, r, id) {
		return
	}
	st, err := a.store.BoardStats(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "board stats")
		return
	}
	writeJSON(w, 200, st)
}

func (a *api) handleUpdateBoard(w http.ResponseWriter, r *http.Request) {
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
	var b Board
	err := a.guard.Write(r.Context(), a.principal(r), id, func(ctx context.Context, tx *Store, changes *Changeset) error {
		if req.Title == nil && req.Color == nil {
			return badRequest("nothing to update")
		}
		title, err := cleanTitlePtr(req.Title)
		if err != nil {
			return err
		}
		b, err = tx.UpdateBoard(ctx, id, title, req.Color)
		if err != nil {
			return err
		}
		changes.Add(ActivityBoardUpdated, "updated board %q", b.Title)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "update board")
		return
	}
	writeJSON(w, 200, b)
}

func (a *api) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var files []string
	err := a.guard.OwnerWrite(r.Context(), a.principal(r), id, func(ctx context.Context, tx *Store, _ *Changeset) error {
		var err error
		if files, err = tx.StoredNamesForBoard(ctx, id); err != nil {
			return err
		}
		return tx.DeleteBoard(ctx, id)
	})
	if err != nil {
		a.writeErr(w, err, "delete board")
		return
	}
	a.removeFiles(files)
	writeJSON(w, 200, map[string]any{"ok": true})
}

// removeFiles deletes attachment bodies whose rows are already gone.
func (a *api) removeFiles(names []string) {
	for _, n := range names {
		if err := a.files.Remove(n); err != nil {
			a.log.Warn("remove attachment file", "name", n, "err", err)
		}
	}
}
