package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// parseDue reads an optional due date. Absent leaves it alone, null clears it.
func parseDue(raw json.RawMessage) (due *time.Time, clear bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, badRequest("due_at must be an RFC 3339 timestamp")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false, badRequest("due_at must be an RFC 3339 timestamp")
	}
	t = t.UTC()
	return &t, false, nil
}

func (a *api) handleCardsByList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, err := a.store.BoardIDByList(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "cards by list")
		return
	}
	if !a.canRead(w, r, boardID) {
		return
	}
	withArchived, _ := strconv.ParseBool(r.URL.Query().Get("archived"))
	items, err := a.store.CardsByList(r.Context(), id, withArchived)
	if err != nil {
		a.writeErr(w, err, "cards by list")
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Title           string          `json:"title"`
		Description     string          `json:"description"`
		DescriptionIsMD bool            `json:"description_is_md"`
		DueAt           json.RawMessage `json:"due_at"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	boardID, err := a.store.BoardIDByList(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "create card")
		return
	}
	var c Card
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		title, err := cleanTitle(req.Title)
		if err != nil {
			return err
		}
		due, _, err := parseDue(req.DueAt)
		if err != nil {
			return err
		}
		c, err = tx.CreateCard(ctx, id, cardInput{
			Title:           title,
			Description:     req.Description,
			DescriptionIsMD: req.DescriptionIsMD,
			DueAt:           due,
		})
		if err != nil {
			return err
		}
		changes.Add(ActivityCardCreated, "created card %q in list %d", c.Title, id)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "create card")
		return
	}
	writeJSON(w, 201, c)
}

func (a *api) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "get card")
		return
	}
	if !a.canRead(w, r, boardID) {
		return
	}
	c, err := a.store.GetCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "get card")
		return
	}
	if c, err = withDescriptionHTML(c); err != nil {
		a.writeErr(w, err, "render description")
		return
	}
	writeJSON(w, 200, c)
}

func (a *api) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Title           *string         `json:"title"`
		Description     *string         `json:"description"`
		DescriptionIsMD *bool           `json:"description_is_md"`
		Color           *string         `json:"color"`
		DueAt           json.RawMessage `json:"due_at"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "update card")
		return
	}
	var c Card
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		title, err := cleanTitlePtr(req.Title)
		if err != nil {
			return err
		}
		due, clearDue, err := parseDue(req.DueAt)
		if err != nil {
			return err
		}
		patch := cardPatch{
			Title:           title,
			Description:     req.Description,
			DescriptionIsMD: req.DescriptionIsMD,
			Color:           req.Color,
			DueAt:           due,
			ClearDue:        clearDue,
		}
		if patch.empty() {
			return badRequest("nothing to update")
		}
		if c, err = tx.UpdateCard(ctx, id, patch); err != nil {
			return err
		}
		changes.Add(ActivityCardUpdated, "updated card %q", c.Title)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "update card")
		return
	}
	writeJSON(w, 200, c)
}

func (a *api) handleMoveCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		TargetListID int64 `json:"target_list_id"`
		NewIndex     int   `json:"new_index"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	c, err := a.guard.MoveCard(r.Context(), a.principal(r), id, req.TargetListID, req.NewIndex)
	if err != nil {
		a.writeErr(w, err, "move card")
		return
	}
	writeJSON(w, 200, c)
}

func (a *api) handleArchiveCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req := struct {
		Archived *bool `json:"archived"`
	}{}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	archived := req.Archived == nil || *req.Archived
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "archive card")
		return
	}
	var c Card
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		var err error
		if c, err = tx.SetCardArchived(ctx, id, archived); err != nil {
			return err
		}
		if archived {
			changes.Add(ActivityCardArchived, "archived card %q", c.Title)
		} else {
			changes.Add(ActivityCardRestored, "restored card %q", c.Title)
		}
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "archive card")
		return
	}
	writeJSON(w, 200, c)
}

func (a *api) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "delete card")
		return
	}
	var files []string
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		c, err := tx.GetCard(ctx, id)
		if err != nil {
			return err
		}
		atts, err := tx.AttachmentsByCard(ctx, id)
		if err != nil {
			return err
		}
		for _, at := range atts {
			files = append(files, at.StoredName)
		}
		if err := tx.DeleteCard(ctx, id); err != nil {
			return err
		}
		changes.Add(ActivityCardDeleted, "deleted card %q", c.Title)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "delete card")
		return
	}
	a.removeFiles(files)
	writeJSON(w, 200, map[string]any{"ok": true})
}
