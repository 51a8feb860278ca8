package main

import (
	"context"
	"net/http"
	"strings"
)

const maxTemplateLists = 50

func (a *api) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := a.store.TemplatesByUser(r.Context(), a.principal(r).ID)
	if err != nil {
		a.writeErr(w, err, "list templates")
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Lists       []string `json:"lists"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	name, err := cleanTitle(req.Name)
	if err != nil {
		a.writeErr(w, err, "create template")
		return
	}
	if len(req.Lists) > maxTemplateLists {
		writeError(w, 400, "too many lists")
		return
	}
	lists := make([]string, 0, len(req.Lists))
	for _, l := range req.Lists {
		t, err := cleanTitle(l)
		if err != nil {
			a.writeErr(w, err, "create template")
			return
		}
		lists = append(lists, t)
	}
	t, err := a.store.CreateTemplate(r.Context(), BoardTemplate{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Lists:       lists,
		CreatedBy:   a.principal(r).ID,
	})
	if err != nil {
		a.writeErr(w, err, "create template")
		return
	}
	writeJSON(w, 201, t)
}

// handleBoardFromTemplate creates a board owned by the caller with one list
// per template entry, in template order.
func (a *api) handleBoardFromTemplate(w http.ResponseWriter, r *http.Request) {
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
	p := a.principal(r)
	tpl, err := a.store.GetTemplate(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "board from template")
		return
	}
	if tpl.CreatedBy != p.ID {
		writeError(w, 404, "template not found")
		return
	}
	title := req.Title
	if strings.TrimSpace(title) == "" {
		title = tpl.Name
	}
	if title, err = cleanTitle(title); err != nil {
		a.writeErr(w, err, "board from template")
		return
	}
	var b Board
	_, err = a.guard.NewBoard(r.Context(), p, func(ctx context.Context, tx *Store, changes *Changeset) (int64, error) {
		var err error
		if b, err = tx.CreateBoard(ctx, p.ID, title, ""); err != nil {
			return 0, err
		}
		changes.Add(ActivityBoardCreated, "created board %q from template %q", b.Title, tpl.Name)
		for _, lt := range tpl.Lists {
			l, err := tx.CreateList(ctx, b.ID, lt)
			if err != nil {
				return 0, err
			}
			changes.Add(ActivityListCreated, "created list %q", l.Title)
		}
		return b.ID, nil
	})
	if err != nil {
		a.writeErr(w, err, "board from template")
		return
	}
	writeJSON(w, 201, b)
}
