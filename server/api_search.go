package main

import (
	"net/http"
	"strings"
)

func (a *api) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, 400, "query must not be empty")
		return
	}
	if len(q) > maxTitleLen {
		writeError(w, 400, "query too long")
		return
	}
	items, err := a.store.Search(r.Context(), a.principal(r).ID, q)
	if err != nil {
		a.writeErr(w, err, "search")
		return
	}
	writeJSON(w, 200, items)
}
