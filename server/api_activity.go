package main

import "net/http"

func (a *api) handleBoardActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var typ ActivityType
	if s := r.URL.Query().Get("type"); s != "" {
		t, err := ParseActivityType(s)
		if err != nil {
			a.writeErr(w, err, "board activity")
			return
		}
		typ = t
	}
	if !a.canRead(w, r, id) {
		return
	}
	items, err := a.activity.Recent(r.Context(), id, typ)
	if err != nil {
		a.writeErr(w, err, "board activity")
		return
	}
	writeJSON(w, 200, items)
}
