package main

import (
	"mime"
	"net/http"
	"net/mail"
	"strings"
)

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		writeError(w, 400, "username and email are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, 400, "invalid email")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, 400, "password too short")
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		a.log.Error("bcrypt", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	u, err := a.store.CreateUser(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		a.writeErr(w, err, "register")
		return
	}
	writeJSON(w, 201, u)
}

// handleToken exchanges a username and password for a bearer token. It
// accepts the OAuth2 password form as well as JSON.
func (a *api) handleToken(w http.ResponseWriter, r *http.Request) {
	var username, password string
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := r.ParseForm(); err != nil {
			writeError(w, 400, "invalid payload")
			return
		}
		username, password = r.PostForm.Get("username"), r.PostForm.Get("password")
	} else {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, 400, "invalid payload")
			return
		}
		username, password = req.Username, req.Password
	}
	u, err := a.store.UserByUsername(r.Context(), strings.TrimSpace(username))
	if err != nil && !isNotFound(err) {
		a.log.Error("token lookup", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	if err != nil || !checkPassword(u.PasswordHash, password) {
		writeError(w, 401, "incorrect username or password")
		return
	}
	tok, exp, err := a.tokens.Issue(u)
	if err != nil {
		a.log.Error("issue token", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"access_token": tok, "token_type": "bearer", "expires_at": exp.UTC()})
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := a.store.GetUser(r.Context(), a.principal(r).ID)
	if err != nil {
		a.writeErr(w, err, "me")
		return
	}
	writeJSON(w, 200, u)
}
