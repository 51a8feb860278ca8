package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
)

type api struct {
	store    *Store
	log      *slog.Logger
	access   *Evaluator
	activity *Recorder
	guard    *Guard
	tokens   tokenIssuer
	files    *fileStore
	limiter  *rateLimiter
}

func newAPI(store *Store, log *slog.Logger, tokens tokenIssuer, files *fileStore) *api {
	access := NewEvaluator(store)
	activity := NewRecorder(store, log)
	return &api{
		store:    store,
		log:      log,
		access:   access,
		activity: activity,
		guard:    NewGuard(store, access, activity),
		tokens:   tokens,
		files:    files,
		limiter:  newRateLimiter(20, time.Minute),
	}
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealth)

	mux.HandleFunc("POST /api/auth/register", a.withRateLimit("auth_register", a.handleRegister))
	mux.HandleFunc("POST /api/auth/token", a.withRateLimit("auth_token", a.handleToken))
	mux.HandleFunc("GET /api/auth/me", a.requireAuth(a.handleMe))

	mux.HandleFunc("GET /api/boards", a.requireAuth(a.handleListBoards))
	mux.HandleFunc("POST /api/boards", a.requireAuth(a.handleCreateBoard))
	mux.HandleFunc("GET /api/boards/{id}", a.requireAuth(a.handleGetBoard))
	mux.HandleFunc("GET /api/boards/{id}/full", a.requireAuth(a.handleGetBoardFull))
	mux.HandleFunc("GET /api/boards/{id}/stats", a.requireAuth(a.handleBoardStats))
	mux.HandleFunc("PUT /api/boards/{id}", a.requireAuth(a.handleUpdateBoard))
	mux.HandleFunc("PATCH /api/boards/{id}", a.requireAuth(a.handleUpdateBoard))
	mux.HandleFunc("DELETE /api/boards/{id}", a.requireAuth(a.handleDeleteBoard))

	mux.HandleFunc("GET /api/boards/{id}/members", a.requireAuth(a.handleListMembers))
	mux.HandleFunc("POST /api/boards/{id}/members", a.requireAuth(a.handleAddMember))
	mux.HandleFunc("PUT /api/boards/{id}/members/{uid}", a.requireAuth(a.handleUpdateMember))
	mux.HandleFunc("PATCH /api/boards/{id}/members/{uid}", a.requireAuth(a.handleUpdateMember))
	mux.HandleFunc("DELETE /api/boards/{id}/members/{uid}", a.requireAuth(a.handleRemoveMember))

	mux.HandleFunc("GET /api/boards/{id}/activity", a.requireAuth(a.handleBoardActivity))

	mux.HandleFunc("GET /api/boards/{id}/lists", a.requireAuth(a.handleListsByBoard))
	mux.HandleFunc("POST /api/boards/{id}/lists", a.requireAuth(a.handleCreateList))
	mux.HandleFunc("PUT /api/lists/{id}", a.requireAuth(a.handleUpdateList))
	mux.HandleFunc("PATCH /api/lists/{id}", a.requireAuth(a.handleUpdateList))
	mux.HandleFunc("POST /api/lists/{id}/move", a.requireAuth(a.handleMoveList))
	mux.HandleFunc("DELETE /api/lists/{id}", a.requireAuth(a.handleDeleteList))

	mux.HandleFunc("GET /api/lists/{id}/cards", a.requireAuth(a.handleCardsByList))
	mux.HandleFunc("POST /api/lists/{id}/cards", a.requireAuth(a.handleCreateCard))
	mux.HandleFunc("GET /api/cards/{id}", a.requireAuth(a.handleGetCard))
	mux.HandleFunc("PUT /api/cards/{id}", a.requireAuth(a.handleUpdateCard))
	mux.HandleFunc("PATCH /api/cards/{id}", a.requireAuth(a.handleUpdateCard))
	mux.HandleFunc("POST /api/cards/{id}/move", a.requireAuth(a.handleMoveCard))
	mux.HandleFunc("POST /api/cards/{id}/archive", a.requireAuth(a.handleArchiveCard))
	mux.HandleFunc("DELETE /api/cards/{id}", a.requireAuth(a.handleDeleteCard))

	mux.HandleFunc("GET /api/cards/{id}/comments", a.requireAuth(a.handleCommentsByCard))
	mux.HandleFunc("POST /api/cards/{id}/comments", a.requireAuth(a.handleAddComment))

	mux.HandleFunc("GET /api/cards/{id}/labels", a.requireAuth(a.handleLabelsByCard))
	mux.HandleFunc("POST /api/cards/{id}/labels", a.requireAuth(a.handleAddLabel))
	mux.HandleFunc("DELETE /api/labels/{id}", a.requireAuth(a.handleDeleteLabel))

	mux.HandleFunc("GET /api/cards/{id}/attachments", a.requireAuth(a.handleAttachmentsByCard))
	mux.HandleFunc("POST /api/cards/{id}/attachments", a.requireAuth(a.handleUploadAttachment))
	mux.HandleFunc("GET /api/attachments/{id}/download", a.requireAuth(a.handleDownloadAttachment))
	mux.HandleFunc("DELETE /api/attachments/{id}", a.requireAuth(a.handleDeleteAttachment))

	mux.HandleFunc("GET /api/search", a.requireAuth(a.handleSearch))

	mux.HandleFunc("GET /api/templates", a.requireAuth(a.handleListTemplates))
	mux.HandleFunc("POST /api/templates", a.requireAuth(a.handleCreateTemplate))
	mux.HandleFunc("POST /api/templates/{id}/boards", a.requireAuth(a.handleBoardFromTemplate))
}

// handler returns the full middleware chain around the API routes.
func (a *api) handler() http.Handler {
	mux := http.NewServeMux()
	a.routes(mux)
	return withRequestID(withLogging(a.log, gzhttp.GzipHandler(mux)))
}

func (a *api) withRateLimit(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.allow(clientIP(r), name) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

// requireAuth resolves the bearer token to a principal whose user still exists.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, 401, "unauthorized")
			return
		}
		p, err := a.tokens.Parse(raw)
		if err != nil {
			a.writeErr(w, err, "auth")
			return
		}
		if _, err := a.store.GetUser(r.Context(), p.ID); err != nil {
			if isNotFound(err) {
				writeError(w, 401, "unauthorized")
				return
			}
			a.writeErr(w, err, "auth user")
			return
		}
		next(w, r.WithContext(withPrincipal(r.Context(), p)))
	}
}

func (a *api) principal(r *http.Request) Principal {
	p, _ := principalFrom(r.Context())
	return p
}

// requireLevel evaluates the caller on boardID and writes the error response
// when the level is below want.
func (a *api) requireLevel(w http.ResponseWriter, r *http.Request, boardID int64, want Level) bool {
	if _, err := a.access.Require(r.Context(), a.principal(r), boardID, want); err != nil {
		a.writeErr(w, err, "access")
		return false
	}
	return true
}

func (a *api) canRead(w http.ResponseWriter, r *http.Request, boardID int64) bool {
	return a.requireLevel(w, r, boardID, LevelView)
}

func parseID(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := parseID(r.PathValue(name))
	if err != nil || id <= 0 {
		writeError(w, 400, "bad id")
		return 0, false
	}
	return id, true
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// writeErr renders categorized errors as their status and logs the rest.
func (a *api) writeErr(w http.ResponseWriter, err error, op string) {
	status, msg, ok := errorStatus(err)
	if !ok {
		a.log.Error(op, "err", err)
	}
	writeError(w, status, msg)
}

type requestIDKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status,
			"dur_ms", time.Since(start).Milliseconds(), "request_id", requestID(r))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
