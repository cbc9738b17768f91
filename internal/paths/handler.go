package paths

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/logging"
	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// PathStore defines the learning path persistence the handlers need.
type PathStore interface {
	CreatePath(ctx context.Context, userID int64, p models.NewPath) (*models.LearningPath, error)
	GetUserPaths(ctx context.Context, userID int64) ([]models.LearningPath, error)
	GetPath(ctx context.Context, id int64) (*models.LearningPath, error)
	DeletePath(ctx context.Context, id int64) error
}

// Archive keeps a rendered Markdown export per saved path. Optional.
type Archive interface {
	Put(ctx context.Context, userID, pathID int64, doc []byte) error
	Get(ctx context.Context, userID, pathID int64) ([]byte, error)
	Delete(ctx context.Context, userID, pathID int64) error
}

// Handler holds learning path HTTP handlers. Every route expects
// RequireAuth to have run.
type Handler struct {
	store   PathStore
	gen     Generator
	archive Archive
	log     logging.Logger
}

// NewHandler wires the handlers. archive may be nil.
func NewHandler(store PathStore, gen Generator, archive Archive, log logging.Logger) *Handler {
	return &Handler{store: store, gen: gen, archive: archive, log: log}
}

// caller returns the authenticated user and a logger tagged with its id.
// Without a user it answers 401 and returns false.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*models.User, logging.Logger, bool) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, nil, false
	}
	return user, h.log.With("user_id", user.ID), true
}

// Generate asks the generator for a path. Nothing is stored. A body that
// does not decode leaves the skill empty and is still passed on.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	_, log, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req models.GenerateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Warn(r.Context(), "undecodable generate body", "error", err)
		req = models.GenerateRequest{}
	}

	path, err := h.gen.Generate(r.Context(), req.Skill)
	if err != nil {
		log.Error(r.Context(), "generate learning path", "skill", req.Skill, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate learning path")
		return
	}
	writeJSON(w, http.StatusOK, path)
}

// Create validates and stores a path under the caller's id.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, log, ok := h.caller(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	np, err := parseNewPath(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path data: "+err.Error())
		return
	}

	saved, err := h.store.CreatePath(r.Context(), user.ID, np)
	if err != nil {
		log.Error(r.Context(), "create path", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save learning path")
		return
	}
	log = log.With("path_id", saved.ID)

	if h.archive != nil {
		if err := h.archive.Put(r.Context(), saved.UserID, saved.ID, RenderMarkdown(saved)); err != nil {
			log.Warn(r.Context(), "archive upload", "error", err)
		}
	}

	log.Info(r.Context(), "path created")
	writeJSON(w, http.StatusCreated, saved)
}

// List returns all paths of the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, log, ok := h.caller(w, r)
	if !ok {
		return
	}

	paths, err := h.store.GetUserPaths(r.Context(), user.ID)
	if err != nil {
		log.Error(r.Context(), "list paths", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if paths == nil {
		paths = []models.LearningPath{}
	}
	writeJSON(w, http.StatusOK, paths)
}

// Delete removes one of the caller's paths. Missing and foreign paths both
// answer 404.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	path, log, ok := h.ownedPath(w, r)
	if !ok {
		return
	}

	if err := h.store.DeletePath(r.Context(), path.ID); err != nil {
		log.Error(r.Context(), "delete path", "error", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	if h.archive != nil {
		if err := h.archive.Delete(r.Context(), path.UserID, path.ID); err != nil {
			log.Warn(r.Context(), "archive remove", "error", err)
		}
	}

	log.Info(r.Context(), "path deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Export returns one of the caller's paths as Markdown, preferring the
// archived copy when there is one.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	path, log, ok := h.ownedPath(w, r)
	if !ok {
		return
	}

	var doc []byte
	if h.archive != nil {
		data, err := h.archive.Get(r.Context(), path.UserID, path.ID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
		case err != nil:
			log.Warn(r.Context(), "archive get, rendering instead", "error", err)
		default:
			doc = data
		}
	}
	if doc == nil {
		doc = RenderMarkdown(path)
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=learning-path-%d.md", path.ID))
	w.Write(doc)
}

// ownedPath loads the {id} path and checks the caller owns it. The logger
// it returns carries user_id and path_id. On failure it writes the
// response and returns false.
func (h *Handler) ownedPath(w http.ResponseWriter, r *http.Request) (*models.LearningPath, logging.Logger, bool) {
	user, log, ok := h.caller(w, r)
	if !ok {
		return nil, nil, false
	}

	path, err := h.lookupOwned(r.Context(), user.ID, chi.URLParam(r, "id"))
	if errors.Is(err, shared.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return nil, nil, false
	}
	if err != nil {
		log.Error(r.Context(), "get path", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return nil, nil, false
	}
	return path, log.With("path_id", path.ID), true
}

func (h *Handler) lookupOwned(ctx context.Context, userID int64, rawID string) (*models.LearningPath, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	path, err := h.store.GetPath(ctx, id)
	if err != nil {
		return nil, err
	}
	if path == nil || path.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return path, nil
}
