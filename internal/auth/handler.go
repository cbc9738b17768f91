package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayush/skillpath/backend/internal/logging"
	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the user persistence the auth handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, u models.NewUser) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users    UserStore
	sessions SessionStore
	cookies  *CookieCodec
	log      logging.Logger
}

func NewHandler(users UserStore, sessions SessionStore, cookies *CookieCodec, log logging.Logger) *Handler {
	return &Handler{users: users, sessions: sessions, cookies: cookies, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Register creates a new user and logs them in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	existing, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		h.log.Error(r.Context(), "lookup user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "username already exists")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), models.NewUser{Username: req.Username, Password: string(hashed)})
	if errors.Is(err, shared.ErrUserExists) {
		writeError(w, http.StatusBadRequest, "username already exists")
		return
	}
	if err != nil {
		h.log.Error(r.Context(), "create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	h.log.Info(r.Context(), "user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid, err := h.cookies.Read(r); err == nil {
		if err := h.sessions.Delete(r.Context(), sid); err != nil {
			h.log.Warn(r.Context(), "delete session", "error", err)
		}
	}
	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.log.Error(r.Context(), "create session", "error", err)
		writeError(w, http.StatusInternalServerError, "session creation failed")
		return false
	}
	if err := h.cookies.Set(w, sid); err != nil {
		h.log.Error(r.Context(), "encode session cookie", "error", err)
		writeError(w, http.StatusInternalServerError, "session creation failed")
		return false
	}
	return true
}
