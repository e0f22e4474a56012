package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// AuthHandler serves /auth/login, /auth/verify and /auth/logout.
type AuthHandler struct {
	auth *Authenticator
}

// NewAuthHandler creates an [AuthHandler].
func NewAuthHandler(auth *Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Routes implements [Handler].
func (h *AuthHandler) Routes() []string {
	return []string{"/auth/"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/auth/login" && r.Method == http.MethodPost:
		h.login(w, r)
	case r.URL.Path == "/auth/verify" && r.Method == http.MethodGet:
		h.verify(w, r)
	case r.URL.Path == "/auth/logout" && r.Method == http.MethodGet:
		h.logout(w)
	default:
		http.NotFound(w, r)
	}
}

type loginResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, loginResponse{Error: "Invalid form"})
		return
	}

	username := r.PostForm.Get("username")
	if !h.auth.CheckPassword(username, r.PostForm.Get("password")) {
		h.auth.logger.Warn("login failed", "user", username, "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, loginResponse{Error: "Invalid credentials"})
		return
	}

	token, err := h.auth.IssueToken(username)
	if err != nil {
		h.auth.logger.Error("failed to issue session", "error", err)
		writeJSON(w, http.StatusInternalServerError, loginResponse{Error: "Internal error"})
		return
	}

	http.SetCookie(w, SessionCookie(token))
	h.auth.logger.Info("login", "user", username)
	writeJSON(w, http.StatusOK, loginResponse{Success: true})
}

func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.SessionUser(r); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *AuthHandler) logout(w http.ResponseWriter) {
	http.SetCookie(w, SessionCookie(""))
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Logged out"))
}

// LoginPage is served from the static directory without a session.
const LoginPage = "/login.html"

// FallbackHandler serves the static front end behind the session check,
// or 404 for everything when no directory is configured.
type FallbackHandler struct {
	dir   string
	files http.Handler
	gate  Middleware
}

// NewFallbackHandler creates a [FallbackHandler] for dir; an empty dir serves nothing.
func NewFallbackHandler(dir string, auth *Authenticator) *FallbackHandler {
	h := &FallbackHandler{dir: dir, gate: RequireSession(auth)}
	if dir != "" {
		h.files = http.FileServer(http.Dir(dir))
	}
	return h
}

// Routes implements [Handler].
func (h *FallbackHandler) Routes() []string {
	return []string{"/"}
}

func (h *FallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.files == nil || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		http.NotFound(w, r)
		return
	}

	if path.Clean(r.URL.Path) == LoginPage {
		if _, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(LoginPage))); err == nil {
			h.files.ServeHTTP(w, r)
			return
		}
	}
	h.gate(h.files).ServeHTTP(w, r)
}
