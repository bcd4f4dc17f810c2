package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/productdesk/catalog-admin/models"
)

// AuthPage is the data of the login and register pages.
type AuthPage struct {
	Username string
	Error    string
}

type UserProvider interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, data any)
}

type AuthHandler struct {
	users    UserProvider
	sessions *Sessions
	view     Renderer
}

func NewAuthHandler(users UserProvider, sessions *Sessions, view Renderer) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		view:     view,
	}
}

func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, http.StatusOK, "register", AuthPage{})
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	username, password, ok := h.credentials(w, r, "register")
	if !ok {
		return
	}

	hash, err := HashPassword(password)
	if err != nil {
		log.Printf("[auth] hash password: %v", err)
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	err = h.users.CreateUser(r.Context(), &models.User{Username: username, PasswordHash: hash})
	if errors.Is(err, models.ErrUsernameTaken) {
		h.view.Render(w, http.StatusOK, "register", AuthPage{Username: username, Error: "Username already exists"})
		return
	}
	if err != nil {
		log.Printf("[auth] create user %q: %v", username, err)
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}
	log.Printf("[auth] registered %q", username)

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, http.StatusOK, "login", AuthPage{})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	username, password, ok := h.credentials(w, r, "login")
	if !ok {
		return
	}

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		log.Printf("[auth] lookup %q: %v", username, err)
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		h.view.Render(w, http.StatusOK, "login", AuthPage{Username: username, Error: "Invalid credentials"})
		return
	}

	if err := h.sessions.Start(r.Context(), w, user.ID); err != nil {
		log.Printf("[auth] start session for %q: %v", username, err)
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	log.Printf("[auth] %q logged in", username)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// credentials reads username and password; an empty one re-renders page.
func (h *AuthHandler) credentials(w http.ResponseWriter, r *http.Request, page string) (string, string, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return "", "", false
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		h.view.Render(w, http.StatusOK, page, AuthPage{Username: username, Error: "Username and password are required"})
		return "", "", false
	}
	return username, password, true
}
