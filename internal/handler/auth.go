package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/service"
)

// AuthHandler serves the registration, login, and logout routes.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *auth.SessionService
	render   *Renderer
	flash    *FlashStore
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler with all dependencies injected.
func NewAuthHandler(
	authSvc *service.AuthService,
	sessions *auth.SessionService,
	render *Renderer,
	flash *FlashStore,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     authSvc,
		sessions: sessions,
		render:   render,
		flash:    flash,
		logger:   logger,
	}
}

// HandleRegisterForm shows the registration form.
//
// HTTP: GET /auth/register
func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "register", http.StatusOK, map[string]any{"Username": ""})
}

// HandleRegister processes a registration submission.
//
// HTTP: POST /auth/register
//
// On success the user is sent to the login page — registering does not log
// you in. Validation problems and taken usernames re-render the form with
// the message flashed and the username preserved; the password is never
// echoed back.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.auth.Register(r.Context(), username, password)
	if err != nil {
		if formErr := formMessage(err); formErr != "" {
			h.flash.Add(w, r, FlashError, formErr)
			h.render.Render(w, r, "register", http.StatusUnprocessableEntity, map[string]any{
				"Username": username,
			})
			return
		}
		h.render.RenderError(w, r, err)
		return
	}

	h.flash.Add(w, r, FlashSuccess,
		fmt.Sprintf("User %q successfully registered. Please log in.", user.Username))
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// HandleLoginForm shows the login form.
//
// HTTP: GET /auth/login
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "login", http.StatusOK, map[string]any{"Username": ""})
}

// HandleLogin processes a login submission and starts the session.
//
// HTTP: POST /auth/login
//
// Issue replaces any session cookie the client already held — the session
// is regenerated wholesale on every login, never mutated in place.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		if formErr := formMessage(err); formErr != "" {
			h.flash.Add(w, r, FlashError, formErr)
			h.render.Render(w, r, "login", http.StatusUnprocessableEntity, map[string]any{
				"Username": username,
			})
			return
		}
		h.render.RenderError(w, r, err)
		return
	}

	if err := h.sessions.Issue(w, user.ID); err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	h.flash.Add(w, r, FlashSuccess, fmt.Sprintf("Welcome back, %s!", user.Username))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session unconditionally and returns to the index.
//
// HTTP: GET /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	h.flash.Add(w, r, FlashInfo, "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// formMessage returns the user-facing message for errors a form should
// re-render with (validation failures, taken usernames, bad credentials),
// or "" for errors that need the general error mapping.
func formMessage(err error) string {
	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrConflict),
		errors.Is(err, apperror.ErrUnauthenticated):
		return apperror.Message(err)
	}
	return ""
}
