package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kindergarten/internal/models"
	"kindergarten/internal/security"
	"kindergarten/internal/service"
	"kindergarten/internal/session"
	"kindergarten/internal/validation"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	cookies     *security.CookieCodec
	views       *ViewStore
	render      *Renderer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, cookies *security.CookieCodec, views *ViewStore, render *Renderer) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		views:       views,
		render:      render,
	}
}

// Home sends visitors to the groups or the login page
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, "/groups", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ShowLogin renders the login page
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, "/groups", http.StatusSeeOther)
		return
	}

	data := LoginViewData{Layout: h.render.Layout(r, "Login", "login")}
	if r.URL.Query().Get("registered") == "1" {
		data.Success = MsgRegistered
	}
	h.render.Render(w, http.StatusOK, "login.tmpl", data)
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	token, err := h.authService.Login(r.Context(), email, password)
	if err != nil {
		slog.Info("login failed", "email", email, "error", err)
		data := LoginViewData{
			Layout: h.render.Layout(r, "Login", "login"),
			Email:  email,
			Error:  loginError(err),
		}
		h.render.Render(w, http.StatusUnauthorized, "login.tmpl", data)
		return
	}

	gate := session.FromContext(r.Context())
	previousID := gate.ID()
	if err := gate.Login(r.Context(), email, token); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error saving session", err)
		return
	}

	now := time.Now()
	value, err := h.cookies.Encode(gate.ID(), now)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error signing session cookie", err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, value, now.Add(h.cookies.MaxAge())))

	// a new identity starts with fresh lists
	h.views.Drop(previousID)

	slog.Info("user logged in", "email", email, "session_id", gate.ID())
	http.Redirect(w, r, "/groups", http.StatusSeeOther)
}

func loginError(err error) string {
	if errors.Is(err, service.ErrMissingCredentials) {
		return validation.MsgAllRequired
	}
	return alertMessage("Login failed", err)
}

// ShowRegister renders the registration page
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, "/groups", http.StatusSeeOther)
		return
	}

	data := RegisterViewData{Layout: h.render.Layout(r, "Register", "register")}
	h.render.Render(w, http.StatusOK, "register.tmpl", data)
}

// Register handles registration form submission
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	reg := models.Registration{
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	if err := h.authService.Register(r.Context(), reg); err != nil {
		status := http.StatusBadGateway
		msg := alertMessage("Registration failed", err)

		var verr validation.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusUnprocessableEntity
			msg = verr.Message
		} else {
			slog.Warn("registration failed", "email", reg.Email, "error", err)
		}

		data := RegisterViewData{
			Layout: h.render.Layout(r, "Register", "register"),
			Email:  reg.Email,
			Error:  msg,
		}
		h.render.Render(w, status, "register.tmpl", data)
		return
	}

	slog.Info("user registered", "email", reg.Email)
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

// Logout signs the session out and forgets its lists
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	gate := session.FromContext(r.Context())
	if err := gate.Logout(r.Context()); err != nil {
		slog.Error("failed to save logout", "session_id", gate.ID(), "error", err)
	}
	h.views.Drop(gate.ID())

	http.SetCookie(w, security.CreateDeleteCookie(r))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
