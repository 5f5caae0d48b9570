package handlers

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the request handlers served by the router
type Handlers struct {
	Auth      *AuthHandler
	Groups    *GroupHandler
	GroupForm *GroupFormHandler
	Children  *ChildHandler
}

// NewRouter wires the routes. Everything except the login and register pages,
// static files and the health check requires a signed-in session.
func NewRouter(h Handlers, mw *Middleware, static fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.Group(func(r chi.Router) {
		r.Use(mw.LoadSession)

		// Public routes
		r.Get("/", h.Auth.Home)
		r.Get("/login", h.Auth.ShowLogin)
		r.Get("/register", h.Auth.ShowRegister)
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit)
			r.Post("/login", h.Auth.Login)
			r.Post("/register", h.Auth.Register)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)
			r.Use(mw.CSRFProtect)

			r.Post("/logout", h.Auth.Logout)

			r.Get("/groups", h.Groups.List)
			r.Get("/groups/{id}", h.Groups.Detail)
			r.Post("/groups/{id}/delete", h.Groups.Delete)
			r.Post("/groups/{id}/children/{childId}/remove", h.Groups.RemoveChild)

			r.Get("/group-form", h.GroupForm.Show)
			r.Get("/group-form/{id}", h.GroupForm.Show)
			r.Post("/group-form/draft/add/{childId}", h.GroupForm.Add)
			r.Post("/group-form/draft/remove/{childId}", h.GroupForm.Remove)
			r.Post("/group-form/draft/search", h.GroupForm.Search)
			r.Post("/group-form/draft/save", h.GroupForm.Save)

			r.Get("/children", h.Children.List)
			r.Get("/children/{id}", h.Children.Detail)
			r.Post("/children/{id}/delete", h.Children.Delete)
			r.Post("/children/{id}/group", h.Children.AssignGroup)

			r.Get("/child-form", h.Children.ShowForm)
			r.Post("/child-form", h.Children.SaveForm)
			r.Get("/child-form/{id}", h.Children.ShowForm)
			r.Post("/child-form/{id}", h.Children.SaveForm)
		})
	})

	return r
}
