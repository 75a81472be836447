package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alextreichler/bookstore/web"
)

// Routes builds the application router. extra middleware, such as CSRF
// protection, runs after the logging and security headers.
func (h *App) Routes(extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware)
	r.Use(extra...)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
	if h.Covers != nil {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.Covers.Dir))))
	}

	r.Get("/login", h.LoginGet)
	if h.LoginLimiter != nil {
		r.With(h.LoginLimiter.Middleware).Post("/login", h.LoginPost)
	} else {
		r.Post("/login", h.LoginPost)
	}
	r.Get("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireSession)

		r.Get("/", h.ListBooks)
		r.Get("/dashboard", h.Dashboard)

		r.Get("/agregar", h.AddBookForm)
		r.Post("/crear", h.CreateBook)
		r.Get("/editar/{id}", h.EditBookForm)
		r.Post("/actualizar/{id}", h.UpdateBook)
		r.Post("/eliminar/{id}", h.DeleteBook)

		r.Route("/clientes", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Get("/agregar", h.AddCustomerForm)
			r.Post("/crear", h.CreateCustomer)
			r.Get("/editar/{id}", h.EditCustomerForm)
			r.Post("/actualizar/{id}", h.UpdateCustomer)
			r.Post("/eliminar/{id}", h.DeleteCustomer)
		})

		r.Route("/ventas", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Get("/nueva", h.NewSaleForm)
			r.Post("/nueva", h.CreateSale)
			r.Get("/{id}", h.ShowSale)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusNotFound, "La página que buscas no existe.")
	})

	return r
}
