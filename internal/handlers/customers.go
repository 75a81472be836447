package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/models"
	"github.com/alextreichler/bookstore/internal/store"
)

func (h *App) ListCustomers(w http.ResponseWriter, r *http.Request) {
	filter := store.CustomerFilter{
		Query:      strings.TrimSpace(r.URL.Query().Get("q")),
		ActiveOnly: r.URL.Query().Get("activos") != "",
	}
	customers, err := h.Store.ListCustomers(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.render(w, r, http.StatusOK, "customers.html", map[string]any{
		"Title":     "Clientes",
		"Customers": customers,
		"Filter":    filter,
	})
}

func (h *App) AddCustomerForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "customer_form.html", map[string]any{
		"Title":    "Agregar cliente",
		"Action":   "/clientes/crear",
		"Customer": &models.Customer{Active: true},
	})
}

func (h *App) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, invalidForm("handlers.CreateCustomer", err), "/clientes/agregar")
		return
	}
	c := customerFromForm(r)
	if c.Name == "" {
		h.fail(w, r, apperr.Validationf("handlers.CreateCustomer", "El nombre es obligatorio."), "/clientes/agregar")
		return
	}
	if err := h.Store.CreateCustomer(r.Context(), c); err != nil {
		h.fail(w, r, err, "/clientes/agregar")
		return
	}
	slog.Info("Customer created", "customer_id", c.ID)
	h.flashRedirect(w, r, "success", "Cliente agregado correctamente.", "/clientes")
}

func (h *App) EditCustomerForm(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "/clientes")
		return
	}
	h.render(w, r, http.StatusOK, "customer_form.html", map[string]any{
		"Title":    "Editar cliente",
		"Action":   "/clientes/actualizar/" + c.ID,
		"Customer": c,
	})
}

func (h *App) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, invalidForm("handlers.UpdateCustomer", err), "/clientes/editar/"+id)
		return
	}
	c := customerFromForm(r)
	c.ID = id
	if c.Name == "" {
		h.fail(w, r, apperr.Validationf("handlers.UpdateCustomer", "El nombre es obligatorio."), "/clientes/editar/"+id)
		return
	}
	if err := h.Store.UpdateCustomer(r.Context(), c); err != nil {
		h.fail(w, r, err, "/clientes")
		return
	}
	slog.Info("Customer updated", "customer_id", id)
	h.flashRedirect(w, r, "success", "Cliente actualizado correctamente.", "/clientes")
}

// DeleteCustomer removes the customer. Their past sales stay and render with
// the name captured at sale time.
func (h *App) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteCustomer(r.Context(), id); err != nil {
		h.fail(w, r, err, "/clientes")
		return
	}
	slog.Info("Customer deleted", "customer_id", id)
	h.flashRedirect(w, r, "success", "Cliente eliminado.", "/clientes")
}
