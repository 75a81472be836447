package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/models"
	"github.com/alextreichler/bookstore/internal/store"
)

const (
	salesPerPage = 20
	saleFormRows = 5
)

// saleView is a sale with its customer resolved at read time.
type saleView struct {
	Sale            models.Sale
	CustomerLabel   string
	CustomerMissing bool
}

// customerLabel names the sale's customer. A deleted customer falls back to
// the name captured when the sale was recorded.
func customerLabel(sale models.Sale, current *models.Customer) (string, bool) {
	if current != nil {
		return current.Name, false
	}
	if sale.CustomerName != "" {
		return sale.CustomerName + " (eliminado)", true
	}
	return "Cliente eliminado", true
}

func (h *App) saleViews(ctx context.Context, sales []models.Sale) ([]saleView, error) {
	ids := make([]string, 0, len(sales))
	for _, s := range sales {
		ids = append(ids, s.CustomerID)
	}
	customers, err := h.Store.CustomersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]saleView, 0, len(sales))
	for _, s := range sales {
		label, missing := customerLabel(s, customers[s.CustomerID])
		views = append(views, saleView{Sale: s, CustomerLabel: label, CustomerMissing: missing})
	}
	return views, nil
}

func (h *App) ListSales(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	total, err := h.Store.CountSales(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	totalPages := max((total+salesPerPage-1)/salesPerPage, 1)
	if page > totalPages {
		page = totalPages
	}

	sales, err := h.Store.ListSales(r.Context(), salesPerPage, (page-1)*salesPerPage)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	views, err := h.saleViews(r.Context(), sales)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.render(w, r, http.StatusOK, "sales.html", map[string]any{
		"Title":       "Ventas",
		"Sales":       views,
		"CurrentPage": page,
		"TotalPages":  totalPages,
	})
}

func (h *App) ShowSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Store.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	views, err := h.saleViews(r.Context(), []models.Sale{*sale})
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.render(w, r, http.StatusOK, "sale_detail.html", map[string]any{
		"Title": "Detalle de venta",
		"View":  views[0],
	})
}

func (h *App) NewSaleForm(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.ListCustomers(r.Context(), store.CustomerFilter{ActiveOnly: true})
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	books, err := h.Store.ListBooks(r.Context(), store.BookFilter{})
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.render(w, r, http.StatusOK, "sale_form.html", map[string]any{
		"Title":            "Nueva venta",
		"Customers":        customers,
		"SelectedCustomer": r.URL.Query().Get("cliente"),
		"Books":            books,
		"Rows":             saleFormRows,
	})
}

func (h *App) CreateSale(w http.ResponseWriter, r *http.Request) {
	const back = "/ventas/nueva"

	if err := r.ParseForm(); err != nil {
		h.fail(w, r, invalidForm("handlers.CreateSale", err), back)
		return
	}
	customerID := r.FormValue("cliente_id")
	if customerID == "" {
		h.fail(w, r, apperr.Validationf("handlers.CreateSale", "Selecciona un cliente."), back)
		return
	}
	retry := back + "?cliente=" + url.QueryEscape(customerID)

	lines, err := saleLinesFromForm(r)
	if err != nil {
		h.fail(w, r, err, retry)
		return
	}

	user, _ := UserFromContext(r.Context())
	sale, err := h.Store.CreateSale(r.Context(), store.SaleInput{
		CustomerID: customerID,
		UserID:     user.ID,
		UserName:   user.Name,
		Lines:      lines,
	})
	if err != nil {
		h.fail(w, r, err, retry)
		return
	}

	slog.Info("Sale recorded", "sale_id", sale.ID, "customer_id", sale.CustomerID, "total", sale.Total.StringFixed(2), "user_id", user.ID)
	h.flashRedirect(w, r, "success", "Venta registrada. Total: $"+sale.Total.StringFixed(2), "/ventas/"+sale.ID)
}
