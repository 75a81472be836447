package handlers

import (
	"net/http"

	"github.com/alextreichler/bookstore/internal/store"
)

func (h *App) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetDashboardStats(r.Context(), h.now())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	recent, err := h.saleViews(r.Context(), stats.RecentSales)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.render(w, r, http.StatusOK, "dashboard.html", map[string]any{
		"Title":             "Panel",
		"Stats":             stats,
		"Recent":            recent,
		"LowStockThreshold": store.LowStockThreshold,
	})
}
