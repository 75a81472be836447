package handlers

import (
	"log/slog"
	"net/http"

	"github.com/alextreichler/bookstore/internal/apperr"
)

const msgUnexpected = "Ocurrió un error inesperado. Inténtalo de nuevo."

// fail is the one place where an error becomes a response.
//
// back is where business-rule failures return the user to, usually the form
// they came from. When back is empty a NotFound renders the 404 page instead
// of redirecting.
func (h *App) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.Unauthorized:
		h.flashRedirect(w, r, "error", apperr.UserMessage(err, "Debes iniciar sesión."), "/login")

	case apperr.NotFound:
		msg := apperr.UserMessage(err, "No encontrado.")
		if back == "" {
			h.renderError(w, r, http.StatusNotFound, msg)
			return
		}
		h.flashRedirect(w, r, "error", msg, back)

	case apperr.Validation, apperr.InsufficientStock, apperr.Conflict:
		if back == "" {
			back = "/"
		}
		slog.Debug("Request rejected", "kind", kind, "path", r.URL.Path, "error", err)
		h.flashRedirect(w, r, "error", apperr.UserMessage(err, msgUnexpected), back)

	default:
		h.internalError(w, r, r.Method+" "+r.URL.Path, err)
	}
}

func (h *App) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error("Request failed", "op", op, "error", err)
	h.renderError(w, r, http.StatusInternalServerError, msgUnexpected)
}

// renderError shows the error page, falling back to plain text if the page
// itself cannot be rendered.
func (h *App) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	tmpl := h.Templates.Get("error.html")
	if tmpl == nil {
		http.Error(w, msg, status)
		return
	}
	data := map[string]any{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": msg,
	}
	if u, ok := UserFromContext(r.Context()); ok {
		data["User"] = u
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("Failed to render error page", "error", err)
	}
}
