package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alextreichler/bookstore/internal/apperr"
)

func (h *App) LoginGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionUser(h.session(r)); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", map[string]any{
		"Title": "Iniciar sesión",
	})
}

func (h *App) LoginPost(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	user, err := h.Auth.Authenticate(r.Context(), email, password)
	if err != nil {
		if apperr.Is(err, apperr.Unauthorized) {
			slog.Info("Login failed", "email", email, "ip", clientIP(r))
			h.flashRedirect(w, r, "error", apperr.UserMessage(err, "Correo o contraseña incorrectos."), "/login")
			return
		}
		h.fail(w, r, err, "/login")
		return
	}

	session := h.session(r)
	session.Values["authenticated"] = true
	session.Values["user_id"] = user.ID
	session.Values["user_name"] = user.Name
	session.Values["user_role"] = user.Role
	session.AddFlash(FlashMessage{Type: "success", Message: "¡Bienvenido, " + user.Name + "!"})

	if err := session.Save(r, w); err != nil {
		h.internalError(w, r, "save session", err)
		return
	}

	slog.Info("Login successful", "user_id", user.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *App) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.session(r)
	for _, key := range []string{"authenticated", "user_id", "user_name", "user_role"} {
		delete(session.Values, key)
	}
	session.AddFlash(FlashMessage{Type: "success", Message: "Sesión cerrada. ¡Hasta pronto!"})
	session.Save(r, w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
