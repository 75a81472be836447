package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/alextreichler/bookstore/internal/auth"
	"github.com/alextreichler/bookstore/internal/store"
)

const sessionName = "bookstore-session"

// App holds the dependencies shared by every page handler.
type App struct {
	Store        *store.Store
	Auth         *auth.Authenticator
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
	Covers       *CoverStore
	LoginLimiter *RateLimiter // nil disables login throttling

	// Now is the dashboard clock.
	Now func() time.Time
}

// NewSessionStore returns the signed cookie store for operator sessions.
// secure must be false when the site is served over plain HTTP, otherwise
// browsers drop the cookie.
func NewSessionStore(key []byte, secure bool, domain string) *sessions.CookieStore {
	cs := sessions.NewCookieStore(key)
	cs.Options.Path = "/"
	cs.Options.HttpOnly = true
	cs.Options.Secure = secure
	cs.Options.SameSite = http.SameSiteLaxMode
	if domain != "" {
		cs.Options.Domain = domain
	}
	return cs
}

func (h *App) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// session returns the request's session. A cookie that fails to decode
// yields a fresh session, same as no cookie.
func (h *App) session(r *http.Request) *sessions.Session {
	session, _ := h.SessionStore.Get(r, sessionName)
	return session
}

// flashRedirect stores a flash message and redirects to url.
func (h *App) flashRedirect(w http.ResponseWriter, r *http.Request, kind, msg, url string) {
	session := h.session(r)
	session.AddFlash(FlashMessage{Type: kind, Message: msg})
	session.Save(r, w)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// render executes the page through the layout. Flashes, the CSRF field and
// the current user are added to data. Output is buffered so a template error
// still produces a clean 500.
func (h *App) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	tmpl := h.Templates.Get(page)
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}

	session := h.session(r)
	data["Flashes"] = GetFlash(session)
	data["CsrfField"] = csrf.TemplateField(r)
	if u, ok := UserFromContext(r.Context()); ok {
		data["User"] = u
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.internalError(w, r, "render "+page, err)
		return
	}

	session.Save(r, w) // clears the flashes just shown
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
