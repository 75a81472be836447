package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/models"
	"github.com/alextreichler/bookstore/internal/store"
)

// ListBooks is the home page: the inventory with optional search filters.
func (h *App) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.BookFilter{
		Query:        strings.TrimSpace(q.Get("q")),
		Genre:        q.Get("genre"),
		LowStockOnly: q.Get("low") != "",
	}

	books, err := h.Store.ListBooks(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	genres, err := h.Store.ListGenres(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.render(w, r, http.StatusOK, "books.html", map[string]any{
		"Title":  "Libros",
		"Books":  books,
		"Filter": filter,
		"Genres": genres,
	})
}

func (h *App) AddBookForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "book_form.html", map[string]any{
		"Title":  "Agregar libro",
		"Action": "/crear",
		"Book":   &models.Book{},
	})
}

func (h *App) CreateBook(w http.ResponseWriter, r *http.Request) {
	if err := parseBookForm(r); err != nil {
		h.fail(w, r, err, "/agregar")
		return
	}
	book := bookFromForm(r)
	if book.Title == "" {
		h.fail(w, r, apperr.Validationf("handlers.CreateBook", "El título es obligatorio."), "/agregar")
		return
	}

	coverURL, err := h.saveCover(r)
	if err != nil {
		h.fail(w, r, err, "/agregar")
		return
	}
	book.CoverURL = coverURL

	if err := h.Store.CreateBook(r.Context(), book); err != nil {
		h.Covers.Remove(coverURL)
		h.fail(w, r, err, "/agregar")
		return
	}

	slog.Info("Book created", "book_id", book.ID, "title", book.Title)
	h.flashRedirect(w, r, "success", "Libro agregado correctamente.", "/")
}

func (h *App) EditBookForm(w http.ResponseWriter, r *http.Request) {
	book, err := h.Store.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.render(w, r, http.StatusOK, "book_form.html", map[string]any{
		"Title":  "Editar libro",
		"Action": "/actualizar/" + book.ID,
		"Book":   book,
	})
}

func (h *App) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/editar/" + id

	if err := parseBookForm(r); err != nil {
		h.fail(w, r, err, back)
		return
	}
	book := bookFromForm(r)
	book.ID = id
	if book.Title == "" {
		h.fail(w, r, apperr.Validationf("handlers.UpdateBook", "El título es obligatorio."), back)
		return
	}

	existing, err := h.Store.GetBook(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	if err := h.Store.UpdateBook(r.Context(), book); err != nil {
		h.fail(w, r, err, "/")
		return
	}

	coverURL, err := h.saveCover(r)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	if coverURL != "" {
		if err := h.Store.UpdateBookCover(r.Context(), id, coverURL); err != nil {
			h.Covers.Remove(coverURL)
			h.fail(w, r, err, "/")
			return
		}
		if err := h.Covers.Remove(existing.CoverURL); err != nil {
			slog.Warn("Failed to remove old cover", "book_id", id, "error", err)
		}
	}

	slog.Info("Book updated", "book_id", id)
	h.flashRedirect(w, r, "success", "Libro actualizado correctamente.", "/")
}

func (h *App) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	book, err := h.Store.GetBook(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	if err := h.Store.DeleteBook(r.Context(), id); err != nil {
		h.fail(w, r, err, "/")
		return
	}
	if err := h.Covers.Remove(book.CoverURL); err != nil {
		slog.Warn("Failed to remove cover", "book_id", id, "error", err)
	}

	slog.Info("Book deleted", "book_id", id)
	h.flashRedirect(w, r, "success", "Libro eliminado.", "/")
}

// parseBookForm accepts both multipart (with a cover) and plain urlencoded
// submissions.
func parseBookForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxUploadBytes)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return apperr.Wrap(apperr.Validation, "handlers.parseBookForm", "El formulario no es válido o la imagen supera los 10MB.", err)
}

// saveCover stores the uploaded cover, if any, and returns its URL.
func (h *App) saveCover(r *http.Request) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile("portada")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Validation, "handlers.saveCover", "No se pudo leer la imagen de portada.", err)
	}
	defer file.Close()
	return h.Covers.Save(file, header.Filename)
}
