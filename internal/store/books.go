package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/models"
)

// LowStockThreshold flags books with fewer units than this on the dashboard.
const LowStockThreshold = 5

type BookFilter struct {
	Query        string // matches title, author or ISBN
	Genre        string
	LowStockOnly bool
}

const bookColumns = `id, title, author, genre, stock, isbn, year, price, cover_url, created_at`

func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	var b models.Book
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Stock, &b.ISBN, &b.Year, &b.Price, &b.CoverURL, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBooks(ctx context.Context, f BookFilter) ([]models.Book, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		like := containsPattern(q)
		where = append(where, `(title LIKE ? ESCAPE '\' OR author LIKE ? ESCAPE '\' OR isbn LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if f.Genre != "" {
		where = append(where, "genre = ?")
		args = append(args, f.Genre)
	}
	if f.LowStockOnly {
		where = append(where, "stock < ?")
		args = append(args, LowStockThreshold)
	}

	query := `SELECT ` + bookColumns + ` FROM books`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, title`

	return s.queryBooks(ctx, query, args...)
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// ListGenres returns the distinct non-empty genres, sorted.
func (s *Store) ListGenres(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT DISTINCT genre FROM books WHERE genre != '' ORDER BY genre`)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func (s *Store) GetBook(ctx context.Context, id string) (*models.Book, error) {
	return getBook(ctx, s.DB, id)
}

func getBook(ctx context.Context, q queryer, id string) (*models.Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("store.GetBook", "El libro solicitado no existe.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %s: %w", id, err)
	}
	return b, nil
}

// CreateBook assigns the book a new ID and creation time and inserts it.
func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	b.ID = uuid.NewString()
	b.CreatedAt = s.now()
	query := `
		INSERT INTO books (id, title, author, genre, stock, isbn, year, price, cover_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.DB.ExecContext(ctx, query, b.ID, b.Title, b.Author, b.Genre, b.Stock, b.ISBN, b.Year, b.Price, b.CoverURL, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// UpdateBook overwrites the editable fields. The cover is changed separately.
func (s *Store) UpdateBook(ctx context.Context, b *models.Book) error {
	query := `
		UPDATE books
		SET title = ?, author = ?, genre = ?, stock = ?, isbn = ?, year = ?, price = ?
		WHERE id = ?
	`
	res, err := s.DB.ExecContext(ctx, query, b.Title, b.Author, b.Genre, b.Stock, b.ISBN, b.Year, b.Price, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update book %s: %w", b.ID, err)
	}
	return expectOne(res, "store.UpdateBook", "El libro solicitado no existe.")
}

func (s *Store) UpdateBookCover(ctx context.Context, id, coverURL string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE books SET cover_url = ? WHERE id = ?`, coverURL, id)
	if err != nil {
		return fmt.Errorf("failed to update cover for book %s: %w", id, err)
	}
	return expectOne(res, "store.UpdateBookCover", "El libro solicitado no existe.")
}

// DeleteBook removes the book. Sales that reference it keep their snapshot.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book %s: %w", id, err)
	}
	return expectOne(res, "store.DeleteBook", "El libro solicitado no existe.")
}

func expectOne(res sql.Result, op, notFoundMsg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return apperr.E(apperr.NotFound, op, notFoundMsg)
	}
	return nil
}
