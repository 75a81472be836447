package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/models"
)

// SaleLine is one requested (book, quantity) pair.
type SaleLine struct {
	BookID   string
	Quantity int
}

// SaleInput is everything CreateSale needs. UserID and UserName identify the
// operator recording the sale.
type SaleInput struct {
	CustomerID string
	UserID     string
	UserName   string
	Lines      []SaleLine
}

const saleColumns = `id, customer_id, customer_name, user_id, user_name, items, total, status, created_at`

func scanSale(row interface{ Scan(...any) error }) (*models.Sale, error) {
	var (
		sale  models.Sale
		items string
	)
	err := row.Scan(&sale.ID, &sale.CustomerID, &sale.CustomerName, &sale.UserID, &sale.UserName, &items, &sale.Total, &sale.Status, &sale.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &sale.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items of sale %s: %w", sale.ID, err)
	}
	return &sale, nil
}

// CreateSale records a sale and takes its books out of stock, all or nothing.
//
// Lines are processed in order inside one transaction. Each line decrements
// stock with a conditional UPDATE that only matches while enough units are
// left, so two concurrent sales can never oversell the same book. The first
// line that fails aborts the transaction: no sale is written and no earlier
// decrement survives.
func (s *Store) CreateSale(ctx context.Context, in SaleInput) (*models.Sale, error) {
	const op = "store.CreateSale"

	if len(in.Lines) == 0 {
		return nil, apperr.Validationf(op, "Agrega al menos un libro a la venta.")
	}
	for _, l := range in.Lines {
		if l.BookID == "" {
			return nil, apperr.Validationf(op, "Selecciona un libro en cada línea.")
		}
		if l.Quantity <= 0 {
			return nil, apperr.Validationf(op, "La cantidad debe ser un número mayor que cero.")
		}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sale transaction: %w", err)
	}
	defer tx.Rollback()

	customer, err := getCustomer(ctx, tx, in.CustomerID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.E(apperr.NotFound, op, "El cliente seleccionado no existe.")
		}
		return nil, err
	}

	sale := &models.Sale{
		ID:           uuid.NewString(),
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		UserID:       in.UserID,
		UserName:     in.UserName,
		Status:       models.SaleStatusCompleted,
		Total:        decimal.Zero,
		CreatedAt:    s.now(),
	}

	for _, line := range in.Lines {
		book, err := getBook(ctx, tx, line.BookID)
		if err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return nil, apperr.E(apperr.NotFound, op, "Uno de los libros seleccionados ya no existe.")
			}
			return nil, err
		}

		if err := decrementStock(ctx, tx, book, line.Quantity); err != nil {
			return nil, err
		}

		subtotal := book.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		sale.Total = sale.Total.Add(subtotal)
		sale.Items = append(sale.Items, models.SaleItem{
			BookID:    book.ID,
			Title:     book.Title,
			Quantity:  line.Quantity,
			UnitPrice: book.Price,
			Subtotal:  subtotal,
		})
	}

	items, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sale items: %w", err)
	}

	query := `INSERT INTO sales (` + saleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query, sale.ID, sale.CustomerID, sale.CustomerName, sale.UserID, sale.UserName, string(items), sale.Total, sale.Status, sale.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}
	return sale, nil
}

func decrementStock(ctx context.Context, tx *sql.Tx, book *models.Book, qty int) error {
	res, err := tx.ExecContext(ctx, `UPDATE books SET stock = stock - ? WHERE id = ? AND stock >= ?`, qty, book.ID, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock of book %s: %w", book.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to decrement stock of book %s: %w", book.ID, err)
	}
	if n == 0 {
		return apperr.E(apperr.InsufficientStock, "store.CreateSale",
			fmt.Sprintf("Stock insuficiente para %q: disponibles %d, solicitados %d.", book.Title, book.Stock, qty))
	}
	return nil
}

// CountSales returns the total number of recorded sales.
func (s *Store) CountSales(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sales: %w", err)
	}
	return n, nil
}

// ListSales returns sales newest first. A limit of zero or less returns all
// of them and ignores offset.
func (s *Store) ListSales(ctx context.Context, limit, offset int) ([]models.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, max(offset, 0))
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []models.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}

func (s *Store) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	sale, err := scanSale(s.DB.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.NotFound, "store.GetSale", "La venta solicitada no existe.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale %s: %w", id, err)
	}
	return sale, nil
}
