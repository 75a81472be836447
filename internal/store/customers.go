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

type CustomerFilter struct {
	Query      string // matches name or email
	ActiveOnly bool
}

const customerColumns = `id, name, email, phone, street, city, postal_code, registered_at, active`

const msgCustomerNotFound = "El cliente solicitado no existe."

func scanCustomer(row interface{ Scan(...any) error }) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address.Street, &c.Address.City, &c.Address.PostalCode, &c.RegisteredAt, &c.Active)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context, f CustomerFilter) ([]models.Customer, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		like := containsPattern(q)
		where = append(where, `(name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if f.ActiveOnly {
		where = append(where, "active = 1")
	}

	query := `SELECT ` + customerColumns + ` FROM customers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	return getCustomer(ctx, s.DB, id)
}

func getCustomer(ctx context.Context, q queryer, id string) (*models.Customer, error) {
	c, err := scanCustomer(q.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.NotFound, "store.GetCustomer", msgCustomerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer %s: %w", id, err)
	}
	return c, nil
}

// CustomersByID loads the given customers in one query. Missing ids are
// simply absent from the result.
func (s *Store) CustomersByID(ctx context.Context, ids []string) (map[string]*models.Customer, error) {
	out := make(map[string]*models.Customer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// CreateCustomer assigns the customer a new ID and registration time.
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	c.ID = uuid.NewString()
	c.RegisteredAt = s.now()
	query := `
		INSERT INTO customers (id, name, email, phone, street, city, postal_code, registered_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.DB.ExecContext(ctx, query, c.ID, c.Name, c.Email, c.Phone, c.Address.Street, c.Address.City, c.Address.PostalCode, c.RegisteredAt, boolToInt(c.Active))
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		UPDATE customers
		SET name = ?, email = ?, phone = ?, street = ?, city = ?, postal_code = ?, active = ?
		WHERE id = ?
	`
	res, err := s.DB.ExecContext(ctx, query, c.Name, c.Email, c.Phone, c.Address.Street, c.Address.City, c.Address.PostalCode, boolToInt(c.Active), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update customer %s: %w", c.ID, err)
	}
	return expectOne(res, "store.UpdateCustomer", msgCustomerNotFound)
}

// DeleteCustomer removes the customer. Their sales are left untouched.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer %s: %w", id, err)
	}
	return expectOne(res, "store.DeleteCustomer", msgCustomerNotFound)
}
