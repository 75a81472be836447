package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"

	SaleStatusCompleted = "completed"
)

type Book struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	Genre     string          `json:"genre"`
	Stock     int             `json:"stock"`
	ISBN      string          `json:"isbn"`
	Year      int             `json:"year"`
	Price     decimal.Decimal `json:"price"`
	CoverURL  string          `json:"cover_url"`
	CreatedAt time.Time       `json:"created_at"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type Customer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      Address   `json:"address"`
	RegisteredAt time.Time `json:"registered_at"`
	Active       bool      `json:"active"`
}

// SaleItem is a snapshot of a book at the moment it was sold. Later edits to
// the book never change it.
type SaleItem struct {
	BookID    string          `json:"book_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Sale references its customer and operator by id only. The names are cached
// at sale time so the record still renders after either is deleted.
type Sale struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	UserID       string          `json:"user_id"`
	UserName     string          `json:"user_name"`
	Items        []SaleItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Units returns the number of books sold across all line items.
func (s Sale) Units() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	Active       bool      `json:"active"`
}
