package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/models"
)

func countSales(t testing.TB, s *Store) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM sales`).Scan(&n))
	return n
}

func stockOf(t testing.TB, s *Store, id string) int {
	t.Helper()
	b, err := s.GetBook(context.Background(), id)
	require.NoError(t, err)
	return b.Stock
}

func TestCreateSaleEndToEnd(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	x := addBook(t, s, "X", 10, "5.0")
	y := addCustomer(t, s, "Y")

	sale, err := s.CreateSale(ctx, SaleInput{
		CustomerID: y.ID,
		UserID:     "op-1",
		UserName:   "Operador",
		Lines:      []SaleLine{{BookID: x.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, stockOf(t, s, x.ID))
	assert.Equal(t, 1, countSales(t, s))
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(15)), "total = %s", sale.Total)

	stored, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "Y", stored.CustomerName)
	assert.Equal(t, "Operador", stored.UserName)
	assert.Equal(t, models.SaleStatusCompleted, stored.Status)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "X", stored.Items[0].Title)
	assert.Equal(t, 3, stored.Items[0].Quantity)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(5)))
	assert.True(t, stored.Items[0].Subtotal.Equal(decimal.NewFromInt(15)))
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(15)))
}

func TestCreateSaleMultipleLinesTotal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := addBook(t, s, "A", 5, "12.50")
	b := addBook(t, s, "B", 2, "3.35")
	c := addCustomer(t, s, "Cliente")

	sale, err := s.CreateSale(ctx, SaleInput{CustomerID: c.ID, Lines: []SaleLine{
		{BookID: a.ID, Quantity: 2},
		{BookID: b.ID, Quantity: 2},
	}})
	require.NoError(t, err)

	assert.True(t, sale.Total.Equal(decimal.RequireFromString("31.70")), "total = %s", sale.Total)
	assert.Equal(t, 4, sale.Units())
	assert.Equal(t, 3, stockOf(t, s, a.ID))
	assert.Equal(t, 0, stockOf(t, s, b.ID))
}

// A failing line aborts the whole sale. Earlier lines in the same submission
// are rolled back too, so stock is exactly as before.
func TestCreateSaleInsufficientStockIsAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := addBook(t, s, "Primero", 10, "5")
	second := addBook(t, s, "Segundo", 1, "7")
	c := addCustomer(t, s, "Cliente")

	_, err := s.CreateSale(ctx, SaleInput{CustomerID: c.ID, Lines: []SaleLine{
		{BookID: first.ID, Quantity: 4},
		{BookID: second.ID, Quantity: 2},
	}})
	require.Error(t, err)
	assert.Equal(t, apperr.InsufficientStock, apperr.KindOf(err))
	assert.Contains(t, apperr.UserMessage(err, ""), "Segundo")

	assert.Equal(t, 0, countSales(t, s))
	assert.Equal(t, 10, stockOf(t, s, first.ID))
	assert.Equal(t, 1, stockOf(t, s, second.ID))
}

func TestCreateSaleRepeatedBookCountsCumulatively(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := addBook(t, s, "Repetido", 5, "1")
	c := addCustomer(t, s, "Cliente")

	_, err := s.CreateSale(ctx, SaleInput{CustomerID: c.ID, Lines: []SaleLine{
		{BookID: b.ID, Quantity: 3},
		{BookID: b.ID, Quantity: 3},
	}})
	assert.True(t, apperr.Is(err, apperr.InsufficientStock))
	assert.Equal(t, 5, stockOf(t, s, b.ID))

	sale, err := s.CreateSale(ctx, SaleInput{CustomerID: c.ID, Lines: []SaleLine{
		{BookID: b.ID, Quantity: 3},
		{BookID: b.ID, Quantity: 2},
	}})
	require.NoError(t, err)
	assert.Len(t, sale.Items, 2)
	assert.Equal(t, 0, stockOf(t, s, b.ID))
}

func TestCreateSaleRejectsBadInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := addBook(t, s, "Libro", 5, "1")
	c := addCustomer(t, s, "Cliente")

	cases := []struct {
		name string
		in   SaleInput
		kind apperr.Kind
	}{
		{"no lines", SaleInput{CustomerID: c.ID}, apperr.Validation},
		{"zero quantity", SaleInput{CustomerID: c.ID, Lines: []SaleLine{{BookID: b.ID, Quantity: 0}}}, apperr.Validation},
		{"negative quantity", SaleInput{CustomerID: c.ID, Lines: []SaleLine{{BookID: b.ID, Quantity: -2}}}, apperr.Validation},
		{"missing customer", SaleInput{CustomerID: "ghost", Lines: []SaleLine{{BookID: b.ID, Quantity: 1}}}, apperr.NotFound},
		{"missing book", SaleInput{CustomerID: c.ID, Lines: []SaleLine{{BookID: b.ID, Quantity: 1}, {BookID: "ghost", Quantity: 1}}}, apperr.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateSale(ctx, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}
	assert.Equal(t, 0, countSales(t, s))
	assert.Equal(t, 5, stockOf(t, s, b.ID))
}

func TestDeletingReferencedEntitiesKeepsSale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := addBook(t, s, "Efímero", 3, "9.99")
	c := addCustomer(t, s, "Pasajero")

	sale, err := s.CreateSale(ctx, SaleInput{CustomerID: c.ID, Lines: []SaleLine{{BookID: b.ID, Quantity: 1}}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteBook(ctx, b.ID))
	require.NoError(t, s.DeleteCustomer(ctx, c.ID))

	stored, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, stored.CustomerID)
	assert.Equal(t, "Pasajero", stored.CustomerName)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Efímero", stored.Items[0].Title)
	assert.True(t, stored.Total.Equal(decimal.RequireFromString("9.99")))

	customers, err := s.CustomersByID(ctx, []string{stored.CustomerID})
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestConcurrentSalesDoNotOversell(t *testing.T) {
	s := newTestStore(t)
	b := addBook(t, s, "Último ejemplar", 1, "20")
	c := addCustomer(t, s, "Cliente")

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		shortages atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateSale(context.Background(), SaleInput{CustomerID: c.ID, Lines: []SaleLine{{BookID: b.ID, Quantity: 1}}})
			switch {
			case err == nil:
				successes.Add(1)
			case apperr.Is(err, apperr.InsufficientStock):
				shortages.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(7), shortages.Load())
	assert.Equal(t, 0, stockOf(t, s, b.ID))
	assert.Equal(t, 1, countSales(t, s))
}

// For any set of books and requested lines, CreateSale either succeeds with
// stock reduced by exactly the requested amounts and the total equal to the
// sum of price × quantity, or fails leaving stock and sales untouched.
func TestCreateSaleProperties(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := addCustomer(t, s, "Propiedad")

	rapid.Check(t, func(rt *rapid.T) {
		nBooks := rapid.IntRange(1, 4).Draw(rt, "books")
		books := make([]*models.Book, nBooks)
		for i := range books {
			stock := rapid.IntRange(0, 15).Draw(rt, fmt.Sprintf("stock%d", i))
			cents := rapid.Int64Range(0, 10000).Draw(rt, fmt.Sprintf("cents%d", i))
			books[i] = &models.Book{Title: fmt.Sprintf("P%d", i), Stock: stock, Price: decimal.New(cents, -2)}
			if err := s.CreateBook(ctx, books[i]); err != nil {
				rt.Fatalf("create book: %v", err)
			}
		}

		nLines := rapid.IntRange(1, 5).Draw(rt, "lines")
		lines := make([]SaleLine, nLines)
		want := map[string]int{}
		total := decimal.Zero
		feasible := true
		for i := range lines {
			idx := rapid.IntRange(0, nBooks-1).Draw(rt, fmt.Sprintf("book%d", i))
			qty := rapid.IntRange(1, 10).Draw(rt, fmt.Sprintf("qty%d", i))
			lines[i] = SaleLine{BookID: books[idx].ID, Quantity: qty}
			want[books[idx].ID] += qty
			if want[books[idx].ID] > books[idx].Stock {
				feasible = false
			}
			total = total.Add(books[idx].Price.Mul(decimal.NewFromInt(int64(qty))))
		}

		before := countSales(t, s)
		sale, err := s.CreateSale(ctx, SaleInput{CustomerID: c.ID, Lines: lines})

		if feasible {
			if err != nil {
				rt.Fatalf("expected success, got %v", err)
			}
			if !sale.Total.Equal(total) {
				rt.Fatalf("total %s, want %s", sale.Total, total)
			}
			if got := countSales(t, s); got != before+1 {
				rt.Fatalf("sales %d, want %d", got, before+1)
			}
		} else {
			if !apperr.Is(err, apperr.InsufficientStock) {
				rt.Fatalf("expected insufficient stock, got %v", err)
			}
			if got := countSales(t, s); got != before {
				rt.Fatalf("sales %d, want %d", got, before)
			}
		}

		for _, b := range books {
			expected := b.Stock
			if feasible {
				expected -= want[b.ID]
			}
			if got := stockOf(t, s, b.ID); got != expected {
				rt.Fatalf("stock of %s = %d, want %d", b.Title, got, expected)
			}
		}
	})
}

func TestListSalesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := addBook(t, s, "X", 100, "1.00")
	c := addCustomer(t, s, "Y")

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		i := i
		s.Now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		sale, err := s.CreateSale(ctx, SaleInput{CustomerID: c.ID, Lines: []SaleLine{{BookID: b.ID, Quantity: 1}}})
		require.NoError(t, err)
		ids = append(ids, sale.ID)
	}

	n, err := s.CountSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	page, err := s.ListSales(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	page, err = s.ListSales(ctx, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	all, err := s.ListSales(ctx, 0, 3)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
