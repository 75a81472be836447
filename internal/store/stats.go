package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alextreichler/bookstore/internal/models"
)

type DashboardStats struct {
	TotalBooks     int
	TotalCustomers int
	TotalSales     int
	MonthlyRevenue decimal.Decimal
	MonthStart     time.Time
	LowStockBooks  []models.Book
	RecentSales    []models.Sale
}

// MonthStart returns midnight of the first day of now's month, in now's
// location.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// GetDashboardStats computes the dashboard figures from scratch.
func (s *Store) GetDashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{
		MonthlyRevenue: decimal.Zero,
		MonthStart:     MonthStart(now),
	}

	counts := []struct {
		table string
		dst   *int
	}{
		{"books", &stats.TotalBooks},
		{"customers", &stats.TotalCustomers},
		{"sales", &stats.TotalSales},
	}
	for _, c := range counts {
		if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	revenue, err := s.revenueSince(ctx, stats.MonthStart)
	if err != nil {
		return nil, err
	}
	stats.MonthlyRevenue = revenue

	stats.LowStockBooks, err = s.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books WHERE stock < ? ORDER BY stock, title`, LowStockThreshold)
	if err != nil {
		return nil, err
	}

	stats.RecentSales, err = s.ListSales(ctx, 5, 0)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// revenueSince sums sale totals at or after since. Totals are stored as
// decimal strings, so the sum is done here rather than with SQL SUM.
func (s *Store) revenueSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT total, created_at FROM sales`)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to scan sales: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var (
			total decimal.Decimal
			at    time.Time
		)
		if err := rows.Scan(&total, &at); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan sale total: %w", err)
		}
		if !at.Before(since) {
			sum = sum.Add(total)
		}
	}
	return sum, rows.Err()
}
