package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

// Repository exposes the aggregation and snapshot queries the service needs.
type Repository interface {
	Totals(ctx context.Context, r DateRange) (Totals, error)
	SalesSeries(ctx context.Context, r DateRange, g Granularity) ([]BucketRow, error)
	ExpenseSeries(ctx context.Context, r DateRange, g Granularity) ([]BucketRow, error)
	CategoryRollups(ctx context.Context, r DateRange) ([]CategoryRollup, error)
	ProductRollups(ctx context.Context, r DateRange, limit int) ([]ProductRollup, error)
	LowStock(ctx context.Context, threshold int64) ([]LowStockItem, error)
	UserByID(ctx context.Context, id int64) (User, error)
	ReportByDate(ctx context.Context, date time.Time) (ReportRecord, error)
	ReportsBetween(ctx context.Context, r DateRange) ([]ReportRecord, error)
	SalesAnalyticsByDate(ctx context.Context, date time.Time) (SalesAnalyticsRecord, error)
	SaveSnapshot(ctx context.Context, report ReportRecord, sales SalesAnalyticsRecord) (ReportRecord, SalesAnalyticsRecord, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository runs the analytics queries against PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository constructs a repository over the shared pool.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool, q: pool}
}

func (r *PostgresRepository) ready() error {
	if r == nil || r.q == nil {
		return errors.New("analytics: repository not initialised")
	}
	return nil
}

const totalsQuery = `
SELECT COALESCE(SUM(s.sales_qty), 0)::bigint,
       COALESCE(SUM(s.sales_qty * p.price), 0),
       COALESCE(SUM(s.sales_qty * p.cost), 0),
       COALESCE(SUM(s.sales_qty * (p.price - p.cost)), 0),
       (SELECT COALESCE(SUM(e.amount), 0) FROM expenses e WHERE e.date BETWEEN $1 AND $2)
FROM sales s
JOIN products p ON p.id = s.product_id
WHERE s.sale_date BETWEEN $1 AND $2`

// Totals sums quantity, revenue, cost, profit and expenses over the window.
func (r *PostgresRepository) Totals(ctx context.Context, rng DateRange) (Totals, error) {
	if err := r.ready(); err != nil {
		return Totals{}, err
	}
	var t Totals
	err := r.q.QueryRow(ctx, totalsQuery, rng.From, rng.To).Scan(&t.Quantity, &t.Revenue, &t.Cost, &t.Profit, &t.Expenses)
	if err != nil {
		return Totals{}, fmt.Errorf("analytics: totals: %w", err)
	}
	return t, nil
}

const salesSeriesQuery = `
SELECT date_trunc($3, s.sale_date::timestamp) AS bucket,
       SUM(s.sales_qty)::bigint,
       COALESCE(SUM(s.sales_qty * p.price), 0),
       COALESCE(SUM(s.sales_qty * p.cost), 0)
FROM sales s
JOIN products p ON p.id = s.product_id
WHERE s.sale_date BETWEEN $1 AND $2
GROUP BY bucket
ORDER BY bucket`

// SalesSeries groups quantity, revenue and cost per bucket.
func (r *PostgresRepository) SalesSeries(ctx context.Context, rng DateRange, g Granularity) ([]BucketRow, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, salesSeriesQuery, rng.From, rng.To, g.unit())
	if err != nil {
		return nil, fmt.Errorf("analytics: sales series: %w", err)
	}
	defer rows.Close()
	var out []BucketRow
	for rows.Next() {
		var row BucketRow
		if err := rows.Scan(&row.Bucket, &row.Quantity, &row.Revenue, &row.Cost); err != nil {
			return nil, fmt.Errorf("analytics: scan sales series: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const expenseSeriesQuery = `
SELECT date_trunc($3, e.date::timestamp) AS bucket,
       COALESCE(SUM(e.amount), 0)
FROM expenses e
WHERE e.date BETWEEN $1 AND $2
GROUP BY bucket
ORDER BY bucket`

// ExpenseSeries groups expenses per bucket.
func (r *PostgresRepository) ExpenseSeries(ctx context.Context, rng DateRange, g Granularity) ([]BucketRow, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, expenseSeriesQuery, rng.From, rng.To, g.unit())
	if err != nil {
		return nil, fmt.Errorf("analytics: expense series: %w", err)
	}
	defer rows.Close()
	var out []BucketRow
	for rows.Next() {
		var row BucketRow
		if err := rows.Scan(&row.Bucket, &row.Expenses); err != nil {
			return nil, fmt.Errorf("analytics: scan expense series: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const categoryRollupsQuery = `
WITH sold AS (
    SELECT p.category_id,
           COUNT(DISTINCT p.id) AS product_count,
           SUM(s.sales_qty) AS quantity,
           SUM(s.sales_qty * p.price) AS sales,
           SUM(s.sales_qty * (p.price - p.cost)) AS profit,
           SUM(p.price) AS price_sum,
           SUM(p.cost) AS cost_sum
    FROM sales s
    JOIN products p ON p.id = s.product_id
    WHERE s.sale_date BETWEEN $1 AND $2
    GROUP BY p.category_id
), spent AS (
    SELECT e.category, SUM(e.amount) AS amount
    FROM expenses e
    WHERE e.date BETWEEN $1 AND $2
    GROUP BY e.category
)
SELECT c.category_id,
       c.category_name,
       COALESCE(sold.product_count, 0)::bigint,
       COALESCE(sold.quantity, 0)::bigint,
       COALESCE(sold.sales, 0),
       COALESCE(sold.profit, 0),
       COALESCE(spent.amount, 0),
       COALESCE(sold.price_sum / NULLIF(sold.cost_sum, 0) * 100, 0)
FROM categories c
LEFT JOIN sold ON sold.category_id = c.category_id
LEFT JOIN spent ON spent.category = c.category_name
ORDER BY 5 DESC, c.category_id`

// CategoryRollups aggregates every category over the window.
func (r *PostgresRepository) CategoryRollups(ctx context.Context, rng DateRange) ([]CategoryRollup, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, categoryRollupsQuery, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("analytics: category rollups: %w", err)
	}
	defer rows.Close()
	var out []CategoryRollup
	for rows.Next() {
		var c CategoryRollup
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.ProductCount, &c.TotalQuantity, &c.TotalSales, &c.TotalProfit, &c.TotalExpenses, &c.SellThrough); err != nil {
			return nil, fmt.Errorf("analytics: scan category rollup: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const productRollupsQuery = `
WITH sold AS (
    SELECT p.id,
           p.name,
           p.category_id,
           COUNT(s.id) AS sale_count,
           SUM(s.sales_qty) AS quantity,
           SUM(s.sales_qty * p.price) AS sales,
           SUM(s.sales_qty * (p.price - p.cost)) AS profit,
           SUM(p.price) AS price_sum,
           SUM(p.cost) AS cost_sum
    FROM sales s
    JOIN products p ON p.id = s.product_id
    WHERE s.sale_date BETWEEN $1 AND $2
    GROUP BY p.id, p.name, p.category_id
), category_sales AS (
    SELECT category_id, SUM(sales) AS sales
    FROM sold
    GROUP BY category_id
), spent AS (
    SELECT e.category, SUM(e.amount) AS amount
    FROM expenses e
    WHERE e.date BETWEEN $1 AND $2
    GROUP BY e.category
)
SELECT sold.id,
       sold.name,
       c.category_name,
       sold.sale_count::bigint,
       COALESCE(sold.quantity, 0)::bigint,
       COALESCE(sold.sales, 0),
       COALESCE(sold.profit, 0),
       COALESCE(ROUND(spent.amount * sold.sales / NULLIF(cs.sales, 0), 2), 0),
       COALESCE(sold.price_sum / NULLIF(sold.cost_sum, 0) * 100, 0)
FROM sold
JOIN categories c ON c.category_id = sold.category_id
JOIN category_sales cs ON cs.category_id = sold.category_id
LEFT JOIN spent ON spent.category = c.category_name
ORDER BY 6 DESC, sold.id
LIMIT $3`

// ProductRollups aggregates sold products over the window, best sellers first.
// Category expenses are split across its products by sales share.
// limit <= 0 returns every product.
func (r *PostgresRepository) ProductRollups(ctx context.Context, rng DateRange, limit int) ([]ProductRollup, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var lim any
	if limit > 0 {
		lim = int64(limit)
	}
	rows, err := r.q.Query(ctx, productRollupsQuery, rng.From, rng.To, lim)
	if err != nil {
		return nil, fmt.Errorf("analytics: product rollups: %w", err)
	}
	defer rows.Close()
	var out []ProductRollup
	for rows.Next() {
		var p ProductRollup
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Category, &p.SaleCount, &p.TotalQuantity, &p.TotalSales, &p.TotalProfit, &p.TotalExpenses, &p.SellThrough); err != nil {
			return nil, fmt.Errorf("analytics: scan product rollup: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const lowStockQuery = `
SELECT i.product_id, p.name, i.available_stock::bigint, i.inventory_qty::bigint
FROM inventory i
JOIN products p ON p.id = i.product_id
WHERE i.available_stock <= $1
ORDER BY i.available_stock, i.product_id`

// LowStock lists inventory rows at or under the threshold.
func (r *PostgresRepository) LowStock(ctx context.Context, threshold int64) ([]LowStockItem, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, lowStockQuery, threshold)
	if err != nil {
		return nil, fmt.Errorf("analytics: low stock: %w", err)
	}
	defer rows.Close()
	var out []LowStockItem
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.AvailableStock, &item.InventoryQty); err != nil {
			return nil, fmt.Errorf("analytics: scan low stock: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// UserByID loads the registration details of a user.
func (r *PostgresRepository) UserByID(ctx context.Context, id int64) (User, error) {
	if err := r.ready(); err != nil {
		return User{}, err
	}
	const query = `SELECT id, email, name, created_at FROM users WHERE id = $1`
	var u User
	if err := r.q.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("analytics: user %d: %w", id, httpx.ErrNotFound)
		}
		return User{}, fmt.Errorf("analytics: user %d: %w", id, err)
	}
	return u, nil
}

const reportColumns = `report_id, report_date, total_revenue, total_profit, total_expenses, total_quantity,
       gross_margin, net_margin, profit_margin, inventory_turnover_rate, stock_to_sales_ratio,
       sell_through_rate, year_over_year_growth, revenue_by_product, generated_at`

const upsertReportQuery = `
INSERT INTO reports (report_date, total_revenue, total_profit, total_expenses, total_quantity,
                     gross_margin, net_margin, profit_margin, inventory_turnover_rate,
                     stock_to_sales_ratio, sell_through_rate, year_over_year_growth,
                     revenue_by_product, generated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, now())
ON CONFLICT (report_date) DO UPDATE SET
    total_revenue = EXCLUDED.total_revenue,
    total_profit = EXCLUDED.total_profit,
    total_expenses = EXCLUDED.total_expenses,
    total_quantity = EXCLUDED.total_quantity,
    gross_margin = EXCLUDED.gross_margin,
    net_margin = EXCLUDED.net_margin,
    profit_margin = EXCLUDED.profit_margin,
    inventory_turnover_rate = EXCLUDED.inventory_turnover_rate,
    stock_to_sales_ratio = EXCLUDED.stock_to_sales_ratio,
    sell_through_rate = EXCLUDED.sell_through_rate,
    year_over_year_growth = EXCLUDED.year_over_year_growth,
    revenue_by_product = EXCLUDED.revenue_by_product,
    generated_at = now()
RETURNING ` + reportColumns

// UpsertReport writes the product snapshot for rec.ReportDate in one statement.
func (r *PostgresRepository) UpsertReport(ctx context.Context, rec ReportRecord) (ReportRecord, error) {
	if err := r.ready(); err != nil {
		return ReportRecord{}, err
	}
	m := rec.Metrics
	row := r.q.QueryRow(ctx, upsertReportQuery,
		rec.ReportDate, rec.TotalRevenue, rec.TotalProfit, rec.TotalExpenses, rec.TotalQuantity,
		m.GrossMargin, m.NetMargin, m.ProfitMargin, m.InventoryTurnoverRate,
		m.StockToSalesRatio, m.SellThroughRate, m.YearOverYearGrowth,
		string(rec.RevenueByProduct),
	)
	saved, err := scanReport(row)
	if err != nil {
		return ReportRecord{}, fmt.Errorf("analytics: upsert report %s: %w", formatDate(rec.ReportDate), mapWriteError(err))
	}
	return saved, nil
}

const salesAnalyticsColumns = `id, report_date, total_sales, total_quantity, total_profit, total_expenses,
       inventory_turnover_rate, stock_to_sales_ratio, sell_through_rate, revenue_by_category, generated_at`

const upsertSalesAnalyticsQuery = `
INSERT INTO sales_analytics (report_date, total_sales, total_quantity, total_profit, total_expenses,
                             inventory_turnover_rate, stock_to_sales_ratio, sell_through_rate,
                             revenue_by_category, generated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, now())
ON CONFLICT (report_date) DO UPDATE SET
    total_sales = EXCLUDED.total_sales,
    total_quantity = EXCLUDED.total_quantity,
    total_profit = EXCLUDED.total_profit,
    total_expenses = EXCLUDED.total_expenses,
    inventory_turnover_rate = EXCLUDED.inventory_turnover_rate,
    stock_to_sales_ratio = EXCLUDED.stock_to_sales_ratio,
    sell_through_rate = EXCLUDED.sell_through_rate,
    revenue_by_category = EXCLUDED.revenue_by_category,
    generated_at = now()
RETURNING ` + salesAnalyticsColumns

// UpsertSalesAnalytics writes the category snapshot for rec.ReportDate in one statement.
func (r *PostgresRepository) UpsertSalesAnalytics(ctx context.Context, rec SalesAnalyticsRecord) (SalesAnalyticsRecord, error) {
	if err := r.ready(); err != nil {
		return SalesAnalyticsRecord{}, err
	}
	row := r.q.QueryRow(ctx, upsertSalesAnalyticsQuery,
		rec.ReportDate, rec.TotalSales, rec.TotalQuantity, rec.TotalProfit, rec.TotalExpenses,
		rec.InventoryTurnoverRate, rec.StockToSalesRatio, rec.SellThroughRate,
		string(rec.RevenueByCategory),
	)
	saved, err := scanSalesAnalytics(row)
	if err != nil {
		return SalesAnalyticsRecord{}, fmt.Errorf("analytics: upsert sales analytics %s: %w", formatDate(rec.ReportDate), mapWriteError(err))
	}
	return saved, nil
}

// SaveSnapshot upserts both snapshot rows in a single transaction.
func (r *PostgresRepository) SaveSnapshot(ctx context.Context, report ReportRecord, sales SalesAnalyticsRecord) (ReportRecord, SalesAnalyticsRecord, error) {
	if r == nil || r.pool == nil {
		return ReportRecord{}, SalesAnalyticsRecord{}, errors.New("analytics: repository not initialised")
	}
	var savedReport ReportRecord
	var savedSales SalesAnalyticsRecord
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		txRepo := &PostgresRepository{pool: r.pool, q: tx}
		var err error
		if savedReport, err = txRepo.UpsertReport(ctx, report); err != nil {
			return err
		}
		savedSales, err = txRepo.UpsertSalesAnalytics(ctx, sales)
		return err
	})
	if err != nil {
		return ReportRecord{}, SalesAnalyticsRecord{}, err
	}
	return savedReport, savedSales, nil
}

// ReportByDate loads the product snapshot for a date.
func (r *PostgresRepository) ReportByDate(ctx context.Context, date time.Time) (ReportRecord, error) {
	if err := r.ready(); err != nil {
		return ReportRecord{}, err
	}
	query := `SELECT ` + reportColumns + ` FROM reports WHERE report_date = $1`
	rec, err := scanReport(r.q.QueryRow(ctx, query, civilDate(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReportRecord{}, fmt.Errorf("analytics: report %s: %w", formatDate(date), httpx.ErrNotFound)
		}
		return ReportRecord{}, fmt.Errorf("analytics: report %s: %w", formatDate(date), err)
	}
	return rec, nil
}

// ReportsBetween loads every product snapshot inside the window, oldest first.
func (r *PostgresRepository) ReportsBetween(ctx context.Context, rng DateRange) ([]ReportRecord, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	query := `SELECT ` + reportColumns + ` FROM reports WHERE report_date BETWEEN $1 AND $2 ORDER BY report_date`
	rows, err := r.q.Query(ctx, query, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("analytics: reports between: %w", err)
	}
	defer rows.Close()
	var out []ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("analytics: scan report: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SalesAnalyticsByDate loads the category snapshot for a date.
func (r *PostgresRepository) SalesAnalyticsByDate(ctx context.Context, date time.Time) (SalesAnalyticsRecord, error) {
	if err := r.ready(); err != nil {
		return SalesAnalyticsRecord{}, err
	}
	query := `SELECT ` + salesAnalyticsColumns + ` FROM sales_analytics WHERE report_date = $1`
	rec, err := scanSalesAnalytics(r.q.QueryRow(ctx, query, civilDate(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesAnalyticsRecord{}, fmt.Errorf("analytics: sales analytics %s: %w", formatDate(date), httpx.ErrNotFound)
		}
		return SalesAnalyticsRecord{}, fmt.Errorf("analytics: sales analytics %s: %w", formatDate(date), err)
	}
	return rec, nil
}

func scanReport(row pgx.Row) (ReportRecord, error) {
	var rec ReportRecord
	var raw []byte
	err := row.Scan(&rec.ID, &rec.ReportDate, &rec.TotalRevenue, &rec.TotalProfit, &rec.TotalExpenses, &rec.TotalQuantity,
		&rec.Metrics.GrossMargin, &rec.Metrics.NetMargin, &rec.Metrics.ProfitMargin, &rec.Metrics.InventoryTurnoverRate,
		&rec.Metrics.StockToSalesRatio, &rec.Metrics.SellThroughRate, &rec.Metrics.YearOverYearGrowth,
		&raw, &rec.GeneratedAt)
	if err != nil {
		return ReportRecord{}, err
	}
	rec.RevenueByProduct = raw
	return rec, nil
}

func scanSalesAnalytics(row pgx.Row) (SalesAnalyticsRecord, error) {
	var rec SalesAnalyticsRecord
	var raw []byte
	err := row.Scan(&rec.ID, &rec.ReportDate, &rec.TotalSales, &rec.TotalQuantity, &rec.TotalProfit, &rec.TotalExpenses,
		&rec.InventoryTurnoverRate, &rec.StockToSalesRatio, &rec.SellThroughRate, &raw, &rec.GeneratedAt)
	if err != nil {
		return SalesAnalyticsRecord{}, err
	}
	rec.RevenueByCategory = raw
	return rec, nil
}

// mapWriteError turns constraint failures into validation errors.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22P02", "23514":
			return fmt.Errorf("%w: %s", httpx.ErrValidation, pgErr.Message)
		}
	}
	return err
}
