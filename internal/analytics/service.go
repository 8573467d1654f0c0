package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

// generateTimeout bounds a shared snapshot run.
const generateTimeout = 30 * time.Second

// Service coordinates aggregation queries, snapshots and the cache layer.
type Service struct {
	repo       Repository
	cache      *Cache
	logger     *slog.Logger
	now        func() time.Time
	thresholds Thresholds
	flight     singleflight.Group
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to resolve ranges.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithThresholds sets the notification thresholds.
func WithThresholds(th Thresholds) Option {
	return func(s *Service) {
		s.thresholds = th
	}
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		cache:      cache,
		logger:     slog.Default(),
		now:        time.Now,
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dashboard is the payload of the dashboard API.
type Dashboard struct {
	Range       string        `json:"range"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Revenue     string        `json:"revenue"`
	Cost        string        `json:"cost"`
	Expenses    string        `json:"expenses"`
	Profit      string        `json:"profit"`
	NetProfit   string        `json:"net_profit"`
	TopProducts []RankedEntry `json:"top_products"`
}

// ChartData returns the widget series for the policy. Yearly charts span the
// whole calendar year.
func (s *Service) ChartData(ctx context.Context, policy RangePolicy) (ChartData, error) {
	w := Resolve(policy, s.now(), YearFull)
	loader := func(ctx context.Context) (any, error) {
		return s.buildChartData(ctx, w)
	}
	if s.cache == nil {
		return s.buildChartData(ctx, w)
	}
	key, err := s.cache.BuildKey(ctx, keyChart(w))
	if err != nil {
		return ChartData{}, err
	}
	var out ChartData
	if err := s.cache.FetchJSON(ctx, key, &out, loader); err != nil {
		return ChartData{}, err
	}
	return out, nil
}

func (s *Service) buildChartData(ctx context.Context, w Window) (ChartData, error) {
	agg := Aggregates{Window: w}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg.Sales, err = s.repo.SalesSeries(gctx, w.Range, w.Granularity)
		return err
	})
	g.Go(func() error {
		var err error
		agg.Expenses, err = s.repo.ExpenseSeries(gctx, w.Range, w.Granularity)
		return err
	})
	g.Go(func() error {
		var err error
		agg.Categories, err = s.repo.CategoryRollups(gctx, w.Range)
		return err
	})
	g.Go(func() error {
		var err error
		agg.Products, err = s.repo.ProductRollups(gctx, w.Range, DefaultTopN)
		return err
	})
	if err := g.Wait(); err != nil {
		return ChartData{}, err
	}
	return BuildChartData(agg), nil
}

// Dashboard returns running totals for the policy plus the best selling
// products summed from the stored snapshots. Yearly totals run to today.
func (s *Service) Dashboard(ctx context.Context, policy RangePolicy) (Dashboard, error) {
	w := Resolve(policy, s.now(), YearToDate)
	loader := func(ctx context.Context) (any, error) {
		return s.buildDashboard(ctx, w)
	}
	if s.cache == nil {
		return s.buildDashboard(ctx, w)
	}
	key, err := s.cache.BuildKey(ctx, keyDashboard(w))
	if err != nil {
		return Dashboard{}, err
	}
	var out Dashboard
	if err := s.cache.FetchJSON(ctx, key, &out, loader); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}

func (s *Service) buildDashboard(ctx context.Context, w Window) (Dashboard, error) {
	var totals Totals
	var reports []ReportRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.repo.Totals(gctx, w.Range)
		return err
	})
	g.Go(func() error {
		var err error
		reports, err = s.repo.ReportsBetween(gctx, w.Range)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	products := NewBreakdown()
	for _, rec := range reports {
		products.AddEntries(s.decodeBreakdown("revenue_by_product", rec.ReportDate, rec.RevenueByProduct))
	}
	top := make([]RankedEntry, 0, DefaultTopN)
	for _, e := range TopN(products, DefaultTopN) {
		top = append(top, RankedEntry{Name: e.Name, Amount: money(e.Amount)})
	}

	return Dashboard{
		Range:       string(w.Policy),
		From:        formatDate(w.Range.From),
		To:          formatDate(w.Range.To),
		Revenue:     money(totals.Revenue),
		Cost:        money(totals.Cost),
		Expenses:    money(totals.Expenses),
		Profit:      money(totals.Profit),
		NetProfit:   money(NetProfit(totals.Profit, totals.Expenses)),
		TopProducts: top,
	}, nil
}

// GenerateReport snapshots the caller's registration date, or override when set.
func (s *Service) GenerateReport(ctx context.Context, userID int64, override *time.Time) (GeneratedReport, error) {
	if userID <= 0 {
		return GeneratedReport{}, httpx.ErrUnauthorized
	}
	user, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		return GeneratedReport{}, err
	}
	date := user.CreatedAt
	if override != nil {
		date = *override
	}
	return s.GenerateForDate(ctx, date)
}

// GenerateForDate aggregates one calendar day, derives the ratios and upserts
// both snapshots. Concurrent calls for the same date share one run, which
// outlives any single caller and is bounded by generateTimeout.
func (s *Service) GenerateForDate(ctx context.Context, date time.Time) (GeneratedReport, error) {
	day := civilDate(date)
	ch := s.flight.DoChan(formatDate(day), func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generateTimeout)
		defer cancel()
		return s.generate(runCtx, day)
	})
	select {
	case <-ctx.Done():
		return GeneratedReport{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return GeneratedReport{}, res.Err
		}
		return res.Val.(GeneratedReport), nil
	}
}

func (s *Service) generate(ctx context.Context, day time.Time) (GeneratedReport, error) {
	window := Day(day)
	var (
		current    Totals
		previous   Totals
		products   []ProductRollup
		categories []CategoryRollup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.repo.Totals(gctx, window)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.repo.Totals(gctx, window.PreviousYear())
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.repo.ProductRollups(gctx, window, 0)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.repo.CategoryRollups(gctx, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return GeneratedReport{}, err
	}

	prevRevenue := previous.Revenue
	metrics := Derive(current, &prevRevenue)

	reportRec, err := newReportRecord(day, current, metrics, products)
	if err != nil {
		return GeneratedReport{}, err
	}
	salesRec, err := newSalesAnalyticsRecord(day, current, metrics, categories)
	if err != nil {
		return GeneratedReport{}, err
	}
	savedReport, savedSales, err := s.repo.SaveSnapshot(ctx, reportRec, salesRec)
	if err != nil {
		return GeneratedReport{}, err
	}

	if _, err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("analytics cache bump failed", slog.Any("error", err))
	}

	lowStock, err := s.repo.LowStock(ctx, s.thresholds.LowStock)
	if err != nil {
		return GeneratedReport{}, err
	}

	report := s.decodeReport(savedReport)
	s.logger.Info("report snapshot saved",
		slog.String("report_date", report.ReportDate),
		slog.String("revenue", money(report.TotalRevenue)),
		slog.Int("products", len(report.RevenueByProduct)),
	)
	return GeneratedReport{
		Report:         report,
		SalesAnalytics: s.decodeSalesAnalytics(savedSales),
		Notifications:  Notify(report, lowStock, s.thresholds),
	}, nil
}

// Report loads the stored product snapshot for a date.
func (s *Service) Report(ctx context.Context, date time.Time) (Report, error) {
	rec, err := s.repo.ReportByDate(ctx, date)
	if err != nil {
		return Report{}, err
	}
	return s.decodeReport(rec), nil
}

// SalesAnalytics loads the stored category snapshot for a date.
func (s *Service) SalesAnalytics(ctx context.Context, date time.Time) (SalesAnalytics, error) {
	rec, err := s.repo.SalesAnalyticsByDate(ctx, date)
	if err != nil {
		return SalesAnalytics{}, err
	}
	return s.decodeSalesAnalytics(rec), nil
}

// DefaultTrendDays is the look-back used when exporting a report trend.
const DefaultTrendDays = 14

// ReportTrend returns the stored snapshots of the days leading up to and
// including end, oldest first.
func (s *Service) ReportTrend(ctx context.Context, end time.Time, days int) ([]Report, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	to := civilDate(end)
	recs, err := s.repo.ReportsBetween(ctx, DateRange{From: to.AddDate(0, 0, -(days - 1)), To: to})
	if err != nil {
		return nil, err
	}
	out := make([]Report, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.decodeReport(rec))
	}
	return out, nil
}

// Warm precomputes chart data for every range policy.
func (s *Service) Warm(ctx context.Context) error {
	var errs []error
	for _, policy := range []RangePolicy{RangeWeekly, RangeMonthly, RangeYearly} {
		if _, err := s.ChartData(ctx, policy); err != nil {
			errs = append(errs, fmt.Errorf("warm %s: %w", policy, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) decodeReport(rec ReportRecord) Report {
	return reportFromRecord(rec, s.decodeBreakdown("revenue_by_product", rec.ReportDate, rec.RevenueByProduct))
}

func (s *Service) decodeSalesAnalytics(rec SalesAnalyticsRecord) SalesAnalytics {
	return salesAnalyticsFromRecord(rec, s.decodeBreakdown("revenue_by_category", rec.ReportDate, rec.RevenueByCategory))
}

// decodeBreakdown never fails: malformed blobs are logged and read as empty.
func (s *Service) decodeBreakdown(column string, date time.Time, raw []byte) []BreakdownEntry {
	entries, err := DecodeBreakdown(raw)
	if err != nil {
		s.logger.Warn("malformed breakdown ignored",
			slog.String("column", column),
			slog.String("report_date", formatDate(date)),
			slog.Any("error", err),
		)
		return []BreakdownEntry{}
	}
	return entries
}
