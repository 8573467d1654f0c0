package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/backoffice/internal/analytics"
	"github.com/odyssey-erp/backoffice/internal/analytics/export"
	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

const requestTimeout = 5 * time.Second

// AnalyticsService defines the analytics contract used by the handler.
type AnalyticsService interface {
	ChartData(ctx context.Context, policy analytics.RangePolicy) (analytics.ChartData, error)
	Dashboard(ctx context.Context, policy analytics.RangePolicy) (analytics.Dashboard, error)
	GenerateReport(ctx context.Context, userID int64, override *time.Time) (analytics.GeneratedReport, error)
	Report(ctx context.Context, date time.Time) (analytics.Report, error)
	SalesAnalytics(ctx context.Context, date time.Time) (analytics.SalesAnalytics, error)
	ReportTrend(ctx context.Context, end time.Time, days int) ([]analytics.Report, error)
}

// PDFService renders report content to PDF bytes.
type PDFService interface {
	RenderReport(ctx context.Context, payload export.ReportPayload) ([]byte, error)
}

// ReportCounter counts generated snapshots per trigger source.
type ReportCounter interface {
	ReportGenerated(source string)
}

// Handler coordinates HTTP requests for charts, dashboards and snapshots.
type Handler struct {
	logger   *slog.Logger
	service  AnalyticsService
	pdf      PDFService
	validate *validator.Validate
	counter  ReportCounter
	csvPool  sync.Pool
}

// NewHandler constructs the analytics HTTP handler. pdf may be nil when no
// renderer is configured.
func NewHandler(logger *slog.Logger, service AnalyticsService, pdf PDFService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:   logger.With(slog.String("component", "analytics.http")),
		service:  service,
		pdf:      pdf,
		validate: validator.New(),
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithMetrics attaches a counter for generated reports.
func (h *Handler) WithMetrics(counter ReportCounter) *Handler {
	h.counter = counter
	return h
}

type generateRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) handleChartData(w http.ResponseWriter, r *http.Request) {
	policy, err := analytics.ParseRangePolicy(r.URL.Query().Get("range"))
	if err != nil {
		h.fail(w, "parse range", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data, err := h.service.ChartData(ctx, policy)
	if err != nil {
		h.fail(w, "chart data", err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	policy, err := analytics.ParseRangePolicy(r.URL.Query().Get("range"))
	if err != nil {
		h.fail(w, "parse range", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dash, err := h.service.Dashboard(ctx, policy)
	if err != nil {
		h.fail(w, "dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		h.fail(w, "generate report", httpx.ErrUnauthorized)
		return
	}

	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, "decode body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			err = fmt.Errorf("%w: %s must be a YYYY-MM-DD date", httpx.ErrValidation, strings.ToLower(fieldErrs[0].Field()))
		} else {
			err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		h.fail(w, "validate body", err)
		return
	}
	var override *time.Time
	if req.Date != "" {
		date, err := analytics.ParseDate(req.Date)
		if err != nil {
			h.fail(w, "parse date", err)
			return
		}
		override = &date
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	generated, err := h.service.GenerateReport(ctx, userID, override)
	if err != nil {
		h.fail(w, "generate report", err)
		return
	}
	if h.counter != nil {
		h.counter.ReportGenerated("http")
	}
	h.logger.Info("report generated",
		slog.Int64("user_id", userID),
		slog.String("report_date", generated.Report.ReportDate),
		slog.Int("notifications", len(generated.Notifications)),
	)
	httpx.JSON(w, http.StatusOK, generated)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	date, err := analytics.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, "parse date", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Report(ctx, date)
	if err != nil {
		h.fail(w, "load report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleSalesAnalytics(w http.ResponseWriter, r *http.Request) {
	date, err := analytics.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, "parse date", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sales, err := h.service.SalesAnalytics(ctx, date)
	if err != nil {
		h.fail(w, "load sales analytics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	date, err := analytics.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, "parse date", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, sales, err := h.loadSnapshots(ctx, date)
	if err != nil {
		h.fail(w, "load snapshots", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := export.WriteReportCSV(buf, report, sales); err != nil {
		h.fail(w, "write csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=report-%s.csv", report.ReportDate))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.fail(w, "pdf exporter", errors.New("pdf exporter not configured"))
		return
	}
	date, err := analytics.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, "parse date", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, sales, err := h.loadSnapshots(ctx, date)
	if err != nil {
		h.fail(w, "load snapshots", err)
		return
	}
	trend, err := h.service.ReportTrend(ctx, date, analytics.DefaultTrendDays)
	if err != nil {
		h.fail(w, "load trend", err)
		return
	}
	pdfBytes, err := h.pdf.RenderReport(ctx, export.ReportPayload{Report: report, SalesAnalytics: sales, Trend: trend})
	if err != nil {
		h.fail(w, "render pdf", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=report-%s.pdf", report.ReportDate))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdfBytes)
}

// loadSnapshots reads both snapshots of a date. A missing category snapshot
// is tolerated; a missing product snapshot is not.
func (h *Handler) loadSnapshots(ctx context.Context, date time.Time) (analytics.Report, analytics.SalesAnalytics, error) {
	report, err := h.service.Report(ctx, date)
	if err != nil {
		return analytics.Report{}, analytics.SalesAnalytics{}, err
	}
	sales, err := h.service.SalesAnalytics(ctx, date)
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return analytics.Report{}, analytics.SalesAnalytics{}, err
	}
	return report, sales, nil
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := httpx.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("analytics request failed", slog.String("op", op), slog.Any("error", err))
	} else {
		h.logger.Debug("analytics request rejected", slog.String("op", op), slog.Int("status", status), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func sessionUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(sess.User()), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
