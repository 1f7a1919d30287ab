package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/qaharvest/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PageVisitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaharvest_page_visits_total",
			Help: "Total number of result pages visited, by outcome",
		},
		[]string{"domain", "status", "detected", "detection_src"},
	)

	PageVisitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qaharvest_page_visit_duration_seconds",
			Help:    "Time spent loading and reading a result page",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"domain"},
	)

	PageTextBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaharvest_page_text_bytes_total",
			Help: "Total bytes of visible page text read",
		},
		[]string{"domain"},
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qaharvest_records_total",
			Help: "Total number of records extracted",
		},
		[]string{"variant"},
	)

	SERPLinksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qaharvest_serp_links_total",
			Help: "Distinct result links collected from search pages",
		},
	)

	SERPPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qaharvest_serp_pages_total",
			Help: "Search result pages read",
		},
	)
)

// Domain returns the host of rawURL, or "" when it does not parse.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// RecordVisit updates the page metrics for a finished visit.
func RecordVisit(v *storage.Visit) {
	if v == nil {
		return
	}
	domain := Domain(v.URL)

	PageVisitsTotal.WithLabelValues(domain, string(v.Status), strconv.FormatBool(v.DetectedBot), v.DetectionSrc).Inc()
	PageVisitDuration.WithLabelValues(domain).Observe(v.Duration.Seconds())
	PageTextBytesTotal.WithLabelValues(domain).Add(float64(v.TextLength))
}

// RecordRecords counts n extracted records for variant.
func RecordRecords(variant string, n int) {
	if n <= 0 {
		return
	}
	RecordsTotal.WithLabelValues(variant).Add(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", srv.Addr, "err", err)
		}
	}()
	logger.Info("metrics server listening", "addr", srv.Addr)

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
