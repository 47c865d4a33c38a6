package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

// Registry operation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec
	registryOps *CounterVec
	uploadBytes *CounterVec
	authLogins  *CounterVec
	dbPool      *GaugeVec
	eventBusUp  *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init builds the process-wide metrics once. It returns nil when disabled;
// every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func Current() *Metrics {
	return instance
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("rastion_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"rastion_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGaugeVec("rastion_api_inflight_requests", "In-flight API requests.", nil),
		registryOps: NewCounterVec("rastion_registry_operations_total", "Registry operations by op/kind/outcome.", []string{"op", "kind", "outcome"}),
		uploadBytes: NewCounterVec("rastion_registry_upload_bytes_total", "Archive bytes accepted by kind.", []string{"kind"}),
		authLogins:  NewCounterVec("rastion_auth_logins_total", "Login attempts by flow/outcome.", []string{"flow", "outcome"}),
		dbPool:      NewGaugeVec("rastion_db_pool_connections", "Metadata store pool connections by state.", []string{"state"}),
		eventBusUp:  NewGaugeVec("rastion_event_bus_up", "1 when the event broker answered the last ping.", nil),
	}
}

func (m *Metrics) collectors() []collector {
	return []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.registryOps, m.uploadBytes, m.authLogins,
		m.dbPool, m.eventBusUp,
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.collectors() {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

// ObserveRegistry records one registry operation by its HTTP status: 4xx
// counts as OutcomeRejected, 5xx as OutcomeError.
func (m *Metrics) ObserveRegistry(op, kind string, status int) {
	if m == nil {
		return
	}
	m.registryOps.Inc(op, kind, outcomeFor(status))
}

func (m *Metrics) ObserveUpload(kind string, bytes int64) {
	if m == nil {
		return
	}
	m.uploadBytes.Add(float64(bytes), kind)
}

func (m *Metrics) ObserveLogin(flow string, status int) {
	if m == nil {
		return
	}
	m.authLogins.Inc(flow, outcomeFor(status))
}

func outcomeFor(status int) string {
	switch {
	case status < 400:
		return OutcomeOK
	case status < 500:
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// Pinger is satisfied by the event bus.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StartCollector samples the DB pool and event broker every interval until
// ctx is done. Either source may be nil.
func (m *Metrics) StartCollector(ctx context.Context, log *logger.Logger, interval time.Duration, db *gorm.DB, bus Pinger) {
	if m == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			m.sample(ctx, log, db, bus)
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

func (m *Metrics) sample(ctx context.Context, log *logger.Logger, db *gorm.DB, bus Pinger) {
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			st := sqlDB.Stats()
			m.dbPool.Set(float64(st.OpenConnections), "open")
			m.dbPool.Set(float64(st.InUse), "in_use")
			m.dbPool.Set(float64(st.Idle), "idle")
		} else if log != nil {
			log.Debug("db stats unavailable", "error", err)
		}
	}
	if bus != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := bus.Ping(pingCtx)
		cancel()
		if err != nil {
			m.eventBusUp.Set(0)
			if log != nil && ctx.Err() == nil {
				log.Warn("event bus ping failed", "error", err)
			}
			return
		}
		m.eventBusUp.Set(1)
	}
}

// Serve exposes the metrics on a dedicated listener until ctx is done, for
// setups that keep /metrics off the public port.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	if m == nil {
		return nil
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
