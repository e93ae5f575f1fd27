package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sessionMetrics holds Prometheus metrics for statements sent to a backend.
type sessionMetrics struct {
	statements *prometheus.CounterVec   // By table, op and outcome (ok/not_applied/timeout/error)
	duration   *prometheus.HistogramVec // By table and op
	batches    *prometheus.CounterVec   // By outcome
}

type instrumentedSession struct {
	next    Session
	metrics *sessionMetrics
}

// Instrument wraps next so every statement is counted and timed. A nil
// registerer disables instrumentation and returns next unchanged.
func Instrument(next Session, reg prometheus.Registerer, namespace string) (Session, error) {
	if reg == nil {
		return next, nil
	}
	if namespace == "" {
		namespace = "folio"
	}

	m := &sessionMetrics{
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "statements_total",
			Help:      "Total number of statements executed",
		}, []string{"table", "op", "outcome"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "statement_duration_seconds",
			Help:      "Statement round-trip duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
		}, []string{"table", "op"}),

		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "batches_total",
			Help:      "Total number of logged batches executed",
		}, []string{"outcome"}),
	}

	var err error
	if m.statements, err = register(reg, m.statements); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.batches, err = register(reg, m.batches); err != nil {
		return nil, err
	}
	return &instrumentedSession{next: next, metrics: m}, nil
}

// register reuses an identical collector registered earlier, e.g. by a
// second session in the same process.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *instrumentedSession) Query(ctx context.Context, stmt *Statement) ([]Row, error) {
	start := time.Now()
	rows, err := s.next.Query(ctx, stmt)
	s.observe(stmt, start, true, err)
	return rows, err
}

func (s *instrumentedSession) Exec(ctx context.Context, stmt *Statement) (bool, error) {
	start := time.Now()
	applied, err := s.next.Exec(ctx, stmt)
	s.observe(stmt, start, applied, err)
	return applied, err
}

func (s *instrumentedSession) Batch(ctx context.Context, stmts []*Statement) error {
	err := s.next.Batch(ctx, stmts)
	s.metrics.batches.WithLabelValues(outcome(true, err)).Inc()
	return err
}

func (s *instrumentedSession) Close() error {
	return s.next.Close()
}

func (s *instrumentedSession) observe(stmt *Statement, start time.Time, applied bool, err error) {
	op := stmt.Op.String()
	s.metrics.duration.WithLabelValues(stmt.Table.Name, op).Observe(time.Since(start).Seconds())
	s.metrics.statements.WithLabelValues(stmt.Table.Name, op, outcome(applied, err)).Inc()
}

func outcome(applied bool, err error) string {
	switch {
	case err == nil && applied:
		return "ok"
	case err == nil:
		return "not_applied"
	case errors.Is(classify(err), ErrTimeout):
		return "timeout"
	}
	return "error"
}
