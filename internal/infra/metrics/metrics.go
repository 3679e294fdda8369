// Package metrics exposes ledger, undo and import counters to Prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/errs"
	"github.com/stokapp/stok/internal/ledger"
)

type Metrics struct {
	ledgerOps *prometheus.CounterVec
	undos     *prometheus.CounterVec
	imports   *prometheus.CounterVec
	lowStock  prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stok_ledger_ops_total",
			Help: "Stock ledger operations by outcome.",
		}, []string{"op", "result"}),
		undos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stok_undo_total",
			Help: "History undo attempts by entry kind and outcome.",
		}, []string{"kind", "result"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stok_import_rows_total",
			Help: "Imported spreadsheet rows by kind and outcome.",
		}, []string{"kind", "outcome"}),
		lowStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stok_low_stock_alerts_total",
			Help: "Low stock alerts sent.",
		}),
	}
	reg.MustRegister(m.ledgerOps, m.undos, m.imports, m.lowStock)
	return m
}

// result maps an error onto a small fixed label set.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, errs.ErrValidation):
		return "invalid"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrNotReversible):
		return "not_reversible"
	}
	return "error"
}

func (m *Metrics) LedgerOp(op ledger.Op, err error) {
	m.ledgerOps.WithLabelValues(string(op), result(err)).Inc()
}

func (m *Metrics) Undo(kind history.Kind, err error) {
	m.undos.WithLabelValues(string(kind), result(err)).Inc()
}

func (m *Metrics) ImportRow(kind, outcome string) {
	m.imports.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) LowStockAlert() { m.lowStock.Inc() }
