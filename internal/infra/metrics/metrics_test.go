package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/errs"
	"github.com/stokapp/stok/internal/ledger"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.LedgerOp(ledger.OpConsume, nil)
	m.LedgerOp(ledger.OpConsume, nil)
	m.LedgerOp(ledger.OpConsume, &errs.InsufficientStockError{Requested: 2})
	m.Undo(history.KindCase, nil)
	m.Undo(history.KindStockIn, errs.ErrNotReversible)
	m.ImportRow("materials", "duplicate")
	m.LowStockAlert()

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"stok_ledger_ops_total", map[string]string{"op": "consume", "result": "ok"}, 2},
		{"stok_ledger_ops_total", map[string]string{"op": "consume", "result": "insufficient_stock"}, 1},
		{"stok_undo_total", map[string]string{"kind": "Case", "result": "ok"}, 1},
		{"stok_undo_total", map[string]string{"kind": "StockIn", "result": "not_reversible"}, 1},
		{"stok_import_rows_total", map[string]string{"kind": "materials", "outcome": "duplicate"}, 1},
		{"stok_low_stock_alerts_total", nil, 1},
	}
	for _, c := range checks {
		if got := counterValue(t, reg, c.name, c.labels); got != c.want {
			t.Errorf("%s%v = %v, want %v", c.name, c.labels, got, c.want)
		}
	}
}
