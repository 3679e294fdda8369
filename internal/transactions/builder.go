// Package transactions turns business requests into validated ledger
// mutations, each producing exactly one history entry.
package transactions

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/ledger"
	"github.com/stokapp/stok/internal/lookup"
	"github.com/stokapp/stok/internal/store"
)

type Builder struct {
	ledger    *ledger.Ledger
	store     store.Store
	lookups   *lookup.Cache
	log       *slog.Logger
	warehouse string
	now       func() time.Time
}

// New wires a builder. warehouseActor names the central stock holder
// ("Depo") and is the createdBy fallback.
func New(l *ledger.Ledger, st store.Store, lc *lookup.Cache, log *slog.Logger, warehouseActor string) *Builder {
	if warehouseActor == "" {
		warehouseActor = "Depo"
	}
	return &Builder{ledger: l, store: st, lookups: lc, log: log, warehouse: warehouseActor, now: time.Now}
}

func (b *Builder) actor(user string) string {
	if u := strings.TrimSpace(user); u != "" {
		return u
	}
	return b.warehouse
}

func (b *Builder) newEntry(kind history.Kind, summary, user string) *history.Entry {
	return &history.Entry{
		ID:         uuid.NewString(),
		Kind:       kind,
		Summary:    summary,
		CreatedAt:  b.now(),
		CreatedBy:  b.actor(user),
		Reversible: true,
	}
}
