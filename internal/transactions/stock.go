package transactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
)

type Direction string

const (
	DirectionIn  Direction = "In"
	DirectionOut Direction = "Out"
)

// ParseDirection returns "" for anything but in/out.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in":
		return DirectionIn
	case "out":
		return DirectionOut
	}
	return ""
}

// ResolveDirection decides In/Out from the from/to parties. The current
// user as "from" is Out, as "to" is In; then the warehouse actor likewise;
// then the requested direction; else In.
func ResolveDirection(current, warehouse, from, to string, requested Direction) Direction {
	eq := func(a, b string) bool {
		return strings.TrimSpace(a) != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	if strings.TrimSpace(current) != "" {
		if eq(from, current) {
			return DirectionOut
		}
		if eq(to, current) {
			return DirectionIn
		}
	}
	if eq(from, warehouse) {
		return DirectionOut
	}
	if eq(to, warehouse) {
		return DirectionIn
	}
	if requested == DirectionOut {
		return DirectionOut
	}
	return DirectionIn
}

type AdjustRequest struct {
	MaterialID string    `json:"materialId"`
	Quantity   int       `json:"quantity"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Direction  Direction `json:"direction"`
	User       string    `json:"-"`
}

// AdjustStock moves Quantity units in or out of one material. The history
// detail carries the signed quantity.
func (b *Builder) AdjustStock(ctx context.Context, req AdjustRequest) (*materials.Material, *history.Entry, error) {
	if req.Quantity <= 0 {
		return nil, nil, errs.Validation("quantity must be positive")
	}
	dir := ResolveDirection(req.User, b.warehouse, req.From, req.To, req.Direction)
	delta, kind, label := req.Quantity, history.KindStockIn, "Stok girişi"
	if dir == DirectionOut {
		delta, kind, label = -req.Quantity, history.KindStockOut, "Stok çıkışı"
	}

	m, err := b.ledger.Adjust(ctx, req.MaterialID, delta)
	if err != nil {
		return nil, nil, err
	}

	entry := b.newEntry(kind, fmt.Sprintf("%s: %s", label, m.Name), req.User)
	entry.Details = []materials.Used{m.Snapshot(delta)}
	if err := b.store.History.Insert(ctx, entry); err != nil {
		b.log.Error("stock history not saved", "material_id", m.ID, "delta", delta, "err", err)
		return m, nil, fmt.Errorf("save history: %w", err)
	}
	return m, entry, nil
}

// DeleteMaterial removes a material and records a reversible Delete entry
// holding its last state.
func (b *Builder) DeleteMaterial(ctx context.Context, id, user string) (*history.Entry, error) {
	m, err := b.ledger.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	entry := b.newEntry(history.KindDelete, "Malzeme silindi: "+m.Name, user)
	entry.Details = []materials.Used{m.Snapshot(m.Quantity)}
	if err := b.store.History.Insert(ctx, entry); err != nil {
		b.log.Error("delete history not saved", "material_id", m.ID, "name", m.Name, "quantity", m.Quantity, "err", err)
		return nil, fmt.Errorf("save history: %w", err)
	}
	return entry, nil
}
