package transactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
)

// SaveChecklist replaces the whole checklist with entries and records the
// completed/total summary.
func (b *Builder) SaveChecklist(ctx context.Context, entries []checklist.Entry, user string) (*history.Entry, error) {
	for i := range entries {
		entries[i].Patient = strings.TrimSpace(entries[i].Patient)
		if entries[i].Patient == "" {
			return nil, errs.Validation("checklist row %d: patient is required", i+1)
		}
		if entries[i].Status != checklist.StatusDone {
			entries[i].Status = checklist.StatusNotYet
		}
		entries[i].ID = uuid.NewString()
	}

	existing, err := b.store.Checklist.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if err := b.store.Checklist.Delete(ctx, e.ID); err != nil {
			return nil, fmt.Errorf("clear checklist: %w", err)
		}
	}
	done := 0
	details := make([]materials.Used, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if err := b.store.Checklist.Insert(ctx, e); err != nil {
			b.log.Error("checklist partially saved", "saved", i, "total", len(entries), "err", err)
			return nil, fmt.Errorf("save checklist row %d: %w", i+1, err)
		}
		qty := 0
		if e.Done() {
			done++
			qty = 1
		}
		details = append(details, materials.Used{
			Name:        e.Patient,
			SerialOrLot: fmt.Sprintf("%s • Tel: %s", e.Hospital, e.Phone),
			Quantity:    qty,
		})
	}

	entry := b.newEntry(history.KindChecklist, fmt.Sprintf("Kontrol listesi tamamlandı - %d/%d", done, len(entries)), user)
	entry.Details = details
	if err := b.store.History.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	return entry, nil
}
