package transactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stokapp/stok/internal/domain/cases"
	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/lookups"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
	"github.com/stokapp/stok/internal/ledger"
)

type CaseLine struct {
	SerialOrLot string `json:"serialOrLot"`
	Quantity    int    `json:"quantity"`
}

type CaseRequest struct {
	Hospital string     `json:"hospital"`
	Doctor   string     `json:"doctor"`
	Patient  string     `json:"patient"`
	Note     string     `json:"note"`
	Lines    []CaseLine `json:"lines"`
	User     string     `json:"-"`
}

// ConsumeForCase resolves every line to exactly one material, consumes them
// as a batch and records the case. No material is touched when any line
// fails validation.
func (b *Builder) ConsumeForCase(ctx context.Context, req CaseRequest) (*cases.Record, *history.Entry, error) {
	req.Hospital = strings.TrimSpace(req.Hospital)
	req.Doctor = strings.TrimSpace(req.Doctor)
	req.Patient = strings.TrimSpace(req.Patient)
	if req.Hospital == "" {
		return nil, nil, errs.Validation("hospital is required")
	}
	if req.Patient == "" {
		return nil, nil, errs.Validation("patient is required")
	}
	if len(req.Lines) == 0 {
		return nil, nil, errs.Validation("at least one material line is required")
	}

	resolved := make([]materials.Material, len(req.Lines))
	batch := make([]ledger.Line, len(req.Lines))
	for i, ln := range req.Lines {
		if ln.Quantity <= 0 {
			return nil, nil, errs.Validation("line %d: quantity must be positive", i+1)
		}
		m, err := b.resolveOne(ctx, ln.SerialOrLot)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if ln.Quantity > m.Quantity {
			return nil, nil, &errs.InsufficientStockError{MaterialID: m.ID, Name: m.Name, Requested: ln.Quantity, Available: m.Quantity}
		}
		resolved[i] = *m
		batch[i] = ledger.Line{MaterialID: m.ID, Quantity: ln.Quantity}
	}

	if _, err := b.ledger.ConsumeBatch(ctx, batch); err != nil {
		return nil, nil, err
	}

	used := make([]materials.Used, len(resolved))
	for i, m := range resolved {
		used[i] = m.Snapshot(req.Lines[i].Quantity)
	}
	rec := &cases.Record{
		ID:            uuid.NewString(),
		Hospital:      req.Hospital,
		Doctor:        req.Doctor,
		Patient:       req.Patient,
		Note:          strings.TrimSpace(req.Note),
		UsedMaterials: used,
		CreatedAt:     b.now(),
		CreatedBy:     b.actor(req.User),
	}
	if err := b.store.Cases.Insert(ctx, rec); err != nil {
		b.log.Error("case record not saved after consumption", "patient", rec.Patient, "lines", len(used), "err", err)
		return nil, nil, fmt.Errorf("save case: %w", err)
	}

	entry := b.newEntry(history.KindCase, fmt.Sprintf("Vaka: %s - %s", rec.Patient, rec.Hospital), req.User)
	entry.Details = used
	entry.ReferenceID = rec.ID
	if err := b.store.History.Insert(ctx, entry); err != nil {
		b.log.Error("case history not saved", "case_id", rec.ID, "err", err)
		return rec, nil, fmt.Errorf("save history: %w", err)
	}

	b.remember(ctx, lookups.TypeHospital, rec.Hospital)
	b.remember(ctx, lookups.TypeDoctor, rec.Doctor)
	return rec, entry, nil
}

// resolveOne requires a unique case-insensitive serial-or-lot match.
func (b *Builder) resolveOne(ctx context.Context, key string) (*materials.Material, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errs.Validation("serial or lot is required")
	}
	matches, err := b.ledger.MatchSerialOrLot(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, &errs.AmbiguousMatchError{Key: key, Matches: len(matches)}
	}
	return &matches[0], nil
}

func (b *Builder) remember(ctx context.Context, t lookups.Type, value string) {
	if b.lookups == nil || value == "" {
		return
	}
	if _, err := b.lookups.Add(ctx, t, value); err != nil {
		b.log.Warn("lookup add failed", "type", string(t), "value", value, "err", err)
	}
}
