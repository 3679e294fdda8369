// Package undo reverses history entries. Each kind has its own inverse and
// its own policy for detail lines whose material no longer resolves.
package undo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
	"github.com/stokapp/stok/internal/ledger"
	"github.com/stokapp/stok/internal/store"
)

// Observer receives the outcome of every undo attempt.
type Observer interface {
	Undo(kind history.Kind, err error)
}

// Result describes what an undo changed.
type Result struct {
	Entry    history.Entry
	Touched  []materials.Material // existing materials whose quantity changed
	Created  []materials.Material // materials recreated from snapshots
	Skipped  []materials.Used     // lines that resolved to nothing and were skipped
	CaseGone bool                 // the referenced case record was deleted
}

type Engine struct {
	ledger   *ledger.Ledger
	store    store.Store
	log      *slog.Logger
	observer Observer

	mu       sync.Mutex
	inFlight map[string]bool
}

func New(l *ledger.Ledger, st store.Store, log *slog.Logger) *Engine {
	return &Engine{ledger: l, store: st, log: log, inFlight: map[string]bool{}}
}

func (e *Engine) SetObserver(o Observer) { e.observer = o }

// CanUndo reports whether entry may be offered for reversal.
func CanUndo(entry *history.Entry) bool {
	return entry != nil && entry.Reversible && entry.Kind.Valid()
}

// Undo applies the inverse of the entry and deletes it. On a failure part-way
// through a multi-line inverse, lines already applied stay applied and the
// entry is kept.
//
// The id is claimed before the entry is read, so a second undo either sees
// the claim or finds the entry already deleted.
func (e *Engine) Undo(ctx context.Context, entryID string) (*Result, error) {
	if !e.claim(entryID) {
		return nil, fmt.Errorf("%w: undo of %s already in progress", errs.ErrNotReversible, entryID)
	}
	defer e.release(entryID)

	entry, err := e.store.History.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errs.NotFound("history entry", entryID)
	}
	if !CanUndo(entry) {
		return nil, fmt.Errorf("%w: %s %s", errs.ErrNotReversible, entry.Kind, entry.ID)
	}

	res := &Result{Entry: *entry}
	switch entry.Kind {
	case history.KindCase:
		err = e.undoCase(ctx, entry, res)
	case history.KindStockIn:
		err = e.undoStockIn(ctx, entry, res)
	case history.KindStockOut:
		err = e.undoStockOut(ctx, entry, res)
	case history.KindDelete:
		err = e.undoDelete(ctx, entry, res)
	case history.KindChecklist:
		// no stock effect
	}
	if err == nil {
		err = e.store.History.Delete(ctx, entry.ID)
	}
	if e.observer != nil {
		e.observer.Undo(entry.Kind, err)
	}
	if err != nil {
		return nil, err
	}
	e.log.Info("history entry undone", "entry_id", entry.ID, "kind", string(entry.Kind),
		"touched", len(res.Touched), "created", len(res.Created), "skipped", len(res.Skipped))
	return res, nil
}

func (e *Engine) claim(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[id] {
		return false
	}
	e.inFlight[id] = true
	return true
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	delete(e.inFlight, id)
	e.mu.Unlock()
}

func (e *Engine) partial(entry *history.Entry, applied int, err error) error {
	if applied > 0 {
		e.log.Error("undo partially applied", "entry_id", entry.ID, "kind", string(entry.Kind),
			"applied", applied, "total", len(entry.Details), "err", err)
	}
	return fmt.Errorf("undo %s line %d of %d: %w", entry.Kind, applied+1, len(entry.Details), err)
}

// undoCase deletes the case record when present and puts every consumed
// quantity back, recreating materials that no longer resolve.
func (e *Engine) undoCase(ctx context.Context, entry *history.Entry, res *Result) error {
	if entry.ReferenceID != "" {
		rec, err := e.store.Cases.Get(ctx, entry.ReferenceID)
		if err != nil {
			return err
		}
		if rec != nil {
			if err := e.store.Cases.Delete(ctx, rec.ID); err != nil {
				return err
			}
			res.CaseGone = true
		}
	}
	for i, d := range entry.Details {
		m, created, err := e.ledger.Restore(ctx, d, abs(d.Quantity), entry.CreatedBy)
		if err != nil {
			return e.partial(entry, i, err)
		}
		res.add(*m, created)
	}
	return nil
}

// undoStockIn never fabricates rows: unresolved lines are skipped.
func (e *Engine) undoStockIn(ctx context.Context, entry *history.Entry, res *Result) error {
	for i, d := range entry.Details {
		target, err := e.ledger.Resolve(ctx, d)
		if err != nil {
			return e.partial(entry, i, err)
		}
		if target == nil {
			res.Skipped = append(res.Skipped, d)
			continue
		}
		m, err := e.ledger.ReduceFloored(ctx, target.ID, abs(d.Quantity))
		if err != nil {
			return e.partial(entry, i, err)
		}
		res.add(*m, false)
	}
	return nil
}

// undoStockOut recreates unresolved materials at zero, then adds back.
func (e *Engine) undoStockOut(ctx context.Context, entry *history.Entry, res *Result) error {
	for i, d := range entry.Details {
		target, err := e.ledger.Resolve(ctx, d)
		if err != nil {
			return e.partial(entry, i, err)
		}
		created := false
		if target == nil {
			target, err = e.ledger.Recreate(ctx, d, 0, entry.CreatedBy)
			if err != nil {
				return e.partial(entry, i, err)
			}
			created = true
		}
		m, err := e.ledger.Adjust(ctx, target.ID, abs(d.Quantity))
		if err != nil {
			return e.partial(entry, i, err)
		}
		res.add(*m, created)
	}
	return nil
}

// undoDelete always recreates with the snapshot quantity.
func (e *Engine) undoDelete(ctx context.Context, entry *history.Entry, res *Result) error {
	for i, d := range entry.Details {
		m, err := e.ledger.Recreate(ctx, d, abs(d.Quantity), entry.CreatedBy)
		if err != nil {
			return e.partial(entry, i, err)
		}
		res.add(*m, true)
	}
	return nil
}

func (r *Result) add(m materials.Material, created bool) {
	if created {
		r.Created = append(r.Created, m)
		return
	}
	r.Touched = append(r.Touched, m)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
