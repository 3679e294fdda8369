// Package ledger owns every mutation of Material.Quantity. Operations on the
// same material are serialized with a per-material mutex.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
	"github.com/stokapp/stok/internal/store"
)

type Op string

const (
	OpCreate  Op = "create"
	OpEdit    Op = "edit"
	OpConsume Op = "consume"
	OpAdjust  Op = "adjust"
	OpReduce  Op = "reduce"
	OpRestore Op = "restore"
	OpDelete  Op = "delete"
)

// Observer receives the outcome of every ledger operation.
type Observer interface {
	LedgerOp(op Op, err error)
}

type Ledger struct {
	materials store.Materials
	log       *slog.Logger
	observer  Observer
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	subMu sync.Mutex
	subs  map[int]chan Change
	next  int
}

func New(mats store.Materials, log *slog.Logger) *Ledger {
	return &Ledger{
		materials: mats,
		log:       log,
		now:       time.Now,
		locks:     map[string]*sync.Mutex{},
		subs:      map[int]chan Change{},
	}
}

func (l *Ledger) SetObserver(o Observer) { l.observer = o }

func (l *Ledger) observe(op Op, err error) {
	if l.observer != nil {
		l.observer.LedgerOp(op, err)
	}
}

// lock acquires the per-material mutexes in id order and returns the release func.
func (l *Ledger) lock(ids ...string) func() {
	uniq := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	l.mu.Lock()
	ms := make([]*sync.Mutex, len(uniq))
	for i, id := range uniq {
		m, ok := l.locks[id]
		if !ok {
			m = &sync.Mutex{}
			l.locks[id] = m
		}
		ms[i] = m
	}
	l.mu.Unlock()

	for _, m := range ms {
		m.Lock()
	}
	return func() {
		for i := len(ms) - 1; i >= 0; i-- {
			ms[i].Unlock()
		}
	}
}

func (l *Ledger) Get(ctx context.Context, id string) (*materials.Material, error) {
	m, err := l.materials.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.NotFound("material", id)
	}
	return m, nil
}

func (l *Ledger) List(ctx context.Context) ([]materials.Material, error) {
	return l.materials.List(ctx)
}

// MatchSerialOrLot returns every material whose serial or lot equals key, case-insensitively.
func (l *Ledger) MatchSerialOrLot(ctx context.Context, key string) ([]materials.Material, error) {
	all, err := l.materials.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []materials.Material
	for _, m := range all {
		if m.MatchesSerialOrLot(key) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Resolve finds the material a snapshot line refers to: by id, else the
// first case-insensitive serial match, else the first lot match. Returns
// nil, nil when nothing resolves.
func (l *Ledger) Resolve(ctx context.Context, d materials.Used) (*materials.Material, error) {
	if d.MaterialID != "" {
		m, err := l.materials.Get(ctx, d.MaterialID)
		if err != nil || m != nil {
			return m, err
		}
	}
	serial, lot := strings.TrimSpace(d.Serial), strings.TrimSpace(d.Lot)
	if serial == "" && lot == "" {
		// older snapshots only carry the combined field
		serial = strings.TrimSpace(d.SerialOrLot)
		lot = serial
	}
	if serial == "" && lot == "" {
		return nil, nil
	}
	all, err := l.materials.List(ctx)
	if err != nil {
		return nil, err
	}
	if serial != "" {
		for i := range all {
			if all[i].Serial != "" && strings.EqualFold(all[i].Serial, serial) {
				return &all[i], nil
			}
		}
	}
	if lot != "" {
		for i := range all {
			if all[i].Lot != "" && strings.EqualFold(all[i].Lot, lot) {
				return &all[i], nil
			}
		}
	}
	return nil, nil
}

// Create inserts a new material. Quantity must not be negative.
func (l *Ledger) Create(ctx context.Context, m materials.Material) (*materials.Material, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return nil, errs.Validation("material name is required")
	}
	if m.Quantity < 0 {
		return nil, errs.Validation("quantity must not be negative")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := l.now()
	m.CreatedAt, m.UpdatedAt = now, now
	if err := l.materials.Insert(ctx, &m); err != nil {
		l.observe(OpCreate, err)
		return nil, err
	}
	l.observe(OpCreate, nil)
	l.publish(Change{MaterialID: m.ID, Name: m.Name, Quantity: m.Quantity, Delta: m.Quantity, Op: OpCreate})
	return &m, nil
}

// Patch lists the editable fields; nil leaves a field unchanged.
type Patch struct {
	Name      *string
	Quantity  *int
	OwnerUser *string
}

// Edit changes name, quantity or owner directly. No history is written for edits.
func (l *Ledger) Edit(ctx context.Context, id string, p Patch) (*materials.Material, error) {
	unlock := l.lock(id)
	defer unlock()

	m, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := m.Quantity
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, errs.Validation("material name is required")
		}
		m.Name = name
	}
	if p.Quantity != nil {
		if *p.Quantity < 0 {
			return nil, errs.Validation("quantity must not be negative")
		}
		m.Quantity = *p.Quantity
	}
	if p.OwnerUser != nil {
		m.OwnerUser = strings.TrimSpace(*p.OwnerUser)
	}
	if err := l.save(ctx, OpEdit, m, m.Quantity-before); err != nil {
		return nil, err
	}
	return m, nil
}

// Consume removes qty units from one material.
func (l *Ledger) Consume(ctx context.Context, id string, qty int) (*materials.Material, error) {
	if qty <= 0 {
		return nil, errs.Validation("quantity must be positive, got %d", qty)
	}
	unlock := l.lock(id)
	defer unlock()

	m, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if qty > m.Quantity {
		err := &errs.InsufficientStockError{MaterialID: m.ID, Name: m.Name, Requested: qty, Available: m.Quantity}
		l.observe(OpConsume, err)
		return nil, err
	}
	m.Quantity -= qty
	if err := l.save(ctx, OpConsume, m, -qty); err != nil {
		return nil, err
	}
	return m, nil
}

// Line is one consumption request against a resolved material.
type Line struct {
	MaterialID string
	Quantity   int
}

// ConsumeBatch validates every line under the locks of all involved
// materials before touching any of them. Lines on the same material are
// checked against their combined quantity. Returns the material state
// after each line, in line order.
//
// A store failure part-way leaves earlier lines applied; the error names
// how many were.
func (l *Ledger) ConsumeBatch(ctx context.Context, lines []Line) ([]materials.Material, error) {
	if len(lines) == 0 {
		return nil, errs.Validation("no lines to consume")
	}
	ids := make([]string, len(lines))
	for i, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, errs.Validation("line %d: quantity must be positive, got %d", i+1, ln.Quantity)
		}
		ids[i] = ln.MaterialID
	}
	unlock := l.lock(ids...)
	defer unlock()

	current := map[string]*materials.Material{}
	need := map[string]int{}
	for _, ln := range lines {
		if _, ok := current[ln.MaterialID]; !ok {
			m, err := l.Get(ctx, ln.MaterialID)
			if err != nil {
				return nil, err
			}
			current[ln.MaterialID] = m
		}
		need[ln.MaterialID] += ln.Quantity
	}
	for id, total := range need {
		m := current[id]
		if total > m.Quantity {
			err := &errs.InsufficientStockError{MaterialID: m.ID, Name: m.Name, Requested: total, Available: m.Quantity}
			l.observe(OpConsume, err)
			return nil, err
		}
	}

	out := make([]materials.Material, 0, len(lines))
	for i, ln := range lines {
		m := current[ln.MaterialID]
		m.Quantity -= ln.Quantity
		if err := l.save(ctx, OpConsume, m, -ln.Quantity); err != nil {
			if i > 0 {
				l.log.Error("consume batch partially applied", "applied", i, "total", len(lines), "err", err)
			}
			return out, fmt.Errorf("consume line %d of %d: %w", i+1, len(lines), err)
		}
		out = append(out, *m)
	}
	return out, nil
}

// Adjust applies a signed delta. A negative delta larger than the stock on
// hand fails with InsufficientStock.
func (l *Ledger) Adjust(ctx context.Context, id string, delta int) (*materials.Material, error) {
	if delta == 0 {
		return nil, errs.Validation("delta must not be zero")
	}
	unlock := l.lock(id)
	defer unlock()

	m, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Quantity+delta < 0 {
		err := &errs.InsufficientStockError{MaterialID: m.ID, Name: m.Name, Requested: -delta, Available: m.Quantity}
		l.observe(OpAdjust, err)
		return nil, err
	}
	m.Quantity += delta
	if err := l.save(ctx, OpAdjust, m, delta); err != nil {
		return nil, err
	}
	return m, nil
}

// ReduceFloored removes up to qty units, stopping at zero.
func (l *Ledger) ReduceFloored(ctx context.Context, id string, qty int) (*materials.Material, error) {
	if qty < 0 {
		return nil, errs.Validation("quantity must not be negative, got %d", qty)
	}
	unlock := l.lock(id)
	defer unlock()

	m, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := m.Quantity
	m.Quantity = max(0, m.Quantity-qty)
	if err := l.save(ctx, OpReduce, m, m.Quantity-before); err != nil {
		return nil, err
	}
	return m, nil
}

// Restore adds qty back to the material d resolves to. When nothing
// resolves a new material is created from the snapshot with quantity qty
// and owner; created reports that case.
func (l *Ledger) Restore(ctx context.Context, d materials.Used, qty int, owner string) (*materials.Material, bool, error) {
	if qty < 0 {
		return nil, false, errs.Validation("quantity must not be negative, got %d", qty)
	}
	target, err := l.Resolve(ctx, d)
	if err != nil {
		return nil, false, err
	}
	if target == nil {
		m, err := l.Recreate(ctx, d, qty, owner)
		return m, err == nil, err
	}

	cur, err := l.addTo(ctx, target.ID, qty)
	if err != nil {
		return nil, false, err
	}
	if cur == nil {
		// deleted between resolve and lock
		m, err := l.Recreate(ctx, d, qty, owner)
		return m, err == nil, err
	}
	return cur, false, nil
}

// addTo returns nil, nil when the material no longer exists.
func (l *Ledger) addTo(ctx context.Context, id string, qty int) (*materials.Material, error) {
	unlock := l.lock(id)
	defer unlock()

	m, err := l.materials.Get(ctx, id)
	if err != nil || m == nil {
		return nil, err
	}
	m.Quantity += qty
	if err := l.save(ctx, OpRestore, m, qty); err != nil {
		return nil, err
	}
	return m, nil
}

// Recreate inserts a fresh material from a snapshot line.
func (l *Ledger) Recreate(ctx context.Context, d materials.Used, qty int, owner string) (*materials.Material, error) {
	serial, lot := d.Serial, d.Lot
	if serial == "" && lot == "" {
		serial = d.SerialOrLot
	}
	m := materials.Material{
		Name:       d.Name,
		Serial:     serial,
		Lot:        lot,
		ExpiryDate: d.ExpiryDate,
		Quantity:   qty,
		OwnerUser:  owner,
	}
	return l.Create(ctx, m)
}

// Delete removes a material and returns its last state so the caller can
// snapshot it into history.
func (l *Ledger) Delete(ctx context.Context, id string) (*materials.Material, error) {
	unlock := l.lock(id)
	defer unlock()

	m, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.materials.Delete(ctx, id); err != nil {
		l.observe(OpDelete, err)
		return nil, err
	}
	l.observe(OpDelete, nil)
	l.publish(Change{MaterialID: m.ID, Name: m.Name, Quantity: 0, Delta: -m.Quantity, Op: OpDelete})
	return m, nil
}

func (l *Ledger) save(ctx context.Context, op Op, m *materials.Material, delta int) error {
	m.UpdatedAt = l.now()
	err := l.materials.Update(ctx, m)
	l.observe(op, err)
	if err != nil {
		return err
	}
	l.log.Debug("ledger op", "op", string(op), "material_id", m.ID, "delta", delta, "quantity", m.Quantity)
	l.publish(Change{MaterialID: m.ID, Name: m.Name, Quantity: m.Quantity, Delta: delta, Op: op})
	return nil
}
