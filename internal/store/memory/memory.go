// Package memory is an in-process record store used by tests and by the
// SQLite snapshot store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/stokapp/stok/internal/domain/cases"
	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/lookups"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/errs"
	"github.com/stokapp/stok/internal/store"
)

// Snapshot is the full state in insertion order.
type Snapshot struct {
	Materials []materials.Material `json:"materials"`
	Cases     []cases.Record       `json:"cases"`
	History   []history.Entry      `json:"history"`
	Checklist []checklist.Entry    `json:"checklist"`
	Lookups   []lookups.Value      `json:"lookups"`
}

type DB struct {
	mu    sync.RWMutex
	state Snapshot

	// afterWrite sees the candidate state; an error discards the mutation.
	afterWrite func(Snapshot) error
}

func New() *DB { return &DB{} }

// OnWrite installs a hook invoked with the new state before each mutation is
// committed. The hook must not call back into the DB.
func (db *DB) OnWrite(fn func(Snapshot) error) { db.afterWrite = fn }

func (db *DB) Store() store.Store {
	return store.Store{
		Materials: materialRepo{db},
		Cases:     caseRepo{db},
		History:   historyRepo{db},
		Checklist: checklistRepo{db},
		Lookups:   lookupRepo{db},
	}
}

func (db *DB) Export() Snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return cloneState(db.state)
}

func (db *DB) Import(s Snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state = cloneState(s)
}

func cloneState(s Snapshot) Snapshot {
	return Snapshot{
		Materials: cloneSlice(s.Materials, cloneMaterial),
		Cases:     cloneSlice(s.Cases, cloneCase),
		History:   cloneSlice(s.History, cloneEntry),
		Checklist: append([]checklist.Entry(nil), s.Checklist...),
		Lookups:   append([]lookups.Value(nil), s.Lookups...),
	}
}

// write applies fn to a copy of the state and commits it only when fn and
// the write hook both succeed.
func (db *DB) write(fn func() error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	prev := db.state
	db.state = cloneState(prev)
	if err := fn(); err != nil {
		db.state = prev
		return err
	}
	if db.afterWrite != nil {
		if err := db.afterWrite(db.state); err != nil {
			db.state = prev
			return err
		}
	}
	return nil
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}

func removeAt[T any](items []T, i int) []T {
	return append(items[:i], items[i+1:]...)
}

func cloneSlice[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}

func cloneMaterial(m materials.Material) materials.Material {
	if m.ExpiryDate != nil {
		d := *m.ExpiryDate
		m.ExpiryDate = &d
	}
	return m
}

func cloneUsed(lines []materials.Used) []materials.Used {
	out := make([]materials.Used, len(lines))
	for i, l := range lines {
		if l.ExpiryDate != nil {
			d := *l.ExpiryDate
			l.ExpiryDate = &d
		}
		out[i] = l
	}
	return out
}

func cloneCase(c cases.Record) cases.Record {
	c.UsedMaterials = cloneUsed(c.UsedMaterials)
	return c
}

func cloneEntry(e history.Entry) history.Entry {
	e.Details = cloneUsed(e.Details)
	return e
}

type materialRepo struct{ db *DB }

func (r materialRepo) Insert(_ context.Context, m *materials.Material) error {
	return r.db.write(func() error {
		if indexOf(r.db.state.Materials, func(x materials.Material) bool { return x.ID == m.ID }) >= 0 {
			return errs.Validation("material %s already exists", m.ID)
		}
		r.db.state.Materials = append(r.db.state.Materials, cloneMaterial(*m))
		return nil
	})
}

func (r materialRepo) Update(_ context.Context, m *materials.Material) error {
	return r.db.write(func() error {
		i := indexOf(r.db.state.Materials, func(x materials.Material) bool { return x.ID == m.ID })
		if i < 0 {
			return errs.NotFound("material", m.ID)
		}
		created := r.db.state.Materials[i].CreatedAt
		r.db.state.Materials[i] = cloneMaterial(*m)
		r.db.state.Materials[i].CreatedAt = created
		return nil
	})
}

func (r materialRepo) Delete(_ context.Context, id string) error {
	return r.db.write(func() error {
		if i := indexOf(r.db.state.Materials, func(x materials.Material) bool { return x.ID == id }); i >= 0 {
			r.db.state.Materials = removeAt(r.db.state.Materials, i)
		}
		return nil
	})
}

func (r materialRepo) Get(_ context.Context, id string) (*materials.Material, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	i := indexOf(r.db.state.Materials, func(x materials.Material) bool { return x.ID == id })
	if i < 0 {
		return nil, nil
	}
	m := cloneMaterial(r.db.state.Materials[i])
	return &m, nil
}

func (r materialRepo) List(_ context.Context) ([]materials.Material, error) {
	r.db.mu.RLock()
	out := cloneSlice(r.db.state.Materials, cloneMaterial)
	r.db.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type caseRepo struct{ db *DB }

func (r caseRepo) Insert(_ context.Context, c *cases.Record) error {
	return r.db.write(func() error {
		r.db.state.Cases = append(r.db.state.Cases, cloneCase(*c))
		return nil
	})
}

func (r caseRepo) Delete(_ context.Context, id string) error {
	return r.db.write(func() error {
		if i := indexOf(r.db.state.Cases, func(x cases.Record) bool { return x.ID == id }); i >= 0 {
			r.db.state.Cases = removeAt(r.db.state.Cases, i)
		}
		return nil
	})
}

func (r caseRepo) Get(_ context.Context, id string) (*cases.Record, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	i := indexOf(r.db.state.Cases, func(x cases.Record) bool { return x.ID == id })
	if i < 0 {
		return nil, nil
	}
	c := cloneCase(r.db.state.Cases[i])
	return &c, nil
}

func (r caseRepo) List(_ context.Context) ([]cases.Record, error) {
	r.db.mu.RLock()
	out := cloneSlice(r.db.state.Cases, cloneCase)
	r.db.mu.RUnlock()
	reverse(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type historyRepo struct{ db *DB }

func (r historyRepo) Insert(_ context.Context, e *history.Entry) error {
	return r.db.write(func() error {
		r.db.state.History = append(r.db.state.History, cloneEntry(*e))
		return nil
	})
}

func (r historyRepo) Delete(_ context.Context, id string) error {
	return r.db.write(func() error {
		if i := indexOf(r.db.state.History, func(x history.Entry) bool { return x.ID == id }); i >= 0 {
			r.db.state.History = removeAt(r.db.state.History, i)
		}
		return nil
	})
}

func (r historyRepo) Get(_ context.Context, id string) (*history.Entry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	i := indexOf(r.db.state.History, func(x history.Entry) bool { return x.ID == id })
	if i < 0 {
		return nil, nil
	}
	e := cloneEntry(r.db.state.History[i])
	return &e, nil
}

// List returns newest first; entries with equal timestamps keep reverse insertion order.
func (r historyRepo) List(_ context.Context) ([]history.Entry, error) {
	r.db.mu.RLock()
	out := cloneSlice(r.db.state.History, cloneEntry)
	r.db.mu.RUnlock()
	reverse(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type checklistRepo struct{ db *DB }

func (r checklistRepo) Insert(_ context.Context, e *checklist.Entry) error {
	return r.db.write(func() error {
		r.db.state.Checklist = append(r.db.state.Checklist, *e)
		return nil
	})
}

func (r checklistRepo) Delete(_ context.Context, id string) error {
	return r.db.write(func() error {
		if i := indexOf(r.db.state.Checklist, func(x checklist.Entry) bool { return x.ID == id }); i >= 0 {
			r.db.state.Checklist = removeAt(r.db.state.Checklist, i)
		}
		return nil
	})
}

func (r checklistRepo) List(_ context.Context) ([]checklist.Entry, error) {
	r.db.mu.RLock()
	out := append([]checklist.Entry(nil), r.db.state.Checklist...)
	r.db.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderNo != out[j].OrderNo {
			return out[i].OrderNo < out[j].OrderNo
		}
		return out[i].Patient < out[j].Patient
	})
	return out, nil
}

type lookupRepo struct{ db *DB }

func (r lookupRepo) List(_ context.Context, t lookups.Type) ([]lookups.Value, error) {
	r.db.mu.RLock()
	var out []lookups.Value
	for _, v := range r.db.state.Lookups {
		if v.Type == t {
			out = append(out, v)
		}
	}
	r.db.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

func (r lookupRepo) Find(_ context.Context, t lookups.Type, value string) (*lookups.Value, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	value = strings.TrimSpace(value)
	i := indexOf(r.db.state.Lookups, func(x lookups.Value) bool {
		return x.Type == t && strings.EqualFold(x.Value, value)
	})
	if i < 0 {
		return nil, nil
	}
	v := r.db.state.Lookups[i]
	return &v, nil
}

func (r lookupRepo) Insert(_ context.Context, v *lookups.Value) error {
	return r.db.write(func() error {
		exists := indexOf(r.db.state.Lookups, func(x lookups.Value) bool {
			return x.Type == v.Type && strings.EqualFold(x.Value, v.Value)
		}) >= 0
		if !exists {
			r.db.state.Lookups = append(r.db.state.Lookups, *v)
		}
		return nil
	})
}

func (r lookupRepo) Delete(_ context.Context, id string) error {
	return r.db.write(func() error {
		if i := indexOf(r.db.state.Lookups, func(x lookups.Value) bool { return x.ID == id }); i >= 0 {
			r.db.state.Lookups = removeAt(r.db.state.Lookups, i)
		}
		return nil
	})
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
