// Package store is the record store adapter: typed insert/update/delete/find/list
// over the entity collections. Used-material lines are embedded in cases and
// history, not stored apart. Finds return nil, nil when the record is absent.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stokapp/stok/internal/domain/cases"
	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/lookups"
	"github.com/stokapp/stok/internal/domain/materials"
)

type Materials interface {
	Insert(ctx context.Context, m *materials.Material) error
	Update(ctx context.Context, m *materials.Material) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*materials.Material, error)
	List(ctx context.Context) ([]materials.Material, error)
}

type Cases interface {
	Insert(ctx context.Context, c *cases.Record) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*cases.Record, error)
	List(ctx context.Context) ([]cases.Record, error)
}

type History interface {
	Insert(ctx context.Context, e *history.Entry) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*history.Entry, error)
	List(ctx context.Context) ([]history.Entry, error)
}

type Checklist interface {
	Insert(ctx context.Context, e *checklist.Entry) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]checklist.Entry, error)
}

type Lookups interface {
	List(ctx context.Context, t lookups.Type) ([]lookups.Value, error)
	Find(ctx context.Context, t lookups.Type, value string) (*lookups.Value, error)
	Insert(ctx context.Context, v *lookups.Value) error
	Delete(ctx context.Context, id string) error
}

type Store struct {
	Materials Materials
	Cases     Cases
	History   History
	Checklist Checklist
	Lookups   Lookups
}

var (
	_ Materials = (*materials.Repo)(nil)
	_ Cases     = (*cases.Repo)(nil)
	_ History   = (*history.Repo)(nil)
	_ Checklist = (*checklist.Repo)(nil)
	_ Lookups   = (*lookups.Repo)(nil)
)

// NewPostgres wires the pgx repositories.
func NewPostgres(pool *pgxpool.Pool) Store {
	return Store{
		Materials: materials.NewRepo(pool),
		Cases:     cases.NewRepo(pool),
		History:   history.NewRepo(pool),
		Checklist: checklist.NewRepo(pool),
		Lookups:   lookups.NewRepo(pool),
	}
}
