package history

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stokapp/stok/internal/domain/materials"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Insert(ctx context.Context, e *Entry) error {
	raw, err := materials.EncodeUsed(e.Details)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO history_entries (id, kind, summary, details, created_at, created_by, reversible, reference_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''))
	`, e.ID, string(e.Kind), e.Summary, raw, e.CreatedAt, e.CreatedBy, e.Reversible, e.ReferenceID)
	return err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM history_entries WHERE id=$1`, id)
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, kind, summary, details, created_at, created_by, reversible, COALESCE(reference_id,'')
		FROM history_entries WHERE id=$1
	`, id)
	e, err := scanEntry(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// List returns entries newest first (history_entries_created_at_idx).
func (r *Repo) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, summary, details, created_at, created_by, reversible, COALESCE(reference_id,'')
		FROM history_entries
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var kind string
	var raw []byte
	if err := row.Scan(&e.ID, &kind, &e.Summary, &raw, &e.CreatedAt, &e.CreatedBy, &e.Reversible, &e.ReferenceID); err != nil {
		return nil, err
	}
	e.Kind = Kind(kind)
	e.Details = materials.DecodeUsed(raw)
	return &e, nil
}
