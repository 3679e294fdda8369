package lookups

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// List returns the values of one type ordered alphabetically.
func (r *Repo) List(ctx context.Context, t Type) ([]Value, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, value FROM lookup_values
		WHERE type = $1
		ORDER BY value
	`, string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Value
	for rows.Next() {
		var v Value
		if err := rows.Scan(&v.ID, &v.Type, &v.Value); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Find matches value case-insensitively; nil, nil when absent.
func (r *Repo) Find(ctx context.Context, t Type, value string) (*Value, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, type, value FROM lookup_values
		WHERE type = $1 AND LOWER(value) = LOWER($2)
	`, string(t), strings.TrimSpace(value))
	var v Value
	if err := row.Scan(&v.ID, &v.Type, &v.Value); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// Insert is a no-op when the (type, value) pair already exists.
func (r *Repo) Insert(ctx context.Context, v *Value) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lookup_values (id, type, value) VALUES ($1,$2,$3)
		ON CONFLICT DO NOTHING
	`, v.ID, string(v.Type), v.Value)
	return err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM lookup_values WHERE id=$1`, id)
	return err
}
