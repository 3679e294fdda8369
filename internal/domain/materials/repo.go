package materials

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const selectCols = `id, name, COALESCE(code,''), COALESCE(serial,''), COALESCE(lot,''), expiry_date, quantity, owner_user, created_at, updated_at`

func scanMaterial(row pgx.Row, m *Material) error {
	return row.Scan(
		&m.ID,
		&m.Name,
		&m.Code,
		&m.Serial,
		&m.Lot,
		&m.ExpiryDate,
		&m.Quantity,
		&m.OwnerUser,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}

func (r *Repo) Insert(ctx context.Context, m *Material) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO materials (id, name, code, serial, lot, expiry_date, quantity, owner_user, created_at, updated_at)
		VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),$6,$7,$8,$9,$10)
	`, m.ID, m.Name, m.Code, m.Serial, m.Lot, m.ExpiryDate, m.Quantity, m.OwnerUser, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *Repo) Update(ctx context.Context, m *Material) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE materials SET
			name=$2, code=NULLIF($3,''), serial=NULLIF($4,''), lot=NULLIF($5,''),
			expiry_date=$6, quantity=$7, owner_user=$8, updated_at=$9
		WHERE id=$1
	`, m.ID, m.Name, m.Code, m.Serial, m.Lot, m.ExpiryDate, m.Quantity, m.OwnerUser, m.UpdatedAt)
	return err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id=$1`, id)
	return err
}

// Get returns nil, nil when the material does not exist.
func (r *Repo) Get(ctx context.Context, id string) (*Material, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectCols+` FROM materials WHERE id=$1`, id)
	var m Material
	if err := scanMaterial(row, &m); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	normalizeExpiry(&m)
	return &m, nil
}

// List returns all materials ordered by name.
func (r *Repo) List(ctx context.Context) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectCols+` FROM materials ORDER BY name, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		var m Material
		if err := scanMaterial(rows, &m); err != nil {
			return nil, err
		}
		normalizeExpiry(&m)
		out = append(out, m)
	}
	return out, rows.Err()
}

// DATE columns come back in the session zone; keep them as plain UTC dates.
func normalizeExpiry(m *Material) {
	if m.ExpiryDate == nil {
		return
	}
	d := m.ExpiryDate.UTC()
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	m.ExpiryDate = &d
}
