package cases

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stokapp/stok/internal/domain/materials"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Insert(ctx context.Context, c *Record) error {
	raw, err := materials.EncodeUsed(c.UsedMaterials)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO case_records (id, hospital, doctor, patient, note, used_materials, created_at, created_by)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8)
	`, c.ID, c.Hospital, c.Doctor, c.Patient, c.Note, raw, c.CreatedAt, c.CreatedBy)
	return err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM case_records WHERE id=$1`, id)
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, hospital, doctor, patient, COALESCE(note,''), used_materials, created_at, created_by
		FROM case_records WHERE id=$1
	`, id)
	c, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// List returns case records newest first.
func (r *Repo) List(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, hospital, doctor, patient, COALESCE(note,''), used_materials, created_at, created_by
		FROM case_records
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		c, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var c Record
	var raw []byte
	if err := row.Scan(&c.ID, &c.Hospital, &c.Doctor, &c.Patient, &c.Note, &raw, &c.CreatedAt, &c.CreatedBy); err != nil {
		return nil, err
	}
	c.UsedMaterials = materials.DecodeUsed(raw)
	return &c, nil
}
