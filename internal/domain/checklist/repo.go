package checklist

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Insert(ctx context.Context, e *Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO checklist_entries (id, order_no, patient, hospital, phone, time_minutes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.OrderNo, e.Patient, e.Hospital, e.Phone, int(e.Time/time.Minute), string(e.Status))
	return err
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM checklist_entries WHERE id=$1`, id)
	return err
}

// List returns entries ordered by order number.
func (r *Repo) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_no, patient, hospital, phone, time_minutes, status
		FROM checklist_entries
		ORDER BY order_no, patient
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var minutes int
		var status string
		if err := rows.Scan(&e.ID, &e.OrderNo, &e.Patient, &e.Hospital, &e.Phone, &minutes, &status); err != nil {
			return nil, err
		}
		e.Time = time.Duration(minutes) * time.Minute
		e.Status = Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
