package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
	"github.com/careflow/careflow/internal/platform/flowerr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const tokenCols = `id, clinician_id, service_date, number, lane, patient_id, patient_name,
	status, created_at, updated_at`

// laneOrder expresses lane precedence in SQL so the waiting list comes
// back pre-sorted from the store.
const laneOrder = `CASE lane WHEN 'emergency' THEN 0 WHEN 'priority' THEN 1 ELSE 2 END`

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	err := row.Scan(&t.ID, &t.ClinicianID, &t.ServiceDate, &t.Number, &t.Lane, &t.PatientID,
		&t.PatientName, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, flowerr.E(flowerr.KindNotFound, "token_not_found", "token not found")
	}
	return &t, err
}

// Create draws the next number from the per-(clinician, date) counter
// and inserts the token in a single statement, so two concurrent
// enqueues can never observe or produce the same number.
func (r *repoPG) Create(ctx context.Context, t *Token) error {
	t.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		WITH counter AS (
			INSERT INTO token_counter (clinician_id, service_date, last_number)
			VALUES ($1, $2, 1)
			ON CONFLICT (clinician_id, service_date)
			DO UPDATE SET last_number = token_counter.last_number + 1
			RETURNING last_number
		)
		INSERT INTO queue_token (id, clinician_id, service_date, number, lane, patient_id, patient_name, status)
		SELECT $3, $1, $2, counter.last_number, $4, $5, $6, $7 FROM counter
		RETURNING number, created_at, updated_at`,
		t.ClinicianID, t.ServiceDate, t.ID, t.Lane, t.PatientID, t.PatientName, t.Status).
		Scan(&t.Number, &t.CreatedAt, &t.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Token, error) {
	return scanToken(r.conn(ctx).QueryRow(ctx, `SELECT `+tokenCols+` FROM queue_token WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE queue_token SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("update token status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return flowerr.E(flowerr.KindConflict, "token_modified",
			"token %s is no longer %s", id, from)
	}
	return nil
}

func (r *repoPG) CurrentlyServing(ctx context.Context, clinicianID uuid.UUID, date time.Time) (*Token, error) {
	t, err := scanToken(r.conn(ctx).QueryRow(ctx, `
		SELECT `+tokenCols+` FROM queue_token
		WHERE clinician_id = $1 AND service_date = $2 AND status = 'with_doctor'
		ORDER BY updated_at DESC LIMIT 1`, clinicianID, date))
	if flowerr.IsKind(err, flowerr.KindNotFound) {
		return nil, nil
	}
	return t, err
}

func (r *repoPG) ListWaiting(ctx context.Context, clinicianID uuid.UUID, date time.Time, limit int) ([]*Token, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+tokenCols+` FROM queue_token
		WHERE clinician_id = $1 AND service_date = $2 AND status = 'waiting'
		ORDER BY `+laneOrder+`, number, created_at
		LIMIT $3`, clinicianID, date, limit)
	if err != nil {
		return nil, fmt.Errorf("list waiting tokens: %w", err)
	}
	defer rows.Close()

	var toks []*Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
	}
	return toks, rows.Err()
}
