package triage

import (
	"context"
	"errors"
	"fmt"

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

const entryCols = `id, patient_id, patient_name, triage_level, status, sequence, clinician_id,
	complaint, heart_rate, blood_pressure_sys, blood_pressure_dia, temperature,
	oxygen_saturation, arrived_at, created_at, updated_at`

// levelOrder ranks triage levels for serving order. Ordering lives in the
// query so a page window cuts the globally sorted set, not a per-page sort.
const levelOrder = `CASE triage_level
	WHEN 'critical' THEN 0
	WHEN 'urgent' THEN 1
	WHEN 'moderate' THEN 2
	ELSE 3 END`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.PatientName, &e.Level, &e.Status, &e.Sequence, &e.ClinicianID,
		&e.Complaint, &e.Vitals.HeartRate, &e.Vitals.BloodPressureSys, &e.Vitals.BloodPressureDia,
		&e.Vitals.Temperature, &e.Vitals.OxygenSaturation, &e.ArrivedAt, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, flowerr.E(flowerr.KindNotFound, "triage_entry_not_found", "triage entry not found")
	}
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	// sequence is identity-generated so arrival order survives restarts
	// and concurrent admissions.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO triage_entry (id, patient_id, patient_name, triage_level, status, clinician_id,
			complaint, heart_rate, blood_pressure_sys, blood_pressure_dia, temperature,
			oxygen_saturation, arrived_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING sequence, created_at, updated_at`,
		e.ID, e.PatientID, e.PatientName, e.Level, e.Status, e.ClinicianID,
		e.Complaint, e.Vitals.HeartRate, e.Vitals.BloodPressureSys, e.Vitals.BloodPressureDia,
		e.Vitals.Temperature, e.Vitals.OxygenSaturation, e.ArrivedAt).
		Scan(&e.Sequence, &e.CreatedAt, &e.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM triage_entry WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE triage_entry SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return flowerr.E(flowerr.KindConflict, "triage_entry_modified",
			"triage entry changed concurrently, expected status %s", from)
	}
	return nil
}

func (r *repoPG) AssignClinician(ctx context.Context, id uuid.UUID, clinicianID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE triage_entry SET clinician_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'waiting'`, id, clinicianID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return flowerr.E(flowerr.KindIllegalTransition, "entry_not_waiting",
			"clinician can only be reassigned while the entry is waiting")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Entry, int, error) {
	query := `SELECT ` + entryCols + ` FROM triage_entry WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM triage_entry WHERE 1=1`
	var args []interface{}
	idx := 1

	if status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY `+levelOrder+`, sequence LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, nil
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM triage_entry
		WHERE status IN ('waiting', 'in_treatment', 'under_observation')
		ORDER BY `+levelOrder+`, sequence`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}
