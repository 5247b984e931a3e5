package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
	"github.com/careflow/careflow/internal/platform/flowerr"
)

// =========== Ward Repository ===========

type wardRepoPG struct{ pool *pgxpool.Pool }

func NewWardRepoPG(pool *pgxpool.Pool) WardRepository { return &wardRepoPG{pool: pool} }

func (r *wardRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const wardCols = `id, name, ward_type, daily_charge, created_at, updated_at`

func scanWard(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.Name, &w.Type, &w.DailyCharge, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, flowerr.E(flowerr.KindNotFound, "ward_not_found", "ward not found")
	}
	return &w, err
}

func (r *wardRepoPG) Create(ctx context.Context, w *Ward) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ward (id, name, ward_type, daily_charge)
		VALUES ($1,$2,$3,$4)`,
		w.ID, w.Name, w.Type, w.DailyCharge)
	return err
}

func (r *wardRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return scanWard(r.conn(ctx).QueryRow(ctx, `SELECT `+wardCols+` FROM ward WHERE id = $1`, id))
}

func (r *wardRepoPG) List(ctx context.Context, limit, offset int) ([]*Ward, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM ward`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+wardCols+` FROM ward ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Ward
	for rows.Next() {
		w, err := scanWard(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, nil
}

// =========== Bed Repository ===========

type bedRepoPG struct{ pool *pgxpool.Pool }

func NewBedRepoPG(pool *pgxpool.Pool) BedRepository { return &bedRepoPG{pool: pool} }

func (r *bedRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const bedCols = `id, ward_id, bed_number, location, status, patient_id, reserved_for, created_at, updated_at`

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.WardID, &b.Number, &b.Location, &b.Status, &b.PatientID, &b.ReservedFor, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, flowerr.E(flowerr.KindNotFound, "bed_not_found", "bed not found")
	}
	return &b, err
}

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bed (id, ward_id, bed_number, location, status)
		VALUES ($1,$2,$3,$4,$5)`,
		b.ID, b.WardID, b.Number, b.Location, b.Status)
	return err
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
}

func (r *bedRepoPG) List(ctx context.Context, limit, offset int) ([]*Bed, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bed`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bedCols+` FROM bed ORDER BY bed_number LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

func (r *bedRepoPG) ListByWard(ctx context.Context, wardID uuid.UUID, limit, offset int) ([]*Bed, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bed WHERE ward_id = $1`, wardID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bedCols+` FROM bed WHERE ward_id = $1 ORDER BY bed_number LIMIT $2 OFFSET $3`, wardID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

func (r *bedRepoPG) Occupancy(ctx context.Context) ([]*WardOccupancy, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT w.id, w.name,
			COUNT(b.id),
			COUNT(b.id) FILTER (WHERE b.status = 'available'),
			COUNT(b.id) FILTER (WHERE b.status = 'occupied'),
			COUNT(b.id) FILTER (WHERE b.status = 'maintenance'),
			COUNT(b.id) FILTER (WHERE b.status = 'cleaning'),
			COUNT(b.id) FILTER (WHERE b.status = 'reserved')
		FROM ward w
		LEFT JOIN bed b ON b.ward_id = w.id
		GROUP BY w.id, w.name
		ORDER BY w.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*WardOccupancy
	for rows.Next() {
		var o WardOccupancy
		if err := rows.Scan(&o.WardID, &o.WardName, &o.Total, &o.Available, &o.Occupied, &o.Maintenance, &o.Cleaning, &o.Reserved); err != nil {
			return nil, err
		}
		items = append(items, &o)
	}
	return items, nil
}

// =========== Clinician Repository ===========

type clinicianRepoPG struct{ pool *pgxpool.Pool }

func NewClinicianRepoPG(pool *pgxpool.Pool) ClinicianRepository {
	return &clinicianRepoPG{pool: pool}
}

func (r *clinicianRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const clinicianCols = `id, name, specialty, active, created_at, updated_at`

func scanClinician(row pgx.Row) (*Clinician, error) {
	var c Clinician
	err := row.Scan(&c.ID, &c.Name, &c.Specialty, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, flowerr.E(flowerr.KindNotFound, "clinician_not_found", "clinician not found")
	}
	return &c, err
}

func (r *clinicianRepoPG) Create(ctx context.Context, c *Clinician) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinician (id, name, specialty, active)
		VALUES ($1,$2,$3,$4)`,
		c.ID, c.Name, c.Specialty, c.Active)
	return err
}

func (r *clinicianRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	return scanClinician(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicianCols+` FROM clinician WHERE id = $1`, id))
}

func (r *clinicianRepoPG) List(ctx context.Context, limit, offset int) ([]*Clinician, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinician`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+clinicianCols+` FROM clinician ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Clinician
	for rows.Next() {
		c, err := scanClinician(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}
