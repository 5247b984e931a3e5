package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
	"github.com/careflow/careflow/internal/platform/flowerr"
)

type apptRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository { return &apptRepoPG{pool: pool} }

func (r *apptRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, patient_id, clinician_id, scheduled_at, modality, payment_state,
	status, reason, created_at, updated_at`

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.ClinicianID, &a.ScheduledAt, &a.Modality,
		&a.PaymentState, &a.Status, &a.Reason, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, flowerr.E(flowerr.KindNotFound, "appointment_not_found", "appointment not found")
	}
	return &a, err
}

func (r *apptRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, clinician_id, scheduled_at, modality, payment_state, status, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.ClinicianID, a.ScheduledAt, a.Modality, a.PaymentState, a.Status, a.Reason).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return flowerr.E(flowerr.KindConflict, "slot_already_taken",
			"clinician %s already has a booking at %s", a.ClinicianID, a.ScheduledAt)
	}
	return err
}

func (r *apptRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *apptRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return flowerr.E(flowerr.KindConflict, "appointment_modified",
			"appointment %s is no longer %s", id, from)
	}
	return nil
}

func (r *apptRepoPG) MarkPaid(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET payment_state = 'paid', updated_at = now()
		WHERE id = $1 AND payment_state = 'pending' AND status = 'upcoming'`, id)
	if err != nil {
		return fmt.Errorf("mark appointment paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return flowerr.E(flowerr.KindConflict, "appointment_modified",
			"appointment %s is not pending payment", id)
	}
	return nil
}

func (r *apptRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointment WHERE patient_id = $1
		ORDER BY scheduled_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, a)
	}
	return appts, total, rows.Err()
}

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.AppointmentID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, flowerr.E(flowerr.KindNotFound, "payment_not_found", "payment not found")
	}
	return &p, err
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payment (id, appointment_id, amount, status)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		p.ID, p.AppointmentID, p.Amount, p.Status).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx, `
		SELECT id, appointment_id, amount, status, created_at, updated_at
		FROM payment WHERE id = $1`, id))
}

func (r *paymentRepoPG) Finalize(ctx context.Context, id uuid.UUID, outcome PaymentStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE payment SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'`, id, outcome)
	if err != nil {
		return fmt.Errorf("finalize payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return flowerr.E(flowerr.KindConflict, "payment_finalized",
			"payment %s already has a final outcome", id)
	}
	return nil
}

func (r *paymentRepoPG) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, amount, status, created_at, updated_at
		FROM payment WHERE appointment_id = $1 ORDER BY created_at`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
