package appointments

import (
	"context"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	// Create inserts the appointment. The slot unique index makes the
	// second booking for the same (clinician, slot time) fail with a
	// conflict; the database, not the service, settles the race.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateStatus moves the appointment from one lifecycle state to
	// another, compare-and-swap on the current state.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	// MarkPaid flips the payment sub-state from pending to paid on a
	// still-upcoming appointment.
	MarkPaid(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// Finalize records the attempt's outcome, compare-and-swap on
	// pending. Terminal rows are never touched again.
	Finalize(ctx context.Context, id uuid.UUID, outcome PaymentStatus) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Payment, error)
}
