package appointments

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/flowerr"
	"github.com/careflow/careflow/internal/platform/keylock"
)

type Service struct {
	appts    AppointmentRepository
	payments PaymentRepository
	locks    *keylock.KeyLock
	log      zerolog.Logger
}

func NewService(appts AppointmentRepository, payments PaymentRepository, log zerolog.Logger) *Service {
	return &Service{appts: appts, payments: payments, locks: keylock.New(), log: log}
}

// Book creates an upcoming appointment with payment pending. Whether the
// slot is free is decided by the store's unique index, so two concurrent
// bookings for the same (clinician, slot time) cannot both succeed.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return flowerr.E(flowerr.KindValidation, "invalid_booking", "patient_id is required")
	}
	if a.ClinicianID == uuid.Nil {
		return flowerr.E(flowerr.KindValidation, "invalid_booking", "clinician_id is required")
	}
	if a.ScheduledAt.IsZero() {
		return flowerr.E(flowerr.KindValidation, "invalid_booking", "scheduled_at is required")
	}
	if !a.Modality.Valid() {
		return flowerr.E(flowerr.KindValidation, "invalid_modality", "unknown modality %q", a.Modality)
	}
	a.Status = StatusUpcoming
	a.PaymentState = PaymentPending
	return s.appts.Create(ctx, a)
}

// InitiatePayment opens a payment attempt for an upcoming appointment.
// Several attempts may exist; only one can ever succeed because the
// appointment flips to paid exactly once.
func (s *Service) InitiatePayment(ctx context.Context, appointmentID uuid.UUID, amount float64) (*Payment, error) {
	if amount <= 0 {
		return nil, flowerr.E(flowerr.KindValidation, "invalid_payment", "amount must be positive")
	}

	a, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusUpcoming {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "appointment_not_upcoming",
			"appointment is %s", a.Status)
	}
	if a.PaymentState == PaymentPaid {
		return nil, flowerr.E(flowerr.KindConflict, "already_paid", "appointment is already paid")
	}

	p := &Payment{AppointmentID: appointmentID, Amount: amount, Status: PaymentAttemptPending}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ConfirmPayment records the gateway's outcome for one attempt. Success
// marks the appointment paid; failure leaves everything as it was — the
// slot is deliberately kept so the patient can retry without racing
// other bookers for their own slot.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID uuid.UUID, outcome PaymentStatus) (*Payment, error) {
	if !outcome.Terminal() {
		return nil, flowerr.E(flowerr.KindValidation, "invalid_payment_outcome",
			"outcome must be success or failed, got %q", outcome)
	}

	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(p.AppointmentID.String())
	defer unlock()

	if p.Status.Terminal() {
		return nil, flowerr.E(flowerr.KindConflict, "payment_finalized",
			"payment already %s; retry with a new payment", p.Status)
	}
	if err := s.payments.Finalize(ctx, paymentID, outcome); err != nil {
		return nil, err
	}
	p.Status = outcome

	if outcome == PaymentAttemptSuccess {
		if err := s.appts.MarkPaid(ctx, p.AppointmentID); err != nil {
			// The money moved but the appointment would not take it:
			// surface loudly, this needs an operator.
			s.log.Error().Err(err).
				Str("payment_id", paymentID.String()).
				Str("appointment_id", p.AppointmentID.String()).
				Msg("payment succeeded but appointment could not be marked paid")
			return nil, err
		}
	} else {
		s.log.Info().
			Str("payment_id", paymentID.String()).
			Str("appointment_id", p.AppointmentID.String()).
			Msg("payment failed, slot kept for retry")
	}
	return p, nil
}

// JoinVideoSession admits the patient to the consultation if and only if
// the appointment is a video one, still upcoming, and paid.
func (s *Service) JoinVideoSession(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.Modality != ModalityVideo {
		return nil, flowerr.E(flowerr.KindGating, "session_not_joinable",
			"appointment is %s, not video", a.Modality)
	}
	if a.Status != StatusUpcoming {
		return nil, flowerr.E(flowerr.KindGating, "session_not_joinable",
			"appointment is %s", a.Status)
	}
	if a.PaymentState != PaymentPaid {
		return nil, flowerr.E(flowerr.KindGating, "payment_required",
			"video consultation requires payment")
	}
	return a, nil
}

// Complete archives an upcoming appointment as done.
func (s *Service) Complete(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	return s.close(ctx, appointmentID, StatusCompleted)
}

// Cancel archives an upcoming appointment as cancelled.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	return s.close(ctx, appointmentID, StatusCancelled)
}

func (s *Service) close(ctx context.Context, appointmentID uuid.UUID, to Status) (*Appointment, error) {
	unlock := s.locks.Lock(appointmentID.String())
	defer unlock()

	a, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !a.Status.Valid() {
		return nil, flowerr.E(flowerr.KindCorruptState, "corrupt_appointment",
			"appointment %s has unknown stored status %q", appointmentID, a.Status)
	}
	if a.Status != StatusUpcoming {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "appointment_not_upcoming",
			"appointment is %s", a.Status)
	}
	if err := s.appts.UpdateStatus(ctx, appointmentID, StatusUpcoming, to); err != nil {
		return nil, err
	}
	a.Status = to
	return a, nil
}

// ExpireUnpaidBooking cancels a booking that never got paid. It is
// invoked by an external scheduler, never by an internal clock, and only
// takes effect while the appointment is still upcoming and pending.
func (s *Service) ExpireUnpaidBooking(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	unlock := s.locks.Lock(appointmentID.String())
	defer unlock()

	a, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusUpcoming || a.PaymentState != PaymentPending {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "booking_not_expirable",
			"appointment is %s/%s", a.Status, a.PaymentState)
	}
	if err := s.appts.UpdateStatus(ctx, appointmentID, StatusUpcoming, StatusCancelled); err != nil {
		return nil, err
	}
	a.Status = StatusCancelled

	s.log.Info().Str("appointment_id", appointmentID.String()).Msg("unpaid booking expired")
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListPayments(ctx context.Context, appointmentID uuid.UUID) ([]*Payment, error) {
	if _, err := s.appts.GetByID(ctx, appointmentID); err != nil {
		return nil, err
	}
	return s.payments.ListByAppointment(ctx, appointmentID)
}
