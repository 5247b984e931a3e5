package appointments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/flowerr"
)

// -- Mock repositories --

type mockApptRepo struct {
	appts map[uuid.UUID]*Appointment
	slots map[string]bool
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{
		appts: make(map[uuid.UUID]*Appointment),
		slots: make(map[string]bool),
	}
}

func slotKey(clinicianID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s:%d", clinicianID, at.Unix())
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	key := slotKey(a.ClinicianID, a.ScheduledAt)
	if m.slots[key] {
		return flowerr.E(flowerr.KindConflict, "slot_already_taken", "slot already taken")
	}
	m.slots[key] = true
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, flowerr.E(flowerr.KindNotFound, "appointment_not_found", "appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) error {
	a, ok := m.appts[id]
	if !ok {
		return flowerr.E(flowerr.KindNotFound, "appointment_not_found", "appointment not found")
	}
	if a.Status != from {
		return flowerr.E(flowerr.KindConflict, "appointment_modified", "appointment was modified concurrently")
	}
	a.Status = to
	return nil
}

func (m *mockApptRepo) MarkPaid(_ context.Context, id uuid.UUID) error {
	a, ok := m.appts[id]
	if !ok {
		return flowerr.E(flowerr.KindNotFound, "appointment_not_found", "appointment not found")
	}
	if a.PaymentState != PaymentPending || a.Status != StatusUpcoming {
		return flowerr.E(flowerr.KindConflict, "appointment_modified", "appointment is not pending payment")
	}
	a.PaymentState = PaymentPaid
	return nil
}

func (m *mockApptRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

type mockPaymentRepo struct {
	payments map[uuid.UUID]*Payment
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[uuid.UUID]*Payment)}
}

func (m *mockPaymentRepo) Create(_ context.Context, p *Payment) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.payments[p.ID] = p
	return nil
}

func (m *mockPaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, flowerr.E(flowerr.KindNotFound, "payment_not_found", "payment not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepo) Finalize(_ context.Context, id uuid.UUID, outcome PaymentStatus) error {
	p, ok := m.payments[id]
	if !ok {
		return flowerr.E(flowerr.KindNotFound, "payment_not_found", "payment not found")
	}
	if p.Status != PaymentAttemptPending {
		return flowerr.E(flowerr.KindConflict, "payment_finalized", "payment already finalized")
	}
	p.Status = outcome
	return nil
}

func (m *mockPaymentRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*Payment, error) {
	var result []*Payment
	for _, p := range m.payments {
		if p.AppointmentID == appointmentID {
			result = append(result, p)
		}
	}
	return result, nil
}

func newTestService() (*Service, *mockApptRepo, *mockPaymentRepo) {
	appts := newMockApptRepo()
	payments := newMockPaymentRepo()
	return NewService(appts, payments, zerolog.Nop()), appts, payments
}

func book(t *testing.T, svc *Service, modality Modality) *Appointment {
	t.Helper()
	a := &Appointment{
		PatientID:   uuid.New(),
		ClinicianID: uuid.New(),
		ScheduledAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Modality:    modality,
	}
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("book: %v", err)
	}
	return a
}

// -- Booking --

func TestBook_CreatesUpcomingPending(t *testing.T) {
	svc, _, _ := newTestService()
	a := book(t, svc, ModalityVideo)

	if a.Status != StatusUpcoming {
		t.Errorf("status = %s, want upcoming", a.Status)
	}
	if a.PaymentState != PaymentPending {
		t.Errorf("payment state = %s, want pending", a.PaymentState)
	}
}

func TestBook_SameSlotTwiceFails(t *testing.T) {
	svc, _, _ := newTestService()
	clinician := uuid.New()
	slot := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := &Appointment{PatientID: uuid.New(), ClinicianID: clinician, ScheduledAt: slot, Modality: ModalityVideo}
	if err := svc.Book(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	second := &Appointment{PatientID: uuid.New(), ClinicianID: clinician, ScheduledAt: slot, Modality: ModalityInPerson}
	err := svc.Book(context.Background(), second)
	if err == nil {
		t.Fatal("expected error")
	}
	if flowerr.CodeOf(err) != "slot_already_taken" {
		t.Errorf("code = %q", flowerr.CodeOf(err))
	}
	if !flowerr.IsKind(err, flowerr.KindConflict) {
		t.Errorf("kind = %v, want conflict", flowerr.KindOf(err))
	}
}

func TestBook_SameSlotDifferentClinician(t *testing.T) {
	svc, _, _ := newTestService()
	slot := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		a := &Appointment{PatientID: uuid.New(), ClinicianID: uuid.New(), ScheduledAt: slot, Modality: ModalityInPerson}
		if err := svc.Book(context.Background(), a); err != nil {
			t.Fatalf("booking %d: %v", i, err)
		}
	}
}

func TestBook_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	slot := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		a        *Appointment
		wantCode string
	}{
		{"missing patient", &Appointment{ClinicianID: uuid.New(), ScheduledAt: slot, Modality: ModalityVideo}, "invalid_booking"},
		{"missing clinician", &Appointment{PatientID: uuid.New(), ScheduledAt: slot, Modality: ModalityVideo}, "invalid_booking"},
		{"missing slot", &Appointment{PatientID: uuid.New(), ClinicianID: uuid.New(), Modality: ModalityVideo}, "invalid_booking"},
		{"unknown modality", &Appointment{PatientID: uuid.New(), ClinicianID: uuid.New(), ScheduledAt: slot, Modality: "phone"}, "invalid_modality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Book(context.Background(), tt.a)
			if flowerr.CodeOf(err) != tt.wantCode {
				t.Errorf("code = %q, want %q", flowerr.CodeOf(err), tt.wantCode)
			}
		})
	}
}

// -- Payments --

func TestConfirmPayment_SuccessMarksPaid(t *testing.T) {
	svc, appts, _ := newTestService()
	a := book(t, svc, ModalityVideo)

	p, err := svc.InitiatePayment(context.Background(), a.ID, 500)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ConfirmPayment(context.Background(), p.ID, PaymentAttemptSuccess); err != nil {
		t.Fatal(err)
	}
	if appts.appts[a.ID].PaymentState != PaymentPaid {
		t.Errorf("payment state = %s, want paid", appts.appts[a.ID].PaymentState)
	}
}

func TestConfirmPayment_FailureKeepsSlot(t *testing.T) {
	svc, appts, _ := newTestService()
	a := book(t, svc, ModalityVideo)

	p, err := svc.InitiatePayment(context.Background(), a.ID, 500)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ConfirmPayment(context.Background(), p.ID, PaymentAttemptFailed); err != nil {
		t.Fatal(err)
	}

	stored := appts.appts[a.ID]
	if stored.Status != StatusUpcoming || stored.PaymentState != PaymentPending {
		t.Errorf("appointment = %s/%s, want upcoming/pending", stored.Status, stored.PaymentState)
	}

	// The slot must still belong to this booking.
	rival := &Appointment{
		PatientID:   uuid.New(),
		ClinicianID: a.ClinicianID,
		ScheduledAt: a.ScheduledAt,
		Modality:    ModalityVideo,
	}
	if err := svc.Book(context.Background(), rival); flowerr.CodeOf(err) != "slot_already_taken" {
		t.Errorf("rival booking: code = %q, want slot_already_taken", flowerr.CodeOf(err))
	}
}

func TestConfirmPayment_TerminalRowsAreImmutable(t *testing.T) {
	svc, _, _ := newTestService()
	a := book(t, svc, ModalityVideo)

	p, err := svc.InitiatePayment(context.Background(), a.ID, 500)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ConfirmPayment(context.Background(), p.ID, PaymentAttemptFailed); err != nil {
		t.Fatal(err)
	}

	_, err = svc.ConfirmPayment(context.Background(), p.ID, PaymentAttemptSuccess)
	if flowerr.CodeOf(err) != "payment_finalized" {
		t.Errorf("code = %q, want payment_finalized", flowerr.CodeOf(err))
	}

	// Retry is a new row.
	retry, err := svc.InitiatePayment(context.Background(), a.ID, 500)
	if err != nil {
		t.Fatal(err)
	}
	if retry.ID == p.ID {
		t.Error("retry must create a new payment row")
	}
	if _, err := svc.ConfirmPayment(context.Background(), retry.ID, PaymentAttemptSuccess); err != nil {
		t.Fatal(err)
	}

	payments, err := svc.ListPayments(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(payments) != 2 {
		t.Errorf("payments = %d, want 2", len(payments))
	}
}

func TestInitiatePayment_AlreadyPaid(t *testing.T) {
	svc, _, _ := newTestService()
	a := book(t, svc, ModalityVideo)

	p, _ := svc.InitiatePayment(context.Background(), a.ID, 500)
	if _, err := svc.ConfirmPayment(context.Background(), p.ID, PaymentAttemptSuccess); err != nil {
		t.Fatal(err)
	}

	_, err := svc.InitiatePayment(context.Background(), a.ID, 500)
	if flowerr.CodeOf(err) != "already_paid" {
		t.Errorf("code = %q", flowerr.CodeOf(err))
	}
}

func TestConfirmPayment_RejectsNonTerminalOutcome(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.ConfirmPayment(context.Background(), uuid.New(), PaymentAttemptPending)
	if flowerr.CodeOf(err) != "invalid_payment_outcome" {
		t.Errorf("code = %q", flowerr.CodeOf(err))
	}
}

// -- Video session gate --

func TestJoinVideoSession_Gate(t *testing.T) {
	tests := []struct {
		name     string
		modality Modality
		status   Status
		payment  PaymentState
		wantCode string
	}{
		{"video upcoming paid", ModalityVideo, StatusUpcoming, PaymentPaid, ""},
		{"video upcoming unpaid", ModalityVideo, StatusUpcoming, PaymentPending, "payment_required"},
		{"video completed paid", ModalityVideo, StatusCompleted, PaymentPaid, "session_not_joinable"},
		{"video cancelled paid", ModalityVideo, StatusCancelled, PaymentPaid, "session_not_joinable"},
		{"in_person upcoming paid", ModalityInPerson, StatusUpcoming, PaymentPaid, "session_not_joinable"},
		{"in_person upcoming unpaid", ModalityInPerson, StatusUpcoming, PaymentPending, "session_not_joinable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, appts, _ := newTestService()
			a := book(t, svc, tt.modality)
			appts.appts[a.ID].Status = tt.status
			appts.appts[a.ID].PaymentState = tt.payment

			_, err := svc.JoinVideoSession(context.Background(), a.ID)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("join should be permitted: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("join should be denied")
			}
			if flowerr.CodeOf(err) != tt.wantCode {
				t.Errorf("code = %q, want %q", flowerr.CodeOf(err), tt.wantCode)
			}
			if !flowerr.IsKind(err, flowerr.KindGating) {
				t.Errorf("kind = %v, want gating", flowerr.KindOf(err))
			}
		})
	}
}

func TestScenario_BookPayJoinComplete(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	a := book(t, svc, ModalityVideo)

	if _, err := svc.JoinVideoSession(ctx, a.ID); flowerr.CodeOf(err) != "payment_required" {
		t.Fatalf("join before payment: code = %q", flowerr.CodeOf(err))
	}

	p, err := svc.InitiatePayment(ctx, a.ID, 750)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ConfirmPayment(ctx, p.ID, PaymentAttemptSuccess); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.JoinVideoSession(ctx, a.ID); err != nil {
		t.Fatalf("join after payment: %v", err)
	}

	if _, err := svc.Complete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.JoinVideoSession(ctx, a.ID); flowerr.CodeOf(err) != "session_not_joinable" {
		t.Errorf("join after complete: code = %q, want session_not_joinable", flowerr.CodeOf(err))
	}
}

// -- Lifecycle --

func TestCompleteAndCancel_OnlyFromUpcoming(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		svc, appts, _ := newTestService()
		a := book(t, svc, ModalityInPerson)
		appts.appts[a.ID].Status = terminal

		if _, err := svc.Complete(context.Background(), a.ID); flowerr.CodeOf(err) != "appointment_not_upcoming" {
			t.Errorf("complete from %s: code = %q", terminal, flowerr.CodeOf(err))
		}
		if _, err := svc.Cancel(context.Background(), a.ID); flowerr.CodeOf(err) != "appointment_not_upcoming" {
			t.Errorf("cancel from %s: code = %q", terminal, flowerr.CodeOf(err))
		}
	}
}

func TestClose_CorruptStoredStatus(t *testing.T) {
	svc, appts, _ := newTestService()
	a := book(t, svc, ModalityInPerson)
	appts.appts[a.ID].Status = "limbo"

	_, err := svc.Complete(context.Background(), a.ID)
	if !flowerr.IsKind(err, flowerr.KindCorruptState) {
		t.Errorf("kind = %v, want corrupt state", flowerr.KindOf(err))
	}
}

// -- Expiry --

func TestExpireUnpaidBooking(t *testing.T) {
	svc, appts, _ := newTestService()
	a := book(t, svc, ModalityVideo)

	got, err := svc.ExpireUnpaidBooking(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if appts.appts[a.ID].Status != StatusCancelled {
		t.Error("expiry not persisted")
	}
}

func TestExpireUnpaidBooking_PaidBookingSurvives(t *testing.T) {
	svc, appts, _ := newTestService()
	a := book(t, svc, ModalityVideo)
	appts.appts[a.ID].PaymentState = PaymentPaid

	_, err := svc.ExpireUnpaidBooking(context.Background(), a.ID)
	if flowerr.CodeOf(err) != "booking_not_expirable" {
		t.Errorf("code = %q", flowerr.CodeOf(err))
	}
	if appts.appts[a.ID].Status != StatusUpcoming {
		t.Error("paid booking must not be expired")
	}
}
