// Package appointments implements booking, the payment gate and the
// video-session gate. Slot contention is settled by the database: a
// unique index on (clinician, slot time) makes the second concurrent
// booking lose. Payments are append-only; a failed payment is retried
// with a new row, never by editing the old one.
package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Modality is the closed set of consultation forms.
type Modality string

const (
	ModalityInPerson Modality = "in_person"
	ModalityVideo    Modality = "video"
)

// Valid reports whether m is one of the known modalities.
func (m Modality) Valid() bool {
	switch m {
	case ModalityInPerson, ModalityVideo:
		return true
	}
	return false
}

// Status is the closed set of appointment lifecycle states. completed
// and cancelled are terminal; appointments are archived, never deleted.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known appointment states.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// PaymentState is the appointment's payment sub-state. It moves from
// pending to paid exactly once and never back.
type PaymentState string

const (
	PaymentPending PaymentState = "pending"
	PaymentPaid    PaymentState = "paid"
)

// PaymentStatus is the state of one payment attempt. success and failed
// are terminal; a retry creates a new Payment row.
type PaymentStatus string

const (
	PaymentAttemptPending PaymentStatus = "pending"
	PaymentAttemptSuccess PaymentStatus = "success"
	PaymentAttemptFailed  PaymentStatus = "failed"
)

// Terminal reports whether the attempt has reached a final outcome.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentAttemptSuccess || s == PaymentAttemptFailed
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	PatientID    uuid.UUID    `db:"patient_id" json:"patient_id"`
	ClinicianID  uuid.UUID    `db:"clinician_id" json:"clinician_id"`
	ScheduledAt  time.Time    `db:"scheduled_at" json:"scheduled_at"`
	Modality     Modality     `db:"modality" json:"modality"`
	PaymentState PaymentState `db:"payment_state" json:"payment_state"`
	Status       Status       `db:"status" json:"status"`
	Reason       *string      `db:"reason" json:"reason,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Payment maps to the payment table. Rows are immutable once terminal.
type Payment struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	AppointmentID uuid.UUID     `db:"appointment_id" json:"appointment_id"`
	Amount        float64       `db:"amount" json:"amount"`
	Status        PaymentStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
