// Package beds implements the bed lifecycle state machine over beds
// owned by the resource registry. Beds move between available, occupied,
// maintenance, cleaning and reserved through a closed transition set;
// every move appends an audit event consumed by occupancy and billing
// reporting.
package beds

import (
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/domain/registry"
)

// AuditEvent maps to the append-only bed_audit table. Events are never
// updated or deleted.
type AuditEvent struct {
	ID         uuid.UUID          `db:"id" json:"id"`
	BedID      uuid.UUID          `db:"bed_id" json:"bed_id"`
	FromStatus registry.BedStatus `db:"from_status" json:"from_status"`
	ToStatus   registry.BedStatus `db:"to_status" json:"to_status"`
	PatientID  *uuid.UUID         `db:"patient_id" json:"patient_id,omitempty"`
	Actor      string             `db:"actor" json:"actor"`
	Reason     *string            `db:"reason" json:"reason,omitempty"`
	OccurredAt time.Time          `db:"occurred_at" json:"occurred_at"`
}

// Transition is one requested bed state change: the compare-and-swap
// expectation (From), the target state, and the occupancy fields as they
// should read afterwards. The store applies the row update and the audit
// append atomically.
type Transition struct {
	BedID       uuid.UUID
	From        registry.BedStatus
	To          registry.BedStatus
	PatientID   *uuid.UUID
	ReservedFor *time.Time
	Actor       string
	Reason      *string
}
