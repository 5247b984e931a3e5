package tokens

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Lane is the closed set of token-board groupings. Lanes decide serving
// order within one clinician's line; they are distinct from triage
// levels, which rank clinical urgency across the whole facility.
type Lane string

const (
	LaneEmergency Lane = "emergency"
	LanePriority  Lane = "priority"
	LaneRegular   Lane = "regular"
)

// Valid reports whether l is one of the known lanes.
func (l Lane) Valid() bool {
	switch l {
	case LaneEmergency, LanePriority, LaneRegular:
		return true
	}
	return false
}

// Precedence maps a lane to its serving precedence: emergency=0,
// priority=1, regular=2. Lane precedence always wins over token number.
func (l Lane) Precedence() int {
	switch l {
	case LaneEmergency:
		return 0
	case LanePriority:
		return 1
	default:
		return 2
	}
}

// Status is the closed set of states a token moves through.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusWithDoctor Status = "with_doctor"
	StatusDone       Status = "done"
	StatusSkipped    Status = "skipped"
)

// Valid reports whether s is one of the known token states.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusWithDoctor, StatusDone, StatusSkipped:
		return true
	}
	return false
}

// Token maps to the queue_token table. Number is assigned by the store
// from a per-(clinician, service date) counter and is strictly
// increasing regardless of lane; lane only affects serving order.
type Token struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClinicianID uuid.UUID `db:"clinician_id" json:"clinician_id"`
	ServiceDate time.Time `db:"service_date" json:"service_date"`
	Number      int       `db:"number" json:"number"`
	Lane        Lane      `db:"lane" json:"lane"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Board is the public "now serving" snapshot for one clinician's day.
type Board struct {
	ClinicianID uuid.UUID `json:"clinician_id"`
	ServiceDate time.Time `json:"service_date"`
	Serving     *Token    `json:"serving"`
	Waiting     []*Token  `json:"waiting"`
}

// ServiceDay normalizes t to the UTC calendar day tokens are issued
// against. Counters reset per day because numbering is per (clinician,
// service date).
func ServiceDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SortTokens orders tokens in place by (lane precedence, number). The
// sort is stable, so insertion order disambiguates tokens that somehow
// share a number within a lane.
func SortTokens(toks []*Token) {
	sort.SliceStable(toks, func(i, j int) bool {
		if toks[i].Lane.Precedence() != toks[j].Lane.Precedence() {
			return toks[i].Lane.Precedence() < toks[j].Lane.Precedence()
		}
		return toks[i].Number < toks[j].Number
	})
}
