package triage

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Level is the closed set of clinical urgency classes. Lower rank is
// served first.
type Level string

const (
	LevelCritical Level = "critical"
	LevelUrgent   Level = "urgent"
	LevelModerate Level = "moderate"
	LevelMinor    Level = "minor"
)

// Valid reports whether l is one of the known triage levels.
func (l Level) Valid() bool {
	switch l {
	case LevelCritical, LevelUrgent, LevelModerate, LevelMinor:
		return true
	}
	return false
}

// Rank maps a level to its serving precedence: critical=0 .. minor=3.
func (l Level) Rank() int {
	switch l {
	case LevelCritical:
		return 0
	case LevelUrgent:
		return 1
	case LevelModerate:
		return 2
	default:
		return 3
	}
}

// Status is the closed set of states a triage entry moves through.
// Entries are never removed; discharge and admission are soft-completes.
type Status string

const (
	StatusWaiting          Status = "waiting"
	StatusInTreatment      Status = "in_treatment"
	StatusUnderObservation Status = "under_observation"
	StatusDischarged       Status = "discharged"
	StatusAdmitted         Status = "admitted"
)

// Valid reports whether s is one of the known entry states.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusInTreatment, StatusUnderObservation, StatusDischarged, StatusAdmitted:
		return true
	}
	return false
}

var statusTransitions = map[Status][]Status{
	StatusWaiting:          {StatusInTreatment, StatusUnderObservation},
	StatusInTreatment:      {StatusUnderObservation, StatusDischarged, StatusAdmitted},
	StatusUnderObservation: {StatusDischarged, StatusAdmitted, StatusInTreatment},
	StatusDischarged:       nil,
	StatusAdmitted:         nil,
}

// CanTransition reports whether the move from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, t := range statusTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Vitals is the snapshot recorded at admission.
type Vitals struct {
	HeartRate        *int     `db:"heart_rate" json:"heart_rate,omitempty"`
	BloodPressureSys *int     `db:"blood_pressure_sys" json:"blood_pressure_sys,omitempty"`
	BloodPressureDia *int     `db:"blood_pressure_dia" json:"blood_pressure_dia,omitempty"`
	Temperature      *float64 `db:"temperature" json:"temperature,omitempty"`
	OxygenSaturation *int     `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
}

// Entry maps to the triage_entry table. Sequence is assigned by the store
// at admission and is never reused; ordering is always computed from
// (level rank, sequence), never stored.
type Entry struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName string     `db:"patient_name" json:"patient_name"`
	Level       Level      `db:"triage_level" json:"triage_level"`
	Status      Status     `db:"status" json:"status"`
	Sequence    int64      `db:"sequence" json:"sequence"`
	ClinicianID *uuid.UUID `db:"clinician_id" json:"clinician_id,omitempty"`
	Complaint   *string    `db:"complaint" json:"complaint,omitempty"`
	Vitals      Vitals     `json:"vitals"`
	ArrivedAt   time.Time  `db:"arrived_at" json:"arrived_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// SortEntries orders entries in place by (level rank, sequence). The sort
// is stable, so entries that somehow share a sequence keep insertion
// order. Given the same entry set it always yields the same output.
func SortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Level.Rank() != entries[j].Level.Rank() {
			return entries[i].Level.Rank() < entries[j].Level.Rank()
		}
		return entries[i].Sequence < entries[j].Sequence
	})
}
