package registry

import (
	"time"

	"github.com/google/uuid"
)

// WardType classifies a ward for capacity and billing purposes.
type WardType string

const (
	WardGeneral   WardType = "general"
	WardICU       WardType = "icu"
	WardEmergency WardType = "emergency"
	WardPrivate   WardType = "private"
)

// Valid reports whether w is one of the known ward types.
func (w WardType) Valid() bool {
	switch w {
	case WardGeneral, WardICU, WardEmergency, WardPrivate:
		return true
	}
	return false
}

// Ward maps to the ward table.
type Ward struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Type        WardType  `db:"ward_type" json:"ward_type"`
	DailyCharge float64   `db:"daily_charge" json:"daily_charge"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// BedStatus is the closed set of states a bed can be in. A bed is never
// deleted, only re-flagged.
type BedStatus string

const (
	BedAvailable   BedStatus = "available"
	BedOccupied    BedStatus = "occupied"
	BedMaintenance BedStatus = "maintenance"
	BedCleaning    BedStatus = "cleaning"
	BedReserved    BedStatus = "reserved"
)

// Valid reports whether s is one of the known bed states.
func (s BedStatus) Valid() bool {
	switch s {
	case BedAvailable, BedOccupied, BedMaintenance, BedCleaning, BedReserved:
		return true
	}
	return false
}

// Bed maps to the bed table. Status and occupancy fields are mutated only
// through the bed lifecycle state machine.
type Bed struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	WardID      uuid.UUID  `db:"ward_id" json:"ward_id"`
	Number      string     `db:"bed_number" json:"bed_number"`
	Location    *string    `db:"location" json:"location,omitempty"`
	Status      BedStatus  `db:"status" json:"status"`
	PatientID   *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	ReservedFor *time.Time `db:"reserved_for" json:"reserved_for,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Clinician maps to the clinician table.
type Clinician struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Specialty *string   `db:"specialty" json:"specialty,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WardOccupancy is a per-ward bed count snapshot used for capacity checks
// and the bed board summary.
type WardOccupancy struct {
	WardID      uuid.UUID `json:"ward_id"`
	WardName    string    `json:"ward_name"`
	Total       int       `json:"total"`
	Available   int       `json:"available"`
	Occupied    int       `json:"occupied"`
	Maintenance int       `json:"maintenance"`
	Cleaning    int       `json:"cleaning"`
	Reserved    int       `json:"reserved"`
}
