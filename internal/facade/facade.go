// Package facade is the single entry point collaborators use to mutate
// and read patient-flow state: one ApplyEvent dispatcher for the inbound
// event contract, plus read-only snapshot queries. Everything it returns
// is a plain serializable value; callers can never reach live aggregate
// state through it.
package facade

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/appointments"
	"github.com/careflow/careflow/internal/domain/beds"
	"github.com/careflow/careflow/internal/domain/registry"
	"github.com/careflow/careflow/internal/domain/tokens"
	"github.com/careflow/careflow/internal/domain/triage"
	"github.com/careflow/careflow/internal/platform/flowerr"
)

// EventType is the closed set of inbound events.
type EventType string

const (
	EventAdmitPatient       EventType = "admit_patient"
	EventChangeTriageStatus EventType = "change_triage_status"
	EventReassignClinician  EventType = "reassign_clinician"
	EventAllocateBed        EventType = "allocate_bed"
	EventDischargeBed       EventType = "discharge_bed"
	EventMarkBedClean       EventType = "mark_bed_clean"
	EventFlagMaintenance    EventType = "flag_maintenance"
	EventBookAppointment    EventType = "book_appointment"
	EventConfirmPayment     EventType = "confirm_payment"
	EventJoinVideoSession   EventType = "join_video_session"
	EventCancelAppointment  EventType = "cancel_appointment"
)

// Event is the envelope collaborators submit. Payload shape depends on
// the type; unknown fields are ignored, missing ones fail validation in
// the owning domain service.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Facade struct {
	triage *triage.Service
	tokens *tokens.Service
	beds   *beds.Service
	reg    *registry.Service
	appts  *appointments.Service
	log    zerolog.Logger
}

func New(triageSvc *triage.Service, tokenSvc *tokens.Service, bedSvc *beds.Service,
	regSvc *registry.Service, apptSvc *appointments.Service, log zerolog.Logger) *Facade {
	return &Facade{
		triage: triageSvc,
		tokens: tokenSvc,
		beds:   bedSvc,
		reg:    regSvc,
		appts:  apptSvc,
		log:    log,
	}
}

func decode(payload json.RawMessage, into any) error {
	if err := json.Unmarshal(payload, into); err != nil {
		return flowerr.E(flowerr.KindValidation, "invalid_event_payload", "undecodable payload: %v", err)
	}
	return nil
}

// ApplyEvent dispatches one inbound event to its owning domain service
// and returns the resulting aggregate snapshot. Each event is
// individually atomic; the facade never chains mutations across
// aggregates.
func (f *Facade) ApplyEvent(ctx context.Context, ev Event) (any, error) {
	switch ev.Type {
	case EventAdmitPatient:
		var e triage.Entry
		if err := decode(ev.Payload, &e); err != nil {
			return nil, err
		}
		if err := f.triage.Admit(ctx, &e); err != nil {
			return nil, err
		}
		return &e, nil

	case EventChangeTriageStatus:
		var p struct {
			EntryID uuid.UUID     `json:"entry_id"`
			Status  triage.Status `json:"status"`
		}
		if err := decode(ev.Payload, &p); err != nil {
			return nil, err
		}
		return f.triage.ChangeStatus(ctx, p.EntryID, p.Status)

	case EventReassignClinician:
		var p struct {
			EntryID     uuid.UUID `json:"entry_id"`
			ClinicianID uuid.UUID `json:"clinician_id"`
		}
		if err := decode(ev.Payload, &p); err != nil {
			return nil, err
		}
		return f.triage.Reassign(ctx, p.EntryID, p.ClinicianID)

	case EventAllocateBed:
		var p struct {
			BedID     uuid.UUID `json:"bed_id"`
			PatientID uuid.UUID `json:"patient_id"`
		}
		if err := decode(ev.Payload, &p); err != nil {
			return nil, err
		}
		return f.beds.Allocate(ctx, p.BedID, p.PatientID)

	case EventDischargeBed:
		var p struct {
			BedID uuid.UUID `json:"bed_id"`
		}
		if err := decode(ev.Payload, &p); err != nil {
			return nil, err
		}
		return f.beds.Discharge(ctx, p.BedID)

	case EventMarkBedClean:
		var p struct {
			BedID uuid.UUID `json:"bed_id"`
		}
		if err := decode(ev.Payload, &p); err != nil {
			return nil, err
		}
		return f.beds.MarkClean(ctx, p.BedID)

	case EventFlagMaintenance:
		var p struct {
			BedID  uuid.UUID `json:"bed_id"`
			Reason string    `json:"reason"`
		}
		if err := decode(ev.Payload, &p); err != nil {
			return nil, err
		}
		return f.beds.FlagMaintenance(ctx, p.BedID, p.Reason)

	case EventBookAppointment:
		var a appointments.Appointment
		if err := decode(ev.Payload, &a); err != nil {
			return nil, err
		}
		if err := f.appts.Book(ctx, &a); err != nil {
			return nil, err
		}
		return &a, nil

	case EventConfirmPayment:
		var p struct {
			PaymentID uuid.UUID                  `json:"payment_id"`
			Outcome   appointments.PaymentStatus `json:"outcome"`
		}
		if err := decode(ev.Payload, &p); err != nil {
			return nil, err
		}
		return f.appts.ConfirmPayment(ctx, p.PaymentID, p.Outcome)

	case EventJoinVideoSession:
		var p struct {
			AppointmentID uuid.UUID `json:"appointment_id"`
		}
		if err := decode(ev.Payload, &p); err != nil {
			return nil, err
		}
		return f.appts.JoinVideoSession(ctx, p.AppointmentID)

	case EventCancelAppointment:
		var p struct {
			AppointmentID uuid.UUID `json:"appointment_id"`
		}
		if err := decode(ev.Payload, &p); err != nil {
			return nil, err
		}
		return f.appts.Cancel(ctx, p.AppointmentID)
	}

	return nil, flowerr.E(flowerr.KindValidation, "unknown_event_type", "unknown event type %q", ev.Type)
}

// GetTriageBoard returns the facility-wide serving order of active
// triage entries.
func (f *Facade) GetTriageBoard(ctx context.Context) ([]*triage.Entry, error) {
	return f.triage.Board(ctx)
}

// GetClinicianQueue returns the clinician's now-serving board for the
// given day.
func (f *Facade) GetClinicianQueue(ctx context.Context, clinicianID uuid.UUID, date time.Time) (*tokens.Board, error) {
	return f.tokens.Board(ctx, clinicianID, date)
}

// GetBedBoard returns beds with their lifecycle state, optionally
// scoped to one ward.
func (f *Facade) GetBedBoard(ctx context.Context, wardID *uuid.UUID, limit, offset int) ([]*registry.Bed, int, error) {
	if wardID != nil {
		return f.reg.ListBedsByWard(ctx, *wardID, limit, offset)
	}
	return f.reg.ListBeds(ctx, limit, offset)
}

func (f *Facade) GetAppointment(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error) {
	return f.appts.Get(ctx, id)
}

func (f *Facade) GetPatientAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*appointments.Appointment, int, error) {
	return f.appts.ListByPatient(ctx, patientID, limit, offset)
}
