package triage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/registry"
	"github.com/careflow/careflow/internal/platform/flowerr"
	"github.com/careflow/careflow/internal/platform/keylock"
)

// CapacityChecker is the slice of the resource registry the queue consults
// at admission. Admission is never blocked by bed shortage; the signal is
// logged for staff attention only.
type CapacityChecker interface {
	WardOccupancy(ctx context.Context) ([]*registry.WardOccupancy, error)
}

type Service struct {
	repo     Repository
	capacity CapacityChecker
	locks    *keylock.KeyLock
	log      zerolog.Logger
}

func NewService(repo Repository, capacity CapacityChecker, log zerolog.Logger) *Service {
	return &Service{repo: repo, capacity: capacity, locks: keylock.New(), log: log}
}

// Admit validates the triage level, assigns the next arrival sequence and
// places the patient at the back of their urgency class.
func (s *Service) Admit(ctx context.Context, e *Entry) error {
	if e.PatientID == uuid.Nil {
		return flowerr.E(flowerr.KindValidation, "invalid_admission", "patient_id is required")
	}
	if e.PatientName == "" {
		return flowerr.E(flowerr.KindValidation, "invalid_admission", "patient_name is required")
	}
	if !e.Level.Valid() {
		return flowerr.E(flowerr.KindValidation, "invalid_triage_level", "unknown triage level %q", e.Level)
	}
	e.Status = StatusWaiting
	if e.ArrivedAt.IsZero() {
		e.ArrivedAt = time.Now()
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return err
	}

	if s.capacity != nil {
		s.warnOnNoBeds(ctx)
	}
	return nil
}

func (s *Service) warnOnNoBeds(ctx context.Context) {
	occ, err := s.capacity.WardOccupancy(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("capacity check failed during admission")
		return
	}
	available := 0
	for _, o := range occ {
		available += o.Available
	}
	if available == 0 {
		s.log.Warn().Msg("admission accepted with no available beds in any ward")
	}
}

// ChangeStatus applies one legal transition to the entry. Illegal moves
// fail and leave the entry untouched; completed entries stay queryable.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, next Status) (*Entry, error) {
	if !next.Valid() {
		return nil, flowerr.E(flowerr.KindValidation, "invalid_triage_status", "unknown status %q", next)
	}

	unlock := s.locks.Lock(id.String())
	defer unlock()

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Status.Valid() {
		return nil, flowerr.E(flowerr.KindCorruptState, "corrupt_triage_entry",
			"entry %s has unknown stored status %q", id, e.Status)
	}
	if !e.Status.CanTransition(next) {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "illegal_triage_transition",
			"cannot move entry from %s to %s", e.Status, next)
	}
	if err := s.repo.UpdateStatus(ctx, id, e.Status, next); err != nil {
		return nil, err
	}
	e.Status = next
	return e, nil
}

// Reassign points a still-waiting entry at a different clinician.
func (s *Service) Reassign(ctx context.Context, id uuid.UUID, clinicianID uuid.UUID) (*Entry, error) {
	if clinicianID == uuid.Nil {
		return nil, flowerr.E(flowerr.KindValidation, "invalid_reassignment", "clinician_id is required")
	}

	unlock := s.locks.Lock(id.String())
	defer unlock()

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusWaiting {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "entry_not_waiting",
			"entry is %s, reassignment requires waiting", e.Status)
	}
	if err := s.repo.AssignClinician(ctx, id, clinicianID); err != nil {
		return nil, err
	}
	e.ClinicianID = &clinicianID
	return e, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns entries in serving order, optionally filtered by status.
// The repository orders globally before cutting the page window; sorting
// a page here would let a critical arrival hide behind a full page of
// minor entries.
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*Entry, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, flowerr.E(flowerr.KindValidation, "invalid_triage_status", "unknown status %q", status)
	}
	return s.repo.List(ctx, status, limit, offset)
}

// Board returns the whole active queue (waiting, in treatment, under
// observation) in serving order, for the facility triage board.
func (s *Service) Board(ctx context.Context) ([]*Entry, error) {
	return s.repo.ListActive(ctx)
}
