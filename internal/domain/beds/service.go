package beds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/registry"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/internal/platform/flowerr"
	"github.com/careflow/careflow/internal/platform/keylock"
)

type Service struct {
	beds  registry.BedRepository
	repo  Repository
	locks *keylock.KeyLock
	log   zerolog.Logger
}

func NewService(beds registry.BedRepository, repo Repository, log zerolog.Logger) *Service {
	return &Service{beds: beds, repo: repo, locks: keylock.New(), log: log}
}

func actor(ctx context.Context) string {
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		return uid
	}
	return "system"
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) apply(ctx context.Context, bed *registry.Bed, t *Transition) (*registry.Bed, error) {
	t.Actor = actor(ctx)
	if err := s.repo.Apply(ctx, t); err != nil {
		return nil, err
	}
	bed.Status = t.To
	bed.PatientID = t.PatientID
	bed.ReservedFor = t.ReservedFor

	s.log.Info().
		Str("bed_id", bed.ID.String()).
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Str("actor", t.Actor).
		Msg("bed transition")
	return bed, nil
}

// Allocate puts a patient in an available bed. A reserved bed allocates
// only on or after its reservation date; the reservation is consumed by
// the allocation.
func (s *Service) Allocate(ctx context.Context, bedID, patientID uuid.UUID) (*registry.Bed, error) {
	if patientID == uuid.Nil {
		return nil, flowerr.E(flowerr.KindValidation, "invalid_allocation", "patient_id is required")
	}

	unlock := s.locks.Lock(bedID.String())
	defer unlock()

	bed, err := s.beds.GetByID(ctx, bedID)
	if err != nil {
		return nil, err
	}
	switch bed.Status {
	case registry.BedAvailable:
	case registry.BedReserved:
		if bed.ReservedFor != nil && day(time.Now()).Before(day(*bed.ReservedFor)) {
			return nil, flowerr.E(flowerr.KindGating, "bed_reserved",
				"bed is reserved for %s", bed.ReservedFor.Format("2006-01-02"))
		}
	default:
		return nil, flowerr.E(flowerr.KindIllegalTransition, "bed_not_available",
			"bed is %s", bed.Status)
	}

	return s.apply(ctx, bed, &Transition{
		BedID:     bedID,
		From:      bed.Status,
		To:        registry.BedOccupied,
		PatientID: &patientID,
	})
}

// Discharge releases an occupied bed into cleaning. The last occupant
// stays on the row until MarkClean so billing-duration reporting can
// attribute the cleaning window; the audit event carries the discharge
// timestamp.
func (s *Service) Discharge(ctx context.Context, bedID uuid.UUID) (*registry.Bed, error) {
	unlock := s.locks.Lock(bedID.String())
	defer unlock()

	bed, err := s.beds.GetByID(ctx, bedID)
	if err != nil {
		return nil, err
	}
	if bed.Status != registry.BedOccupied {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "bed_not_occupied",
			"bed is %s", bed.Status)
	}

	return s.apply(ctx, bed, &Transition{
		BedID:     bedID,
		From:      registry.BedOccupied,
		To:        registry.BedCleaning,
		PatientID: bed.PatientID,
	})
}

func (s *Service) MarkClean(ctx context.Context, bedID uuid.UUID) (*registry.Bed, error) {
	unlock := s.locks.Lock(bedID.String())
	defer unlock()

	bed, err := s.beds.GetByID(ctx, bedID)
	if err != nil {
		return nil, err
	}
	if bed.Status != registry.BedCleaning {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "illegal_bed_transition",
			"cannot mark a %s bed clean", bed.Status)
	}

	return s.apply(ctx, bed, &Transition{
		BedID: bedID,
		From:  registry.BedCleaning,
		To:    registry.BedAvailable,
	})
}

func (s *Service) FlagMaintenance(ctx context.Context, bedID uuid.UUID, reason string) (*registry.Bed, error) {
	unlock := s.locks.Lock(bedID.String())
	defer unlock()

	bed, err := s.beds.GetByID(ctx, bedID)
	if err != nil {
		return nil, err
	}
	if bed.Status != registry.BedAvailable && bed.Status != registry.BedCleaning {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "illegal_bed_transition",
			"cannot flag a %s bed for maintenance", bed.Status)
	}

	t := &Transition{BedID: bedID, From: bed.Status, To: registry.BedMaintenance}
	if reason != "" {
		t.Reason = &reason
	}
	return s.apply(ctx, bed, t)
}

func (s *Service) CompleteMaintenance(ctx context.Context, bedID uuid.UUID) (*registry.Bed, error) {
	unlock := s.locks.Lock(bedID.String())
	defer unlock()

	bed, err := s.beds.GetByID(ctx, bedID)
	if err != nil {
		return nil, err
	}
	if bed.Status != registry.BedMaintenance {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "illegal_bed_transition",
			"cannot complete maintenance on a %s bed", bed.Status)
	}

	return s.apply(ctx, bed, &Transition{
		BedID: bedID,
		From:  registry.BedMaintenance,
		To:    registry.BedAvailable,
	})
}

// Reserve holds an available bed for a future date.
func (s *Service) Reserve(ctx context.Context, bedID uuid.UUID, forDate time.Time) (*registry.Bed, error) {
	if forDate.IsZero() {
		return nil, flowerr.E(flowerr.KindValidation, "invalid_reservation", "reservation date is required")
	}
	if day(forDate).Before(day(time.Now())) {
		return nil, flowerr.E(flowerr.KindValidation, "invalid_reservation", "reservation date is in the past")
	}

	unlock := s.locks.Lock(bedID.String())
	defer unlock()

	bed, err := s.beds.GetByID(ctx, bedID)
	if err != nil {
		return nil, err
	}
	if bed.Status != registry.BedAvailable {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "bed_not_available",
			"bed is %s", bed.Status)
	}

	d := day(forDate)
	return s.apply(ctx, bed, &Transition{
		BedID:       bedID,
		From:        registry.BedAvailable,
		To:          registry.BedReserved,
		ReservedFor: &d,
	})
}

func (s *Service) CancelReservation(ctx context.Context, bedID uuid.UUID) (*registry.Bed, error) {
	unlock := s.locks.Lock(bedID.String())
	defer unlock()

	bed, err := s.beds.GetByID(ctx, bedID)
	if err != nil {
		return nil, err
	}
	if bed.Status != registry.BedReserved {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "illegal_bed_transition",
			"cannot cancel reservation on a %s bed", bed.Status)
	}

	return s.apply(ctx, bed, &Transition{
		BedID: bedID,
		From:  registry.BedReserved,
		To:    registry.BedAvailable,
	})
}

// History returns the bed's audit trail after checking the bed exists.
func (s *Service) History(ctx context.Context, bedID uuid.UUID, limit, offset int) ([]*AuditEvent, int, error) {
	if _, err := s.beds.GetByID(ctx, bedID); err != nil {
		return nil, 0, err
	}
	return s.repo.History(ctx, bedID, limit, offset)
}
