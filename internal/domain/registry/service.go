package registry

import (
	"context"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/flowerr"
)

type Service struct {
	wards      WardRepository
	beds       BedRepository
	clinicians ClinicianRepository
}

func NewService(wards WardRepository, beds BedRepository, clinicians ClinicianRepository) *Service {
	return &Service{wards: wards, beds: beds, clinicians: clinicians}
}

func (s *Service) RegisterWard(ctx context.Context, w *Ward) error {
	if w.Name == "" {
		return flowerr.E(flowerr.KindValidation, "invalid_ward", "name is required")
	}
	if !w.Type.Valid() {
		return flowerr.E(flowerr.KindValidation, "invalid_ward_type", "unknown ward type %q", w.Type)
	}
	if w.DailyCharge < 0 {
		return flowerr.E(flowerr.KindValidation, "invalid_ward", "daily_charge must not be negative")
	}
	return s.wards.Create(ctx, w)
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return s.wards.GetByID(ctx, id)
}

func (s *Service) ListWards(ctx context.Context, limit, offset int) ([]*Ward, int, error) {
	return s.wards.List(ctx, limit, offset)
}

// RegisterBed adds a bed to a ward. New beds always start available.
func (s *Service) RegisterBed(ctx context.Context, b *Bed) error {
	if b.WardID == uuid.Nil {
		return flowerr.E(flowerr.KindValidation, "invalid_bed", "ward_id is required")
	}
	if b.Number == "" {
		return flowerr.E(flowerr.KindValidation, "invalid_bed", "bed_number is required")
	}
	if _, err := s.wards.GetByID(ctx, b.WardID); err != nil {
		return err
	}
	b.Status = BedAvailable
	b.PatientID = nil
	b.ReservedFor = nil
	return s.beds.Create(ctx, b)
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.beds.GetByID(ctx, id)
}

func (s *Service) ListBeds(ctx context.Context, limit, offset int) ([]*Bed, int, error) {
	return s.beds.List(ctx, limit, offset)
}

func (s *Service) ListBedsByWard(ctx context.Context, wardID uuid.UUID, limit, offset int) ([]*Bed, int, error) {
	return s.beds.ListByWard(ctx, wardID, limit, offset)
}

func (s *Service) WardOccupancy(ctx context.Context) ([]*WardOccupancy, error) {
	return s.beds.Occupancy(ctx)
}

func (s *Service) RegisterClinician(ctx context.Context, c *Clinician) error {
	if c.Name == "" {
		return flowerr.E(flowerr.KindValidation, "invalid_clinician", "name is required")
	}
	c.Active = true
	return s.clinicians.Create(ctx, c)
}

func (s *Service) GetClinician(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	return s.clinicians.GetByID(ctx, id)
}

func (s *Service) ListClinicians(ctx context.Context, limit, offset int) ([]*Clinician, int, error) {
	return s.clinicians.List(ctx, limit, offset)
}
