package registry

import (
	"context"

	"github.com/google/uuid"
)

type WardRepository interface {
	Create(ctx context.Context, w *Ward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ward, error)
	List(ctx context.Context, limit, offset int) ([]*Ward, int, error)
}

type BedRepository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	List(ctx context.Context, limit, offset int) ([]*Bed, int, error)
	ListByWard(ctx context.Context, wardID uuid.UUID, limit, offset int) ([]*Bed, int, error)
	Occupancy(ctx context.Context) ([]*WardOccupancy, error)
}

type ClinicianRepository interface {
	Create(ctx context.Context, c *Clinician) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinician, error)
	List(ctx context.Context, limit, offset int) ([]*Clinician, int, error)
}
