package triage

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the entry and fills in its store-assigned sequence.
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// UpdateStatus moves the entry from one status to another. It fails
	// with a conflict when the stored status no longer matches from,
	// which makes the check-then-set race visible to the caller.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	// AssignClinician sets the clinician on a still-waiting entry.
	AssignClinician(ctx context.Context, id uuid.UUID, clinicianID uuid.UUID) error
	// List returns one page of entries in serving order (level rank, then
	// sequence), optionally filtered by status, plus the filtered total.
	// The ordering is global: the page window is cut from the fully
	// ordered set, so a critical arrival surfaces on the first page no
	// matter how many lower-level entries precede it.
	List(ctx context.Context, status Status, limit, offset int) ([]*Entry, int, error)
	// ListActive returns all not-yet-completed entries in serving order.
	ListActive(ctx context.Context) ([]*Entry, error)
}
