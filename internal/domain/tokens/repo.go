package tokens

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the token and fills in its store-assigned number,
	// drawn atomically from the (clinician, service date) counter.
	Create(ctx context.Context, t *Token) error
	GetByID(ctx context.Context, id uuid.UUID) (*Token, error)
	// UpdateStatus moves the token from one status to another. It fails
	// with a conflict when the stored status no longer matches from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	// CurrentlyServing returns the with_doctor token for the clinician's
	// day, or nil when nobody is being served. An empty chair is a
	// normal board state, not an error.
	CurrentlyServing(ctx context.Context, clinicianID uuid.UUID, date time.Time) (*Token, error)
	// ListWaiting returns waiting tokens in serving order: lane
	// precedence first, then ascending number, then insertion order.
	ListWaiting(ctx context.Context, clinicianID uuid.UUID, date time.Time, limit int) ([]*Token, error)
}
