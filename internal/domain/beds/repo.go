package beds

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Apply performs the transition as a compare-and-swap on the bed's
	// current status and appends the audit event in the same
	// transaction. It fails with a conflict when the stored status no
	// longer matches t.From, leaving the bed and the audit log
	// untouched.
	Apply(ctx context.Context, t *Transition) error
	// History returns the bed's audit trail, newest first.
	History(ctx context.Context, bedID uuid.UUID, limit, offset int) ([]*AuditEvent, int, error)
}
