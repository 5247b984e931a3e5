package beds

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
	"github.com/careflow/careflow/internal/platform/flowerr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// Apply runs the row update and the audit append in one transaction so a
// transition is either fully recorded or not at all.
func (r *repoPG) Apply(ctx context.Context, t *Transition) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		c := db.ConnFromContext(ctx)

		tag, err := c.Exec(ctx, `
			UPDATE bed SET status = $3, patient_id = $4, reserved_for = $5, updated_at = now()
			WHERE id = $1 AND status = $2`,
			t.BedID, t.From, t.To, t.PatientID, t.ReservedFor)
		if err != nil {
			return fmt.Errorf("update bed status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return flowerr.E(flowerr.KindConflict, "bed_modified",
				"bed %s is no longer %s", t.BedID, t.From)
		}

		_, err = c.Exec(ctx, `
			INSERT INTO bed_audit (id, bed_id, from_status, to_status, patient_id, actor, reason)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			uuid.New(), t.BedID, t.From, t.To, t.PatientID, t.Actor, t.Reason)
		if err != nil {
			return fmt.Errorf("append bed audit: %w", err)
		}
		return nil
	})
}

func (r *repoPG) History(ctx context.Context, bedID uuid.UUID, limit, offset int) ([]*AuditEvent, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bed_audit WHERE bed_id = $1`, bedID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bed audit: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, bed_id, from_status, to_status, patient_id, actor, reason, occurred_at
		FROM bed_audit WHERE bed_id = $1
		ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`, bedID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bed audit: %w", err)
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		var ev AuditEvent
		if err := rows.Scan(&ev.ID, &ev.BedID, &ev.FromStatus, &ev.ToStatus, &ev.PatientID,
			&ev.Actor, &ev.Reason, &ev.OccurredAt); err != nil {
			return nil, 0, err
		}
		events = append(events, &ev)
	}
	return events, total, rows.Err()
}
