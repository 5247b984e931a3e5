package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/cache"
	"github.com/careflow/careflow/internal/platform/flowerr"
	"github.com/careflow/careflow/internal/platform/keylock"
)

// boardTTL keeps the public board fresh enough for a waiting-room
// display while absorbing refresh storms.
const boardTTL = 5 * time.Second

const waitingListLimit = 20

type Service struct {
	repo  Repository
	cache *cache.Client
	locks *keylock.KeyLock
	log   zerolog.Logger
}

func NewService(repo Repository, c *cache.Client, log zerolog.Logger) *Service {
	return &Service{repo: repo, cache: c, locks: keylock.New(), log: log}
}

func queueKey(clinicianID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s:%s", clinicianID, date.Format("2006-01-02"))
}

func boardCacheKey(clinicianID uuid.UUID, date time.Time) string {
	return "tokens:board:" + queueKey(clinicianID, date)
}

// Enqueue issues the next token in the clinician's line for the day.
// Numbering is shared across lanes; the lane only decides serving order.
func (s *Service) Enqueue(ctx context.Context, t *Token) error {
	if t.ClinicianID == uuid.Nil {
		return flowerr.E(flowerr.KindValidation, "invalid_token", "clinician_id is required")
	}
	if t.PatientID == uuid.Nil {
		return flowerr.E(flowerr.KindValidation, "invalid_token", "patient_id is required")
	}
	if t.PatientName == "" {
		return flowerr.E(flowerr.KindValidation, "invalid_token", "patient_name is required")
	}
	if !t.Lane.Valid() {
		return flowerr.E(flowerr.KindValidation, "invalid_lane", "unknown lane %q", t.Lane)
	}
	if t.ServiceDate.IsZero() {
		t.ServiceDate = time.Now()
	}
	t.ServiceDate = ServiceDay(t.ServiceDate)
	t.Status = StatusWaiting

	if err := s.repo.Create(ctx, t); err != nil {
		return err
	}
	s.cache.Delete(ctx, boardCacheKey(t.ClinicianID, t.ServiceDate))
	return nil
}

// Advance finishes the currently served patient and calls in the
// highest-precedence waiting token. The step is serialized per
// (clinician, day), so two desks advancing at once cannot call in two
// patients to the same chair.
func (s *Service) Advance(ctx context.Context, clinicianID uuid.UUID, date time.Time) (*Token, error) {
	date = ServiceDay(date)

	unlock := s.locks.Lock(queueKey(clinicianID, date))
	defer unlock()

	serving, err := s.repo.CurrentlyServing(ctx, clinicianID, date)
	if err != nil {
		return nil, err
	}
	if serving != nil {
		if err := s.repo.UpdateStatus(ctx, serving.ID, StatusWithDoctor, StatusDone); err != nil {
			return nil, err
		}
	}

	waiting, err := s.repo.ListWaiting(ctx, clinicianID, date, 1)
	if err != nil {
		return nil, err
	}
	if len(waiting) == 0 {
		s.cache.Delete(ctx, boardCacheKey(clinicianID, date))
		return nil, flowerr.E(flowerr.KindNotFound, "queue_empty",
			"no waiting tokens for clinician %s", clinicianID)
	}

	next := waiting[0]
	if err := s.repo.UpdateStatus(ctx, next.ID, StatusWaiting, StatusWithDoctor); err != nil {
		return nil, err
	}
	next.Status = StatusWithDoctor

	s.cache.Delete(ctx, boardCacheKey(clinicianID, date))
	return next, nil
}

// Skip marks a waiting token skipped, for patients absent when called.
// Skipped tokens keep their number; re-joining means a new token.
func (s *Service) Skip(ctx context.Context, id uuid.UUID) (*Token, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(queueKey(t.ClinicianID, t.ServiceDate))
	defer unlock()

	if t.Status != StatusWaiting {
		return nil, flowerr.E(flowerr.KindIllegalTransition, "token_not_waiting",
			"token is %s, skip requires waiting", t.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusWaiting, StatusSkipped); err != nil {
		return nil, err
	}
	t.Status = StatusSkipped

	s.cache.Delete(ctx, boardCacheKey(t.ClinicianID, t.ServiceDate))
	return t, nil
}

func (s *Service) CurrentlyServing(ctx context.Context, clinicianID uuid.UUID, date time.Time) (*Token, error) {
	return s.repo.CurrentlyServing(ctx, clinicianID, ServiceDay(date))
}

func (s *Service) WaitingList(ctx context.Context, clinicianID uuid.UUID, date time.Time, limit int) ([]*Token, error) {
	if limit <= 0 || limit > waitingListLimit {
		limit = waitingListLimit
	}
	return s.repo.ListWaiting(ctx, clinicianID, ServiceDay(date), limit)
}

// Board returns the public now-serving snapshot for the clinician's day.
// Snapshots are served from Redis when available and recomputed from
// Postgres on miss; the cache is never the source of truth.
func (s *Service) Board(ctx context.Context, clinicianID uuid.UUID, date time.Time) (*Board, error) {
	date = ServiceDay(date)
	key := boardCacheKey(clinicianID, date)

	if b, ok := s.cache.Get(ctx, key); ok {
		var board Board
		if err := json.Unmarshal(b, &board); err == nil {
			return &board, nil
		}
		s.log.Warn().Str("key", key).Msg("discarding undecodable cached board")
	}

	serving, err := s.repo.CurrentlyServing(ctx, clinicianID, date)
	if err != nil {
		return nil, err
	}
	waiting, err := s.repo.ListWaiting(ctx, clinicianID, date, waitingListLimit)
	if err != nil {
		return nil, err
	}

	board := &Board{ClinicianID: clinicianID, ServiceDate: date, Serving: serving, Waiting: waiting}
	if b, err := json.Marshal(board); err == nil {
		s.cache.Set(ctx, key, b, boardTTL)
	}
	return board, nil
}
