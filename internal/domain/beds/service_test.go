package beds

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/registry"
	"github.com/careflow/careflow/internal/platform/flowerr"
)

// -- Mock stores --

// mockBedStore and mockRepo share one mutex so concurrent tests see the
// same serialization the database gives the real repositories.
type mockBedStore struct {
	mu   sync.Mutex
	beds map[uuid.UUID]*registry.Bed
}

func newMockBedStore() *mockBedStore {
	return &mockBedStore{beds: make(map[uuid.UUID]*registry.Bed)}
}

func (m *mockBedStore) Create(_ context.Context, b *registry.Bed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.New()
	m.beds[b.ID] = b
	return nil
}

func (m *mockBedStore) GetByID(_ context.Context, id uuid.UUID) (*registry.Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok {
		return nil, flowerr.E(flowerr.KindNotFound, "bed_not_found", "bed not found")
	}
	cp := *b
	return &cp, nil
}

func (m *mockBedStore) List(_ context.Context, limit, offset int) ([]*registry.Bed, int, error) {
	var result []*registry.Bed
	for _, b := range m.beds {
		result = append(result, b)
	}
	return result, len(result), nil
}

func (m *mockBedStore) ListByWard(_ context.Context, wardID uuid.UUID, limit, offset int) ([]*registry.Bed, int, error) {
	var result []*registry.Bed
	for _, b := range m.beds {
		if b.WardID == wardID {
			result = append(result, b)
		}
	}
	return result, len(result), nil
}

func (m *mockBedStore) Occupancy(_ context.Context) ([]*registry.WardOccupancy, error) {
	return nil, nil
}

type mockRepo struct {
	store  *mockBedStore
	events []*AuditEvent
}

func (m *mockRepo) Apply(_ context.Context, t *Transition) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	b, ok := m.store.beds[t.BedID]
	if !ok {
		return flowerr.E(flowerr.KindNotFound, "bed_not_found", "bed not found")
	}
	if b.Status != t.From {
		return flowerr.E(flowerr.KindConflict, "bed_modified", "bed was modified concurrently")
	}
	b.Status = t.To
	b.PatientID = t.PatientID
	b.ReservedFor = t.ReservedFor
	m.events = append(m.events, &AuditEvent{
		ID:         uuid.New(),
		BedID:      t.BedID,
		FromStatus: t.From,
		ToStatus:   t.To,
		PatientID:  t.PatientID,
		Actor:      t.Actor,
		Reason:     t.Reason,
		OccurredAt: time.Now(),
	})
	return nil
}

func (m *mockRepo) History(_ context.Context, bedID uuid.UUID, limit, offset int) ([]*AuditEvent, int, error) {
	var result []*AuditEvent
	for _, ev := range m.events {
		if ev.BedID == bedID {
			result = append(result, ev)
		}
	}
	return result, len(result), nil
}

func newTestService() (*Service, *mockBedStore, *mockRepo) {
	store := newMockBedStore()
	repo := &mockRepo{store: store}
	return NewService(store, repo, zerolog.Nop()), store, repo
}

func addBed(t *testing.T, store *mockBedStore, status registry.BedStatus) uuid.UUID {
	t.Helper()
	b := &registry.Bed{WardID: uuid.New(), Number: "7", Status: status}
	if err := store.Create(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	return b.ID
}

// -- Allocate --

func TestAllocate_AvailableBed(t *testing.T) {
	svc, store, _ := newTestService()
	id := addBed(t, store, registry.BedAvailable)
	patient := uuid.New()

	bed, err := svc.Allocate(context.Background(), id, patient)
	if err != nil {
		t.Fatal(err)
	}
	if bed.Status != registry.BedOccupied {
		t.Errorf("status = %s, want occupied", bed.Status)
	}
	if bed.PatientID == nil || *bed.PatientID != patient {
		t.Error("patient not recorded on bed")
	}
}

func TestAllocate_SecondAllocationFails(t *testing.T) {
	svc, store, _ := newTestService()
	id := addBed(t, store, registry.BedAvailable)

	if _, err := svc.Allocate(context.Background(), id, uuid.New()); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Allocate(context.Background(), id, uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if flowerr.CodeOf(err) != "bed_not_available" {
		t.Errorf("code = %q", flowerr.CodeOf(err))
	}
}

func TestAllocate_ConcurrentCallsSingleWinner(t *testing.T) {
	svc, store, repo := newTestService()
	id := addBed(t, store, registry.BedAvailable)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Allocate(context.Background(), id, uuid.New())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won int
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		if !flowerr.IsKind(err, flowerr.KindIllegalTransition) && !flowerr.IsKind(err, flowerr.KindConflict) {
			t.Errorf("loser error = %v, want illegal transition or conflict", err)
		}
	}
	if won != 1 {
		t.Fatalf("%d allocations succeeded, want exactly 1", won)
	}

	bed, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if bed.Status != registry.BedOccupied {
		t.Errorf("status = %s, want occupied", bed.Status)
	}
	if len(repo.events) != 1 {
		t.Errorf("audit events = %d, want 1", len(repo.events))
	}
}

func TestAllocate_RequiresPatient(t *testing.T) {
	svc, store, _ := newTestService()
	id := addBed(t, store, registry.BedAvailable)

	_, err := svc.Allocate(context.Background(), id, uuid.Nil)
	if flowerr.CodeOf(err) != "invalid_allocation" {
		t.Errorf("code = %q", flowerr.CodeOf(err))
	}
}

// -- Lifecycle scenario --

func TestLifecycle_AllocateDischargeCleanRoundTrip(t *testing.T) {
	svc, store, repo := newTestService()
	id := addBed(t, store, registry.BedAvailable)
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, id, uuid.New()); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	bed, err := svc.Discharge(ctx, id)
	if err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if bed.Status != registry.BedCleaning {
		t.Fatalf("after discharge status = %s, want cleaning", bed.Status)
	}

	// Re-allocating before cleaning finishes is the classic skipped step.
	if _, err := svc.Allocate(ctx, id, uuid.New()); flowerr.CodeOf(err) != "bed_not_available" {
		t.Errorf("allocate during cleaning: code = %q", flowerr.CodeOf(err))
	}

	bed, err = svc.MarkClean(ctx, id)
	if err != nil {
		t.Fatalf("mark clean: %v", err)
	}
	if bed.Status != registry.BedAvailable {
		t.Errorf("after clean status = %s, want available", bed.Status)
	}

	events, total, err := svc.History(ctx, id, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(events) != 3 {
		t.Fatalf("audit events = %d, want 3", total)
	}
	if repo.events[0].FromStatus != registry.BedAvailable || repo.events[0].ToStatus != registry.BedOccupied {
		t.Error("first audit event should record available -> occupied")
	}
	if repo.events[0].Actor == "" {
		t.Error("audit events must carry an actor")
	}
}

// -- Transition closure --

func TestTransitionClosure(t *testing.T) {
	type op struct {
		name string
		call func(svc *Service, id uuid.UUID) error
	}
	ops := []op{
		{"allocate", func(svc *Service, id uuid.UUID) error {
			_, err := svc.Allocate(context.Background(), id, uuid.New())
			return err
		}},
		{"discharge", func(svc *Service, id uuid.UUID) error {
			_, err := svc.Discharge(context.Background(), id)
			return err
		}},
		{"mark_clean", func(svc *Service, id uuid.UUID) error {
			_, err := svc.MarkClean(context.Background(), id)
			return err
		}},
		{"flag_maintenance", func(svc *Service, id uuid.UUID) error {
			_, err := svc.FlagMaintenance(context.Background(), id, "leak")
			return err
		}},
		{"complete_maintenance", func(svc *Service, id uuid.UUID) error {
			_, err := svc.CompleteMaintenance(context.Background(), id)
			return err
		}},
		{"reserve", func(svc *Service, id uuid.UUID) error {
			_, err := svc.Reserve(context.Background(), id, time.Now().AddDate(0, 0, 1))
			return err
		}},
		{"cancel_reservation", func(svc *Service, id uuid.UUID) error {
			_, err := svc.CancelReservation(context.Background(), id)
			return err
		}},
	}

	legal := map[registry.BedStatus]map[string]registry.BedStatus{
		registry.BedAvailable: {
			"allocate":         registry.BedOccupied,
			"flag_maintenance": registry.BedMaintenance,
			"reserve":          registry.BedReserved,
		},
		registry.BedOccupied: {
			"discharge": registry.BedCleaning,
		},
		registry.BedCleaning: {
			"mark_clean":       registry.BedAvailable,
			"flag_maintenance": registry.BedMaintenance,
		},
		registry.BedMaintenance: {
			"complete_maintenance": registry.BedAvailable,
		},
		registry.BedReserved: {
			"allocate":           registry.BedOccupied,
			"cancel_reservation": registry.BedAvailable,
		},
	}

	states := []registry.BedStatus{
		registry.BedAvailable, registry.BedOccupied, registry.BedCleaning,
		registry.BedMaintenance, registry.BedReserved,
	}
	for _, from := range states {
		for _, o := range ops {
			t.Run(string(from)+"/"+o.name, func(t *testing.T) {
				svc, store, _ := newTestService()
				id := addBed(t, store, from)
				if from == registry.BedOccupied {
					p := uuid.New()
					store.beds[id].PatientID = &p
				}

				err := o.call(svc, id)
				want, ok := legal[from][o.name]
				if ok {
					if err != nil {
						t.Fatalf("legal transition failed: %v", err)
					}
					if store.beds[id].Status != want {
						t.Errorf("state = %s, want %s", store.beds[id].Status, want)
					}
					return
				}
				if err == nil {
					t.Fatalf("illegal transition succeeded, state now %s", store.beds[id].Status)
				}
				if !flowerr.IsKind(err, flowerr.KindIllegalTransition) {
					t.Errorf("kind = %v, want illegal transition", flowerr.KindOf(err))
				}
				if store.beds[id].Status != from {
					t.Error("failed transition must leave state unchanged")
				}
			})
		}
	}
}

// -- Reservations --

func TestReserve_AllocateBeforeDateGated(t *testing.T) {
	svc, store, _ := newTestService()
	id := addBed(t, store, registry.BedAvailable)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, id, time.Now().AddDate(0, 0, 3)); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Allocate(ctx, id, uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if flowerr.CodeOf(err) != "bed_reserved" {
		t.Errorf("code = %q", flowerr.CodeOf(err))
	}
	if !flowerr.IsKind(err, flowerr.KindGating) {
		t.Errorf("kind = %v, want gating", flowerr.KindOf(err))
	}
}

func TestReserve_AllocateOnDateConsumesReservation(t *testing.T) {
	svc, store, _ := newTestService()
	id := addBed(t, store, registry.BedAvailable)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, id, time.Now()); err != nil {
		t.Fatal(err)
	}

	bed, err := svc.Allocate(ctx, id, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if bed.Status != registry.BedOccupied {
		t.Errorf("status = %s, want occupied", bed.Status)
	}
	if bed.ReservedFor != nil {
		t.Error("allocation should consume the reservation")
	}
}

func TestReserve_PastDate(t *testing.T) {
	svc, store, _ := newTestService()
	id := addBed(t, store, registry.BedAvailable)

	_, err := svc.Reserve(context.Background(), id, time.Now().AddDate(0, 0, -2))
	if flowerr.CodeOf(err) != "invalid_reservation" {
		t.Errorf("code = %q", flowerr.CodeOf(err))
	}
}

func TestCancelReservation(t *testing.T) {
	svc, store, _ := newTestService()
	id := addBed(t, store, registry.BedAvailable)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, id, time.Now().AddDate(0, 0, 1)); err != nil {
		t.Fatal(err)
	}
	bed, err := svc.CancelReservation(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if bed.Status != registry.BedAvailable || bed.ReservedFor != nil {
		t.Errorf("bed = %s reserved_for %v, want available and clear", bed.Status, bed.ReservedFor)
	}
}

func TestHistory_UnknownBed(t *testing.T) {
	svc, _, _ := newTestService()
	_, _, err := svc.History(context.Background(), uuid.New(), 20, 0)
	if !flowerr.IsKind(err, flowerr.KindNotFound) {
		t.Errorf("kind = %v, want not found", flowerr.KindOf(err))
	}
}
