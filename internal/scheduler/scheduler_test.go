package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/repo"
)

type fakeStore struct {
	mu       sync.Mutex
	overdue  []domain.Tender
	listErr  error
	markErr  map[uuid.UUID]error
	marked   []uuid.UUID
	lastNow  time.Time
	lastSize int
}

func (f *fakeStore) ListOverdue(_ context.Context, now time.Time, limit int) ([]domain.Tender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastNow = now
	f.lastSize = limit
	return f.overdue, f.listErr
}

func (f *fakeStore) MarkOverdueNotified(_ context.Context, id uuid.UUID, _, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markErr[id]; err != nil {
		return err
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.OverdueEvent
	fail   map[uuid.UUID]bool
}

func (p *fakePublisher) PublishOverdue(_ context.Context, e domain.OverdueEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[e.TenderID] {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeElector struct {
	leader bool
	err    error
}

func (e fakeElector) TryLead(context.Context) (bool, error) { return e.leader, e.err }

var sweepNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func overdueTender(ref string) domain.Tender {
	deadline := sweepNow.Add(-time.Hour)
	actor := uuid.New()
	return domain.Tender{
		ID:             uuid.New(),
		Reference:      ref,
		CurrentPhase:   1,
		CurrentStep:    4,
		CurrentActorID: &actor,
		Status:         domain.TenderStatusActive,
		Deadline:       &deadline,
	}
}

func newTestScheduler(t *testing.T, store *fakeStore, pub *fakePublisher, elector Elector) *Scheduler {
	t.Helper()
	s, err := New(Config{
		Store:     store,
		Publisher: pub,
		Elector:   elector,
		BatchSize: 10,
		Now:       func() time.Time { return sweepNow },
	})
	require.NoError(t, err)
	return s
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{Publisher: &fakePublisher{}})
	assert.Error(t, err)

	_, err = New(Config{Store: &fakeStore{}})
	assert.Error(t, err)

	s, err := New(Config{Store: &fakeStore{}, Publisher: &fakePublisher{}})
	require.NoError(t, err)
	assert.Equal(t, 100, s.batchSize)
}

func TestTick_PublishesAndMarks(t *testing.T) {
	a, b := overdueTender("AO-2026-000001"), overdueTender("AO-2026-000002")
	store := &fakeStore{overdue: []domain.Tender{a, b}}
	pub := &fakePublisher{}
	s := newTestScheduler(t, store, pub, nil)

	require.NoError(t, s.Tick(context.Background()))

	assert.Equal(t, sweepNow, store.lastNow)
	assert.Equal(t, 10, store.lastSize)
	require.Len(t, pub.events, 2)
	assert.Equal(t, a.ID, pub.events[0].TenderID)
	assert.Equal(t, domain.StepRef{Phase: 1, Step: 4}, pub.events[0].Position)
	assert.Equal(t, *a.Deadline, pub.events[0].Deadline)
	assert.Equal(t, sweepNow, pub.events[0].DetectedAt)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, store.marked)
}

func TestTick_PublishFailureLeavesTenderForNextTick(t *testing.T) {
	a, b := overdueTender("AO-2026-000001"), overdueTender("AO-2026-000002")
	store := &fakeStore{overdue: []domain.Tender{a, b}}
	pub := &fakePublisher{fail: map[uuid.UUID]bool{a.ID: true}}
	s := newTestScheduler(t, store, pub, nil)

	require.NoError(t, s.Tick(context.Background()))

	assert.Equal(t, []uuid.UUID{b.ID}, store.marked)
	assert.Equal(t, 1, pub.count())
}

func TestTick_TenderMovedBeforeMark(t *testing.T) {
	a := overdueTender("AO-2026-000001")
	store := &fakeStore{
		overdue: []domain.Tender{a},
		markErr: map[uuid.UUID]error{a.ID: repo.ErrNotFound},
	}
	pub := &fakePublisher{}
	s := newTestScheduler(t, store, pub, nil)

	require.NoError(t, s.Tick(context.Background()))
	assert.Empty(t, store.marked)
	assert.Equal(t, 1, pub.count())
}

func TestTick_SkipsWhenNotLeader(t *testing.T) {
	store := &fakeStore{overdue: []domain.Tender{overdueTender("AO-2026-000001")}}
	pub := &fakePublisher{}
	s := newTestScheduler(t, store, pub, fakeElector{leader: false})

	require.NoError(t, s.Tick(context.Background()))
	assert.Zero(t, pub.count())
	assert.True(t, store.lastNow.IsZero())
}

func TestTick_Errors(t *testing.T) {
	s := newTestScheduler(t, &fakeStore{}, &fakePublisher{}, fakeElector{err: errors.New("db down")})
	assert.Error(t, s.Tick(context.Background()))

	s = newTestScheduler(t, &fakeStore{listErr: errors.New("timeout")}, &fakePublisher{}, nil)
	assert.Error(t, s.Tick(context.Background()))
}

func TestRun_InvalidExpression(t *testing.T) {
	s := newTestScheduler(t, &fakeStore{}, &fakePublisher{}, nil)
	err := s.Run(context.Background(), "not a cron")
	assert.Error(t, err)
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	store := &fakeStore{overdue: []domain.Tender{overdueTender("AO-2026-000001")}}
	pub := &fakePublisher{}
	s := newTestScheduler(t, store, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "@every 1s") }()

	assert.Eventually(t, func() bool { return pub.count() > 0 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestValidateCronExpr(t *testing.T) {
	assert.NoError(t, ValidateCronExpr("*/15 * * * *"))
	assert.NoError(t, ValidateCronExpr("@hourly"))
	assert.Error(t, ValidateCronExpr("*/15 * * *"))
	assert.Error(t, ValidateCronExpr(""))
}

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 3, 10, 9, 7, 0, 0, time.UTC)
	next, err := NextRun("*/15 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC), next)

	_, err = NextRun("bogus", from)
	assert.Error(t, err)
}
