package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/catalog"
	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/repo"
	"github.com/shaiso/Tenderflow/internal/workflow"
)

// fakeService — TenderService с настраиваемыми ответами.
type fakeService struct {
	mu sync.Mutex

	tender *domain.Tender
	err    error
	calls  int

	// panicWith, если задан, вызывает панику в операции.
	panicWith any

	lastCreate     workflow.CreateTenderInput
	lastTransition workflow.TransitionInput
	lastFilter     workflow.ListFilter
	lastAssignee   string

	tenders  []domain.Tender
	timeline []domain.TimelineEntry
	tasks    []domain.Task
}

func newFakeService() *fakeService {
	actor := uuid.New()
	deadline := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	return &fakeService{
		tender: &domain.Tender{
			ID:             uuid.New(),
			Reference:      "AO-2026-000001",
			Title:          "Travaux de voirie",
			Amount:         500000,
			CurrentPhase:   1,
			CurrentStep:    1,
			CurrentActorID: &actor,
			Status:         domain.TenderStatusActive,
			Deadline:       &deadline,
			Version:        1,
		},
	}
}

func (f *fakeService) result() (*domain.Tender, error) {
	f.calls++
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return nil, f.err
	}
	t := *f.tender
	return &t, nil
}

func (f *fakeService) CreateTender(_ context.Context, in workflow.CreateTenderInput) (*domain.Tender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCreate = in
	return f.result()
}

func (f *fakeService) Approve(_ context.Context, in workflow.TransitionInput) (*domain.Tender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTransition = in
	return f.result()
}

func (f *fakeService) Reject(_ context.Context, in workflow.TransitionInput) (*domain.Tender, error) {
	return f.Approve(context.Background(), in)
}

func (f *fakeService) Cancel(_ context.Context, in workflow.TransitionInput) (*domain.Tender, error) {
	return f.Approve(context.Background(), in)
}

func (f *fakeService) GetTender(_ context.Context, _ uuid.UUID) (*domain.Tender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result()
}

func (f *fakeService) ListTenders(_ context.Context, filter workflow.ListFilter) ([]domain.Tender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return f.tenders, f.err
}

func (f *fakeService) Timeline(_ context.Context, _ uuid.UUID) ([]domain.TimelineEntry, error) {
	return f.timeline, f.err
}

func (f *fakeService) TasksForActor(_ context.Context, actorID uuid.UUID) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAssignee = actorID.String()
	return f.tasks, f.err
}

func (f *fakeService) GetTasks(_ context.Context, assignee string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAssignee = assignee
	return f.tasks, f.err
}

func (f *fakeService) Catalog() *catalog.Catalog {
	return catalog.MustDefault()
}

// fakeUsers — справочник пользователей в памяти.
type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func (u *fakeUsers) Create(_ context.Context, user *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.users {
		if existing.Email == user.Email {
			return repo.ErrAlreadyExists
		}
	}
	u.users[user.ID] = *user
	return nil
}

func (u *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &user, nil
}

func (u *fakeUsers) List(_ context.Context, role domain.Role) ([]domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := []domain.User{}
	for _, user := range u.users {
		if role == "" || user.Role == role {
			out = append(out, user)
		}
	}
	return out, nil
}
