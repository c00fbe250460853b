package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/repo"
)

// ListFilter — параметры выборки тендеров.
type ListFilter struct {
	Status domain.TenderStatus
	Limit  int
	Offset int
}

// GetTender возвращает тендер по ID.
func (s *Service) GetTender(ctx context.Context, id uuid.UUID) (*domain.Tender, error) {
	t, err := s.store.GetTender(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get tender: %w", err)
	}
	return t, nil
}

// ListTenders возвращает тендеры, новые первыми.
func (s *Service) ListTenders(ctx context.Context, filter ListFilter) ([]domain.Tender, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrValidation)
	}

	tenders, err := s.store.ListTenders(ctx, repo.TenderFilter{
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list tenders: %w", err)
	}
	return tenders, nil
}

// Timeline возвращает журнал тендера вместе с описаниями шагов.
// Только читает: повторные вызовы без переходов дают одинаковый результат.
func (s *Service) Timeline(ctx context.Context, tenderID uuid.UUID) ([]domain.TimelineEntry, error) {
	if _, err := s.GetTender(ctx, tenderID); err != nil {
		return nil, err
	}

	entries, err := s.store.ListHistory(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	timeline := make([]domain.TimelineEntry, 0, len(entries))
	for _, e := range entries {
		item := domain.TimelineEntry{Entry: e}
		if def, err := s.catalog.Step(e.Step); err == nil {
			item.Step = &def
		}
		timeline = append(timeline, item)
	}
	return timeline, nil
}

// TasksForActor возвращает активные тендеры, назначенные пользователю.
func (s *Service) TasksForActor(ctx context.Context, actorID uuid.UUID) ([]domain.Task, error) {
	if actorID == uuid.Nil {
		return nil, fmt.Errorf("%w: actor id is required", ErrValidation)
	}
	return s.tasks(ctx, repo.TenderFilter{
		Status:  domain.TenderStatusActive,
		ActorID: &actorID,
	})
}

// TasksForRole возвращает активные тендеры всех исполнителей роли.
// Надзорные роли видят все активные тендеры, включая неназначенные.
func (s *Service) TasksForRole(ctx context.Context, role domain.Role) ([]domain.Task, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	filter := repo.TenderFilter{Status: domain.TenderStatusActive}
	if !s.supervisory[role] {
		filter.ActorRole = role
	}
	return s.tasks(ctx, filter)
}

// GetTasks принимает ID пользователя или имя роли.
func (s *Service) GetTasks(ctx context.Context, actorIDOrRole string) ([]domain.Task, error) {
	key := strings.TrimSpace(actorIDOrRole)
	if id, err := uuid.Parse(key); err == nil {
		return s.TasksForActor(ctx, id)
	}

	role, err := domain.ParseRole(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is neither a user id nor a role", ErrValidation, key)
	}
	return s.TasksForRole(ctx, role)
}

func (s *Service) tasks(ctx context.Context, filter repo.TenderFilter) ([]domain.Task, error) {
	tenders, err := s.store.ListTenders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	now := s.now().UTC()
	tasks := make([]domain.Task, 0, len(tenders))
	for i := range tenders {
		t := &tenders[i]
		var step *domain.StepDefinition
		if def, err := s.catalog.Step(t.Position()); err == nil {
			step = &def
		}
		tasks = append(tasks, domain.NewTask(t, step, now))
	}
	return tasks, nil
}
