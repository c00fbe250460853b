package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/actor"
	"github.com/shaiso/Tenderflow/internal/catalog"
	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/engine"
	"github.com/shaiso/Tenderflow/internal/repo"
	"github.com/shaiso/Tenderflow/internal/telemetry"
)

// DefaultDeadline — срок шага, если он не передан явно.
const DefaultDeadline = 7 * 24 * time.Hour

// Store — хранилище тендеров, журнала и пользователей.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx repo.Tx) error) error
	GetTender(ctx context.Context, id uuid.UUID) (*domain.Tender, error)
	ListTenders(ctx context.Context, filter repo.TenderFilter) ([]domain.Tender, error)
	ListHistory(ctx context.Context, tenderID uuid.UUID) ([]domain.StepHistoryEntry, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// EventPublisher публикует события о зафиксированных переходах.
type EventPublisher interface {
	PublishTransition(ctx context.Context, event domain.TransitionEvent) error
}

// Config — конфигурация Service.
type Config struct {
	Store    Store
	Catalog  *catalog.Catalog
	Resolver actor.Resolver

	// Events — необязательный. Nil отключает публикацию событий.
	Events EventPublisher

	// DefaultDeadline — срок шага без явного override (default: 7 дней).
	DefaultDeadline time.Duration

	// BlockUnassigned — тендер без исполнителя может двигать только администратор.
	BlockUnassigned bool

	// SupervisoryRoles видят в очереди все активные тендеры (default: admin).
	SupervisoryRoles []domain.Role

	// Now — источник времени (default: time.Now).
	Now func() time.Time

	Logger *slog.Logger
}

// Service — движок переходов тендеров.
type Service struct {
	store    Store
	engine   *engine.Engine
	catalog  *catalog.Catalog
	resolver actor.Resolver
	events   EventPublisher

	defaultDeadline time.Duration
	blockUnassigned bool
	supervisory     map[domain.Role]bool

	now    func() time.Time
	logger *slog.Logger
}

// New создаёт новый Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("workflow: store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("workflow: catalog is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("workflow: resolver is required")
	}

	deadline := cfg.DefaultDeadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}

	roles := cfg.SupervisoryRoles
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleAdmin}
	}
	supervisory := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		supervisory[r] = true
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:           cfg.Store,
		engine:          engine.New(cfg.Catalog),
		catalog:         cfg.Catalog,
		resolver:        cfg.Resolver,
		events:          cfg.Events,
		defaultDeadline: deadline,
		blockUnassigned: cfg.BlockUnassigned,
		supervisory:     supervisory,
		now:             now,
		logger:          logger,
	}, nil
}

// Catalog возвращает каталог шагов сервиса.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// CreateTenderInput — данные нового тендера.
type CreateTenderInput struct {
	Title       string
	Description string
	Amount      float64
	Metadata    map[string]any
	CreatedBy   uuid.UUID

	// Deadline — срок первого шага. Nil — DefaultDeadline от текущего момента.
	Deadline *time.Time
}

// TransitionInput — решение пользователя по текущему шагу тендера.
type TransitionInput struct {
	TenderID uuid.UUID
	ActorID  uuid.UUID
	Comments string

	// Deadline переопределяет срок целевого шага.
	Deadline *time.Time
}

// CreateTender создаёт тендер на первом шаге каталога и пишет запись created.
func (s *Service) CreateTender(ctx context.Context, in CreateTenderInput) (*domain.Tender, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	if in.CreatedBy == uuid.Nil {
		return nil, fmt.Errorf("%w: created_by is required", ErrValidation)
	}

	creator, err := s.activeUser(ctx, in.CreatedBy)
	if err != nil {
		return nil, err
	}

	first := s.catalog.First()
	actorID, err := s.resolve(ctx, first.ResponsibleRole)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tender := &domain.Tender{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Amount:      in.Amount,
		Metadata:    in.Metadata,
		Status:      domain.TenderStatusActive,
		CreatedBy:   creator.ID,
		Version:     1,
		CreatedAt:   now,
	}
	tender.MoveTo(first.Ref(), actorID, s.deadline(now, in.Deadline), now)

	err = s.store.WithinTx(ctx, func(tx repo.Tx) error {
		seq, err := tx.NextReferenceSeq(ctx)
		if err != nil {
			return err
		}
		tender.Reference = FormatReference(now, seq)

		if err := tx.InsertTender(ctx, tender); err != nil {
			return err
		}

		return tx.AppendHistory(ctx, &domain.StepHistoryEntry{
			TenderID:  tender.ID,
			Step:      first.Ref(),
			ActorID:   &creator.ID,
			Action:    domain.ActionCreated,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create tender: %w", err)
	}

	telemetry.TransitionsTotal.WithLabelValues(string(domain.ActionCreated)).Inc()
	logger := telemetry.WithTenderID(telemetry.LoggerOr(ctx, s.logger), tender.ID.String())
	telemetry.WithActorID(logger, creator.ID.String()).Info("tender created",
		"reference", tender.Reference,
		"next_actor_id", tender.CurrentActorID,
	)

	s.publish(ctx, domain.TransitionEvent{
		TenderID:    tender.ID,
		Reference:   tender.Reference,
		Action:      domain.ActionCreated,
		From:        first.Ref(),
		To:          first.Ref(),
		ActorID:     &creator.ID,
		NextActorID: tender.CurrentActorID,
		Status:      tender.Status,
		Deadline:    tender.Deadline,
		OccurredAt:  now,
	})

	return tender, nil
}

// Approve одобряет текущий шаг: тендер уходит на следующий шаг
// или завершается на последнем шаге последней фазы.
func (s *Service) Approve(ctx context.Context, in TransitionInput) (*domain.Tender, error) {
	return s.transition(ctx, in, engine.DecisionApprove)
}

// Reject возвращает тендер на доработку.
func (s *Service) Reject(ctx context.Context, in TransitionInput) (*domain.Tender, error) {
	return s.transition(ctx, in, engine.DecisionReject)
}

// Cancel отменяет активный тендер. Доступно только администраторам.
func (s *Service) Cancel(ctx context.Context, in TransitionInput) (*domain.Tender, error) {
	user, err := s.actingUser(ctx, in)
	if err != nil {
		return nil, err
	}
	if !user.CanSupervise() {
		return nil, fmt.Errorf("%w: cancel requires admin", ErrForbidden)
	}

	logger := telemetry.WithActorID(
		telemetry.WithTenderID(telemetry.LoggerOr(ctx, s.logger), in.TenderID.String()),
		user.ID.String(),
	)
	start := time.Now()

	var (
		result *domain.Tender
		event  domain.TransitionEvent
	)
	err = s.store.WithinTx(ctx, func(tx repo.Tx) error {
		t, err := s.lockActive(ctx, tx, in.TenderID)
		if err != nil {
			return err
		}

		now, err := s.stamp(ctx, tx, t.ID)
		if err != nil {
			return err
		}

		pos := t.Position()
		t.MarkCancelled(now)

		if err := s.commit(ctx, tx, t, &domain.StepHistoryEntry{
			TenderID:    t.ID,
			Step:        pos,
			ActorID:     &user.ID,
			Action:      domain.ActionCancelled,
			Comments:    in.Comments,
			CompletedAt: &now,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		result = t
		event = domain.TransitionEvent{
			TenderID:   t.ID,
			Reference:  t.Reference,
			Action:     domain.ActionCancelled,
			From:       pos,
			To:         pos,
			ActorID:    &user.ID,
			Status:     t.Status,
			OccurredAt: now,
		}
		return nil
	})
	if err != nil {
		s.observeError(err)
		return nil, err
	}

	s.observe(domain.ActionCancelled, start)
	logger.Info("tender cancelled", "position", event.From.String())

	s.publish(ctx, event)
	return result, nil
}

// transition применяет approve или reject в одной транзакции.
func (s *Service) transition(ctx context.Context, in TransitionInput, decision engine.Decision) (*domain.Tender, error) {
	user, err := s.actingUser(ctx, in)
	if err != nil {
		return nil, err
	}

	action := domain.ActionApproved
	if decision == engine.DecisionReject {
		action = domain.ActionRejected
	}

	logger := telemetry.WithActorID(
		telemetry.WithTenderID(telemetry.LoggerOr(ctx, s.logger), in.TenderID.String()),
		user.ID.String(),
	)
	start := time.Now()

	var (
		result *domain.Tender
		event  domain.TransitionEvent
		plan   engine.Plan
	)
	err = s.store.WithinTx(ctx, func(tx repo.Tx) error {
		t, err := s.lockActive(ctx, tx, in.TenderID)
		if err != nil {
			return err
		}

		plan, err = s.engine.Plan(t.Position(), decision)
		if err != nil {
			if errors.Is(err, engine.ErrInconsistentPosition) {
				telemetry.InternalInconsistencyTotal.Inc()
				logger.Error("tender position does not match catalog",
					"position", t.Position().String(),
					"decision", decision,
					"error", err,
				)
				return fmt.Errorf("%w: %w", ErrInternalInconsistency, err)
			}
			return err
		}

		if err := s.authorize(user, t, plan.From); err != nil {
			return err
		}

		now, err := s.stamp(ctx, tx, t.ID)
		if err != nil {
			return err
		}

		from := t.Position()
		if plan.Terminal {
			t.MarkCompleted(now)
		} else {
			// Исполнитель сохраняется, если позиция не изменилась (reject на (1,1)).
			nextActor := t.CurrentActorID
			if plan.Moved || !t.IsAssigned() {
				nextActor, err = s.resolve(ctx, plan.To.ResponsibleRole)
				if err != nil {
					return err
				}
			}
			t.MoveTo(plan.To.Ref(), nextActor, s.deadline(now, in.Deadline), now)
		}

		if err := s.commit(ctx, tx, t, &domain.StepHistoryEntry{
			TenderID:    t.ID,
			Step:        from,
			ActorID:     &user.ID,
			Action:      action,
			Comments:    in.Comments,
			CompletedAt: &now,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		result = t
		event = domain.TransitionEvent{
			TenderID:    t.ID,
			Reference:   t.Reference,
			Action:      action,
			From:        from,
			To:          t.Position(),
			ActorID:     &user.ID,
			NextActorID: t.CurrentActorID,
			Status:      t.Status,
			Deadline:    t.Deadline,
			OccurredAt:  now,
		}
		return nil
	})
	if err != nil {
		s.observeError(err)
		return nil, err
	}

	s.observe(action, start)
	switch {
	case plan.Terminal:
		logger.Info("tender completed", "position", event.From.String())
	case !plan.Moved:
		logger.Info("reject at first step keeps position", "position", event.From.String())
	default:
		logger.Info("tender transitioned",
			"action", action,
			"from", event.From.String(),
			"to", event.To.String(),
			"next_actor_id", event.NextActorID,
		)
	}

	s.publish(ctx, event)
	return result, nil
}

// --- Helpers ---

// FormatReference строит номер тендера вида AO-2026-000042.
func FormatReference(at time.Time, seq int64) string {
	return fmt.Sprintf("AO-%d-%06d", at.Year(), seq)
}

// actingUser проверяет входные ID и возвращает активного пользователя.
func (s *Service) actingUser(ctx context.Context, in TransitionInput) (*domain.User, error) {
	if in.TenderID == uuid.Nil {
		return nil, fmt.Errorf("%w: tender id is required", ErrValidation)
	}
	if in.ActorID == uuid.Nil {
		return nil, fmt.Errorf("%w: actor id is required", ErrValidation)
	}
	return s.activeUser(ctx, in.ActorID)
}

func (s *Service) activeUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrActorNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user %s is inactive", ErrForbidden, id)
	}
	return user, nil
}

// lockActive блокирует строку тендера и проверяет, что он активен.
func (s *Service) lockActive(ctx context.Context, tx repo.Tx, id uuid.UUID) (*domain.Tender, error) {
	t, err := tx.LockTender(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock tender: %w", err)
	}
	if !t.IsActive() {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidState, t.Status)
	}
	return t, nil
}

// authorize проверяет право пользователя решать по шагу step.
func (s *Service) authorize(user *domain.User, t *domain.Tender, step domain.StepDefinition) error {
	if user.CanSupervise() {
		return nil
	}
	if !t.IsAssigned() && s.blockUnassigned {
		return fmt.Errorf("%w: step %s has no current actor", ErrForbidden, step.Ref())
	}
	if t.IsAssigned() && *t.CurrentActorID == user.ID {
		return nil
	}
	if user.Role == step.ResponsibleRole {
		return nil
	}
	return fmt.Errorf("%w: step %s requires role %s", ErrForbidden, step.Ref(), step.ResponsibleRole)
}

// stamp возвращает время новой записи журнала: не раньше последней записи тендера.
func (s *Service) stamp(ctx context.Context, tx repo.Tx, tenderID uuid.UUID) (time.Time, error) {
	now := s.now().UTC()
	last, err := tx.LastHistoryAt(ctx, tenderID)
	if err != nil {
		return time.Time{}, err
	}
	if now.Before(last) {
		return last, nil
	}
	return now, nil
}

// commit сохраняет тендер с проверкой версии и добавляет запись журнала.
func (s *Service) commit(ctx context.Context, tx repo.Tx, t *domain.Tender, entry *domain.StepHistoryEntry) error {
	if err := tx.UpdateTender(ctx, t); err != nil {
		if errors.Is(err, repo.ErrVersionConflict) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return err
	}
	return tx.AppendHistory(ctx, entry)
}

// resolve назначает исполнителя роли. Nil — исполнитель не найден.
func (s *Service) resolve(ctx context.Context, role domain.Role) (*uuid.UUID, error) {
	id, err := s.resolver.Resolve(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("resolve actor for %s: %w", role, err)
	}
	if id == nil {
		telemetry.UnassignedTotal.WithLabelValues(string(role)).Inc()
		telemetry.LoggerOr(ctx, s.logger).Warn("no active user for role, step left unassigned", "role", role)
	}
	return id, nil
}

func (s *Service) deadline(now time.Time, override *time.Time) time.Time {
	if override != nil {
		return override.UTC()
	}
	return now.Add(s.defaultDeadline)
}

func (s *Service) publish(ctx context.Context, event domain.TransitionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransition(ctx, event); err != nil {
		logger := telemetry.WithTenderID(telemetry.LoggerOr(ctx, s.logger), event.TenderID.String())
		logger.Error("failed to publish transition event",
			"action", event.Action,
			"error", err,
		)
	}
}

func (s *Service) observe(action domain.HistoryAction, start time.Time) {
	telemetry.TransitionsTotal.WithLabelValues(string(action)).Inc()
	telemetry.TransitionDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
}

func (s *Service) observeError(err error) {
	kind := "internal"
	switch {
	case errors.Is(err, ErrNotFound):
		kind = "not_found"
	case errors.Is(err, ErrInvalidState):
		kind = "invalid_state"
	case errors.Is(err, ErrForbidden):
		kind = "forbidden"
	case errors.Is(err, ErrConflict):
		kind = "conflict"
	case errors.Is(err, ErrInternalInconsistency):
		kind = "inconsistency"
	}
	telemetry.TransitionErrorsTotal.WithLabelValues(kind).Inc()
}
