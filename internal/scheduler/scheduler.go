package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/repo"
	"github.com/shaiso/Tenderflow/internal/telemetry"
)

// OverdueStore — доступ к просроченным тендерам.
type OverdueStore interface {
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Tender, error)
	MarkOverdueNotified(ctx context.Context, id uuid.UUID, deadline, at time.Time) error
}

// OverduePublisher публикует события о просрочке.
type OverduePublisher interface {
	PublishOverdue(ctx context.Context, event domain.OverdueEvent) error
}

// Scheduler — планировщик, находящий тендеры с истёкшим сроком шага.
type Scheduler struct {
	store     OverdueStore
	publisher OverduePublisher
	elector   Elector
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Store     OverdueStore
	Publisher OverduePublisher
	Elector   Elector // nil — процесс всегда лидер
	Logger    *slog.Logger
	BatchSize int // количество тендеров за один тик (default: 100)
	Now       func() time.Time
}

// New создаёт новый Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil {
		return nil, errors.New("scheduler: store is required")
	}
	if cfg.Publisher == nil {
		return nil, errors.New("scheduler: publisher is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	elector := cfg.Elector
	if elector == nil {
		elector = alwaysLeader{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		elector:   elector,
		logger:    logger,
		batchSize: batchSize,
		now:       now,
	}, nil
}

// Tick выполняет один тик планировщика.
//
// 1. Проверяет лидерство
// 2. Находит активные тендеры с истёкшим сроком без уведомления
// 3. Для каждого публикует tender.overdue
// 4. Отмечает тендер как уведомлённый
//
// Ошибки одного тендера не блокируют обработку остальных. Тендер,
// по которому публикация не удалась, попадёт в следующий тик.
func (s *Scheduler) Tick(ctx context.Context) error {
	leader, err := s.elector.TryLead(ctx)
	if err != nil {
		return fmt.Errorf("leader election: %w", err)
	}
	if !leader {
		s.logger.Debug("not a leader, skipping tick")
		return nil
	}

	now := s.now().UTC()

	tenders, err := s.store.ListOverdue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list overdue tenders: %w", err)
	}

	if len(tenders) == 0 {
		return nil
	}

	s.logger.Debug("found overdue tenders", "count", len(tenders))

	var notified int
	for i := range tenders {
		t := &tenders[i]

		if err := s.processTender(ctx, t, now); err != nil {
			s.logger.Error("failed to process overdue tender",
				"tender_id", t.ID,
				"reference", t.Reference,
				"error", err,
			)
			continue
		}
		notified++
	}

	s.logger.Info("overdue sweep completed",
		"overdue", len(tenders),
		"notified", notified,
	)

	return nil
}

// processTender публикует событие и отмечает тендер.
func (s *Scheduler) processTender(ctx context.Context, t *domain.Tender, now time.Time) error {
	if t.Deadline == nil {
		return nil
	}

	event := domain.OverdueEvent{
		TenderID:   t.ID,
		Reference:  t.Reference,
		Position:   t.Position(),
		ActorID:    t.CurrentActorID,
		Deadline:   *t.Deadline,
		DetectedAt: now,
	}

	if err := s.publisher.PublishOverdue(ctx, event); err != nil {
		return fmt.Errorf("publish overdue: %w", err)
	}
	telemetry.OverdueTendersTotal.Inc()

	err := s.store.MarkOverdueNotified(ctx, t.ID, *t.Deadline, now)
	if errors.Is(err, repo.ErrNotFound) {
		// Тендер сдвинулся между выборкой и отметкой: новый срок отслеживается заново.
		s.logger.Debug("tender moved before marking", "tender_id", t.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark overdue notified: %w", err)
	}

	s.logger.Info("overdue tender notified",
		"tender_id", t.ID,
		"reference", t.Reference,
		"phase", t.CurrentPhase,
		"step", t.CurrentStep,
		"deadline", t.Deadline,
	)
	return nil
}

// Run запускает Tick по cron-выражению до отмены ctx.
// Перекрывающиеся тики пропускаются.
func (s *Scheduler) Run(ctx context.Context, cronExpr string) error {
	logger := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	_, err := c.AddFunc(cronExpr, func() {
		if err := s.Tick(ctx); err != nil {
			s.logger.Error("scheduler tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep %q: %w", cronExpr, err)
	}

	s.logger.Info("scheduler started", "cron", cronExpr)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	s.logger.Info("scheduler stopped")
	return nil
}
