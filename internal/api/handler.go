package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/catalog"
	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/idempotency"
	"github.com/shaiso/Tenderflow/internal/telemetry"
	"github.com/shaiso/Tenderflow/internal/workflow"
)

// TenderService — операции движка, доступные через API.
type TenderService interface {
	CreateTender(ctx context.Context, in workflow.CreateTenderInput) (*domain.Tender, error)
	Approve(ctx context.Context, in workflow.TransitionInput) (*domain.Tender, error)
	Reject(ctx context.Context, in workflow.TransitionInput) (*domain.Tender, error)
	Cancel(ctx context.Context, in workflow.TransitionInput) (*domain.Tender, error)

	GetTender(ctx context.Context, id uuid.UUID) (*domain.Tender, error)
	ListTenders(ctx context.Context, filter workflow.ListFilter) ([]domain.Tender, error)
	Timeline(ctx context.Context, tenderID uuid.UUID) ([]domain.TimelineEntry, error)
	TasksForActor(ctx context.Context, actorID uuid.UUID) ([]domain.Task, error)
	GetTasks(ctx context.Context, actorIDOrRole string) ([]domain.Task, error)

	Catalog() *catalog.Catalog
}

// UserDirectory — справочник пользователей.
type UserDirectory interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// IdempotencyStore хранит ответы на запросы с заголовком Idempotency-Key.
type IdempotencyStore interface {
	Acquire(ctx context.Context, key string) (*idempotency.Response, error)
	Save(ctx context.Context, key string, resp idempotency.Response) error
	Release(ctx context.Context, key string) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	tenders     TenderService
	users       UserDirectory
	idempotency IdempotencyStore
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Tenders TenderService
	Users   UserDirectory

	// Idempotency — необязательный. Nil отключает обработку Idempotency-Key.
	Idempotency IdempotencyStore

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tenders:     cfg.Tenders,
		users:       cfg.Users,
		idempotency: cfg.Idempotency,
		logger:      logger,
	}
}

// log возвращает логгер запроса, который кладёт Logging.
func (h *Handler) log(r *http.Request) *slog.Logger {
	return telemetry.LoggerOr(r.Context(), h.logger)
}
