package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// Strategy — политика выбора исполнителя среди пользователей роли.
type Strategy string

const (
	// StrategyFirstMatch — первый активный пользователь по (created_at, id).
	StrategyFirstMatch Strategy = "first_match"

	// StrategyRoundRobin — по очереди среди активных пользователей роли.
	// Счётчик живёт в памяти процесса.
	StrategyRoundRobin Strategy = "round_robin"

	// StrategyLeastLoaded — пользователь с наименьшим числом активных тендеров.
	StrategyLeastLoaded Strategy = "least_loaded"
)

// ErrUnknownStrategy — стратегия не поддерживается.
var ErrUnknownStrategy = errors.New("unknown resolver strategy")

// Resolver выбирает исполнителя для роли.
//
// Возвращает nil без ошибки, если ни один активный пользователь не
// держит роль: переход при этом всё равно фиксируется, тендер
// остаётся без исполнителя. Ошибка означает сбой чтения справочника.
type Resolver interface {
	Resolve(ctx context.Context, role domain.Role) (*uuid.UUID, error)
}

// Directory — справочник пользователей.
type Directory interface {
	// ListActiveByRole возвращает активных пользователей роли,
	// упорядоченных по (created_at, id).
	ListActiveByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// Workload — источник загрузки исполнителей.
type Workload interface {
	// CountActiveAssignments возвращает число активных тендеров на каждом
	// из пользователей. Отсутствующий ключ означает ноль.
	CountActiveAssignments(ctx context.Context, actorIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// Config — конфигурация Resolver.
type Config struct {
	Strategy  Strategy
	Directory Directory
	Workload  Workload // обязателен для least_loaded
	Logger    *slog.Logger
}

// New создаёт Resolver по стратегии. Пустая стратегия — first_match.
func New(cfg Config) (Resolver, error) {
	if cfg.Directory == nil {
		return nil, fmt.Errorf("resolver: directory is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := base{directory: cfg.Directory, logger: logger}

	switch cfg.Strategy {
	case "", StrategyFirstMatch:
		return &FirstMatch{base: b}, nil
	case StrategyRoundRobin:
		return &RoundRobin{base: b, next: make(map[domain.Role]uint64)}, nil
	case StrategyLeastLoaded:
		if cfg.Workload == nil {
			return nil, fmt.Errorf("resolver: %s requires a workload source", StrategyLeastLoaded)
		}
		return &LeastLoaded{base: b, workload: cfg.Workload}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

// base — общая часть стратегий: чтение кандидатов.
type base struct {
	directory Directory
	logger    *slog.Logger
}

func (b base) candidates(ctx context.Context, role domain.Role) ([]domain.User, error) {
	users, err := b.directory.ListActiveByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users for role %s: %w", role, err)
	}
	if len(users) == 0 {
		b.logger.Warn("no active user holds role, step left unassigned", "role", role)
	}
	return users, nil
}

// FirstMatch всегда выбирает первого кандидата.
type FirstMatch struct {
	base
}

// Resolve реализует Resolver.
func (r *FirstMatch) Resolve(ctx context.Context, role domain.Role) (*uuid.UUID, error) {
	users, err := r.candidates(ctx, role)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	id := users[0].ID
	return &id, nil
}

// RoundRobin распределяет шаги роли по кругу.
type RoundRobin struct {
	base

	mu   sync.Mutex
	next map[domain.Role]uint64
}

// Resolve реализует Resolver.
func (r *RoundRobin) Resolve(ctx context.Context, role domain.Role) (*uuid.UUID, error) {
	users, err := r.candidates(ctx, role)
	if err != nil || len(users) == 0 {
		return nil, err
	}

	r.mu.Lock()
	n := r.next[role]
	r.next[role] = n + 1
	r.mu.Unlock()

	id := users[n%uint64(len(users))].ID
	return &id, nil
}

// LeastLoaded выбирает кандидата с наименьшим числом активных тендеров.
// При равенстве побеждает более ранний по (created_at, id).
type LeastLoaded struct {
	base
	workload Workload
}

// Resolve реализует Resolver.
func (r *LeastLoaded) Resolve(ctx context.Context, role domain.Role) (*uuid.UUID, error) {
	users, err := r.candidates(ctx, role)
	if err != nil || len(users) == 0 {
		return nil, err
	}

	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	counts, err := r.workload.CountActiveAssignments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count assignments for role %s: %w", role, err)
	}

	best := ids[0]
	for _, id := range ids[1:] {
		if counts[id] < counts[best] {
			best = id
		}
	}
	return &best, nil
}
