package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Tenderflow/internal/catalog"
	"github.com/shaiso/Tenderflow/internal/domain"
)

// StepRepo — таблица step_definitions (справочные данные каталога).
type StepRepo struct {
	pool *pgxpool.Pool
}

// NewStepRepo создаёт новый StepRepo.
func NewStepRepo(pool *pgxpool.Pool) *StepRepo {
	return &StepRepo{pool: pool}
}

// Seed добавляет отсутствующие шаги и обновляет тексты и сроки существующих.
// Роли и цели on_reject существующих шагов не меняются: расхождение
// в них ловит Sync. Повторный запуск с тем же каталогом ничего не меняет.
// Возвращает число добавленных или обновлённых шагов.
func (r *StepRepo) Seed(ctx context.Context, defs []domain.StepDefinition) (int, error) {
	var changed int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		n, err := seedSteps(ctx, tx, defs)
		changed = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("seed steps: %w", err)
	}
	return changed, nil
}

func seedSteps(ctx context.Context, q querier, defs []domain.StepDefinition) (int, error) {
	query := `
		INSERT INTO step_definitions (phase, step_number, title, description, responsible_role,
		                              estimated_days, max_days, reject_phase, reject_step)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (phase, step_number) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    estimated_days = EXCLUDED.estimated_days,
		    max_days = EXCLUDED.max_days
		WHERE (step_definitions.title, step_definitions.description,
		       step_definitions.estimated_days, step_definitions.max_days)
		      IS DISTINCT FROM
		      (EXCLUDED.title, EXCLUDED.description, EXCLUDED.estimated_days, EXCLUDED.max_days)
	`

	changed := 0
	for _, d := range defs {
		var rejectPhase, rejectStep *int
		if d.OnRejectTarget != nil {
			rejectPhase = &d.OnRejectTarget.Phase
			rejectStep = &d.OnRejectTarget.Step
		}

		result, err := q.Exec(ctx, query,
			d.Phase,
			d.StepNumber,
			d.Title,
			d.Description,
			d.ResponsibleRole,
			d.EstimatedDays,
			d.MaxDays,
			rejectPhase,
			rejectStep,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert step %d.%d: %w", d.Phase, d.StepNumber, err)
		}
		changed += int(result.RowsAffected())
	}
	return changed, nil
}

// LoadAll возвращает все шаги в порядке (phase, step_number).
func (r *StepRepo) LoadAll(ctx context.Context) ([]domain.StepDefinition, error) {
	return loadSteps(ctx, r.pool)
}

func loadSteps(ctx context.Context, q querier) ([]domain.StepDefinition, error) {
	query := `
		SELECT phase, step_number, title, description, responsible_role,
		       estimated_days, max_days, reject_phase, reject_step
		FROM step_definitions
		ORDER BY phase, step_number
	`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	defer rows.Close()

	var defs []domain.StepDefinition
	for rows.Next() {
		var d domain.StepDefinition
		var rejectPhase, rejectStep *int

		err := rows.Scan(
			&d.Phase,
			&d.StepNumber,
			&d.Title,
			&d.Description,
			&d.ResponsibleRole,
			&d.EstimatedDays,
			&d.MaxDays,
			&rejectPhase,
			&rejectStep,
		)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}

		if rejectPhase != nil && rejectStep != nil {
			d.OnRejectTarget = &domain.StepRef{Phase: *rejectPhase, Step: *rejectStep}
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// Sync сверяет каталог процесса с таблицей step_definitions.
//
// Пустая таблица заполняется из base. Если таблица уже заполнена, её
// структура (позиции, роли, цели on_reject) должна совпадать с base,
// иначе возвращается ошибка с catalog.ErrCatalogMismatch: вариант
// workflow нельзя подложить под базу, где сохранён другой каталог.
// Тексты и сроки в таблице обновляются из base.
//
// Возвращает base и число добавленных или обновлённых шагов.
func (r *StepRepo) Sync(ctx context.Context, base *catalog.Catalog) (*catalog.Catalog, int, error) {
	return syncCatalog(ctx, r, base)
}

// stepTable — операции StepRepo, которые использует Sync.
type stepTable interface {
	Seed(ctx context.Context, defs []domain.StepDefinition) (int, error)
	LoadAll(ctx context.Context) ([]domain.StepDefinition, error)
}

func syncCatalog(ctx context.Context, table stepTable, base *catalog.Catalog) (*catalog.Catalog, int, error) {
	defs, err := table.LoadAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	if len(defs) > 0 {
		stored, err := catalog.New(defs)
		if err != nil {
			return nil, 0, fmt.Errorf("stored catalog: %w", err)
		}
		if err := catalog.Compare(base, stored); err != nil {
			return nil, 0, fmt.Errorf("sync step catalog: %w", err)
		}
	}

	changed, err := table.Seed(ctx, base.Steps())
	if err != nil {
		return nil, 0, err
	}
	return base, changed, nil
}
