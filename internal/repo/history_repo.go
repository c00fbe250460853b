package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// HistoryRepo — журнал шагов тендеров.
// Записи только добавляются (в транзакции перехода) и читаются.
type HistoryRepo struct {
	q querier
}

// NewHistoryRepo создаёт новый HistoryRepo.
func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{q: pool}
}

// ListForTender возвращает журнал тендера по возрастанию created_at, затем id.
func (r *HistoryRepo) ListForTender(ctx context.Context, tenderID uuid.UUID) ([]domain.StepHistoryEntry, error) {
	query := `
		SELECT id, tender_id, phase, step_number, actor_id, action,
		       comments, completed_at, created_at
		FROM tender_step_history
		WHERE tender_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.q.Query(ctx, query, tenderID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []domain.StepHistoryEntry{}
	for rows.Next() {
		var e domain.StepHistoryEntry
		err := rows.Scan(
			&e.ID,
			&e.TenderID,
			&e.Step.Phase,
			&e.Step.Step,
			&e.ActorID,
			&e.Action,
			&e.Comments,
			&e.CompletedAt,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// appendHistory добавляет запись и заполняет её ID.
func appendHistory(ctx context.Context, q querier, e *domain.StepHistoryEntry) error {
	query := `
		INSERT INTO tender_step_history (tender_id, phase, step_number, actor_id,
		                                 action, comments, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := q.QueryRow(ctx, query,
		e.TenderID,
		e.Step.Phase,
		e.Step.Step,
		nullUUID(e.ActorID),
		e.Action,
		e.Comments,
		e.CompletedAt,
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// lastHistoryAt возвращает created_at последней записи тендера
// или нулевое время, если записей нет.
func lastHistoryAt(ctx context.Context, q querier, tenderID uuid.UUID) (time.Time, error) {
	var last *time.Time
	err := q.QueryRow(ctx,
		`SELECT max(created_at) FROM tender_step_history WHERE tender_id = $1`,
		tenderID,
	).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("last history time: %w", err)
	}
	if last == nil {
		return time.Time{}, nil
	}
	return *last, nil
}
