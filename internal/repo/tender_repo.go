package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Tenderflow/internal/domain"
)

const tenderColumns = `
	t.id, t.reference, t.title, t.description, t.amount, t.metadata,
	t.current_phase, t.current_step, t.current_actor_id, t.status,
	t.deadline, t.overdue_notified_at, t.created_by, t.version,
	t.created_at, t.updated_at`

// TenderRepo — репозиторий для чтения тендеров вне транзакций перехода.
type TenderRepo struct {
	q querier
}

// NewTenderRepo создаёт новый TenderRepo.
func NewTenderRepo(pool *pgxpool.Pool) *TenderRepo {
	return &TenderRepo{q: pool}
}

// GetByID возвращает тендер по ID.
func (r *TenderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tender, error) {
	return getTender(ctx, r.q, id, false)
}

// List возвращает тендеры с фильтрацией.
//
// ActorRole выбирает тендеры, текущий исполнитель которых держит роль;
// тендеры без исполнителя в такую выборку не попадают.
func (r *TenderRepo) List(ctx context.Context, filter TenderFilter) ([]domain.Tender, error) {
	query := `
		SELECT ` + tenderColumns + `
		FROM tenders t
		LEFT JOIN users u ON u.id = t.current_actor_id
		WHERE ($1::text IS NULL OR t.status = $1)
		  AND ($2::uuid IS NULL OR t.current_actor_id = $2)
		  AND ($3::text IS NULL OR u.role = $3)
		ORDER BY t.created_at DESC, t.id
		LIMIT $4 OFFSET $5
	`
	rows, err := r.q.Query(ctx, query,
		nullString(string(filter.Status)),
		nullUUID(filter.ActorID),
		nullString(string(filter.ActorRole)),
		nullInt(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list tenders: %w", err)
	}
	return collectTenders(rows)
}

// ListOverdue возвращает активные тендеры с истёкшим сроком,
// по которым ещё не отправлялось уведомление.
func (r *TenderRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Tender, error) {
	query := `
		SELECT ` + tenderColumns + `
		FROM tenders t
		WHERE t.status = 'active'
		  AND t.deadline < $1
		  AND t.overdue_notified_at IS NULL
		ORDER BY t.deadline ASC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue tenders: %w", err)
	}
	return collectTenders(rows)
}

// MarkOverdueNotified отмечает, что уведомление о просрочке отправлено.
// Срок сверяется, чтобы не отметить тендер, успевший перейти на новый шаг.
func (r *TenderRepo) MarkOverdueNotified(ctx context.Context, id uuid.UUID, deadline, at time.Time) error {
	query := `
		UPDATE tenders
		SET overdue_notified_at = $3
		WHERE id = $1 AND deadline = $2 AND status = 'active'
	`
	result, err := r.q.Exec(ctx, query, id, deadline, at)
	if err != nil {
		return fmt.Errorf("mark overdue notified: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActiveAssignments считает активные тендеры на каждом исполнителе.
func (r *TenderRepo) CountActiveAssignments(ctx context.Context, actorIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT current_actor_id, count(*)
		FROM tenders
		WHERE status = 'active' AND current_actor_id = ANY($1::uuid[])
		GROUP BY current_actor_id
	`
	rows, err := r.q.Query(ctx, query, actorIDs)
	if err != nil {
		return nil, fmt.Errorf("count assignments: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int, len(actorIDs))
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan assignment count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// --- Transactional operations ---

// getTender читает тендер; forUpdate блокирует строку до конца транзакции.
func getTender(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*domain.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders t WHERE t.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanTender(q.QueryRow(ctx, query, id))
}

func insertTender(ctx context.Context, q querier, t *domain.Tender) error {
	metadataJSON, err := marshalMetadata(t.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tenders (id, reference, title, description, amount, metadata,
		                     current_phase, current_step, current_actor_id, status,
		                     deadline, created_by, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = q.Exec(ctx, query,
		t.ID,
		t.Reference,
		t.Title,
		t.Description,
		t.Amount,
		metadataJSON,
		t.CurrentPhase,
		t.CurrentStep,
		nullUUID(t.CurrentActorID),
		t.Status,
		t.Deadline,
		t.CreatedBy,
		t.Version,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert tender %s: %w", t.Reference, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert tender: %w", err)
	}
	return nil
}

// updateTender сохраняет изменяемые поля тендера с проверкой версии.
// При успехе увеличивает t.Version.
func updateTender(ctx context.Context, q querier, t *domain.Tender) error {
	query := `
		UPDATE tenders
		SET current_phase = $3, current_step = $4, current_actor_id = $5,
		    status = $6, deadline = $7, overdue_notified_at = $8,
		    updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2
	`
	result, err := q.Exec(ctx, query,
		t.ID,
		t.Version,
		t.CurrentPhase,
		t.CurrentStep,
		nullUUID(t.CurrentActorID),
		t.Status,
		t.Deadline,
		t.OverdueNotifiedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tender: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update tender %s at version %d: %w", t.ID, t.Version, ErrVersionConflict)
	}
	t.Version++
	return nil
}

// --- Helpers ---

// TenderFilter — параметры фильтрации тендеров.
type TenderFilter struct {
	Status    domain.TenderStatus
	ActorID   *uuid.UUID
	ActorRole domain.Role
	Limit     int // 0 — без ограничения
	Offset    int
}

// scanTender сканирует одну строку в Tender.
func scanTender(row pgx.Row) (*domain.Tender, error) {
	var t domain.Tender
	var metadataJSON []byte

	err := row.Scan(
		&t.ID,
		&t.Reference,
		&t.Title,
		&t.Description,
		&t.Amount,
		&metadataJSON,
		&t.CurrentPhase,
		&t.CurrentStep,
		&t.CurrentActorID,
		&t.Status,
		&t.Deadline,
		&t.OverdueNotifiedAt,
		&t.CreatedBy,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tender: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &t.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &t, nil
}

// collectTenders читает все строки и закрывает rows.
func collectTenders(rows pgx.Rows) ([]domain.Tender, error) {
	defer rows.Close()

	tenders := []domain.Tender{}
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, *t)
	}
	return tenders, rows.Err()
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

// nullInt возвращает nil для нуля (LIMIT NULL — без ограничения).
func nullInt(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// isUniqueViolation проверяет код ошибки 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
