package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// Tx — операции, выполняемые внутри одной транзакции перехода.
// Запись журнала и изменение тендера фиксируются вместе или не фиксируются вовсе.
type Tx interface {
	// LockTender читает тендер с блокировкой строки (SELECT ... FOR UPDATE).
	LockTender(ctx context.Context, id uuid.UUID) (*domain.Tender, error)

	InsertTender(ctx context.Context, t *domain.Tender) error

	// UpdateTender сохраняет тендер, если его версия не изменилась,
	// иначе возвращает ErrVersionConflict.
	UpdateTender(ctx context.Context, t *domain.Tender) error

	AppendHistory(ctx context.Context, e *domain.StepHistoryEntry) error

	// LastHistoryAt — created_at последней записи журнала тендера.
	LastHistoryAt(ctx context.Context, tenderID uuid.UUID) (time.Time, error)

	// NextReferenceSeq — следующее значение последовательности номеров тендеров.
	NextReferenceSeq(ctx context.Context) (int64, error)
}

// Store объединяет репозитории и транзакции для сервиса workflow.
type Store struct {
	pool    *pgxpool.Pool
	tenders *TenderRepo
	history *HistoryRepo
	users   *UserRepo
}

// NewStore создаёт Store поверх пула.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:    pool,
		tenders: NewTenderRepo(pool),
		history: NewHistoryRepo(pool),
		users:   NewUserRepo(pool),
	}
}

// WithinTx выполняет fn в транзакции. Ошибка fn откатывает транзакцию.
func (s *Store) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{q: tx})
	})
}

// GetTender возвращает тендер без блокировки.
func (s *Store) GetTender(ctx context.Context, id uuid.UUID) (*domain.Tender, error) {
	return s.tenders.GetByID(ctx, id)
}

// ListTenders возвращает тендеры по фильтру.
func (s *Store) ListTenders(ctx context.Context, filter TenderFilter) ([]domain.Tender, error) {
	return s.tenders.List(ctx, filter)
}

// ListHistory возвращает журнал тендера.
func (s *Store) ListHistory(ctx context.Context, tenderID uuid.UUID) ([]domain.StepHistoryEntry, error) {
	return s.history.ListForTender(ctx, tenderID)
}

// GetUser возвращает пользователя.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// pgTx реализует Tx поверх pgx.Tx.
type pgTx struct {
	q querier
}

func (t *pgTx) LockTender(ctx context.Context, id uuid.UUID) (*domain.Tender, error) {
	return getTender(ctx, t.q, id, true)
}

func (t *pgTx) InsertTender(ctx context.Context, tender *domain.Tender) error {
	return insertTender(ctx, t.q, tender)
}

func (t *pgTx) UpdateTender(ctx context.Context, tender *domain.Tender) error {
	return updateTender(ctx, t.q, tender)
}

func (t *pgTx) AppendHistory(ctx context.Context, e *domain.StepHistoryEntry) error {
	return appendHistory(ctx, t.q, e)
}

func (t *pgTx) LastHistoryAt(ctx context.Context, tenderID uuid.UUID) (time.Time, error) {
	return lastHistoryAt(ctx, t.q, tenderID)
}

func (t *pgTx) NextReferenceSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := t.q.QueryRow(ctx, `SELECT nextval('tender_reference_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next reference: %w", err)
	}
	return seq, nil
}
