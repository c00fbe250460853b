package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/repo"
)

// memStore — хранилище в памяти. Транзакция работает с копией состояния
// и применяет её только при успешном завершении fn.
type memStore struct {
	mu      sync.Mutex
	tenders map[uuid.UUID]domain.Tender
	history []domain.StepHistoryEntry
	users   map[uuid.UUID]domain.User
	seq     int64
	nextID  int64

	// updateErr подменяет результат UpdateTender.
	updateErr error
	txCount   int
}

func newMemStore() *memStore {
	return &memStore{
		tenders: make(map[uuid.UUID]domain.Tender),
		users:   make(map[uuid.UUID]domain.User),
	}
}

func (m *memStore) addUser(name string, role domain.Role, createdAt time.Time) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := domain.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     name + "@example.org",
		Role:      role,
		IsAdmin:   role == domain.RoleAdmin,
		IsActive:  true,
		CreatedAt: createdAt,
	}
	m.users[u.ID] = u
	return u
}

func (m *memStore) tender(id uuid.UUID) domain.Tender {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tenders[id]
}

func (m *memStore) historyFor(id uuid.UUID) []domain.StepHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.StepHistoryEntry
	for _, e := range m.history {
		if e.TenderID == id {
			out = append(out, e)
		}
	}
	return out
}

// setPosition ставит тендер на позицию в обход движка.
func (m *memStore) setPosition(id uuid.UUID, pos domain.StepRef, actorID *uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tenders[id]
	t.CurrentPhase = pos.Phase
	t.CurrentStep = pos.Step
	t.CurrentActorID = actorID
	m.tenders[id] = t
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx repo.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	tx := &memTx{
		tenders:   make(map[uuid.UUID]domain.Tender, len(m.tenders)),
		history:   append([]domain.StepHistoryEntry(nil), m.history...),
		seq:       m.seq,
		nextID:    m.nextID,
		updateErr: m.updateErr,
	}
	for id, t := range m.tenders {
		tx.tenders[id] = t
	}

	if err := fn(tx); err != nil {
		return err
	}

	m.tenders = tx.tenders
	m.history = tx.history
	m.seq = tx.seq
	m.nextID = tx.nextID
	return nil
}

func (m *memStore) GetTender(_ context.Context, id uuid.UUID) (*domain.Tender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) ListTenders(_ context.Context, filter repo.TenderFilter) ([]domain.Tender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Tender{}
	for _, t := range m.tenders {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.ActorID != nil && (t.CurrentActorID == nil || *t.CurrentActorID != *filter.ActorID) {
			continue
		}
		if filter.ActorRole != "" {
			if t.CurrentActorID == nil {
				continue
			}
			if u, ok := m.users[*t.CurrentActorID]; !ok || u.Role != filter.ActorRole {
				continue
			}
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if filter.Offset >= len(out) {
		return []domain.Tender{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) ListHistory(_ context.Context, tenderID uuid.UUID) ([]domain.StepHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.StepHistoryEntry{}
	for _, e := range m.history {
		if e.TenderID == tenderID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

// ListActiveByRole делает memStore справочником для actor.Resolver.
// Вызывается внутри транзакции, поэтому не берёт m.mu: пользователи
// в тестах добавляются только до переходов.
func (m *memStore) ListActiveByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	out := []domain.User{}
	for _, u := range m.users {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

type memTx struct {
	tenders   map[uuid.UUID]domain.Tender
	history   []domain.StepHistoryEntry
	seq       int64
	nextID    int64
	updateErr error
}

func (tx *memTx) LockTender(_ context.Context, id uuid.UUID) (*domain.Tender, error) {
	t, ok := tx.tenders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &t, nil
}

func (tx *memTx) InsertTender(_ context.Context, t *domain.Tender) error {
	if _, ok := tx.tenders[t.ID]; ok {
		return repo.ErrAlreadyExists
	}
	tx.tenders[t.ID] = *t
	return nil
}

func (tx *memTx) UpdateTender(_ context.Context, t *domain.Tender) error {
	if tx.updateErr != nil {
		return tx.updateErr
	}
	stored, ok := tx.tenders[t.ID]
	if !ok || stored.Version != t.Version {
		return repo.ErrVersionConflict
	}
	t.Version++
	tx.tenders[t.ID] = *t
	return nil
}

func (tx *memTx) AppendHistory(_ context.Context, e *domain.StepHistoryEntry) error {
	tx.nextID++
	e.ID = tx.nextID
	tx.history = append(tx.history, *e)
	return nil
}

func (tx *memTx) LastHistoryAt(_ context.Context, tenderID uuid.UUID) (time.Time, error) {
	var last time.Time
	for _, e := range tx.history {
		if e.TenderID == tenderID && e.CreatedAt.After(last) {
			last = e.CreatedAt
		}
	}
	return last, nil
}

func (tx *memTx) NextReferenceSeq(_ context.Context) (int64, error) {
	tx.seq++
	return tx.seq, nil
}

// recordingPublisher запоминает опубликованные события.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.TransitionEvent
	err    error
}

func (p *recordingPublisher) PublishTransition(_ context.Context, e domain.TransitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

// clock — управляемый источник времени.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
