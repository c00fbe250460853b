package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultLockKey — ключ advisory lock лидера планировщика.
const DefaultLockKey int64 = 424242

// Elector решает, выполняет ли текущий процесс тик.
type Elector interface {
	TryLead(ctx context.Context) (bool, error)
}

// lockConn — соединение, на котором держится session-level lock.
type lockConn interface {
	TryLock(ctx context.Context, key int64) (bool, error)
	Unlock(ctx context.Context, key int64) error
	Ping(ctx context.Context) error
	// Release возвращает соединение в пул. Только для соединения без lock.
	Release()
	// Close закрывает соединение, сервер снимает lock вместе с сессией.
	Close(ctx context.Context) error
}

type poolConn struct {
	*pgxpool.Conn
}

func (c poolConn) TryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := c.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	return ok, err
}

func (c poolConn) Unlock(ctx context.Context, key int64) error {
	_, err := c.Exec(ctx, "SELECT pg_advisory_unlock($1)", key)
	return err
}

func (c poolConn) Close(ctx context.Context) error {
	return c.Hijack().Close(ctx)
}

// AdvisoryLeader — leader election через pg_try_advisory_lock.
//
// Session-level lock живёт на отдельном соединении, которое удерживается
// всё время лидерства. Потеря соединения снимает lock, и лидерство
// переходит к другому экземпляру.
type AdvisoryLeader struct {
	acquire func(ctx context.Context) (lockConn, error)
	key     int64
	logger  *slog.Logger

	mu   sync.Mutex
	conn lockConn
}

// NewAdvisoryLeader создаёт AdvisoryLeader. key == 0 — DefaultLockKey.
func NewAdvisoryLeader(pool *pgxpool.Pool, key int64, logger *slog.Logger) *AdvisoryLeader {
	return newAdvisoryLeader(func(ctx context.Context) (lockConn, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return poolConn{conn}, nil
	}, key, logger)
}

func newAdvisoryLeader(acquire func(ctx context.Context) (lockConn, error), key int64, logger *slog.Logger) *AdvisoryLeader {
	if key == 0 {
		key = DefaultLockKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisoryLeader{acquire: acquire, key: key, logger: logger}
}

// TryLead пытается стать лидером или подтверждает лидерство.
func (l *AdvisoryLeader) TryLead(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		err := l.conn.Ping(ctx)
		if err == nil {
			return true, nil
		}
		// Сессия может быть жива и держать lock: в пул её возвращать нельзя.
		l.logger.Warn("leader connection check failed, dropping leadership", "error", err)
		l.dropConn(ctx)
	}

	conn, err := l.acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}

	ok, err := conn.TryLock(ctx, l.key)
	if err != nil {
		l.closeConn(ctx, conn)
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return false, nil
	}

	l.conn = conn
	l.logger.Info("became scheduler leader", "lock_key", l.key)
	return true, nil
}

// Resign отпускает лидерство.
func (l *AdvisoryLeader) Resign(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return
	}
	if err := l.conn.Unlock(ctx, l.key); err != nil {
		l.logger.Warn("advisory unlock failed", "error", err)
		l.dropConn(ctx)
		return
	}
	l.conn.Release()
	l.conn = nil
}

func (l *AdvisoryLeader) dropConn(ctx context.Context) {
	l.closeConn(ctx, l.conn)
	l.conn = nil
}

func (l *AdvisoryLeader) closeConn(ctx context.Context, conn lockConn) {
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		l.logger.Warn("failed to close leader connection", "error", err)
	}
}

// alwaysLeader — единственный экземпляр без координации.
type alwaysLeader struct{}

func (alwaysLeader) TryLead(context.Context) (bool, error) { return true, nil }
