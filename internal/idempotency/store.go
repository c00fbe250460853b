package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default configuration values.
const (
	defaultTTL     = 24 * time.Hour
	defaultLockTTL = 30 * time.Second
	keyPrefix      = "tenderflow:idem:"
)

var (
	// ErrInProgress — запрос с тем же ключом ещё выполняется.
	ErrInProgress = errors.New("request with this idempotency key is in progress")

	// ErrEmptyKey — пустой ключ идемпотентности.
	ErrEmptyKey = errors.New("idempotency key is empty")
)

// Response — сохранённый ответ на запрос.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// Config — конфигурация Store.
type Config struct {
	Addr     string
	Password string
	DB       int

	TTL     time.Duration // время хранения ответа (default: 24h)
	LockTTL time.Duration // время жизни блокировки выполняющегося запроса (default: 30s)

	Logger *slog.Logger
}

// Store хранит ответы на запросы с ключом идемпотентности в Redis.
//
// Повтор запроса с тем же ключом получает сохранённый ответ
// вместо повторного выполнения перехода.
type Store struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	lockTTL time.Duration
	logger  *slog.Logger
}

// New подключается к Redis и проверяет соединение.
func New(ctx context.Context, cfg Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}

	s := NewWithClient(rdb, cfg)
	s.logger.Info("connected to redis", "addr", cfg.Addr)
	return s, nil
}

// NewWithClient создаёт Store поверх готового клиента.
func NewWithClient(rdb redis.UniversalClient, cfg Config) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		rdb:     rdb,
		ttl:     ttl,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

// Acquire начинает обработку запроса с ключом key.
//
// Если ответ уже сохранён, возвращает его. Иначе ставит блокировку и
// возвращает nil: вызывающий выполняет запрос и вызывает Save или Release.
// Если блокировку держит другой запрос, возвращает ErrInProgress.
func (s *Store) Acquire(ctx context.Context, key string) (*Response, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	cached, err := s.load(ctx, key)
	if err != nil || cached != nil {
		return cached, err
	}

	ok, err := s.rdb.SetNX(ctx, lockKey(key), "1", s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock idempotency key: %w", err)
	}
	if !ok {
		// Ответ мог быть сохранён между чтением и блокировкой.
		cached, err := s.load(ctx, key)
		if err != nil || cached != nil {
			return cached, err
		}
		return nil, ErrInProgress
	}
	return nil, nil
}

// Save сохраняет ответ и снимает блокировку.
func (s *Store) Save(ctx context.Context, key string, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, resultKey(key), data, s.ttl)
		pipe.Del(ctx, lockKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("save idempotent response: %w", err)
	}
	return nil
}

// Release снимает блокировку без сохранения ответа,
// чтобы клиент мог повторить запрос.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, lockKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close закрывает соединение.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// --- Helpers ---

func (s *Store) load(ctx context.Context, key string) (*Response, error) {
	data, err := s.rdb.Get(ctx, resultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load idempotent response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		s.logger.Warn("discarding corrupt idempotent response", "key", key, "error", err)
		return nil, nil
	}
	return &resp, nil
}

func resultKey(key string) string {
	return keyPrefix + "result:" + key
}

func lockKey(key string) string {
	return keyPrefix + "lock:" + key
}
