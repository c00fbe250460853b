package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/shaiso/Tenderflow/internal/actor"
	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/repo"
)

// EnvPrefix — префикс переменных окружения: TENDERFLOW_DB_URL и т.п.
const EnvPrefix = "TENDERFLOW"

// Config — конфигурация всех процессов Tenderflow.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Log       LogConfig       `mapstructure:"log"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig — HTTP сервер API.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig — PostgreSQL.
type DBConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`

	// Migrations — применять миграции при старте API.
	Migrations bool `mapstructure:"migrations"`
}

// RedisConfig — хранилище ключей идемпотентности.
// Пустой Addr отключает идемпотентность.
type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// RabbitMQConfig — брокер событий. Пустой URL отключает публикацию.
type RabbitMQConfig struct {
	URL string `mapstructure:"url"`
}

// LogConfig — логирование.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WorkflowConfig — параметры движка переходов.
type WorkflowConfig struct {
	DefaultDeadline  time.Duration `mapstructure:"default_deadline"`
	BlockUnassigned  bool          `mapstructure:"block_unassigned"`
	Resolver         string        `mapstructure:"resolver"`
	SupervisoryRoles []string      `mapstructure:"supervisory_roles"`
}

// CatalogConfig — источник каталога шагов. Пустой File — встроенный каталог.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// SchedulerConfig — проверка просроченных шагов.
type SchedulerConfig struct {
	Cron string `mapstructure:"cron"`
}

// NotifierConfig — доставка уведомлений. Пустой WebhookURL — только лог.
type NotifierConfig struct {
	WebhookURL  string        `mapstructure:"webhook_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// MetricsConfig — порт /metrics для фоновых процессов.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// Load загружает конфигурацию.
// Приоритет: переменные окружения > файл > значения по умолчанию.
// Пустой path — config.yaml в ./config или текущей директории, если он есть.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("db.url", repo.DefaultDSN)
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.migrations", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.idempotency_ttl", "24h")

	v.SetDefault("rabbitmq.url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("workflow.default_deadline", "168h")
	v.SetDefault("workflow.block_unassigned", false)
	v.SetDefault("workflow.resolver", string(actor.StrategyFirstMatch))
	v.SetDefault("workflow.supervisory_roles", []string{string(domain.RoleAdmin)})

	v.SetDefault("catalog.file", "")

	v.SetDefault("scheduler.cron", "*/15 * * * *")

	v.SetDefault("notifier.webhook_url", "")
	v.SetDefault("notifier.timeout", "10s")
	v.SetDefault("notifier.max_attempts", 3)

	v.SetDefault("metrics.port", 9090)
}

// Validate проверяет значения, без которых процессы не могут стартовать.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("config: metrics.port must be in 1-65535, got %d", c.Metrics.Port)
	}
	if c.DB.URL == "" {
		return errors.New("config: db.url is required")
	}
	if c.DB.MaxConns <= 0 {
		return fmt.Errorf("config: db.max_conns must be positive, got %d", c.DB.MaxConns)
	}
	if c.Redis.Addr != "" && c.Redis.IdempotencyTTL <= 0 {
		return errors.New("config: redis.idempotency_ttl must be positive")
	}
	if c.Notifier.Timeout <= 0 || c.Notifier.MaxAttempts <= 0 {
		return errors.New("config: notifier.timeout and notifier.max_attempts must be positive")
	}
	if c.Workflow.DefaultDeadline <= 0 {
		return errors.New("config: workflow.default_deadline must be positive")
	}

	switch actor.Strategy(c.Workflow.Resolver) {
	case actor.StrategyFirstMatch, actor.StrategyRoundRobin, actor.StrategyLeastLoaded:
	default:
		return fmt.Errorf("config: workflow.resolver: %w: %q", actor.ErrUnknownStrategy, c.Workflow.Resolver)
	}

	if _, err := c.Workflow.Roles(); err != nil {
		return err
	}

	if _, err := cron.ParseStandard(c.Scheduler.Cron); err != nil {
		return fmt.Errorf("config: scheduler.cron %q: %w", c.Scheduler.Cron, err)
	}
	return nil
}

// Roles возвращает надзорные роли.
func (w WorkflowConfig) Roles() ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(w.SupervisoryRoles))
	for _, s := range w.SupervisoryRoles {
		role, err := domain.ParseRole(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("config: workflow.supervisory_roles: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// Addr возвращает адрес HTTP сервера API.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Addr возвращает адрес сервера /metrics.
func (m MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", m.Port)
}
