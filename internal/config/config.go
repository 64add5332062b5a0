package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション設定を表す
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Lock      LockConfig
	Seating   SeatingConfig
	Messaging MessagingConfig
	Metrics   MetricsConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Driver         string // postgres | pgx
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	// Enabled が false なら空席集計のキャッシュを使わない（Redis ロック使用時は常に true）
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig は座席ストアの選択
type StorageConfig struct {
	Backend string // memory | postgres
}

// LockConfig は座席ロックの設定
type LockConfig struct {
	Backend     string // memory | redis
	TTL         time.Duration
	RetryDelay  time.Duration
	WaitTimeout time.Duration
}

// SeatingConfig は仮押さえと期限切れ回収の設定
type SeatingConfig struct {
	HoldTTL        time.Duration
	ReaperInterval time.Duration
	ReaperChunk    int
	StrictRelease  bool
	CacheTTL       time.Duration
}

// MessagingConfig は座席状態変更の通知先
type MessagingConfig struct {
	Backend string // none | nats | amqp
	URL     string
	Subject string
}

// MetricsConfig は /metrics の認証設定
type MetricsConfig struct {
	Username string
	Password string
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	LockMemory = "memory"
	LockRedis  = "redis"

	MessagingNone = "none"
	MessagingNATS = "nats"
	MessagingAMQP = "amqp"
)

// Load は環境変数から設定を読み込む
// カレントディレクトリに .env があれば先に読み込む（既存の環境変数は上書きしない）
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "postgres"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "seat_reservation"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", ""), // 空なら埋め込みのマイグレーションを使う
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", StorageMemory),
		},
		Lock: LockConfig{
			Backend:     getEnv("LOCK_BACKEND", LockMemory),
			TTL:         getDurationEnv("LOCK_TTL", 10*time.Second),
			RetryDelay:  getDurationEnv("LOCK_RETRY_DELAY", 20*time.Millisecond),
			WaitTimeout: getDurationEnv("LOCK_WAIT_TIMEOUT", 5*time.Second),
		},
		Seating: SeatingConfig{
			HoldTTL:        getDurationEnv("SEAT_HOLD_TTL", 15*time.Minute),
			ReaperInterval: getDurationEnv("REAPER_INTERVAL", time.Minute),
			ReaperChunk:    getIntEnv("REAPER_CHUNK_SIZE", 100),
			StrictRelease:  getBoolEnv("SEAT_STRICT_RELEASE", false),
			CacheTTL:       getDurationEnv("SEAT_CACHE_TTL", 5*time.Second),
		},
		Messaging: MessagingConfig{
			Backend: getEnv("MESSAGING_BACKEND", MessagingNone),
			URL:     getEnv("MESSAGING_URL", ""),
			Subject: getEnv("MESSAGING_SUBJECT", "seats.state_changed"),
		},
		Metrics: MetricsConfig{
			Username: getEnv("METRICS_USERNAME", ""),
			Password: getEnv("METRICS_PASSWORD", ""),
		},
	}

	// PaaS 形式の接続URLがあれば個別設定より優先する
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		applyDatabaseURL(&cfg.Database, raw)
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		applyRedisURL(&cfg.Redis, raw)
		cfg.Redis.Enabled = true
	}
	if cfg.Lock.Backend == LockRedis {
		cfg.Redis.Enabled = true
	}

	return cfg
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// URL は golang-migrate 用の接続URLを返す
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func applyDatabaseURL(c *DatabaseConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		c.DBName = name
	}
	// 外部のマネージドDBは TLS 前提
	c.SSLMode = "require"
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}
}

func applyRedisURL(c *RedisConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if db, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/")); err == nil {
		c.DB = db
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
