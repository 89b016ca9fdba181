package config

import (
	"flag"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN    string        `env:"DATABASE_URI"`
	AuthSecret     string        `env:"AUTH_SECRET"`
	PublicURL      string        `env:"PUBLIC_URL"`
	BlobMaxSizeMB  int           `env:"BLOB_MAX_MB"`
	SessionTTL     time.Duration `env:"SESSION_TTL"`
	RoleCacheTTL   time.Duration `env:"ROLE_CACHE_TTL"`
	DefaultRole    string        `env:"DEFAULT_ROLE"`
	BootstrapAdmin string        `env:"BOOTSTRAP_ADMIN"`
	RedisURL       string        `env:"REDIS_URL"`

	// Модель ассистента
	LLMAPIKey  string        `env:"LLM_API_KEY"`
	LLMBaseURL string        `env:"LLM_BASE_URL"`
	LLMModel   string        `env:"LLM_MODEL"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL string `env:"-"`
	Version   bool   `env:"-"` // show client version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres DSN или путь к файлу SQLite)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "внешний адрес сервера для ссылок на файлы")
	flag.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "адрес Redis для рассылки изменений между экземплярами")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address of the KnowBase server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)

func (cfg *Config) applyDefaults() {
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "kbase.db"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.BlobMaxSizeMB <= 0 {
		cfg.BlobMaxSizeMB = 50
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.RoleCacheTTL <= 0 {
		cfg.RoleCacheTTL = 5 * time.Minute
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = "user"
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 60 * time.Second
	}

	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}
	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = cfg.ServerURL
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
}

// BlobMaxBytes — лимит размера вложения в байтах.
func (cfg *Config) BlobMaxBytes() int64 {
	return int64(cfg.BlobMaxSizeMB) * 1024 * 1024
}
