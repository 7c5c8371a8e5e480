package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 汇总服务端配置，全部来自环境变量（可由 .env 预先注入）。
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ExportLinkTTL  time.Duration `mapstructure:"export_link_ttl"`
	MetricsSecret  string        `mapstructure:"metrics_secret"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig 令牌签名与登录限流。
type AuthConfig struct {
	PrivateKeyPath        string        `mapstructure:"private_key_path"`
	PublicKeyPath         string        `mapstructure:"public_key_path"`
	AccessTokenTTL        time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL       time.Duration `mapstructure:"refresh_token_ttl"`
	LoginRateLimitPerHour int           `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int           `mapstructure:"login_lock_threshold"`
	LoginLockTTL          time.Duration `mapstructure:"login_lock_ttl"`
}

// WorkerConfig 导出任务消费者配置。
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	PDFTimeout  time.Duration `mapstructure:"pdf_timeout"`
	MaxRetry    int           `mapstructure:"max_retry"`
}

// ClientConfig 编辑器命令行使用的配置。
type ClientConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	LoadRetries     uint64        `mapstructure:"load_retries"`
	RetryBase       time.Duration `mapstructure:"retry_base"`
	CredentialsPath string        `mapstructure:"credentials_path"`
	DraftPath       string        `mapstructure:"draft_path"`
	VersionsRedis   string        `mapstructure:"versions_redis"`
	VersionsTTL     time.Duration `mapstructure:"versions_ttl"`
	PushgatewayURL  string        `mapstructure:"pushgateway_url"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr 返回 host:port。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v, serverEnv); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.API.AllowedOrigins = splitList(cfg.API.AllowedOrigins)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadClient 只读取 client 段，供命令行编辑器使用。
func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	v := viper.New()
	setClientDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v, clientEnv); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg struct {
		Client ClientConfig `mapstructure:"client"`
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateClient(cfg.Client); err != nil {
		return nil, err
	}
	return &cfg.Client, nil
}

// loadDotEnv 若工作目录存在 .env 则先注入环境变量，已有变量不会被覆盖。
func loadDotEnv() {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("load env file failed", slog.String("path", path), slog.Any("error", err))
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.export_link_ttl", 5*time.Minute)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumebuilder")
	v.SetDefault("database.user", "resumebuilder")
	v.SetDefault("database.password", "resumebuilder")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.private_key_path", "keys/jwt_private.pem")
	v.SetDefault("auth.public_key_path", "keys/jwt_public.pem")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.login_rate_limit_per_hour", 10)
	v.SetDefault("auth.login_lock_threshold", 5)
	v.SetDefault("auth.login_lock_ttl", 15*time.Minute)
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.pdf_timeout", 60*time.Second)
	v.SetDefault("worker.max_retry", 5)
}

func setClientDefaults(v *viper.Viper) {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	base := filepath.Join(dir, "resumebuilder")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("client.load_retries", 2)
	v.SetDefault("client.retry_base", 200*time.Millisecond)
	v.SetDefault("client.credentials_path", filepath.Join(base, "credentials.json"))
	v.SetDefault("client.draft_path", filepath.Join(base, "draft.json"))
	v.SetDefault("client.versions_ttl", 0)
}

var serverEnv = map[string]string{
	"api.port":                       "API_PORT",
	"api.allowed_origins":            "API_ALLOWED_ORIGINS",
	"api.export_link_ttl":            "API_EXPORT_LINK_TTL",
	"api.metrics_secret":             "API_METRICS_SECRET",
	"database.host":                  "DATABASE_HOST",
	"database.port":                  "DATABASE_PORT",
	"database.name":                  "POSTGRES_DB",
	"database.user":                  "POSTGRES_USER",
	"database.password":              "POSTGRES_PASSWORD",
	"database.sslmode":               "DATABASE_SSLMODE",
	"redis.host":                     "REDIS_HOST",
	"redis.port":                     "REDIS_PORT",
	"redis.password":                 "REDIS_PASSWORD",
	"redis.db":                       "REDIS_DB",
	"minio.endpoint":                 "MINIO_ENDPOINT",
	"minio.public_endpoint":          "MINIO_PUBLIC_ENDPOINT",
	"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
	"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
	"minio.use_ssl":                  "MINIO_USE_SSL",
	"minio.bucket":                   "MINIO_BUCKET",
	"minio.region":                   "MINIO_REGION",
	"minio.bucket_lookup":            "MINIO_BUCKET_LOOKUP",
	"minio.auto_create_bucket":       "MINIO_AUTO_CREATE_BUCKET",
	"auth.private_key_path":          "JWT_PRIVATE_KEY_PATH",
	"auth.public_key_path":           "JWT_PUBLIC_KEY_PATH",
	"auth.access_token_ttl":          "JWT_ACCESS_TOKEN_TTL",
	"auth.refresh_token_ttl":         "JWT_REFRESH_TOKEN_TTL",
	"auth.login_rate_limit_per_hour": "LOGIN_RATE_LIMIT_PER_HOUR",
	"auth.login_lock_threshold":      "LOGIN_LOCK_THRESHOLD",
	"auth.login_lock_ttl":            "LOGIN_LOCK_TTL",
	"worker.concurrency":             "WORKER_CONCURRENCY",
	"worker.pdf_timeout":             "WORKER_PDF_TIMEOUT",
	"worker.max_retry":               "WORKER_MAX_RETRY",
}

var clientEnv = map[string]string{
	"client.base_url":         "RESUME_API_URL",
	"client.timeout":          "RESUME_API_TIMEOUT",
	"client.load_retries":     "RESUME_LOAD_RETRIES",
	"client.retry_base":       "RESUME_RETRY_BASE",
	"client.credentials_path": "RESUME_CREDENTIALS_PATH",
	"client.draft_path":       "RESUME_DRAFT_PATH",
	"client.versions_redis":   "RESUME_VERSIONS_REDIS",
	"client.versions_ttl":     "RESUME_VERSIONS_TTL",
	"client.pushgateway_url":  "RESUME_PUSHGATEWAY_URL",
}

func bindEnv(v *viper.Viper, mappings map[string]string) error {
	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}
	return nil
}

// splitList 兼容逗号分隔的环境变量。
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Auth.PrivateKeyPath == "" || cfg.Auth.PublicKeyPath == "" {
		return errors.New("jwt key paths are required")
	}
	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if cfg.Auth.AccessTokenTTL >= cfg.Auth.RefreshTokenTTL {
		return errors.New("access token ttl must be shorter than refresh token ttl")
	}
	if cfg.Auth.LoginRateLimitPerHour <= 0 {
		return errors.New("login rate limit must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	if cfg.Worker.MaxRetry < 0 {
		return errors.New("worker max retry must not be negative")
	}
	return nil
}

func validateClient(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return errors.New("resume api url is required")
	}
	if cfg.Timeout <= 0 {
		return errors.New("client timeout must be positive")
	}
	if cfg.CredentialsPath == "" {
		return errors.New("credentials path is required")
	}
	if cfg.DraftPath == "" {
		return errors.New("draft path is required")
	}
	return nil
}
