// Package config loads the server configuration from the environment, an
// optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	minSecretBytes = 16
)

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`

	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Cards     CardConfig      `yaml:"cards"`
	Banks     BanksConfig     `yaml:"banks"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Jobs      JobsConfig      `yaml:"jobs"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds the HTTP listeners
type ServerConfig struct {
	Host            string        `yaml:"host" env:"API_HOST" env-default:"0.0.0.0"`
	Port            int           `yaml:"port" env:"API_PORT" env-default:"8000"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT" env-default:"9090"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"70s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	StaleTerminal   time.Duration `yaml:"stale_terminal_after" env:"TERMINAL_STALE_AFTER" env-default:"5m"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver      string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	MaxConns    int32  `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"25"`
	MinConns    int32  `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"5"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"false"`
}

// AuthConfig holds the JWT settings. SecretPath, when set, is looked up in
// the secret manager and replaces Secret.
type AuthConfig struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET"`
	SecretPath string        `yaml:"secret_path" env:"JWT_SECRET_PATH"`
	Issuer     string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"paygo"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"ACCESS_TOKEN_TTL" env-default:"30m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
}

// CardConfig holds the card tokenization secret
type CardConfig struct {
	TokenSecret     string `yaml:"token_secret" env:"CARD_TOKEN_SECRET"`
	TokenSecretPath string `yaml:"token_secret_path" env:"CARD_TOKEN_SECRET_PATH"`
}

// BankConfig is one acquirer endpoint
type BankConfig struct {
	BaseURL    string `yaml:"base_url" env:"API_URL"`
	MerchantID string `yaml:"merchant_id" env:"MERCHANT_ID"`
	APIKey     string `yaml:"api_key" env:"API_KEY"`
	APIKeyPath string `yaml:"api_key_path" env:"API_KEY_PATH"`
}

// BanksConfig holds every acquirer
type BanksConfig struct {
	VTB         BankConfig `yaml:"vtb" env-prefix:"VTB_"`
	Alfa        BankConfig `yaml:"alfa" env-prefix:"ALFA_"`
	Centrinvest BankConfig `yaml:"centrinvest" env-prefix:"CENTRINVEST_"`
	SBP         BankConfig `yaml:"sbp" env-prefix:"SBP_"`
}

// KafkaConfig enables lifecycle event publishing. With no brokers events
// are only logged.
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic    string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"paygo.transactions"`
	Attempts int      `yaml:"attempts" env:"KAFKA_ATTEMPTS" env-default:"3"`
}

// SecretsConfig selects the secret manager backend
type SecretsConfig struct {
	Backend       string        `yaml:"backend" env:"SECRET_MANAGER" env-default:"none"`
	LocalPath     string        `yaml:"local_path" env:"SECRETS_LOCAL_PATH" env-default:"./secrets"`
	AWSRegion     string        `yaml:"aws_region" env:"AWS_REGION" env-default:"us-east-1"`
	AWSProfile    string        `yaml:"aws_profile" env:"AWS_PROFILE"`
	AWSEndpoint   string        `yaml:"aws_endpoint" env:"AWS_SECRETS_ENDPOINT"`
	VaultAddress  string        `yaml:"vault_address" env:"VAULT_ADDR"`
	VaultToken    string        `yaml:"vault_token" env:"VAULT_TOKEN"`
	VaultRoleID   string        `yaml:"vault_role_id" env:"VAULT_ROLE_ID"`
	VaultSecretID string        `yaml:"vault_secret_id" env:"VAULT_SECRET_ID"`
	VaultMount    string        `yaml:"vault_mount" env:"VAULT_MOUNT"`
	CacheTTL      time.Duration `yaml:"cache_ttl" env:"SECRETS_CACHE_TTL" env-default:"5m"`
}

// JobsConfig holds the cron specs of the maintenance jobs
type JobsConfig struct {
	ExpirePending string `yaml:"expire_pending" env:"JOB_EXPIRE_PENDING" env-default:"@every 1m"`
	SweepStale    string `yaml:"sweep_stale" env:"JOB_SWEEP_STALE" env-default:"@every 1m"`
	ReapStuck     string `yaml:"reap_stuck" env:"JOB_REAP_STUCK" env-default:"@every 1m"`
}

// RateLimitConfig limits requests per client IP. PerMinute 0 disables it.
type RateLimitConfig struct {
	PerMinute  int  `yaml:"per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"100"`
	Burst      int  `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
	TrustProxy bool `yaml:"trust_proxy" env:"RATE_LIMIT_TRUST_PROXY" env-default:"false"`
	MaxTracked int  `yaml:"max_tracked" env:"RATE_LIMIT_MAX_CLIENTS" env-default:"10000"`
}

// Load reads .env (if present), then CONFIG_PATH (if set) and the
// environment, and validates the result
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.Banks.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills the public acquirer endpoints
func (b *BanksConfig) applyDefaults() {
	defaults := []struct {
		bank *BankConfig
		url  string
		mid  string
	}{
		{&b.VTB, "https://api.vtb.ru/acquiring", "VTB_MERCHANT_ID"},
		{&b.Alfa, "https://api.alfabank.ru/acquiring", "ALFA_MERCHANT_ID"},
		{&b.Centrinvest, "https://api.centrinvest.ru/acquiring", "CI_MERCHANT_ID"},
		{&b.SBP, "https://api.sbp.ru", "SBP_MERCHANT_ID"},
	}
	for _, d := range defaults {
		if d.bank.BaseURL == "" {
			d.bank.BaseURL = d.url
		}
		if d.bank.MerchantID == "" {
			d.bank.MerchantID = d.mid
		}
	}
}

// Validate checks required values and ranges
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Environment))
	}

	for name, port := range map[string]int{"API_PORT": c.Server.Port, "METRICS_PORT": c.Server.MetricsPort} {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s must be between 1 and 65535, got %d", name, port))
		}
	}
	if c.Server.Port == c.Server.MetricsPort {
		errs = append(errs, errors.New("API_PORT and METRICS_PORT must differ"))
	}

	switch c.Storage.Driver {
	case StorageMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORAGE_DRIVER=memory is not allowed in production"))
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be memory or postgres, got %q", c.Storage.Driver))
	}

	if c.Auth.SecretPath == "" && len(c.Auth.Secret) < minSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes (or set JWT_SECRET_PATH)", minSecretBytes))
	}
	if c.Cards.TokenSecretPath == "" && c.Cards.TokenSecret == "" {
		errs = append(errs, errors.New("CARD_TOKEN_SECRET or CARD_TOKEN_SECRET_PATH is required"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		errs = append(errs, errors.New("token TTLs must be positive and the refresh TTL longer than the access TTL"))
	}

	for name, bank := range map[string]BankConfig{
		"VTB": c.Banks.VTB, "ALFA": c.Banks.Alfa, "CENTRINVEST": c.Banks.Centrinvest, "SBP": c.Banks.SBP,
	} {
		u, err := url.Parse(bank.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s_API_URL must be an absolute URL, got %q", name, bank.BaseURL))
		}
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate limit values must not be negative"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// IsDevelopment reports whether the server runs in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// HTTPAddr is the API listen address
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
