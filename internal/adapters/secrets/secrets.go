// Package secrets resolves API keys and signing secrets from AWS Secrets
// Manager, HashiCorp Vault or a local directory.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Backend names accepted in SECRET_MANAGER
const (
	BackendNone  = "none"
	BackendLocal = "local"
	BackendAWS   = "aws"
	BackendVault = "vault"
)

var (
	secretFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_secret_fetches_total",
		Help: "Secret backend reads by backend and result",
	}, []string{"backend", "result"})

	secretFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paygo_secret_fetch_duration_seconds",
		Help:    "Secret backend read latency",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"backend"})
)

// Secret is one stored value. Fields holds the string members when the
// stored value is a JSON object or a Vault KV map.
type Secret struct {
	Value     string
	Fields    map[string]string
	Version   string
	CreatedAt string
	Metadata  map[string]string
}

// Manager reads secrets by path. Path format depends on the backend:
//
//	AWS:   secret name or ARN, e.g. "paygo/banks/vtb"
//	Vault: KV v2 path under the mount, e.g. "paygo/banks/vtb"
//	Local: file under the base directory
type Manager interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}

// Config selects and configures one backend
type Config struct {
	Backend       string
	LocalPath     string
	AWSRegion     string
	AWSProfile    string
	AWSEndpoint   string
	VaultAddress  string
	VaultToken    string
	VaultRoleID   string
	VaultSecretID string
	VaultMount    string
	CacheTTL      time.Duration
}

// New builds the configured backend. BackendNone returns nil, nil and every
// Resolve call then falls back to the plain configured value.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Manager, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil

	case BackendLocal:
		logger.Warn("Using local secret manager - NOT for production use",
			zap.String("path", cfg.LocalPath),
		)
		return NewLocalSecretManager(cfg.LocalPath, logger), nil

	case BackendAWS:
		awsCfg := DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		awsCfg.Profile = cfg.AWSProfile
		awsCfg.Endpoint = cfg.AWSEndpoint
		if cfg.CacheTTL > 0 {
			awsCfg.CacheTTL = cfg.CacheTTL
		}
		return NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	case BackendVault:
		vaultCfg := DefaultVaultConfig(cfg.VaultAddress)
		vaultCfg.Token = cfg.VaultToken
		if cfg.VaultRoleID != "" {
			vaultCfg.AuthMethod = "approle"
			vaultCfg.RoleID = cfg.VaultRoleID
			vaultCfg.SecretID = cfg.VaultSecretID
		}
		if cfg.VaultMount != "" {
			vaultCfg.MountPath = cfg.VaultMount
		}
		if cfg.CacheTTL > 0 {
			vaultCfg.CacheTTL = cfg.CacheTTL
		}
		return NewVaultAdapter(ctx, vaultCfg, logger)
	}
	return nil, fmt.Errorf("unknown secret manager backend %q", cfg.Backend)
}

// Resolve returns the secret at path, or fallback when no manager is
// configured or path is empty. "path#field" selects one member of a
// structured secret, so all bank keys can live in a single entry.
func Resolve(ctx context.Context, sm Manager, path, fallback string) (string, error) {
	if sm == nil || path == "" {
		return fallback, nil
	}
	name, field, _ := strings.Cut(path, "#")

	secret, err := sm.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}
	if field == "" {
		if secret.Value == "" {
			return "", fmt.Errorf("secret %s has no value", name)
		}
		return secret.Value, nil
	}

	v, ok := secret.Fields[field]
	if !ok || v == "" {
		return "", fmt.Errorf("secret %s has no field %q", name, field)
	}
	return v, nil
}

// stringFields keeps the string members of a decoded JSON object
func stringFields(m map[string]interface{}) map[string]string {
	fields := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}
	return fields
}

// parseFields decodes raw as a flat JSON object; plain strings yield nil
func parseFields(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return stringFields(m)
}

func observe(backend string, start time.Time, err error) {
	secretFetchDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	secretFetches.WithLabelValues(backend, result).Inc()
}
