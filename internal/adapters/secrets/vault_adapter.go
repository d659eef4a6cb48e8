package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// VaultConfig configures the Vault KV v2 backend
type VaultConfig struct {
	Address string

	// "token" or "approle"
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string

	Namespace string // Vault Enterprise only
	MountPath string

	CacheTTL    time.Duration
	EnableCache bool
}

// DefaultVaultConfig uses token auth against the "secret" mount
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:     address,
		AuthMethod:  "token",
		MountPath:   "secret",
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

type vaultAdapter struct {
	client *vault.Client
	mount  string
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultAdapter logs in and returns a KV v2 reader
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (Manager, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := vaultLogin(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault adapter initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
	)

	return &vaultAdapter{
		client: client,
		mount:  cfg.MountPath,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL, nil),
	}, nil
}

func vaultLogin(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return errors.New("VAULT_TOKEN is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return errors.New("VAULT_ROLE_ID and VAULT_SECRET_ID are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return errors.New("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil
	}
	return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
}

// GetSecret reads {mount}/data/{path}. Value is the "value" key; every
// string key is available through Fields.
func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		return cached, nil
	}

	start := time.Now()
	raw, err := a.client.Logical().ReadWithContext(ctx, fmt.Sprintf("%s/data/%s", a.mount, path))
	if err == nil && raw == nil {
		err = fmt.Errorf("secret not found: %s", path)
	}
	observe(BackendVault, start, err)
	if err != nil {
		a.logger.Error("Failed to retrieve secret from Vault", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}

	secret, err := parseKVv2(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", path, err)
	}

	a.cache.set(path, secret)
	return secret, nil
}

// parseKVv2 unwraps the {"data": {...}, "metadata": {...}} envelope
func parseKVv2(raw map[string]interface{}) (*Secret, error) {
	data, ok := raw["data"].(map[string]interface{})
	if !ok {
		return nil, errors.New("invalid KV v2 response")
	}

	fields := stringFields(data)
	if len(fields) == 0 {
		return nil, errors.New("secret has no string keys")
	}

	secret := &Secret{Value: fields["value"], Fields: fields}
	if metadata, ok := raw["metadata"].(map[string]interface{}); ok {
		switch v := metadata["version"].(type) {
		case json.Number:
			secret.Version = v.String()
		case float64:
			secret.Version = fmt.Sprintf("%.0f", v)
		}
		secret.CreatedAt, _ = metadata["created_time"].(string)
	}
	return secret, nil
}
