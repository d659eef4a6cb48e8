package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// localSecretManager reads secrets from files under basePath. Development
// only.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretManager serves files under basePath
func NewLocalSecretManager(basePath string, logger *zap.Logger) Manager {
	return &localSecretManager{basePath: basePath, logger: logger}
}

// GetSecret reads basePath/secretPath. A file holding a JSON object yields
// its string members as Fields and its "value" member as Value; any other
// content is the trimmed value itself.
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*Secret, error) {
	start := time.Now()
	secret, err := m.read(secretPath)
	observe(BackendLocal, start, err)
	if err != nil {
		m.logger.Debug("Local secret read failed", zap.String("path", secretPath), zap.Error(err))
		return nil, err
	}
	return secret, nil
}

func (m *localSecretManager) read(secretPath string) (*Secret, error) {
	// rooting the path first keeps ".." from leaving basePath
	filePath := filepath.Join(m.basePath, filepath.Clean("/"+secretPath))

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("secret not found: %s", secretPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", secretPath, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, fmt.Errorf("empty secret value in %s", secretPath)
	}

	secret := &Secret{Version: "local"}
	if fields := parseFields(content); fields != nil {
		secret.Fields = fields
		secret.Value = fields["value"]
		secret.CreatedAt = fields["created_at"]
		return secret, nil
	}
	secret.Value = content
	return secret, nil
}
