package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baorepl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENBAO_PRIMARY_URL", "OPENBAO_PRIMARY_TOKEN",
		"OPENBAO_SECONDARY_URL", "OPENBAO_SECONDARY_TOKEN",
		"OPENBAO_SYNC_INTERVAL", "OPENBAO_TIMEOUT",
		"OPENBAO_VERIFY_SSL", "OPENBAO_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := &Config{Path: filepath.Join(t.TempDir(), "missing.yaml")}
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, DefaultPrimaryURL, def.Primary.URL)
	assert.Equal(t, DefaultSecondaryURL, def.Secondary.URL)
	assert.Equal(t, DefaultSyncInterval, def.Replication.SyncInterval)
	assert.Equal(t, DefaultTimeout, def.Replication.Timeout)
	assert.Equal(t, DefaultWorkers, def.Replication.Workers)
	assert.False(t, def.Replication.VerifySSL)
	assert.Equal(t, "info", def.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
primary:
  url: https://primary.example.com:8201
  token: tok-primary
secondary:
  url: https://secondary.example.com:8202
  token: tok-secondary
replication:
  sync_interval: 60
  verify_ssl: true
  timeout: 10
  exclude_paths:
    - temp/
    - staging/
logging:
  level: debug
`)

	cfg := &Config{Path: path}
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, "https://primary.example.com:8201", def.Primary.URL)
	assert.Equal(t, "tok-primary", def.Primary.Token)
	assert.Equal(t, 60, def.Replication.SyncInterval)
	assert.True(t, def.Replication.VerifySSL)
	assert.Equal(t, []string{"temp/", "staging/"}, def.Replication.ExcludePaths)
	assert.Equal(t, "debug", def.Logging.Level)
	// Fields absent from the file keep their defaults
	assert.Equal(t, DefaultWorkers, def.Replication.Workers)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
primary:
  url: https://file-primary:8201
  token: tok-from-file
secondary:
  url: https://file-secondary:8202
  token: tok-secondary
`)

	t.Setenv("OPENBAO_PRIMARY_URL", "https://env-primary:8201")
	t.Setenv("OPENBAO_PRIMARY_TOKEN", "tok-from-env")
	t.Setenv("OPENBAO_SYNC_INTERVAL", "45")
	t.Setenv("OPENBAO_VERIFY_SSL", "yes")

	cfg := &Config{Path: path}
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, "https://env-primary:8201", def.Primary.URL)
	assert.Equal(t, "tok-from-env", def.Primary.Token)
	assert.Equal(t, "https://file-secondary:8202", def.Secondary.URL)
	assert.Equal(t, 45, def.Replication.SyncInterval)
	assert.True(t, def.Replication.VerifySSL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "primary: [not: valid: yaml")

	cfg := &Config{Path: path}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML syntax")
}

func TestLoad_SchemaRejectsWrongTypes(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
primary:
  url: https://primary:8201
replication:
  sync_interval: 0
`)

	cfg := &Config{Path: path}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestLoad_SchemaRejectsUnknownFields(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
primary:
  url: https://primary:8201
  tokn: oops-typo
`)

	cfg := &Config{Path: path}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestLoad_KeyringToken(t *testing.T) {
	clearEnv(t)

	orig := keyringGet
	t.Cleanup(func() { keyringGet = orig })
	keyringGet = func(service, user string) (string, error) {
		if service == KeyringService && user == "primary-token" {
			return "tok-from-keyring", nil
		}
		return "", fmt.Errorf("not found")
	}

	path := writeConfig(t, `
primary:
  url: https://primary:8201
  token_keyring: primary-token
secondary:
  url: https://secondary:8202
  token: tok-secondary
`)

	cfg := &Config{Path: path}
	require.NoError(t, cfg.Load())
	assert.Equal(t, "tok-from-keyring", cfg.Definition.Primary.Token)
}

func TestLoad_KeyringFailure(t *testing.T) {
	clearEnv(t)

	orig := keyringGet
	t.Cleanup(func() { keyringGet = orig })
	keyringGet = func(service, user string) (string, error) {
		return "", fmt.Errorf("no keyring daemon")
	}

	path := writeConfig(t, `
primary:
  url: https://primary:8201
  token_keyring: primary-token
`)

	cfg := &Config{Path: path}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyring")
}

func TestLoad_InlineTokenSkipsKeyring(t *testing.T) {
	clearEnv(t)

	orig := keyringGet
	t.Cleanup(func() { keyringGet = orig })
	called := false
	keyringGet = func(service, user string) (string, error) {
		called = true
		return "", fmt.Errorf("should not be called")
	}

	path := writeConfig(t, `
primary:
  url: https://primary:8201
  token: tok-inline
  token_keyring: primary-token
`)

	cfg := &Config{Path: path}
	require.NoError(t, cfg.Load())
	assert.False(t, called)
	assert.Equal(t, "tok-inline", cfg.Definition.Primary.Token)
}

func TestValidate_RequiredFields(t *testing.T) {
	clearEnv(t)

	cfg := &Config{Path: filepath.Join(t.TempDir(), "missing.yaml")}
	require.NoError(t, cfg.Load())

	// Defaults have URLs but no tokens
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary.token")

	cfg.Definition.Primary.Token = "tok-primary"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secondary.token")

	cfg.Definition.Secondary.Token = "tok-secondary"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_PositiveTuning(t *testing.T) {
	clearEnv(t)

	cfg := &Config{Path: filepath.Join(t.TempDir(), "missing.yaml")}
	require.NoError(t, cfg.Load())
	cfg.Definition.Primary.Token = "a-token"
	cfg.Definition.Secondary.Token = "b-token"

	cfg.Definition.Replication.Timeout = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	cfg.Definition.Replication.Timeout = DefaultTimeout
	cfg.Definition.Replication.Workers = -1
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestValidate_NotLoaded(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not loaded")
}
