package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	baoerrors "github.com/systmms/baorepl/internal/errors"
	"github.com/systmms/baorepl/internal/logging"
)

// KeyringService is the OS keyring service name used when a cluster
// token is resolved via token_keyring.
const KeyringService = "baorepl"

// Default endpoints and tuning, matching a local two-node lab setup.
const (
	DefaultPrimaryURL   = "https://localhost:8201"
	DefaultSecondaryURL = "https://localhost:8202"
	DefaultSyncInterval = 300
	DefaultTimeout      = 30
	DefaultWorkers      = 4
)

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the baorepl.yaml structure
type Definition struct {
	Primary     ClusterConfig     `yaml:"primary" json:"primary"`
	Secondary   ClusterConfig     `yaml:"secondary" json:"secondary"`
	Replication ReplicationConfig `yaml:"replication" json:"replication"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// ClusterConfig identifies one cluster endpoint and its credential
type ClusterConfig struct {
	URL   string `yaml:"url" json:"url"`
	Token string `yaml:"token" json:"token,omitempty"`

	// TokenKeyring names an OS keyring account to read the token from
	// when no inline or environment token is set
	TokenKeyring string `yaml:"token_keyring" json:"token_keyring,omitempty"`
}

// ReplicationConfig holds sync tuning
type ReplicationConfig struct {
	SyncInterval int      `yaml:"sync_interval" json:"sync_interval"` // seconds, monitor mode
	VerifySSL    bool     `yaml:"verify_ssl" json:"verify_ssl"`
	Timeout      int      `yaml:"timeout" json:"timeout"` // seconds, per request
	Workers      int      `yaml:"workers" json:"workers"` // secrets-phase parallelism
	ExcludePaths []string `yaml:"exclude_paths" json:"exclude_paths,omitempty"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level string `yaml:"level" json:"level,omitempty"`
}

// keyringGet is swapped out in tests; the real implementation talks to
// the platform keyring daemon.
var keyringGet = keyring.Get

// Load reads the configuration: defaults, then the yaml file if
// present, then OPENBAO_* environment variables, then keyring token
// resolution. A `.env` file in the working directory is loaded first
// so env overrides work the same in development and CI.
func (c *Config) Load() error {
	_ = godotenv.Load() // missing .env is fine

	def := defaultDefinition()

	if c.Path != "" {
		data, err := os.ReadFile(c.Path)
		switch {
		case os.IsNotExist(err):
			// Config file is optional; env vars can carry everything
		case err != nil:
			return baoerrors.UserError{
				Message:    "Failed to read configuration file",
				Details:    err.Error(),
				Suggestion: "Check file permissions and path",
				Err:        err,
			}
		default:
			if err := validateSchema(data); err != nil {
				return err
			}
			if err := yaml.Unmarshal(data, def); err != nil {
				return baoerrors.ConfigError{
					Field:      "path",
					Value:      c.Path,
					Message:    "invalid YAML syntax in configuration file",
					Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
				}
			}
		}
	}

	applyEnvOverrides(def)

	if err := resolveKeyringTokens(def); err != nil {
		return err
	}

	c.Definition = def
	return nil
}

func defaultDefinition() *Definition {
	return &Definition{
		Primary:   ClusterConfig{URL: DefaultPrimaryURL},
		Secondary: ClusterConfig{URL: DefaultSecondaryURL},
		Replication: ReplicationConfig{
			SyncInterval: DefaultSyncInterval,
			Timeout:      DefaultTimeout,
			Workers:      DefaultWorkers,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// applyEnvOverrides applies OPENBAO_* environment variables on top of
// file values. The variable names match the original operator tooling
// so existing deployments keep working.
func applyEnvOverrides(def *Definition) {
	if v := os.Getenv("OPENBAO_PRIMARY_URL"); v != "" {
		def.Primary.URL = v
	}
	if v := os.Getenv("OPENBAO_PRIMARY_TOKEN"); v != "" {
		def.Primary.Token = v
	}
	if v := os.Getenv("OPENBAO_SECONDARY_URL"); v != "" {
		def.Secondary.URL = v
	}
	if v := os.Getenv("OPENBAO_SECONDARY_TOKEN"); v != "" {
		def.Secondary.Token = v
	}
	if v := os.Getenv("OPENBAO_SYNC_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			def.Replication.SyncInterval = n
		}
	}
	if v := os.Getenv("OPENBAO_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			def.Replication.Timeout = n
		}
	}
	if v := os.Getenv("OPENBAO_VERIFY_SSL"); v != "" {
		def.Replication.VerifySSL = parseBool(v)
	}
	if v := os.Getenv("OPENBAO_LOG_LEVEL"); v != "" {
		def.Logging.Level = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// resolveKeyringTokens fills in empty tokens from the OS keyring for
// clusters that name a token_keyring account.
func resolveKeyringTokens(def *Definition) error {
	for _, cluster := range []struct {
		name string
		c    *ClusterConfig
	}{
		{"primary", &def.Primary},
		{"secondary", &def.Secondary},
	} {
		if cluster.c.Token != "" || cluster.c.TokenKeyring == "" {
			continue
		}
		token, err := keyringGet(KeyringService, cluster.c.TokenKeyring)
		if err != nil {
			return baoerrors.ConfigError{
				Field:      cluster.name + ".token_keyring",
				Value:      cluster.c.TokenKeyring,
				Message:    "failed to read token from OS keyring",
				Suggestion: "Store the token with your keyring tool under service '" + KeyringService + "', or set the token via environment variable",
			}
		}
		cluster.c.Token = token
	}
	return nil
}

// Validate checks that the resolved configuration can drive a sync run
func (c *Config) Validate() error {
	if c.Definition == nil {
		return baoerrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}
	def := c.Definition

	checks := []struct {
		field string
		value string
		env   string
	}{
		{"primary.url", def.Primary.URL, "OPENBAO_PRIMARY_URL"},
		{"primary.token", def.Primary.Token, "OPENBAO_PRIMARY_TOKEN"},
		{"secondary.url", def.Secondary.URL, "OPENBAO_SECONDARY_URL"},
		{"secondary.token", def.Secondary.Token, "OPENBAO_SECONDARY_TOKEN"},
	}
	for _, check := range checks {
		if check.value == "" {
			return baoerrors.ConfigError{
				Field:      check.field,
				Message:    "required configuration is missing",
				Suggestion: "Set " + check.field + " in the config file or the " + check.env + " environment variable",
			}
		}
	}

	if def.Replication.SyncInterval <= 0 {
		return baoerrors.ConfigError{
			Field:      "replication.sync_interval",
			Value:      def.Replication.SyncInterval,
			Message:    "sync interval must be positive",
			Suggestion: "Use an interval of at least 1 second",
		}
	}
	if def.Replication.Timeout <= 0 {
		return baoerrors.ConfigError{
			Field:      "replication.timeout",
			Value:      def.Replication.Timeout,
			Message:    "request timeout must be positive",
			Suggestion: "Use a timeout of at least 1 second",
		}
	}
	if def.Replication.Workers <= 0 {
		return baoerrors.ConfigError{
			Field:      "replication.workers",
			Value:      def.Replication.Workers,
			Message:    "worker count must be positive",
			Suggestion: "Use at least 1 worker for the secrets phase",
		}
	}

	return nil
}
