package commands

import (
	"fmt"
	"time"

	"github.com/systmms/baorepl/internal/config"
	"github.com/systmms/baorepl/internal/logging"
	"github.com/systmms/baorepl/internal/openbao"
	"github.com/systmms/baorepl/internal/replicate"
)

// loadConfig loads and validates the configuration for a command run.
func loadConfig(cfg *config.Config) error {
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	def := cfg.Definition
	cfg.Logger.Debug("primary=%s token=%s", def.Primary.URL, logging.Secret(def.Primary.Token))
	cfg.Logger.Debug("secondary=%s token=%s", def.Secondary.URL, logging.Secret(def.Secondary.Token))
	return nil
}

// buildClients creates the primary and secondary cluster clients from
// loaded configuration. Callers own both and must Close them.
func buildClients(cfg *config.Config) (*openbao.Client, *openbao.Client) {
	def := cfg.Definition
	timeout := time.Duration(def.Replication.Timeout) * time.Second

	primary := openbao.New("primary", openbao.Config{
		Address:   def.Primary.URL,
		Token:     def.Primary.Token,
		VerifySSL: def.Replication.VerifySSL,
		Timeout:   timeout,
	}, cfg.Logger)

	secondary := openbao.New("secondary", openbao.Config{
		Address:   def.Secondary.URL,
		Token:     def.Secondary.Token,
		VerifySSL: def.Replication.VerifySSL,
		Timeout:   timeout,
	}, cfg.Logger)

	return primary, secondary
}

// syncOptions derives synchronizer options from configuration plus the
// per-command flag overrides.
func syncOptions(cfg *config.Config, dryRun bool, workers int, excludes []string) replicate.Options {
	def := cfg.Definition
	if workers <= 0 {
		workers = def.Replication.Workers
	}
	paths := append([]string(nil), def.Replication.ExcludePaths...)
	paths = append(paths, excludes...)
	return replicate.Options{
		ExcludePaths: paths,
		DryRun:       dryRun,
		Workers:      workers,
	}
}

// summarize prints per-phase results through the logger.
func summarize(cfg *config.Config, result *replicate.RunResult) {
	for _, pr := range result.Results {
		switch {
		case pr.Success:
			cfg.Logger.Info("%-17s processed=%d duration=%s", pr.Phase, pr.Processed, pr.Duration.Round(time.Millisecond))
		default:
			cfg.Logger.Error("%-17s processed=%d failed=%d duration=%s", pr.Phase, pr.Processed, pr.Failed, pr.Duration.Round(time.Millisecond))
		}
	}
}
