package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/baorepl/internal/config"
	"github.com/systmms/baorepl/internal/replicate"
)

// NewMonitorCommand creates the monitor command for continuous replication.
func NewMonitorCommand(cfg *config.Config) *cobra.Command {
	var (
		interval    int
		dryRun      bool
		workers     int
		excludes    []string
		metricsPort int
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Replicate continuously on an interval",
		Long: `Run replication in a loop: one full synchronization immediately, then
again every sync interval. A run that had errors is retried after a
short delay instead of waiting the full interval.

With --metrics-port set, a Prometheus endpoint is served at /metrics
alongside a plain /health liveness endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			primary, secondary := buildClients(cfg)
			defer primary.Close()
			defer secondary.Close()

			if metricsPort > 0 {
				serverCfg := replicate.DefaultMetricsServerConfig()
				serverCfg.Enabled = true
				serverCfg.Port = metricsPort
				server := replicate.NewMetricsServer(serverCfg, cfg.Logger)
				if err := server.Start(); err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = server.Stop(shutdownCtx)
				}()
			}

			seconds := interval
			if seconds <= 0 {
				seconds = cfg.Definition.Replication.SyncInterval
			}
			monitorCfg := replicate.MonitorConfig{
				Interval:   time.Duration(seconds) * time.Second,
				RetryDelay: 30 * time.Second,
			}

			opts := syncOptions(cfg, dryRun, workers, excludes)
			s := replicate.NewSynchronizer(primary, secondary, opts, cfg.Logger)
			m := replicate.NewMonitor(s, monitorCfg, cfg.Logger)

			err := m.Run(ctx)
			if errors.Is(err, context.Canceled) {
				// Operator-initiated shutdown is a clean exit.
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 0, "Seconds between runs (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log planned actions without changing the secondary")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel secret copies (default from config)")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "Path prefix to skip (repeatable)")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port (0 disables)")

	return cmd
}
