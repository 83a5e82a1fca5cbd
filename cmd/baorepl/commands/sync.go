package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/systmms/baorepl/internal/config"
	"github.com/systmms/baorepl/internal/replicate"
)

// NewSyncCommand creates the sync command for a one-shot replication.
func NewSyncCommand(cfg *config.Config) *cobra.Command {
	var (
		dryRun   bool
		workers  int
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replicate the primary cluster onto the secondary once",
		Long: `Run one full replication: verify both clusters are healthy, clear the
secondary's non-reserved engines, auth methods, and policies, then
recreate them from the primary and copy every secret leaf.

The primary is never written to. System mounts (sys/, identity/), the
token auth method, and the root/default policies are never touched on
either cluster.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			primary, secondary := buildClients(cfg)
			defer primary.Close()
			defer secondary.Close()

			opts := syncOptions(cfg, dryRun, workers, excludes)
			s := replicate.NewSynchronizer(primary, secondary, opts, cfg.Logger)
			result := s.Run(ctx)

			summarize(cfg, result)
			if result.Aborted {
				return fmt.Errorf("replication aborted: clusters failed their health check")
			}
			if !result.OverallSuccess() {
				return fmt.Errorf("replication completed with errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log planned actions without changing the secondary")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel secret copies (default from config)")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "Path prefix to skip (repeatable)")

	return cmd
}
