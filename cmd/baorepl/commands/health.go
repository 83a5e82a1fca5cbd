package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/baorepl/internal/config"
	"github.com/systmms/baorepl/internal/openbao"
)

// NewHealthCommand creates the health command for checking both clusters.
func NewHealthCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check connectivity and authentication of both clusters",
		Long: `Probe the primary and secondary clusters: endpoint reachability, seal
status, and whether the configured token is accepted. No cluster state
is changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cfg); err != nil {
				return err
			}

			primary, secondary := buildClients(cfg)
			defer primary.Close()
			defer secondary.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CLUSTER\tADDRESS\tSTATUS")

			failures := 0
			for _, client := range []*openbao.Client{primary, secondary} {
				status := "healthy"
				if err := client.Health(cmd.Context()); err != nil {
					status = fmt.Sprintf("unhealthy: %v", err)
					failures++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", client.Name(), client.Address(), status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if failures > 0 {
				return fmt.Errorf("%d cluster(s) failed the health check", failures)
			}
			cfg.Logger.Info("Both clusters are healthy")
			return nil
		},
	}

	return cmd
}
