package replicate

import (
	"context"
	"fmt"

	baoerrors "github.com/systmms/baorepl/internal/errors"
	"github.com/systmms/baorepl/internal/logging"
)

// HealthChecker verifies reachability and authentication of clusters
// before any mutating phase runs.
type HealthChecker struct {
	logger *logging.Logger
}

// NewHealthChecker creates a health checker.
func NewHealthChecker(logger *logging.Logger) *HealthChecker {
	return &HealthChecker{logger: logger}
}

// Check probes each cluster in order and returns on the first failure.
// The error names the failing cluster and distinguishes an unreachable
// endpoint from a rejected credential, since the operator fixes those
// very differently.
func (h *HealthChecker) Check(ctx context.Context, clusters ...API) error {
	for _, cluster := range clusters {
		if err := cluster.Health(ctx); err != nil {
			switch baoerrors.KindOf(err) {
			case baoerrors.Authentication:
				return baoerrors.UserError{
					Message:    fmt.Sprintf("%s cluster rejected the configured token", cluster.Name()),
					Details:    err.Error(),
					Suggestion: "Verify the token is valid and has not expired",
					Err:        err,
				}
			case baoerrors.Connectivity:
				return baoerrors.UserError{
					Message:    fmt.Sprintf("%s cluster is not reachable", cluster.Name()),
					Details:    err.Error(),
					Suggestion: "Check the cluster address, network connectivity, and seal status",
					Err:        err,
				}
			default:
				return baoerrors.UserError{
					Message: fmt.Sprintf("%s cluster failed its health check", cluster.Name()),
					Details: err.Error(),
					Err:     err,
				}
			}
		}
		h.logger.Debug("%s cluster is healthy", cluster.Name())
	}
	return nil
}
