package replicate

import (
	"context"
	"strings"

	"github.com/systmms/baorepl/internal/logging"
)

// Walker traverses the secret namespace under a mount, yielding every
// leaf path exactly once. The namespace is tree-shaped by construction
// of the underlying store, so no cycle detection is needed.
type Walker struct {
	api    API
	logger *logging.Logger
}

// NewWalker creates a walker over one cluster's namespace.
func NewWalker(api API, logger *logging.Logger) *Walker {
	return &Walker{api: api, logger: logger}
}

// Walk visits every leaf reachable under root, calling fn for each.
// Traversal is depth-first over an explicit worklist rather than
// call-stack recursion, so depth and fan-out are bounded only by the
// namespace size and cancellation is checked per node.
//
// A listing failure on an internal node (e.g. access revoked mid-walk)
// is logged and counted but does not abort the traversal; siblings and
// the rest of the tree still get visited. The returned count is the
// number of such node failures. An empty or missing root yields no
// leaves and no error.
//
// An error from fn, or context cancellation, stops the walk
// immediately.
func (w *Walker) Walk(ctx context.Context, root string, fn func(path string) error) (int, error) {
	root = strings.TrimSuffix(root, "/")
	stack := []string{root}
	nodeErrors := 0

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nodeErrors, err
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		keys, err := w.api.ListKeys(ctx, node)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nodeErrors, ctxErr
			}
			nodeErrors++
			w.logger.Warn("Failed to list %s on %s: %v", node, w.api.Name(), err)
			continue
		}

		for _, key := range keys {
			child := node + "/" + strings.TrimSuffix(key, "/")
			if strings.HasSuffix(key, "/") {
				stack = append(stack, child)
				continue
			}
			if err := fn(child); err != nil {
				return nodeErrors, err
			}
		}
	}

	return nodeErrors, nil
}

// Leaves collects every leaf path under root. Convenience wrapper used
// by dry runs and tests.
func (w *Walker) Leaves(ctx context.Context, root string) ([]string, int, error) {
	var leaves []string
	nodeErrors, err := w.Walk(ctx, root, func(path string) error {
		leaves = append(leaves, path)
		return nil
	})
	return leaves, nodeErrors, err
}
