package replicate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	baoerrors "github.com/systmms/baorepl/internal/errors"
	"github.com/systmms/baorepl/internal/logging"
	"github.com/systmms/baorepl/internal/openbao"
)

// ActionOp is one kind of replication step.
type ActionOp string

const (
	OpDisable ActionOp = "disable"
	OpCreate  ActionOp = "create"
)

// Action is a single step of a replication plan.
type Action struct {
	Op       ActionOp
	Category Category
	Entity   Entity
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s %s", a.Op, a.Category, a.Entity.Path)
}

// Plan is the ordered set of actions for one category in one phase.
// Plans are ephemeral: built, applied, and discarded within a phase.
type Plan struct {
	Category Category
	Actions  []Action
}

// CategoryResult counts the outcome of applying one plan.
type CategoryResult struct {
	Processed int
	Failed    int
	FirstErr  error
}

func (r *CategoryResult) record(err error) {
	r.Processed++
	if err != nil {
		r.Failed++
		if r.FirstErr == nil {
			r.FirstErr = err
		}
	}
}

// Planner computes and applies per-category replication plans. Listing
// always excludes system-reserved names; disabling is best-effort;
// creating treats already-exists as success so re-runs are idempotent.
type Planner struct {
	logger *logging.Logger
}

// NewPlanner creates a planner.
func NewPlanner(logger *logging.Logger) *Planner {
	return &Planner{logger: logger}
}

// List enumerates the non-reserved entities of one category on a
// cluster. Mount paths are normalized without their trailing slash.
// A policy that cannot be read is skipped with a warning; its create
// would be meaningless without the document.
func (p *Planner) List(ctx context.Context, api API, cat Category) ([]Entity, error) {
	switch cat {
	case CategoryEngine:
		mounts, err := api.ListMounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list secret engines on %s: %w", api.Name(), err)
		}
		return mountEntities(mounts, isReservedMount), nil

	case CategoryAuth:
		mounts, err := api.ListAuthMethods(ctx)
		if err != nil {
			return nil, fmt.Errorf("list auth methods on %s: %w", api.Name(), err)
		}
		return mountEntities(mounts, isReservedAuthMount), nil

	case CategoryPolicy:
		names, err := api.ListPolicies(ctx)
		if err != nil {
			return nil, fmt.Errorf("list policies on %s: %w", api.Name(), err)
		}
		var entities []Entity
		for _, name := range names {
			if isReservedPolicy(name) {
				continue
			}
			doc, err := api.ReadPolicy(ctx, name)
			if err != nil {
				p.logger.Warn("Could not read policy %s on %s: %v", name, api.Name(), err)
				continue
			}
			entities = append(entities, Entity{
				Path:   name,
				Type:   "acl",
				Config: map[string]interface{}{"policy": doc},
			})
		}
		return entities, nil

	default:
		return nil, fmt.Errorf("unknown category: %s", cat)
	}
}

func mountEntities(mounts map[string]openbao.MountInfo, reserved func(string) bool) []Entity {
	var entities []Entity
	for path, info := range mounts {
		if reserved(path) {
			continue
		}
		entities = append(entities, Entity{
			Path:        strings.TrimSuffix(path, "/"),
			Type:        info.Type,
			Description: info.Description,
			Config:      info.Config,
			Options:     info.Options,
		})
	}
	// Listing order from the API is map-random; sort for
	// deterministic plans and stable logs.
	sort.Slice(entities, func(i, j int) bool { return entities[i].Path < entities[j].Path })
	return entities
}

// DisablePlan lists a category on the target cluster and produces the
// actions that would remove every non-reserved entity.
func (p *Planner) DisablePlan(ctx context.Context, api API, cat Category) (*Plan, error) {
	entities, err := p.List(ctx, api, cat)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Category: cat}
	for _, e := range entities {
		plan.Actions = append(plan.Actions, Action{Op: OpDisable, Category: cat, Entity: e})
	}
	return plan, nil
}

// CreatePlan produces the actions that reproduce the given entities.
func (p *Planner) CreatePlan(cat Category, entities []Entity) *Plan {
	plan := &Plan{Category: cat}
	for _, e := range entities {
		plan.Actions = append(plan.Actions, Action{Op: OpCreate, Category: cat, Entity: e})
	}
	return plan
}

// Apply executes a plan against one cluster. Disable failures are
// best-effort: a half-cleared target is still closer to correct than
// an unsynced one, so each failure is logged and counted but the rest
// of the plan proceeds. Create failures classified as Conflict mean
// the entity survived an earlier partial run and count as success.
func (p *Planner) Apply(ctx context.Context, api API, plan *Plan) CategoryResult {
	var result CategoryResult

	for _, action := range plan.Actions {
		if ctx.Err() != nil {
			result.record(ctx.Err())
			return result
		}

		err := p.apply(ctx, api, action)
		switch {
		case err == nil:
			p.logger.Debug("%s: %s", api.Name(), action)
		case action.Op == OpCreate && baoerrors.IsKind(err, baoerrors.Conflict):
			p.logger.Debug("%s: %s already exists, treating as success", api.Name(), action.Entity.Path)
			err = nil
		default:
			p.logger.Error("%s: %s failed: %v", api.Name(), action, err)
		}
		result.record(err)
	}

	return result
}

func (p *Planner) apply(ctx context.Context, api API, action Action) error {
	e := action.Entity
	switch {
	case action.Category == CategoryEngine && action.Op == OpDisable:
		return api.DisableMount(ctx, e.Path)
	case action.Category == CategoryEngine && action.Op == OpCreate:
		return api.EnableMount(ctx, e.Path, mountInput(e))
	case action.Category == CategoryAuth && action.Op == OpDisable:
		return api.DisableAuthMethod(ctx, e.Path)
	case action.Category == CategoryAuth && action.Op == OpCreate:
		return api.EnableAuthMethod(ctx, e.Path, mountInput(e))
	case action.Category == CategoryPolicy && action.Op == OpDisable:
		return api.DeletePolicy(ctx, e.Path)
	case action.Category == CategoryPolicy && action.Op == OpCreate:
		doc, _ := e.Config["policy"].(string)
		return api.WritePolicy(ctx, e.Path, doc)
	default:
		return fmt.Errorf("unknown action: %s", action)
	}
}

func mountInput(e Entity) openbao.MountInput {
	return openbao.MountInput{
		Type:        e.Type,
		Description: e.Description,
		Config:      tunableConfig(e.Config),
		Options:     e.Options,
	}
}

// tunableConfig strips listing-only fields that the enable endpoint
// rejects, keeping the tunables that round-trip.
func tunableConfig(config map[string]interface{}) map[string]interface{} {
	if len(config) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(config))
	for k, v := range config {
		switch k {
		case "accessor", "uuid", "running_plugin_version":
			continue
		}
		out[k] = v
	}
	return out
}
