package replicate

import (
	"context"
	"reflect"
	"strings"

	"github.com/systmms/baorepl/internal/openbao"
)

// Category identifies one class of administrative entity.
type Category string

const (
	CategoryEngine Category = "engine"
	CategoryAuth   Category = "auth-method"
	CategoryPolicy Category = "policy"
)

// Entity is a named administrative object on a cluster: a secret
// engine mount, an auth method mount, or an ACL policy. Policies carry
// their HCL document under Config["policy"].
type Entity struct {
	Path        string // mount path without trailing slash, or policy name
	Type        string
	Description string
	Config      map[string]interface{}
	Options     map[string]string
}

// Equivalent reports whether two entities would replicate identically:
// same name, type, and configuration. Description is informational and
// does not affect equivalence.
func (e Entity) Equivalent(other Entity) bool {
	return e.Path == other.Path &&
		e.Type == other.Type &&
		reflect.DeepEqual(e.Config, other.Config) &&
		reflect.DeepEqual(e.Options, other.Options)
}

// API is the administrative surface of one cluster that replication
// needs. *openbao.Client implements it; tests substitute fakes.
type API interface {
	Name() string
	Health(ctx context.Context) error

	ListMounts(ctx context.Context) (map[string]openbao.MountInfo, error)
	EnableMount(ctx context.Context, path string, in openbao.MountInput) error
	DisableMount(ctx context.Context, path string) error

	ListAuthMethods(ctx context.Context) (map[string]openbao.MountInfo, error)
	EnableAuthMethod(ctx context.Context, path string, in openbao.MountInput) error
	DisableAuthMethod(ctx context.Context, path string) error

	ListPolicies(ctx context.Context) ([]string, error)
	ReadPolicy(ctx context.Context, name string) (string, error)
	WritePolicy(ctx context.Context, name, policy string) error
	DeletePolicy(ctx context.Context, name string) error

	ListKeys(ctx context.Context, path string) ([]string, error)
	ReadSecret(ctx context.Context, path string) (map[string]interface{}, error)
	WriteSecret(ctx context.Context, path string, data map[string]interface{}) error
}

// System-reserved names. These are never listed, disabled, or created
// by any phase, regardless of user-supplied exclusions: wiping sys/ or
// identity/ would break the cluster, disabling token/ auth would cut
// off the very token this tool runs with, and root/default are
// built-in policies.
var (
	reservedMountPrefixes = []string{"sys/", "identity/"}
	reservedAuthMounts    = map[string]bool{"token/": true}
	reservedPolicies      = map[string]bool{"root": true, "default": true}
)

func isReservedMount(path string) bool {
	normalized := strings.TrimSuffix(path, "/") + "/"
	for _, prefix := range reservedMountPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

func isReservedAuthMount(path string) bool {
	normalized := strings.TrimSuffix(path, "/") + "/"
	return reservedAuthMounts[normalized] || isReservedMount(path)
}

func isReservedPolicy(name string) bool {
	return reservedPolicies[name]
}

// Excluder holds the set of path prefixes excluded from replication:
// the caller's patterns unioned with the reserved namespaces. Built
// once per run and never mutated, so every phase sees the same set.
type Excluder struct {
	prefixes []string
}

// NewExcluder combines user patterns with the built-in reserved set.
func NewExcluder(patterns []string) *Excluder {
	prefixes := make([]string, 0, len(patterns)+len(reservedMountPrefixes))
	prefixes = append(prefixes, reservedMountPrefixes...)
	for _, p := range patterns {
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &Excluder{prefixes: prefixes}
}

// Excluded reports whether a path falls under any excluded prefix.
func (e *Excluder) Excluded(path string) bool {
	for _, prefix := range e.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
