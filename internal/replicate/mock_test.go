package replicate

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/systmms/baorepl/internal/openbao"
)

// MockClusterAPI implements API for testing. Mutating calls are
// recorded so tests can assert a cluster was never touched.
type MockClusterAPI struct {
	NameValue string

	HealthFunc            func(ctx context.Context) error
	ListMountsFunc        func(ctx context.Context) (map[string]openbao.MountInfo, error)
	EnableMountFunc       func(ctx context.Context, path string, in openbao.MountInput) error
	DisableMountFunc      func(ctx context.Context, path string) error
	ListAuthMethodsFunc   func(ctx context.Context) (map[string]openbao.MountInfo, error)
	EnableAuthMethodFunc  func(ctx context.Context, path string, in openbao.MountInput) error
	DisableAuthMethodFunc func(ctx context.Context, path string) error
	ListPoliciesFunc      func(ctx context.Context) ([]string, error)
	ReadPolicyFunc        func(ctx context.Context, name string) (string, error)
	WritePolicyFunc       func(ctx context.Context, name, policy string) error
	DeletePolicyFunc      func(ctx context.Context, name string) error
	ListKeysFunc          func(ctx context.Context, path string) ([]string, error)
	ReadSecretFunc        func(ctx context.Context, path string) (map[string]interface{}, error)
	WriteSecretFunc       func(ctx context.Context, path string, data map[string]interface{}) error

	mu    sync.Mutex
	Calls []string
}

func (m *MockClusterAPI) recordCall(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// MutatingCalls returns the recorded write operations, sorted.
func (m *MockClusterAPI) MutatingCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := append([]string(nil), m.Calls...)
	sort.Strings(calls)
	return calls
}

func (m *MockClusterAPI) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

func (m *MockClusterAPI) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

func (m *MockClusterAPI) ListMounts(ctx context.Context) (map[string]openbao.MountInfo, error) {
	if m.ListMountsFunc != nil {
		return m.ListMountsFunc(ctx)
	}
	return nil, nil
}

func (m *MockClusterAPI) EnableMount(ctx context.Context, path string, in openbao.MountInput) error {
	m.recordCall("enable-mount " + path)
	if m.EnableMountFunc != nil {
		return m.EnableMountFunc(ctx, path, in)
	}
	return nil
}

func (m *MockClusterAPI) DisableMount(ctx context.Context, path string) error {
	m.recordCall("disable-mount " + path)
	if m.DisableMountFunc != nil {
		return m.DisableMountFunc(ctx, path)
	}
	return nil
}

func (m *MockClusterAPI) ListAuthMethods(ctx context.Context) (map[string]openbao.MountInfo, error) {
	if m.ListAuthMethodsFunc != nil {
		return m.ListAuthMethodsFunc(ctx)
	}
	return nil, nil
}

func (m *MockClusterAPI) EnableAuthMethod(ctx context.Context, path string, in openbao.MountInput) error {
	m.recordCall("enable-auth " + path)
	if m.EnableAuthMethodFunc != nil {
		return m.EnableAuthMethodFunc(ctx, path, in)
	}
	return nil
}

func (m *MockClusterAPI) DisableAuthMethod(ctx context.Context, path string) error {
	m.recordCall("disable-auth " + path)
	if m.DisableAuthMethodFunc != nil {
		return m.DisableAuthMethodFunc(ctx, path)
	}
	return nil
}

func (m *MockClusterAPI) ListPolicies(ctx context.Context) ([]string, error) {
	if m.ListPoliciesFunc != nil {
		return m.ListPoliciesFunc(ctx)
	}
	return nil, nil
}

func (m *MockClusterAPI) ReadPolicy(ctx context.Context, name string) (string, error) {
	if m.ReadPolicyFunc != nil {
		return m.ReadPolicyFunc(ctx, name)
	}
	return "", nil
}

func (m *MockClusterAPI) WritePolicy(ctx context.Context, name, policy string) error {
	m.recordCall("write-policy " + name)
	if m.WritePolicyFunc != nil {
		return m.WritePolicyFunc(ctx, name, policy)
	}
	return nil
}

func (m *MockClusterAPI) DeletePolicy(ctx context.Context, name string) error {
	m.recordCall("delete-policy " + name)
	if m.DeletePolicyFunc != nil {
		return m.DeletePolicyFunc(ctx, name)
	}
	return nil
}

func (m *MockClusterAPI) ListKeys(ctx context.Context, path string) ([]string, error) {
	if m.ListKeysFunc != nil {
		return m.ListKeysFunc(ctx, path)
	}
	return nil, nil
}

func (m *MockClusterAPI) ReadSecret(ctx context.Context, path string) (map[string]interface{}, error) {
	if m.ReadSecretFunc != nil {
		return m.ReadSecretFunc(ctx, path)
	}
	return nil, nil
}

func (m *MockClusterAPI) WriteSecret(ctx context.Context, path string, data map[string]interface{}) error {
	m.recordCall("write-secret " + path)
	if m.WriteSecretFunc != nil {
		return m.WriteSecretFunc(ctx, path, data)
	}
	return nil
}

// listChildren derives the LIST response for a node from flat secret
// paths, the way a KV store would: one entry per immediate child,
// directories suffixed with a slash.
func listChildren(secrets map[string]map[string]interface{}, node string) []string {
	prefix := strings.TrimSuffix(node, "/") + "/"
	seen := map[string]bool{}
	var keys []string
	for path := range secrets {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		key := rest
		if i := strings.Index(rest, "/"); i >= 0 {
			key = rest[:i+1]
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// newClusterMock builds a mock backed by in-memory maps so sync tests
// can exercise whole runs end to end. Writes land back in the maps.
func newClusterMock(name string, mounts, auths map[string]openbao.MountInfo, policies map[string]string, secrets map[string]map[string]interface{}) *MockClusterAPI {
	var mu sync.Mutex
	return &MockClusterAPI{
		NameValue: name,
		ListMountsFunc: func(ctx context.Context) (map[string]openbao.MountInfo, error) {
			return mounts, nil
		},
		ListAuthMethodsFunc: func(ctx context.Context) (map[string]openbao.MountInfo, error) {
			return auths, nil
		},
		ListPoliciesFunc: func(ctx context.Context) ([]string, error) {
			names := make([]string, 0, len(policies))
			for name := range policies {
				names = append(names, name)
			}
			sort.Strings(names)
			return names, nil
		},
		ReadPolicyFunc: func(ctx context.Context, name string) (string, error) {
			return policies[name], nil
		},
		ListKeysFunc: func(ctx context.Context, path string) ([]string, error) {
			mu.Lock()
			defer mu.Unlock()
			return listChildren(secrets, path), nil
		},
		ReadSecretFunc: func(ctx context.Context, path string) (map[string]interface{}, error) {
			mu.Lock()
			defer mu.Unlock()
			return secrets[path], nil
		},
		WriteSecretFunc: func(ctx context.Context, path string, data map[string]interface{}) error {
			mu.Lock()
			defer mu.Unlock()
			secrets[path] = data
			return nil
		},
	}
}
