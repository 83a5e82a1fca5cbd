package openbao

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	baoerrors "github.com/systmms/baorepl/internal/errors"
)

// Health verifies the cluster is reachable, unsealed, and that the
// configured token is accepted. sys/health itself is unauthenticated,
// so a token lookup follows it; the two steps let callers distinguish
// connectivity failures from credential failures.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("sys/health"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return baoerrors.Transport("sys/health", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 200 active, 429 standby, 472/473 replication standby: all
	// serve or forward requests. Anything else means the cluster
	// cannot take traffic.
	switch resp.StatusCode {
	case http.StatusOK, http.StatusTooManyRequests, 472, 473:
	default:
		var status HealthStatus
		_ = json.NewDecoder(resp.Body).Decode(&status)
		message := "cluster is not ready"
		if !status.Initialized {
			message = "cluster is not initialized"
		} else if status.Sealed {
			message = "cluster is sealed"
		}
		return &baoerrors.APIError{
			Kind:    baoerrors.Connectivity,
			Status:  resp.StatusCode,
			Path:    "sys/health",
			Message: message,
		}
	}

	// Reachable; now prove the token works.
	return c.do(ctx, http.MethodGet, "auth/token/lookup-self", nil, nil)
}

// ListMounts returns the enabled secret engines keyed by mount path
// (paths carry a trailing slash).
func (c *Client) ListMounts(ctx context.Context) (map[string]MountInfo, error) {
	var resp mountsResponse
	if err := c.do(ctx, http.MethodGet, "sys/mounts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// EnableMount enables a secret engine at the given path.
func (c *Client) EnableMount(ctx context.Context, path string, in MountInput) error {
	return c.do(ctx, http.MethodPost, "sys/mounts/"+path, in, nil)
}

// DisableMount disables the secret engine at the given path.
func (c *Client) DisableMount(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "sys/mounts/"+path, nil, nil)
}

// ListAuthMethods returns the enabled auth methods keyed by mount path.
func (c *Client) ListAuthMethods(ctx context.Context) (map[string]MountInfo, error) {
	var resp mountsResponse
	if err := c.do(ctx, http.MethodGet, "sys/auth", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// EnableAuthMethod enables an auth method at the given path.
func (c *Client) EnableAuthMethod(ctx context.Context, path string, in MountInput) error {
	return c.do(ctx, http.MethodPost, "sys/auth/"+path, in, nil)
}

// DisableAuthMethod disables the auth method at the given path.
func (c *Client) DisableAuthMethod(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "sys/auth/"+path, nil, nil)
}

// ListPolicies returns the names of all ACL policies.
func (c *Client) ListPolicies(ctx context.Context) ([]string, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "sys/policies/acl?list=true", nil, &resp); err != nil {
		if baoerrors.IsKind(err, baoerrors.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	return resp.Data.Keys, nil
}

// ReadPolicy returns the HCL document for one policy.
func (c *Client) ReadPolicy(ctx context.Context, name string) (string, error) {
	var resp policyResponse
	if err := c.do(ctx, http.MethodGet, "sys/policies/acl/"+name, nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.Policy, nil
}

// WritePolicy creates or replaces a policy.
func (c *Client) WritePolicy(ctx context.Context, name, policy string) error {
	body := map[string]string{"policy": policy}
	return c.do(ctx, http.MethodPut, "sys/policies/acl/"+name, body, nil)
}

// DeletePolicy removes a policy.
func (c *Client) DeletePolicy(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "sys/policies/acl/"+name, nil, nil)
}

// ListKeys lists the child names under a namespace path. Names ending
// in "/" are internal nodes. An absent or empty path yields no keys
// rather than an error.
func (c *Client) ListKeys(ctx context.Context, path string) ([]string, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, path+"?list=true", nil, &resp); err != nil {
		if baoerrors.IsKind(err, baoerrors.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	return resp.Data.Keys, nil
}

// ReadSecret returns the key/value data at a leaf path, or nil when
// the path does not exist.
func (c *Client) ReadSecret(ctx context.Context, path string) (map[string]interface{}, error) {
	var resp secretResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if baoerrors.IsKind(err, baoerrors.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	return resp.Data, nil
}

// WriteSecret writes key/value data to a leaf path, replacing whatever
// was there.
func (c *Client) WriteSecret(ctx context.Context, path string, data map[string]interface{}) error {
	return c.do(ctx, http.MethodPost, path, data, nil)
}
