package openbao

import "time"

const (
	// DefaultTimeout bounds each API request when the config does not
	// set one.
	DefaultTimeout = 30 * time.Second
)

// Config holds the connection settings for one cluster.
type Config struct {
	Address   string        // base URL, e.g. https://localhost:8201
	Token     string        // admin token; sealed into protected memory by New
	VerifySSL bool          // verify the server certificate
	Timeout   time.Duration // per-request timeout
}

// MountInfo describes an enabled secret engine or auth method as
// returned by the sys/mounts and sys/auth listings.
type MountInfo struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Config      map[string]interface{} `json:"config"`
	Options     map[string]string      `json:"options"`
}

// MountInput is the payload for enabling a secret engine or auth
// method.
type MountInput struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	Options     map[string]string      `json:"options,omitempty"`
}

// HealthStatus is the subset of sys/health this tool cares about.
type HealthStatus struct {
	Initialized bool `json:"initialized"`
	Sealed      bool `json:"sealed"`
	Standby     bool `json:"standby"`
}

// Response envelopes. The admin API wraps payloads in a "data" object.

type mountsResponse struct {
	Data map[string]MountInfo `json:"data"`
}

type listResponse struct {
	Data struct {
		Keys []string `json:"keys"`
	} `json:"data"`
}

type secretResponse struct {
	Data map[string]interface{} `json:"data"`
}

type policyResponse struct {
	Data struct {
		Name   string `json:"name"`
		Policy string `json:"policy"`
	} `json:"data"`
}

type errorResponse struct {
	Errors []string `json:"errors"`
}
