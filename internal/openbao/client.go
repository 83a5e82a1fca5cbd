package openbao

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	baoerrors "github.com/systmms/baorepl/internal/errors"
	"github.com/systmms/baorepl/internal/logging"
	"github.com/systmms/baorepl/internal/secure"
)

// Client talks to one cluster's administrative API. The token lives in
// a memguard enclave and is opened per request; the request itself is
// plain HTTP against the /v1/ API the way the upstream CLI does it.
type Client struct {
	name   string // cluster role for log lines, e.g. "primary"
	config Config
	token  *secure.Token
	http   *http.Client
	logger *logging.Logger
}

// New creates a client for one cluster. The plaintext token in cfg is
// sealed into protected memory and not retained on the struct.
func New(name string, cfg Config, logger *logging.Logger) *Client {
	token := secure.NewToken(cfg.Token)
	cfg.Token = ""

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if !cfg.VerifySSL {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		name:   name,
		config: cfg,
		token:  token,
		http:   httpClient,
		logger: logger,
	}
}

// Name returns the cluster role this client was built for.
func (c *Client) Name() string {
	return c.name
}

// Address returns the cluster base URL.
func (c *Client) Address() string {
	return c.config.Address
}

// Close wipes the sealed token.
func (c *Client) Close() error {
	c.token.Destroy()
	return nil
}

// url builds the request URL for an API path. A query string already
// present on the path (e.g. "?list=true") is preserved.
func (c *Client) url(path string) string {
	return strings.TrimSuffix(c.config.Address, "/") + "/v1/" + strings.TrimPrefix(path, "/")
}

// do issues one authenticated request. A non-2xx response is returned
// as a classified *errors.APIError; when out is non-nil the response
// body is decoded into it.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	plain, done, err := c.token.Reveal()
	if err != nil {
		return fmt.Errorf("failed to unseal token: %w", err)
	}
	req.Header.Set("X-Vault-Token", plain)
	done()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("%s %s %s", c.name, method, req.URL.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		return baoerrors.Transport(path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

// apiError reads the error body and classifies the failure.
func (c *Client) apiError(resp *http.Response, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := ""
	var errResp errorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && len(errResp.Errors) > 0 {
		message = strings.Join(errResp.Errors, "; ")
	} else if len(raw) > 0 {
		message = strings.TrimSpace(string(raw))
	}

	return &baoerrors.APIError{
		Kind:    baoerrors.ClassifyStatus(resp.StatusCode, message),
		Status:  resp.StatusCode,
		Path:    path,
		Message: message,
	}
}
