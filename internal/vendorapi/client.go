// Package vendorapi is the HTTP implementation of onboarding.StepStore
// against the vendor portal API.
package vendorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vendor-onboarding/internal/common/errors"
	commonhttp "vendor-onboarding/internal/common/http"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/common/validation"
	"vendor-onboarding/internal/onboarding"

	"github.com/google/uuid"
)

const (
	profilePath = "/vendor/profile"
	stepPath    = "/vendor/onboarding/step-%d"

	maxBodyBytes = 1 << 20
)

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	FetchRetries    int
	RetryBackoff    time.Duration
	ValidateSchemas bool
}

// Client talks to the vendor API on behalf of one bearer token. Use
// WithToken to derive a per-vendor client from a shared one.
type Client struct {
	http     *commonhttp.Client
	baseURL  string
	token    string
	tokenFn  func() string
	retries  int
	backoff  time.Duration
	validate bool
	logger   logger.Logger
}

var _ onboarding.StepStore = (*Client)(nil)

func NewClient(cfg Config, httpClient *commonhttp.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = commonhttp.NewClient(cfg.Timeout)
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.FetchRetries < 1 {
		cfg.FetchRetries = 1
	}
	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		retries:  cfg.FetchRetries,
		backoff:  cfg.RetryBackoff,
		validate: cfg.ValidateSchemas,
		logger:   log.WithFields(map[string]interface{}{"component": "vendor-api-client"}),
	}
}

// WithToken returns a copy that authenticates as the given vendor.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	cp.tokenFn = nil
	return &cp
}

// WithTokenSource returns a copy that reads the bearer token before every
// call, so a refreshed token is picked up by a long-lived session.
func (c *Client) WithTokenSource(src func() string) *Client {
	cp := *c
	cp.tokenFn = src
	return &cp
}

func (c *Client) bearer() string {
	if c.tokenFn != nil {
		return c.tokenFn()
	}
	return c.token
}

// FetchDraft loads the saved profile. Transient failures are retried with
// exponential backoff; a 404 or an empty profile is ErrDraftNotFound.
func (c *Client) FetchDraft(ctx context.Context) (*onboarding.SavedProfile, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<(attempt-1))
			c.logger.Warn("retrying draft fetch", map[string]interface{}{
				"attempt": attempt + 1,
				"wait":    wait.String(),
				"error":   lastErr,
			})
			select {
			case <-ctx.Done():
				return nil, errors.Normalize(ctx.Err())
			case <-time.After(wait):
			}
		}

		profile, err := c.fetchOnce(ctx)
		if err == nil || err == onboarding.ErrDraftNotFound || !errors.IsRetryable(err) {
			return profile, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context) (*onboarding.SavedProfile, error) {
	status, body, err := c.do(ctx, http.MethodGet, profilePath, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, onboarding.ErrDraftNotFound
	}
	if err := classifyStatus(status, body); err != nil {
		return nil, err
	}

	var data profileData
	if err := c.decode(body, profileResponseSchema, &data); err != nil {
		return nil, err
	}
	if data.Vendor == nil && data.Completion == nil {
		return nil, onboarding.ErrDraftNotFound
	}

	profile := &onboarding.SavedProfile{Completion: data.Completion.toDomain()}
	if data.Vendor != nil {
		profile.Draft = *data.Vendor
	}
	return profile, nil
}

func (c *Client) SubmitVendorType(ctx context.Context, p onboarding.VendorTypePayload) (*onboarding.StepResult, error) {
	return c.submit(ctx, p)
}

func (c *Client) SubmitBusinessInfo(ctx context.Context, p onboarding.BusinessInfoPayload) (*onboarding.StepResult, error) {
	return c.submit(ctx, p)
}

func (c *Client) SubmitVerification(ctx context.Context, p onboarding.VerificationPayload) (*onboarding.StepResult, error) {
	return c.submit(ctx, p)
}

// submit posts one step exactly once. Submissions are never retried here;
// retrying is the vendor's decision.
func (c *Client) submit(ctx context.Context, p onboarding.StepPayload) (*onboarding.StepResult, error) {
	path := fmt.Sprintf(stepPath, int(p.Step()))
	status, body, err := c.do(ctx, http.MethodPost, path, p)
	if err != nil {
		return nil, err
	}
	if err := classifyStatus(status, body); err != nil {
		return nil, err
	}

	var data stepData
	if err := c.decode(body, stepResponseSchema, &data); err != nil {
		return nil, err
	}
	return &onboarding.StepResult{Completion: data.Completion.toDomain()}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal %s payload: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		c.logger.Debug("vendor api call failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err,
		})
		return 0, nil, errors.Normalize(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, errors.Normalize(err)
	}

	c.logger.Debug("vendor api call", map[string]interface{}{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"durationMs": time.Since(started).Milliseconds(),
	})
	return resp.StatusCode, body, nil
}

// classifyStatus maps non-2xx answers onto the error taxonomy.
func classifyStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var env envelope
	_ = json.Unmarshal(body, &env)
	code, message := "", ""
	if env.Error != nil {
		code, message = env.Error.Code, env.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewAuthenticationError(fmt.Sprintf("vendor api answered %d %s", status, message))
	case status >= 500:
		return errors.NewVendorAPIServerError(status, strings.TrimSpace(message))
	default:
		return errors.NewStepRejectedError(status, code, message)
	}
}

// decode unwraps a 2xx envelope into out, checking the document against
// schema first when schema validation is on.
func (c *Client) decode(body []byte, schema *validation.Validator, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.NewMalformedResponseError(fmt.Sprintf("decode envelope: %v", err))
	}
	if !env.Success {
		code, message := "", ""
		if env.Error != nil {
			code, message = env.Error.Code, env.Error.Message
		}
		return errors.NewStepRejectedError(http.StatusOK, code, message)
	}

	if c.validate {
		res, err := schema.ValidateBytes(body)
		if err != nil {
			return errors.NewMalformedResponseError(err.Error())
		}
		if !res.Valid {
			return errors.NewMalformedResponseError(strings.Join(res.GetErrorMessages(), "; "))
		}
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.NewMalformedResponseError(fmt.Sprintf("decode data: %v", err))
	}
	return nil
}
