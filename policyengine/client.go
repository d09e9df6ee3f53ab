package policyengine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/bytedance/sonic"

	"github.com/jonwraymond/gatewayauthz/resilience"
)

// DefaultService is the SigV4 signing name of the decision service.
const DefaultService = "bedrock-agentcore"

const maxResponseBytes = 1 << 20

// ClientConfig configures a Client.
type ClientConfig struct {
	// Endpoint is the service base URL. Default:
	// https://bedrock-agentcore.<Region>.amazonaws.com
	Endpoint string

	// GatewayID identifies the gateway whose policy engine is queried. Required.
	GatewayID string

	// Region is the signing region. Required.
	Region string

	// Service is the signing name. Default: DefaultService
	Service string

	// Credentials signs requests. Required for NewClient; NewClientFromConfig
	// loads the default chain when nil.
	Credentials aws.CredentialsProvider

	// HTTPClient sends requests. Default: a client with a 5s timeout.
	HTTPClient *http.Client

	// Executor wraps every call. Default: DefaultExecutor().
	Executor *resilience.Executor

	// Now overrides the signing clock. Default: time.Now
	Now func() time.Time
}

// DefaultExecutor guards the decision service with a bulkhead, a circuit
// breaker, two attempts on transient failures and a 3s per-attempt timeout.
func DefaultExecutor() *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: 64,
			MaxWait:       100 * time.Millisecond,
		})),
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         "policyengine",
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 50 * time.Millisecond,
			Jitter:       true,
		})),
		resilience.WithTimeout(3*time.Second),
	)
}

// Client calls PartiallyAuthorizeActions over HTTPS with SigV4 signing.
type Client struct {
	config ClientConfig
	url    string
	signer *v4.Signer
}

// NewClient creates a decision service client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.GatewayID == "" {
		return nil, fmt.Errorf("%w: gateway id is required", ErrInvalidConfig)
	}
	if config.Region == "" {
		return nil, fmt.Errorf("%w: region is required", ErrInvalidConfig)
	}
	if config.Credentials == nil {
		return nil, fmt.Errorf("%w: credentials are required", ErrInvalidConfig)
	}
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Endpoint == "" {
		config.Endpoint = fmt.Sprintf("https://%s.%s.amazonaws.com", config.Service, config.Region)
	}
	if _, err := url.ParseRequestURI(config.Endpoint); err != nil {
		return nil, fmt.Errorf("%w: endpoint: %v", ErrInvalidConfig, err)
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	if config.Executor == nil {
		config.Executor = DefaultExecutor()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Client{
		config: config,
		url: strings.TrimSuffix(config.Endpoint, "/") +
			"/gateways/" + url.PathEscape(config.GatewayID) + "/partially-authorize-actions",
		signer: v4.NewSigner(),
	}, nil
}

// NewClientFromConfig fills missing region and credentials from the AWS
// default configuration chain and creates a client.
func NewClientFromConfig(ctx context.Context, config ClientConfig) (*Client, error) {
	if config.Credentials == nil || config.Region == "" {
		var opts []func(*awsconfig.LoadOptions) error
		if config.Region != "" {
			opts = append(opts, awsconfig.WithRegion(config.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: load aws config: %v", ErrInvalidConfig, err)
		}
		if config.Region == "" {
			config.Region = awsCfg.Region
		}
		if config.Credentials == nil {
			config.Credentials = awsCfg.Credentials
		}
	}
	return NewClient(config)
}

type authorizeRequest struct {
	PrincipalAccessToken string   `json:"principalAccessToken"`
	ActionsToAuthorize   []Action `json:"actionsToAuthorize"`
}

// AuthorizeActions asks the service which of actions token may perform.
func (c *Client) AuthorizeActions(ctx context.Context, token string, actions []Action) (Result, error) {
	if len(actions) == 0 {
		return Result{}, nil
	}
	body, err := sonic.ConfigStd.Marshal(authorizeRequest{
		PrincipalAccessToken: token,
		ActionsToAuthorize:   actions,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	var result Result
	err = c.config.Executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = c.send(ctx, body)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, body []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	hash := sha256.Sum256(body)
	bodyHash := hex.EncodeToString(hash[:])
	req.Header.Set("x-amz-content-sha256", bodyHash)

	creds, err := c.config.Credentials.Retrieve(ctx)
	if err != nil {
		return Result{}, resilience.Permanent(fmt.Errorf("retrieve credentials: %w", err))
	}
	if err := c.signer.SignHTTP(ctx, creds, req, bodyHash, c.config.Service, c.config.Region, c.config.Now()); err != nil {
		return Result{}, resilience.Permanent(fmt.Errorf("sign request: %w", err))
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Result{}, fmt.Errorf("status %d: %s", resp.StatusCode, errorType(resp, data))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Result{}, resilience.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, errorType(resp, data)))
	}

	var result Result
	if err := sonic.ConfigStd.Unmarshal(data, &result); err != nil {
		return Result{}, resilience.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return result, nil
}

// errorType extracts the service error code from an error response.
func errorType(resp *http.Response, data []byte) string {
	if t := resp.Header.Get("X-Amzn-Errortype"); t != "" {
		if i := strings.IndexByte(t, ':'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	var body struct {
		Type    string `json:"__type"`
		Message string `json:"message"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &body); err == nil && body.Type != "" {
		return body.Type
	}
	return http.StatusText(resp.StatusCode)
}

var _ Authorizer = (*Client)(nil)
