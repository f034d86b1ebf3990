// Package completion talks to an OpenAI-compatible chat-completion endpoint.
// Calls are never retried; failures come back as typed errors.
package completion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/Skufu/vitreos/internal/metrics"
)

// Defaults used when Config or Request leave a value unset.
const (
	DefaultEndpoint    = "https://text.pollinations.ai/openai"
	DefaultModel       = "openai"
	DefaultMaxTokens   = 900
	DefaultTemperature = 0.4
	DefaultTimeout     = 60 * time.Second

	minKeyLength = 6
)

// ConfigurationError means no usable credential is configured.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "AI not configured: " + e.Reason
}

// TransportError covers unreachable endpoints, non-2xx statuses and
// malformed envelopes. Status is 0 when no HTTP response was received.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return "AI request failed: " + e.Message
	}
	return fmt.Sprintf("AI request failed (status %d): %s", e.Status, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Config holds endpoint settings.
type Config struct {
	APIKey      string
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Image is binary content sent alongside the text context.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL encodes the image for an image_url content part.
func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Request is one system/user exchange. Zero MaxTokens or Temperature fall
// back to the client defaults.
type Request struct {
	Feature      string
	Instructions string
	Context      string
	MaxTokens    int
	Temperature  float64
	Image        *Image
}

// Completer is what orchestrators depend on.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, req Request) (string, error)
}

type Client struct {
	cfg    Config
	http   *resty.Client
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.With().Str("component", "completion").Logger(),
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return len(c.cfg.APIKey) >= minKeyLength
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the request and returns the trimmed message content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", &ConfigurationError{Reason: "no API key"}
	}

	payload := c.buildRequest(req)
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetBody(payload).
		Post(c.cfg.Endpoint)

	metrics.CompletionLatency.WithLabelValues(req.Feature).Observe(time.Since(start).Seconds())

	if err != nil {
		c.record(req.Feature, "unreachable")
		c.logger.Error().Err(err).Str("feature", req.Feature).Msg("completion request failed")
		return "", &TransportError{Message: err.Error(), Err: err}
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		c.record(req.Feature, "http_error")
		msg := fmt.Sprintf("AI API error %d", resp.StatusCode())
		var env errorEnvelope
		if json.Unmarshal(resp.Body(), &env) == nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		c.logger.Error().Int("status", resp.StatusCode()).Str("feature", req.Feature).Str("message", msg).Msg("completion endpoint returned error")
		return "", &TransportError{Status: resp.StatusCode(), Message: msg}
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		c.record(req.Feature, "bad_envelope")
		return "", &TransportError{Status: resp.StatusCode(), Message: "decode response: " + err.Error(), Err: err}
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		c.record(req.Feature, "bad_envelope")
		return "", &TransportError{Status: resp.StatusCode(), Message: "response has no message content"}
	}

	c.record(req.Feature, "ok")
	c.logger.Debug().
		Str("feature", req.Feature).
		Dur("latency", time.Since(start)).
		Int("chars", len(*out.Choices[0].Message.Content)).
		Msg("completion received")

	return strings.TrimSpace(*out.Choices[0].Message.Content), nil
}

func (c *Client) buildRequest(req Request) chatRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}

	var user any = req.Context
	if req.Image != nil {
		user = []contentPart{
			{Type: "image_url", ImageURL: &imageURL{URL: req.Image.DataURL()}},
			{Type: "text", Text: req.Context},
		}
	}

	return chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.Instructions},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

func (c *Client) record(feature, outcome string) {
	metrics.CompletionRequests.WithLabelValues(feature, outcome).Inc()
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
