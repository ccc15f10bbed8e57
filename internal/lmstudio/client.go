// Package lmstudio provides a client for a local LM Studio server through its
// OpenAI-compatible REST API. It supports a health probe against the model
// listing endpoint and single-turn image analysis via chat completions.
//
// Local vision inference is slow, so analysis requests use a long timeout.
// Failures are returned as *RequestError values carrying an ErrorKind; retries
// follow an explicit RetryPolicy which defaults to a single attempt.
package lmstudio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fpang/ai-gallery/internal/styles"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is where LM Studio listens by default.
	DefaultBaseURL = "http://localhost:1234"

	// DefaultModel is the logical vision model name sent with each request.
	DefaultModel = "llava"

	// DefaultHealthTimeout bounds the model-listing probe.
	DefaultHealthTimeout = 5 * time.Second

	// DefaultAnalyzeTimeout bounds a single chat completion attempt.
	DefaultAnalyzeTimeout = 120 * time.Second

	maxTokens   = 500
	temperature = 0.7
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Model          string
	HealthTimeout  time.Duration
	AnalyzeTimeout time.Duration
	Retry          RetryPolicy
}

// Client talks to one LM Studio server.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	model          string
	healthTimeout  time.Duration
	analyzeTimeout time.Duration
	retry          RetryPolicy
}

// NewClient creates a client for the LM Studio server at baseURL.
func NewClient(baseURL string, opts Options) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient:     &http.Client{},
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          opts.Model,
		healthTimeout:  opts.HealthTimeout,
		analyzeTimeout: opts.AnalyzeTimeout,
		retry:          opts.Retry,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.healthTimeout <= 0 {
		c.healthTimeout = DefaultHealthTimeout
	}
	if c.analyzeTimeout <= 0 {
		c.analyzeTimeout = DefaultAnalyzeTimeout
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = DefaultRetryPolicy()
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// Model returns the model name sent with analysis requests.
func (c *Client) Model() string { return c.model }

// --- Wire types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

// --- Health ---

// CheckHealth probes GET /v1/models. It returns true when the server answers
// 200, otherwise false with a message distinguishing an unreachable server,
// a timeout, and a non-success status.
func (c *Client) CheckHealth(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return false, fmt.Sprintf("Error: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		reqErr := classifyTransportError(err)
		log.Debug().Err(err).Str("kind", reqErr.Kind.String()).Msg("LM Studio health check failed")
		if reqErr.Kind == ErrTimeout {
			return false, "Connection to LM Studio timed out"
		}
		return false, "Cannot connect to LM Studio. Is it running?"
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("LM Studio returned status %d", resp.StatusCode)
	}
	return true, "LM Studio is connected"
}

// --- Analysis ---

// Analyze sends one image with the style's prompt and returns the model's raw
// answer text. Transient failures are retried according to the client's
// RetryPolicy; the last failure is returned as a *RequestError.
func (c *Client) Analyze(ctx context.Context, image []byte, mimeType string, style styles.Style) (string, error) {
	body, err := json.Marshal(c.buildRequest(image, mimeType, style.Prompt()))
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	attempts := c.retry.attempts()
	var lastErr *RequestError
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := c.retry.backoff(attempt)
			log.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("Retrying LM Studio analysis request")
			select {
			case <-ctx.Done():
				return "", &RequestError{Kind: ErrConnection, Message: "analysis cancelled", Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		content, reqErr := c.postCompletion(ctx, body, style.Key())
		if reqErr == nil {
			return content, nil
		}
		lastErr = reqErr
		if !reqErr.retryable() {
			break
		}
	}
	return "", lastErr
}

func (c *Client) buildRequest(image []byte, mimeType, prompt string) chatRequest {
	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	return chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			},
		}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// postCompletion performs a single chat completion attempt.
func (c *Client) postCompletion(ctx context.Context, body []byte, styleKey string) (string, *RequestError) {
	ctx, cancel := context.WithTimeout(ctx, c.analyzeTimeout)
	defer cancel()

	startTime := time.Now()
	log.Debug().
		Str("model", c.model).
		Str("style", styleKey).
		Int("bodyBytes", len(body)).
		Msg("LM Studio chat completion request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &RequestError{Kind: ErrConnection, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("LM Studio response")
		return "", classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	log.Debug().Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Msg("LM Studio response")

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		reqErr := classifyTransportError(err)
		reqErr.Message = "read response"
		return "", reqErr
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", &RequestError{
			Kind:       ErrBadStatus,
			StatusCode: httpResp.StatusCode,
			Message:    fmt.Sprintf("LM Studio returned status %d (body: %s)", httpResp.StatusCode, truncate(string(respBody), 200)),
		}
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", &RequestError{
			Kind:       ErrMalformedResponse,
			StatusCode: httpResp.StatusCode,
			Message:    fmt.Sprintf("parse response (body: %s)", truncate(string(respBody), 200)),
			Err:        err,
		}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return "", &RequestError{
			Kind:       ErrMalformedResponse,
			StatusCode: httpResp.StatusCode,
			Message:    fmt.Sprintf("response has no choices[0].message.content (body: %s)", truncate(string(respBody), 200)),
		}
	}

	evt := log.Info().Str("style", styleKey).Dur("duration", duration)
	if resp.Usage != nil {
		evt = evt.Int("promptTokens", resp.Usage.PromptTokens).Int("completionTokens", resp.Usage.CompletionTokens)
	}
	evt.Msg("LM Studio analysis complete")

	return *resp.Choices[0].Message.Content, nil
}

// classifyTransportError maps an http.Client error to a timeout or
// connection RequestError.
func classifyTransportError(err error) *RequestError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &RequestError{Kind: ErrTimeout, Message: "request to LM Studio timed out", Err: err}
	}
	return &RequestError{Kind: ErrConnection, Message: "cannot connect to LM Studio", Err: err}
}

// truncate returns at most n bytes of s, appending "..." if truncated. The
// cut never splits a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
