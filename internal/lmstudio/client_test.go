package lmstudio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/fpang/ai-gallery/internal/styles"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return &Client{
		httpClient:     server.Client(),
		baseURL:        server.URL,
		model:          DefaultModel,
		healthTimeout:  time.Second,
		analyzeTimeout: time.Second,
		retry:          DefaultRetryPolicy(),
	}
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
	})
	return string(b)
}

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantOK  bool
		wantMsg string
	}{
		{"healthy", http.StatusOK, true, "LM Studio is connected"},
		{"server error", http.StatusInternalServerError, false, "LM Studio returned status 500"},
		{"not found", http.StatusNotFound, false, "LM Studio returned status 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/v1/models" {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			ok, msg := newTestClient(server).CheckHealth(context.Background())
			if ok != tt.wantOK || msg != tt.wantMsg {
				t.Errorf("CheckHealth() = (%v, %q), want (%v, %q)", ok, msg, tt.wantOK, tt.wantMsg)
			}
		})
	}
}

func TestCheckHealth_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	ok, msg := client.CheckHealth(context.Background())
	if ok {
		t.Fatal("CheckHealth() = true for closed server")
	}
	if msg != "Cannot connect to LM Studio. Is it running?" {
		t.Errorf("message = %q", msg)
	}
}

func TestCheckHealth_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	client.healthTimeout = 20 * time.Millisecond

	ok, msg := client.CheckHealth(context.Background())
	if ok {
		t.Fatal("CheckHealth() = true for slow server")
	}
	if msg != "Connection to LM Studio timed out" {
		t.Errorf("message = %q", msg)
	}
}

func TestAnalyze_RequestBody(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G', 0x01, 0x02}
	style := styles.Default()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "llava" {
			t.Errorf("model = %q, want llava", req.Model)
		}
		if req.MaxTokens != 500 {
			t.Errorf("max_tokens = %d, want 500", req.MaxTokens)
		}
		if req.Temperature != 0.7 {
			t.Errorf("temperature = %v, want 0.7", req.Temperature)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want one user message", req.Messages)
			return
		}
		parts := req.Messages[0].Content
		if len(parts) != 2 {
			t.Errorf("content parts = %d, want 2", len(parts))
			return
		}
		if parts[0].Type != "text" || parts[0].Text != style.Prompt() {
			t.Errorf("text part = %+v", parts[0])
		}
		wantURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
		if parts[1].Type != "image_url" || parts[1].ImageURL == nil || parts[1].ImageURL.URL != wantURL {
			t.Errorf("image part = %+v, want url %q", parts[1], wantURL)
		}

		w.Write([]byte(completion(`{"description":"ok","tags":[],"suggested_filename":""}`)))
	}))
	defer server.Close()

	got, err := newTestClient(server).Analyze(context.Background(), image, "image/png", style)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !strings.Contains(got, `"description":"ok"`) {
		t.Errorf("Analyze() = %q", got)
	}
}

func TestAnalyze_Failures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantKind   ErrorKind
		wantStatus int
	}{
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusBadRequest)
			},
			wantKind:   ErrBadStatus,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>oops</html>"))
			},
			wantKind:   ErrMalformedResponse,
			wantStatus: http.StatusOK,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			wantKind:   ErrMalformedResponse,
			wantStatus: http.StatusOK,
		},
		{
			name: "null content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[{"message":{"content":null}}]}`))
			},
			wantKind:   ErrMalformedResponse,
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestClient(server).Analyze(context.Background(), []byte("img"), "image/jpeg", styles.Default())
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("Analyze() error = %v, want *RequestError", err)
			}
			if reqErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", reqErr.Kind, tt.wantKind)
			}
			if reqErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", reqErr.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestAnalyze_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	client.analyzeTimeout = 20 * time.Millisecond

	_, err := client.Analyze(context.Background(), []byte("img"), "image/jpeg", styles.Default())
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != ErrTimeout {
		t.Errorf("Analyze() error = %v, want TimeoutError", err)
	}
}

func TestAnalyze_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	_, err := client.Analyze(context.Background(), []byte("img"), "image/jpeg", styles.Default())
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != ErrConnection {
		t.Errorf("Analyze() error = %v, want ConnectionError", err)
	}
}

func TestAnalyze_SingleAttemptByDefault(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server).Analyze(context.Background(), []byte("img"), "image/jpeg", styles.Default())
	if err == nil {
		t.Fatal("Analyze() error = nil, want BadStatus")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestAnalyze_RetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completion("third time lucky")))
	}))
	defer server.Close()

	client := newTestClient(server)
	client.retry = RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

	got, err := client.Analyze(context.Background(), []byte("img"), "image/jpeg", styles.Default())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got != "third time lucky" {
		t.Errorf("Analyze() = %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server called %d times, want 3", n)
	}
}

func TestAnalyze_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server)
	client.retry = RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	if _, err := client.Analyze(context.Background(), []byte("img"), "image/jpeg", styles.Default()); err == nil {
		t.Fatal("Analyze() error = nil")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: 3 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 3 * time.Second},
		{5, 3 * time.Second},
	}
	for _, tt := range tests {
		if got := p.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
	if got := (RetryPolicy{}).attempts(); got != 1 {
		t.Errorf("zero policy attempts = %d, want 1", got)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("http://127.0.0.1:1234/", Options{})
	if c.BaseURL() != "http://127.0.0.1:1234" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
	if c.Model() != DefaultModel {
		t.Errorf("Model() = %q", c.Model())
	}
	if c.healthTimeout != DefaultHealthTimeout || c.analyzeTimeout != DefaultAnalyzeTimeout {
		t.Errorf("timeouts = %v/%v", c.healthTimeout, c.analyzeTimeout)
	}
	if c.retry.MaxAttempts != 1 {
		t.Errorf("retry attempts = %d, want 1", c.retry.MaxAttempts)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "ok", 10, "ok"},
		{"ascii", "abcdef", 3, "abc..."},
		{"cut inside rune", "ab\u00e9cd", 3, "ab..."},
		{"cut after rune", "ab\u00e9cd", 4, "ab\u00e9..."},
		{"cut inside emoji", "\U0001F600x", 2, "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) = %q is not valid UTF-8", tt.in, tt.n, got)
			}
		})
	}
}
