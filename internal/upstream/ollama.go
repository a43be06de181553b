// Package upstream holds the thin wire-I/O clients for each upstream
// LLM backend (spec.md §4.2). A client's job ends at "send the right
// bytes, decode the JSON that comes back" — semantic translation to and
// from OpenAI shape lives one layer up, in internal/provider.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OllamaClient is the wire client for a local Ollama-compatible runner
// (spec.md: OLLAMA_HOST). It speaks three endpoints: GET /api/tags,
// POST /api/embeddings, POST /api/chat.
type OllamaClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration

	// stub is the deterministic in-process stand-in, created the first
	// time a real connection to a localhost baseURL fails to dial
	// (spec.md §4.2). Every call still tries the network first; the stub
	// answers only the calls whose dial fails.
	stub *localStub
}

// NewOllamaClient creates an OllamaClient against baseURL using client
// for transport. Passing a preconstructed *http.Client lets callers
// inject a test transport (including a go-vcr cassette recorder);
// ownership of that client stays with the caller.
func NewOllamaClient(baseURL string, timeout time.Duration, client *http.Client) *OllamaClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
	}
}

// OllamaMessage is one message in an /api/chat request or response.
type OllamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OllamaChatRequest is the /api/chat request body.
type OllamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []OllamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// OllamaChatResponse is one /api/chat response event — identical shape
// for the unary response and every line of a streamed response.
type OllamaChatResponse struct {
	Model      string        `json:"model"`
	CreatedAt  string        `json:"created_at"`
	Message    OllamaMessage `json:"message"`
	Done       bool          `json:"done"`
	DoneReason string        `json:"done_reason"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// OllamaTagsResponse is the GET /api/tags response.
type OllamaTagsResponse struct {
	Models []OllamaTag `json:"models"`
}

// OllamaTag is one entry in the tags list.
type OllamaTag struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at"`
}

// OllamaEmbeddingsRequest is the /api/embeddings request body.
type OllamaEmbeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// OllamaEmbeddingsResponse is the /api/embeddings response body.
type OllamaEmbeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}

// isLocalhost reports whether the client's base URL targets loopback —
// the only case eligible for the deterministic stub fallback.
func (c *OllamaClient) isLocalhost() bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// shouldFallback decides whether a transport error on a localhost target
// should be masked by the deterministic stub (spec.md §4.2: connection
// refused / DNS failure only — explicit 5xx and read timeouts are never
// masked, since those aren't passed to this function; they're decoded
// from a real HTTP response).
func (c *OllamaClient) shouldFallback(err error) bool {
	if !c.isLocalhost() || err == nil {
		return false
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) && netErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func (c *OllamaClient) ensureStub() *localStub {
	if c.stub == nil {
		c.stub = newLocalStub()
	}
	return c.stub
}

// ListTags fetches the local model catalog.
func (c *OllamaClient) ListTags(ctx context.Context) (*OllamaTagsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("building tags request: %w", err)
	}
	forwardCorrelationID(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		if c.shouldFallback(err) {
			return c.ensureStub().ListTags(), nil
		}
		return nil, fmt.Errorf("calling ollama /api/tags: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama /api/tags returned status %d", resp.StatusCode)
	}

	var out OllamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding ollama tags response: %w", err)
	}
	return &out, nil
}

// Embeddings requests a single embedding vector for prompt.
func (c *OllamaClient) Embeddings(ctx context.Context, model, prompt string) (*OllamaEmbeddingsResponse, error) {
	body, err := json.Marshal(OllamaEmbeddingsRequest{Model: model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshaling embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	forwardCorrelationID(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		if c.shouldFallback(err) {
			return c.ensureStub().Embeddings(model, prompt), nil
		}
		return nil, fmt.Errorf("calling ollama /api/embeddings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama /api/embeddings returned status %d", resp.StatusCode)
	}

	var out OllamaEmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding ollama embeddings response: %w", err)
	}
	return &out, nil
}

// Chat sends a unary (non-streaming) chat request.
func (c *OllamaClient) Chat(ctx context.Context, chatReq OllamaChatRequest) (*OllamaChatResponse, error) {
	chatReq.Stream = false

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	forwardCorrelationID(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		if c.shouldFallback(err) {
			return c.ensureStub().Chat(chatReq), nil
		}
		return nil, fmt.Errorf("calling ollama /api/chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama /api/chat returned status %d", resp.StatusCode)
	}

	var out OllamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding ollama chat response: %w", err)
	}
	return &out, nil
}

// ChatStream sends a streaming chat request and returns the raw response
// body for internal/streamdecode to parse. The caller owns closing it.
// Unlike the unary path, a dial failure on localhost is NOT masked by
// the stub here — OllamaProvider.StreamChatCompletion (internal/provider)
// owns the decision of whether to fall back, via DialProbe, before ever
// opening a real connection.
func (c *OllamaClient) ChatStream(ctx context.Context, chatReq OllamaChatRequest) (io.ReadCloser, error) {
	chatReq.Stream = true

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	forwardCorrelationID(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama /api/chat (stream): %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("ollama /api/chat (stream) returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// DialProbe reports whether the configured base URL is reachable right
// now, without sending an actual API call. Non-localhost targets always
// report true. OllamaProvider.StreamChatCompletion uses this to
// decide — before it ever opens a long-lived connection — whether to
// serve the deterministic stub instead, mirroring the unary path's
// fallback-on-dial-failure behavior for localhost targets.
func (c *OllamaClient) DialProbe(ctx context.Context) bool {
	if !c.isLocalhost() {
		return true
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return true
	}
	d := net.Dialer{Timeout: 500 * time.Millisecond}
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Stub exposes the deterministic local stub for
// OllamaProvider.StreamChatCompletion (internal/provider) to use when
// DialProbe fails.
func (c *OllamaClient) Stub() *localStub {
	return c.ensureStub()
}
