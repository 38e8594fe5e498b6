package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the hosted Backboard API endpoint
	DefaultBaseURL = "https://app.backboard.io/api"
	// DefaultModel is the model requested for new assistants
	DefaultModel = "gpt-4o-mini"
	// DefaultHTTPTimeout bounds a single remote call at the transport level
	DefaultHTTPTimeout = 60 * time.Second

	apiKeyHeader = "X-API-Key"
)

// RemoteClient is the remote conversation API consumed by the session
// cache: create an assistant, create a thread under it, post a message.
// Calls are never retried; any failure is a single failure event.
type RemoteClient interface {
	CreateAssistant(ctx context.Context, name, systemPrompt string) (string, error)
	CreateThread(ctx context.Context, assistantID string) (string, error)
	SendMessage(ctx context.Context, threadID, content string) (string, error)
}

// Client talks to the Backboard assistants/threads API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// NewClient creates a Backboard API client
func NewClient(apiKey, baseURL, model string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
	}
}

// CreateAssistant registers a persona with the remote service and returns
// its assistant id.
func (c *Client) CreateAssistant(ctx context.Context, name, systemPrompt string) (string, error) {
	body, err := c.post(ctx, "/assistants", map[string]any{
		"name":          name,
		"model":         c.model,
		"system_prompt": systemPrompt,
	})
	if err != nil {
		return "", err
	}

	id := firstString(body, "assistant_id", "id")
	if id == "" {
		return "", &RemoteError{Op: "create assistant", Err: fmt.Errorf("response has no assistant id")}
	}
	return id, nil
}

// CreateThread opens a durable conversation thread under an assistant
func (c *Client) CreateThread(ctx context.Context, assistantID string) (string, error) {
	body, err := c.post(ctx, "/assistants/"+assistantID+"/threads", map[string]any{})
	if err != nil {
		return "", err
	}

	id := firstString(body, "thread_id", "id")
	if id == "" {
		return "", &RemoteError{Op: "create thread", Err: fmt.Errorf("response has no thread id")}
	}
	return id, nil
}

// SendMessage posts a message to a thread and returns the reply text. The
// service spreads the reply across several alternate fields depending on
// version, so each is probed in order.
func (c *Client) SendMessage(ctx context.Context, threadID, content string) (string, error) {
	body, err := c.post(ctx, "/threads/"+threadID+"/messages", map[string]any{
		"content": content,
		"stream":  false,
	})
	if err != nil {
		return "", err
	}

	reply := firstString(body, "content", "message", "response", "text")
	if reply == "" {
		return "", &RemoteError{Op: "send message", Err: fmt.Errorf("response has no reply text")}
	}
	return reply, nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &RemoteError{Op: "POST " + path, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, &RemoteError{Op: "POST " + path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "POST " + path, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &RemoteError{Op: "POST " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("backboard_call_failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &RemoteError{Op: "POST " + path, StatusCode: resp.StatusCode}
	}

	return body, nil
}

// firstString returns the first non-empty string value among the named
// top-level JSON fields.
func firstString(body []byte, fields ...string) string {
	for _, field := range fields {
		if value := gjson.GetBytes(body, field); value.Type == gjson.String && value.Str != "" {
			return value.Str
		}
	}
	return ""
}
