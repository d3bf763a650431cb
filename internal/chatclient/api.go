package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxResponseBytes = 8 << 20

// ErrInvalidResponse is returned when the proxy answers with something that
// is not JSON.
var ErrInvalidResponse = errors.New("Invalid server response")

// ServerError carries the error message the proxy reported.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Question string `json:"question"`
	Content  string `json:"content,omitempty"`
	URL      string `json:"url,omitempty"`
	Simplify bool   `json:"simplify"`
}

// APIClient talks to the policychat proxy.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Chat asks a question and returns the formatted answer.
func (c *APIClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Suggest asks the proxy for follow-up questions about content.
func (c *APIClient) Suggest(ctx context.Context, content string) ([]string, error) {
	var out struct {
		Questions []string `json:"questions"`
	}
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, "/api/chat?action=suggest", body, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// CBI returns the text of the Compensation and Benefits Instructions as
// fetched by the proxy.
func (c *APIClient) CBI(ctx context.Context) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/cbi", nil, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

// decodeResponse surfaces the proxy's "error" field for non-2xx responses
// and reports anything that is not JSON as ErrInvalidResponse.
func decodeResponse(resp *http.Response, out any) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return ErrInvalidResponse
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(raw, "error")
		if msg.Type == gjson.String && msg.String() != "" {
			return &ServerError{StatusCode: resp.StatusCode, Message: msg.String()}
		}
		return &ServerError{StatusCode: resp.StatusCode, Message: "Server error"}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return ErrInvalidResponse
	}
	return nil
}
