package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/policychat/internal/metrics"
	"github.com/tidwall/gjson"
)

// textPath locates the generated text in a generateContent response.
const textPath = "candidates.0.content.parts.0.text"

// GenerationConfig holds the sampling parameters sent with every request.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultGenerationConfig favors short, factual answers.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.1,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: 1024,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	genCfg     GenerationConfig
	httpClient *http.Client

	Stats *LLMStats
}

func NewClient(apiKey, model, baseURL string, timeout time.Duration, statsWindow time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		genCfg:  DefaultGenerationConfig(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		Stats: NewLLMStats(statsWindow),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
}

// Generate sends prompt as a single user turn and returns the generated text.
// Failures are reported as *TransportError, *UpstreamError or
// *MalformedResponseError.
func (c *Client) Generate(ctx context.Context, prompt string) (_ string, err error) {
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: c.genCfg,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		c.Stats.Record(elapsed, err != nil)
		metrics.UpstreamDuration.Observe(elapsed.Seconds())
	}()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeTransport).Inc()
		return "", &TransportError{Err: scrubKey(err, c.apiKey)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeTransport).Inc()
		return "", &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeUpstream).Inc()
		return "", &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       decode(respBody),
			Raw:        respBody,
		}
	}

	text := gjson.GetBytes(respBody, textPath)
	if !text.Exists() || text.Type == gjson.Null {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return "", &MalformedResponseError{Body: decode(respBody)}
	}

	metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return text.String(), nil
}

// decode returns the JSON value of b, or nil when b is not valid JSON.
func decode(b []byte) any {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	return v
}

// scrubKey removes the API key from errors that embed the request URL.
func scrubKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &scrubbedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
