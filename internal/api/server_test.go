package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/policychat/internal/config"
	"github.com/dgallion1/policychat/internal/gemini"
	"github.com/dgallion1/policychat/internal/page"
	"github.com/dgallion1/policychat/internal/prompt"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, p string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	return f.reply, f.err
}

func (f *fakeGenerator) Model() string { return "gemini-test" }

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakePages struct {
	content *page.Content
	err     error
	gotURL  string
}

func (f *fakePages) Fetch(ctx context.Context, url string) (*page.Content, error) {
	f.gotURL = url
	return f.content, f.err
}

func testConfig() config.Config {
	return config.Config{
		MaxRequestBytes:  1 << 20,
		SuggestMaxTokens: 6000,
		CBIURL:           config.CBIURL,
	}
}

func newTestServer(gen *fakeGenerator, pages *fakePages, cfg config.Config) *Server {
	if pages == nil {
		pages = &fakePages{}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(gen, gemini.NewLLMStats(0), pages, log, cfg)
}

func do(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("response is not JSON: %q", rec.Body.String())
		}
	}
	return rec, out
}

func TestChat_Success(t *testing.T) {
	gen := &fakeGenerator{reply: "  The fee is $50.00 and deadline is 5 days.\n\n\n\nDone.  "}
	s := newTestServer(gen, nil, testConfig())

	rec, out := do(t, s, http.MethodPost, "/api/chat",
		`{"question":"What are the costs?","content":"Fees apply.","url":"https://example.com","simplify":true}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["status"] != "success" {
		t.Errorf("expected status success, got %v", out["status"])
	}
	want := "The fee is **$50.00** and deadline is **5 days**.\n\nDone."
	if out["response"] != want {
		t.Errorf("expected response %q, got %q", want, out["response"])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected json content type, got %q", ct)
	}

	p := gen.lastPrompt()
	if p != prompt.Build("What are the costs?", "Fees apply.", true) {
		t.Errorf("unexpected prompt %q", p)
	}
}

func TestChat_Validation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		code   int
		msg    string
	}{
		{"get", http.MethodGet, "", http.StatusMethodNotAllowed, "Method not allowed"},
		{"put", http.MethodPut, `{"question":"q"}`, http.StatusMethodNotAllowed, "Method not allowed"},
		{"bad json", http.MethodPost, `{"question":`, http.StatusBadRequest, "Invalid request data"},
		{"empty body", http.MethodPost, "", http.StatusBadRequest, "Invalid request data"},
		{"missing question", http.MethodPost, `{"content":"x"}`, http.StatusBadRequest, "Question is required"},
		{"blank question", http.MethodPost, `{"question":"   "}`, http.StatusBadRequest, "Question is required"},
		{"trailing data", http.MethodPost, `{"question":"q"} this is not json`, http.StatusBadRequest, "Invalid request data"},
		{"two objects", http.MethodPost, `{"question":"q"}{"question":"r"}`, http.StatusBadRequest, "Invalid request data"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: "unused"}
			rec, out := do(t, newTestServer(gen, nil, testConfig()), tc.method, "/api/chat", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if out["error"] != tc.msg {
				t.Errorf("expected error %q, got %v", tc.msg, out["error"])
			}
			if len(gen.prompts) != 0 {
				t.Error("expected no upstream call")
			}
		})
	}
}

func TestChat_RequestTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBytes = 32
	s := newTestServer(&fakeGenerator{}, nil, cfg)

	body := `{"question":"` + strings.Repeat("x", 100) + `"}`
	rec, _ := do(t, s, http.MethodPost, "/api/chat", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestOptions_Preflight(t *testing.T) {
	for _, target := range []string{"/api/chat", "/api/cbi", "/api/chat?action=suggest"} {
		rec, _ := do(t, newTestServer(&fakeGenerator{}, nil, testConfig()), http.MethodOptions, target, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", target, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("%s: expected empty body, got %q", target, rec.Body.String())
		}
	}
}

func TestCORSHeaders(t *testing.T) {
	rec, _ := do(t, newTestServer(&fakeGenerator{}, nil, testConfig()), http.MethodGet, "/health", "")
	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s: expected %q, got %q", k, v, got)
		}
	}
}

func TestChat_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		msg     string
		details any
	}{
		{
			name: "upstream status mirrored",
			err: &gemini.UpstreamError{
				StatusCode: http.StatusTooManyRequests,
				Body:       map[string]any{"error": map[string]any{"message": "quota"}},
				Raw:        []byte(`{"error":{"message":"quota"}}`),
			},
			code:    http.StatusTooManyRequests,
			msg:     "API Error",
			details: map[string]any{"error": map[string]any{"message": "quota"}},
		},
		{
			name:    "malformed response",
			err:     &gemini.MalformedResponseError{Body: map[string]any{"candidates": []any{}}},
			code:    http.StatusInternalServerError,
			msg:     "Invalid API response structure",
			details: map[string]any{"candidates": []any{}},
		},
		{
			name:    "transport",
			err:     &gemini.TransportError{Err: errors.New("dial tcp: connection refused")},
			code:    http.StatusInternalServerError,
			msg:     "Connection error",
			details: "dial tcp: connection refused",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeGenerator{err: tc.err}, nil, testConfig())
			rec, out := do(t, s, http.MethodPost, "/api/chat", `{"question":"q"}`)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if out["error"] != tc.msg {
				t.Errorf("expected error %q, got %v", tc.msg, out["error"])
			}
			gotDetails, _ := json.Marshal(out["details"])
			wantDetails, _ := json.Marshal(tc.details)
			if string(gotDetails) != string(wantDetails) {
				t.Errorf("expected details %s, got %s", wantDetails, gotDetails)
			}
		})
	}
}

func TestChat_UpstreamErrorFields(t *testing.T) {
	err := &gemini.UpstreamError{StatusCode: http.StatusServiceUnavailable, Raw: []byte("<html>down</html>")}
	rec, out := do(t, newTestServer(&fakeGenerator{err: err}, nil, testConfig()), http.MethodPost, "/api/chat", `{"question":"q"}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if out["httpCode"] != float64(http.StatusServiceUnavailable) {
		t.Errorf("expected httpCode 503, got %v", out["httpCode"])
	}
	if !strings.Contains(rec.Body.String(), `"details":null`) {
		t.Errorf("expected null details for non-JSON upstream body, got %s", rec.Body.String())
	}
}

func TestUpstreamStatus(t *testing.T) {
	tests := []struct{ in, want int }{
		{400, 400}, {429, 429}, {503, 503}, {302, 502}, {204, 502}, {0, 502},
	}
	for _, tc := range tests {
		if got := upstreamStatus(tc.in); got != tc.want {
			t.Errorf("upstreamStatus(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSuggest_Success(t *testing.T) {
	gen := &fakeGenerator{reply: "1. What is covered?\n2. Who is eligible?\n3. How do I claim?\n4. Extra?"}
	s := newTestServer(gen, nil, testConfig())

	rec, out := do(t, s, http.MethodPost, "/api/chat?action=suggest", `{"content":"Meals are covered."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	qs, _ := out["questions"].([]any)
	if len(qs) != 3 || qs[0] != "What is covered?" || qs[2] != "How do I claim?" {
		t.Errorf("unexpected questions %v", out["questions"])
	}
	if gen.lastPrompt() != prompt.BuildSuggest("Meals are covered.") {
		t.Errorf("unexpected suggest prompt %q", gen.lastPrompt())
	}
}

func TestSuggest_TruncatesContent(t *testing.T) {
	cfg := testConfig()
	cfg.SuggestMaxTokens = 10
	gen := &fakeGenerator{reply: "a?\nb?\nc?"}
	s := newTestServer(gen, nil, cfg)

	long := strings.Repeat("Travel claims must include receipts. ", 50)
	body, _ := json.Marshal(map[string]string{"content": long})
	rec, _ := do(t, s, http.MethodPost, "/api/chat?action=suggest", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(gen.lastPrompt()) >= len(prompt.BuildSuggest(long)) {
		t.Error("expected content to be truncated before the upstream call")
	}
}

func TestSuggest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		reply string
		code  int
		msg   string
	}{
		{"empty content", `{"content":""}`, "a?\nb?\nc?", http.StatusBadRequest, "Content is required"},
		{"bad json", `nope`, "", http.StatusBadRequest, "Invalid request data"},
		{"trailing data", `{"content":"doc"} extra`, "a?\nb?\nc?", http.StatusBadRequest, "Invalid request data"},
		{"too few questions", `{"content":"doc"}`, "Only one?", http.StatusBadGateway, "could not generate questions"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeGenerator{reply: tc.reply}, nil, testConfig())
			rec, out := do(t, s, http.MethodPost, "/api/chat?action=suggest", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if out["error"] != tc.msg {
				t.Errorf("expected error %q, got %v", tc.msg, out["error"])
			}
		})
	}
}

func TestCBI(t *testing.T) {
	pages := &fakePages{content: page.NewContent("CBI", "Chapter 205 Allowances.")}
	rec, out := do(t, newTestServer(&fakeGenerator{}, pages, testConfig()), http.MethodGet, "/api/cbi", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["content"] != "Chapter 205 Allowances." {
		t.Errorf("unexpected content %v", out["content"])
	}
	if pages.gotURL != config.CBIURL {
		t.Errorf("expected fetch of %q, got %q", config.CBIURL, pages.gotURL)
	}
}

func TestCBI_FetchFailure(t *testing.T) {
	pages := &fakePages{err: errors.New("failed to fetch content: Service Unavailable")}
	rec, out := do(t, newTestServer(&fakeGenerator{}, pages, testConfig()), http.MethodGet, "/api/cbi", "")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if out["error"] != "failed to fetch content: Service Unavailable" {
		t.Errorf("unexpected error %v", out["error"])
	}
}

func TestCBI_MethodNotAllowed(t *testing.T) {
	rec, out := do(t, newTestServer(&fakeGenerator{}, nil, testConfig()), http.MethodPost, "/api/cbi", "{}")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if out["error"] != "Method not allowed" {
		t.Errorf("unexpected error %v", out["error"])
	}
}

func TestLLMStats(t *testing.T) {
	rec, out := do(t, newTestServer(&fakeGenerator{}, nil, testConfig()), http.MethodGet, "/api/stats/llm", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["model"] != "gemini-test" {
		t.Errorf("expected model gemini-test, got %v", out["model"])
	}
	if _, ok := out["stats"].(map[string]any); !ok {
		t.Errorf("expected stats object, got %v", out["stats"])
	}
}

func TestHealth(t *testing.T) {
	rec, out := do(t, newTestServer(&fakeGenerator{}, nil, testConfig()), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || out["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", rec.Code, out)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&fakeGenerator{}, nil, testConfig())
	do(t, s, http.MethodGet, "/health", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `policychat_http_requests_total{route="/health",status="200"}`) {
		t.Error("expected request counter for /health")
	}
}
