package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/policychat/internal/chunker"
	"github.com/dgallion1/policychat/internal/format"
	"github.com/dgallion1/policychat/internal/gemini"
	"github.com/dgallion1/policychat/internal/prompt"
)

// suggestionCount is how many follow-up questions the client shows.
const suggestionCount = 3

type chatRequest struct {
	Question string `json:"question"`
	Content  string `json:"content"`
	URL      string `json:"url"`
	Simplify bool   `json:"simplify"`
}

type suggestRequest struct {
	Content string `json:"content"`
}

// handleChat answers a question, or generates suggested questions when
// called with ?action=suggest.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)

	if r.URL.Query().Get("action") == "suggest" {
		s.handleSuggest(w, r)
		return
	}

	var req chatRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "Question is required", http.StatusBadRequest)
		return
	}

	s.log.Info("chat request",
		"question_len", len(req.Question),
		"content_len", len(req.Content),
		"url", req.URL,
		"simplify", req.Simplify,
	)

	text, err := s.llm.Generate(r.Context(), prompt.Build(req.Question, req.Content, req.Simplify))
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response": format.Format(text),
		"status":   "success",
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		jsonError(w, "Content is required", http.StatusBadRequest)
		return
	}

	content := chunker.Truncate(req.Content, s.cfg.SuggestMaxTokens)
	if len(content) < len(req.Content) {
		s.log.Info("suggest content truncated",
			"original_tokens", chunker.EstimateTokens(req.Content),
			"max_tokens", s.cfg.SuggestMaxTokens,
		)
	}

	reply, err := s.llm.Generate(r.Context(), prompt.BuildSuggest(content))
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}

	questions := prompt.ParseQuestions(reply, suggestionCount)
	if len(questions) < suggestionCount {
		s.log.Warn("too few suggested questions", "count", len(questions), "reply", reply)
		jsonError(w, "could not generate questions", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

// writeGenerateError maps upstream failures to the proxy's error bodies.
func (s *Server) writeGenerateError(w http.ResponseWriter, err error) {
	var upErr *gemini.UpstreamError
	var malErr *gemini.MalformedResponseError
	var tErr *gemini.TransportError

	switch {
	case errors.As(err, &upErr):
		s.log.Error("upstream api error",
			"status", upErr.StatusCode,
			"body", string(upErr.Raw),
		)
		writeJSON(w, upstreamStatus(upErr.StatusCode), map[string]any{
			"error":    "API Error",
			"details":  upErr.Body,
			"httpCode": upErr.StatusCode,
		})
	case errors.As(err, &malErr):
		s.log.Error("invalid upstream response", "body", malErr.Body)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Invalid API response structure",
			"details": malErr.Body,
		})
	case errors.As(err, &tErr):
		s.log.Error("upstream connection failed", "error", tErr.Err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Connection error",
			"details": tErr.Err.Error(),
		})
	default:
		s.log.Error("generate failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Connection error",
			"details": err.Error(),
		})
	}
}

// upstreamStatus mirrors the upstream status when it is an error status.
func upstreamStatus(code int) int {
	if code < 400 || code > 599 {
		return http.StatusBadGateway
	}
	return code
}
