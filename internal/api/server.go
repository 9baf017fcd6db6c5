// Package api exposes the chat passthrough and the offline plan checker over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/logger"
	"github.com/chris/dayplan/internal/plan"
)

const (
	mockModel     = "mock"
	mockEchoRunes = 64
	maxBodyBytes  = 1 << 20
)

type Server struct {
	client llm.Client
	parse  plan.Options
}

func NewServer(client llm.Client, parse plan.Options) *Server {
	return &Server{client: client, parse: parse}
}

// Routes returns the HTTP handler for the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.health)
	r.Post("/chat", s.chat)
	r.Post("/plan/check", s.checkPlan)
	return r
}

type chatRequest struct {
	Messages []llm.Message `json:"messages"`
	Prompt   string        `json:"prompt"`
	// System is nil when omitted; an explicit empty string sends no system prompt.
	System *string `json:"system"`
	Mock   bool    `json:"mock"`
}

type chatResponse struct {
	Model     string     `json:"model"`
	Content   string     `json:"content"`
	Usage     *llm.Usage `json:"usage"`
	LatencyMS int64      `json:"latency_ms"`
}

type checkRequest struct {
	Content  string `json:"content"`
	Date     string `json:"date"`
	AllDates bool   `json:"all_dates"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "请求体不是合法的 JSON")
		return
	}

	system := llm.ChatSystemPrompt
	if req.System != nil {
		system = *req.System
	}

	messages := req.Messages
	if len(messages) == 0 {
		if req.Prompt == "" {
			writeErr(w, http.StatusBadRequest, "缺少 messages 或 prompt")
			return
		}
		messages = []llm.Message{llm.UserMessage(req.Prompt)}
	}

	if req.Mock {
		writeJSON(w, http.StatusOK, chatResponse{
			Model:     mockModel,
			Content:   fmt.Sprintf("收到：%s...", headRunes(lastUserContent(messages), mockEchoRunes)),
			LatencyMS: time.Since(start).Milliseconds(),
		})
		return
	}

	resp, err := s.client.Chat(r.Context(), system, messages)
	if err != nil {
		logger.Error("chat request failed", "err", err)
		writeErr(w, http.StatusInternalServerError, "模型调用失败："+err.Error())
		return
	}
	usage := resp.Usage
	writeJSON(w, http.StatusOK, chatResponse{
		Model:     resp.Model,
		Content:   resp.Content,
		Usage:     &usage,
		LatencyMS: time.Since(start).Milliseconds(),
	})
}

func (s *Server) checkPlan(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decode(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "请求体不是合法的 JSON")
		return
	}
	if req.Content == "" {
		writeErr(w, http.StatusBadRequest, "缺少 content")
		return
	}
	opts := s.parse
	if req.AllDates {
		opts.AllDates = true
	}
	writeJSON(w, http.StatusOK, plan.Check(req.Content, req.Date, opts))
}

func lastUserContent(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response", "err", err)
	}
}

func writeErr(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
