package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/morezero/member-query/pkg/dispatcher"
	"github.com/morezero/member-query/pkg/orchestrator"
)

const httpLogPrefix = "server:http"

// Scope headers of the query endpoints.
const (
	HeaderHealthPlanID  = "healthPlanId"
	HeaderYearOfService = "yearOfService"
)

// queryBody is the body of POST /member/query.
type queryBody struct {
	Question string `json:"question"`
}

// queryReply is the success body of the query endpoints.
type queryReply struct {
	Answer  string `json:"answer"`
	Outcome string `json:"outcome"`
	RunID   string `json:"runId"`
}

// errorReply is the failure body of the query endpoints.
type errorReply struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	RunID string `json:"runId,omitempty"`
}

// Handler returns the HTTP handler with every route and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/member/query", s.handleQuery)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/capabilities", s.handleCapabilities)
	mux.HandleFunc("/capabilities/openapi.json", s.handleOpenAPI)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	return s.withCORS(mux)
}

// withCORS answers preflight requests and sets CORS headers for allowed origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowed := make(map[string]bool)
	for _, o := range s.cfg.CORSAllowedOrigins {
		allowed[strings.TrimSpace(o)] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", HeaderHealthPlanID, HeaderYearOfService}, ", "))
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorReply{Error: "method not allowed"})
		return
	}

	var body queryBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "invalid request body", Code: codeInvalidRequest})
		return
	}
	question := strings.TrimSpace(body.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "question is required", Code: codeInvalidRequest})
		return
	}

	rc, err := requestContextFromHeaders(r.Header)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: err.Error(), Code: codeInvalidRequest})
		return
	}

	res, err := s.runner.Run(r.Context(), question, rc)
	if err != nil {
		status := statusForError(err)
		code := orchestrator.ErrorCode(err)
		runID := ""
		if res != nil {
			runID = res.RunID
		}
		slog.Error(fmt.Sprintf("%s - query run %s failed (%s): %v", httpLogPrefix, runID, code, err))
		writeJSON(w, status, errorReply{Error: orchestrator.Diagnostic(err), Code: code, RunID: runID})
		return
	}
	writeJSON(w, http.StatusOK, queryReply{Answer: res.Answer, Outcome: res.Outcome, RunID: res.RunID})
}

// requestContextFromHeaders maps the scope headers into a request context.
func requestContextFromHeaders(h http.Header) (dispatcher.RequestContext, error) {
	rc := dispatcher.RequestContext{HealthPlanID: strings.TrimSpace(h.Get(HeaderHealthPlanID))}
	if raw := strings.TrimSpace(h.Get(HeaderYearOfService)); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return rc, fmt.Errorf("%s header must be an integer", HeaderYearOfService)
		}
		rc.YearOfService = year
	}
	return rc, nil
}

// statusForError maps a run error to an HTTP status.
func statusForError(err error) int {
	if orchestrator.IsClientError(err) {
		return http.StatusBadRequest
	}
	switch orchestrator.ErrorCode(err) {
	case orchestrator.CodeModelUnavailable:
		return http.StatusBadGateway
	case orchestrator.CodeTimeout:
		return http.StatusGatewayTimeout
	case orchestrator.CodeCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorReply{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"capabilities": s.catalog.List()})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, buildOpenAPISpec(s.catalog))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()
	h := s.health.Health(ctx)
	status := http.StatusOK
	if h.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - response encode: %v", httpLogPrefix, err))
	}
}
