package mockscript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kx0101/scripttester/internal/endpoint"
)

const (
	scriptName    = "Mock Apps Script"
	scriptVersion = "2.0.0"
	environment   = "mock"
)

type Options struct {
	// FailStatus makes every request answer with this status when non-zero.
	FailStatus int
	Latency    time.Duration
	Logger     *slog.Logger
}

// Server emulates the script web app: GET and POST on the root and on the
// /api, /health, /stats and /test paths. A "status" query parameter forces
// an error response with that code.
type Server struct {
	opts    Options
	logger  *slog.Logger
	started time.Time

	mu           sync.Mutex
	requestCount int
	lastRequest  *string
	userData     []UserDataItem
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		opts:    opts,
		logger:  logger.With("component", "mockscript"),
		started: time.Now(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logging)
	r.Use(s.faults)

	for _, ep := range endpoint.All() {
		path := ep.Path()
		if path == "" {
			path = "/"
		}

		r.Get(path, s.handleGet(ep))
		r.Post(path, s.handlePost(ep))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Unknown path", r.URL.Path)
	})

	return r
}

func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requestCount
}

func (s *Server) handleGet(ep endpoint.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := map[string]string{}
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				query[k] = v[len(v)-1]
			}
		}

		count, now := s.track(query, ep)
		resp := s.baseResponse(http.MethodGet, ep, count, now)
		resp.Parameters = query
		resp.Message = fmt.Sprintf("GET request to %s processed", ep.Label())

		respondJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handlePost(ep endpoint.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}

		count, now := s.track(body, ep)
		resp := s.baseResponse(http.MethodPost, ep, count, now)
		resp.ReceivedData = body
		resp.Message = fmt.Sprintf("POST request to %s processed", ep.Label())

		if ep == endpoint.Test {
			resp.Data["echo"] = body
		}

		respondJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) track(data any, ep endpoint.Endpoint) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339)

	s.requestCount++
	s.lastRequest = &stamp
	s.userData = append(s.userData, UserDataItem{
		ID:        s.requestCount,
		Timestamp: stamp,
		Data:      data,
		Source:    "mockscript",
		Path:      ep.Name(),
	})

	return s.requestCount, now
}

func (s *Server) baseResponse(method string, ep endpoint.Endpoint, count int, now time.Time) Response {
	info := ServerInfo{Platform: "Go", Version: scriptVersion, Environment: environment}

	resp := Response{
		Success:      true,
		Method:       method,
		Path:         ep.Name(),
		Timestamp:    now.Format(time.RFC3339),
		RequestCount: count,
		RequestID:    uuid.New().String(),
	}

	switch ep {
	case endpoint.Health:
		resp.Data = map[string]any{
			"status":     "healthy",
			"uptime":     time.Since(s.started).Round(time.Second).String(),
			"serverInfo": info,
		}
	case endpoint.Stats:
		resp.Data = map[string]any{
			"statistics": s.statistics(),
			"serverInfo": info,
		}
	case endpoint.Test:
		resp.Data = map[string]any{
			"test":         true,
			"randomNumber": rand.Intn(1000), //#nosec G404
			"serverInfo":   info,
		}
	default:
		info.LastDeploy = s.started.UTC().Format(time.RFC3339)
		resp.ScriptInfo = &ScriptInfo{
			Name:        scriptName,
			Version:     scriptVersion,
			Environment: environment,
			LastDeploy:  info.LastDeploy,
			Endpoints: Endpoints{
				Root:   "/",
				API:    endpoint.API.Path(),
				Health: endpoint.Health.Path(),
				Stats:  endpoint.Stats.Path(),
				Test:   endpoint.Test.Path(),
			},
		}
		resp.Data = map[string]any{
			"currentTime": now.Format(time.RFC3339),
			"serverInfo":  info,
			"userData":    s.recentUserData(5),
			"statistics":  s.statistics(),
		}
	}

	return resp
}

func (s *Server) statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Statistics{
		TotalRequests: s.requestCount,
		DataCount:     len(s.userData),
		LastRequest:   s.lastRequest,
	}
}

func (s *Server) recentUserData(n int) []UserDataItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := max(len(s.userData)-n, 0)
	out := make([]UserDataItem, len(s.userData)-start)
	copy(out, s.userData[start:])

	return out
}

func (s *Server) faults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Latency > 0 {
			time.Sleep(s.opts.Latency)
		}

		status := s.opts.FailStatus
		if v := r.URL.Query().Get("status"); v != "" {
			if code, err := strconv.Atoi(v); err == nil && code >= 400 && code <= 599 {
				status = code
			}
		}

		if status != 0 {
			respondError(w, status, http.StatusText(status), "forced failure")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
