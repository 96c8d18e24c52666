package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kx0101/scripttester/internal/endpoint"
)

type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

const TimestampLayout = "2006-01-02 15:04:05"

// Record is the immutable outcome of one dispatch. Success records carry
// StatusCode, DurationMs, ResponseData and RequestData; failure records carry
// only ErrorMessage.
type Record struct {
	ID           string            `json:"id"`
	Method       Method            `json:"method"`
	Success      bool              `json:"success"`
	StatusCode   *int              `json:"status_code,omitempty"`
	DurationMs   *int64            `json:"duration_ms,omitempty"`
	Endpoint     endpoint.Endpoint `json:"endpoint"`
	ResponseData json.RawMessage   `json:"response_data,omitempty"`
	RequestData  any               `json:"request_data,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	Timestamp    string            `json:"timestamp"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Outcome is what a successful dispatch hands back to be recorded.
type Outcome struct {
	StatusCode int
	DurationMs int64
	Payload    json.RawMessage
	Sent       any
}

func NewSuccess(method Method, ep endpoint.Endpoint, out Outcome) Record {
	status := out.StatusCode
	duration := out.DurationMs

	payload := out.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	return newRecord(method, ep, func(r *Record) {
		r.Success = true
		r.StatusCode = &status
		r.DurationMs = &duration
		r.ResponseData = payload
		r.RequestData = out.Sent
	})
}

func NewFailure(method Method, ep endpoint.Endpoint, err error) Record {
	msg := "Unknown error occurred"
	if err != nil {
		msg = err.Error()
	}

	return newRecord(method, ep, func(r *Record) {
		r.ErrorMessage = &msg
	})
}

func newRecord(method Method, ep endpoint.Endpoint, fill func(*Record)) Record {
	now := time.Now()
	r := Record{
		ID:        uuid.New().String(),
		Method:    method,
		Endpoint:  ep,
		Timestamp: now.Format(TimestampLayout),
		CreatedAt: now,
	}

	fill(&r)
	return r
}

type Summary struct {
	TotalRequests int                      `json:"total_requests"`
	Succeeded     int                      `json:"succeeded"`
	Failed        int                      `json:"failed"`
	Latency       LatencyStats             `json:"latency"`
	ByEndpoint    map[string]EndpointStats `json:"by_endpoint"`
}

type LatencyStats struct {
	P50 int64 `json:"p50"`
	P90 int64 `json:"p90"`
	P95 int64 `json:"p95"`
	P99 int64 `json:"p99"`
	Min int64 `json:"min"`
	Max int64 `json:"max"`
	Avg int64 `json:"avg"`
}

type EndpointStats struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Latency   LatencyStats `json:"latency"`
}
