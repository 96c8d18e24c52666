package mockscript

import (
	"encoding/json"
	"net/http"
	"time"
)

type ServerInfo struct {
	Platform    string `json:"platform"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	LastDeploy  string `json:"lastDeploy,omitempty"`
}

type Endpoints struct {
	Root   string `json:"root"`
	API    string `json:"api"`
	Health string `json:"health"`
	Stats  string `json:"stats"`
	Test   string `json:"test"`
}

type ScriptInfo struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	LastDeploy  string    `json:"lastDeploy"`
	Endpoints   Endpoints `json:"endpoints"`
}

type Statistics struct {
	TotalRequests int     `json:"totalRequests"`
	DataCount     int     `json:"dataCount"`
	LastRequest   *string `json:"lastRequest"`
}

type UserDataItem struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
	Source    string `json:"source"`
	Path      string `json:"path,omitempty"`
}

type Response struct {
	Success      bool              `json:"success"`
	Method       string            `json:"method"`
	Path         string            `json:"path"`
	Timestamp    string            `json:"timestamp"`
	RequestCount int               `json:"requestCount"`
	RequestID    string            `json:"requestId"`
	Message      string            `json:"message"`
	ScriptInfo   *ScriptInfo       `json:"scriptInfo,omitempty"`
	Data         map[string]any    `json:"data"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	ReceivedData map[string]any    `json:"receivedData,omitempty"`
}

type ErrorDetail struct {
	Message       string `json:"message"`
	Details       string `json:"details"`
	Timestamp     string `json:"timestamp"`
	ScriptVersion string `json:"scriptVersion,omitempty"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg, details string) {
	respondJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Message:       msg,
			Details:       details,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			ScriptVersion: scriptVersion,
		},
	})
}
