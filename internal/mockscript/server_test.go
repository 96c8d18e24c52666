package mockscript

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRoutes(t *testing.T) {
	srv := New(Options{})
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	tests := []struct {
		name     string
		method   string
		path     string
		wantPath string
	}{
		{"root get", http.MethodGet, "/?action=test", "root"},
		{"api get", http.MethodGet, "/api", "/api"},
		{"health get", http.MethodGet, "/health", "/health"},
		{"stats get", http.MethodGet, "/stats", "/stats"},
		{"test post", http.MethodPost, "/test", "/test"},
		{"root post", http.MethodPost, "/", "root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *bytes.Reader
			if tt.method == http.MethodPost {
				body = bytes.NewReader([]byte(`{"message":"hi"}`))
			} else {
				body = bytes.NewReader(nil)
			}

			req, err := http.NewRequest(tt.method, ts.URL+tt.path, body)
			if err != nil {
				t.Fatal(err)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}

			var got Response
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}

			if !got.Success || got.Method != tt.method || got.Path != tt.wantPath {
				t.Errorf("unexpected response %+v", got)
			}

			if got.RequestID == "" {
				t.Error("expected a request id")
			}
		})
	}

	if srv.RequestCount() != len(tests) {
		t.Errorf("expected %d requests counted, got %d", len(tests), srv.RequestCount())
	}
}

func TestRoutes_EchoAndParameters(t *testing.T) {
	ts := httptest.NewServer(New(Options{}).Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api?action=test&source=webapp")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got Response
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}

	if got.Parameters["action"] != "test" || got.Parameters["source"] != "webapp" {
		t.Errorf("unexpected parameters %v", got.Parameters)
	}

	post, err := http.Post(ts.URL+"/test", "application/json", bytes.NewReader([]byte(`{"k":"v"}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer post.Body.Close()

	var echoed Response
	if err := json.NewDecoder(post.Body).Decode(&echoed); err != nil {
		t.Fatal(err)
	}

	if echoed.ReceivedData["k"] != "v" {
		t.Errorf("unexpected received data %v", echoed.ReceivedData)
	}

	echo, ok := echoed.Data["echo"].(map[string]any)
	if !ok || echo["k"] != "v" {
		t.Errorf("unexpected echo %v", echoed.Data["echo"])
	}
}

func TestFaults(t *testing.T) {
	t.Run("status query", func(t *testing.T) {
		ts := httptest.NewServer(New(Options{}).Routes())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/health?status=503")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", resp.StatusCode)
		}

		var got ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}

		if got.Success || got.Error.Message != "Service Unavailable" {
			t.Errorf("unexpected error body %+v", got)
		}
	})

	t.Run("fail status option", func(t *testing.T) {
		srv := New(Options{FailStatus: http.StatusInternalServerError})
		ts := httptest.NewServer(srv.Routes())
		defer ts.Close()

		resp, err := http.Post(ts.URL+"/", "application/json", bytes.NewReader([]byte(`{}`)))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", resp.StatusCode)
		}

		if srv.RequestCount() != 0 {
			t.Errorf("failed requests must not be counted, got %d", srv.RequestCount())
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		ts := httptest.NewServer(New(Options{}).Routes())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/admin")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("invalid post body", func(t *testing.T) {
		ts := httptest.NewServer(New(Options{}).Routes())
		defer ts.Close()

		resp, err := http.Post(ts.URL+"/api", "application/json", bytes.NewReader([]byte(`nope`)))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}
