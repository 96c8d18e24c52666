package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kx0101/scripttester/internal/cli"
	"github.com/kx0101/scripttester/internal/endpoint"
	"github.com/kx0101/scripttester/internal/mockscript"
	"github.com/kx0101/scripttester/internal/models"
	"github.com/kx0101/scripttester/internal/store"
)

func newArgs(url string, action cli.Action) *cli.CliArgs {
	return &cli.CliArgs{
		Action:    action,
		ScriptURL: url,
		Timeout:   5000,
		PostDelay: 1,
		Store:     cli.StoreNone,
		LogFormat: "text",
		Explicit:  map[string]bool{cli.FieldURL: url != ""},
	}
}

func TestExecute_Both(t *testing.T) {
	srv := mockscript.New(mockscript.Options{})
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), newArgs(ts.URL, cli.ActionBoth), &stdout, &stderr)
	if code != cli.ExitOK {
		t.Fatalf("expected ExitOK, got %v (stderr: %s)", code, stderr.String())
	}

	if srv.RequestCount() != 2 {
		t.Errorf("expected 2 requests, got %d", srv.RequestCount())
	}

	if !strings.Contains(stdout.String(), "Total Requests: 2") {
		t.Errorf("expected summary, got %s", stdout.String())
	}

	if !strings.Contains(stderr.String(), "GET request successful!") || !strings.Contains(stderr.String(), "POST request successful!") {
		t.Errorf("expected notifications, got %s", stderr.String())
	}
}

func TestExecute_Failures(t *testing.T) {
	ts := httptest.NewServer(mockscript.New(mockscript.Options{FailStatus: http.StatusInternalServerError}).Routes())
	defer ts.Close()

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), newArgs(ts.URL, cli.ActionGet), &stdout, &stderr)
	if code != cli.ExitFailures {
		t.Errorf("expected ExitFailures, got %v", code)
	}

	if !strings.Contains(stdout.String(), "HTTP 500") {
		t.Errorf("expected error in output, got %s", stdout.String())
	}
}

func TestExecute_InvalidURL(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), newArgs("not a url", cli.ActionGet), &stdout, &stderr)
	if code != cli.ExitInvalid {
		t.Errorf("expected ExitInvalid, got %v", code)
	}

	if !strings.Contains(stderr.String(), "Please enter a valid Google Apps Script URL") {
		t.Errorf("expected validation message, got %s", stderr.String())
	}
}

func TestExecute_ProbeJSON(t *testing.T) {
	ts := httptest.NewServer(mockscript.New(mockscript.Options{}).Routes())
	defer ts.Close()

	args := newArgs(ts.URL, cli.ActionHealth)
	args.OutputJSON = true

	var stdout, stderr bytes.Buffer
	if code := execute(context.Background(), args, &stdout, &stderr); code != cli.ExitOK {
		t.Fatalf("expected ExitOK, got %v", code)
	}

	var decoded struct {
		Results []models.Record `json:"results"`
		Summary models.Summary  `json:"summary"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout.String())
	}

	if len(decoded.Results) != 1 || decoded.Results[0].Endpoint != endpoint.Health || decoded.Summary.Succeeded != 1 {
		t.Errorf("unexpected output %+v", decoded)
	}
}

func TestExecute_SaveAndDataFile(t *testing.T) {
	ts := httptest.NewServer(mockscript.New(mockscript.Options{}).Routes())
	defer ts.Close()

	dir := t.TempDir()
	dataFile := filepath.Join(dir, "body.json")
	if err := os.WriteFile(dataFile, []byte(`{"from": "file"}`), 0600); err != nil {
		t.Fatal(err)
	}

	args := newArgs(ts.URL, cli.ActionPost)
	args.Store = cli.StoreFile
	args.ConfigPath = filepath.Join(dir, "state.yaml")
	args.DataFile = dataFile
	args.Endpoint = endpoint.Test
	args.Save = true
	args.Explicit[cli.FieldData] = true
	args.Explicit[cli.FieldEndpoint] = true

	var stdout, stderr bytes.Buffer
	if code := execute(context.Background(), args, &stdout, &stderr); code != cli.ExitOK {
		t.Fatalf("expected ExitOK, got %v (stderr: %s)", code, stderr.String())
	}

	saved, err := store.NewFileStore(args.ConfigPath).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if saved.ScriptURL != ts.URL || saved.PostData != `{"from": "file"}` || saved.Endpoint != endpoint.Test || saved.GetParams != store.DefaultGetParams {
		t.Errorf("unexpected saved state %+v", saved)
	}

	if !strings.Contains(stdout.String(), `"from": "file"`) {
		t.Errorf("expected request data in output, got %s", stdout.String())
	}
}

func TestExecute_HTMLReport(t *testing.T) {
	ts := httptest.NewServer(mockscript.New(mockscript.Options{}).Routes())
	defer ts.Close()

	orig := generateHTMLFn
	defer func() { generateHTMLFn = orig }()

	called := false
	generateHTMLFn = func(records []models.Record, summary models.Summary, scriptURL, path string) error {
		called = true
		if len(records) != 1 || scriptURL != ts.URL || path != "report.html" {
			t.Errorf("unexpected args: %d records, %s, %s", len(records), scriptURL, path)
		}

		return nil
	}

	args := newArgs(ts.URL, cli.ActionGet)
	args.HTMLReport = "report.html"

	var stdout, stderr bytes.Buffer
	if code := execute(context.Background(), args, &stdout, &stderr); code != cli.ExitOK {
		t.Errorf("expected ExitOK, got %v", code)
	}

	if !called {
		t.Error("generateHTMLFn was not called")
	}
}

func TestExecute_StoreError(t *testing.T) {
	orig := openStoreFn
	defer func() { openStoreFn = orig }()

	openStoreFn = func(context.Context, *cli.CliArgs, *slog.Logger) (store.Store, func(), error) {
		return nil, nil, errors.New("redis down")
	}

	var stdout, stderr bytes.Buffer
	if code := execute(context.Background(), newArgs("https://x/exec", cli.ActionGet), &stdout, &stderr); code != cli.ExitRuntime {
		t.Errorf("expected ExitRuntime, got %v", code)
	}

	if !strings.Contains(stderr.String(), "redis down") {
		t.Errorf("expected store error, got %s", stderr.String())
	}
}

func TestExecute_Shell(t *testing.T) {
	ts := httptest.NewServer(mockscript.New(mockscript.Options{}).Routes())
	defer ts.Close()

	origIn := stdin
	defer func() { stdin = origIn }()
	stdin = strings.NewReader("get\nquit\n")

	var stdout, stderr bytes.Buffer
	if code := execute(context.Background(), newArgs(ts.URL, cli.ActionShell), &stdout, &stderr); code != cli.ExitOK {
		t.Fatalf("expected ExitOK, got %v", code)
	}

	if !strings.Contains(stdout.String(), "Total Requests: 1") {
		t.Errorf("expected summary after shell exit, got %s", stdout.String())
	}
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer ts.Close()

	args := newArgs(ts.URL, cli.ActionBoth)
	args.PostDelay = 60000

	orig := printSummaryFn
	defer func() { printSummaryFn = orig }()

	printed := false
	printSummaryFn = func(w io.Writer, s models.Summary) {
		printed = true
		if s.TotalRequests != 1 {
			t.Errorf("only the GET should be recorded, got %d", s.TotalRequests)
		}
	}

	var stdout, stderr bytes.Buffer
	if code := execute(ctx, args, &stdout, &stderr); code != cli.ExitRuntime {
		t.Errorf("expected ExitRuntime, got %v", code)
	}

	if !printed {
		t.Error("summary should still be printed")
	}
}

func TestExecute_BothWithBadData(t *testing.T) {
	srv := mockscript.New(mockscript.Options{})
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	orig := generateHTMLFn
	defer func() { generateHTMLFn = orig }()

	reported := 0
	generateHTMLFn = func(records []models.Record, _ models.Summary, _, _ string) error {
		reported = len(records)
		return nil
	}

	args := newArgs(ts.URL, cli.ActionBoth)
	args.OutputJSON = true
	args.HTMLReport = "report.html"
	args.PostData = "{bad"
	args.Explicit[cli.FieldData] = true

	var stdout, stderr bytes.Buffer
	if code := execute(context.Background(), args, &stdout, &stderr); code != cli.ExitInvalid {
		t.Errorf("expected ExitInvalid, got %v", code)
	}

	if srv.RequestCount() != 1 {
		t.Errorf("expected only the GET to be sent, got %d requests", srv.RequestCount())
	}

	var decoded struct {
		Results []models.Record `json:"results"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout.String())
	}

	if len(decoded.Results) != 1 || decoded.Results[0].Method != models.MethodGet {
		t.Errorf("expected the recorded GET in the output, got %+v", decoded.Results)
	}

	if reported != 1 {
		t.Errorf("expected the GET in the HTML report, got %d records", reported)
	}

	if !strings.Contains(stderr.String(), "POST data must be valid JSON") {
		t.Errorf("expected payload message, got %s", stderr.String())
	}
}
