package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kx0101/scripttester/internal/endpoint"
)

func TestParseArgs(t *testing.T) {
	t.Setenv("SCRIPT_TESTER_URL", "")
	t.Setenv("SCRIPT_TESTER_STORE", "")

	t.Run("defaults", func(t *testing.T) {
		args, code := ParseArgs(nil, io.Discard)
		if code != ExitOK {
			t.Fatalf("expected ExitOK, got %v", code)
		}

		if args.Action != ActionBoth || args.Store != StoreFile || args.Timeout != 30000 || args.PostDelay != 1000 {
			t.Errorf("unexpected defaults %+v", args)
		}

		if len(args.Explicit) != 0 {
			t.Errorf("nothing should be explicit, got %v", args.Explicit)
		}
	})

	t.Run("flags and action", func(t *testing.T) {
		args, code := ParseArgs([]string{
			"-url", "https://script.google.com/macros/s/abc/exec",
			"-endpoint", "stats",
			"-params", "a=1",
			"-header", "X-Trace: 1",
			"-header", "X-Env: dev",
			"-post-delay", "250",
			"GET",
		}, io.Discard)
		if code != ExitOK {
			t.Fatalf("expected ExitOK, got %v", code)
		}

		if args.Action != ActionGet || args.Endpoint != endpoint.Stats || args.GetParams != "a=1" {
			t.Errorf("unexpected args %+v", args)
		}

		if len(args.Headers) != 2 {
			t.Errorf("expected 2 headers, got %v", args.Headers)
		}

		if args.PostDelayDuration() != 250*time.Millisecond {
			t.Errorf("unexpected post delay %v", args.PostDelayDuration())
		}

		for _, field := range []string{FieldURL, FieldEndpoint, FieldParams} {
			if !args.Explicit[field] {
				t.Errorf("expected %s to be explicit", field)
			}
		}

		if args.Explicit[FieldData] {
			t.Error("data was not given")
		}
	})

	t.Run("url from environment", func(t *testing.T) {
		t.Setenv("SCRIPT_TESTER_URL", "https://x/exec")

		args, code := ParseArgs([]string{"shell"}, io.Discard)
		if code != ExitOK {
			t.Fatalf("expected ExitOK, got %v", code)
		}

		if args.ScriptURL != "https://x/exec" || !args.Explicit[FieldURL] || args.Action != ActionShell {
			t.Errorf("unexpected args %+v", args)
		}
	})

	invalid := map[string][]string{
		"unknown action":   {"delete"},
		"two actions":      {"get", "post"},
		"unknown endpoint": {"-endpoint", "/nope"},
		"unknown store":    {"-store", "s3"},
		"bad log format":   {"-log-format", "xml"},
		"negative delay":   {"-post-delay", "-1"},
		"zero delay":       {"-post-delay", "0"},
		"zero timeout":     {"-timeout", "0"},
		"bad header":       {"-header", "no-colon"},
		"data and file":    {"-data", "{}", "-data-file", "x.json"},
		"unknown flag":     {"-nope"},
	}

	for name, argv := range invalid {
		t.Run(name, func(t *testing.T) {
			if _, code := ParseArgs(argv, io.Discard); code != ExitInvalid {
				t.Errorf("expected ExitInvalid, got %v", code)
			}
		})
	}
}

func TestProbeEndpoint(t *testing.T) {
	if ep, ok := ActionHealth.ProbeEndpoint(); !ok || ep != endpoint.Health {
		t.Errorf("health mapped to %q", ep)
	}

	if _, ok := ActionGet.ProbeEndpoint(); ok {
		t.Error("get is not a probe")
	}
}

func TestParseHeaders(t *testing.T) {
	h, err := ParseHeaders([]string{"Authorization: Bearer abc", "X-A:1", "X-A: 2"})
	if err != nil {
		t.Fatal(err)
	}

	if h.Get("Authorization") != "Bearer abc" || len(h.Values("X-A")) != 2 {
		t.Errorf("unexpected headers %v", h)
	}

	if _, err := ParseHeaders([]string{": value"}); err == nil {
		t.Error("expected an error for an empty key")
	}
}

func TestLoadEnv(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SCRIPT_TESTER_LOADENV_CHECK=loaded\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("SCRIPT_TESTER_LOADENV_CHECK") })

	if err := LoadEnv(path); err != nil {
		t.Fatal(err)
	}

	if os.Getenv("SCRIPT_TESTER_LOADENV_CHECK") != "loaded" {
		t.Error("expected variable from .env")
	}
}
