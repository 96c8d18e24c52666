package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kx0101/scripttester/internal/endpoint"
)

type ExitCode int

const (
	ExitOK ExitCode = iota
	ExitFailures
	ExitInvalid
	ExitRuntime
)

type Action string

const (
	ActionGet    Action = "get"
	ActionPost   Action = "post"
	ActionBoth   Action = "both"
	ActionHealth Action = "health"
	ActionStats  Action = "stats"
	ActionTest   Action = "test"
	ActionShell  Action = "shell"
)

// ProbeEndpoint maps the health, stats and test actions to their endpoint.
func (a Action) ProbeEndpoint() (endpoint.Endpoint, bool) {
	switch a {
	case ActionHealth:
		return endpoint.Health, true
	case ActionStats:
		return endpoint.Stats, true
	case ActionTest:
		return endpoint.Test, true
	}

	return endpoint.Root, false
}

const (
	StoreFile  = "file"
	StoreRedis = "redis"
	StoreNone  = "none"
)

type CliArgs struct {
	Action Action

	ScriptURL string
	Endpoint  endpoint.Endpoint
	GetParams string
	PostData  string
	DataFile  string

	Timeout   int64
	PostDelay int64
	Headers   []string

	OutputJSON bool
	HTMLReport string

	Store      string
	ConfigPath string
	RedisAddr  string
	Save       bool

	Verbose   bool
	LogFormat string

	// Explicit records which form fields were given on the command line or
	// through the environment, so they win over the saved configuration.
	Explicit map[string]bool
}

// Field names used in Explicit.
const (
	FieldURL      = "url"
	FieldEndpoint = "endpoint"
	FieldParams   = "params"
	FieldData     = "data"
)

// LoadEnv reads a .env file from the working directory when one exists.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	return nil
}

func ParseArgs(argv []string, stderr io.Writer) (*CliArgs, ExitCode) {
	args := &CliArgs{Explicit: make(map[string]bool)}

	fs := flag.NewFlagSet("scripttester", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: scripttester [flags] [get|post|both|health|stats|test|shell]")
		fs.PrintDefaults()
	}

	var endpointFlag string
	fs.StringVar(&args.ScriptURL, "url", os.Getenv("SCRIPT_TESTER_URL"), "Google Apps Script web app URL")
	fs.StringVar(&endpointFlag, "endpoint", "", "Endpoint: root, api, health, stats or test")
	fs.StringVar(&args.GetParams, "params", "", "GET query string (e.g. 'action=test&source=webapp')")
	fs.StringVar(&args.PostData, "data", "", "POST body as a JSON object")
	fs.StringVar(&args.DataFile, "data-file", "", "Read the POST body from a file")
	fs.Int64Var(&args.Timeout, "timeout", 30000, "Timeout for each request (ms)")
	fs.Int64Var(&args.PostDelay, "post-delay", 1000, "Delay between GET and POST in 'both' (ms)")
	fs.BoolVar(&args.OutputJSON, "output-json", false, "Output results as JSON")
	fs.StringVar(&args.HTMLReport, "html-report", "", "Generate HTML report at specified path")
	fs.StringVar(&args.Store, "store", getEnvOrDefault("SCRIPT_TESTER_STORE", StoreFile), "Saved configuration store: file, redis or none")
	fs.StringVar(&args.ConfigPath, "config", os.Getenv("SCRIPT_TESTER_CONFIG"), "Path of the saved configuration file")
	fs.StringVar(&args.RedisAddr, "redis-addr", getEnvOrDefault("SCRIPT_TESTER_REDIS_ADDR", "localhost:6379"), "Redis address for -store redis")
	fs.BoolVar(&args.Save, "save", false, "Save url, params, data and endpoint after the run")
	fs.BoolVar(&args.Verbose, "verbose", false, "Enable debug logging")
	fs.StringVar(&args.LogFormat, "log-format", "text", "Log format: text or json")

	var headerFlags stringSlice
	fs.Var(&headerFlags, "header", "Custom header in format 'Key: Value' (can be used multiple times)")

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ExitOK
		}

		return nil, ExitInvalid
	}

	args.Headers = headerFlags

	if args.ScriptURL != "" {
		args.Explicit[FieldURL] = true
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "endpoint":
			args.Explicit[FieldEndpoint] = true
		case "params":
			args.Explicit[FieldParams] = true
		case "data", "data-file":
			args.Explicit[FieldData] = true
		}
	})

	if args.Explicit[FieldEndpoint] {
		ep, err := endpoint.Parse(endpointFlag)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return nil, ExitInvalid
		}
		args.Endpoint = ep
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
		args.Action = ActionBoth
	case 1:
		args.Action = Action(strings.ToLower(rest[0]))
	default:
		fmt.Fprintln(stderr, "Error: at most one action is allowed")
		fs.Usage()
		return nil, ExitInvalid
	}

	switch args.Action {
	case ActionGet, ActionPost, ActionBoth, ActionHealth, ActionStats, ActionTest, ActionShell:
	default:
		fmt.Fprintf(stderr, "Error: unknown action %q\n", args.Action)
		fs.Usage()
		return nil, ExitInvalid
	}

	switch args.Store {
	case StoreFile, StoreRedis, StoreNone:
	default:
		fmt.Fprintf(stderr, "Error: unknown store %q\n", args.Store)
		return nil, ExitInvalid
	}

	switch args.LogFormat {
	case "text", "json":
	default:
		fmt.Fprintf(stderr, "Error: unknown log format %q\n", args.LogFormat)
		return nil, ExitInvalid
	}

	if args.Timeout <= 0 || args.PostDelay <= 0 {
		fmt.Fprintln(stderr, "Error: --timeout and --post-delay must be positive")
		return nil, ExitInvalid
	}

	if args.DataFile != "" && args.PostData != "" {
		fmt.Fprintln(stderr, "Error: --data and --data-file are mutually exclusive")
		return nil, ExitInvalid
	}

	if _, err := ParseHeaders(args.Headers); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, ExitInvalid
	}

	return args, ExitOK
}

func (a *CliArgs) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Millisecond
}

func (a *CliArgs) PostDelayDuration() time.Duration {
	return time.Duration(a.PostDelay) * time.Millisecond
}

// ParseHeaders turns "Key: Value" strings into a header set.
func ParseHeaders(raw []string) (http.Header, error) {
	headers := make(http.Header)
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Key: Value'", h)
		}

		headers.Add(key, strings.TrimSpace(value))
	}

	return headers, nil
}

func NewLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

type stringSlice []string

func (s *stringSlice) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}
