package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kx0101/scripttester/internal/cli"
	"github.com/kx0101/scripttester/internal/dispatch"
	"github.com/kx0101/scripttester/internal/models"
	"github.com/kx0101/scripttester/internal/output"
	"github.com/kx0101/scripttester/internal/report"
	"github.com/kx0101/scripttester/internal/session"
	"github.com/kx0101/scripttester/internal/shell"
	"github.com/kx0101/scripttester/internal/stats"
	"github.com/kx0101/scripttester/internal/store"
)

const redisPrefix = "scripttester"

var (
	loadEnvFn         = cli.LoadEnv
	openStoreFn       = openStore
	readFileFn        = os.ReadFile
	generateHTMLFn    = report.GenerateHTML
	printSummaryFn    = output.PrintSummary
	printJSONOutputFn = output.PrintJSONOutput
	runShellFn        = (*shell.Shell).Run

	stdin io.Reader = os.Stdin
)

func main() {
	os.Exit(int(run()))
}

func run() cli.ExitCode {
	if err := loadEnvFn(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	args, code := cli.ParseArgs(os.Args[1:], os.Stderr)
	if args == nil {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args *cli.CliArgs, stdout, stderr io.Writer) cli.ExitCode {
	logger := cli.NewLogger(stderr, args.LogFormat, args.Verbose)

	st, closeStore, err := openStoreFn(ctx, args, logger)
	if err != nil {
		return handleError(stderr, "Failed to open configuration store", err)
	}
	defer closeStore()

	saved, err := st.Load(ctx)
	if err != nil {
		logger.Warn("saved configuration unreadable, using defaults", "error", err)
		saved = store.Defaults()
	}

	state, err := applyArgs(saved, args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return cli.ExitInvalid
	}

	headers, err := cli.ParseHeaders(args.Headers)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return cli.ExitInvalid
	}

	sess := session.New(session.Options{
		Dispatcher: dispatch.New(dispatch.Options{
			Timeout: args.TimeoutDuration(),
			Headers: headers,
			Logger:  logger,
		}),
		Notifier:  output.Console{W: stderr},
		PostDelay: args.PostDelayDuration(),
		OnRecord: func(rec models.Record) {
			if !args.OutputJSON {
				output.PrintRecord(stdout, rec)
			}
		},
		Logger: logger,
	})

	var runErr error
	if args.Action == cli.ActionShell {
		sh := shell.New(shell.Options{
			Session: sess,
			Store:   st,
			State:   state,
			In:      stdin,
			Out:     stdout,
			Logger:  logger,
		})
		runErr = runShellFn(sh, ctx)
		current := sh.State()
		state = &current
	} else {
		runErr = runAction(ctx, sess, args.Action, state)
	}

	invalid := errors.Is(runErr, dispatch.ErrMalformedTarget) || errors.Is(runErr, dispatch.ErrMalformedPayload)
	if invalid && sess.Log().Len() == 0 {
		return cli.ExitInvalid
	}

	records := sess.Log().All()
	summary := stats.Summarize(records)

	if code := outputResults(args, stdout, stderr, records, summary, state.ScriptURL); code != cli.ExitOK {
		return code
	}

	// A bad payload in "both" is only found after the GET was recorded.
	if invalid {
		return cli.ExitInvalid
	}

	if args.Save && args.Action != cli.ActionShell {
		if err := st.Save(ctx, state); err != nil {
			return handleError(stderr, "Failed to save configuration", err)
		}
	}

	if runErr != nil {
		return handleError(stderr, "Run interrupted", runErr)
	}

	if summary.Failed > 0 {
		return cli.ExitFailures
	}

	return cli.ExitOK
}

func runAction(ctx context.Context, sess *session.Session, action cli.Action, state *store.Saved) error {
	req := session.Request{
		ScriptURL: state.ScriptURL,
		GetParams: state.GetParams,
		PostData:  state.PostData,
		Endpoint:  state.Endpoint,
	}

	if ep, ok := action.ProbeEndpoint(); ok {
		return sess.Probe(ctx, req.ScriptURL, ep)
	}

	switch action {
	case cli.ActionGet:
		return sess.Get(ctx, req)
	case cli.ActionPost:
		return sess.Post(ctx, req)
	default:
		return sess.TestBoth(ctx, req)
	}
}

func outputResults(args *cli.CliArgs, stdout, stderr io.Writer, records []models.Record, summary models.Summary, scriptURL string) cli.ExitCode {
	if args.OutputJSON {
		if err := printJSONOutputFn(stdout, records, summary); err != nil {
			return handleError(stderr, "Failed to write JSON output", err)
		}
	} else if len(records) > 0 {
		fmt.Fprintln(stdout)
		printSummaryFn(stdout, summary)
	}

	if args.HTMLReport != "" {
		if err := generateHTMLFn(records, summary, scriptURL, args.HTMLReport); err != nil {
			return handleError(stderr, "Failed to generate HTML report", err)
		}

		fmt.Fprintf(stderr, "HTML report written to %s\n", args.HTMLReport)
	}

	return cli.ExitOK
}

// applyArgs lays the values given on the command line over the saved state.
func applyArgs(saved *store.Saved, args *cli.CliArgs) (*store.Saved, error) {
	state := *saved

	if args.Explicit[cli.FieldURL] {
		state.ScriptURL = args.ScriptURL
	}

	if args.Explicit[cli.FieldEndpoint] {
		state.Endpoint = args.Endpoint
	}

	if args.Explicit[cli.FieldParams] {
		state.GetParams = args.GetParams
	}

	if args.Explicit[cli.FieldData] {
		state.PostData = args.PostData

		if args.DataFile != "" {
			data, err := readFileFn(args.DataFile)
			if err != nil {
				return nil, fmt.Errorf("reading data file: %w", err)
			}
			state.PostData = string(data)
		}
	}

	return &state, nil
}

func openStore(ctx context.Context, args *cli.CliArgs, logger *slog.Logger) (store.Store, func(), error) {
	switch args.Store {
	case cli.StoreRedis:
		rs, err := store.OpenRedis(ctx, args.RedisAddr, redisPrefix, logger)
		if err != nil {
			return nil, nil, err
		}

		return rs, func() {
			if err := rs.Close(); err != nil {
				logger.Warn("closing redis store", "error", err)
			}
		}, nil
	case cli.StoreNone:
		return store.NewMemoryStore(), func() {}, nil
	default:
		path := args.ConfigPath
		if path == "" {
			path = store.DefaultPath()
		}

		return store.NewFileStore(path), func() {}, nil
	}
}

func handleError(w io.Writer, msg string, err error) cli.ExitCode {
	fmt.Fprintf(w, "%s%s: %v%s\n", output.ColorRed, msg, err, output.ColorReset)
	return cli.ExitRuntime
}
