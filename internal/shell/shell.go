package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kx0101/scripttester/internal/dispatch"
	"github.com/kx0101/scripttester/internal/endpoint"
	"github.com/kx0101/scripttester/internal/output"
	"github.com/kx0101/scripttester/internal/session"
	"github.com/kx0101/scripttester/internal/stats"
	"github.com/kx0101/scripttester/internal/store"
)

const prompt = "scripttester> "

var errQuit = errors.New("quit")

type Options struct {
	Session *session.Session
	Store   store.Store
	State   *store.Saved
	In      io.Reader
	Out     io.Writer
	Logger  *slog.Logger
}

// Shell is a line-oriented front end over one session. Changes to the form
// state are written to the store as soon as they are made.
type Shell struct {
	session *session.Session
	store   store.Store
	state   *store.Saved
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
}

func New(opts Options) *Shell {
	sh := &Shell{
		session: opts.Session,
		store:   opts.Store,
		state:   opts.State,
		in:      opts.In,
		out:     opts.Out,
		logger:  opts.Logger,
	}

	if sh.store == nil {
		sh.store = store.NewMemoryStore()
	}

	if sh.state == nil {
		sh.state = store.Defaults()
	}

	if sh.out == nil {
		sh.out = io.Discard
	}

	if sh.logger == nil {
		sh.logger = slog.Default()
	}
	sh.logger = sh.logger.With("component", "shell")

	return sh
}

// State returns the current form state.
func (sh *Shell) State() store.Saved {
	return *sh.state
}

// Run reads commands until quit, end of input or ctx is done.
func (sh *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(sh.out, output.ColorBold+"Google Apps Script Webapp Tester"+output.ColorReset)
	fmt.Fprintln(sh.out, "Type 'help' for commands.")

	scanner := bufio.NewScanner(sh.in)
	for {
		fmt.Fprint(sh.out, prompt)

		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			return scanner.Err()
		}

		if err := sh.Exec(ctx, scanner.Text()); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}

			fmt.Fprintf(sh.out, "%sError: %v%s\n", output.ColorRed, err, output.ColorReset)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Exec runs a single command line.
func (sh *Shell) Exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "get":
		return quiet(sh.session.Get(ctx, sh.request()))
	case "post":
		return quiet(sh.session.Post(ctx, sh.request()))
	case "both":
		return quiet(sh.session.TestBoth(ctx, sh.request()))
	case "probe":
		ep, err := endpoint.Parse(arg)
		if err != nil {
			return err
		}

		return quiet(sh.session.Probe(ctx, sh.state.ScriptURL, ep))
	case "endpoint":
		ep, err := endpoint.Parse(arg)
		if err != nil {
			return err
		}

		sh.state.Endpoint = ep
		return sh.persist(ctx)
	case "url":
		sh.state.ScriptURL = arg
		fmt.Fprint(sh.out, output.DescribeURL(arg))
		return sh.persist(ctx)
	case "params":
		sh.state.GetParams = arg
		return sh.persist(ctx)
	case "data":
		sh.state.PostData = arg
		return sh.persist(ctx)
	case "show":
		sh.show()
		return nil
	case "results":
		output.PrintResults(sh.out, sh.session.Log().All())
		return nil
	case "summary":
		output.PrintSummary(sh.out, stats.Summarize(sh.session.Log().All()))
		return nil
	case "clear":
		sh.session.Log().Clear()
		fmt.Fprintln(sh.out, "Results cleared.")
		return nil
	case "save":
		if err := sh.persist(ctx); err != nil {
			return err
		}

		fmt.Fprintln(sh.out, "Configuration saved.")
		return nil
	case "help", "?":
		sh.help()
		return nil
	case "quit", "exit":
		return errQuit
	}

	return fmt.Errorf("unknown command %q, type 'help' for commands", cmd)
}

func (sh *Shell) request() session.Request {
	return session.Request{
		ScriptURL: sh.state.ScriptURL,
		GetParams: sh.state.GetParams,
		PostData:  sh.state.PostData,
		Endpoint:  sh.state.Endpoint,
	}
}

func (sh *Shell) persist(ctx context.Context) error {
	if err := sh.store.Save(ctx, sh.state); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	sh.logger.Debug("configuration saved", "endpoint", sh.state.Endpoint.Name())
	return nil
}

func (sh *Shell) show() {
	url := sh.state.ScriptURL
	if url == "" {
		url = "(not set)"
	}

	fmt.Fprintf(sh.out, "URL:      %s\n", url)
	fmt.Fprintf(sh.out, "Endpoint: %s\n", sh.state.Endpoint.Label())
	fmt.Fprintf(sh.out, "Params:   %s\n", sh.state.GetParams)
	fmt.Fprintf(sh.out, "Data:     %s\n", sh.state.PostData)
	fmt.Fprintf(sh.out, "Results:  %d\n", sh.session.Log().Len())

	if sh.state.ScriptURL != "" {
		fmt.Fprint(sh.out, output.DescribeURL(sh.state.ScriptURL))
	}
}

func (sh *Shell) help() {
	fmt.Fprint(sh.out, `Commands:
  get                 send a GET request
  post                send a POST request
  both                send a GET, wait, then send a POST
  probe <endpoint>    send a bare GET to root, api, health, stats or test
  endpoint <name>     select the endpoint used by get, post and both
  url <url>           set the script web app URL
  params <query>      set the GET query string
  data <json>         set the POST body
  show                print the current configuration
  results             print the result log, newest first
  summary             print totals and latency statistics
  clear               empty the result log
  save                save the configuration
  quit                leave the shell
`)
}

// quiet drops errors the session already reported through its notifier.
func quiet(err error) error {
	if errors.Is(err, dispatch.ErrMalformedTarget) || errors.Is(err, dispatch.ErrMalformedPayload) {
		return nil
	}

	return err
}
