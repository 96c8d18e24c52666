package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kx0101/scripttester/internal/dispatch"
	"github.com/kx0101/scripttester/internal/endpoint"
	"github.com/kx0101/scripttester/internal/models"
	"github.com/kx0101/scripttester/internal/params"
	"github.com/kx0101/scripttester/internal/results"
)

const DefaultPostDelay = 1000 * time.Millisecond

var ErrBusy = errors.New("a request is already in progress")

type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

// Notifier receives the transient messages shown after each action.
type Notifier interface {
	Notify(level Level, msg string)
}

type NotifierFunc func(level Level, msg string)

func (f NotifierFunc) Notify(level Level, msg string) {
	f(level, msg)
}

// Request is the form state a dispatch is built from.
type Request struct {
	ScriptURL string
	GetParams string
	PostData  string
	Endpoint  endpoint.Endpoint
}

type Options struct {
	Dispatcher *dispatch.Dispatcher
	Log        *results.Log
	Notifier   Notifier
	PostDelay  time.Duration
	OnRecord   func(models.Record)
	Logger     *slog.Logger
}

// Session runs dispatches against one result log. At most one dispatch, or
// one GET/POST sequence, is in flight at a time; overlapping calls return
// ErrBusy without touching the network or the log.
type Session struct {
	dispatcher *dispatch.Dispatcher
	log        *results.Log
	notifier   Notifier
	postDelay  time.Duration
	onRecord   func(models.Record)
	logger     *slog.Logger

	inFlight atomic.Bool
}

func New(opts Options) *Session {
	s := &Session{
		dispatcher: opts.Dispatcher,
		log:        opts.Log,
		notifier:   opts.Notifier,
		postDelay:  opts.PostDelay,
		onRecord:   opts.OnRecord,
		logger:     opts.Logger,
	}

	if s.dispatcher == nil {
		s.dispatcher = dispatch.New(dispatch.Options{Logger: opts.Logger})
	}

	if s.log == nil {
		s.log = results.NewLog()
	}

	if s.notifier == nil {
		s.notifier = NotifierFunc(func(Level, string) {})
	}

	if s.postDelay <= 0 {
		s.postDelay = DefaultPostDelay
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "session")

	return s
}

func (s *Session) Log() *results.Log {
	return s.log
}

func (s *Session) InProgress() bool {
	return s.inFlight.Load()
}

func (s *Session) Get(ctx context.Context, req Request) error {
	if s.inFlight.Load() {
		return ErrBusy
	}

	target, err := s.validateTarget(req.ScriptURL)
	if err != nil {
		return err
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)

	s.runGet(ctx, target, params.ParseQueryString(req.GetParams), req.Endpoint)
	return nil
}

func (s *Session) Post(ctx context.Context, req Request) error {
	if s.inFlight.Load() {
		return ErrBusy
	}

	target, err := s.validateTarget(req.ScriptURL)
	if err != nil {
		return err
	}

	body, err := s.decodePayload(req.PostData)
	if err != nil {
		return err
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)

	s.runPost(ctx, target, body, req.Endpoint)
	return nil
}

// Probe sends a bare GET to a single endpoint, e.g. /health or /stats.
func (s *Session) Probe(ctx context.Context, scriptURL string, ep endpoint.Endpoint) error {
	return s.Get(ctx, Request{ScriptURL: scriptURL, Endpoint: ep})
}

// TestBoth sends a GET, waits for the post delay and then sends a POST,
// whatever the GET outcome was. Cancelling ctx during the wait drops the
// pending POST.
func (s *Session) TestBoth(ctx context.Context, req Request) error {
	if s.inFlight.Load() {
		return ErrBusy
	}

	target, err := s.validateTarget(req.ScriptURL)
	if err != nil {
		return err
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)

	s.runGet(ctx, target, params.ParseQueryString(req.GetParams), req.Endpoint)

	timer := time.NewTimer(s.postDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.logger.Info("pending POST cancelled", "endpoint", req.Endpoint.Name())
		return ctx.Err()
	case <-timer.C:
	}

	body, err := s.decodePayload(req.PostData)
	if err != nil {
		return err
	}

	s.runPost(ctx, target, body, req.Endpoint)
	return nil
}

func (s *Session) runGet(ctx context.Context, target string, p map[string]string, ep endpoint.Endpoint) {
	resp, err := s.dispatcher.SendGet(ctx, target, p, ep)
	s.record(models.MethodGet, ep, resp, err)
}

func (s *Session) runPost(ctx context.Context, target string, body map[string]any, ep endpoint.Endpoint) {
	resp, err := s.dispatcher.SendPost(ctx, target, body, ep)
	s.record(models.MethodPost, ep, resp, err)
}

func (s *Session) record(method models.Method, ep endpoint.Endpoint, resp *dispatch.Response, err error) {
	var rec models.Record
	if err != nil {
		rec = models.NewFailure(method, ep, err)
		s.logger.Warn("request failed", "method", method, "endpoint", ep.Name(), "error", err)
		s.notifier.Notify(LevelError, fmt.Sprintf("%s request failed: %v", method, err))
	} else {
		rec = models.NewSuccess(method, ep, resp.Outcome())
		s.logger.Info("request succeeded", "method", method, "endpoint", ep.Name(), "latency_ms", resp.DurationMs)
		s.notifier.Notify(LevelSuccess, fmt.Sprintf("%s request successful!", method))
	}

	s.log.Append(rec)

	if s.onRecord != nil {
		s.onRecord(rec)
	}
}

func (s *Session) validateTarget(raw string) (string, error) {
	target, err := dispatch.ValidateTarget(raw)
	if err != nil {
		s.notifier.Notify(LevelError, "Please enter a valid Google Apps Script URL")
		return "", err
	}

	return target, nil
}

func (s *Session) decodePayload(text string) (map[string]any, error) {
	body, err := dispatch.DecodePayload(text)
	if err != nil {
		s.notifier.Notify(LevelError, "POST data must be valid JSON")
		return nil, err
	}

	return body, nil
}
