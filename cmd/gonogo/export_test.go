package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/m-mizutani/gonogo/trace"
)

type (
	ListTracesResponse = listTracesResponse
	SessionSummary     = sessionSummary
	TraceSummary       = traceSummary
)

var (
	NewServer     = newServer
	WithNoBrowser = withNoBrowser
	ParseGSURI    = parseGSURI
	Summarize     = summarize
	NewApp        = newApp
)

func (s *server) Handler() http.Handler {
	return s.handler()
}

func PrintAssignment(ctx context.Context, w io.Writer, participant int, dbPath string) error {
	return printAssignment(ctx, w, participant, dbPath)
}

func NewLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	return newLogger(w, format, level)
}

func NewViewSource(ctx context.Context, dir, gsURI string) error {
	_, err := newViewSource(ctx, dir, gsURI, "")
	return err
}

// ListResult holds the exported result of a List call.
type ListResult struct {
	Traces        []TraceSummary
	NextPageToken string
}

// TestableSource wraps a traceSource for external test access.
type TestableSource struct {
	src traceSource
}

func NewLocalSource(dir string) *TestableSource {
	return &TestableSource{src: newLocalSource(dir)}
}

func (ts *TestableSource) List(ctx context.Context, pageSize int, pageToken string) (*ListResult, error) {
	resp, err := ts.src.List(ctx, listRequest{
		pageSize:  pageSize,
		pageToken: pageToken,
	})
	if err != nil {
		return nil, err
	}
	return &ListResult{
		Traces:        resp.traces,
		NextPageToken: resp.nextPageToken,
	}, nil
}

func (ts *TestableSource) Get(ctx context.Context, traceID string) (*trace.Trace, error) {
	return ts.src.Get(ctx, traceID)
}

func WithTestSource(ts *TestableSource) serverOption {
	return withSource(ts.src)
}

var ErrTraceNotFound = errTraceNotFound

func OpenSessionLog(dir, sessionID, format, level string, console io.Writer) (*slog.Logger, func(), error) {
	return openSessionLog(dir, sessionID, format, level, console)
}
