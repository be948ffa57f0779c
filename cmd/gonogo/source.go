package main

import (
	"context"
	"time"

	"github.com/m-mizutani/gonogo/trace"
)

// traceSummary is a lightweight representation of a session trace, derived
// from file or object metadata without reading its contents.
type traceSummary struct {
	TraceID   string    `json:"trace_id"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listRequest struct {
	pageSize  int
	pageToken string
}

type listResponse struct {
	traces        []traceSummary
	nextPageToken string
}

const defaultPageSize = 20

// traceSource provides access to session traces written by `gonogo run
// --trace-dir` or uploaded to a bucket.
type traceSource interface {
	List(ctx context.Context, req listRequest) (*listResponse, error)
	Get(ctx context.Context, traceID string) (*trace.Trace, error)
}
