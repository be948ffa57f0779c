package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo/trace"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type csSource struct {
	bucket string
	prefix string
	client *storage.Client
}

func newCSSource(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (traceSource, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	return &csSource{
		bucket: bucket,
		prefix: prefix,
		client: client,
	}, nil
}

// parseGSURI splits gs://bucket/path into the bucket and a prefix that ends
// with a slash, or is empty.
func parseGSURI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", goerr.New("URI must start with gs://", goerr.V("uri", uri))
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", goerr.New("bucket name is empty", goerr.V("uri", uri))
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return bucket, prefix, nil
}

func (s *csSource) List(ctx context.Context, req listRequest) (*listResponse, error) {
	pageSize := req.pageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
		Prefix: s.prefix,
	})

	pager := iterator.NewPager(it, pageSize, req.pageToken)
	var attrs []*storage.ObjectAttrs
	nextToken, err := pager.NextPage(&attrs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list objects",
			goerr.V("bucket", s.bucket),
			goerr.V("prefix", s.prefix),
		)
	}

	resp := &listResponse{
		nextPageToken: nextToken,
	}
	for _, attr := range attrs {
		name := strings.TrimPrefix(attr.Name, s.prefix)
		traceID, ok := strings.CutSuffix(name, ".json")
		// Skip nested objects and the record files of the same bucket.
		if !ok || traceID == "" || strings.Contains(traceID, "/") || strings.HasPrefix(traceID, "participant_") {
			continue
		}
		resp.traces = append(resp.traces, traceSummary{
			TraceID:   traceID,
			Size:      attr.Size,
			UpdatedAt: attr.Updated,
		})
	}

	return resp, nil
}

func (s *csSource) Get(ctx context.Context, traceID string) (*trace.Trace, error) {
	objectName := s.prefix + traceID + ".json"
	reader, err := s.client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(errTraceNotFound, "no trace object", goerr.V("object", objectName))
		}
		return nil, goerr.Wrap(err, "failed to read trace object",
			goerr.V("bucket", s.bucket),
			goerr.V("object", objectName),
		)
	}
	defer func() { _ = reader.Close() }()

	var t trace.Trace
	if err := json.NewDecoder(reader).Decode(&t); err != nil {
		return nil, goerr.Wrap(err, "failed to parse trace object",
			goerr.V("bucket", s.bucket),
			goerr.V("object", objectName),
		)
	}

	return &t, nil
}
