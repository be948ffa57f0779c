// Package cs uploads Go/No-Go sessions to Google Cloud Storage.
package cs

import (
	"context"
	"encoding/json"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo/record"
	"github.com/m-mizutani/gonogo/trace"
	"google.golang.org/api/option"
)

// Option configures a Repository.
type Option func(*Repository)

// WithPrefix sets the object name prefix, e.g. "study-1/".
func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		r.prefix = prefix
	}
}

// WithClientOptions passes options such as option.WithCredentialsFile to the
// storage client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(r *Repository) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

// Repository is a record.Repository uploading the trial CSV, the
// questionnaire CSV and the session JSON of every flushed session.
type Repository struct {
	bucket     string
	prefix     string
	clientOpts []option.ClientOption
	client     *storage.Client
}

var _ record.Repository = (*Repository)(nil)

// New creates a Repository writing into bucket.
func New(ctx context.Context, bucket string, opts ...Option) (*Repository, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	r := &Repository{bucket: bucket}
	for _, opt := range opts {
		opt(r)
	}

	client, err := storage.NewClient(ctx, r.clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	r.client = client
	return r, nil
}

// Close releases the storage client.
func (r *Repository) Close() error {
	return r.client.Close()
}

// Save implements record.Repository.
func (r *Repository) Save(ctx context.Context, session *record.Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}

	if err := r.upload(ctx, record.TrialsFileName(session.Participant, session.Session), "text/csv", func(w io.Writer) error {
		return record.WriteTrialsCSV(w, session)
	}); err != nil {
		return err
	}

	if len(session.Questionnaire) > 0 {
		if err := r.upload(ctx, record.QuestionnaireFileName(session.Participant, session.Session), "text/csv", func(w io.Writer) error {
			return record.WriteQuestionnaireCSV(w, session)
		}); err != nil {
			return err
		}
	}

	return r.upload(ctx, record.JSONFileName(session), "application/json", func(w io.Writer) error {
		return record.WriteJSON(w, session)
	})
}

// TraceDir is the directory under the prefix that session traces go to.
const TraceDir = "traces"

// Traces returns a trace.Repository uploading session traces to
// <prefix>/traces/<trace ID>.json in the same bucket.
func (r *Repository) Traces() trace.Repository {
	return &traceRepository{repo: r}
}

type traceRepository struct {
	repo *Repository
}

func (t *traceRepository) Save(ctx context.Context, tr *trace.Trace) error {
	if tr == nil {
		return goerr.New("trace is nil")
	}
	return t.repo.upload(ctx, path.Join(TraceDir, tr.TraceID+".json"), "application/json", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tr)
	})
}

// ObjectName returns the full object name for a file name.
func (r *Repository) ObjectName(name string) string {
	if r.prefix == "" {
		return name
	}
	return path.Join(r.prefix, name)
}

func (r *Repository) upload(ctx context.Context, name, contentType string, fn func(w io.Writer) error) error {
	object := r.ObjectName(name)
	w := r.client.Bucket(r.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if err := fn(w); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write object",
			goerr.Value("bucket", r.bucket),
			goerr.Value("object", object),
		)
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload object",
			goerr.Value("bucket", r.bucket),
			goerr.Value("object", object),
		)
	}
	return nil
}
