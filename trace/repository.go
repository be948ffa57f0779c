package trace

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// Repository is the interface for persisting trace data.
type Repository interface {
	Save(ctx context.Context, trace *Trace) error
}

// FileRepository persists each session trace as one JSON file.
type FileRepository struct {
	dir    string
	prefix string
}

// FileOption configures a FileRepository.
type FileOption func(*FileRepository)

// WithFilePrefix prepends prefix to every trace file name, e.g. "trace_".
func WithFilePrefix(prefix string) FileOption {
	return func(r *FileRepository) {
		r.prefix = prefix
	}
}

// NewFileRepository creates a new FileRepository that writes to the given directory.
func NewFileRepository(dir string, opts ...FileOption) *FileRepository {
	r := &FileRepository{dir: dir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the file the trace with traceID is written to.
func (r *FileRepository) Path(traceID string) string {
	return filepath.Join(r.dir, r.prefix+traceID+".json")
}

// Save writes the trace to Path(trace.TraceID). The file is written to a
// temporary name first and renamed, so a reader never sees a partial trace.
func (r *FileRepository) Save(_ context.Context, trace *Trace) error {
	if trace == nil {
		return goerr.New("trace is nil")
	}
	if err := os.MkdirAll(r.dir, 0750); err != nil {
		return goerr.Wrap(err, "failed to create trace directory", goerr.V("dir", r.dir))
	}

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal trace", goerr.V("trace_id", trace.TraceID))
	}

	filePath := r.Path(trace.TraceID)
	tmp, err := os.CreateTemp(r.dir, ".trace-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary trace file", goerr.V("dir", r.dir))
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return goerr.Wrap(err, "failed to write trace file", goerr.V("path", tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close trace file", goerr.V("path", tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return goerr.Wrap(err, "failed to rename trace file", goerr.V("path", filePath))
	}

	return nil
}

type multiRepository []Repository

// MultiRepository saves a trace to every repo. All repositories are tried and
// their errors joined.
func MultiRepository(repos ...Repository) Repository {
	var m multiRepository
	for _, r := range repos {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m multiRepository) Save(ctx context.Context, trace *Trace) error {
	var errs []error
	for _, r := range m {
		if err := r.Save(ctx, trace); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
