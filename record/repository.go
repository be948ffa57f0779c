package record

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// Repository persists a finished session.
type Repository interface {
	Save(ctx context.Context, session *Session) error
}

type multiRepository []Repository

// Multi returns a Repository that saves to every repo in order. All repos are
// tried even if one fails; the errors are joined.
func Multi(repos ...Repository) Repository {
	var m multiRepository
	for _, repo := range repos {
		if repo != nil {
			m = append(m, repo)
		}
	}
	return m
}

func (m multiRepository) Save(ctx context.Context, session *Session) error {
	var errs []error
	for _, repo := range m {
		if err := repo.Save(ctx, session); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeFileAtomic writes through fn into a temporary file in dir and renames
// it to name, so readers never see a partial file.
func writeFileAtomic(dir, name string, fn func(f *os.File) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create directory", goerr.V("dir", dir))
	}

	tmp, err := os.CreateTemp(dir, ".record-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file", goerr.V("dir", dir))
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temp file", goerr.V("path", tmp.Name()))
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return goerr.Wrap(err, "failed to rename file", goerr.V("path", path))
	}
	return nil
}
