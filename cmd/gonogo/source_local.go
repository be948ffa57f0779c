package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo/trace"
)

var errTraceNotFound = errors.New("trace not found")

type localSource struct {
	dir string
}

func newLocalSource(dir string) traceSource {
	return &localSource{dir: dir}
}

type localFile struct {
	name string
	info fs.FileInfo
}

func (s *localSource) files() ([]localFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read trace directory", goerr.V("dir", s.dir))
	}

	var files []localFile
	for _, e := range entries {
		// Temporary files of an in-flight save start with a dot.
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, localFile{name: e.Name(), info: info})
	}

	slices.SortFunc(files, func(a, b localFile) int {
		return strings.Compare(a.name, b.name)
	})
	return files, nil
}

func (s *localSource) List(_ context.Context, req listRequest) (*listResponse, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}

	start := 0
	if req.pageToken != "" {
		last, err := decodePageToken(req.pageToken)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid page token")
		}
		start = len(files)
		for i, f := range files {
			if f.name > last {
				start = i
				break
			}
		}
	}

	pageSize := req.pageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	end := min(start+pageSize, len(files))

	resp := &listResponse{}
	for _, f := range files[start:end] {
		resp.traces = append(resp.traces, traceSummary{
			TraceID:   strings.TrimSuffix(f.name, ".json"),
			Size:      f.info.Size(),
			UpdatedAt: f.info.ModTime(),
		})
	}
	if end < len(files) {
		resp.nextPageToken = encodePageToken(files[end-1].name)
	}

	return resp, nil
}

func (s *localSource) Get(_ context.Context, traceID string) (*trace.Trace, error) {
	if traceID == "" || traceID != filepath.Base(traceID) || strings.HasPrefix(traceID, ".") {
		return nil, goerr.Wrap(errTraceNotFound, "invalid trace ID", goerr.V("trace_id", traceID))
	}
	filePath := filepath.Join(s.dir, traceID+".json")

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(errTraceNotFound, "no trace file", goerr.V("trace_id", traceID))
		}
		return nil, goerr.Wrap(err, "failed to read trace file", goerr.V("trace_id", traceID))
	}

	var t trace.Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, goerr.Wrap(err, "failed to parse trace file", goerr.V("trace_id", traceID))
	}

	return &t, nil
}

func encodePageToken(fileName string) string {
	return base64.URLEncoding.EncodeToString([]byte(fileName))
}

func decodePageToken(token string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", goerr.Wrap(err, "failed to decode page token")
	}
	return string(b), nil
}
