package trace_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gonogo/trace"
	"github.com/m-mizutani/gt"
)

func newSessionTrace(id string) *trace.Trace {
	now := time.Now()
	return &trace.Trace{
		TraceID: id,
		RootSpan: &trace.Span{
			SpanID:    "root",
			Kind:      trace.SpanKindSession,
			Name:      "session",
			StartedAt: now,
			EndedAt:   now.Add(time.Second),
			Duration:  time.Second,
			Status:    trace.SpanStatusOK,
			Session:   &trace.SessionData{SessionID: id, Participant: 4, Condition: "A"},
		},
		Metadata:  trace.TraceMetadata{Experiment: "gonogo"},
		StartedAt: now,
		EndedAt:   now.Add(time.Second),
	}
}

func TestFileRepositorySave(t *testing.T) {
	dir := t.TempDir()
	repo := trace.NewFileRepository(dir)

	gt.NoError(t, repo.Save(context.Background(), newSessionTrace("test-file-repo")))

	data, err := os.ReadFile(filepath.Join(dir, "test-file-repo.json"))
	gt.NoError(t, err)

	var loaded trace.Trace
	gt.NoError(t, json.Unmarshal(data, &loaded))
	gt.Equal(t, loaded.TraceID, "test-file-repo")
	gt.Equal(t, loaded.RootSpan.Kind, trace.SpanKindSession)
	gt.Equal(t, loaded.RootSpan.Session.Participant, 4)
	gt.Equal(t, loaded.Metadata.Experiment, "gonogo")

	// Only the final file remains, no temporary files.
	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.A(t, entries).Length(1)
}

func TestFileRepositoryCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	repo := trace.NewFileRepository(dir)

	gt.NoError(t, repo.Save(context.Background(), newSessionTrace("test-nested-dir")))

	_, err := os.Stat(filepath.Join(dir, "test-nested-dir.json"))
	gt.NoError(t, err)
}

func TestFileRepositoryPrefix(t *testing.T) {
	dir := t.TempDir()
	repo := trace.NewFileRepository(dir, trace.WithFilePrefix("trace_"))

	gt.Equal(t, repo.Path("abc"), filepath.Join(dir, "trace_abc.json"))
	gt.NoError(t, repo.Save(context.Background(), newSessionTrace("abc")))

	_, err := os.Stat(filepath.Join(dir, "trace_abc.json"))
	gt.NoError(t, err)
}

func TestFileRepositoryOverwrite(t *testing.T) {
	dir := t.TempDir()
	repo := trace.NewFileRepository(dir)

	tr := newSessionTrace("same")
	gt.NoError(t, repo.Save(context.Background(), tr))
	tr.RootSpan.Session.Condition = "B"
	gt.NoError(t, repo.Save(context.Background(), tr))

	data, err := os.ReadFile(repo.Path("same"))
	gt.NoError(t, err)
	var loaded trace.Trace
	gt.NoError(t, json.Unmarshal(data, &loaded))
	gt.Equal(t, loaded.RootSpan.Session.Condition, "B")
}

func TestFileRepositoryNilTrace(t *testing.T) {
	repo := trace.NewFileRepository(t.TempDir())
	gt.Error(t, repo.Save(context.Background(), nil))
}

func TestRecorderWithFileRepository(t *testing.T) {
	dir := t.TempDir()
	rec := trace.New(trace.WithRepository(trace.NewFileRepository(dir)))

	ctx := rec.StartSession(context.Background(), &trace.SessionData{SessionID: "session-42", Participant: 42})
	blockCtx := rec.StartBlock(ctx, &trace.BlockData{Index: 1, Label: "1"})
	trialCtx := rec.StartTrial(blockCtx, 1, "s01.png")
	rec.EndTrial(trialCtx, &trace.TrialData{Index: 1, Image: "s01.png", Kind: "No-Go", Correct: true}, nil)
	rec.EndBlock(blockCtx, nil)
	rec.EndSession(ctx, nil)
	gt.NoError(t, rec.Finish(ctx))

	data, err := os.ReadFile(filepath.Join(dir, "session-42.json"))
	gt.NoError(t, err)

	var loaded trace.Trace
	gt.NoError(t, json.Unmarshal(data, &loaded))
	gt.A(t, loaded.RootSpan.Children).Length(1)
	gt.Equal(t, loaded.RootSpan.Children[0].Children[0].Trial.Kind, "No-Go")
}

type failingRepository struct{}

func (failingRepository) Save(context.Context, *trace.Trace) error {
	return errors.New("bucket unavailable")
}

func TestMultiRepository(t *testing.T) {
	dir := t.TempDir()
	file := trace.NewFileRepository(dir)

	t.Run("saves to every repository", func(t *testing.T) {
		other := t.TempDir()
		repo := trace.MultiRepository(file, nil, trace.NewFileRepository(other))
		gt.NoError(t, repo.Save(context.Background(), newSessionTrace("multi-ok")))

		_, err := os.Stat(filepath.Join(dir, "multi-ok.json"))
		gt.NoError(t, err)
		_, err = os.Stat(filepath.Join(other, "multi-ok.json"))
		gt.NoError(t, err)
	})

	t.Run("failure does not stop other repositories", func(t *testing.T) {
		repo := trace.MultiRepository(failingRepository{}, file)
		err := repo.Save(context.Background(), newSessionTrace("multi-partial"))
		gt.Error(t, err)

		_, err = os.Stat(filepath.Join(dir, "multi-partial.json"))
		gt.NoError(t, err)
	})
}
