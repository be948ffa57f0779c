package record_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gonogo"
	"github.com/m-mizutani/gonogo/record"
	"github.com/m-mizutani/gt"
)

type memoryRepository struct {
	saved []*record.Session
	err   error
}

func (r *memoryRepository) Save(ctx context.Context, session *record.Session) error {
	r.saved = append(r.saved, session)
	return r.err
}

func newOutcome(block string, index int, kind gonogo.StimulusKind, rt *time.Duration) *gonogo.TrialOutcome {
	o := &gonogo.TrialOutcome{
		Participant: 4,
		Block:       block,
		Index:       index,
		Image:       "stimuli/h01.png",
		ISI:         400 * time.Millisecond,
		Kind:        kind,
		Emotion:     gonogo.EmotionHappy,
		Response:    gonogo.ResponseNone,
	}
	if rt != nil {
		o.Response = gonogo.ResponseSpacePressed
		o.ReactionTime = rt
	}
	o.Correct = gonogo.Evaluate(kind, o.Response)
	return o
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}

func TestRecorderFlushOnce(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepository{}
	rec := record.New(record.Info{Participant: 4, Condition: gonogo.ConditionA}, record.WithRepository(repo))

	gt.NoError(t, rec.Append(ctx, newOutcome("1", 1, gonogo.StimulusGo, durationPtr(310*time.Millisecond))))
	gt.NoError(t, rec.Append(ctx, newOutcome("1", 2, gonogo.StimulusNoGo, nil)))

	gt.NoError(t, rec.Flush(ctx))
	gt.NoError(t, rec.Flush(ctx))
	gt.A(t, repo.saved).Length(1)
	gt.A(t, repo.saved[0].Trials).Length(2)
	gt.True(t, rec.Flushed())
	gt.Equal(t, repo.saved[0].Condition, "A")
	gt.True(t, repo.saved[0].SessionID != "")

	err := rec.Append(ctx, newOutcome("1", 3, gonogo.StimulusGo, nil))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, gonogo.ErrRecorderFlushed))

	err = rec.AppendQuestionnaire(ctx, gonogo.QuestionnaireResponse{Participant: 4, QuestionID: "q1", Rating: 3})
	gt.True(t, errors.Is(err, gonogo.ErrRecorderFlushed))
}

func TestRecorderFlushFailureSeals(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepository{err: errors.New("disk full")}
	rec := record.New(record.Info{Participant: 1}, record.WithRepository(repo))

	gt.NoError(t, rec.Append(ctx, newOutcome("1", 1, gonogo.StimulusGo, nil)))
	gt.Error(t, rec.Flush(ctx))
	gt.NoError(t, rec.Flush(ctx))
	gt.A(t, repo.saved).Length(1)
}

func TestRecorderCopiesOutcome(t *testing.T) {
	ctx := context.Background()
	rec := record.New(record.Info{Participant: 2})

	rt := 300 * time.Millisecond
	o := newOutcome("1", 1, gonogo.StimulusGo, &rt)
	gt.NoError(t, rec.Append(ctx, o))

	o.Block = "changed"
	rt = time.Second

	stored := rec.Session().Trials[0]
	gt.Equal(t, stored.Block, "1")
	gt.Equal(t, *stored.ReactionTime, 300*time.Millisecond)
}

func TestRecorderRejectsInvalidRating(t *testing.T) {
	ctx := context.Background()
	rec := record.New(record.Info{Participant: 2})

	err := rec.AppendQuestionnaire(ctx, gonogo.QuestionnaireResponse{Participant: 2, QuestionID: "q1", Rating: 6})
	gt.True(t, errors.Is(err, gonogo.ErrInvalidRating))
	gt.A(t, rec.Session().Questionnaire).Length(0)

	gt.NoError(t, rec.AppendQuestionnaire(ctx, gonogo.QuestionnaireResponse{Participant: 2, QuestionID: "q1", Rating: 5}))
	gt.A(t, rec.Session().Questionnaire).Length(1)
}

func TestWriteTrialsCSV(t *testing.T) {
	ctx := context.Background()
	rec := record.New(record.Info{Participant: 4})
	gt.NoError(t, rec.Append(ctx, newOutcome("1", 1, gonogo.StimulusGo, durationPtr(350*time.Millisecond))))
	gt.NoError(t, rec.Append(ctx, newOutcome("1", 2, gonogo.StimulusGo, nil)))

	var buf bytes.Buffer
	gt.NoError(t, record.WriteTrialsCSV(&buf, rec.Session()))

	lines, err := csv.NewReader(&buf).ReadAll()
	gt.NoError(t, err)
	gt.A(t, lines).Length(3)
	gt.Equal(t, strings.Join(lines[0], ","), "Participant,Block,Image,ISI,StimulusType,Emotion,Response,Correct,ReactionTime")
	gt.Equal(t, lines[1], []string{"4", "1", "stimuli/h01.png", "0.4000", "Go", "Happy", "SpacePressed", "true", "0.3500"})
	gt.Equal(t, lines[2], []string{"4", "1", "stimuli/h01.png", "0.4000", "Go", "Happy", "None", "false", ""})
}

func TestCSVRepository(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	rec := record.New(record.Info{Participant: 7}, record.WithRepository(record.NewCSVRepository(dir)))

	gt.NoError(t, rec.Append(ctx, newOutcome("1", 1, gonogo.StimulusNoGo, nil)))
	gt.NoError(t, rec.AppendQuestionnaire(ctx, gonogo.QuestionnaireResponse{Participant: 7, QuestionID: "focus", Rating: 4}))
	gt.NoError(t, rec.Flush(ctx))

	data, err := os.ReadFile(filepath.Join(dir, "participant_7.csv"))
	gt.NoError(t, err)
	gt.S(t, string(data)).Contains("No-Go")

	data, err = os.ReadFile(filepath.Join(dir, "participant_7_questionnaire.csv"))
	gt.NoError(t, err)
	gt.Equal(t, string(data), "Participant,QuestionID,Rating\n7,focus,4\n")

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.A(t, entries).Length(2)
}

func TestCSVRepositoryKeepsEarlierSessions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := record.NewCSVRepository(dir)

	for _, session := range []string{"1", "2"} {
		rec := record.New(record.Info{Participant: 7, Session: session}, record.WithRepository(repo))
		gt.NoError(t, rec.Append(ctx, newOutcome(session, 1, gonogo.StimulusGo, nil)))
		gt.NoError(t, rec.Flush(ctx))
	}

	for _, session := range []string{"1", "2"} {
		lines, err := os.ReadFile(filepath.Join(dir, "participant_7_"+session+".csv"))
		gt.NoError(t, err)
		rows, err := csv.NewReader(bytes.NewReader(lines)).ReadAll()
		gt.NoError(t, err)
		gt.A(t, rows).Length(2)
		gt.Equal(t, rows[1][1], session)
	}

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.A(t, entries).Length(2)
}

func TestTrialsFileName(t *testing.T) {
	gt.Equal(t, record.TrialsFileName(3, ""), "participant_3.csv")
	gt.Equal(t, record.TrialsFileName(3, "pre"), "participant_3_pre.csv")
	gt.Equal(t, record.TrialsFileName(3, "../x"), "participant_3___x.csv")
	gt.Equal(t, record.QuestionnaireFileName(3, "post"), "participant_3_post_questionnaire.csv")
}

func TestJSONRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rec := record.New(record.Info{SessionID: "s-1", Participant: 3, Condition: gonogo.ConditionB},
		record.WithRepository(record.NewJSONRepository(dir)),
	)
	gt.NoError(t, rec.Append(ctx, newOutcome("2", 1, gonogo.StimulusGo, durationPtr(250*time.Millisecond))))
	gt.NoError(t, rec.Flush(ctx))

	data, err := os.ReadFile(filepath.Join(dir, "participant_3_s-1.json"))
	gt.NoError(t, err)

	var doc struct {
		SessionID string            `json:"session_id"`
		Condition string            `json:"condition"`
		Trials    []record.TrialRow `json:"trials"`
	}
	gt.NoError(t, json.Unmarshal(data, &doc))
	gt.Equal(t, doc.SessionID, "s-1")
	gt.Equal(t, doc.Condition, "B")
	gt.A(t, doc.Trials).Length(1)
	gt.Value(t, doc.Trials[0].ReactionTime).NotNil()
	gt.Equal(t, *doc.Trials[0].ReactionTime, 0.25)
}

func TestMultiRepository(t *testing.T) {
	ctx := context.Background()
	a := &memoryRepository{err: errors.New("a failed")}
	b := &memoryRepository{}

	repo := record.Multi(a, nil, b)
	err := repo.Save(ctx, &record.Session{})
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("a failed")
	gt.A(t, a.saved).Length(1)
	gt.A(t, b.saved).Length(1)
}
