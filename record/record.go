// Package record holds the session log of a Go/No-Go run and persists it
// through one or more Repository implementations.
package record

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo"
)

// Session is everything recorded during one run of the experiment.
type Session struct {
	SessionID   string    `json:"session_id"`
	Participant int       `json:"participant"`
	Session     string    `json:"session,omitempty"`
	Condition   string    `json:"condition"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`

	Trials        []*gonogo.TrialOutcome         `json:"-"`
	Questionnaire []gonogo.QuestionnaireResponse `json:"-"`
}

// Info identifies the session a Recorder belongs to.
type Info struct {
	SessionID   string
	Participant int
	Session     string
	Condition   gonogo.Condition
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithRepository sets where Flush persists the session. Use Multi to write to
// several repositories.
func WithRepository(repo Repository) Option {
	return func(r *Recorder) {
		r.repo = repo
	}
}

// WithNow replaces the clock used for StartedAt and EndedAt.
func WithNow(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// Recorder is the append-only session log. It implements gonogo.Recorder.
// Flush persists the log exactly once; later calls are no-ops and Append
// after Flush fails with gonogo.ErrRecorderFlushed.
type Recorder struct {
	mu      sync.Mutex
	session *Session
	repo    Repository
	now     func() time.Time
	flushed bool
}

var _ gonogo.Recorder = (*Recorder)(nil)

// New creates a Recorder for the session described by info. An empty
// SessionID is replaced with a UUID v7.
func New(info Info, opts ...Option) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	if info.SessionID == "" {
		info.SessionID = uuid.Must(uuid.NewV7()).String()
	}

	r.session = &Session{
		SessionID:     info.SessionID,
		Participant:   info.Participant,
		Session:       info.Session,
		Condition:     info.Condition.String(),
		StartedAt:     r.now(),
		Trials:        []*gonogo.TrialOutcome{},
		Questionnaire: []gonogo.QuestionnaireResponse{},
	}
	return r
}

// Append adds a trial outcome. The outcome is copied so later changes by the
// caller do not reach the log.
func (r *Recorder) Append(ctx context.Context, outcome *gonogo.TrialOutcome) error {
	if outcome == nil {
		return goerr.New("outcome is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.flushed {
		return goerr.Wrap(gonogo.ErrRecorderFlushed, "cannot append trial",
			goerr.V("block", outcome.Block),
			goerr.V("index", outcome.Index),
		)
	}

	copied := *outcome
	if outcome.ReactionTime != nil {
		rt := *outcome.ReactionTime
		copied.ReactionTime = &rt
	}
	r.session.Trials = append(r.session.Trials, &copied)

	gonogo.LoggerFromContext(ctx).Debug("trial recorded",
		"block", copied.Block,
		"index", copied.Index,
		"total", len(r.session.Trials),
	)
	return nil
}

// AppendQuestionnaire adds a validated rating.
func (r *Recorder) AppendQuestionnaire(ctx context.Context, resp gonogo.QuestionnaireResponse) error {
	if err := resp.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.flushed {
		return goerr.Wrap(gonogo.ErrRecorderFlushed, "cannot append rating", goerr.V("question_id", resp.QuestionID))
	}
	r.session.Questionnaire = append(r.session.Questionnaire, resp)
	return nil
}

// Flush persists the session. Only the first call writes; the recorder is
// sealed even if the repository fails so nothing is ever written twice.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	if r.flushed {
		r.mu.Unlock()
		return nil
	}
	r.flushed = true
	r.session.EndedAt = r.now()
	session := r.session
	repo := r.repo
	r.mu.Unlock()

	logger := gonogo.LoggerFromContext(ctx)
	if repo == nil {
		logger.Warn("no repository configured, session records are discarded", "trials", len(session.Trials))
		return nil
	}

	if err := repo.Save(ctx, session); err != nil {
		return goerr.Wrap(err, "failed to save session",
			goerr.V("session_id", session.SessionID),
			goerr.V("trials", len(session.Trials)),
		)
	}

	logger.Info("session records saved",
		"trials", len(session.Trials),
		"questionnaire", len(session.Questionnaire),
	)
	return nil
}

// Flushed reports whether Flush has been called.
func (r *Recorder) Flushed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushed
}

// Session returns the recorded session. The returned value must not be
// modified.
func (r *Recorder) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}
