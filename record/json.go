package record

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo"
)

type document struct {
	*Session
	Trials        []TrialRow                     `json:"trials"`
	Questionnaire []gonogo.QuestionnaireResponse `json:"questionnaire"`
}

// WriteJSON writes the whole session, trials in TrialRow form, as indented
// JSON.
func WriteJSON(w io.Writer, session *Session) error {
	doc := document{
		Session:       session,
		Trials:        session.Rows(),
		Questionnaire: session.Questionnaire,
	}
	if doc.Questionnaire == nil {
		doc.Questionnaire = []gonogo.QuestionnaireResponse{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return goerr.Wrap(err, "failed to encode session", goerr.V("session_id", session.SessionID))
	}
	return nil
}

// JSONFileName is the base name of the JSON document of a session.
func JSONFileName(session *Session) string {
	return fmt.Sprintf("participant_%d_%s.json", session.Participant, session.SessionID)
}

// JSONRepository writes one JSON document per session into a directory.
type JSONRepository struct {
	dir string
}

var _ Repository = (*JSONRepository)(nil)

// NewJSONRepository creates a JSONRepository writing into dir.
func NewJSONRepository(dir string) *JSONRepository {
	return &JSONRepository{dir: dir}
}

// Save implements Repository.
func (r *JSONRepository) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}
	err := writeFileAtomic(r.dir, JSONFileName(session), func(f *os.File) error {
		return WriteJSON(f, session)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save session JSON", goerr.V("session_id", session.SessionID))
	}
	return nil
}
