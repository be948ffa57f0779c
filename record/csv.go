package record

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// WriteTrialsCSV writes the header and one line per trial.
func WriteTrialsCSV(w io.Writer, session *Session) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return goerr.Wrap(err, "failed to write CSV header")
	}
	for _, row := range session.Rows() {
		if err := cw.Write(row.Record()); err != nil {
			return goerr.Wrap(err, "failed to write CSV row", goerr.V("block", row.Block), goerr.V("index", row.Index))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush CSV")
	}
	return nil
}

// WriteQuestionnaireCSV writes the header and one line per rating.
func WriteQuestionnaireCSV(w io.Writer, session *Session) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(QuestionnaireColumns); err != nil {
		return goerr.Wrap(err, "failed to write CSV header")
	}
	for _, q := range session.Questionnaire {
		record := []string{strconv.Itoa(q.Participant), q.QuestionID, strconv.Itoa(q.Rating)}
		if err := cw.Write(record); err != nil {
			return goerr.Wrap(err, "failed to write CSV row", goerr.V("question_id", q.QuestionID))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush CSV")
	}
	return nil
}

// TrialsFileName is the base name of the trial CSV of a participant's
// session: participant_<id>_<session>.csv, or participant_<id>.csv when the
// session label is empty.
func TrialsFileName(participant int, session string) string {
	return fileStem(participant, session) + ".csv"
}

// QuestionnaireFileName is the base name of the questionnaire CSV.
func QuestionnaireFileName(participant int, session string) string {
	return fileStem(participant, session) + "_questionnaire.csv"
}

var unsafeFileChars = strings.NewReplacer("/", "_", "\\", "_", " ", "_", "..", "_")

func fileStem(participant int, session string) string {
	if session == "" {
		return fmt.Sprintf("participant_%d", participant)
	}
	return fmt.Sprintf("participant_%d_%s", participant, unsafeFileChars.Replace(session))
}

// CSVRepository writes the trial CSV and, when ratings were collected, the
// questionnaire CSV of each session into a directory.
type CSVRepository struct {
	dir string
}

var _ Repository = (*CSVRepository)(nil)

// NewCSVRepository creates a CSVRepository writing into dir. The directory is
// created on first save.
func NewCSVRepository(dir string) *CSVRepository {
	return &CSVRepository{dir: dir}
}

// Save implements Repository. Saving the same participant and session label
// again replaces its files; other sessions of the participant are kept.
func (r *CSVRepository) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}

	err := writeFileAtomic(r.dir, TrialsFileName(session.Participant, session.Session), func(f *os.File) error {
		return WriteTrialsCSV(f, session)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save trial CSV", goerr.V("participant", session.Participant))
	}

	if len(session.Questionnaire) == 0 {
		return nil
	}
	err = writeFileAtomic(r.dir, QuestionnaireFileName(session.Participant, session.Session), func(f *os.File) error {
		return WriteQuestionnaireCSV(f, session)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save questionnaire CSV", goerr.V("participant", session.Participant))
	}
	return nil
}
