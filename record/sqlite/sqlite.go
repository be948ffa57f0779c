// Package sqlite stores Go/No-Go sessions in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo/record"

	_ "modernc.org/sqlite"
)

const dsnParams = "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// Repository is a record.Repository writing sessions, trials and
// questionnaire ratings into SQLite.
type Repository struct {
	db *sql.DB
}

var _ record.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and migrates its schema.
func Open(ctx context.Context, path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, goerr.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", filepath.Clean(path)+dsnParams)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", path))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping sqlite", goerr.V("path", path))
	}
	if err := ensureForeignKeys(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// ensureForeignKeys fails when the driver did not apply the foreign_keys
// pragma. Save relies on ON DELETE CASCADE to replace a session.
func ensureForeignKeys(ctx context.Context, db *sql.DB) error {
	var enabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return goerr.Wrap(err, "failed to check foreign_keys pragma")
	}
	if enabled != 1 {
		return goerr.New("sqlite foreign keys are disabled")
	}
	return nil
}

// Close closes the database handle.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Save implements record.Repository. The whole session is written in one
// transaction; saving the same session ID again replaces it.
func (r *Repository) Save(ctx context.Context, session *record.Session) error {
	if session == nil {
		return goerr.New("session is nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, session.SessionID); err != nil {
		return goerr.Wrap(err, "failed to delete previous session", goerr.V("session_id", session.SessionID))
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, participant, session, condition, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.SessionID,
		session.Participant,
		session.Session,
		session.Condition,
		session.StartedAt.UTC().UnixMilli(),
		session.EndedAt.UTC().UnixMilli(),
	); err != nil {
		return goerr.Wrap(err, "failed to insert session", goerr.V("session_id", session.SessionID))
	}

	trialStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trials (session_id, seq, participant, block, trial_index, image, isi,
		   stimulus_type, emotion, response, correct, reaction_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare trial insert")
	}
	defer trialStmt.Close()

	for seq, row := range session.Rows() {
		var rt sql.NullFloat64
		if row.ReactionTime != nil {
			rt = sql.NullFloat64{Float64: *row.ReactionTime, Valid: true}
		}
		if _, err := trialStmt.ExecContext(ctx,
			session.SessionID, seq+1, row.Participant, row.Block, row.Index, row.Image, row.ISI,
			row.StimulusType, row.Emotion, row.Response, row.Correct, rt,
		); err != nil {
			return goerr.Wrap(err, "failed to insert trial", goerr.V("block", row.Block), goerr.V("index", row.Index))
		}
	}

	for _, q := range session.Questionnaire {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questionnaire (session_id, participant, question_id, rating) VALUES (?, ?, ?, ?)`,
			session.SessionID, q.Participant, q.QuestionID, q.Rating,
		); err != nil {
			return goerr.Wrap(err, "failed to insert rating", goerr.V("question_id", q.QuestionID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit session", goerr.V("session_id", session.SessionID))
	}
	return nil
}

// CountTrials returns the number of stored trials of a participant.
func (r *Repository) CountTrials(ctx context.Context, participant int) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trials WHERE participant = ?`, participant).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to count trials", goerr.V("participant", participant))
	}
	return n, nil
}

// ConditionCounts returns how many stored sessions were run under each
// condition label.
func (r *Repository) ConditionCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT condition, COUNT(*) FROM sessions GROUP BY condition`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query condition counts")
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			condition string
			n         int
		)
		if err := rows.Scan(&condition, &n); err != nil {
			return nil, goerr.Wrap(err, "failed to scan condition count")
		}
		counts[condition] = n
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate condition counts")
	}
	return counts, nil
}
