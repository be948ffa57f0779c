package record

import (
	"strconv"

	"github.com/m-mizutani/gonogo"
)

// Columns is the fixed column order of the trial output.
var Columns = []string{
	"Participant",
	"Block",
	"Image",
	"ISI",
	"StimulusType",
	"Emotion",
	"Response",
	"Correct",
	"ReactionTime",
}

// QuestionnaireColumns is the column order of the questionnaire output.
var QuestionnaireColumns = []string{"Participant", "QuestionID", "Rating"}

// TrialRow is the flat, storage-friendly form of a trial outcome with times
// in seconds.
type TrialRow struct {
	Participant  int      `json:"participant"`
	Session      string   `json:"session,omitempty"`
	Block        string   `json:"block"`
	Index        int      `json:"index"`
	Image        string   `json:"image"`
	ISI          float64  `json:"isi"`
	StimulusType string   `json:"stimulus_type"`
	Emotion      string   `json:"emotion"`
	Response     string   `json:"response"`
	Correct      bool     `json:"correct"`
	ReactionTime *float64 `json:"reaction_time"`
}

// NewTrialRow converts an outcome.
func NewTrialRow(o *gonogo.TrialOutcome) TrialRow {
	row := TrialRow{
		Participant:  o.Participant,
		Session:      o.Session,
		Block:        o.Block,
		Index:        o.Index,
		Image:        o.Image,
		ISI:          o.ISISeconds(),
		StimulusType: o.Kind.String(),
		Emotion:      o.Emotion.String(),
		Response:     o.Response.String(),
		Correct:      o.Correct,
	}
	if rt, ok := o.ReactionTimeSeconds(); ok {
		row.ReactionTime = &rt
	}
	return row
}

// Rows converts every trial of the session.
func (x *Session) Rows() []TrialRow {
	rows := make([]TrialRow, 0, len(x.Trials))
	for _, o := range x.Trials {
		rows = append(rows, NewTrialRow(o))
	}
	return rows
}

// Record returns the row as CSV fields in Columns order. A missing reaction
// time is an empty field.
func (x TrialRow) Record() []string {
	rt := ""
	if x.ReactionTime != nil {
		rt = formatSeconds(*x.ReactionTime)
	}
	return []string{
		strconv.Itoa(x.Participant),
		x.Block,
		x.Image,
		formatSeconds(x.ISI),
		x.StimulusType,
		x.Emotion,
		x.Response,
		strconv.FormatBool(x.Correct),
		rt,
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
