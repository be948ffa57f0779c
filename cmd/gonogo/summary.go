package main

import (
	"time"

	"github.com/m-mizutani/gonogo"
	"github.com/m-mizutani/gonogo/trace"
)

// blockSummary is the signal-detection count of one block.
type blockSummary struct {
	Label              string  `json:"label"`
	GoCategory         string  `json:"go_category"`
	Trials             int     `json:"trials"`
	Hits               int     `json:"hits"`
	Misses             int     `json:"misses"`
	FalseAlarms        int     `json:"false_alarms"`
	CorrectRejections  int     `json:"correct_rejections"`
	Accuracy           float64 `json:"accuracy"`
	MeanReactionTimeMS float64 `json:"mean_rt_ms,omitempty"`

	rtSum time.Duration
}

type sessionSummary struct {
	TraceID     string          `json:"trace_id"`
	Participant int             `json:"participant"`
	Condition   string          `json:"condition"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Blocks      []*blockSummary `json:"blocks"`
	Total       *blockSummary   `json:"total"`
}

// summarize counts hits, misses, false alarms and correct rejections per block.
// The mean RT covers hits only.
func summarize(t *trace.Trace) *sessionSummary {
	s := &sessionSummary{
		TraceID: t.TraceID,
		Blocks:  []*blockSummary{},
		Total:   &blockSummary{Label: "total"},
	}
	root := t.RootSpan
	if root == nil {
		return s
	}
	s.Status = string(root.Status)
	s.Error = root.Error
	if root.Session != nil {
		s.Participant = root.Session.Participant
		s.Condition = root.Session.Condition
	}

	for _, child := range root.Children {
		if child.Kind != trace.SpanKindBlock {
			continue
		}
		b := &blockSummary{}
		if child.Block != nil {
			b.Label = child.Block.Label
			b.GoCategory = child.Block.GoCategory
		}
		for _, span := range child.Children {
			if span.Kind != trace.SpanKindTrial || span.Trial == nil {
				continue
			}
			b.add(span.Trial)
			s.Total.add(span.Trial)
		}
		b.finish()
		s.Blocks = append(s.Blocks, b)
	}
	s.Total.finish()

	return s
}

func (b *blockSummary) add(d *trace.TrialData) {
	// An aborted trial has no response and is not counted.
	if d.Kind == "" || d.Response == "" {
		return
	}
	b.Trials++

	responded := d.Response == gonogo.ResponseSpacePressed.String()
	isGo := d.Kind == gonogo.StimulusGo.String()
	switch {
	case isGo && responded:
		b.Hits++
		if d.ReactionTime != nil {
			b.rtSum += *d.ReactionTime
		}
	case isGo:
		b.Misses++
	case responded:
		b.FalseAlarms++
	default:
		b.CorrectRejections++
	}
}

func (b *blockSummary) finish() {
	if b.Trials > 0 {
		b.Accuracy = float64(b.Hits+b.CorrectRejections) / float64(b.Trials)
	}
	if b.Hits > 0 {
		b.MeanReactionTimeMS = float64(b.rtSum) / float64(b.Hits) / float64(time.Millisecond)
	}
}
