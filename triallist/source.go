package triallist

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo"
)

// DirSource is a gonogo.TrialSource reading one list per Go category from a
// directory: happy_go.csv (or .json) for blocks where happy faces are Go, and
// sad_go.csv (or .json) for the others. Every block gets its own shuffle.
type DirSource struct {
	dir         string
	seed        uint64
	emotionRule gonogo.EmotionRule
	logger      *slog.Logger
}

var (
	_ gonogo.TrialSource   = (*DirSource)(nil)
	_ gonogo.ExampleSource = (*DirSource)(nil)
)

// DirOption configures a DirSource.
type DirOption func(*DirSource)

// WithSeed makes the per-block shuffles reproducible.
func WithSeed(seed uint64) DirOption {
	return func(s *DirSource) {
		s.seed = seed
	}
}

// WithEmotionRule sets the rule used to pick example images. Default is
// gonogo.DefaultCharRule.
func WithEmotionRule(rule gonogo.EmotionRule) DirOption {
	return func(s *DirSource) {
		s.emotionRule = rule
	}
}

// WithLogger sets the logger. Default is discard logger.
func WithLogger(logger *slog.Logger) DirOption {
	return func(s *DirSource) {
		s.logger = logger
	}
}

// NewDirSource creates a DirSource for dir.
func NewDirSource(dir string, opts ...DirOption) *DirSource {
	s := &DirSource{
		dir:         dir,
		seed:        rand.Uint64(),
		emotionRule: gonogo.DefaultCharRule.Rule(),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPath returns the list file used when goCategory is Go.
func (s *DirSource) ListPath(goCategory gonogo.Emotion) (string, error) {
	base := strings.ToLower(goCategory.String()) + "_go"
	for _, ext := range []string{".csv", ".json"} {
		path := filepath.Join(s.dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", goerr.New("trial list not found",
		goerr.V("dir", s.dir),
		goerr.V("go_category", goCategory),
	)
}

func (s *DirSource) load(goCategory gonogo.Emotion, block string) ([]gonogo.TrialSpec, error) {
	path, err := s.ListPath(goCategory)
	if err != nil {
		return nil, err
	}
	trials, err := LoadFile(path, block)
	if err != nil {
		return nil, err
	}
	for i := range trials {
		if !filepath.IsAbs(trials[i].Image) {
			trials[i].Image = filepath.Join(s.dir, trials[i].Image)
		}
	}
	return trials, nil
}

// Trials implements gonogo.TrialSource.
func (s *DirSource) Trials(ctx context.Context, plan gonogo.BlockPlan) ([]gonogo.TrialSpec, error) {
	trials, err := s.load(plan.GoCategory, plan.Label)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load block trials", goerr.V("block", plan.Label))
	}

	r := rand.New(rand.NewPCG(s.seed, uint64(plan.Index)))
	shuffled := Shuffle(trials, r)

	s.logger.Debug("trial list loaded",
		"block", plan.Label,
		"go_category", plan.GoCategory,
		"trials", len(shuffled),
	)
	return shuffled, nil
}

// Example returns an image of emotion from any of the lists. The pick is
// derived from the seed, so the same seed shows the same examples.
func (s *DirSource) Example(ctx context.Context, emotion gonogo.Emotion) (string, error) {
	var candidates []string
	for _, category := range []gonogo.Emotion{gonogo.EmotionHappy, gonogo.EmotionSad} {
		trials, err := s.load(category, "")
		if err != nil {
			continue
		}
		for _, t := range trials {
			if e, err := s.emotionRule(t.Image); err == nil && e == emotion {
				candidates = append(candidates, t.Image)
			}
		}
	}
	if len(candidates) == 0 {
		return "", goerr.New("no example image", goerr.V("emotion", emotion), goerr.V("dir", s.dir))
	}
	r := rand.New(rand.NewPCG(s.seed, uint64(emotion)))
	return candidates[r.IntN(len(candidates))], nil
}
