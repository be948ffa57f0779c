// Package config reads the timing protocol of the experiment from the
// environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo"
)

// Config is the task protocol. Defaults match the standard protocol.
type Config struct {
	StimulusDuration time.Duration `env:"GONOGO_STIMULUS_DURATION" envDefault:"250ms"`
	ISIMin           time.Duration `env:"GONOGO_ISI_MIN"           envDefault:"200ms"`
	ISIMax           time.Duration `env:"GONOGO_ISI_MAX"           envDefault:"1s"`
	FeedbackDuration time.Duration `env:"GONOGO_FEEDBACK_DURATION" envDefault:"1500ms"`
	PollInterval     time.Duration `env:"GONOGO_POLL_INTERVAL"     envDefault:"1ms"`

	ResponseKey string `env:"GONOGO_RESPONSE_KEY" envDefault:"space"`
	AbortKey    string `env:"GONOGO_ABORT_KEY"    envDefault:"escape"`

	FeedbackMissedGo   string `env:"GONOGO_FEEDBACK_MISSED_GO"   envDefault:"You should have responded"`
	FeedbackFalseAlarm string `env:"GONOGO_FEEDBACK_FALSE_ALARM" envDefault:"You should not have responded"`

	BlocksPerHalf int `env:"GONOGO_BLOCKS_PER_HALF" envDefault:"3"`

	EmotionIndex int    `env:"GONOGO_EMOTION_INDEX" envDefault:"0"`
	HappyCode    string `env:"GONOGO_HAPPY_CODE"    envDefault:"h"`
	SadCode      string `env:"GONOGO_SAD_CODE"      envDefault:"s"`
}

// Load reads Config from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads Config from the given variables instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, goerr.Wrap(err, "failed to parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.StimulusDuration <= 0:
		return goerr.Wrap(gonogo.ErrInvalidConfig, "stimulus duration must be positive", goerr.V("stimulus", c.StimulusDuration))
	case c.ISIMin < 0 || c.ISIMax <= c.ISIMin:
		return goerr.Wrap(gonogo.ErrInvalidConfig, "invalid ISI range", goerr.V("min", c.ISIMin), goerr.V("max", c.ISIMax))
	case c.BlocksPerHalf <= 0:
		return goerr.Wrap(gonogo.ErrInvalidConfig, "blocks per half must be positive", goerr.V("blocks_per_half", c.BlocksPerHalf))
	case c.ResponseKey == c.AbortKey:
		return goerr.Wrap(gonogo.ErrInvalidConfig, "response and abort keys must differ", goerr.V("key", c.ResponseKey))
	case len(c.HappyCode) != 1 || len(c.SadCode) != 1 || c.HappyCode == c.SadCode:
		return goerr.Wrap(gonogo.ErrInvalidConfig, "emotion codes must be two distinct characters",
			goerr.V("happy", c.HappyCode),
			goerr.V("sad", c.SadCode),
		)
	}
	return nil
}

// EmotionRule returns the configured filename rule.
func (c *Config) EmotionRule() gonogo.CharRule {
	return gonogo.CharRule{
		Index: c.EmotionIndex,
		Happy: c.HappyCode[0],
		Sad:   c.SadCode[0],
	}
}

// EngineOptions converts the protocol into trial engine options.
func (c *Config) EngineOptions() []gonogo.Option {
	return []gonogo.Option{
		gonogo.WithStimulusDuration(c.StimulusDuration),
		gonogo.WithISIRange(c.ISIMin, c.ISIMax),
		gonogo.WithFeedbackDuration(c.FeedbackDuration),
		gonogo.WithFeedbackMessages(c.FeedbackMissedGo, c.FeedbackFalseAlarm),
		gonogo.WithPollInterval(c.PollInterval),
		gonogo.WithKeys(gonogo.Key(c.ResponseKey), gonogo.Key(c.AbortKey)),
		gonogo.WithEmotionRule(c.EmotionRule().Rule()),
	}
}
