// Package internal holds helpers shared by the tests of several packages.
package internal

import (
	"log/slog"
	"os"
)

// TestLogger returns a logger for tests. Output is discarded unless
// GONOGO_TEST_LOG is set to a level name such as "debug", in which case
// text logs go to stderr.
func TestLogger() *slog.Logger {
	v := os.Getenv("GONOGO_TEST_LOG")
	if v == "" {
		return slog.New(slog.DiscardHandler)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
