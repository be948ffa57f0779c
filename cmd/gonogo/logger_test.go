package main_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	main "github.com/m-mizutani/gonogo/cmd/gonogo"
	"github.com/m-mizutani/gt"
)

func TestNewLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := main.NewLogger(&buf, "json", "info")
		gt.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("shown", "participant", 4)
		gt.S(t, buf.String()).Contains(`"msg":"shown"`)
		gt.S(t, buf.String()).Contains(`"participant":4`)
		gt.False(t, strings.Contains(buf.String(), "hidden"))
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := main.NewLogger(&buf, "text", "debug")
		gt.NoError(t, err)

		logger.Debug("trial", "block", "1")
		gt.S(t, buf.String()).Contains("msg=trial block=1")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := main.NewLogger(&bytes.Buffer{}, "text", "verbose")
		gt.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := main.NewLogger(&bytes.Buffer{}, "xml", "info")
		gt.Error(t, err)
	})
}

func TestOpenSessionLog(t *testing.T) {
	t.Run("writes only to the file without console", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		logger, closeLog, err := main.OpenSessionLog(dir, "s-1", "text", "info", nil)
		gt.NoError(t, err)

		logger.Info("block started", "block", "1")
		closeLog()

		data, err := os.ReadFile(filepath.Join(dir, "s-1.log"))
		gt.NoError(t, err)
		gt.S(t, string(data)).Contains("msg=\"block started\" block=1")
	})

	t.Run("mirrors to console", func(t *testing.T) {
		dir := t.TempDir()
		var console bytes.Buffer
		logger, closeLog, err := main.OpenSessionLog(dir, "s-2", "json", "info", &console)
		gt.NoError(t, err)
		defer closeLog()

		logger.Info("condition reversed")
		gt.S(t, console.String()).Contains(`"msg":"condition reversed"`)

		data, err := os.ReadFile(filepath.Join(dir, "s-2.log"))
		gt.NoError(t, err)
		gt.S(t, string(data)).Contains(`"msg":"condition reversed"`)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, _, err := main.OpenSessionLog(t.TempDir(), "s-3", "xml", "info", nil)
		gt.Error(t, err)
	})
}
