package terminal_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gonogo"
	"github.com/m-mizutani/gonogo/internal/terminal"
	"github.com/m-mizutani/gt"
)

// pressUntil writes keys repeatedly until done is closed, so the key is not
// lost to the drain that happens when a prompt appears.
func pressUntil(t *testing.T, w io.Writer, keys string, done <-chan struct{}) {
	t.Helper()
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if _, err := w.Write([]byte(keys)); err != nil {
					return
				}
			}
		}
	}()
}

func TestPollTimestamps(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := terminal.New(pr, io.Discard)

	origin := time.Now()
	_, err := pw.Write([]byte(" x\x1b"))
	gt.NoError(t, err)

	var events []gonogo.KeyEvent
	deadline := time.Now().Add(time.Second)
	for len(events) < 3 && time.Now().Before(deadline) {
		events = append(events, term.Poll(origin)...)
		time.Sleep(time.Millisecond)
	}

	gt.A(t, events).Length(3)
	gt.Equal(t, events[0].Key, gonogo.KeySpace)
	gt.Equal(t, events[1].Key, gonogo.Key("x"))
	gt.Equal(t, events[2].Key, gonogo.KeyEscape)
	gt.True(t, events[0].At >= 0)

	gt.A(t, term.Poll(origin)).Length(0)
}

func pollUntil(term *terminal.Terminal, origin time.Time, n int) []gonogo.KeyEvent {
	var events []gonogo.KeyEvent
	deadline := time.Now().Add(time.Second)
	for len(events) < n && time.Now().Before(deadline) {
		events = append(events, term.Poll(origin)...)
		time.Sleep(time.Millisecond)
	}
	return events
}

func TestPollIgnoresEscapeSequences(t *testing.T) {
	testCases := map[string]struct {
		input string
		want  []gonogo.Key
	}{
		"arrow key":          {input: "\x1b[A ", want: []gonogo.Key{gonogo.KeySpace}},
		"function key (SS3)": {input: "\x1bOPx", want: []gonogo.Key{"x"}},
		"function key (CSI)": {input: "\x1b[15~ ", want: []gonogo.Key{gonogo.KeySpace}},
		"modified arrow":     {input: "\x1b[1;5C\x1b[Bf", want: []gonogo.Key{"f"}},
		"lone escape":        {input: "x\x1b", want: []gonogo.Key{"x", gonogo.KeyEscape}},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			pr, pw := io.Pipe()
			defer pw.Close()
			term := terminal.New(pr, io.Discard)

			origin := time.Now()
			_, err := pw.Write([]byte(tc.input))
			gt.NoError(t, err)

			events := pollUntil(term, origin, len(tc.want))
			// Give a stray key from the sequence time to show up.
			time.Sleep(10 * time.Millisecond)
			events = append(events, term.Poll(origin)...)

			keys := make([]gonogo.Key, 0, len(events))
			for _, ev := range events {
				keys = append(keys, ev.Key)
			}
			gt.Equal(t, keys, tc.want)
		})
	}
}

func TestShowArrowKeyDoesNotAbort(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := terminal.New(pr, io.Discard)

	done := make(chan struct{})
	pressUntil(t, pw, "\x1b[A", done)
	go func() {
		time.Sleep(50 * time.Millisecond)
		pressUntil(t, pw, "f", done)
	}()

	err := term.Show(context.Background(), gonogo.Screen{Name: "half_2"})
	close(done)
	gt.NoError(t, err)
}

func TestShowWaitsForContinue(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	var out bytes.Buffer
	term := terminal.New(pr, &out)

	done := make(chan struct{})
	pressUntil(t, pw, "xf", done)

	err := term.Show(context.Background(), gonogo.Screen{Name: "welcome", Text: "hello\nworld"})
	close(done)
	gt.NoError(t, err)
}

func TestShowAbort(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := terminal.New(pr, io.Discard)

	done := make(chan struct{})
	pressUntil(t, pw, "\x1b", done)

	err := term.Show(context.Background(), gonogo.Screen{Name: "welcome"})
	close(done)
	gt.True(t, errors.Is(err, gonogo.ErrUserAbort))
}

func TestShowClosedInput(t *testing.T) {
	term := terminal.New(bytes.NewReader(nil), io.Discard)
	err := term.Show(context.Background(), gonogo.Screen{Name: "welcome"})
	gt.True(t, errors.Is(err, gonogo.ErrUserAbort))
}

func TestShowCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := terminal.New(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := term.Show(ctx, gonogo.Screen{Name: "welcome"})
	gt.True(t, errors.Is(err, gonogo.ErrUserAbort))
}

func TestRate(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := terminal.New(pr, io.Discard)

	done := make(chan struct{})
	pressUntil(t, pw, "9a4", done)

	rating, err := term.Rate(context.Background(), gonogo.Question{ID: "q1", Text: "How focused were you?"})
	close(done)
	gt.NoError(t, err)
	gt.Equal(t, rating, 4)
}

func TestPrepare(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "h01.png")
	gt.NoError(t, os.WriteFile(image, []byte("png"), 0o644))

	term := terminal.New(bytes.NewReader(nil), io.Discard)
	gt.NoError(t, term.Prepare(context.Background(), image))

	err := term.Prepare(context.Background(), filepath.Join(dir, "missing.png"))
	gt.True(t, errors.Is(err, gonogo.ErrMissingAsset))

	err = term.Prepare(context.Background(), dir)
	gt.True(t, errors.Is(err, gonogo.ErrMissingAsset))
}

func TestPresentSkipsUnchangedFrame(t *testing.T) {
	var out bytes.Buffer
	term := terminal.New(bytes.NewReader(nil), &out)

	term.RenderStimulus("stimuli/h01.png")
	gt.NoError(t, term.Present())
	first := out.Len()
	gt.N(t, first).Greater(0)

	term.RenderStimulus("stimuli/h01.png")
	gt.NoError(t, term.Present())
	gt.Equal(t, out.Len(), first)

	term.RenderBlank()
	gt.NoError(t, term.Present())
	gt.N(t, out.Len()).Greater(first)
}
