// Package terminal runs the task in a text terminal: it implements the
// Display, Input, Prompter and Rater collaborators of the trial engine on top
// of a raw-mode keyboard and ANSI screen updates.
package terminal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo"
	"golang.org/x/term"
)

const (
	clearScreen = "\x1b[2J\x1b[H"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

type event struct {
	key gonogo.Key
	at  time.Time
}

// Terminal is a keyboard queue and a screen. Key presses are timestamped by a
// reader goroutine as soon as they arrive, so Poll reports when a key was
// pressed rather than when it was polled.
type Terminal struct {
	in  io.Reader
	out io.Writer

	abortKey gonogo.Key
	logger   *slog.Logger

	mu     sync.Mutex
	queue  []event
	notify chan struct{}
	done   chan struct{}

	staged    string
	presented string

	restore func() error
}

var (
	_ gonogo.Display  = (*Terminal)(nil)
	_ gonogo.Input    = (*Terminal)(nil)
	_ gonogo.Prompter = (*Terminal)(nil)
	_ gonogo.Rater    = (*Terminal)(nil)
)

// Option configures a Terminal.
type Option func(*Terminal)

// WithAbortKey sets the key that aborts a prompt. Default is escape.
func WithAbortKey(key gonogo.Key) Option {
	return func(t *Terminal) {
		t.abortKey = key
	}
}

// WithLogger sets the logger. Default is discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Terminal) {
		t.logger = logger
	}
}

// Open puts stdin into raw mode and starts reading keys from it. Close must
// be called to restore the terminal.
func Open(opts ...Option) (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, goerr.New("stdin is not a terminal")
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to enable raw mode")
	}

	t := New(os.Stdin, os.Stdout, opts...)
	t.restore = func() error {
		return term.Restore(fd, state)
	}
	t.write(hideCursor)
	return t, nil
}

// New creates a Terminal reading keys from in and drawing to out. It does not
// change any terminal mode.
func New(in io.Reader, out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		in:       in,
		out:      out,
		abortKey: gonogo.KeyEscape,
		logger:   slog.New(slog.DiscardHandler),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	go t.readLoop()
	return t
}

// Close clears the screen and restores the terminal mode.
func (t *Terminal) Close() error {
	t.write(clearScreen + showCursor)
	if t.restore != nil {
		if err := t.restore(); err != nil {
			return goerr.Wrap(err, "failed to restore terminal")
		}
	}
	return nil
}

func (t *Terminal) readLoop() {
	defer close(t.done)

	buf := make([]byte, 64)
	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			now := time.Now()
			t.mu.Lock()
			for _, key := range keysOf(buf[:n]) {
				t.queue = append(t.queue, event{key: key, at: now})
			}
			t.mu.Unlock()

			select {
			case t.notify <- struct{}{}:
			default:
			}
		}
		if err != nil {
			if err != io.EOF {
				t.logger.Warn("keyboard read failed", "error", err)
			}
			return
		}
	}
}

// keysOf splits one read into keys. Arrow and function keys arrive as CSI
// (ESC [ ... final) or SS3 (ESC O x) sequences within a single read; they are
// dropped so that only a lone ESC counts as escape.
func keysOf(buf []byte) []gonogo.Key {
	var keys []gonogo.Key
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b == 0x1b && i+1 < len(buf) {
			switch buf[i+1] {
			case '[':
				i += 2
				// Parameter and intermediate bytes run until the final byte.
				for i < len(buf) && (buf[i] < 0x40 || buf[i] > 0x7e) {
					i++
				}
				continue
			case 'O':
				i += 2
				continue
			}
		}
		if key, ok := keyOf(b); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// keyOf maps a raw input byte to a key name. Ctrl-C counts as escape so the
// participant can always abort.
func keyOf(b byte) (gonogo.Key, bool) {
	switch {
	case b == ' ':
		return gonogo.KeySpace, true
	case b == 0x1b || b == 0x03:
		return gonogo.KeyEscape, true
	case b == '\r' || b == '\n':
		return "enter", true
	case 'A' <= b && b <= 'Z':
		return gonogo.Key(string(b + ('a' - 'A'))), true
	case 'a' <= b && b <= 'z', '0' <= b && b <= '9':
		return gonogo.Key(string(b)), true
	}
	return "", false
}

func (t *Terminal) drain() []event {
	t.mu.Lock()
	defer t.mu.Unlock()
	events := t.queue
	t.queue = nil
	return events
}

// Poll implements gonogo.Input.
func (t *Terminal) Poll(origin time.Time) []gonogo.KeyEvent {
	events := t.drain()
	if len(events) == 0 {
		return nil
	}
	keys := make([]gonogo.KeyEvent, 0, len(events))
	for _, ev := range events {
		keys = append(keys, gonogo.KeyEvent{Key: ev.key, At: ev.at.Sub(origin)})
	}
	return keys
}

// Prepare implements gonogo.Display. The image must exist on disk.
func (t *Terminal) Prepare(ctx context.Context, image string) error {
	info, err := os.Stat(image)
	if err != nil {
		return goerr.Wrap(gonogo.ErrMissingAsset, "cannot open image", goerr.V("image", image), goerr.V("cause", err.Error()))
	}
	if info.IsDir() {
		return goerr.Wrap(gonogo.ErrMissingAsset, "image is a directory", goerr.V("image", image))
	}
	return nil
}

// RenderStimulus implements gonogo.Display.
func (t *Terminal) RenderStimulus(image string) {
	t.staged = frame("[ " + filepath.Base(image) + " ]")
}

// RenderBlank implements gonogo.Display.
func (t *Terminal) RenderBlank() {
	t.staged = frame("+")
}

// RenderFeedback implements gonogo.Display.
func (t *Terminal) RenderFeedback(msg string) {
	t.staged = frame(msg)
}

// Present implements gonogo.Display. The screen is only rewritten when the
// staged frame differs from the one on screen.
func (t *Terminal) Present() error {
	if t.staged == t.presented {
		return nil
	}
	if _, err := io.WriteString(t.out, t.staged); err != nil {
		return goerr.Wrap(err, "failed to draw frame")
	}
	t.presented = t.staged
	return nil
}

func frame(center string) string {
	return clearScreen + "\r\n\r\n\r\n\t\t" + center + "\r\n"
}

func (t *Terminal) write(s string) {
	if _, err := io.WriteString(t.out, s); err != nil {
		t.logger.Warn("failed to write to terminal", "error", err)
	}
}

func (t *Terminal) showText(text string) {
	t.presented = ""
	t.write(clearScreen + strings.ReplaceAll(text, "\n", "\r\n") + "\r\n")
}

// waitKey blocks until one of keys is pressed. The abort key ends the wait
// with gonogo.ErrUserAbort.
func (t *Terminal) waitKey(ctx context.Context, keys ...gonogo.Key) (gonogo.Key, error) {
	for {
		for _, ev := range t.drain() {
			if ev.key == t.abortKey {
				return "", goerr.Wrap(gonogo.ErrUserAbort, "abort key pressed while waiting")
			}
			for _, k := range keys {
				if ev.key == k {
					return k, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return "", goerr.Wrap(gonogo.ErrUserAbort, "interrupted while waiting", goerr.V("cause", ctx.Err().Error()))
		case <-t.done:
			// Input closed: anything still queued is handled, then give up.
			for _, ev := range t.drain() {
				for _, k := range keys {
					if ev.key == k {
						return k, nil
					}
				}
			}
			return "", goerr.Wrap(gonogo.ErrUserAbort, "keyboard input closed")
		case <-t.notify:
		}
	}
}

// Show implements gonogo.Prompter.
func (t *Terminal) Show(ctx context.Context, screen gonogo.Screen) error {
	text := screen.Text
	if len(screen.Examples) > 0 {
		var b strings.Builder
		b.WriteString(text)
		b.WriteString("\n")
		for _, caption := range slices.Sorted(maps.Keys(screen.Examples)) {
			fmt.Fprintf(&b, "\n%s: %s", caption, filepath.Base(screen.Examples[caption]))
		}
		text = b.String()
	}

	// Keys pressed before the screen appeared do not count.
	t.drain()
	t.showText(text)

	_, err := t.waitKey(ctx, gonogo.KeyContinue)
	return err
}

// Rate implements gonogo.Rater. The participant presses a digit on the
// rating scale.
func (t *Terminal) Rate(ctx context.Context, q gonogo.Question) (int, error) {
	var keys []gonogo.Key
	var scale []string
	for v := gonogo.RatingMin; v <= gonogo.RatingMax; v++ {
		keys = append(keys, gonogo.Key(strconv.Itoa(v)))
		scale = append(scale, strconv.Itoa(v))
	}

	t.drain()
	t.showText(q.Text + "\n\n" + strings.Join(scale, "   "))

	key, err := t.waitKey(ctx, keys...)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(string(key))
	if err != nil {
		return 0, goerr.Wrap(err, "unexpected rating key", goerr.V("key", key))
	}
	return v, nil
}
