package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gonogo"
	"github.com/m-mizutani/gonogo/internal/config"
	"github.com/m-mizutani/gonogo/internal/random"
	"github.com/m-mizutani/gonogo/internal/terminal"
	"github.com/m-mizutani/gonogo/record"
	"github.com/m-mizutani/gonogo/record/cs"
	"github.com/m-mizutani/gonogo/record/sqlite"
	"github.com/m-mizutani/gonogo/trace"
	traceLogger "github.com/m-mizutani/gonogo/trace/logger"
	traceOtel "github.com/m-mizutani/gonogo/trace/otel"
	"github.com/m-mizutani/gonogo/triallist"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkTrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/term"
	"google.golang.org/api/option"
)

// defaultQuestions are asked after the last block.
var defaultQuestions = []gonogo.Question{
	{ID: "attention", Text: "How well could you keep your attention on the task?"},
	{ID: "fatigue", Text: "How tired do you feel now?"},
	{ID: "difficulty", Text: "How difficult was it to withhold your response?"},
}

type runOptions struct {
	participant  int
	session      string
	trialsDir    string
	dataDir      string
	sqlitePath   string
	bucket       string
	prefix       string
	credentials  string
	traceDir     string
	otlpEndpoint string
	seed         int64
	logFormat    string
	logLevel     string
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run an experiment session for one participant",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "participant",
				Aliases:  []string{"p"},
				Required: true,
				Sources:  cli.EnvVars("GONOGO_PARTICIPANT"),
				Usage:    "Participant ID; its parity selects the condition",
			},
			&cli.StringFlag{
				Name:    "session",
				Value:   "001",
				Sources: cli.EnvVars("GONOGO_SESSION"),
				Usage:   "Session label stored with the records",
			},
			&cli.StringFlag{
				Name:    "trials-dir",
				Value:   "trials",
				Sources: cli.EnvVars("GONOGO_TRIALS_DIR"),
				Usage:   "Directory holding happy_go and sad_go trial lists",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "data",
				Sources: cli.EnvVars("GONOGO_DATA_DIR"),
				Usage:   "Directory the CSV and JSON records are written to",
			},
			&cli.StringFlag{
				Name:    "sqlite",
				Sources: cli.EnvVars("GONOGO_SQLITE"),
				Usage:   "SQLite database file to store the session in",
			},
			&cli.StringFlag{
				Name:    "bucket",
				Sources: cli.EnvVars("GONOGO_BUCKET"),
				Usage:   "Google Cloud Storage bucket to upload the records to",
			},
			&cli.StringFlag{
				Name:    "prefix",
				Sources: cli.EnvVars("GONOGO_BUCKET_PREFIX"),
				Usage:   "Object prefix inside the bucket",
			},
			&cli.StringFlag{
				Name:    "credentials",
				Sources: cli.EnvVars("GONOGO_CREDENTIALS"),
				Usage:   "Service account key file for Cloud Storage",
			},
			&cli.StringFlag{
				Name:    "trace-dir",
				Sources: cli.EnvVars("GONOGO_TRACE_DIR"),
				Usage:   "Directory the session trace JSON is written to",
			},
			&cli.StringFlag{
				Name:    "otlp-endpoint",
				Sources: cli.EnvVars("GONOGO_OTLP_ENDPOINT"),
				Usage:   "OTLP/HTTP endpoint URL to export trace spans to",
			},
			&cli.Int64Flag{
				Name:    "seed",
				Sources: cli.EnvVars("GONOGO_SEED"),
				Usage:   "Seed for ISI sampling and trial shuffling; 0 picks a random seed",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := runOptions{
				participant:  cmd.Int("participant"),
				session:      cmd.String("session"),
				trialsDir:    cmd.String("trials-dir"),
				dataDir:      cmd.String("data-dir"),
				sqlitePath:   cmd.String("sqlite"),
				bucket:       cmd.String("bucket"),
				prefix:       cmd.String("prefix"),
				credentials:  cmd.String("credentials"),
				traceDir:     cmd.String("trace-dir"),
				otlpEndpoint: cmd.String("otlp-endpoint"),
				seed:         cmd.Int64("seed"),
				logFormat:    cmd.Root().String("log-format"),
				logLevel:     cmd.Root().String("log-level"),
			}
			return runExperiment(ctx, opts)
		},
	}
}

func runExperiment(ctx context.Context, opts runOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	seed := opts.seed
	if seed == 0 {
		if seed, err = random.NewSeed(); err != nil {
			return err
		}
	}

	sessionID := uuid.Must(uuid.NewV7()).String()

	// stderr shares the participant's screen, which is in raw mode for the
	// whole session.
	var console io.Writer = os.Stderr
	if term.IsTerminal(int(os.Stderr.Fd())) {
		console = nil
	}
	logger, closeLog, err := openSessionLog(opts.dataDir, sessionID, opts.logFormat, opts.logLevel, console)
	if err != nil {
		return err
	}
	defer closeLog()

	prev := slog.Default()
	slog.SetDefault(logger)
	defer slog.SetDefault(prev)

	condition := gonogo.Assign(opts.participant)
	logger = logger.With(
		slog.String("session_id", sessionID),
		slog.Int("participant", opts.participant),
	)
	logger.Info("starting session",
		slog.String("condition", condition.String()),
		slog.Int64("seed", seed),
	)

	out, err := openSinks(ctx, opts)
	if err != nil {
		return err
	}
	defer out.close()

	handler, finishTrace, err := newTraceHandler(ctx, opts, out.traces, logger)
	if err != nil {
		return err
	}
	defer finishTrace()

	tty, err := terminal.Open(
		terminal.WithAbortKey(gonogo.Key(cfg.AbortKey)),
		terminal.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := tty.Close(); err != nil {
			logger.Warn("failed to restore terminal", slog.Any("error", err))
		}
	}()

	engine := gonogo.New(tty, tty, append(cfg.EngineOptions(),
		gonogo.WithSeed(seed),
		gonogo.WithLogger(logger),
	)...)

	source := triallist.NewDirSource(opts.trialsDir,
		triallist.WithSeed(uint64(seed)),
		triallist.WithEmotionRule(cfg.EmotionRule().Rule()),
		triallist.WithLogger(logger),
	)

	recorder := record.New(record.Info{
		SessionID:   sessionID,
		Participant: opts.participant,
		Session:     opts.session,
		Condition:   condition,
	}, record.WithRepository(out.record))

	exp := gonogo.NewExperiment(engine, source, recorder, tty,
		gonogo.WithBlocksPerHalf(cfg.BlocksPerHalf),
		gonogo.WithSessionID(sessionID),
		gonogo.WithQuestions(tty, defaultQuestions...),
		gonogo.WithTraceHandler(handler),
		gonogo.WithExperimentLogger(logger),
	)

	err = exp.Run(ctx, gonogo.Participant{ID: opts.participant, Session: opts.session})
	if errors.Is(err, gonogo.ErrUserAbort) {
		logger.Info("session aborted; partial data saved")
		return nil
	}
	return err
}

// openSessionLog writes the session log to <dir>/<session ID>.log and, when
// console is not nil, to console as well.
func openSessionLog(dir, sessionID, format, level string, console io.Writer) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create data directory", goerr.V("dir", dir))
	}
	path := filepath.Join(dir, sessionID+".log")
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to open session log", goerr.V("path", path))
	}

	var w io.Writer = f
	if console != nil {
		w = io.MultiWriter(f, console)
	}
	logger, err := newLogger(w, format, level)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return logger, func() { _ = f.Close() }, nil
}

// sinks are the storage destinations of one session.
type sinks struct {
	record  record.Repository
	traces  []trace.Repository
	closers []func() error
}

func (s *sinks) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Warn("failed to close repository", slog.Any("error", err))
		}
	}
}

// openSinks opens every configured record sink. Traces go to --trace-dir and
// to the traces directory of --bucket.
func openSinks(ctx context.Context, opts runOptions) (*sinks, error) {
	out := &sinks{}
	repos := []record.Repository{
		record.NewCSVRepository(opts.dataDir),
		record.NewJSONRepository(opts.dataDir),
	}
	if opts.traceDir != "" {
		out.traces = append(out.traces, trace.NewFileRepository(opts.traceDir))
	}

	if opts.sqlitePath != "" {
		db, err := sqlite.Open(ctx, opts.sqlitePath)
		if err != nil {
			out.close()
			return nil, err
		}
		out.closers = append(out.closers, db.Close)

		n, err := db.CountTrials(ctx, opts.participant)
		if err != nil {
			out.close()
			return nil, err
		}
		if n > 0 {
			slog.Warn("participant already has recorded trials",
				slog.Int("participant", opts.participant),
				slog.Int("trials", n),
			)
		}
		repos = append(repos, db)
	}

	if opts.bucket != "" {
		csOpts := []cs.Option{cs.WithPrefix(opts.prefix)}
		if opts.credentials != "" {
			csOpts = append(csOpts, cs.WithClientOptions(option.WithCredentialsFile(opts.credentials)))
		}
		bucket, err := cs.New(ctx, opts.bucket, csOpts...)
		if err != nil {
			out.close()
			return nil, err
		}
		out.closers = append(out.closers, bucket.Close)
		repos = append(repos, bucket)
		out.traces = append(out.traces, bucket.Traces())
	}

	out.record = record.Multi(repos...)
	return out, nil
}

// newTraceHandler builds the trace fan-out: slog always, a JSON trace when a
// trace repository is configured and OTLP export with --otlp-endpoint.
func newTraceHandler(ctx context.Context, opts runOptions, repos []trace.Repository, logger *slog.Logger) (trace.Handler, func(), error) {
	handlers := []trace.Handler{
		traceLogger.New(
			traceLogger.WithLogger(logger),
			traceLogger.WithEvents(traceLogger.Session, traceLogger.Block, traceLogger.CustomEvent),
		),
	}
	finish := func() {}

	if len(repos) > 0 {
		handlers = append(handlers, trace.New(
			trace.WithRepository(trace.MultiRepository(repos...)),
			trace.WithMetadata(trace.TraceMetadata{
				Experiment: "emotional-go-nogo",
				Labels:     map[string]string{"session": opts.session},
			}),
		))
	}

	if opts.otlpEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(opts.otlpEndpoint))
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create OTLP exporter", goerr.V("endpoint", opts.otlpEndpoint))
		}
		tp := sdkTrace.NewTracerProvider(sdkTrace.WithBatcher(exporter))
		handlers = append(handlers, traceOtel.New(traceOtel.WithTracerProvider(tp)))
		finish = func() {
			if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to shut down tracer provider", slog.Any("error", err))
			}
		}
	}

	return trace.Multi(handlers...), finish, nil
}
