package main

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "Serve recorded session traces with per-block summaries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   "127.0.0.1:18900",
				Sources: cli.EnvVars("GONOGO_VIEW_ADDR"),
				Usage:   "Server listen address",
			},
			&cli.StringFlag{
				Name:    "dir",
				Sources: cli.EnvVars("GONOGO_VIEW_DIR"),
				Usage:   "Local directory containing trace JSON files",
			},
			&cli.StringFlag{
				Name:    "gs",
				Sources: cli.EnvVars("GONOGO_VIEW_GS"),
				Usage:   "Cloud Storage location of traces, e.g. gs://bucket/study-1/traces/",
			},
			&cli.StringFlag{
				Name:    "credentials",
				Sources: cli.EnvVars("GONOGO_CREDENTIALS"),
				Usage:   "Service account key file for Cloud Storage",
			},
			&cli.BoolFlag{
				Name:    "no-browser",
				Sources: cli.EnvVars("GONOGO_VIEW_NO_BROWSER"),
				Usage:   "Do not open browser automatically",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			src, err := newViewSource(ctx, cmd.String("dir"), cmd.String("gs"), cmd.String("credentials"))
			if err != nil {
				return err
			}

			opts := []serverOption{
				withAddr(cmd.String("addr")),
				withSource(src),
			}
			if cmd.Bool("no-browser") {
				opts = append(opts, withNoBrowser())
			}

			return newServer(opts...).start(ctx)
		},
	}
}

func newViewSource(ctx context.Context, dir, gsURI, credentials string) (traceSource, error) {
	switch {
	case dir == "" && gsURI == "":
		return nil, goerr.New("either --dir or --gs must be specified")
	case dir != "" && gsURI != "":
		return nil, goerr.New("--dir and --gs are mutually exclusive")
	case dir != "":
		return newLocalSource(dir), nil
	}

	bucket, prefix, err := parseGSURI(gsURI)
	if err != nil {
		return nil, err
	}
	var opts []option.ClientOption
	if credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	return newCSSource(ctx, bucket, prefix, opts...)
}
