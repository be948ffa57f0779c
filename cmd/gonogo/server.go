package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed static
var staticFiles embed.FS

type serverOption func(*server)

func withAddr(addr string) serverOption {
	return func(s *server) {
		s.addr = addr
	}
}

func withSource(src traceSource) serverOption {
	return func(s *server) {
		s.source = src
	}
}

func withNoBrowser() serverOption {
	return func(s *server) {
		s.noBrowser = true
	}
}

type server struct {
	addr      string
	source    traceSource
	noBrowser bool
	mux       *http.ServeMux
}

func newServer(opts ...serverOption) *server {
	s := &server{
		addr: "127.0.0.1:18900",
		mux:  http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/traces", s.handleListTraces)
	s.mux.HandleFunc("GET /api/traces/{id}", s.handleGetTrace)
	s.mux.HandleFunc("GET /api/traces/{id}/summary", s.handleGetSummary)

	s.mux.Handle("GET /", s.staticHandler())
}

func (s *server) staticHandler() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		slog.Error("failed to create sub filesystem for static", slog.Any("error", err))
		return http.NotFoundHandler()
	}
	return http.FileServer(http.FS(sub))
}

func (s *server) handler() http.Handler {
	return s.mux
}

func (s *server) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return goerr.Wrap(err, "failed to listen", goerr.V("addr", s.addr))
	}

	url := "http://" + listener.Addr().String()
	slog.Info("starting session viewer", slog.String("url", url))

	if !s.noBrowser {
		openBrowser(url)
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return goerr.Wrap(err, "server error")
	}

	return nil
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	if err := cmd.Start(); err != nil {
		slog.Warn("failed to open browser", slog.Any("error", err))
	}
}
