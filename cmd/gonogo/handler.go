package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/m-mizutani/gonogo/trace"
)

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type listTracesResponse struct {
	Traces        []traceSummary `json:"traces"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func (s *server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	pageSize := defaultPageSize
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid page_size parameter")
			return
		}
		pageSize = n
	}

	resp, err := s.source.List(r.Context(), listRequest{
		pageSize:  pageSize,
		pageToken: r.URL.Query().Get("page_token"),
	})
	if err != nil {
		slog.Error("failed to list traces", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list traces")
		return
	}

	traces := resp.traces
	if traces == nil {
		traces = []traceSummary{}
	}

	writeJSON(w, http.StatusOK, listTracesResponse{
		Traces:        traces,
		NextPageToken: resp.nextPageToken,
	})
}

func (s *server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTrace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTrace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summarize(t))
}

func (s *server) loadTrace(w http.ResponseWriter, r *http.Request) (*trace.Trace, bool) {
	traceID := r.PathValue("id")
	if traceID == "" {
		writeError(w, http.StatusBadRequest, "trace ID is required")
		return nil, false
	}

	t, err := s.source.Get(r.Context(), traceID)
	switch {
	case errors.Is(err, errTraceNotFound):
		writeError(w, http.StatusNotFound, "trace not found")
		return nil, false
	case err != nil:
		slog.Error("failed to get trace", slog.Any("error", err), slog.String("trace_id", traceID))
		writeError(w, http.StatusInternalServerError, "failed to get trace")
		return nil, false
	}
	return t, true
}
