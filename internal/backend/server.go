/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	applog "pagebuilder/internal/log"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/version"
)

const (
	devSecret    = "dev-secret-change-me"
	maxBodyBytes = 4 << 20
	maxTokenTTL  = 24 * time.Hour
)

// Server serves the publish API over a Pages store.
type Server struct {
	pages  Pages
	ready  func(ctx context.Context) error
	secret string
	log    *slog.Logger
	now    func() time.Time
}

// NewServer builds a server. ready backs /readyz; nil means always ready.
// An empty secret falls back to an insecure development key.
func NewServer(pages Pages, secret string, ready func(ctx context.Context) error) *Server {
	l := applog.WithComponent("backend")
	if secret == "" {
		secret = devSecret
		l.Warn("PB_AUTH_SECRET not set; using insecure dev secret")
	}
	return &Server{pages: pages, ready: ready, secret: secret, log: l, now: time.Now}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})
	mux.HandleFunc("POST /api/auth/token", s.handleToken)
	mux.HandleFunc("GET /api/pages", s.withAuth(s.handleList))
	mux.HandleFunc("GET /api/pages/{id}", s.withAuth(s.handleGet))
	mux.HandleFunc("PUT /api/pages/{id}", s.withAuth(s.handlePut))
	mux.HandleFunc("GET /api/pages/{id}/versions", s.withAuth(s.handleVersions))
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleToken issues a bearer token. Optional JSON body:
// { "subject": "name", "ttl_seconds": 3600 }
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "dev"
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 || ttl > maxTokenTTL {
		ttl = time.Hour
	}
	exp := s.now().Add(ttl)
	tok, err := signToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: tok, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, _ string) {
	list, err := s.pages.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, _ string) {
	rec, err := s.pages.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(rec.Version, 10)))
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request, _ string) {
	list, err := s.pages.Versions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handlePut validates the body as a page manifest, repairs it and stores it
// as the next version. If-Match carries the expected current version.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, sub string) {
	id := r.PathValue("id")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("page larger than %d bytes", maxBodyBytes))
		return
	}
	doc, err := storage.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if doc.ID == "" {
		doc.ID = id
	}
	if doc.ID != id {
		writeError(w, http.StatusBadRequest, fmt.Errorf("page id %q does not match path %q", doc.ID, id))
		return
	}
	var ifVersion int64
	if v := strings.Trim(r.Header.Get("If-Match"), `" `); v != "" {
		if ifVersion, err = strconv.ParseInt(v, 10, 64); err != nil || ifVersion <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid If-Match %q", v))
			return
		}
	}
	rec, err := s.pages.Put(r.Context(), doc, ifVersion, sub)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("page published", slog.String("page", rec.ID), slog.Int64("version", rec.Version), slog.String("by", sub))
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(rec.Version, 10)))
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err)
	default:
		s.log.Error("request failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

// Start opens the database, applies migrations and serves until ctx is
// cancelled, then shuts down gracefully. Empty DSN and Addr take the
// defaults; environment overrides are the caller's job (ConfigFromEnv).
func Start(ctx context.Context, cfg Config) (err error) {
	if cfg.DSN == "" {
		cfg.DSN = DefaultDSN
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	db, err := OpenDB(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()
	return serve(ctx, cfg.Addr, NewServer(NewPGPages(db), cfg.Secret, db.PingContext))
}

// StartMemory serves from an in-memory store that is lost on exit.
func StartMemory(ctx context.Context, cfg Config) error {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return serve(ctx, cfg.Addr, NewServer(NewMemPages(), cfg.Secret, nil))
}

func serve(ctx context.Context, addr string, s *Server) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("pagebuilder backend listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
