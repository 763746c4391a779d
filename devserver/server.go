// Package devserver is an in-memory fake of the planning-query service for
// local development and end-to-end tests.
//
// Each query reports Preprocessing on its first status check, Working for a
// configurable number of checks, then Done. Queries whose message contains
// "fail" end Failed instead. Artifacts are only served for Done queries.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pithecene-io/plandesk/dialog"
	"github.com/pithecene-io/plandesk/log"
	"github.com/pithecene-io/plandesk/types"
)

// DefaultWorkingPolls is the number of Working answers before completion.
const DefaultWorkingPolls = 3

// Config configures the fake service.
type Config struct {
	// Token, when set, is required as a bearer token on every request.
	Token string
	// WorkingPolls is the number of Working status answers (default 3).
	WorkingPolls int
	// Logger logs requests (default discards).
	Logger *log.Logger
}

type query struct {
	id      string
	message string
	checks  int
	status  types.QueryStatus
}

type session struct {
	id      string
	turns   []types.Turn
	queries map[string]*query
}

// Server is the fake service state. It is safe for concurrent use.
type Server struct {
	cfg    Config
	logger *log.Logger

	mu       sync.Mutex
	seq      int
	sessions map[string]*session
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.WorkingPolls <= 0 {
		cfg.WorkingPolls = DefaultWorkingPolls
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Server{cfg: cfg, logger: cfg.Logger, sessions: make(map[string]*session)}
}

// Handler returns the HTTP handler serving /api/Chat/*.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(s.logRequests)
	r.Use(s.requireToken)

	r.Post("/api/Chat", s.submit)
	r.Get("/api/Chat/QueryStatus", s.status)
	r.Get("/api/Chat/Dialog", s.dialog)
	r.Get("/api/Chat/RetirementCalculatorInputs", s.inputs)
	r.Get("/api/Chat/Chart", s.chart)
	r.Get("/api/Chat/FlowsTable", s.flowsTable)
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("devserver listening", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("devserver shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type submitBody struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[body.SessionID]
	if body.SessionID != "" && !ok {
		s.mu.Unlock()
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if !ok {
		s.seq++
		sess = &session{id: fmt.Sprintf("session-%d", s.seq), queries: make(map[string]*query)}
		s.sessions[sess.id] = sess
	}
	s.seq++
	q := &query{id: fmt.Sprintf("query-%d", s.seq), message: body.Message}
	sess.queries[q.id] = q
	sess.turns = append(sess.turns, types.Turn{Speaker: types.SpeakerUser, Text: body.Message})
	s.mu.Unlock()

	writeJSON(w, map[string]string{
		"chatSessionId": sess.id,
		"chatQueryId":   q.id,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, q, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.advance(sess, q)
	_, _ = fmt.Fprint(w, string(q.status))
}

// advance moves q one status check forward. Called with s.mu held.
func (s *Server) advance(sess *session, q *query) {
	if q.status.IsTerminal() {
		return
	}
	q.checks++
	switch {
	case q.checks == 1:
		q.status = types.StatusPreprocessing
	case q.checks <= s.cfg.WorkingPolls+1:
		q.status = types.StatusWorking
	case strings.Contains(strings.ToLower(q.message), "fail"):
		q.status = types.StatusFailed
	default:
		q.status = types.StatusDone
		sess.turns = append(sess.turns, types.Turn{Speaker: types.SpeakerAgent, Text: answer(q.message)})
	}
}

func answer(message string) string {
	return fmt.Sprintf("Here is your plan for %q. Your savings last through age 95 in the median scenario.", message)
}

func (s *Server) dialog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sess, ok := s.sessions[r.URL.Query().Get("sessionId")]
	var raw string
	if ok {
		raw = dialog.Format(sess.turns)
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprint(w, raw)
}

func (s *Server) inputs(w http.ResponseWriter, r *http.Request) {
	if !s.done(w, r) {
		return
	}
	writeJSON(w, SampleInputs())
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	if !s.done(w, r) {
		return
	}
	kind := types.ChartKind(r.URL.Query().Get("chartType"))
	data, err := RenderChart(kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func (s *Server) flowsTable(w http.ResponseWriter, r *http.Request) {
	if !s.done(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, flowsTableHTML)
}

// done writes 404 unless the addressed query is Done.
func (s *Server) done(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, q, ok := s.lookup(w, r)
	if !ok {
		return false
	}
	if q.status != types.StatusDone {
		http.Error(w, "results not available", http.StatusNotFound)
		return false
	}
	return true
}

// lookup resolves sessionId and queryId. Called with s.mu held.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session, *query, bool) {
	sess, ok := s.sessions[r.URL.Query().Get("sessionId")]
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return nil, nil, false
	}
	q, ok := sess.queries[r.URL.Query().Get("queryId")]
	if !ok {
		http.Error(w, "unknown query", http.StatusNotFound)
		return nil, nil, false
	}
	return sess, q, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

const flowsTableHTML = `<table>
<tr><th>Year</th><th>Income</th><th>Spending</th><th>Balance</th></tr>
<tr><td>2027</td><td>48000</td><td>52000</td><td>610000</td></tr>
<tr><td>2028</td><td>48960</td><td>53040</td><td>633500</td></tr>
</table>
`
