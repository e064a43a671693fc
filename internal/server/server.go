// Package server is a stand-in for the course webapp: it authenticates
// users, accepts edit changes and grades submissions, so recordings can be
// played back without the real service.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
	"github.com/SmitUplenchwar2687/editplay/internal/recorder"
	"github.com/SmitUplenchwar2687/editplay/internal/remote"
	"github.com/SmitUplenchwar2687/editplay/internal/storage"
)

const (
	maxBodyBytes  = 8 << 20
	submissionTTL = time.Hour
	defaultTTL    = 12 * time.Hour
)

// Options configures a Server. Catalog is required.
type Options struct {
	Addr    string
	Catalog *Catalog
	Storage storage.Storage // defaults to an in-memory store on Clock
	Clock   clock.Clock     // defaults to the real clock
	Logger  *slog.Logger

	// TokenSecret signs session tokens. A random secret is used if empty.
	TokenSecret []byte
	TokenTTL    time.Duration
	// GradeDelay is how long a submission stays pending.
	GradeDelay time.Duration
	// RecordDir, if set, receives every captured session on Shutdown.
	RecordDir string
	// LoginAttempts is how many failed logins a username gets per
	// LoginWindow. Zero means 5; negative disables throttling.
	LoginAttempts int
	LoginWindow   time.Duration
}

// Server is the stub webapp.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	catalog    *Catalog
	store      storage.Storage
	clock      clock.Clock
	logger     *slog.Logger
	tokens     *tokenIssuer
	throttle   *loginThrottle
	hub        *Hub
	metrics    *metrics
	sessions   *sessions
	gradeDelay time.Duration
	recordDir  string
	done       chan struct{}
}

// New creates a server from opts.
func New(opts Options) (*Server, error) {
	if opts.Catalog == nil {
		return nil, errors.New("server: catalog is required")
	}
	if !opts.Catalog.indexed() {
		if err := opts.Catalog.Index(); err != nil {
			return nil, fmt.Errorf("server: catalog: %w", err)
		}
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStorage(opts.Clock)
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTTL
	}
	if len(opts.TokenSecret) == 0 {
		opts.TokenSecret = make([]byte, 32)
		if _, err := rand.Read(opts.TokenSecret); err != nil {
			return nil, fmt.Errorf("server: generating token secret: %w", err)
		}
	}

	hub := NewHub(opts.Logger)
	s := &Server{
		catalog:    opts.Catalog,
		store:      opts.Storage,
		clock:      opts.Clock,
		logger:     opts.Logger,
		tokens:     &tokenIssuer{secret: opts.TokenSecret, ttl: opts.TokenTTL, now: opts.Clock.Now},
		throttle:   newLoginThrottle(opts.Storage, opts.Clock, opts.LoginAttempts, opts.LoginWindow),
		hub:        hub,
		metrics:    newMetrics(hub),
		sessions:   newSessions(),
		gradeDelay: opts.GradeDelay,
		recordDir:  opts.RecordDir,
		done:       make(chan struct{}),
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests(s.logger))
	r.Use(s.metrics.instrument)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler())
	r.Get("/ws", s.hub.HandleWebSocket)
	r.Get("/dashboard", http.RedirectHandler("/dashboard/", http.StatusMovedPermanently).ServeHTTP)
	r.Get("/dashboard/", s.handleDashboard)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Get("/sessions", s.handleSessions)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/courses", s.handleCourses)
			r.Get("/courses/{courseID}/problems", s.handleProblems)
			r.Put("/problem", s.handleSetProblem)
			r.Post("/changes", s.handleChanges)
			r.Post("/submissions", s.handleSubmit)
			r.Get("/submissions/{id}", s.handleSubmissionStatus)
		})
	})
	s.router = r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "editplay",
		"status":  "running",
		"time":    s.clock.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(DashboardHTML))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req remote.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	decision, err := s.throttle.check(r.Context(), req.Username)
	if err != nil {
		s.logger.Error("checking login throttle", "err", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if !decision.Allowed {
		s.metrics.logins.WithLabelValues("throttled").Inc()
		retry := int(math.Ceil(decision.RetryAt.Sub(s.clock.Now()).Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
		writeError(w, http.StatusTooManyRequests, "too many failed logins, try again later")
		return
	}

	id, err := s.catalog.Authenticate(req.Username, req.Password)
	if err != nil {
		s.metrics.logins.WithLabelValues("rejected").Inc()
		if err := s.throttle.fail(r.Context(), req.Username); err != nil {
			s.logger.Warn("counting failed login", "err", err)
		}
		s.logger.Info("login rejected", "username", req.Username, "attempts_left", decision.Remaining-1)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.metrics.logins.WithLabelValues("ok").Inc()
	token, err := s.tokens.issue(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issuing token failed")
		return
	}
	s.logger.Info("login", "username", id.Username, "user_id", id.ID)
	writeJSON(w, http.StatusOK, remote.LoginResponse{Token: token, User: id})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	writeJSON(w, http.StatusOK, s.catalog.CoursesFor(id.ID))
}

func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid course id")
		return
	}
	problems, ok := s.catalog.ProblemsFor(courseID)
	if !ok || !s.catalog.IsRegistered(id.ID, courseID) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	writeJSON(w, http.StatusOK, problems)
}

func activeProblemKey(userID int64) string {
	return storage.Key("user", strconv.FormatInt(userID, 10), "problem")
}

func (s *Server) handleSetProblem(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	var req remote.SetProblemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, ok := s.catalog.Problem(req.ProblemID)
	if !ok {
		writeError(w, http.StatusNotFound, "problem not found")
		return
	}
	if !s.catalog.IsRegistered(id.ID, p.CourseID()) {
		writeError(w, http.StatusForbidden, "not registered in this course")
		return
	}
	if err := storage.SetJSON(r.Context(), s.store, activeProblemKey(id.ID), p.ID, 0); err != nil {
		s.logger.Error("storing active problem", "err", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	s.logger.Info("active problem set", "username", id.Username, "problem", p.Name)
	w.WriteHeader(http.StatusNoContent)
}

// activeProblem returns the caller's active problem, or nil.
func (s *Server) activeProblem(ctx context.Context, userID int64) (*CatalogProblem, error) {
	var problemID int64
	found, err := storage.GetJSON(ctx, s.store, activeProblemKey(userID), &problemID)
	if err != nil || !found {
		return nil, err
	}
	p, _ := s.catalog.Problem(problemID)
	return p, nil
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	var req remote.ChangeBatch
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := s.activeProblem(r.Context(), id.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if p == nil {
		writeError(w, http.StatusConflict, "no active problem")
		return
	}
	for _, c := range req.Changes {
		if c.UserID != 0 && c.UserID != id.ID {
			writeError(w, http.StatusForbidden, "change belongs to another user")
			return
		}
		if c.ProblemID != 0 && c.ProblemID != p.ID {
			writeError(w, http.StatusConflict, "change belongs to another problem")
			return
		}
	}

	sess, created := s.sessions.get(sessionKey{id.ID, p.ID}, id.Username, p.Name)
	if created {
		s.metrics.sessions.Inc()
	}
	if err := sess.rec.Record(req.Changes); err != nil {
		writeError(w, http.StatusInternalServerError, "recording failed")
		return
	}

	uid := strconv.FormatInt(id.ID, 10)
	if _, err := s.store.Increment(r.Context(), storage.Key("user", uid, "changes"), int64(len(req.Changes)), 0); err != nil {
		s.logger.Warn("counting changes", "err", err)
	}
	fullText := 0
	for _, c := range req.Changes {
		s.metrics.changes.WithLabelValues(c.Kind.String()).Inc()
		if c.IsFullText() {
			fullText++
		}
	}
	s.metrics.batches.Inc()

	s.hub.Broadcast(Event{Type: EventBatch, Batch: &recorder.BatchEvent{
		Time:      s.clock.Now(),
		Username:  id.Username,
		UserID:    id.ID,
		ProblemID: p.ID,
		Exercise:  p.Name,
		Changes:   len(req.Changes),
		FullText:  len(req.Changes) == 1 && fullText == 1,
	}})
	s.logger.Debug("changes received", "username", id.Username, "problem", p.Name, "changes", len(req.Changes))
	w.WriteHeader(http.StatusNoContent)
}

// submissionRecord is what the server keeps per submission.
type submissionRecord struct {
	UserID    int64                   `json:"user_id"`
	ProblemID int64                   `json:"problem_id"`
	Username  string                  `json:"username"`
	Exercise  string                  `json:"exercise"`
	ReadyAt   time.Time               `json:"ready_at"`
	Announced bool                    `json:"announced"`
	Result    remote.SubmissionResult `json:"result"`
}

func submissionKey(id string) string {
	return storage.Key("submission", id)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	var req remote.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, ok := s.catalog.Problem(req.ProblemID)
	if !ok {
		writeError(w, http.StatusNotFound, "problem not found")
		return
	}
	if !s.catalog.IsRegistered(id.ID, p.CourseID()) {
		writeError(w, http.StatusForbidden, "not registered in this course")
		return
	}
	now := s.clock.Now()
	if p.QuizEnded(now) {
		writeError(w, http.StatusGone, "quiz has ended")
		return
	}
	active, err := s.activeProblem(r.Context(), id.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if active == nil || active.ID != p.ID {
		writeError(w, http.StatusUnprocessableEntity, "problem is not the active problem")
		return
	}

	rec := submissionRecord{
		UserID:    id.ID,
		ProblemID: p.ID,
		Username:  id.Username,
		Exercise:  p.Name,
		ReadyAt:   now.Add(s.gradeDelay),
		Announced: s.gradeDelay <= 0,
		Result:    grade(p, req.Text),
	}
	rec.Result.SubmissionID = uuid.NewString()
	if err := storage.SetJSON(r.Context(), s.store, submissionKey(rec.Result.SubmissionID), rec, submissionTTL); err != nil {
		s.logger.Error("storing submission", "err", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	uid := strconv.FormatInt(id.ID, 10)
	if _, err := s.store.Increment(r.Context(), storage.Key("user", uid, "submissions"), 1, 0); err != nil {
		s.logger.Warn("counting submissions", "err", err)
	}
	s.metrics.submissions.WithLabelValues(string(rec.Result.Outcome)).Inc()

	s.logger.Info("submission accepted",
		"username", id.Username,
		"problem", p.Name,
		"submission_id", rec.Result.SubmissionID,
		"outcome", rec.Result.Outcome)
	if rec.Announced {
		s.announce(rec.Username, rec.Exercise, rec.Result)
	}
	writeJSON(w, http.StatusAccepted, remote.SubmitResponse{SubmissionID: rec.Result.SubmissionID})
}

func (s *Server) announce(username, exercise string, result remote.SubmissionResult) {
	s.hub.Broadcast(Event{Type: EventSubmission, Submission: &recorder.SubmissionEvent{
		Time:           s.clock.Now(),
		Username:       username,
		Exercise:       exercise,
		SubmissionID:   result.SubmissionID,
		Compiled:       result.Compiled(),
		TestsAttempted: result.TestsAttempted,
		TestsPassed:    result.TestsPassed,
	}})
}

func (s *Server) handleSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	subID := chi.URLParam(r, "id")

	var rec submissionRecord
	found, err := storage.GetJSON(r.Context(), s.store, submissionKey(subID), &rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if !found || rec.UserID != id.ID {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}
	if s.clock.Now().Before(rec.ReadyAt) {
		writeJSON(w, http.StatusAccepted, remote.SubmissionStatus{SubmissionID: subID, Status: "pending"})
		return
	}
	if !rec.Announced {
		// The dashboard learns about a delayed result on its first read.
		rec.Announced = true
		if err := storage.SetJSON(r.Context(), s.store, submissionKey(subID), rec, submissionTTL); err != nil {
			s.logger.Warn("updating submission", "err", err)
		}
		s.announce(rec.Username, rec.Exercise, rec.Result)
	}
	writeJSON(w, http.StatusOK, rec.Result)
}

// SessionInfo describes one captured editing session.
type SessionInfo struct {
	Username string `json:"username"`
	Exercise string `json:"exercise"`
	Changes  int    `json:"changes"`
}

// Sessions lists the captured editing sessions.
func (s *Server) Sessions() []SessionInfo {
	list := s.sessions.list()
	out := make([]SessionInfo, 0, len(list))
	for _, sess := range list {
		out = append(out, SessionInfo{Username: sess.username, Exercise: sess.exercise, Changes: sess.rec.Len()})
	}
	return out
}

// Session returns the changes captured for username on exercise.
func (s *Server) Session(username, exercise string) (*editseq.EditSequence, bool) {
	for _, sess := range s.sessions.list() {
		if sess.username == username && sess.exercise == exercise {
			return sess.rec.Sequence(), true
		}
	}
	return nil, false
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sessions())
}

// ExportSessions writes every captured session to dir.
func (s *Server) ExportSessions(dir string) ([]string, error) {
	return s.sessions.export(dir)
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener serves on ln. Tests use it with an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.logger.Info("editplay server listening", "addr", ln.Addr().String())
	err := s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server, disconnects dashboard clients and, if a
// record directory was configured, exports the captured sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	s.hub.Close()
	err := s.httpServer.Shutdown(ctx)

	if s.recordDir != "" {
		paths, exportErr := s.ExportSessions(s.recordDir)
		for _, p := range paths {
			s.logger.Info("session exported", "path", p)
		}
		err = errors.Join(err, exportErr)
	}
	return err
}
