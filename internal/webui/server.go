// Package webui serves the dashboard: an HTML page for the browser and a
// small JSON API over the same session operations.
//
// Routes:
//
//	GET  /             → dashboard page for the caller's session
//	POST /upload       → multipart CSV upload; replaces the dataset on success
//	POST /filters      → apply the filter form
//	POST /summary      → ask the narrator about the current view
//	GET  /api/view     → current view as JSON
//	POST /api/upload   → upload, JSON response
//	POST /api/filters  → apply filters from query/form params, JSON response
//	POST /api/summary  → summary as JSON
//	GET  /healthz      → liveness
//	GET  /metrics      → scrape handler, when configured
package webui

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"mediadash/internal/filter"
	"mediadash/internal/parser/csv"
	"mediadash/internal/session"
	"mediadash/internal/transformer"
)

// uploadField is the multipart field carrying the CSV file.
const uploadField = "file"

// Config controls server startup.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// CookieName holds the session ID.
	CookieName   string
	SecureCookie bool

	// MaxUploadBytes caps the request body of an upload; zero means no cap.
	MaxUploadBytes int64

	// SummaryTimeout bounds one narrator call; zero means the request
	// context alone.
	SummaryTimeout time.Duration

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
}

// Server routes dashboard requests to sessions of a Store.
type Server struct {
	cfg    Config
	store  *session.Store
	router chi.Router
	tmpl   *template.Template
}

// NewServer constructs a Server with routes and embedded template.
func NewServer(cfg Config, store *session.Store) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "mediadash_session"
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		router: chi.NewRouter(),
		tmpl:   template.Must(template.New("index").Funcs(funcs).Parse(indexHTML)),
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logrus.WithField("addr", s.cfg.Addr).Info("dashboard listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Post("/upload", s.handleUpload)
		r.Post("/filters", s.handleFilters)
		r.Post("/summary", s.handleSummary)

		r.Route("/api", func(r chi.Router) {
			r.Get("/view", s.handleAPIView)
			r.Post("/upload", s.handleAPIUpload)
			r.Post("/filters", s.handleAPIFilters)
			r.Post("/summary", s.handleAPISummary)
		})
	})
}

// page is the template data of the dashboard.
type page struct {
	Info    *session.Info
	View    *session.View
	Error   string
	Summary *summary
}

type summary struct {
	Text string `json:"text"`
	OK   bool   `json:"ok"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, page{})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if code, err := s.upload(w, r); err != nil {
		s.render(w, r, code, page{Error: err.Error()})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, page{Error: "bad form: " + err.Error()})
		return
	}
	v, code, err := s.applyFilters(r)
	if err != nil {
		s.render(w, r, code, page{Error: err.Error()})
		return
	}
	s.render(w, r, viewStatus(v), page{})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.summarize(r)
	if err != nil {
		s.render(w, r, statusOf(err), page{Error: err.Error()})
		return
	}
	s.render(w, r, http.StatusOK, page{Summary: sum})
}

func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	v, err := sessionFrom(r).View()
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, viewStatus(v), v)
}

func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	if code, err := s.upload(w, r); err != nil {
		writeError(w, code, err)
		return
	}
	info, err := sessionFrom(r).Info()
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleAPIFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, code, err := s.applyFilters(r)
	if err != nil {
		writeError(w, code, err)
		return
	}
	writeJSON(w, viewStatus(v), v)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.summarize(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// upload reads the multipart file and hands it to the session. The returned
// status is meaningful only with a non-nil error.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) (int, error) {
	if s.cfg.MaxUploadBytes > 0 {
		if r.ContentLength > s.cfg.MaxUploadBytes {
			return http.StatusRequestEntityTooLarge, errors.New("upload exceeds the size limit")
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	f, hdr, err := r.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return http.StatusRequestEntityTooLarge, errors.New("upload exceeds the size limit")
		}
		return http.StatusBadRequest, errors.New("choose a CSV file to upload")
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return http.StatusRequestEntityTooLarge, errors.New("upload exceeds the size limit")
		}
		return http.StatusBadRequest, err
	}
	if _, err := sessionFrom(r).Upload(hdr.Filename, b); err != nil {
		return statusOf(err), err
	}
	return http.StatusOK, nil
}

func (s *Server) applyFilters(r *http.Request) (session.View, int, error) {
	set, err := filter.FromParams(r.Form.Get)
	if err != nil {
		return session.View{}, statusOf(err), err
	}
	v, err := sessionFrom(r).Apply(set)
	if err != nil {
		return session.View{}, statusOf(err), err
	}
	return v, http.StatusOK, nil
}

// viewStatus is 422 for a view held back by a filter validation error. The
// body still carries the controls and bounds.
func viewStatus(v session.View) int {
	if v.Invalid != "" {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

func (s *Server) summarize(r *http.Request) (*summary, error) {
	ctx := r.Context()
	if s.cfg.SummaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SummaryTimeout)
		defer cancel()
	}
	text, ok, err := sessionFrom(r).Summary(ctx)
	if err != nil {
		return nil, err
	}
	return &summary{Text: text, OK: ok}, nil
}

// render fills in the session state and executes the page template.
func (s *Server) render(w http.ResponseWriter, r *http.Request, code int, p page) {
	sess := sessionFrom(r)
	if info, err := sess.Info(); err == nil {
		p.Info = &info
		if v, err := sess.View(); err == nil {
			p.View = &v
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := s.tmpl.Execute(w, p); err != nil {
		logrus.WithError(err).Error("template error")
	}
}

// statusOf maps pipeline errors onto HTTP status codes.
func statusOf(err error) int {
	var (
		pe *csv.ParseError
		se *transformer.SchemaError
		ve *filter.ValidationError
	)
	switch {
	case errors.As(err, &pe), errors.As(err, &se), errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoDataset):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// indexHTML is the embedded dashboard page.
//
//go:embed index.tmpl.html
var indexHTML string
