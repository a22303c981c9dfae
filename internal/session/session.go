// Package session owns the per-visitor state of the dashboard: the current
// dataset, the current filter set and a cached view. Each session serializes
// its own interactions; the Store is safe for concurrent use across sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"mediadash/internal/filter"
	"mediadash/internal/metrics"
	"mediadash/internal/narrator"
	"mediadash/internal/schema"
	"mediadash/internal/storage"
	"mediadash/internal/transformer"
)

// ErrNoDataset is returned by operations that need an upload first.
var ErrNoDataset = errors.New("no dataset uploaded")

// Session is one visitor's state.
type Session struct {
	ID string

	opt *Options

	mu          sync.Mutex
	dataset     *schema.Dataset
	fileName    string
	fingerprint uint64
	report      transformer.Report
	filters     filter.Set
	cacheKey    uint64
	cached      *View
	lastSeen    time.Time

	summaries singleflight.Group
}

// Info describes the current upload.
type Info struct {
	FileName    string             `json:"file_name"`
	Fingerprint string             `json:"fingerprint"`
	Report      transformer.Report `json:"report"`
	Present     []schema.Field     `json:"present"`
}

func newSession(opt *Options, now time.Time) *Session {
	return &Session{ID: uuid.NewString(), opt: opt, lastSeen: now}
}

// Upload ingests b and, on success, replaces the session dataset and clears
// the filters. On failure the previous dataset is kept. Every attempt is
// written to the audit log.
func (s *Session) Upload(name string, b []byte) (transformer.Report, error) {
	fp := xxh3.Hash(b)
	ds, rep, err := Ingest(b, s.opt.Ingest)

	audit := storage.Upload{
		SessionID:   s.ID,
		FileName:    name,
		Fingerprint: fmt.Sprintf("%016x", fp),
		SizeBytes:   int64(len(b)),
		RowsRead:    rep.Rows,
	}
	log := logrus.WithFields(logrus.Fields{"session": s.ID, "file": name, "bytes": len(b)})

	if err != nil {
		audit.Outcome, audit.Error = storage.OutcomeRejected, err.Error()
		s.opt.Auditor.Record(audit)
		log.WithError(err).Info("upload rejected")
		return rep, err
	}

	audit.Outcome = storage.OutcomeAccepted
	audit.RowsKept, audit.RowsDropped, audit.EngagementsDefaulted = rep.Kept, rep.DroppedDates, rep.DefaultedEngagements
	s.opt.Auditor.Record(audit)

	s.mu.Lock()
	s.dataset = ds
	s.fileName = name
	s.fingerprint = fp
	s.report = rep
	s.filters = filter.Set{}
	s.cached = nil
	s.mu.Unlock()

	log.WithField("kept", rep.Kept).Info("upload accepted")
	return rep, nil
}

// Info returns the current upload, or ErrNoDataset.
func (s *Session) Info() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset == nil {
		return Info{}, ErrNoDataset
	}
	info := Info{
		FileName:    s.fileName,
		Fingerprint: fmt.Sprintf("%016x", s.fingerprint),
		Report:      s.report,
	}
	for _, f := range schema.Categorical {
		if s.dataset.Has(f) {
			info.Present = append(info.Present, f)
		}
	}
	return info, nil
}

// Filters returns the current filter set.
func (s *Session) Filters() filter.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Apply replaces the filter set and returns the resulting view. Stale
// categorical values are reset in the stored set.
func (s *Session) Apply(set filter.Set) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset == nil {
		return View{}, ErrNoDataset
	}
	v := s.viewLocked(set)
	s.filters = v.applied
	return v, nil
}

// View returns the view for the current filter set.
func (s *Session) View() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset == nil {
		return View{}, ErrNoDataset
	}
	return s.viewLocked(s.filters), nil
}

func (s *Session) viewLocked(set filter.Set) View {
	key := viewKey(s.fingerprint, set)
	if s.cached != nil && s.cacheKey == key {
		return *s.cached
	}
	v := Compute(s.dataset, set)
	s.cacheKey, s.cached = key, &v
	return v
}

// viewKey identifies a view by dataset and canonical filter set.
func viewKey(fp uint64, set filter.Set) uint64 {
	return xxh3.HashString(strconv.FormatUint(fp, 16) + "|" + set.Key())
}

// Summary asks the narrator about the current view. It never fails once a
// dataset exists: narrator problems come back as fallback text with ok
// false. Concurrent requests for the same view share one narrator call; that
// call keeps the deadline of the caller that started it but not its
// cancellation, so one caller going away does not fail the others.
func (s *Session) Summary(ctx context.Context) (text string, ok bool, err error) {
	s.mu.Lock()
	if s.dataset == nil {
		s.mu.Unlock()
		return "", false, ErrNoDataset
	}
	v := s.viewLocked(s.filters)
	key := strconv.FormatUint(s.cacheKey, 16)
	s.mu.Unlock()

	if v.Invalid != "" {
		return narrator.FailurePrefix + v.Invalid, false, nil
	}

	type result struct {
		text string
		ok   bool
	}
	out, _, _ := s.summaries.Do(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		if dl, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithDeadline(callCtx, dl)
			defer cancel()
		}
		start := time.Now()
		text, ok := narrator.Describe(callCtx, s.opt.Narrator, v.Facts)
		var stepErr error
		if !ok {
			stepErr = errors.New(text)
		}
		metrics.RecordStep(metrics.StepSummarize, stepErr, time.Since(start))
		metrics.RecordSummary(s.opt.Provider, ok)
		logrus.WithFields(logrus.Fields{
			"session":  s.ID,
			"provider": s.opt.Provider,
			"ok":       ok,
		}).Info("summary requested")
		return result{text, ok}, nil
	})
	r := out.(result)
	return r.text, r.ok, nil
}
