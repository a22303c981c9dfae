package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"mediadash/internal/config"
	"mediadash/internal/metrics"
	"mediadash/internal/metrics/datadog"
	"mediadash/internal/metrics/prom"
	"mediadash/internal/narrator"
	"mediadash/internal/parser/csv"
	"mediadash/internal/session"
	"mediadash/internal/storage"
	"mediadash/internal/transformer"

	// register all audit backends with the storage factory; config picks one.
	_ "mediadash/internal/storage/all"
)

// container holds the process-wide dependencies built from configuration.
// The CLI layer only talks to it and never imports drivers directly.
type container struct {
	cfg   config.Dashboard
	store *session.Store

	// metricsHandler is non-nil for the prometheus backend.
	metricsHandler http.Handler

	closers []func() error
}

func newContainer(ctx context.Context, cfg config.Dashboard) (*container, error) {
	c := &container{cfg: cfg}

	ingest, err := ingestOptions(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.setupMetrics(); err != nil {
		return nil, err
	}
	auditor, err := c.setupAudit(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	n, err := narrator.New(narratorConfig(cfg.Narrator))
	if err != nil {
		c.Close()
		return nil, err
	}

	c.store = session.NewStore(session.Options{
		Ingest:   ingest,
		Narrator: n,
		Provider: strings.ToLower(cfg.Narrator.Provider),
		Auditor:  auditor,
		TTL:      cfg.Server.SessionTTL,
	})
	return c, nil
}

// Close releases resources in reverse order of acquisition.
func (c *container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logrus.WithError(err).Warn("shutdown")
		}
	}
	c.closers = nil
}

func ingestOptions(cfg config.Dashboard) (session.IngestOptions, error) {
	order, err := transformer.ParseDateOrder(cfg.Clean.DateOrder)
	if err != nil {
		return session.IngestOptions{}, err
	}
	return session.IngestOptions{
		Parse: csv.Options{
			Comma:      csv.DecodeDelimiter(cfg.Upload.Delimiter),
			LazyQuotes: cfg.Upload.LazyQuotes,
		},
		Clean: transformer.Options{DateOrder: order},
	}, nil
}

func narratorConfig(n config.Narrator) narrator.Config {
	return narrator.Config{
		Provider:  n.Provider,
		APIKey:    n.APIKey,
		BaseURL:   n.BaseURL,
		Model:     n.Model,
		MaxTokens: n.MaxTokens,
		Timeout:   n.Timeout,
		Headers:   n.Options.StringMap("headers"),
	}
}

func (c *container) setupMetrics() error {
	m := c.cfg.Metrics
	switch strings.ToLower(m.Backend) {
	case "", "none":
		logrus.Debug("metrics: disabled")
		return nil

	case "prometheus":
		b, err := prom.NewBackend(m.Job, m.PushGateway)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		c.metricsHandler = b.Handler()

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  m.Namespace,
			GlobalTags: m.Tags,
		})
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		c.closers = append(c.closers, b.Close)

	default:
		return fmt.Errorf("metrics: unknown backend %q", m.Backend)
	}

	c.closers = append(c.closers, metrics.Flush)
	logrus.WithFields(logrus.Fields{"backend": m.Backend, "job": m.Job}).Info("metrics enabled")
	return nil
}

func (c *container) setupAudit(ctx context.Context) (*storage.Auditor, error) {
	a := c.cfg.Audit
	kind := strings.ToLower(a.Kind)
	if kind == "" || kind == storage.KindNone {
		return nil, nil
	}

	repo, err := storage.New(ctx, storage.Config{Kind: kind, DSN: a.DSN, Table: a.Table})
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	if a.AutoCreateTable {
		if err := storage.EnsureTable(ctx, kind, repo, a.Table); err != nil {
			repo.Close()
			return nil, fmt.Errorf("audit: create table: %w", err)
		}
	}

	// The writer outlives request contexts; Close drains it.
	auditor := storage.NewAuditor(context.WithoutCancel(ctx), repo, storage.AuditorOptions{})
	c.closers = append(c.closers,
		func() error { repo.Close(); return nil },
		auditor.Close,
	)
	logrus.WithFields(logrus.Fields{"kind": kind, "table": a.Table}).Info("upload audit enabled")
	return auditor, nil
}
