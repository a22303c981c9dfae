package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mediadash/internal/webui"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, failed := lint(c.cfg); failed {
				return fmt.Errorf("configuration is invalid")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newContainer(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			s := c.cfg.Server
			go app.store.Janitor(ctx, janitorInterval(s.SessionTTL))

			srv := webui.NewServer(webui.Config{
				Addr:           s.Addr,
				ReadTimeout:    s.ReadTimeout,
				WriteTimeout:   s.WriteTimeout,
				CookieName:     s.CookieName,
				SecureCookie:   s.SecureCookie,
				MaxUploadBytes: c.cfg.Upload.MaxBytes,
				SummaryTimeout: c.cfg.Narrator.Timeout,
				Metrics:        app.metricsHandler,
			}, app.store)
			err = srv.Run(ctx)
			logrus.Info("dashboard stopped")
			return err
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = c.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// janitorInterval sweeps a few times per TTL, at most once a minute.
func janitorInterval(ttl time.Duration) time.Duration {
	d := ttl / 4
	if d > time.Minute || d <= 0 {
		d = time.Minute
	}
	return d
}
