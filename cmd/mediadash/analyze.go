package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediadash/internal/datasource"
	"mediadash/internal/datasource/file"
	"mediadash/internal/datasource/httpds"
	"mediadash/internal/filter"
	"mediadash/internal/schema"
	"mediadash/internal/session"
)

// analysis is the JSON document printed by analyze.
type analysis struct {
	File    string          `json:"file"`
	Info    session.Info    `json:"upload"`
	View    session.View    `json:"view"`
	Summary *analyzeSummary `json:"summary,omitempty"`
}

type analyzeSummary struct {
	Text string `json:"text"`
	OK   bool   `json:"ok"`
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		params    = make(map[string]*string)
		summarize bool
		retries   int
	)

	cmd := &cobra.Command{
		Use:   "analyze <file.csv|url>",
		Short: "Ingest one CSV, apply filters and print the views as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newContainer(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			src := source(args[0], retries)
			b, err := datasource.ReadAll(ctx, src, c.cfg.Upload.MaxBytes)
			if err != nil {
				return err
			}

			sess := app.store.Create()
			if _, err := sess.Upload(src.Name(), b); err != nil {
				return err
			}
			set, err := filter.FromParams(func(k string) string {
				if p, ok := params[k]; ok {
					return *p
				}
				return ""
			})
			if err != nil {
				return err
			}
			view, err := sess.Apply(set)
			if err != nil {
				return err
			}
			info, err := sess.Info()
			if err != nil {
				return err
			}

			out := analysis{File: args[0], Info: info, View: view}
			if summarize {
				text, ok, err := sess.Summary(ctx)
				if err != nil {
					return err
				}
				out.Summary = &analyzeSummary{Text: text, OK: ok}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if view.Invalid != "" {
				return fmt.Errorf("%s", view.Invalid)
			}
			return nil
		},
	}

	f := cmd.Flags()
	for _, field := range schema.Categorical {
		p := filter.ParamFor(field)
		params[p] = f.String(flagName(p), filter.All, fmt.Sprintf("keep only rows whose %s equals this value (%q for blank)", field, filter.Blank))
	}
	params[filter.ParamStart] = f.String(filter.ParamStart, "", "first date to keep (YYYY-MM-DD, inclusive)")
	params[filter.ParamEnd] = f.String(filter.ParamEnd, "", "last date to keep (YYYY-MM-DD, inclusive)")
	f.BoolVar(&summarize, "summary", false, "ask the configured narrator for a campaign summary")
	f.IntVar(&retries, "retries", 2, "retries for transient HTTP failures when the argument is a URL")
	return cmd
}

func flagName(param string) string { return strings.ReplaceAll(param, "_", "-") }

func source(ref string, retries int) datasource.Source {
	if datasource.IsURL(ref) {
		return httpds.NewRemote(ref, httpds.Config{MaxRetries: retries, Timeout: time.Minute})
	}
	return file.NewLocal(ref)
}
