package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mediadash/internal/config"
)

// cli carries state shared by the subcommands of one invocation.
type cli struct {
	v        *viper.Viper
	cfgFile  string
	envFiles []string
	cfg      config.Dashboard
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "mediadash",
		Short: "Media-mention analytics dashboard.",
		Long: `mediadash ingests CSV exports of media mentions, filters them by platform,
sentiment, media type, location and date, and renders sentiment, trend,
platform, media-type and location views with an optional campaign summary
written by a text-generation service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (YAML, JSON or TOML)")
	pf.StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	pf.StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	_ = c.v.BindPFlag("log_level", pf.Lookup("loglevel"))

	root.AddCommand(newServeCmd(c), newAnalyzeCmd(c), newValidateCmd(c))
	return root
}

// load reads configuration and applies the log level.
func (c *cli) load() error {
	cfg, err := config.Load(c.v, c.cfgFile, c.envFiles...)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}
	return nil
}

// lint logs every issue and reports whether any of them is an error.
func lint(cfg config.Dashboard) (issues []config.Issue, failed bool) {
	issues = config.Validate(cfg)
	for _, iss := range issues {
		entry := logrus.WithField("path", iss.Path)
		if iss.Severity == config.SeverityError {
			entry.Error(iss.Message)
		} else {
			entry.Warn(iss.Message)
		}
	}
	return issues, config.HasErrors(issues)
}
