package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"mediadash/internal/transformer"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block startup.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block startup.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "narrator.provider").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of d. It does not mutate d.
func Validate(d Dashboard) []Issue {
	var issues []Issue

	if _, err := logrus.ParseLevel(d.LogLevel); err != nil {
		issues = append(issues, Issue{SeverityError, "log_level", err.Error()})
	}
	issues = append(issues, validateServer(d.Server)...)
	issues = append(issues, validateUpload(d.Upload)...)
	if _, err := transformer.ParseDateOrder(d.Clean.DateOrder); err != nil {
		issues = append(issues, Issue{SeverityError, "clean.date_order", err.Error()})
	}
	issues = append(issues, validateNarrator(d.Narrator)...)
	issues = append(issues, validateMetrics(d.Metrics)...)
	issues = append(issues, validateAudit(d.Audit)...)
	return issues
}

func validateServer(s Server) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Addr) == "" {
		issues = append(issues, Issue{SeverityError, "server.addr", "server.addr must not be empty"})
	}
	if s.SessionTTL < 0 {
		issues = append(issues, Issue{SeverityError, "server.session_ttl", "session_ttl must not be negative"})
	} else if s.SessionTTL == 0 {
		issues = append(issues, Issue{SeverityWarning, "server.session_ttl",
			"session_ttl is 0; idle sessions are never evicted and memory grows with every visitor"})
	}
	if strings.TrimSpace(s.CookieName) == "" {
		issues = append(issues, Issue{SeverityError, "server.cookie_name", "cookie_name must not be empty"})
	}
	return issues
}

func validateUpload(u Upload) []Issue {
	var issues []Issue
	if u.MaxBytes <= 0 {
		issues = append(issues, Issue{SeverityError, "upload.max_bytes", "max_bytes must be > 0"})
	}
	switch d := strings.ToLower(strings.TrimSpace(u.Delimiter)); d {
	case "", "auto", "tab", `\t`:
	default:
		r, size := utf8.DecodeRuneInString(u.Delimiter)
		if size != len(u.Delimiter) {
			issues = append(issues, Issue{SeverityError, "upload.delimiter",
				fmt.Sprintf("delimiter %q must be a single character, \"tab\" or \"auto\"", u.Delimiter)})
		} else if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
			issues = append(issues, Issue{SeverityError, "upload.delimiter",
				fmt.Sprintf("delimiter %q is not allowed", u.Delimiter)})
		}
	}
	return issues
}

func validateNarrator(n Narrator) []Issue {
	var issues []Issue
	provider := strings.ToLower(strings.TrimSpace(n.Provider))
	switch provider {
	case "", "none":
		issues = append(issues, Issue{SeverityWarning, "narrator.provider",
			"no narrator provider; summary requests will report a failure"})
	case "openai", "anthropic":
		if n.APIKey == "" {
			issues = append(issues, Issue{SeverityWarning, "narrator.api_key",
				fmt.Sprintf("%s provider has no API key; summary requests will report a failure", provider)})
		}
	default:
		issues = append(issues, Issue{SeverityError, "narrator.provider",
			fmt.Sprintf("unknown narrator provider %q (want none, openai or anthropic)", n.Provider)})
	}
	if n.MaxTokens < 0 {
		issues = append(issues, Issue{SeverityError, "narrator.max_tokens", "max_tokens must not be negative"})
	}
	if n.Timeout < 0 {
		issues = append(issues, Issue{SeverityError, "narrator.timeout", "timeout must not be negative"})
	}
	if h := n.Options.Any("headers"); h != nil {
		if _, ok := h.(map[string]any); !ok {
			issues = append(issues, Issue{SeverityError, "narrator.options.headers", "headers must be an object of strings"})
		}
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none":
	case "prometheus":
		if m.PushGateway != "" && !strings.HasPrefix(m.PushGateway, "http") {
			issues = append(issues, Issue{SeverityError, "metrics.push_gateway", "push_gateway must be an http(s) URL"})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend",
			fmt.Sprintf("unknown metrics backend %q (want none, prometheus or datadog)", m.Backend)})
	}
	return issues
}

func validateAudit(a Audit) []Issue {
	var issues []Issue
	switch strings.ToLower(strings.TrimSpace(a.Kind)) {
	case "", "none":
		return nil
	case "sqlite", "postgres":
	default:
		return append(issues, Issue{SeverityError, "audit.kind",
			fmt.Sprintf("unknown audit kind %q (want none, sqlite or postgres)", a.Kind)})
	}
	if strings.TrimSpace(a.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "audit.dsn", "audit.dsn must not be empty"})
	}
	if strings.TrimSpace(a.Table) == "" {
		issues = append(issues, Issue{SeverityError, "audit.table", "audit.table must not be empty"})
	}
	if !a.AutoCreateTable {
		issues = append(issues, Issue{SeverityWarning, "audit.auto_create_table",
			"auto_create_table is off; the audit table must already exist"})
	}
	return issues
}
