// Package narrator turns aggregate facts into campaign recommendations via an
// external text-generation service. The service is opaque: the package only
// builds the prompt, forwards it, and converts any failure into displayable
// text.
package narrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mediadash/internal/aggregate"
	"mediadash/internal/schema"
)

// Provider names accepted by New.
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// FailurePrefix starts every fallback message produced by Describe.
const FailurePrefix = "Failed to generate summary. Error: "

const notAvailable = "N/A"

// Narrator produces free-text guidance from aggregate facts.
type Narrator interface {
	Summarize(ctx context.Context, facts aggregate.Facts) (string, error)
}

// Func adapts a plain function to Narrator.
type Func func(ctx context.Context, facts aggregate.Facts) (string, error)

// Summarize calls f.
func (f Func) Summarize(ctx context.Context, facts aggregate.Facts) (string, error) {
	return f(ctx, facts)
}

// ServiceError wraps a failure of the external service.
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Config selects and configures a provider.
type Config struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	// Timeout bounds one HTTP call to the provider; zero means no bound.
	Timeout time.Duration
	// Headers are added to every request.
	Headers map[string]string
}

// New returns the configured provider. A provider without an API key, or
// ProviderNone, yields a Narrator whose every call fails with a ServiceError
// explaining why, so the dashboard still works without the service.
func New(cfg Config) (Narrator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderNone:
		return Disabled{Reason: "no summarization provider configured"}, nil
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return nil, fmt.Errorf("narrator: unknown provider %q", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return Disabled{Provider: provider, Reason: "API key is required"}, nil
	}
	if provider == ProviderAnthropic {
		return newAnthropic(cfg), nil
	}
	return newOpenAI(cfg), nil
}

// Disabled is the Narrator used when no provider is usable.
type Disabled struct {
	Provider string
	Reason   string
}

// Summarize always fails.
func (d Disabled) Summarize(context.Context, aggregate.Facts) (string, error) {
	p := d.Provider
	if p == "" {
		p = ProviderNone
	}
	return "", &ServiceError{Provider: p, Err: fmt.Errorf("%s", d.Reason)}
}

// Describe asks n for a summary and never fails: an error, an empty answer or
// a panic inside n becomes a message starting with FailurePrefix that carries
// the cause. ok reports whether the text came from the service.
func Describe(ctx context.Context, n Narrator, facts aggregate.Facts) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			text, ok = FailurePrefix+fmt.Sprint(r), false
		}
	}()
	if n == nil {
		return FailurePrefix + "no narrator", false
	}
	out, err := n.Summarize(ctx, facts)
	if err != nil {
		return FailurePrefix + err.Error(), false
	}
	if strings.TrimSpace(out) == "" {
		return FailurePrefix + "empty response", false
	}
	return out, true
}

var printer = message.NewPrinter(language.English)

// Prompt renders the facts into the request sent to the service.
func Prompt(f aggregate.Facts) string {
	sentiment, platform, media, location := notAvailable, notAvailable, notAvailable, notAvailable
	start, end := notAvailable, notAvailable
	var platformEng, locationEng int64
	if f.HasData {
		sentiment = label(f.DominantSentiment)
		platform, platformEng = label(f.TopPlatform), f.TopPlatformEngagements
		media = label(f.DominantMediaType)
		location, locationEng = label(f.TopLocation), f.TopLocationEngagements
		start, end = f.Start.Format(schema.DayLayout), f.End.Format(schema.DayLayout)
	}

	var b strings.Builder
	b.WriteString("Based on the following media intelligence data and insights, provide a concise ")
	b.WriteString("campaign strategy summary as bullet points (key actions and recommendations).\n")
	printer.Fprintf(&b, "- Dominant sentiment: %s.\n", sentiment)
	printer.Fprintf(&b, "- Top engagement platform: %s with %d engagements.\n", platform, platformEng)
	printer.Fprintf(&b, "- Overall engagement trend: %s from %s to %s.\n", f.Trend, start, end)
	printer.Fprintf(&b, "- Most frequently used media type: %s.\n", media)
	printer.Fprintf(&b, "- Top location for engagement: %s with %d engagements.\n", location, locationEng)
	b.WriteString("\nSuggest 3-5 actionable recommendations to optimize the media campaign. ")
	b.WriteString("Focus on practical steps based on these data points. Use markdown format.\n")
	return b.String()
}

// label renders the empty category of a missing column.
func label(s string) string {
	if s == "" {
		return "(unspecified)"
	}
	return s
}
