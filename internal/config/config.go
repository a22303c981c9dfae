// Package config defines the dashboard configuration model and loads it with
// viper from an optional YAML file, MEDIADASH_* environment variables and a
// .env file.
//
// Example (trimmed):
//
//	server:
//	  addr: ":8080"
//	  session_ttl: 30m
//	upload:
//	  max_bytes: 33554432
//	  delimiter: auto
//	clean:
//	  date_order: auto
//	narrator:
//	  provider: openai
//	  model: gpt-4o-mini
//	  options:
//	    headers: { OpenAI-Organization: org-123 }
//	metrics:
//	  backend: prometheus
//	audit:
//	  kind: sqlite
//	  dsn: audit.db
package config

import "time"

// Dashboard is the top-level configuration object.
type Dashboard struct {
	LogLevel string   `mapstructure:"log_level"`
	Server   Server   `mapstructure:"server"`
	Upload   Upload   `mapstructure:"upload"`
	Clean    Clean    `mapstructure:"clean"`
	Narrator Narrator `mapstructure:"narrator"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Audit    Audit    `mapstructure:"audit"`
}

// Server configures the HTTP surface and the session store.
type Server struct {
	Addr string `mapstructure:"addr"`

	// SessionTTL evicts sessions idle for longer than this; zero keeps them
	// for the life of the process.
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	CookieName   string `mapstructure:"cookie_name"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
}

// Upload bounds and shapes accepted files.
type Upload struct {
	MaxBytes int64 `mapstructure:"max_bytes"`

	// Delimiter is "auto" (sniffed), a single character, or "tab".
	Delimiter  string `mapstructure:"delimiter"`
	LazyQuotes bool   `mapstructure:"lazy_quotes"`
}

// Clean configures the cleaner.
type Clean struct {
	// DateOrder resolves ambiguous numeric dates: auto, dmy or mdy.
	DateOrder string `mapstructure:"date_order"`
}

// Narrator selects the summarization provider.
type Narrator struct {
	Provider  string        `mapstructure:"provider"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`

	// Options carries provider-specific extras. Recognized keys:
	//   headers (object of string): extra HTTP headers on every request
	Options Options `mapstructure:"options"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is none, prometheus or datadog.
	Backend string `mapstructure:"backend"`

	// Job is the Pushgateway grouping job.
	Job         string `mapstructure:"job"`
	PushGateway string `mapstructure:"push_gateway"`

	DatadogAddr string   `mapstructure:"datadog_addr"`
	Namespace   string   `mapstructure:"namespace"`
	Tags        []string `mapstructure:"tags"`
}

// Audit configures the upload audit log.
type Audit struct {
	// Kind is none, sqlite or postgres.
	Kind            string `mapstructure:"kind"`
	DSN             string `mapstructure:"dsn"`
	Table           string `mapstructure:"table"`
	AutoCreateTable bool   `mapstructure:"auto_create_table"`
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs only minimal type coercion and returns the provided default when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. YAML decodes integers as int and
// JSON as float64; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object.
// Non-string values are ignored. Returns an empty map when the key is missing
// or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	v, ok := o[key]
	if !ok {
		return res
	}
	switch m := v.(type) {
	case map[string]any:
		for k, vv := range m {
			if s, ok := vv.(string); ok {
				res[k] = s
			}
		}
	case map[string]string:
		for k, s := range m {
			res[k] = s
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of
// strings. Returns nil when the key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}
