package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

/*
TestLoad_Defaults verifies that with no file and no environment the defaults
form a valid configuration.
*/
func TestLoad_Defaults(t *testing.T) {
	d, err := Load(NewViper(), "", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Server.Addr != ":8080" || d.Server.SessionTTL != 30*time.Minute {
		t.Fatalf("server=%+v", d.Server)
	}
	if d.Upload.MaxBytes != 32<<20 || d.Upload.Delimiter != "auto" {
		t.Fatalf("upload=%+v", d.Upload)
	}
	if d.Narrator.Provider != "none" || d.Narrator.Timeout != time.Minute || d.Narrator.Options == nil {
		t.Fatalf("narrator=%+v", d.Narrator)
	}
	if d.Audit.Table != "upload_audit" || !d.Audit.AutoCreateTable {
		t.Fatalf("audit=%+v", d.Audit)
	}
	if HasErrors(Validate(d)) {
		t.Fatalf("defaults have errors: %v", Validate(d))
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	cfg := writeFile(t, "dash.yaml", `
log_level: debug
server:
  addr: ":9090"
  session_ttl: 5m
clean:
  date_order: dmy
narrator:
  provider: anthropic
  model: claude-test
  options:
    headers:
      X-Team: analytics
metrics:
  backend: prometheus
  tags: [env:test]
`)
	t.Setenv("MEDIADASH_SERVER_ADDR", ":7070")
	t.Setenv("MEDIADASH_NARRATOR_API_KEY", "sk-env")

	d, err := Load(NewViper(), cfg, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Server.Addr != ":7070" {
		t.Fatalf("env override lost: addr=%q", d.Server.Addr)
	}
	if d.Server.SessionTTL != 5*time.Minute || d.LogLevel != "debug" || d.Clean.DateOrder != "dmy" {
		t.Fatalf("file values lost: %+v", d)
	}
	if d.Narrator.APIKey != "sk-env" || d.Narrator.Model != "claude-test" {
		t.Fatalf("narrator=%+v", d.Narrator)
	}
	// viper lower-cases keys; header names are case-insensitive anyway.
	if got := d.Narrator.Options.StringMap("headers"); got["x-team"] != "analytics" {
		t.Fatalf("headers=%v", got)
	}
	if !reflect.DeepEqual(d.Metrics.Tags, []string{"env:test"}) {
		t.Fatalf("tags=%v", d.Metrics.Tags)
	}
}

func TestLoad_DotEnvAndProviderKey(t *testing.T) {
	env := writeFile(t, "test.env", "MEDIADASH_NARRATOR_PROVIDER=openai\nOPENAI_API_KEY=sk-dotenv\n")
	t.Cleanup(func() {
		os.Unsetenv("MEDIADASH_NARRATOR_PROVIDER")
		os.Unsetenv("OPENAI_API_KEY")
	})

	d, err := Load(NewViper(), "", env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Narrator.Provider != "openai" || d.Narrator.APIKey != "sk-dotenv" {
		t.Fatalf("narrator=%+v", d.Narrator)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	if _, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("explicit missing config file: want error")
	}
}

func TestOptions_DefaultsAndCoercion(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":  "hello",
		"b":  true,
		"i":  float64(42), // JSON numbers
		"i2": 7,           // YAML integers
	}
	if got := o.String("s", "def"); got != "hello" {
		t.Fatalf("String(s) = %q, want hello", got)
	}
	if got := o.String("missing", "def"); got != "def" {
		t.Fatalf("String(missing) = %q, want def", got)
	}
	if got := o.Bool("b", false); got != true {
		t.Fatalf("Bool(b) = %v, want true", got)
	}
	if got := o.Int("i", 0); got != 42 {
		t.Fatalf("Int(i) = %d, want 42", got)
	}
	if got := o.Int("i2", 0); got != 7 {
		t.Fatalf("Int(i2) = %d, want 7", got)
	}
	if got := o.Int("s", 3); got != 3 {
		t.Fatalf("Int(s) = %d, want default 3", got)
	}
}

func TestOptions_StringMap_StringSlice_Any(t *testing.T) {
	t.Parallel()

	o := Options{
		"m":  map[string]any{"A": "a", "X": 1},
		"s1": []any{"alpha", 3, "beta"},
		"s2": []string{"x"},
	}
	if got := o.StringMap("m"); !reflect.DeepEqual(got, map[string]string{"A": "a"}) {
		t.Fatalf("StringMap(m) = %v", got)
	}
	if got := o.StringMap("missing"); got == nil || len(got) != 0 {
		t.Fatalf("StringMap(missing) = %v, want empty non-nil map", got)
	}
	if got := o.StringSlice("s1"); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Fatalf("StringSlice(s1) = %v", got)
	}
	if got := o.StringSlice("s2"); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("StringSlice(s2) = %v", got)
	}
	if o.Any("missing") != nil || o.Any("m") == nil {
		t.Fatalf("Any mismatch")
	}
}
