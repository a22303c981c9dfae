package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = "Date,Engagements,Platform,Sentiment,Media Type,Location\n" +
	"2024-01-01,10,Twitter,Positive,Text,Jakarta\n" +
	"2024-01-02,5,Instagram,Negative,Image,Bandung\n" +
	"2024-01-03,20,Twitter,Negative,Video,Jakarta\n" +
	"not a date,99,Twitter,Positive,Text,Jakarta\n"

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--loglevel", "error"))
	err := root.Execute()
	return out.String(), err
}

func decode(t *testing.T, s string) analysis {
	t.Helper()
	var a analysis
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return a
}

func TestAnalyze_File(t *testing.T) {
	p := writeFile(t, "mentions.csv", sample)
	out, err := run(t, "analyze", p, "--platform", "Twitter", "--end", "2024-01-02")
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	a := decode(t, out)
	if a.Info.FileName != "mentions.csv" || a.Info.Report.Kept != 3 || a.Info.Report.DroppedDates != 1 {
		t.Fatalf("info=%+v", a.Info)
	}
	if a.View.Rows != 1 || a.View.Total != 3 {
		t.Fatalf("rows=%d total=%d", a.View.Rows, a.View.Total)
	}
	if len(a.View.Charts.Platforms) != 1 || a.View.Charts.Platforms[0].Engagements != 10 {
		t.Fatalf("platforms=%+v", a.View.Charts.Platforms)
	}
	if a.Summary != nil {
		t.Fatalf("summary must only be produced on request")
	}
}

func TestAnalyze_SummaryWithoutProviderFallsBack(t *testing.T) {
	p := writeFile(t, "mentions.csv", sample)
	out, err := run(t, "analyze", p, "--summary")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	a := decode(t, out)
	if a.Summary == nil || a.Summary.OK || !strings.HasPrefix(a.Summary.Text, "Failed to generate summary. Error: ") {
		t.Fatalf("summary=%+v", a.Summary)
	}
}

func TestAnalyze_InvertedRangeFails(t *testing.T) {
	p := writeFile(t, "mentions.csv", sample)
	out, err := run(t, "analyze", p, "--start", "2024-01-03", "--end", "2024-01-01")
	if err == nil || !strings.Contains(err.Error(), "start date 2024-01-03 is after end date 2024-01-01") {
		t.Fatalf("err=%v", err)
	}
	if a := decode(t, out); a.View.Invalid == "" || !a.View.Charts.Empty() {
		t.Fatalf("view=%+v", a.View)
	}
}

func TestAnalyze_SchemaError(t *testing.T) {
	p := writeFile(t, "bad.csv", "Platform\nTwitter\n")
	if _, err := run(t, "analyze", p); err == nil || !strings.Contains(err.Error(), "missing required column(s)") {
		t.Fatalf("err=%v", err)
	}
}

func TestAnalyze_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sample))
	}))
	defer srv.Close()

	out, err := run(t, "analyze", srv.URL+"/export/mentions.csv", "--retries", "0")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a := decode(t, out); a.Info.FileName != "mentions.csv" || a.View.Rows != 3 {
		t.Fatalf("analysis=%+v", a)
	}
}

func TestAnalyze_SQLiteAudit(t *testing.T) {
	csvPath := writeFile(t, "mentions.csv", sample)
	db := filepath.Join(t.TempDir(), "audit.db")
	cfg := writeFile(t, "mediadash.yaml", "audit:\n  kind: sqlite\n  dsn: "+db+"\n")
	if _, err := run(t, "analyze", csvPath, "--config", cfg); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if st, err := os.Stat(db); err != nil || st.Size() == 0 {
		t.Fatalf("audit database not written: %v", err)
	}
}

func TestValidate(t *testing.T) {
	good := writeFile(t, "good.yaml", "server:\n  addr: \":9090\"\n")
	out, err := run(t, "validate", "--config", good)
	if err != nil || !strings.Contains(out, "configuration is valid") {
		t.Fatalf("err=%v out=%s", err, out)
	}

	bad := writeFile(t, "bad.yaml", "clean:\n  date_order: ymd\nmetrics:\n  backend: statsd\n")
	out, err = run(t, "validate", "--config", bad)
	if err == nil {
		t.Fatalf("expected invalid configuration")
	}
	if !strings.Contains(out, "clean.date_order") || !strings.Contains(out, "metrics.backend") {
		t.Fatalf("out=%s", out)
	}
}

func TestJanitorInterval(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		0:                time.Minute,
		2 * time.Minute:  30 * time.Second,
		30 * time.Minute: time.Minute,
	}
	for ttl, want := range cases {
		if got := janitorInterval(ttl); got != want {
			t.Errorf("janitorInterval(%v)=%v want %v", ttl, got, want)
		}
	}
}
