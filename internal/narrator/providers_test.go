package narrator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeProvider records the last request body and answers with status/body.
func fakeProvider(t *testing.T, path string, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, path) {
			t.Errorf("path=%s want suffix %s", r.URL.Path, path)
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestOpenAI_Summarize(t *testing.T) {
	srv, req := fakeProvider(t, "/chat/completions", http.StatusOK, `{
		"id": "c1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "- post more reels"}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`)

	n, err := New(Config{Provider: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL + "/", Headers: map[string]string{"X-Team": "a"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	text, ok := Describe(context.Background(), n, facts())
	if !ok || text != "- post more reels" {
		t.Fatalf("text=%q ok=%v", text, ok)
	}
	msgs, _ := (*req)["messages"].([]any)
	if len(msgs) != 1 || !strings.Contains(toJSON(msgs[0]), "12,345") {
		t.Fatalf("request messages=%v", (*req)["messages"])
	}
}

func TestAnthropic_Summarize(t *testing.T) {
	srv, req := fakeProvider(t, "/v1/messages", http.StatusOK, `{
		"id": "m1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
		"content": [{"type": "text", "text": "- target Jakarta"}],
		"stop_reason": "end_turn", "usage": {"input_tokens": 10, "output_tokens": 5}
	}`)

	n, err := New(Config{Provider: ProviderAnthropic, APIKey: "k", BaseURL: srv.URL, MaxTokens: 200})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	text, ok := Describe(context.Background(), n, facts())
	if !ok || text != "- target Jakarta" {
		t.Fatalf("text=%q ok=%v", text, ok)
	}
	if mt, _ := (*req)["max_tokens"].(float64); mt != 200 {
		t.Fatalf("max_tokens=%v", (*req)["max_tokens"])
	}
}

/*
TestProviders_InvalidCredential injects an authentication failure and checks
that it comes back as fallback text carrying the cause.
*/
func TestProviders_InvalidCredential(t *testing.T) {
	cases := []struct {
		provider, path, body, base string
	}{
		{ProviderOpenAI, "/chat/completions", `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`, "/"},
		{ProviderAnthropic, "/v1/messages", `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`, ""},
	}
	for _, c := range cases {
		t.Run(c.provider, func(t *testing.T) {
			srv, _ := fakeProvider(t, c.path, http.StatusUnauthorized, c.body)
			n, err := New(Config{Provider: c.provider, APIKey: "bad", BaseURL: srv.URL + c.base})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			text, ok := Describe(context.Background(), n, facts())
			if ok {
				t.Fatalf("unexpected success: %q", text)
			}
			if !strings.HasPrefix(text, FailurePrefix) || !strings.Contains(text, "401") {
				t.Fatalf("text=%q", text)
			}
		})
	}
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
