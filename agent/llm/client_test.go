package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
)

func newCompletionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string, timeout time.Duration) Config {
	return Config{
		BaseURL:     baseURL + "/v1",
		Model:       "gemma-3-12b-it",
		Temperature: 0.3,
		Timeout:     timeout,
	}
}

func sampleMessages() []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage("Sen bir çağrı merkezi asistanısın."),
		schema.UserMessage("Merhaba"),
	}
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	body, _ := json.Marshal(content)
	_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","created":1,"model":"gemma-3-12b-it","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":` + string(body) + `}}]}`))
}

func TestCompleteReturnsContent(t *testing.T) {
	t.Parallel()

	srv := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "gemma-3-12b-it" {
			t.Errorf("unexpected model %v", req["model"])
		}
		if req["max_tokens"] != float64(256) {
			t.Errorf("unexpected max_tokens %v", req["max_tokens"])
		}
		if req["temperature"] != 0.3 {
			t.Errorf("unexpected temperature %v", req["temperature"])
		}
		msgs, _ := req["messages"].([]any)
		if len(msgs) != 2 {
			t.Errorf("expected 2 messages, got %d", len(msgs))
		}
		writeCompletion(w, "  Size nasıl yardımcı olabilirim?  ")
	})

	client := NewClient(testConfig(srv.URL, time.Second))
	got := client.Complete(context.Background(), sampleMessages(), 256)
	if got != "Size nasıl yardımcı olabilirim?" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestCompleteSendsRolesInOrder(t *testing.T) {
	t.Parallel()

	var roles []string
	srv := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		for _, m := range req.Messages {
			roles = append(roles, m.Role)
		}
		writeCompletion(w, "Tamam")
	})

	msgs := append(sampleMessages(),
		schema.AssistantMessage("Müşteri numaranız nedir?", nil),
		schema.UserMessage("1001"),
	)
	client := NewClient(testConfig(srv.URL, time.Second))
	if got := client.Complete(context.Background(), msgs, 100); got != "Tamam" {
		t.Fatalf("unexpected reply %q", got)
	}

	want := []string{"system", "user", "assistant", "user"}
	if len(roles) != len(want) {
		t.Fatalf("roles = %v, want %v", roles, want)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("roles = %v, want %v", roles, want)
		}
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	t.Parallel()

	srv := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "")
	})

	client := NewClient(testConfig(srv.URL, time.Second))
	if got := client.Complete(context.Background(), sampleMessages(), 100); got != ReplyEmpty {
		t.Fatalf("expected %q, got %q", ReplyEmpty, got)
	}
}

func TestCompleteRequiresSystemFirst(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeCompletion(w, "x")
	})

	client := NewClient(testConfig(srv.URL, time.Second))
	msgs := []*schema.Message{schema.UserMessage("Merhaba")}
	if got := client.Complete(context.Background(), msgs, 100); got != ReplyFailed {
		t.Fatalf("expected %q, got %q", ReplyFailed, got)
	}
	if calls.Load() != 0 {
		t.Fatalf("request must not be sent")
	}
}

func TestCompleteTimeout(t *testing.T) {
	t.Parallel()

	srv := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeCompletion(w, "geç")
	})

	client := NewClient(testConfig(srv.URL, 50*time.Millisecond))
	if got := client.Complete(context.Background(), sampleMessages(), 100); got != ReplyTimeout {
		t.Fatalf("expected %q, got %q", ReplyTimeout, got)
	}
}

func TestCompleteConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := NewClient(testConfig(base, time.Second))
	if got := client.Complete(context.Background(), sampleMessages(), 100); got != ReplyUnreachable {
		t.Fatalf("expected %q, got %q", ReplyUnreachable, got)
	}
}

func TestCompleteServerErrorNoRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model not loaded"}}`))
	})

	client := NewClient(testConfig(srv.URL, time.Second))
	if got := client.Complete(context.Background(), sampleMessages(), 100); got != ReplyFailed {
		t.Fatalf("expected %q, got %q", ReplyFailed, got)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls.Load())
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{Model: "m", Temperature: 0.3}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Config{Temperature: 0.3}).Validate(); err == nil {
		t.Fatalf("expected missing model error")
	}
	if err := (Config{Model: "m", Temperature: 3}).Validate(); err == nil {
		t.Fatalf("expected temperature error")
	}
}
