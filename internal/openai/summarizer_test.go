package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/openai/openai-go/option"
)

func TestSanitize(t *testing.T) {
	in := "Apple designs phones.  See https://apple.com ![logo](http://x/y.png)\n\nIt sells services."
	got := sanitize(in)
	if strings.Contains(got, "http") || strings.Contains(got, "logo") {
		t.Errorf("links left in %q", got)
	}
	if got != "Apple designs phones. See It sells services." {
		t.Errorf("sanitize = %q", got)
	}
	if long := sanitize(strings.Repeat("a", 5000)); len(long) != 4000 {
		t.Errorf("len = %d", len(long))
	}
}

func TestSanitize_CutsOnRuneBoundary(t *testing.T) {
	got := sanitize("a" + strings.Repeat("é", 2500))
	if !utf8.ValidString(got) {
		t.Fatal("truncated text is not valid UTF-8")
	}
	if len(got) != 3999 {
		t.Errorf("len = %d, want 3999", len(got))
	}
}

func TestDigest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.Unmarshal(body, &req)
		if req.Model != "test-model" || len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "Coca-Cola") {
			t.Errorf("request = %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"- Sells beverages\n"}}]}`))
	}))
	defer srv.Close()

	s := NewSummarizer("key", "test-model", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	out, err := s.Digest(context.Background(), "Coca-Cola", "The Coca-Cola Company manufactures beverages.")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if out != "- Sells beverages" {
		t.Errorf("digest = %q", out)
	}

	if _, err := s.Digest(context.Background(), "X", "  "); err == nil {
		t.Error("expected error for empty summary")
	}
}
