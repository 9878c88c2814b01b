package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func chatServer(t *testing.T, handler func(t *testing.T, req map[string]any) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected authorization header: %s", auth)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		content := handler(t, req)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%s}}]}`, mustJSONString(content))
	}))
}

func mustJSONString(value string) string {
	encoded, _ := json.Marshal(value)
	return string(encoded)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(baseURL, "sk-test", "gpt-5.1", zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	return client
}

func articleContent() string {
	return `{
		"title": "Mi Post Optimizado",
		"meta_description": "Meta corta.",
		"h1": "Mi Post",
		"content_html": "<p>Contenido</p>",
		"faqs": [
			{"question": "q1", "answer": "a1"},
			{"question": "q2", "answer": "a2"},
			{"question": "q3", "answer": "a3"},
			{"question": "q4", "answer": "a4"},
			{"question": "q5", "answer": "a5"}
		],
		"image_prompts": ["prompt uno"]
	}`
}

func TestGenerateArticle(t *testing.T) {
	t.Parallel()

	server := chatServer(t, func(t *testing.T, req map[string]any) string {
		if req["model"] != "gpt-5.1" {
			t.Errorf("unexpected model: %v", req["model"])
		}
		if temp := req["temperature"].(float64); temp != 0.6 {
			t.Errorf("unexpected temperature: %v", temp)
		}
		messages := req["messages"].([]any)
		if len(messages) != 3 {
			t.Errorf("expected 3 messages, got %d", len(messages))
		}
		userPayload := messages[2].(map[string]any)["content"].(string)
		if !strings.Contains(userPayload, `"keyword_principal":"clave x"`) {
			t.Errorf("prompt missing keyword: %s", userPayload)
		}
		return articleContent()
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	article, err := client.GenerateArticle(context.Background(), ArticleRequest{
		Keyword:     "clave x",
		Description: "descripción",
		BaseTitle:   "Mi Post",
		Category:    "Tecnología",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if article.Title != "Mi Post Optimizado" {
		t.Fatalf("unexpected title: %q", article.Title)
	}
}

func TestGenerateArticle_FencedResponse(t *testing.T) {
	t.Parallel()

	server := chatServer(t, func(t *testing.T, _ map[string]any) string {
		return "```json\n" + articleContent() + "\n```"
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	article, err := client.GenerateArticle(context.Background(), ArticleRequest{Keyword: "k"})
	if err != nil {
		t.Fatalf("expected fenced response to parse, got: %v", err)
	}
	if len(article.FAQs) != 5 {
		t.Fatalf("unexpected faq count: %d", len(article.FAQs))
	}
}

func TestGenerateArticle_InvalidPayload(t *testing.T) {
	t.Parallel()

	server := chatServer(t, func(t *testing.T, _ map[string]any) string {
		return `{"title": "solo titulo"}`
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.GenerateArticle(context.Background(), ArticleRequest{Keyword: "k"}); err == nil {
		t.Fatal("expected validation failure for incomplete payload")
	}
}

func TestGenerateArticle_EndpointError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GenerateArticle(context.Background(), ArticleRequest{Keyword: "k"})
	if err == nil {
		t.Fatal("expected error for endpoint failure")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected error envelope message, got: %v", err)
	}
}

func TestJudgeDuplicate(t *testing.T) {
	t.Parallel()

	server := chatServer(t, func(t *testing.T, req map[string]any) string {
		if temp := req["temperature"].(float64); temp != 0 {
			t.Errorf("expected zero temperature, got %v", temp)
		}
		userPayload := req["messages"].([]any)[2].(map[string]any)["content"].(string)
		if !strings.Contains(userPayload, `"existing_posts"`) {
			t.Errorf("payload missing existing posts: %s", userPayload)
		}
		return `{"duplicate": true, "reason": "mismo tema", "match_slug": "mi-post"}`
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	verdict, err := client.JudgeDuplicate(context.Background(), JudgeRequest{
		Candidate: CandidateSummary{Title: "Mi Post", Keyword: "clave"},
		Existing:  []RecordSummary{{Title: "Mi Post Antiguo", Slug: "mi-post"}},
	})
	if err != nil {
		t.Fatalf("judge failed: %v", err)
	}
	if !verdict.Duplicate || verdict.MatchSlug != "mi-post" {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
}

func TestJudgeDuplicate_InvalidJSON(t *testing.T) {
	t.Parallel()

	server := chatServer(t, func(t *testing.T, _ map[string]any) string {
		return "no es json"
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.JudgeDuplicate(context.Background(), JudgeRequest{}); err == nil {
		t.Fatal("expected error for non-JSON verdict")
	}
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("https://api.openai.com/v1", "  ", "gpt-5.1", zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewClient("https://api.openai.com/v1", "sk-test", "", zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestCleanJSONContent(t *testing.T) {
	t.Parallel()

	if got := cleanJSONContent("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("unexpected cleaned content: %q", got)
	}
	if got := cleanJSONContent("```\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("unexpected cleaned content: %q", got)
	}
	if got := cleanJSONContent(`{"a":1}`); got != `{"a":1}` {
		t.Fatalf("unexpected cleaned content: %q", got)
	}
}
