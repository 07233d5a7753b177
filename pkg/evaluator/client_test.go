package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExplainTopicParsesCompletion(t *testing.T) {
	var gotAuth string
	var gotModel string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		gotModel = req.Model

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Federalism divides power."}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-model", "vision-model")
	got, err := client.ExplainTopic(context.Background(), "Federalism")
	if err != nil {
		t.Fatalf("ExplainTopic returned error: %v", err)
	}
	if got != "Federalism divides power." {
		t.Fatalf("unexpected completion content: %q", got)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("expected bearer auth header, got %q", gotAuth)
	}
	if gotModel != "text-model" {
		t.Fatalf("expected text model, got %q", gotModel)
	}
}

func TestScoreAnswerSendsVisionPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "vision-model" {
			t.Fatalf("expected vision model, got %q", req.Model)
		}

		raw, _ := json.Marshal(req.Messages)
		if !strings.Contains(string(raw), "data:image/jpeg;base64,aGVsbG8=") {
			t.Fatalf("expected data URI in message payload, got %s", raw)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "7/10. Strengthen the conclusion."}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-model", "vision-model")
	got, err := client.ScoreAnswer(context.Background(), "aGVsbG8=")
	if err != nil {
		t.Fatalf("ScoreAnswer returned error: %v", err)
	}
	if got != "7/10. Strengthen the conclusion." {
		t.Fatalf("unexpected feedback: %q", got)
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "rate limit exceeded", "type": "rate_limit"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-model", "vision-model")
	_, err := client.ExplainTopic(context.Background(), "Federalism")
	if err == nil {
		t.Fatal("expected error from API failure")
	}
	if !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Fatalf("expected api error message, got %v", err)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-model", "vision-model")
	_, err := client.ExplainTopic(context.Background(), "Federalism")
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}
