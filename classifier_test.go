// Copyright 2026 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pagesnake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// chatServer fakes a llama-server that answers every completion with
// the given message content.
func chatServer(t *testing.T, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/v1/chat/completions":
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("bad request body: %v", err)
			}
			resp := chatResponse{}
			resp.Choices = make([]struct {
				Message struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"message"`
			}, 1)
			resp.Choices[0].Message.Role = "assistant"
			resp.Choices[0].Message.Content = content
			json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestLlamaClassifierAlive(t *testing.T) {
	srv, _ := chatServer(t, "[]")
	lc := NewLlamaClassifier(srv.URL + "/")
	if !lc.Alive(context.Background()) {
		t.Error("healthy server reported dead")
	}

	down := NewLlamaClassifier("http://127.0.0.1:1")
	if down.Alive(context.Background()) {
		t.Error("unreachable server reported alive")
	}
}

func TestFindNextButtons(t *testing.T) {
	srv, captured := chatServer(t, `[
		{"selector": ".load-more", "confidence": 0.92, "reason": "button labeled Load More", "elementType": "button"},
		{"selector": "a.next", "confidence": 0.6, "elementType": "a"}
	]`)
	lc := NewLlamaClassifier(srv.URL)

	got, err := lc.FindNextButtons(context.Background(),
		`<html><button class="load-more">Load More</button></html>`,
		"https://example.com/archive")
	if err != nil {
		t.Fatalf("FindNextButtons failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(got))
	}
	if got[0].Selector != ".load-more" || got[0].Confidence != 0.92 {
		t.Errorf("first suggestion = %+v", got[0])
	}

	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("request messages = %+v", captured.Messages)
	}
	if user := captured.Messages[1].Content; !strings.Contains(user, "https://example.com/archive") {
		t.Errorf("page URL missing from user message")
	}
	if captured.Stream {
		t.Error("streaming requested")
	}
}

func TestFindNextButtonsTruncatesHTML(t *testing.T) {
	srv, captured := chatServer(t, "[]")
	lc := NewLlamaClassifier(srv.URL)

	huge := strings.Repeat("x", maxClassifierHTMLBytes*2)
	if _, err := lc.FindNextButtons(context.Background(), huge, "https://example.com"); err != nil {
		t.Fatalf("FindNextButtons failed: %v", err)
	}
	if got := len(captured.Messages[1].Content); got > maxClassifierHTMLBytes+256 {
		t.Errorf("user message carries %d bytes, truncation not applied", got)
	}
}

func TestFindNextButtonsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	lc := NewLlamaClassifier(srv.URL)
	if _, err := lc.FindNextButtons(context.Background(), "<html></html>", "https://example.com"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"bare array", `[{"selector": ".a", "confidence": 0.5}]`, 1, false},
		{"markdown fence", "Here you go:\n```json\n[{\"selector\": \".a\", \"confidence\": 0.5}]\n```\nDone.", 1, false},
		{"surrounding prose", `The element is [{"selector": "#next", "confidence": 0.8}] as requested`, 1, false},
		{"empty array", `[]`, 0, false},
		{"drops empty selectors", `[{"selector": "", "confidence": 0.9}, {"selector": ".b", "confidence": 0.4}]`, 1, false},
		{"no array at all", `I could not find any pagination controls.`, 0, true},
		{"malformed json", `[{"selector": .broken}]`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestions(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d suggestions, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseSuggestionsAttributes(t *testing.T) {
	content := fmt.Sprintf(`[{"selector": "%s", "confidence": 0.7, "attributes": {"data-page": "2"}}]`,
		"button[data-page]")
	got, err := parseSuggestions(content)
	if err != nil {
		t.Fatalf("parseSuggestions failed: %v", err)
	}
	if got[0].Attributes["data-page"] != "2" {
		t.Errorf("attributes not carried: %+v", got[0])
	}
}
