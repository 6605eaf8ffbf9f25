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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Suggestion is one classifier-proposed pagination control.
type Suggestion struct {
	// Selector is a CSS selector resolving to the suggested element.
	Selector string `json:"selector"`
	// Confidence is the classifier's self-reported certainty, 0..1.
	Confidence float64 `json:"confidence"`
	// Reason is a free-text justification, used for logging only.
	Reason string `json:"reason"`
	// ElementType is the suggested element's tag name.
	ElementType string `json:"elementType"`
	// Attributes carries any attributes the classifier extracted.
	Attributes map[string]string `json:"attributes"`
}

// SemanticClassifier suggests pagination controls from raw page HTML.
// Implementations are optional collaborators: the ranker probes Alive
// once and silently skips augmentation when it reports false.
type SemanticClassifier interface {
	// Alive is a lightweight liveness check, called once before
	// first use.
	Alive(ctx context.Context) bool
	// FindNextButtons analyzes the page and proposes candidate
	// selectors with confidence scores.
	FindNextButtons(ctx context.Context, html, pageURL string) ([]Suggestion, error)
}

const classifierSystemPrompt = `You are an expert at analyzing web page HTML.
Identify elements that load additional content when activated: "load more"
buttons, "next page" links, infinite-scroll triggers and similar pagination
controls. Respond with a JSON array only, no prose. Each entry must have the
keys: selector (a CSS selector uniquely matching the element), confidence
(0.0-1.0), reason, elementType, attributes (object of attribute name/value
pairs). Return [] if no such element exists.`

// maxClassifierHTMLBytes caps the HTML sent per call so oversized pages
// don't blow the model context.
const maxClassifierHTMLBytes = 48 * 1024

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// LlamaClassifier is a SemanticClassifier backed by a llama-server style
// chat-completions endpoint.
type LlamaClassifier struct {
	endpoint    string
	temperature float64
	client      *http.Client
	probeClient *http.Client
}

// NewLlamaClassifier creates a classifier talking to the given base
// endpoint (e.g. "http://127.0.0.1:8080").
func NewLlamaClassifier(endpoint string) *LlamaClassifier {
	return &LlamaClassifier{
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		temperature: 0.3,
		client:      &http.Client{Timeout: 120 * time.Second},
		probeClient: &http.Client{Timeout: 3 * time.Second},
	}
}

// Alive probes the server's health endpoint.
func (lc *LlamaClassifier) Alive(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lc.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := lc.probeClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// FindNextButtons asks the model for pagination-control suggestions.
// Unparsable output is an error; the caller skips augmentation for this
// call and continues with heuristics.
func (lc *LlamaClassifier) FindNextButtons(ctx context.Context, html, pageURL string) ([]Suggestion, error) {
	if len(html) > maxClassifierHTMLBytes {
		html = html[:maxClassifierHTMLBytes]
	}

	body := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: classifierSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Page URL: %s\n\nHTML:\n%s", pageURL, html)},
		},
		Stream:      false,
		Temperature: lc.temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		lc.endpoint+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := lc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	suggestions, err := parseSuggestions(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	for _, s := range suggestions {
		log.Debug("classifier suggestion", "selector", s.Selector, "confidence", s.Confidence, "reason", s.Reason)
	}
	return suggestions, nil
}

// parseSuggestions extracts the JSON array from model output, tolerating
// surrounding prose and markdown fences.
func parseSuggestions(content string) ([]Suggestion, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in classifier output")
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(content[start:end+1]), &suggestions); err != nil {
		return nil, fmt.Errorf("unparsable classifier output: %w", err)
	}

	valid := suggestions[:0]
	for _, s := range suggestions {
		if strings.TrimSpace(s.Selector) == "" {
			continue
		}
		valid = append(valid, s)
	}
	return valid, nil
}
