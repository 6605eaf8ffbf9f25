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
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// ctaVocabulary is the fixed set of phrases whose presence in an
// element's visible text qualifies it as a pagination candidate.
var ctaVocabulary = []string{
	"read more", "load more", "show more", "view more", "see more",
	"more posts", "more articles", "more content",
	"next", "next page", "continue",
	"previous", "prev", "older posts", "newer posts",
	"load", "expand", "show all",
}

var (
	// paginationAttrPattern qualifies an element by its class/id or
	// other attribute values.
	paginationAttrPattern = regexp.MustCompile(`(?i)(load|more|expand|continue|next|prev|older|newer|pagination)`)
	// clickAttrPattern feeds the scoring table: class/id values that
	// smell like a clickable control.
	clickAttrPattern = regexp.MustCompile(`(?i)(load|more|next|prev|pag|btn|button|show|expand|click)`)
)

// candidateQuery is the broad sweep selector for the heuristic scan.
// Scoring separates the likely controls from the noise.
const candidateQuery = "a, button, input[type=button], input[type=submit], div, span, li"

// Features are the per-scan derived attributes of a candidate element.
// They are recomputed on every scan cycle because the DOM mutates
// between activations.
type Features struct {
	TagName     string `json:"tag"`
	VisibleText string `json:"text"`
	ClassAttr   string `json:"cls"`
	IDAttr      string `json:"id"`
	HrefAttr    string `json:"href"`
	DataAttr    bool   `json:"data"`
	Visible     bool   `json:"visible"`
}

// featureJS extracts all ranker features in a single round trip.
const featureJS = `function(el) {
	var hasData = false;
	for (var i = 0; i < el.attributes.length; i++) {
		var n = el.attributes[i].name;
		if (n === 'data-load' || n === 'data-more' || n === 'data-next' ||
			n.indexOf('data-load-') === 0 || n.indexOf('data-more-') === 0 || n.indexOf('data-next-') === 0) {
			hasData = true;
			break;
		}
	}
	var visible = !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	if (visible) {
		var style = window.getComputedStyle(el);
		visible = style.visibility !== 'hidden' && style.display !== 'none';
	}
	return {
		tag: el.tagName.toLowerCase(),
		text: (el.innerText || el.textContent || '').trim(),
		cls: el.getAttribute('class') || '',
		id: el.getAttribute('id') || '',
		href: el.getAttribute('href') || '',
		data: hasData,
		visible: visible
	};
}`

// Candidate is a scored pagination-control candidate. The handle is
// only valid for the scan cycle that produced it.
type Candidate struct {
	Element  Element
	Features Features
	Score    int
	// Source is "heuristic" or "classifier".
	Source string
}

// scoreRule is one (predicate, weight) entry of the scoring table.
// Rules are additive and order-independent; keeping them in a table
// makes each independently testable and tunable.
type scoreRule struct {
	name   string
	weight int
	match  func(Features) bool
}

func scoringRules() []scoreRule {
	return []scoreRule{
		{"interactive tag", 10, func(f Features) bool {
			return f.TagName == "a" || f.TagName == "button" || f.TagName == "input"
		}},
		{"container tag", 5, func(f Features) bool {
			return f.TagName == "div" || f.TagName == "span" || f.TagName == "li"
		}},
		{"has href", 8, func(f Features) bool { return f.HrefAttr != "" }},
		{"clickable class/id", 5, func(f Features) bool {
			return clickAttrPattern.MatchString(f.ClassAttr) || clickAttrPattern.MatchString(f.IDAttr)
		}},
		{"short text", 3, func(f Features) bool {
			n := len(f.VisibleText)
			return n > 0 && n <= 50
		}},
		{"long text", -2, func(f Features) bool { return len(f.VisibleText) > 100 }},
		{"visible", 2, func(f Features) bool { return f.Visible }},
	}
}

// Ranker finds and orders pagination-control candidates. An optional
// SemanticClassifier augments the heuristic scan; its absence changes
// nothing structurally.
type Ranker struct {
	rules         []scoreRule
	classifier    SemanticClassifier
	minConfidence float64

	// classifier liveness is probed once per ranker lifetime;
	// unavailability silently disables augmentation.
	classifierProbed bool
	classifierAlive  bool
}

// NewRanker creates a ranker with the default scoring table. classifier
// may be nil.
func NewRanker(classifier SemanticClassifier, minConfidence float64) *Ranker {
	if minConfidence <= 0 {
		minConfidence = 0.3
	}
	return &Ranker{
		rules:         scoringRules(),
		classifier:    classifier,
		minConfidence: minConfidence,
	}
}

// Qualifies reports whether an element's features pass the candidate
// filter: CTA vocabulary in the visible text, pagination-flavored
// class/id/attribute values, or a data-load/data-more/data-next
// attribute.
func Qualifies(f Features) bool {
	text := strings.ToLower(f.VisibleText)
	for _, phrase := range ctaVocabulary {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	if paginationAttrPattern.MatchString(f.ClassAttr) || paginationAttrPattern.MatchString(f.IDAttr) {
		return true
	}
	return f.DataAttr
}

// Score applies the scoring table to a feature set.
func (r *Ranker) Score(f Features) int {
	score := 0
	for _, rule := range r.rules {
		if rule.match(f) {
			score += rule.weight
		}
	}
	return score
}

// Rank scans the page and returns candidates sorted by descending
// score, ties broken by DOM discovery order. Classifier suggestions,
// when available, are resolved to live elements and prepended,
// de-duplicated by node identity against the heuristic set.
func (r *Ranker) Rank(ctx context.Context, d Driver) ([]Candidate, error) {
	els, err := d.Query(ctx, candidateQuery)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, el := range els {
		var f Features
		if err := el.Eval(ctx, featureJS, &f); err != nil {
			// One broken element must not abort the scan.
			log.Warn("element evaluation failed, skipping candidate", "element", el.ID(), "error", err)
			continue
		}
		if !Qualifies(f) {
			continue
		}
		candidates = append(candidates, Candidate{
			Element:  el,
			Features: f,
			Score:    r.Score(f),
			Source:   "heuristic",
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return r.augment(ctx, d, candidates), nil
}

// augment prepends classifier-suggested candidates when the classifier
// is configured and alive. Any classifier failure skips augmentation
// for this call only; the heuristic ranking is returned unchanged.
func (r *Ranker) augment(ctx context.Context, d Driver, heuristic []Candidate) []Candidate {
	if r.classifier == nil {
		return heuristic
	}
	if !r.classifierProbed {
		r.classifierProbed = true
		r.classifierAlive = r.classifier.Alive(ctx)
		if !r.classifierAlive {
			log.Debug("semantic classifier unavailable, augmentation disabled")
		}
	}
	if !r.classifierAlive {
		return heuristic
	}

	var html, pageURL string
	if err := d.Evaluate(ctx, pageHTMLJS, &html); err != nil {
		log.Warn("page HTML capture for classifier failed", "error", err)
		return heuristic
	}
	if err := d.Evaluate(ctx, pageURLJS, &pageURL); err != nil {
		pageURL = ""
	}

	suggestions, err := r.classifier.FindNextButtons(ctx, html, pageURL)
	if err != nil {
		log.Warn("classifier call failed, using heuristic ranking only", "error", err)
		return heuristic
	}

	seen := make(map[string]bool, len(heuristic))
	for _, c := range heuristic {
		seen[c.Element.ID()] = true
	}

	var prepended []Candidate
	for _, s := range suggestions {
		if s.Confidence < r.minConfidence {
			continue
		}
		els, err := d.Query(ctx, s.Selector)
		if err != nil || len(els) == 0 {
			log.Debug("classifier selector resolved no elements", "selector", s.Selector)
			continue
		}
		el := els[0]
		if seen[el.ID()] {
			continue
		}
		seen[el.ID()] = true

		var f Features
		if err := el.Eval(ctx, featureJS, &f); err != nil {
			log.Warn("classifier candidate evaluation failed", "selector", s.Selector, "error", err)
			continue
		}
		prepended = append(prepended, Candidate{
			Element:  el,
			Features: f,
			Score:    r.Score(f),
			Source:   "classifier",
		})
	}

	if len(prepended) == 0 {
		return heuristic
	}
	return append(prepended, heuristic...)
}

const (
	pageHTMLJS = `document.documentElement.outerHTML`
	pageURLJS  = `window.location.href`
)
