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

import "time"

// CrawlConfig configures a pagination crawl session. Pass nil to the
// constructor for defaults; zero-valued fields fall back individually.
type CrawlConfig struct {
	// ClickBudget is the maximum number of activation cycles per
	// session.
	ClickBudget int
	// ExcludeGlobs drops matching absolute URLs at collection time.
	ExcludeGlobs []string
	// Detector tunes change detection for this session.
	Detector DetectorConfig
	// RecollectPasses is the number of collect passes run after an
	// observed change. More than one pass absorbs asynchronous render
	// lag.
	RecollectPasses int
	// RecollectDelay is the pause between recollect passes.
	RecollectDelay time.Duration
	// Classifier optionally augments the heuristic ranker. Nil
	// disables augmentation.
	Classifier SemanticClassifier
	// MinClassifierConfidence filters classifier suggestions.
	MinClassifierConfidence float64
	// Chain overrides the activation strategy chain, mainly for tests.
	Chain *Chain
}

// NewDefaultCrawlConfig returns the default crawl configuration.
func NewDefaultCrawlConfig() *CrawlConfig {
	return &CrawlConfig{
		ClickBudget: 5,
		Detector: DetectorConfig{
			Timeout:     35 * time.Second,
			StableTicks: 3,
		},
		RecollectPasses:         2,
		RecollectDelay:          500 * time.Millisecond,
		MinClassifierConfidence: 0.3,
	}
}

// withDefaults fills unset fields from the default configuration.
func (c *CrawlConfig) withDefaults() *CrawlConfig {
	def := NewDefaultCrawlConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.ClickBudget <= 0 {
		out.ClickBudget = def.ClickBudget
	}
	if out.RecollectPasses <= 0 {
		out.RecollectPasses = def.RecollectPasses
	}
	if out.RecollectDelay <= 0 {
		out.RecollectDelay = def.RecollectDelay
	}
	if out.MinClassifierConfidence <= 0 {
		out.MinClassifierConfidence = def.MinClassifierConfidence
	}
	if out.Chain == nil {
		out.Chain = DefaultChain()
	}
	return &out
}
