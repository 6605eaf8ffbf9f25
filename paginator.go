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
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// State is the crawl session's position in its lifecycle.
type State string

const (
	StateInitialized State = "initialized"
	StateLoaded      State = "loaded"
	StateScanning    State = "scanning"
	StateActivating  State = "activating"
	StateWaiting     State = "waiting"
	StateMerging     State = "merging"
	StateExhausted   State = "exhausted"
	StateFailed      State = "failed"
)

// Terminal reports whether the state ends the crawl loop.
func (s State) Terminal() bool {
	return s == StateExhausted || s == StateFailed
}

// Result is what a crawl returns to its host: the accumulated links in
// discovery order plus summary counts. Exhausted and Failed are both
// successful terminations; they differ only in why the loop stopped.
type Result struct {
	Links      []SimpleLink   `json:"links"`
	Counts     CategoryCounts `json:"counts"`
	ClicksUsed int            `json:"clicksUsed"`
	FinalState State          `json:"finalState"`
}

// Crawler drives one pagination crawl session. It exclusively owns its
// driver for the session's lifetime and releases it on every exit path.
type Crawler struct {
	cfg      *CrawlConfig
	driver   Driver
	catalog  *Catalog
	ranker   *Ranker
	detector *ChangeDetector
	clk      clock

	state      State
	clicksUsed int

	closeOnce sync.Once
	closeErr  error
}

// NewCrawler creates a crawl session over driver rooted at baseURL.
// config may be nil for defaults. The crawler takes ownership of the
// driver; Run (or Close) releases it.
func NewCrawler(driver Driver, baseURL string, config *CrawlConfig) (*Crawler, error) {
	cfg := config.withDefaults()

	catalog, err := NewCatalog(baseURL, cfg.ExcludeGlobs)
	if err != nil {
		return nil, err
	}

	return &Crawler{
		cfg:      cfg,
		driver:   driver,
		catalog:  catalog,
		ranker:   NewRanker(cfg.Classifier, cfg.MinClassifierConfidence),
		detector: NewChangeDetector(catalog, cfg.Detector),
		clk:      systemClock{},
		state:    StateInitialized,
	}, nil
}

// State returns the session's current state.
func (cr *Crawler) State() State { return cr.state }

// Close releases the browser session. Safe to call more than once; only
// the first call tears the session down.
func (cr *Crawler) Close() error {
	cr.closeOnce.Do(func() {
		cr.closeErr = cr.driver.Close()
	})
	return cr.closeErr
}

// Run executes the crawl to a terminal state and returns the
// accumulated catalog. The driver is released on every exit path. The
// only error Run surfaces is a failed initial navigation; activation
// and detection failures terminate the loop but still return the
// partial result.
func (cr *Crawler) Run(ctx context.Context, url string) (*Result, error) {
	defer cr.Close()

	if err := cr.load(ctx, url); err != nil {
		cr.transition(StateFailed)
		return cr.result(), err
	}

	for !cr.state.Terminal() {
		cr.step(ctx)
	}
	log.Info("crawl finished",
		"state", cr.state, "links", cr.catalog.Len(), "clicks", cr.clicksUsed)
	return cr.result(), nil
}

// load navigates to the base URL and runs the initial collection.
func (cr *Crawler) load(ctx context.Context, url string) error {
	if err := cr.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	cr.transition(StateLoaded)

	initial, err := cr.catalog.CollectAndMerge(ctx, cr.driver)
	if err != nil {
		return fmt.Errorf("%w: initial collection: %v", ErrNavigation, err)
	}
	log.Info("initial collection",
		"url", url, "links", len(initial), "counts", cr.catalog.Counts())
	return nil
}

// step advances the state machine by one scan/activate/wait/merge
// cycle, or into a terminal state.
func (cr *Crawler) step(ctx context.Context) {
	cr.transition(StateScanning)
	candidates, err := cr.ranker.Rank(ctx, cr.driver)
	if err != nil {
		log.Warn("candidate scan failed", "error", err)
		cr.transition(StateExhausted)
		return
	}
	if len(candidates) == 0 {
		log.Info("no qualifying candidates remain")
		cr.transition(StateExhausted)
		return
	}
	best := candidates[0]
	log.Debug("candidate chosen",
		"tag", best.Features.TagName, "text", best.Features.VisibleText,
		"score", best.Score, "source", best.Source)

	// The baseline must precede the activation or change can never be
	// observed against it.
	before, err := cr.detector.Snapshot(ctx, cr.driver)
	if err != nil {
		log.Warn("baseline signature failed", "error", err)
		cr.transition(StateExhausted)
		return
	}

	cr.transition(StateActivating)
	attempts, err := cr.cfg.Chain.Activate(ctx, cr.driver, best.Element)
	if err != nil {
		log.Warn("activation exhausted all strategies",
			"attempts", len(attempts), "error", err)
		cr.transition(StateFailed)
		return
	}

	cr.transition(StateWaiting)
	if !cr.detector.Wait(ctx, cr.driver, before) {
		log.Info("no content change observed after activation")
		cr.transition(StateExhausted)
		return
	}

	cr.transition(StateMerging)
	cr.merge(ctx)
	cr.clicksUsed++

	if cr.clicksUsed >= cr.cfg.ClickBudget {
		log.Info("click budget exhausted", "budget", cr.cfg.ClickBudget)
		cr.transition(StateExhausted)
	}
}

// merge runs the configured number of recollect passes with a short
// delay between them, absorbing asynchronous rendering, then logs the
// categorized delta.
func (cr *Crawler) merge(ctx context.Context) {
	var delta []LinkRecord
	for pass := 0; pass < cr.cfg.RecollectPasses; pass++ {
		if pass > 0 {
			cr.clk.Sleep(ctx, cr.cfg.RecollectDelay)
		}
		fresh, err := cr.catalog.CollectAndMerge(ctx, cr.driver)
		if err != nil {
			log.Warn("recollect pass failed", "pass", pass, "error", err)
			continue
		}
		delta = append(delta, fresh...)
	}

	var internal, external, other int
	for _, rec := range delta {
		switch rec.Category {
		case CategoryInternal:
			internal++
		case CategoryExternal:
			external++
		default:
			other++
		}
	}
	log.Info("merged new links",
		"new", len(delta), "internal", internal, "external", external,
		"other", other, "total", cr.catalog.Len())
}

func (cr *Crawler) transition(to State) {
	log.Debug("state transition", "from", cr.state, "to", to)
	cr.state = to
}

func (cr *Crawler) result() *Result {
	return &Result{
		Links:      cr.catalog.ToSimpleList(),
		Counts:     cr.catalog.Counts(),
		ClicksUsed: cr.clicksUsed,
		FinalState: cr.state,
	}
}
