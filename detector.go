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
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
)

// clock abstracts wall time so detector and crawler tests can run
// without real sleeps.
type clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Signature is a snapshot of the page's countable content, used only
// for before/after comparison within one activation cycle.
type Signature struct {
	TotalAnchors    int
	InternalAnchors int
	ExternalAnchors int
	// BlockCounts maps each tracked content-block selector to its
	// current match count.
	BlockCounts map[string]int
	// HrefHash is a digest over the ordered anchor hrefs, a cheap
	// equality check for in-place replacement.
	HrefHash uint64
}

// defaultBlockSelectors are the content-block shapes tracked by the
// signature in addition to raw anchor counts.
var defaultBlockSelectors = []string{
	"article", ".post", ".item", ".card", ".entry", ".result", ".product",
}

// signatureJS snapshots anchor hrefs and per-selector block counts in a
// single round trip.
const signatureJS = `(function __pagesnakeSignature(selectors) {
	var out = { page: window.location.href, hrefs: [], blocks: {} };
	var anchors = document.querySelectorAll('a[href], area[href]');
	for (var i = 0; i < anchors.length; i++) {
		out.hrefs.push(anchors[i].getAttribute('href') || '');
	}
	for (var j = 0; j < selectors.length; j++) {
		try {
			out.blocks[selectors[j]] = document.querySelectorAll(selectors[j]).length;
		} catch (e) {
			out.blocks[selectors[j]] = 0;
		}
	}
	return out;
})(%s)`

type signatureSnapshot struct {
	Page   string         `json:"page"`
	Hrefs  []string       `json:"hrefs"`
	Blocks map[string]int `json:"blocks"`
}

// DetectorConfig tunes the change detector. Zero values fall back to
// defaults in NewChangeDetector.
type DetectorConfig struct {
	// Timeout is the hard wall-clock deadline per Wait call.
	Timeout time.Duration
	// StableTicks is how many consecutive polls a differing anchor
	// count must hold before it counts as a change on its own.
	StableTicks int
	// BlockSelectors are the content-block selectors tracked by the
	// signature.
	BlockSelectors []string
	// IgnoreShrinkingCounts, when set, stops a drop below the baseline
	// anchor count from satisfying the stable-differing signal. The
	// default treats any stable differing count as change, shrinkage
	// included.
	IgnoreShrinkingCounts bool
}

// ChangeDetector decides whether an activation actually produced new
// content, by polling page signatures at an adaptive cadence.
type ChangeDetector struct {
	catalog *Catalog
	cfg     DetectorConfig
	clk     clock
}

// NewChangeDetector creates a detector bound to a catalog, which
// supplies the internal/external classification for anchor counts.
func NewChangeDetector(catalog *Catalog, cfg DetectorConfig) *ChangeDetector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 35 * time.Second
	}
	if cfg.StableTicks <= 0 {
		cfg.StableTicks = 3
	}
	if len(cfg.BlockSelectors) == 0 {
		cfg.BlockSelectors = defaultBlockSelectors
	}
	return &ChangeDetector{catalog: catalog, cfg: cfg, clk: systemClock{}}
}

// Snapshot computes the current page signature.
func (cd *ChangeDetector) Snapshot(ctx context.Context, d Driver) (Signature, error) {
	js := fmt.Sprintf(signatureJS, mustJSONStringSlice(cd.cfg.BlockSelectors))

	var snap signatureSnapshot
	if err := d.Evaluate(ctx, js, &snap); err != nil {
		return Signature{}, fmt.Errorf("signature measurement: %w", err)
	}

	sig := Signature{
		TotalAnchors: len(snap.Hrefs),
		BlockCounts:  snap.Blocks,
	}

	digest := xxhash.New()
	for _, href := range snap.Hrefs {
		digest.WriteString(href)
		digest.Write([]byte{0})

		rec, ok := cd.catalog.resolve(snap.Page, rawAnchor{Href: href})
		if !ok {
			continue
		}
		switch rec.Category {
		case CategoryInternal:
			sig.InternalAnchors++
		case CategoryExternal:
			sig.ExternalAnchors++
		}
	}
	sig.HrefHash = digest.Sum64()
	return sig, nil
}

// Wait polls until the page signature signals change or the timeout
// elapses. It returns true as soon as any signal fires:
//
//   - the total anchor count exceeds the baseline;
//   - any tracked content-block count increased;
//   - the anchor count differs from the baseline and has held that
//     differing value for StableTicks consecutive polls (in-place
//     replacement rather than net growth).
//
// Measurement errors are logged and treated as no signal for that tick.
// The timeout is a hard per-call deadline.
func (cd *ChangeDetector) Wait(ctx context.Context, d Driver, initial Signature) bool {
	start := cd.clk.Now()
	deadline := start.Add(cd.cfg.Timeout)

	var (
		stableValue = -1
		stableTicks = 0
	)

	for {
		now := cd.clk.Now()
		if !now.Before(deadline) || ctx.Err() != nil {
			return false
		}

		interval := pollInterval(now.Sub(start))
		if remaining := deadline.Sub(now); interval > remaining {
			interval = remaining
		}
		cd.clk.Sleep(ctx, interval)

		current, err := cd.Snapshot(ctx, d)
		if err != nil {
			log.Warn("signature measurement failed, no signal this tick", "error", err)
			continue
		}

		if current.TotalAnchors > initial.TotalAnchors {
			log.Debug("change detected: anchor growth",
				"before", initial.TotalAnchors, "after", current.TotalAnchors)
			return true
		}

		for sel, count := range current.BlockCounts {
			if count > initial.BlockCounts[sel] {
				log.Debug("change detected: content block growth",
					"selector", sel, "before", initial.BlockCounts[sel], "after", count)
				return true
			}
		}

		differs := current.TotalAnchors != initial.TotalAnchors ||
			current.HrefHash != initial.HrefHash
		if cd.cfg.IgnoreShrinkingCounts && current.TotalAnchors < initial.TotalAnchors {
			differs = false
		}
		if differs {
			if current.TotalAnchors == stableValue {
				stableTicks++
			} else {
				stableValue = current.TotalAnchors
				stableTicks = 1
			}
			if stableTicks >= cd.cfg.StableTicks {
				log.Debug("change detected: differing count held stable",
					"anchors", current.TotalAnchors, "ticks", stableTicks)
				return true
			}
		} else {
			stableValue = -1
			stableTicks = 0
		}
	}
}

// pollInterval returns the adaptive polling cadence: fast while a quick
// response is still likely, backing off as the wait drags on.
func pollInterval(elapsed time.Duration) time.Duration {
	switch {
	case elapsed < time.Second:
		return 200 * time.Millisecond
	case elapsed < 3*time.Second:
		return 500 * time.Millisecond
	case elapsed < 10*time.Second:
		return time.Second
	default:
		return 2 * time.Second
	}
}

// mustJSONStringSlice renders a string slice as a JS array literal for
// interpolation into evaluated snippets.
func mustJSONStringSlice(items []string) string {
	out := "["
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", s)
	}
	return out + "]"
}
