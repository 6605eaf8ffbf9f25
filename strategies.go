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

	"github.com/charmbracelet/log"

	"github.com/agentberlin/pagesnake/internal/framework"
)

// Attempt records one strategy execution for diagnostics. Success means
// the interaction was issued without raising; whether content actually
// changed is the change detector's call.
type Attempt struct {
	StrategyID string
	Succeeded  bool
	Elapsed    time.Duration
	Err        error
}

// Strategy is one interaction technique for triggering a candidate.
type Strategy struct {
	ID  string
	Run func(ctx context.Context, d Driver, el Element) error
}

// Chain tries strategies in order until one completes without raising.
// Each strategy is independently timed and exception-isolated: a panic
// or error in one must not abort the rest of the chain.
type Chain struct {
	strategies []Strategy
}

// NewChain builds a chain from explicit strategies, mainly for tests.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// DefaultChain returns the production fallback chain, most robust
// technique first.
func DefaultChain() *Chain {
	return NewChain(
		Strategy{ID: "script-click", Run: scriptClick},
		Strategy{ID: "synthetic-events", Run: syntheticEvents},
		Strategy{ID: "force-visible", Run: forceVisibleClick},
		Strategy{ID: "native-click", Run: nativeClick},
		Strategy{ID: "framework-dispatch", Run: frameworkDispatch},
		Strategy{ID: "keyboard-activate", Run: keyboardActivate},
	)
}

// Activate runs the chain against one candidate. It returns the attempt
// log and nil on the first strategy that completes, or the full attempt
// log and ErrActivationFailed when every strategy raised.
func (c *Chain) Activate(ctx context.Context, d Driver, el Element) ([]Attempt, error) {
	attempts := make([]Attempt, 0, len(c.strategies))

	for _, s := range c.strategies {
		start := time.Now()
		err := runIsolated(ctx, d, el, s)
		elapsed := time.Since(start)

		attempts = append(attempts, Attempt{
			StrategyID: s.ID,
			Succeeded:  err == nil,
			Elapsed:    elapsed,
			Err:        err,
		})

		if err == nil {
			log.Debug("activation issued", "strategy", s.ID, "elapsed", elapsed)
			return attempts, nil
		}
		log.Debug("activation strategy failed", "strategy", s.ID, "elapsed", elapsed, "error", err)
	}

	return attempts, fmt.Errorf("%w: %d strategies tried", ErrActivationFailed, len(c.strategies))
}

// runIsolated executes one strategy, converting panics into errors so a
// misbehaving strategy cannot take the chain down.
func runIsolated(ctx context.Context, d Driver, el Element, s Strategy) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.ID, r)
		}
	}()
	return s.Run(ctx, d, el)
}

// scriptClick dispatches a synthetic click from script, fire-and-forget.
// Most robust against visibility and layout obstacles.
func scriptClick(ctx context.Context, d Driver, el Element) error {
	return el.Eval(ctx, `function(el){ el.click(); return true }`, nil)
}

// syntheticEvents dispatches a fully-populated mousedown/mouseup/click
// sequence, for handlers that ignore bare click().
func syntheticEvents(ctx context.Context, d Driver, el Element) error {
	return el.Eval(ctx, `function(el){
		var types = ['mousedown', 'mouseup', 'click'];
		for (var i = 0; i < types.length; i++) {
			el.dispatchEvent(new MouseEvent(types[i], {
				bubbles: true,
				cancelable: true,
				view: window,
				buttons: 1
			}));
		}
		return true;
	}`, nil)
}

// forceVisibleClick clears the usual hiding styles, scrolls the element
// into view, then dispatches a script click.
func forceVisibleClick(ctx context.Context, d Driver, el Element) error {
	return el.Eval(ctx, `function(el){
		el.style.display = '';
		el.style.visibility = 'visible';
		el.style.opacity = '1';
		el.style.pointerEvents = 'auto';
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	}`, nil)
}

// nativeClick performs a real pointer interaction, attempted only when
// the element reports itself visible.
func nativeClick(ctx context.Context, d Driver, el Element) error {
	visible, err := el.Displayed(ctx)
	if err != nil {
		return fmt.Errorf("visibility check: %w", err)
	}
	if !visible {
		return fmt.Errorf("element not visible, skipping native click")
	}
	return el.Click(ctx)
}

// frameworkDispatch delegates to the page's own event framework when
// one is detected, falling back to a plain dispatch otherwise.
func frameworkDispatch(ctx context.Context, d Driver, el Element) error {
	var html string
	if err := d.Evaluate(ctx, pageHTMLJS, &html); err != nil {
		return fmt.Errorf("page HTML for framework detection: %w", err)
	}
	fw := framework.NewDetector().Detect(html)

	switch fw {
	case framework.FrameworkJQuery:
		return el.Eval(ctx, `function(el){
			if (window.jQuery) { window.jQuery(el).trigger('click'); return true; }
			el.dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true, view: window}));
			return true;
		}`, nil)
	case framework.FrameworkReact, framework.FrameworkVue, framework.FrameworkAngular:
		// These frameworks attach delegated listeners that honor
		// bubbling synthetic events.
		return el.Eval(ctx, `function(el){
			el.dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true, view: window, buttons: 1}));
			return true;
		}`, nil)
	default:
		return el.Eval(ctx, `function(el){
			el.dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true, view: window}));
			return true;
		}`, nil)
	}
}

// keyboardActivate focuses the element and dispatches Enter and Space
// keydowns, for controls wired to keyboard activation.
func keyboardActivate(ctx context.Context, d Driver, el Element) error {
	return el.Eval(ctx, `function(el){
		el.focus();
		var keys = [
			{key: 'Enter', code: 'Enter', keyCode: 13},
			{key: ' ', code: 'Space', keyCode: 32}
		];
		for (var i = 0; i < keys.length; i++) {
			el.dispatchEvent(new KeyboardEvent('keydown', {
				key: keys[i].key,
				code: keys[i].code,
				keyCode: keys[i].keyCode,
				bubbles: true,
				cancelable: true
			}));
		}
		return true;
	}`, nil)
}
