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
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestChainStopsAtFirstSuccess(t *testing.T) {
	var order []string
	mk := func(id string, err error) Strategy {
		return Strategy{ID: id, Run: func(context.Context, Driver, Element) error {
			order = append(order, id)
			return err
		}}
	}

	chain := NewChain(
		mk("first", errors.New("boom")),
		mk("second", nil),
		mk("third", nil),
	)

	d := newFakeDriver("https://example.com")
	el := newFakeElement("el", Features{})
	attempts, err := chain.Activate(context.Background(), d, el)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("execution order = %v", order)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Succeeded || !attempts[1].Succeeded {
		t.Errorf("attempt outcomes wrong: %+v", attempts)
	}
}

func TestChainAllFail(t *testing.T) {
	fail := func(id string) Strategy {
		return Strategy{ID: id, Run: func(context.Context, Driver, Element) error {
			return fmt.Errorf("%s failed", id)
		}}
	}
	chain := NewChain(fail("a"), fail("b"), fail("c"))

	d := newFakeDriver("https://example.com")
	attempts, err := chain.Activate(context.Background(), d, newFakeElement("el", Features{}))

	if !errors.Is(err, ErrActivationFailed) {
		t.Fatalf("expected ErrActivationFailed, got %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}
	for _, a := range attempts {
		if a.Succeeded || a.Err == nil {
			t.Errorf("attempt %s should carry its failure: %+v", a.StrategyID, a)
		}
	}
}

func TestChainIsolatesPanics(t *testing.T) {
	chain := NewChain(
		Strategy{ID: "panics", Run: func(context.Context, Driver, Element) error {
			panic("unexpected DOM state")
		}},
		Strategy{ID: "recovers", Run: func(context.Context, Driver, Element) error {
			return nil
		}},
	)

	d := newFakeDriver("https://example.com")
	attempts, err := chain.Activate(context.Background(), d, newFakeElement("el", Features{}))
	if err != nil {
		t.Fatalf("panic aborted the chain: %v", err)
	}
	if len(attempts) != 2 || attempts[0].Err == nil || !attempts[1].Succeeded {
		t.Fatalf("attempts = %+v", attempts)
	}
}

func TestDefaultChainScriptClickFirst(t *testing.T) {
	d := newFakeDriver("https://example.com")
	el := newFakeElement("el", Features{Visible: true})

	attempts, err := DefaultChain().Activate(context.Background(), d, el)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if len(attempts) != 1 || attempts[0].StrategyID != "script-click" {
		t.Fatalf("attempts = %+v", attempts)
	}
	if len(el.evalCalls) != 1 {
		t.Errorf("expected one script evaluation, got %d", len(el.evalCalls))
	}
}

func TestDefaultChainFallsThroughToNativeClick(t *testing.T) {
	d := newFakeDriver("https://example.com")
	el := newFakeElement("el", Features{Visible: true})
	// All script dispatch paths are broken; only the native click works.
	el.evalErr = errors.New("script dispatch blocked")

	attempts, err := DefaultChain().Activate(context.Background(), d, el)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	last := attempts[len(attempts)-1]
	if last.StrategyID != "native-click" || !last.Succeeded {
		t.Fatalf("expected native-click success, attempts = %+v", attempts)
	}
	if el.clicks != 1 {
		t.Errorf("native click count = %d, want 1", el.clicks)
	}
}

func TestNativeClickRequiresVisibility(t *testing.T) {
	d := newFakeDriver("https://example.com")
	el := newFakeElement("el", Features{Visible: false})

	if err := nativeClick(context.Background(), d, el); err == nil {
		t.Fatal("expected error for hidden element")
	}
	if el.clicks != 0 {
		t.Errorf("hidden element was clicked %d times", el.clicks)
	}
}

func TestFrameworkDispatchDetectsJQuery(t *testing.T) {
	d := newFakeDriver("https://example.com")
	d.html = `<html><head><script src="/js/jquery.min.js"></script></head><body></body></html>`
	el := newFakeElement("el", Features{})

	if err := frameworkDispatch(context.Background(), d, el); err != nil {
		t.Fatalf("frameworkDispatch failed: %v", err)
	}
	if len(el.evalCalls) != 1 {
		t.Fatalf("expected one dispatch evaluation, got %d", len(el.evalCalls))
	}
	// The jQuery path routes through the page's own trigger mechanism.
	if got := el.evalCalls[0]; !containsAll(got, "window.jQuery", "trigger") {
		t.Errorf("jQuery dispatch script missing trigger path:\n%s", got)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func TestKeyboardActivate(t *testing.T) {
	d := newFakeDriver("https://example.com")
	el := newFakeElement("el", Features{})

	if err := keyboardActivate(context.Background(), d, el); err != nil {
		t.Fatalf("keyboardActivate failed: %v", err)
	}
	if got := el.evalCalls[0]; !containsAll(got, "focus", "Enter", "Space") {
		t.Errorf("keyboard script incomplete:\n%s", got)
	}
}
