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

// Package pagesnake discovers the full link inventory of pages that
// hide content behind "load more" buttons, "next" controls and
// infinite-scroll triggers. A crawl session loads one page in a real
// browser, repeatedly finds and activates the most likely pagination
// control, verifies that new content actually appeared, and folds every
// discovered link into an ordered, deduplicated catalog.
package pagesnake

import (
	"context"
	"errors"
)

var (
	// ErrNavigation is returned when the initial page load fails.
	// It is the only fatal error category: nothing has been collected yet.
	ErrNavigation = errors.New("navigation failed")
	// ErrActivationFailed is returned when every activation strategy
	// failed for the chosen candidate. The crawl stops but accumulated
	// results remain valid.
	ErrActivationFailed = errors.New("all activation strategies failed")
	// ErrSessionClosed is returned by driver operations after Close.
	ErrSessionClosed = errors.New("browser session closed")
	// ErrNoSuchElement is returned when an element handle no longer
	// resolves to a live DOM node.
	ErrNoSuchElement = errors.New("element not found in DOM")
)

// Driver is the capability surface the discovery engine needs from a
// browser binding. Implementations may swap engines freely; the engine
// never couples to a native binding's method names.
//
// All methods honor ctx for cancellation and per-call deadlines.
type Driver interface {
	// Navigate loads the given URL and waits for the document body
	// to be ready.
	Navigate(ctx context.Context, url string) error
	// Query returns live handles for all elements matching a CSS
	// selector. An empty result is not an error.
	Query(ctx context.Context, selector string) ([]Element, error)
	// Evaluate runs a JavaScript expression in the page and
	// unmarshals its JSON-serializable result into out.
	Evaluate(ctx context.Context, js string, out any) error
	// Execute runs a JavaScript expression fire-and-forget, for
	// actions whose result is irrelevant.
	Execute(ctx context.Context, js string) error
	// Close releases the browser session. It must be safe to call
	// more than once; only the first call tears the session down.
	Close() error
}

// Element is an opaque handle to a DOM node. Handles are only valid for
// the scan cycle that produced them: the DOM mutates between activation
// cycles, so features must be recomputed per scan.
type Element interface {
	// Text returns the node's visible text content.
	Text(ctx context.Context) (string, error)
	// TagName returns the lowercase tag name.
	TagName(ctx context.Context) (string, error)
	// Attribute returns the value of the named attribute, or "" if
	// the attribute is absent.
	Attribute(ctx context.Context, name string) (string, error)
	// Displayed reports whether the node is currently rendered
	// visible.
	Displayed(ctx context.Context) (bool, error)
	// Click performs a native interaction on the node.
	Click(ctx context.Context) error
	// Eval applies a JavaScript function of one argument to the
	// node and unmarshals the result into out. The fn source must
	// be a function expression, e.g. "function(el){ return el.id }".
	Eval(ctx context.Context, fn string, out any) error
	// ID returns a stable identity for the node within the current
	// document, used to de-duplicate candidates across sources.
	// Two handles refer to the same node iff their IDs are equal.
	ID() string
}
