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
	"strings"
	"sync"
	"time"
)

// fakeClock is a manually advanced clock; Sleep moves time forward
// instead of blocking.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (fc *fakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.now
}

func (fc *fakeClock) Sleep(_ context.Context, d time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.now = fc.now.Add(d)
}

// fakePage is the mutable page state a fakeDriver serves.
type fakePage struct {
	url     string
	anchors []rawAnchor
	blocks  map[string]int
}

// fakeDriver implements Driver against an in-memory page. JS evaluation
// is dispatched on the known script markers; element queries are served
// from a selector table.
type fakeDriver struct {
	mu       sync.Mutex
	page     fakePage
	elements map[string][]Element
	html     string

	navErr     error
	navigated  []string
	closeCalls int
	evalErr    error

	// onSignature runs under the driver lock before each signature
	// snapshot, letting tests mutate the page between detector polls.
	// sigErrUntil makes the first N signature measurements fail.
	sigCalls    int
	sigErrUntil int
	onSignature func(p *fakePage, call int)
}

func newFakeDriver(pageURL string) *fakeDriver {
	return &fakeDriver{
		page:     fakePage{url: pageURL, blocks: map[string]int{}},
		elements: map[string][]Element{},
	}
}

func (d *fakeDriver) setAnchors(anchors []rawAnchor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.page.anchors = anchors
}

func (d *fakeDriver) addAnchors(anchors ...rawAnchor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.page.anchors = append(d.page.anchors, anchors...)
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	return d.navErr
}

func (d *fakeDriver) Query(_ context.Context, selector string) ([]Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.elements[selector], nil
}

func (d *fakeDriver) Evaluate(_ context.Context, js string, out any) error {
	if d.evalErr != nil {
		return d.evalErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case strings.Contains(js, "__pagesnakeCollect"):
		return jsonInto(out, anchorSnapshot{Page: d.page.url, Anchors: d.page.anchors})
	case strings.Contains(js, "__pagesnakeSignature"):
		d.sigCalls++
		if d.sigCalls <= d.sigErrUntil {
			return fmt.Errorf("execution context destroyed")
		}
		if d.onSignature != nil {
			d.onSignature(&d.page, d.sigCalls)
		}
		hrefs := make([]string, 0, len(d.page.anchors))
		for _, a := range d.page.anchors {
			hrefs = append(hrefs, a.Href)
		}
		return jsonInto(out, signatureSnapshot{Page: d.page.url, Hrefs: hrefs, Blocks: d.page.blocks})
	case js == pageHTMLJS:
		return jsonInto(out, d.html)
	case js == pageURLJS:
		return jsonInto(out, d.page.url)
	default:
		return fmt.Errorf("fake driver: unrecognized script %q", js)
	}
}

func (d *fakeDriver) Execute(_ context.Context, js string) error {
	return nil
}

func (d *fakeDriver) Close() error {
	d.closeCalls++
	return nil
}

// jsonInto round-trips a value into out the way a real driver would
// unmarshal a JS evaluation result.
func jsonInto(out, value any) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// fakeElement implements Element from a fixed feature set. Eval serves
// featureJS from the features and treats any other function as an
// activation script, recorded and answered per evalErr.
type fakeElement struct {
	id       string
	features Features

	mu         sync.Mutex
	featureErr error
	evalErr    error
	clickErr   error
	evalCalls  []string
	clicks     int

	// onActivate runs on every non-feature Eval, letting tests mutate
	// the page as a click handler would.
	onActivate func()
}

func newFakeElement(id string, f Features) *fakeElement {
	return &fakeElement{id: id, features: f}
}

func (e *fakeElement) ID() string { return e.id }

func (e *fakeElement) Text(context.Context) (string, error) { return e.features.VisibleText, nil }

func (e *fakeElement) TagName(context.Context) (string, error) { return e.features.TagName, nil }

func (e *fakeElement) Attribute(_ context.Context, name string) (string, error) {
	switch name {
	case "class":
		return e.features.ClassAttr, nil
	case "id":
		return e.features.IDAttr, nil
	case "href":
		return e.features.HrefAttr, nil
	}
	return "", nil
}

func (e *fakeElement) Displayed(context.Context) (bool, error) { return e.features.Visible, nil }

func (e *fakeElement) Click(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks++
	if e.clickErr != nil {
		return e.clickErr
	}
	if e.onActivate != nil {
		e.onActivate()
	}
	return nil
}

func (e *fakeElement) Eval(_ context.Context, fn string, out any) error {
	if fn == featureJS {
		if e.featureErr != nil {
			return e.featureErr
		}
		return jsonInto(out, e.features)
	}
	e.mu.Lock()
	e.evalCalls = append(e.evalCalls, fn)
	err := e.evalErr
	hook := e.onActivate
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook()
	}
	return jsonInto(out, true)
}
