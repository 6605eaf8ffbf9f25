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
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// ChromeConfig controls the headless Chrome session backing ChromeDriver.
type ChromeConfig struct {
	// Headless runs Chrome without a visible window. Default: true.
	Headless bool
	// OpTimeout is the per-operation deadline applied to every
	// driver call. Default: 30s.
	OpTimeout time.Duration
	// NavigateWaitMs is an extra settle delay after the body is
	// ready, giving client-side frameworks time to hydrate links.
	// Default: 1500ms.
	NavigateWaitMs int
}

// ChromeDriver implements Driver over a headless Chrome session via
// chromedp. The session (one allocator, one tab) is exclusively owned
// by a single crawl; Close releases it.
type ChromeDriver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	opTimeout   time.Duration
	waitMs      int

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

// NewDefaultChromeConfig returns the default Chrome session settings.
func NewDefaultChromeConfig() *ChromeConfig {
	return &ChromeConfig{Headless: true, OpTimeout: 30 * time.Second, NavigateWaitMs: 1500}
}

// NewChromeDriver starts a headless Chrome session. The caller owns the
// session and must call Close on every exit path.
func NewChromeDriver(config *ChromeConfig) (*ChromeDriver, error) {
	if config == nil {
		config = NewDefaultChromeConfig()
	}
	if config.OpTimeout == 0 {
		config.OpTimeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	d := &ChromeDriver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		opTimeout:   config.OpTimeout,
		waitMs:      config.NavigateWaitMs,
	}

	// Spin the browser up eagerly so a missing Chrome binary fails here
	// instead of on first Navigate.
	ctx, cancel := context.WithTimeout(tabCtx, config.OpTimeout)
	defer cancel()
	if err := chromedp.Run(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("chrome not available: %w", err)
	}
	return d, nil
}

// opCtx derives a per-operation context bounded by both the caller's ctx
// and the configured operation timeout.
func (d *ChromeDriver) opCtx(ctx context.Context) (context.Context, context.CancelFunc, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, nil, ErrSessionClosed
	}
	opCtx, cancel := context.WithTimeout(d.tabCtx, d.opTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() { stop(); cancel() }, nil
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	opCtx, cancel, err := d.opCtx(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if d.waitMs > 0 {
		actions = append(actions, chromedp.Sleep(time.Duration(d.waitMs)*time.Millisecond))
	}
	if err := chromedp.Run(opCtx, actions...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	return nil
}

func (d *ChromeDriver) Query(ctx context.Context, selector string) ([]Element, error) {
	opCtx, cancel, err := d.opCtx(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(opCtx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromeElement{drv: d, node: n, xpath: n.FullXPath()})
	}
	return els, nil
}

func (d *ChromeDriver) Evaluate(ctx context.Context, js string, out any) error {
	opCtx, cancel, err := d.opCtx(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return chromedp.Run(opCtx, chromedp.Evaluate(js, out))
}

func (d *ChromeDriver) Execute(ctx context.Context, js string) error {
	opCtx, cancel, err := d.opCtx(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return chromedp.Run(opCtx, chromedp.Evaluate(js, nil))
}

// Close tears down the tab and the browser allocator. Safe to call more
// than once.
func (d *ChromeDriver) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		if d.tabCancel != nil {
			d.tabCancel()
		}
		if d.allocCancel != nil {
			d.allocCancel()
		}
	})
	return nil
}

// chromeElement is an Element backed by a cdp node. Identity is the full
// XPath at query time; handles go stale once the DOM mutates, which is
// fine because candidates are recomputed every scan cycle.
type chromeElement struct {
	drv   *ChromeDriver
	node  *cdp.Node
	xpath string
}

func (e *chromeElement) ID() string { return e.xpath }

// selfJS wraps a caller-supplied function expression so it runs against
// the node this handle was created from, resolved by XPath.
func (e *chromeElement) selfJS(fn string) string {
	return fmt.Sprintf(`(function() {
		var el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el) { return null; }
		return (%s)(el);
	})()`, e.xpath, fn)
}

func (e *chromeElement) Eval(ctx context.Context, fn string, out any) error {
	return e.drv.Evaluate(ctx, e.selfJS(fn), out)
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var s string
	err := e.Eval(ctx, `function(el){ return (el.innerText || el.textContent || '').trim() }`, &s)
	return s, err
}

func (e *chromeElement) TagName(ctx context.Context) (string, error) {
	var s string
	err := e.Eval(ctx, `function(el){ return el.tagName.toLowerCase() }`, &s)
	return s, err
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, error) {
	var s string
	fn := fmt.Sprintf(`function(el){ return el.getAttribute(%q) || '' }`, name)
	err := e.Eval(ctx, fn, &s)
	return s, err
}

func (e *chromeElement) Displayed(ctx context.Context) (bool, error) {
	var visible bool
	err := e.Eval(ctx, `function(el){
		if (!(el.offsetWidth || el.offsetHeight || el.getClientRects().length)) { return false; }
		var style = window.getComputedStyle(el);
		return style.visibility !== 'hidden' && style.display !== 'none' && style.opacity !== '0';
	}`, &visible)
	return visible, err
}

func (e *chromeElement) Click(ctx context.Context) error {
	opCtx, cancel, err := e.drv.opCtx(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return chromedp.Run(opCtx, chromedp.MouseClickNode(e.node))
}
