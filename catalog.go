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
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gobwas/glob"
	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// LinkCategory classifies a discovered link relative to the crawl's
// registered domain.
type LinkCategory string

const (
	// CategoryInternal is a link to the same registered domain or a
	// subdomain of it.
	CategoryInternal LinkCategory = "internal"
	// CategoryExternal is a link to another http(s) host.
	CategoryExternal LinkCategory = "external"
	// CategoryOther is a non-http scheme (mailto:, javascript:,
	// data:) or an otherwise unclassifiable target.
	CategoryOther LinkCategory = "other"
)

// LinkRecord is a single discovered outbound link.
type LinkRecord struct {
	// URL is the resolved absolute URL (or the verbatim value for
	// data: URIs and other non-resolvable schemes).
	URL string `json:"url"`
	// Text is the anchor text.
	Text string `json:"text"`
	// Title is the anchor's title attribute.
	Title string `json:"title"`
	// Ordinal is the insertion position in the catalog, preserved
	// for display ordering.
	Ordinal int `json:"ordinal"`
	// Category classifies the link against the crawl domain.
	Category LinkCategory `json:"category"`
}

// SimpleLink is the projection handed to external consumers.
type SimpleLink struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Title string `json:"title"`
}

// CategoryCounts summarizes a catalog by link category.
type CategoryCounts struct {
	Internal int `json:"internal"`
	External int `json:"external"`
	Other    int `json:"other"`
}

// collectAnchorsJS snapshots every anchor-like element on the page along
// with the page URL, so relative hrefs can be resolved on the Go side.
const collectAnchorsJS = `(function __pagesnakeCollect() {
	var out = { page: window.location.href, anchors: [] };
	var els = document.querySelectorAll('a[href], area[href]');
	for (var i = 0; i < els.length; i++) {
		var el = els[i];
		out.anchors.push({
			href: el.getAttribute('href') || '',
			text: (el.innerText || el.textContent || '').trim(),
			title: el.getAttribute('title') || ''
		});
	}
	return out;
})()`

// anchorSnapshot is the JSON payload produced by collectAnchorsJS.
type anchorSnapshot struct {
	Page    string      `json:"page"`
	Anchors []rawAnchor `json:"anchors"`
}

type rawAnchor struct {
	Href  string `json:"href"`
	Text  string `json:"text"`
	Title string `json:"title"`
}

// Catalog is an ordered set of LinkRecord keyed by normalized URL.
// Insertion order is preserved for display; merges are idempotent.
type Catalog struct {
	domain  string
	records []LinkRecord
	index   map[string]int
	exclude []glob.Glob
}

// NewCatalog creates a catalog rooted at baseURL. The base URL's host
// decides internal/external classification. excludeGlobs are matched
// against resolved absolute URLs; matching links are dropped at
// collection time.
func NewCatalog(baseURL string, excludeGlobs []string) (*Catalog, error) {
	parsed, err := urlParser.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	compiled := make([]glob.Glob, 0, len(excludeGlobs))
	for _, pattern := range excludeGlobs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude glob %q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}

	return &Catalog{
		domain:  strings.ToLower(parsed.Hostname()),
		records: []LinkRecord{},
		index:   make(map[string]int),
		exclude: compiled,
	}, nil
}

// Domain returns the registered domain used for classification.
func (c *Catalog) Domain() string { return c.domain }

// Collect snapshots all anchors on the current page and returns them as
// records resolved against the page URL. It does not mutate the catalog;
// feed the result to Merge to learn the delta.
func (c *Catalog) Collect(ctx context.Context, d Driver) ([]LinkRecord, error) {
	var snap anchorSnapshot
	if err := d.Evaluate(ctx, collectAnchorsJS, &snap); err != nil {
		return nil, fmt.Errorf("anchor collection: %w", err)
	}

	records := make([]LinkRecord, 0, len(snap.Anchors))
	for _, a := range snap.Anchors {
		rec, ok := c.resolve(snap.Page, a)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// resolve turns a raw anchor into a record, or reports that the anchor
// should be dropped. Malformed URLs are dropped with a warning; data:
// URIs are kept verbatim without resolution.
func (c *Catalog) resolve(pageURL string, a rawAnchor) (LinkRecord, bool) {
	href := strings.TrimSpace(a.Href)
	if href == "" || strings.HasPrefix(href, "#") {
		return LinkRecord{}, false
	}

	if strings.HasPrefix(href, "data:") {
		return LinkRecord{URL: href, Text: a.Text, Title: a.Title, Category: CategoryOther}, true
	}

	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return LinkRecord{}, false
		}
	}

	resolved, err := urlParser.ParseRef(pageURL, href)
	if err != nil {
		log.Warn("dropping malformed href", "href", href, "page", pageURL, "error", err)
		return LinkRecord{}, false
	}
	abs := resolved.Href(false)

	for _, g := range c.exclude {
		if g.Match(abs) {
			return LinkRecord{}, false
		}
	}

	return LinkRecord{
		URL:      abs,
		Text:     a.Text,
		Title:    a.Title,
		Category: c.Classify(abs),
	}, true
}

// Classify categorizes an absolute URL against the catalog domain.
func (c *Catalog) Classify(absURL string) LinkCategory {
	parsed, err := urlParser.Parse(absURL)
	if err != nil {
		return CategoryOther
	}
	scheme := parsed.Scheme()
	if scheme != "http" && scheme != "https" {
		return CategoryOther
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return CategoryOther
	}
	if host == c.domain ||
		strings.HasSuffix(host, "."+c.domain) ||
		strings.HasSuffix(c.domain, "."+host) {
		return CategoryInternal
	}
	return CategoryExternal
}

// Merge folds records into the catalog and returns only the records
// whose normalized key was not previously present. Re-adding an
// existing URL is a no-op, so merges are idempotent.
func (c *Catalog) Merge(records []LinkRecord) []LinkRecord {
	var delta []LinkRecord
	for _, rec := range records {
		key := normalizeKey(rec.URL)
		if _, exists := c.index[key]; exists {
			continue
		}
		rec.Ordinal = len(c.records)
		c.index[key] = rec.Ordinal
		c.records = append(c.records, rec)
		delta = append(delta, rec)
	}
	return delta
}

// CollectAndMerge runs one collect pass and merges it, returning the
// newly discovered records.
func (c *Catalog) CollectAndMerge(ctx context.Context, d Driver) ([]LinkRecord, error) {
	records, err := c.Collect(ctx, d)
	if err != nil {
		return nil, err
	}
	return c.Merge(records), nil
}

// Len returns the number of unique links in the catalog.
func (c *Catalog) Len() int { return len(c.records) }

// Records returns the catalog contents in insertion order.
func (c *Catalog) Records() []LinkRecord {
	out := make([]LinkRecord, len(c.records))
	copy(out, c.records)
	return out
}

// ToSimpleList projects the catalog for external consumption.
func (c *Catalog) ToSimpleList() []SimpleLink {
	out := make([]SimpleLink, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, SimpleLink{URL: rec.URL, Text: rec.Text, Title: rec.Title})
	}
	return out
}

// Counts summarizes the catalog by category.
func (c *Catalog) Counts() CategoryCounts {
	var counts CategoryCounts
	for _, rec := range c.records {
		switch rec.Category {
		case CategoryInternal:
			counts.Internal++
		case CategoryExternal:
			counts.External++
		default:
			counts.Other++
		}
	}
	return counts
}

// normalizeKey canonicalizes a URL into the catalog's dedup key:
// scheme and host case-folded, default ports dropped, trailing slash
// trimmed so "/archive" and "/archive/" collide.
func normalizeKey(raw string) string {
	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return raw
	}
	key := parsed.Href(true)
	if strings.HasSuffix(key, "/") && strings.Count(key, "/") > 3 {
		key = strings.TrimSuffix(key, "/")
	}
	return key
}
