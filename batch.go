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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/charmbracelet/log"
	"github.com/saintfish/chardet"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
)

// BatchConfig configures the parallel fetch of already-known URLs.
// This path runs no JavaScript and shares no DOM, so it may fan out;
// the pagination crawl never uses it.
type BatchConfig struct {
	// Workers is the total goroutine fan-out.
	Workers int
	// PerDomain caps concurrent requests per host.
	PerDomain int
	// RequestTimeout applies per request. There is no automatic retry;
	// retry policy belongs to the caller.
	RequestTimeout time.Duration
	// UserAgent identifies the fetcher to origin servers and to
	// robots.txt matching.
	UserAgent string
	// MaxBodySize truncates response bodies. 0 means the default.
	MaxBodySize int64
	// IgnoreRobots skips the robots.txt gate.
	IgnoreRobots bool
	// DetectCharset sniffs the encoding of responses that declare
	// none, instead of assuming UTF-8.
	DetectCharset bool
}

// NewDefaultBatchConfig returns the default batch configuration.
func NewDefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		Workers:        10,
		PerDomain:      2,
		RequestTimeout: 10 * time.Second,
		UserAgent:      "pagesnake/1.0 (+https://github.com/agentberlin/pagesnake)",
		MaxBodySize:    10 * 1024 * 1024,
	}
}

// PageResult is the outcome of one batch fetch.
type PageResult struct {
	URL         string       `json:"url"`
	StatusCode  int          `json:"statusCode"`
	Title       string       `json:"title"`
	Canonical   string       `json:"canonical"`
	NoIndex     bool         `json:"noIndex"`
	ContentHash string       `json:"contentHash"`
	Links       []SimpleLink `json:"links"`
	Err         error        `json:"-"`
}

// BatchFetcher fetches many known URLs across a bounded worker pool
// keyed by domain. Robots decisions are cached per host.
type BatchFetcher struct {
	cfg    *BatchConfig
	client *http.Client

	robotsMu sync.Mutex
	robots   map[string]*robotstxt.RobotsData
}

// NewBatchFetcher creates a fetcher. config may be nil for defaults.
func NewBatchFetcher(config *BatchConfig) *BatchFetcher {
	if config == nil {
		config = NewDefaultBatchConfig()
	}
	if config.Workers <= 0 {
		config.Workers = 10
	}
	if config.PerDomain <= 0 {
		config.PerDomain = 2
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 10 * 1024 * 1024
	}
	return &BatchFetcher{
		cfg:    config,
		client: &http.Client{},
		robots: make(map[string]*robotstxt.RobotsData),
	}
}

// FetchAll fetches every URL and returns results in input order. A
// failed fetch yields a result with Err set; it never aborts the batch.
func (bf *BatchFetcher) FetchAll(ctx context.Context, urls []string) []PageResult {
	results := make([]PageResult, len(urls))
	limiter := newDomainLimiter(bf.cfg.PerDomain)
	pool := newWorkerPool(ctx, bf.cfg.Workers, len(urls))

	for i, u := range urls {
		i, u := i, u
		err := pool.submit(func() {
			results[i] = bf.fetchOne(ctx, limiter, u)
		})
		if err != nil {
			results[i] = PageResult{URL: u, Err: err}
		}
	}
	pool.close()
	return results
}

func (bf *BatchFetcher) fetchOne(ctx context.Context, limiter *domainLimiter, rawURL string) PageResult {
	result := PageResult{URL: rawURL}

	parsed, err := urlParser.Parse(rawURL)
	if err != nil {
		result.Err = fmt.Errorf("invalid URL: %w", err)
		return result
	}
	host := parsed.Hostname()

	release, err := limiter.acquire(ctx, host)
	if err != nil {
		result.Err = err
		return result
	}
	defer release()

	if !bf.cfg.IgnoreRobots && !bf.allowed(ctx, parsed.Scheme(), host, parsed.Pathname()) {
		result.Err = fmt.Errorf("disallowed by robots.txt")
		return result
	}

	reqCtx, cancel := context.WithTimeout(ctx, bf.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Err = err
		return result
	}
	req.Header.Set("User-Agent", bf.cfg.UserAgent)

	resp, err := bf.client.Do(req)
	if err != nil {
		result.Err = fmt.Errorf("fetch: %w", err)
		return result
	}
	defer resp.Body.Close()
	result.StatusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Errorf("status %d", resp.StatusCode)
		return result
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bf.cfg.MaxBodySize))
	if err != nil {
		result.Err = fmt.Errorf("read body: %w", err)
		return result
	}

	body, err = bf.decode(body, resp.Header.Get("Content-Type"))
	if err != nil {
		result.Err = fmt.Errorf("decode body: %w", err)
		return result
	}

	bf.parse(&result, rawURL, body)
	return result
}

// allowed consults the host's robots.txt, fetching and caching it on
// first contact. Unreachable or unparsable robots files allow all, per
// the de-facto crawler convention.
func (bf *BatchFetcher) allowed(ctx context.Context, scheme, host, path string) bool {
	bf.robotsMu.Lock()
	data, ok := bf.robots[host]
	bf.robotsMu.Unlock()

	if !ok {
		data = bf.fetchRobots(ctx, scheme, host)
		bf.robotsMu.Lock()
		bf.robots[host] = data
		bf.robotsMu.Unlock()
	}
	if data == nil {
		return true
	}
	return data.TestAgent(path, bf.cfg.UserAgent)
}

func (bf *BatchFetcher) fetchRobots(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	reqCtx, cancel := context.WithTimeout(ctx, bf.cfg.RequestTimeout)
	defer cancel()

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", bf.cfg.UserAgent)

	resp, err := bf.client.Do(req)
	if err != nil {
		log.Debug("robots.txt unreachable, allowing all", "host", host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.Debug("robots.txt unparsable, allowing all", "host", host, "error", err)
		return nil
	}
	return data
}

// decode converts the body to UTF-8. A declared charset in the
// Content-Type wins; otherwise, when detection is enabled, the encoding
// is sniffed from the bytes.
func (bf *BatchFetcher) decode(body []byte, contentType string) ([]byte, error) {
	if strings.Contains(strings.ToLower(contentType), "charset") {
		r, err := charset.NewReader(bytes.NewReader(body), contentType)
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	}
	if !bf.cfg.DetectCharset {
		return body, nil
	}

	detected, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || detected.Charset == "UTF-8" {
		return body, nil
	}
	r, err := charset.NewReaderLabel(detected.Charset, bytes.NewReader(body))
	if err != nil {
		return body, nil
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body, nil
	}
	return decoded, nil
}

// parse extracts the title, anchors, canonical URL, meta robots and
// content hash from a fetched page.
func (bf *BatchFetcher) parse(result *PageResult, pageURL string, body []byte) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		result.Err = fmt.Errorf("parse HTML: %w", err)
		return
	}

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved, err := urlParser.ParseRef(pageURL, strings.TrimSpace(href))
		if err != nil {
			return
		}
		title, _ := s.Attr("title")
		result.Links = append(result.Links, SimpleLink{
			URL:   resolved.Href(false),
			Text:  strings.TrimSpace(s.Text()),
			Title: title,
		})
	})

	if node, err := htmlquery.Parse(bytes.NewReader(body)); err == nil {
		if canonical := htmlquery.FindOne(node, `//link[@rel="canonical"]/@href`); canonical != nil {
			result.Canonical = htmlquery.InnerText(canonical)
		}
		if meta := htmlquery.FindOne(node, `//meta[translate(@name,"ROBOTS","robots")="robots"]/@content`); meta != nil {
			result.NoIndex = strings.Contains(strings.ToLower(htmlquery.InnerText(meta)), "noindex")
		}
	}

	if hash, err := PageHash(body); err == nil {
		result.ContentHash = hash
	}
}
