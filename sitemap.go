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
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/charmbracelet/log"
)

// maxSitemapDepth bounds sitemap-index recursion.
const maxSitemapDepth = 2

// SitemapSeeder discovers seed URLs from a site's sitemaps, so batch
// fetches can start from more than the links one crawl surfaced.
type SitemapSeeder struct {
	client    *http.Client
	userAgent string
}

// NewSitemapSeeder creates a seeder. userAgent may be empty.
func NewSitemapSeeder(userAgent string) *SitemapSeeder {
	if userAgent == "" {
		userAgent = NewDefaultBatchConfig().UserAgent
	}
	return &SitemapSeeder{
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: userAgent,
	}
}

// TryDefaults probes the conventional sitemap locations under baseURL
// and returns every page URL found. Missing or broken sitemaps are
// skipped, never fatal; an empty slice means nothing was found.
func (ss *SitemapSeeder) TryDefaults(ctx context.Context, baseURL string) []string {
	baseURL = strings.TrimSuffix(baseURL, "/")

	var all []string
	for _, location := range []string{baseURL + "/sitemap.xml", baseURL + "/sitemap_index.xml"} {
		urls, err := ss.Fetch(ctx, location)
		if err != nil {
			log.Debug("sitemap unavailable", "url", location, "error", err)
			continue
		}
		all = append(all, urls...)
	}
	return all
}

// Fetch retrieves one sitemap and returns its page URLs. Sitemap
// indexes are followed to their child sitemaps; a child that fails is
// skipped rather than failing the whole index.
func (ss *SitemapSeeder) Fetch(ctx context.Context, sitemapURL string) ([]string, error) {
	return ss.fetch(ctx, sitemapURL, 0)
}

func (ss *SitemapSeeder) fetch(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	if depth > maxSitemapDepth {
		return nil, fmt.Errorf("sitemap nesting too deep at %s", sitemapURL)
	}

	body, err := ss.get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}

	// A sitemap index nests <loc> under <sitemap>; a URL set nests it
	// under <url>.
	if children := xmlquery.Find(doc, "//*[local-name()='sitemap']/*[local-name()='loc']"); len(children) > 0 {
		var all []string
		for _, child := range children {
			loc := strings.TrimSpace(child.InnerText())
			if loc == "" {
				continue
			}
			urls, err := ss.fetch(ctx, loc, depth+1)
			if err != nil {
				log.Debug("child sitemap failed", "url", loc, "error", err)
				continue
			}
			all = append(all, urls...)
		}
		return all, nil
	}

	var urls []string
	for _, node := range xmlquery.Find(doc, "//*[local-name()='url']/*[local-name()='loc']") {
		if loc := strings.TrimSpace(node.InnerText()); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

func (ss *SitemapSeeder) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", ss.userAgent)

	resp, err := ss.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap %s returned status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
