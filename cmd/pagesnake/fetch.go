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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	pagesnake "github.com/agentberlin/pagesnake"
	"github.com/agentberlin/pagesnake/internal/store"
)

type fetchFlags struct {
	runID         uint
	workers       int
	perDomain     int
	timeout       int
	ignoreRobots  bool
	detectCharset bool
	sitemap       string
	noSave        bool
}

func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)

	var flags fetchFlags
	var runID uint64
	fs.Uint64Var(&runID, "run-id", 0, "Fetch the internal links of a stored run")
	fs.IntVar(&flags.workers, "workers", 10, "Total concurrent fetches")
	fs.IntVar(&flags.workers, "w", 10, "Total concurrent fetches (shorthand)")
	fs.IntVar(&flags.perDomain, "per-domain", 2, "Concurrent fetches per domain")
	fs.IntVar(&flags.timeout, "timeout", 10, "Per-request timeout in seconds")
	fs.BoolVar(&flags.ignoreRobots, "ignore-robots", false, "Skip robots.txt checks")
	fs.BoolVar(&flags.detectCharset, "detect-charset", false, "Sniff response encodings without a declared charset")
	fs.StringVar(&flags.sitemap, "sitemap", "", "Seed URLs from the sitemaps under this base URL")
	fs.BoolVar(&flags.noSave, "no-save", false, "Print results without persisting pages")

	fs.Usage = func() {
		fmt.Println(`Usage: pagesnake fetch [flags] [url ...]

Batch-fetch known URLs without JavaScript. URLs come from arguments,
from a stored run (--run-id), or from a site's sitemaps (--sitemap).

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	flags.runID = uint(runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	urls := fs.Args()

	var st *store.Store
	if flags.runID > 0 || !flags.noSave {
		var err error
		st, err = store.NewStore()
		if err != nil {
			return fmt.Errorf("open store: %v", err)
		}
	}

	if flags.runID > 0 {
		links, err := st.LinksForRun(flags.runID)
		if err != nil {
			return err
		}
		for _, l := range links {
			if l.Category == string(pagesnake.CategoryInternal) {
				urls = append(urls, l.URL)
			}
		}
	}
	if flags.sitemap != "" {
		seeder := pagesnake.NewSitemapSeeder("")
		urls = append(urls, seeder.TryDefaults(ctx, flags.sitemap)...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs to fetch; pass URLs, --run-id, or --sitemap")
	}

	cfg := pagesnake.NewDefaultBatchConfig()
	cfg.Workers = flags.workers
	cfg.PerDomain = flags.perDomain
	cfg.RequestTimeout = time.Duration(flags.timeout) * time.Second
	cfg.IgnoreRobots = flags.ignoreRobots
	cfg.DetectCharset = flags.detectCharset

	fetcher := pagesnake.NewBatchFetcher(cfg)
	results := fetcher.FetchAll(ctx, urls)

	pages := make([]store.Page, 0, len(results))
	failed := 0
	for _, r := range results {
		status := fmt.Sprintf("%d", r.StatusCode)
		if r.Err != nil {
			status = r.Err.Error()
			failed++
		}
		fmt.Printf("  %-60s %s\t%s\n", r.URL, status, r.Title)

		page := store.Page{
			RunID:       flags.runID,
			URL:         r.URL,
			StatusCode:  r.StatusCode,
			Title:       r.Title,
			Canonical:   r.Canonical,
			NoIndex:     r.NoIndex,
			ContentHash: r.ContentHash,
		}
		if r.Err != nil {
			page.FetchError = r.Err.Error()
		}
		pages = append(pages, page)
	}
	fmt.Printf("Fetched %d pages, %d failed\n", len(pages)-failed, failed)

	if flags.noSave {
		return nil
	}
	return st.SavePages(pages)
}
