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
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	pagesnake "github.com/agentberlin/pagesnake"
	"github.com/agentberlin/pagesnake/internal/store"
)

type discoverFlags struct {
	budget     int
	exclude    string
	headful    bool
	timeout    int
	classifier string
	noSave     bool
	verbose    bool
}

func runDiscover(args []string) error {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)

	var flags discoverFlags
	fs.IntVar(&flags.budget, "budget", 5, "Maximum number of load-more activations")
	fs.IntVar(&flags.budget, "b", 5, "Maximum number of load-more activations (shorthand)")
	fs.StringVar(&flags.exclude, "exclude", "", "Comma-separated URL glob patterns to drop")
	fs.BoolVar(&flags.headful, "headful", false, "Run Chrome with a visible window")
	fs.IntVar(&flags.timeout, "change-timeout", 35, "Seconds to wait for content change after an activation")
	fs.StringVar(&flags.classifier, "classifier", "", "Base URL of an LLM classifier endpoint (optional)")
	fs.BoolVar(&flags.noSave, "no-save", false, "Print results without persisting the run")
	fs.BoolVar(&flags.verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Println(`Usage: pagesnake discover <url> [flags]

Run a pagination discovery crawl on the given URL.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("missing URL argument")
	}
	url := fs.Arg(0)

	if flags.verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chromeCfg := pagesnake.NewDefaultChromeConfig()
	chromeCfg.Headless = !flags.headful
	driver, err := pagesnake.NewChromeDriver(chromeCfg)
	if err != nil {
		return err
	}

	crawlCfg := pagesnake.NewDefaultCrawlConfig()
	crawlCfg.ClickBudget = flags.budget
	crawlCfg.Detector.Timeout = time.Duration(flags.timeout) * time.Second
	if flags.exclude != "" {
		crawlCfg.ExcludeGlobs = strings.Split(flags.exclude, ",")
	}
	if flags.classifier != "" {
		crawlCfg.Classifier = pagesnake.NewLlamaClassifier(flags.classifier)
	}

	crawler, err := pagesnake.NewCrawler(driver, url, crawlCfg)
	if err != nil {
		driver.Close()
		return err
	}

	result, err := crawler.Run(ctx, url)
	if err != nil {
		return err
	}

	fmt.Printf("Discovered %d links (%d internal, %d external, %d other) in %d clicks; final state: %s\n",
		len(result.Links), result.Counts.Internal, result.Counts.External,
		result.Counts.Other, result.ClicksUsed, result.FinalState)
	for _, link := range result.Links {
		fmt.Printf("  %s\t%s\n", link.URL, link.Text)
	}

	if flags.noSave {
		return nil
	}
	return saveRun(url, flags.budget, result)
}

func saveRun(baseURL string, budget int, result *pagesnake.Result) error {
	st, err := store.NewStore()
	if err != nil {
		return fmt.Errorf("open store: %v", err)
	}

	catalog, err := pagesnake.NewCatalog(baseURL, nil)
	if err != nil {
		return err
	}

	run := &store.Run{
		BaseURL:       baseURL,
		Domain:        catalog.Domain(),
		ClickBudget:   budget,
		ClicksUsed:    result.ClicksUsed,
		FinalState:    string(result.FinalState),
		InternalCount: result.Counts.Internal,
		ExternalCount: result.Counts.External,
		OtherCount:    result.Counts.Other,
	}
	for i, link := range result.Links {
		run.Links = append(run.Links, store.Link{
			URL:      link.URL,
			Text:     link.Text,
			Title:    link.Title,
			Ordinal:  i,
			Category: string(catalog.Classify(link.URL)),
		})
	}

	id, err := st.CreateRun(run)
	if err != nil {
		return err
	}
	fmt.Printf("Saved run %d\n", id)
	return nil
}
