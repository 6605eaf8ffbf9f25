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
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
	<title>  Archive — Page 1  </title>
	<link rel="canonical" href="https://example.com/archive" />
	<meta name="ROBOTS" content="NOINDEX, nofollow" />
</head>
<body>
	<h1>Archive</h1>
	<a href="/post/1" title="First">Post one</a>
	<a href="https://other.com/ref">Elsewhere</a>
</body>
</html>`

func TestFetchAllParsesPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			http.NotFound(w, r)
		case "/archive":
			fmt.Fprint(w, testPageHTML)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	bf := NewBatchFetcher(nil)
	results := bf.FetchAll(context.Background(), []string{srv.URL + "/archive"})
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}

	res := results[0]
	if res.Err != nil {
		t.Fatalf("fetch failed: %v", res.Err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
	if res.Title != "Archive — Page 1" {
		t.Errorf("title = %q", res.Title)
	}
	if res.Canonical != "https://example.com/archive" {
		t.Errorf("canonical = %q", res.Canonical)
	}
	if !res.NoIndex {
		t.Error("uppercase NOINDEX directive missed")
	}
	if res.ContentHash == "" {
		t.Error("content hash not computed")
	}

	if len(res.Links) != 2 {
		t.Fatalf("got %d links: %+v", len(res.Links), res.Links)
	}
	if res.Links[0].URL != srv.URL+"/post/1" || res.Links[0].Title != "First" {
		t.Errorf("relative link not resolved: %+v", res.Links[0])
	}
	if res.Links[1].URL != "https://other.com/ref" {
		t.Errorf("absolute link mangled: %+v", res.Links[1])
	}
}

func TestFetchAllPreservesInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		// Early pages respond slower, so completion order inverts
		// submission order.
		if r.URL.Path == "/page/0" {
			time.Sleep(50 * time.Millisecond)
		}
		fmt.Fprintf(w, "<html><title>%s</title></html>", r.URL.Path)
	}))
	defer srv.Close()

	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/page/%d", srv.URL, i)
	}

	bf := NewBatchFetcher(nil)
	results := bf.FetchAll(context.Background(), urls)
	for i, res := range results {
		if res.URL != urls[i] {
			t.Errorf("result %d is for %q, want %q", i, res.URL, urls[i])
		}
		if res.Title != fmt.Sprintf("/page/%d", i) {
			t.Errorf("result %d title = %q", i, res.Title)
		}
	}
}

func TestFetchAllRespectsRobots(t *testing.T) {
	var robotsFetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			robotsFetches.Add(1)
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		default:
			fmt.Fprint(w, "<html><title>ok</title></html>")
		}
	}))
	defer srv.Close()

	bf := NewBatchFetcher(nil)
	results := bf.FetchAll(context.Background(), []string{
		srv.URL + "/public",
		srv.URL + "/private/report",
		srv.URL + "/public/2",
	})

	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("allowed paths failed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("disallowed path was fetched")
	}
	if got := robotsFetches.Load(); got != 1 {
		t.Errorf("robots.txt fetched %d times, want 1 (cached)", got)
	}
}

func TestFetchAllIgnoreRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		fmt.Fprint(w, "<html><title>ok</title></html>")
	}))
	defer srv.Close()

	cfg := NewDefaultBatchConfig()
	cfg.IgnoreRobots = true
	bf := NewBatchFetcher(cfg)

	results := bf.FetchAll(context.Background(), []string{srv.URL + "/anything"})
	if results[0].Err != nil {
		t.Errorf("IgnoreRobots did not bypass the gate: %v", results[0].Err)
	}
}

func TestFetchAllErrorsDoNotAbortBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			http.NotFound(w, r)
		case "/missing":
			http.NotFound(w, r)
		default:
			fmt.Fprint(w, "<html><title>ok</title></html>")
		}
	}))
	defer srv.Close()

	bf := NewBatchFetcher(nil)
	results := bf.FetchAll(context.Background(), []string{
		srv.URL + "/good",
		srv.URL + "/missing",
		"http://127.0.0.1:1/unreachable",
		srv.URL + "/also-good",
	})

	if results[0].Err != nil || results[3].Err != nil {
		t.Errorf("good fetches failed: %v, %v", results[0].Err, results[3].Err)
	}
	if results[1].Err == nil || results[1].StatusCode != http.StatusNotFound {
		t.Errorf("404 result = %+v", results[1])
	}
	if results[2].Err == nil {
		t.Error("unreachable host produced no error")
	}
}

func TestFetchAllRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	cfg := NewDefaultBatchConfig()
	cfg.RequestTimeout = 50 * time.Millisecond
	bf := NewBatchFetcher(cfg)

	start := time.Now()
	results := bf.FetchAll(context.Background(), []string{srv.URL + "/slow"})
	if results[0].Err == nil {
		t.Fatal("slow response did not time out")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout not honored, took %v", elapsed)
	}
}

func TestFetchAllMaxBodySize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<html><title>big</title><body>%s</body></html>",
			strings.Repeat("a", 1<<20))
	}))
	defer srv.Close()

	cfg := NewDefaultBatchConfig()
	cfg.MaxBodySize = 1024
	bf := NewBatchFetcher(cfg)

	results := bf.FetchAll(context.Background(), []string{srv.URL + "/big"})
	if results[0].Err != nil {
		t.Fatalf("truncated fetch failed: %v", results[0].Err)
	}
	if results[0].Title != "big" {
		t.Errorf("title lost under truncation: %q", results[0].Title)
	}
}

func TestFetchAllSendsUserAgent(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		seen.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	cfg := NewDefaultBatchConfig()
	cfg.UserAgent = "pagesnake-test/0.1"
	bf := NewBatchFetcher(cfg)
	bf.FetchAll(context.Background(), []string{srv.URL + "/page"})

	if got, _ := seen.Load().(string); got != "pagesnake-test/0.1" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestDecodeDeclaredCharset(t *testing.T) {
	bf := NewBatchFetcher(nil)

	// "café" in ISO-8859-1: the é is byte 0xE9.
	latin1 := []byte{'c', 'a', 'f', 0xE9}
	decoded, err := bf.decode(latin1, "text/html; charset=iso-8859-1")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(decoded) != "café" {
		t.Errorf("decoded = %q, want café", decoded)
	}
}

func TestDecodeDetectsCharset(t *testing.T) {
	cfg := NewDefaultBatchConfig()
	cfg.DetectCharset = true
	bf := NewBatchFetcher(cfg)

	utf8 := []byte("<html><body>plain ascii stays intact</body></html>")
	decoded, err := bf.decode(utf8, "text/html")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(decoded) != string(utf8) {
		t.Errorf("ascii body altered by detection: %q", decoded)
	}
}
