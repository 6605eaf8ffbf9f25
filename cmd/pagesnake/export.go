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
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kennygrant/sanitize"

	"github.com/agentberlin/pagesnake/internal/store"
)

// Exporter writes a stored run's links to disk
type Exporter struct {
	store     *store.Store
	runID     uint
	outputDir string
	format    string
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	var runID uint64
	var outputDir, format string
	fs.Uint64Var(&runID, "run-id", 0, "ID of the run to export")
	fs.StringVar(&outputDir, "output", ".", "Output directory")
	fs.StringVar(&outputDir, "o", ".", "Output directory (shorthand)")
	fs.StringVar(&format, "format", "json", "Output format: json, csv")
	fs.StringVar(&format, "f", "json", "Output format (shorthand)")

	fs.Usage = func() {
		fmt.Println(`Usage: pagesnake export --run-id <id> [flags]

Export a stored run's links to JSON or CSV.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if runID == 0 {
		fs.Usage()
		return fmt.Errorf("--run-id is required")
	}
	if format != "json" && format != "csv" {
		return fmt.Errorf("unsupported format %q (supported: json, csv)", format)
	}

	st, err := store.NewStore()
	if err != nil {
		return fmt.Errorf("open store: %v", err)
	}

	e := &Exporter{
		store:     st,
		runID:     uint(runID),
		outputDir: outputDir,
		format:    format,
	}
	return e.Export()
}

// Export writes the run's links and summary to the output directory.
func (e *Exporter) Export() error {
	run, err := e.store.GetRun(e.runID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	base := fmt.Sprintf("links_%s_run%d", sanitize.BaseName(run.Domain), run.ID)

	var path string
	if e.format == "json" {
		path = filepath.Join(e.outputDir, base+".json")
		err = e.exportJSON(path, run)
	} else {
		path = filepath.Join(e.outputDir, base+".csv")
		err = e.exportCSV(path, run)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d links to %s\n", len(run.Links), path)
	return nil
}

func (e *Exporter) exportJSON(path string, run *store.Run) error {
	output := struct {
		RunID      uint         `json:"runId"`
		BaseURL    string       `json:"baseUrl"`
		Domain     string       `json:"domain"`
		FinalState string       `json:"finalState"`
		ClicksUsed int          `json:"clicksUsed"`
		ExportedAt string       `json:"exportedAt"`
		TotalLinks int          `json:"totalLinks"`
		Links      []store.Link `json:"links"`
	}{
		RunID:      run.ID,
		BaseURL:    run.BaseURL,
		Domain:     run.Domain,
		FinalState: run.FinalState,
		ClicksUsed: run.ClicksUsed,
		ExportedAt: time.Now().Format(time.RFC3339),
		TotalLinks: len(run.Links),
		Links:      run.Links,
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func (e *Exporter) exportCSV(path string, run *store.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ordinal", "url", "text", "title", "category"}); err != nil {
		return err
	}
	for _, link := range run.Links {
		record := []string{
			strconv.Itoa(link.Ordinal),
			link.URL,
			link.Text,
			link.Title,
			link.Category,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}
