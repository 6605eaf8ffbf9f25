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

// PageSnake CLI
//
// Command-line interface for pagination-aware link discovery. Loads a
// page in headless Chrome, activates load-more/next controls until
// exhausted, and reports every link found along the way.
//
// Usage:
//
//	pagesnake <command> [flags]
//
// Commands:
//
//	discover  Run a pagination discovery crawl on a URL
//	fetch     Batch-fetch known URLs without JavaScript
//	export    Export a stored run to JSON or CSV
//	mcp       Serve the MCP tool interface over HTTP
//	version   Show version information
package main

import (
	"fmt"
	"os"

	"github.com/agentberlin/pagesnake/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "discover":
		if err := runDiscover(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "fetch":
		if err := runFetch(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "export":
		if err := runExport(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "-v", "--version":
		fmt.Printf("PageSnake CLI %s\n", version.CurrentVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`PageSnake CLI - Pagination-aware link discovery

Usage:
  pagesnake <command> [flags]

Commands:
  discover  Run a pagination discovery crawl on a URL
  fetch     Batch-fetch known URLs without JavaScript
  export    Export a stored run to JSON or CSV
  mcp       Serve the MCP tool interface over HTTP
  version   Show version information
  help      Show this help message

Examples:
  # Discover links behind load-more buttons
  pagesnake discover https://blog.example.com/archive

  # Allow up to 10 activations and skip tag pages
  pagesnake discover https://blog.example.com/archive --budget 10 --exclude "*/tag/*"

  # Batch-fetch the links of the latest stored run
  pagesnake fetch --run-id 3

  # Export a run as CSV
  pagesnake export --run-id 3 --format csv -o ./export

  # Serve the MCP tool interface
  pagesnake mcp --addr :8931

Use "pagesnake <command> --help" for more information about a command.`)
}
