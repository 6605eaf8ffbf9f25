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
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
)

// Dynamic fragments stripped before hashing, so a re-fetch of an
// unchanged page hashes identically.
var (
	htmlCommentPattern = regexp.MustCompile(`<!--[\s\S]*?-->`)
	timestampPattern   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?`)
	relativeAgePattern = regexp.MustCompile(`\d+\s+(?:second|minute|hour|day|week|month|year)s?\s+ago`)
	cacheBustPattern   = regexp.MustCompile(`\?(?:v|ver|_|t)=[a-f0-9]+`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// hashExcludedTags are volatile page regions dropped before hashing.
var hashExcludedTags = []string{"script", "style", "nav", "footer"}

// PageHash digests a fetched page's content, normalized to survive the
// usual sources of spurious diffs: comments, timestamps, relative ages,
// cache-busting query params, and whitespace churn.
func PageHash(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse for hashing: %w", err)
	}
	for _, tag := range hashExcludedTags {
		doc.Find(tag).Remove()
	}
	rendered, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render for hashing: %w", err)
	}

	content := []byte(rendered)
	content = htmlCommentPattern.ReplaceAll(content, nil)
	content = timestampPattern.ReplaceAll(content, []byte("[TS]"))
	content = relativeAgePattern.ReplaceAll(content, []byte("[AGE]"))
	content = cacheBustPattern.ReplaceAll(content, nil)
	content = whitespacePattern.ReplaceAll(bytes.TrimSpace(content), []byte(" "))

	return fmt.Sprintf("%016x", xxhash.Sum64(content)), nil
}
