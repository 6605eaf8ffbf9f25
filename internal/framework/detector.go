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

// Package framework detects in-page event frameworks from raw HTML so
// the activation chain can delegate to a framework's own trigger
// mechanism instead of plain DOM event dispatch.
package framework

import (
	"strings"
)

// Framework identifies the event framework driving a page.
type Framework string

const (
	FrameworkOther   Framework = "other"
	FrameworkJQuery  Framework = "jquery"
	FrameworkReact   Framework = "react"
	FrameworkVue     Framework = "vue"
	FrameworkAngular Framework = "angular"
)

// Detector classifies a page's event framework from its HTML
type Detector struct {
	detected Framework
	signals  []string
}

// NewDetector creates a new framework detector
func NewDetector() *Detector {
	return &Detector{detected: FrameworkOther}
}

// Detect analyzes HTML content and returns the detected framework.
// Detection is additive scoring per framework; first framework to pass
// its threshold wins, in specificity order.
func (d *Detector) Detect(html string) Framework {
	htmlLower := strings.ToLower(html)

	d.detected = FrameworkOther
	d.signals = []string{}

	if d.detectJQuery(htmlLower) {
		return d.detected
	}
	if d.detectReact(htmlLower) {
		return d.detected
	}
	if d.detectVue(htmlLower) {
		return d.detected
	}
	if d.detectAngular(htmlLower) {
		return d.detected
	}
	return FrameworkOther
}

// Signals returns the detection signals found
func (d *Detector) Signals() []string {
	return d.signals
}

func (d *Detector) detectJQuery(html string) bool {
	score := 0

	if strings.Contains(html, "jquery.js") || strings.Contains(html, "jquery.min.js") {
		score += 3
		d.signals = append(d.signals, "Found jquery script include")
	}

	if strings.Contains(html, "code.jquery.com") || strings.Contains(html, "/jquery-") {
		score += 2
		d.signals = append(d.signals, "Found jQuery CDN reference")
	}

	if strings.Contains(html, "jquery.fn") || strings.Contains(html, "$(document).ready") {
		score += 2
		d.signals = append(d.signals, "Found jQuery usage in inline scripts")
	}

	if score >= 3 {
		d.detected = FrameworkJQuery
		return true
	}

	return false
}

func (d *Detector) detectReact(html string) bool {
	score := 0

	if strings.Contains(html, "data-reactroot") || strings.Contains(html, "data-react-") {
		score += 2
		d.signals = append(d.signals, "Found React data attributes")
	}

	if strings.Contains(html, "/_next/static/") || strings.Contains(html, `<div id="__next"`) {
		score += 2
		d.signals = append(d.signals, "Found Next.js markers")
	}

	if strings.Contains(html, `<div id="root"`) && strings.Contains(html, "react") {
		score += 1
		d.signals = append(d.signals, "Found React root div")
	}

	if score >= 2 {
		d.detected = FrameworkReact
		return true
	}

	return false
}

func (d *Detector) detectVue(html string) bool {
	score := 0

	if strings.Contains(html, "v-if") || strings.Contains(html, "v-for") || strings.Contains(html, "v-bind") || strings.Contains(html, "v-on:") {
		score += 2
		d.signals = append(d.signals, "Found Vue directives (v-)")
	}

	if strings.Contains(html, "/_nuxt/") || strings.Contains(html, `<div id="__nuxt"`) {
		score += 2
		d.signals = append(d.signals, "Found Nuxt markers")
	}

	if strings.Contains(html, "vue.js") || strings.Contains(html, "vue.min.js") || strings.Contains(html, "vue.global") {
		score += 2
		d.signals = append(d.signals, "Found Vue script include")
	}

	if score >= 2 {
		d.detected = FrameworkVue
		return true
	}

	return false
}

func (d *Detector) detectAngular(html string) bool {
	score := 0

	if strings.Contains(html, "ng-click") || strings.Contains(html, "data-ng-") || strings.Contains(html, "ng-app") {
		score += 2
		d.signals = append(d.signals, "Found Angular directives (ng-)")
	}

	if strings.Contains(html, "<app-root") {
		score += 2
		d.signals = append(d.signals, "Found Angular app-root component")
	}

	if score >= 2 {
		d.detected = FrameworkAngular
		return true
	}

	return false
}
