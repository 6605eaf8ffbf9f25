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

package store

// Run represents one completed pagination crawl session
type Run struct {
	ID            uint   `gorm:"primaryKey"`
	BaseURL       string `gorm:"not null"`
	Domain        string `gorm:"index;not null"`
	ClickBudget   int
	ClicksUsed    int
	FinalState    string
	InternalCount int
	ExternalCount int
	OtherCount    int
	Links         []Link `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt     int64  `gorm:"autoCreateTime"`
}

// Link is one discovered link belonging to a run
type Link struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    uint   `gorm:"index;not null"`
	URL      string `gorm:"type:text;not null"`
	Text     string `gorm:"type:text"`
	Title    string `gorm:"type:text"`
	Ordinal  int
	Category string `gorm:"index"`
}

// Page is the outcome of one batch fetch of a known URL
type Page struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       uint   `gorm:"index"`
	URL         string `gorm:"type:text;not null"`
	StatusCode  int
	Title       string `gorm:"type:text"`
	Canonical   string `gorm:"type:text"`
	NoIndex     bool
	ContentHash string `gorm:"index"`
	FetchError  string `gorm:"type:text"`
	CreatedAt   int64  `gorm:"autoCreateTime"`
}
