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

import (
	"fmt"

	"gorm.io/gorm/clause"
)

// CreateRun persists a run header and its links in one transaction and
// returns the run ID.
func (s *Store) CreateRun(run *Run) (uint, error) {
	if err := s.db.Create(run).Error; err != nil {
		return 0, fmt.Errorf("failed to create run: %v", err)
	}
	return run.ID, nil
}

// GetRun returns a run with its links preloaded.
func (s *Store) GetRun(id uint) (*Run, error) {
	var run Run
	if err := s.db.Preload("Links").First(&run, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load run %d: %v", id, err)
	}
	return &run, nil
}

// ListRuns returns all runs for a domain, newest first, without links.
// An empty domain returns every run.
func (s *Store) ListRuns(domain string) ([]Run, error) {
	var runs []Run
	q := s.db.Order("created_at DESC")
	if domain != "" {
		q = q.Where("domain = ?", domain)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %v", err)
	}
	return runs, nil
}

// LatestRun returns the newest run for a domain with links preloaded.
func (s *Store) LatestRun(domain string) (*Run, error) {
	var run Run
	err := s.db.Preload("Links").
		Where("domain = ?", domain).
		Order("created_at DESC").
		First(&run).Error
	if err != nil {
		return nil, fmt.Errorf("no run found for domain %s: %v", domain, err)
	}
	return &run, nil
}

// LinksForRun returns a run's links in discovery order.
func (s *Store) LinksForRun(runID uint) ([]Link, error) {
	var links []Link
	if err := s.db.Where("run_id = ?", runID).Order("ordinal ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to load links for run %d: %v", runID, err)
	}
	return links, nil
}

// SavePages upserts batch fetch outcomes for a run, keyed by URL.
func (s *Store) SavePages(pages []Page) error {
	if len(pages) == 0 {
		return nil
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "url"}},
		UpdateAll: true,
	}).Create(&pages).Error
	if err != nil {
		return fmt.Errorf("failed to save pages: %v", err)
	}
	return nil
}

// PagesForRun returns the stored batch fetch outcomes for a run.
func (s *Store) PagesForRun(runID uint) ([]Page, error) {
	var pages []Page
	if err := s.db.Where("run_id = ?", runID).Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("failed to load pages for run %d: %v", runID, err)
	}
	return pages, nil
}

// DeleteRun removes a run and cascades to its links and pages.
func (s *Store) DeleteRun(id uint) error {
	if err := s.db.Where("run_id = ?", id).Delete(&Page{}).Error; err != nil {
		return fmt.Errorf("failed to delete pages for run %d: %v", id, err)
	}
	if err := s.db.Where("run_id = ?", id).Delete(&Link{}).Error; err != nil {
		return fmt.Errorf("failed to delete links for run %d: %v", id, err)
	}
	if err := s.db.Delete(&Run{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete run %d: %v", id, err)
	}
	return nil
}
