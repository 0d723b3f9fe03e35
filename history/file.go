/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"naive.systems/covbot/atomic"
)

// FileStore keeps submissions in a JSON file. Entries older than
// Retention are dropped on write.
type FileStore struct {
	Path      string
	Retention time.Duration
	mu        sync.Mutex
}

const defaultRetention = 30 * 24 * time.Hour

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path, Retention: defaultRetention}
}

func (f *FileStore) load() ([]Submission, error) {
	content, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var all []Submission
	if len(content) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(content, &all); err != nil {
		return nil, fmt.Errorf("history: %s is corrupt: %v", f.Path, err)
	}
	return all, nil
}

func (f *FileStore) Record(ctx context.Context, s Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return err
	}
	cutoff := s.SubmittedAt.Add(-f.Retention)
	kept := all[:0]
	for _, old := range all {
		if old.ID == s.ID || (f.Retention > 0 && old.SubmittedAt.Before(cutoff)) {
			continue
		}
		kept = append(kept, old)
	}
	kept = append(kept, s)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].SubmittedAt.Before(kept[j].SubmittedAt) })
	if err := os.MkdirAll(filepath.Dir(f.Path), os.ModePerm); err != nil {
		return err
	}
	return atomic.WriteJSON(f.Path, kept)
}

func (f *FileStore) Since(ctx context.Context, project string, t time.Time) ([]Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return nil, err
	}
	var out []Submission
	for _, s := range all {
		if s.Project == project && s.SubmittedAt.After(t) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *FileStore) Close() error {
	return nil
}
