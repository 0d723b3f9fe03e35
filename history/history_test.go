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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func submission(id, project string, offset time.Duration) Submission {
	return Submission{ID: id, Project: project, Commit: "c" + id, SubmittedAt: base.Add(offset)}
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	for _, s := range []Submission{
		submission("2", "widget", 2*time.Hour),
		submission("1", "widget", time.Hour),
		submission("3", "gadget", 3*time.Hour),
		submission("1", "widget", time.Hour),
	} {
		if err := store.Record(ctx, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got, err := store.Since(ctx, "widget", base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []Submission{submission("1", "widget", time.Hour), submission("2", "widget", 2*time.Hour)}
	if d := cmp.Diff(expected, got); d != "" {
		t.Errorf("unexpected submissions (-want +got):\n%s", d)
	}
	got, err = store.Since(ctx, "widget", base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("unexpected submissions %v", got)
	}
}

func TestFileStore(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*FileStore); !ok {
		t.Fatalf("expected a FileStore, got %T", store)
	}
	exerciseStore(t, store)
}

func TestFileStoreRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := NewFileStore(path)
	store.Retention = 24 * time.Hour
	ctx := context.Background()
	store.Record(ctx, submission("old", "widget", -48*time.Hour))
	store.Record(ctx, submission("new", "widget", 0))
	got, err := store.Since(ctx, "widget", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("unexpected submissions %v", got)
	}
}

func TestFileStoreMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	got, err := NewFileStore(filepath.Join(dir, "none.json")).Since(context.Background(), "widget", time.Time{})
	if err != nil || got != nil {
		t.Errorf("unexpected result %v %v", got, err)
	}
	corrupt := filepath.Join(dir, "corrupt.json")
	os.WriteFile(corrupt, []byte("{not json"), 0644)
	if _, err := NewFileStore(corrupt).Since(context.Background(), "widget", time.Time{}); err == nil {
		t.Errorf("expected an error for a corrupt file")
	}
}

// Needs a disposable database, e.g.
// COVBOT_TEST_POSTGRES=postgres://postgres@localhost/covbot_test?sslmode=disable
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("COVBOT_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("COVBOT_TEST_POSTGRES not set")
	}
	store, err := Open(dsn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()
	pg := store.(*PostgresStore)
	if _, err := pg.db.Exec("DELETE FROM coverity_submissions WHERE project IN ('widget', 'gadget')"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exerciseStore(t, store)
}
