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

package utils

import (
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
)

func TestGetCommandStdoutLines(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	lines, err := GetCommandStdoutLines(exec.Command("sh", "-c", "printf 'a\\nb\\n'"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"a", "b"}) {
		t.Errorf("unexpected result. Get %v, Expect %v", lines, []string{"a", "b"})
	}
	_, err = GetCommandStdoutLines(exec.Command("sh", "-c", "echo oops >&2; exit 3"), "")
	if err == nil {
		t.Errorf("expected an error for a failing command")
	}
}

func TestResolveBinaryPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "cov-build")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := ResolveBinaryPath(bin)
	if err != nil || got != bin {
		t.Errorf("unexpected result. Get %v %v, Expect %v", got, err, bin)
	}
	if _, err := ResolveBinaryPath(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("expected an error for a missing absolute path")
	}
	if _, err := ResolveBinaryPath("surely-not-a-binary-in-path"); err == nil {
		t.Errorf("expected an error for a missing binary")
	}
}

// keep cov-int but clean the stale archive and build dir
func TestCleanDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cov-int", "build"} {
		if err := os.MkdirAll(filepath.Join(dir, name), os.ModePerm); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "project.tgz"), nil, 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CleanDir(dir, []string{"cov-int"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if !reflect.DeepEqual(names, []string{"cov-int"}) {
		t.Errorf("unexpected result. Get %v, Expect %v", names, []string{"cov-int"})
	}
}
