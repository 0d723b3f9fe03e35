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

package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const mixedDiff = `diff --git a/src/main.c b/src/main.c
index 602565a30b39..9ff7b4d33b07 100644
--- a/src/main.c
+++ b/src/main.c
@@ -2,12 +2,11 @@ int main(void)
 	int a;
-	int b;
+	long b;
@@ -40 +39,3 @@ static void helper(void)
+	return;
diff --git a/include/new.h b/include/new.h
new file mode 100644
index 000000000000..dad6695563d6
--- /dev/null
+++ b/include/new.h
@@ -0,0 +1,27 @@
+#pragma once
diff --git a/.ruby-version b/.ruby-version
deleted file mode 100644
index a603bb50a29e..000000000000
--- a/.ruby-version
+++ /dev/null
@@ -1 +0,0 @@
-2.7.5
diff --git a/src/old.cc b/src/moved.cc
similarity index 100%
rename from src/old.cc
rename to src/moved.cc
diff --git a/lib/a.cpp b/lib/b.cpp
similarity index 90%
rename from lib/a.cpp
rename to lib/b.cpp
index 1111111..2222222 100644
--- a/lib/a.cpp
+++ b/lib/b.cpp
@@ -1,2 +1,2 @@
-int x;
+int y;
`

func TestParse(t *testing.T) {
	p, err := Parse(mixedDiff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := &Patch{Files: []*File{
		{OldName: "src/main.c", NewName: "src/main.c", Hunks: []*Hunk{{2, 12, 2, 11}, {40, 1, 39, 3}}},
		{OldName: "", NewName: "include/new.h", Hunks: []*Hunk{{0, 0, 1, 27}}},
		{OldName: ".ruby-version", NewName: "", Hunks: []*Hunk{{1, 1, 0, 0}}},
		{OldName: "src/old.cc", NewName: "src/moved.cc"},
		{OldName: "lib/a.cpp", NewName: "lib/b.cpp", Hunks: []*Hunk{{1, 2, 1, 2}}},
	}}
	if d := cmp.Diff(expected, p); d != "" {
		t.Errorf("unexpected patch (-want +got):\n%s", d)
	}
	if !p.Files[2].Deleted() {
		t.Errorf("expected %s to be deleted", p.Files[2].OldName)
	}
}

func TestChangedFiles(t *testing.T) {
	p, err := Parse(mixedDiff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"src/main.c", "include/new.h", "src/moved.cc", "lib/b.cpp"}
	if d := cmp.Diff(expected, p.ChangedFiles()); d != "" {
		t.Errorf("unexpected changed files (-want +got):\n%s", d)
	}
}

func TestAddedLines(t *testing.T) {
	p, err := Parse(mixedDiff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, testCase := range [...]struct {
		name     string
		expected []LineRange
	}{
		{"src/main.c", []LineRange{{2, 12}, {39, 41}}},
		{"include/new.h", []LineRange{{1, 27}}},
		{".ruby-version", nil},
		{"src/moved.cc", nil},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			if d := cmp.Diff(testCase.expected, p.AddedLines(testCase.name)); d != "" {
				t.Errorf("unexpected ranges (-want +got):\n%s", d)
			}
		})
	}
}

// Removed "-- " and added "++ " lines look like file headers once the
// diff marker is prepended.
const sqlDiff = `diff --git a/db/schema.sql b/db/schema.sql
index 3b18e51..a1c2f0d 100644
--- a/db/schema.sql
+++ b/db/schema.sql
@@ -1,3 +1,3 @@
--- create users
+-- users table
 CREATE TABLE users (id INT);
 CREATE INDEX users_id ON users (id);
@@ -10,2 +10,2 @@ CREATE TABLE orders (
-  total INT
+++ counter
 );
\\ No newline at end of file
diff --git a/src/counter.c b/src/counter.c
index 1111111..2222222 100644
--- a/src/counter.c
+++ b/src/counter.c
@@ -3 +3 @@ int next(int x)
-	x--;
+	++x;
`

func TestParseHunkBodiesLikeHeaders(t *testing.T) {
	p, err := Parse(sqlDiff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := &Patch{Files: []*File{
		{OldName: "db/schema.sql", NewName: "db/schema.sql", Hunks: []*Hunk{{1, 3, 1, 3}, {10, 2, 10, 2}}},
		{OldName: "src/counter.c", NewName: "src/counter.c", Hunks: []*Hunk{{3, 1, 3, 1}}},
	}}
	if d := cmp.Diff(expected, p); d != "" {
		t.Errorf("unexpected patch (-want +got):\n%s", d)
	}
}

func TestParseErrors(t *testing.T) {
	for _, testCase := range [...]struct {
		name string
		diff string
	}{
		{"bad old side", "--- x/main.c\n"},
		{"plus before minus", "+++ b/main.c\n"},
		{"hunk without file", "@@ -1 +1 @@\n"},
		{"broken hunk", "--- a/x.c\n+++ b/x.c\n@@ -a +1 @@\n"},
		{"rename to without from", "rename to x.c\n"},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := Parse(testCase.diff); err == nil {
				t.Errorf("expected an error for %q", testCase.diff)
			}
		})
	}
}
