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
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Hunk struct {
	OldPos, OldLines, NewPos, NewLines int
}

type File struct {
	NewName string
	OldName string
	Hunks   []*Hunk
}

// Deleted reports whether the file no longer exists on the new side.
func (f *File) Deleted() bool {
	return f.NewName == "" && f.OldName != ""
}

type Patch struct {
	Files []*File
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

/*
Parse parses a git style unified diff into a patch struct.

Only lines that start with "diff --git ", "rename to ", "--- ", "+++ " or
"@@ -" drive the parser, everything else is ignored. Hunk bodies are
skipped by the line counts of their "@@" header, so a removed "-- x" line
is not taken for a file header. Additions carry
"--- /dev/null" and leave OldName empty, deletions carry "+++ /dev/null" and
leave NewName empty:

	diff --git a/docs_site/README.txt b/docs_site/README.txt
	new file mode 100644
	index 000000000000..dad6695563d6
	--- /dev/null
	+++ b/docs_site/README.txt
	@@ -0,0 +1,27 @@

A pure rename has no "---"/"+++" pair, so the "rename from"/"rename to"
headers name the file instead:

	diff --git a/src/old.c b/src/new.c
	similarity index 100%
	rename from src/old.c
	rename to src/new.c
*/
func Parse(diff string) (*Patch, error) {
	var p Patch
	var f *File
	// renamed is set when a "diff --git" section has seen "rename to" but
	// not yet a "---" line; that file is finished if none follows.
	var renamed *File
	// lines still expected in the current hunk body, per side
	var oldLeft, newLeft int
	for i, line := range strings.Split(diff, "\n") {
		if oldLeft > 0 || newLeft > 0 {
			switch {
			case strings.HasPrefix(line, "-") && oldLeft > 0:
				oldLeft--
				continue
			case strings.HasPrefix(line, "+") && newLeft > 0:
				newLeft--
				continue
			case strings.HasPrefix(line, " ") || line == "":
				oldLeft--
				newLeft--
				continue
			case strings.HasPrefix(line, "\\"):
				continue
			}
			// a short hunk; the line belongs to the headers again
			oldLeft, newLeft = 0, 0
		}
		switch {
		case strings.HasPrefix(line, "diff --git "):
			renamed = nil
		case strings.HasPrefix(line, "rename from "):
			renamed = &File{OldName: strings.TrimPrefix(line, "rename from ")}
			p.Files = append(p.Files, renamed)
		case strings.HasPrefix(line, "rename to "):
			if renamed == nil {
				return nil, fmt.Errorf("unexpected line %d '%s'", i, line)
			}
			renamed.NewName = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "--- "):
			if renamed != nil {
				// the rename carries content changes, reuse its entry
				f = renamed
				renamed = nil
				continue
			}
			f = &File{}
			name, err := trimSide(line, "--- ", "a/")
			if err != nil {
				return nil, fmt.Errorf("invalid line %d '%s': %v", i, line, err)
			}
			f.OldName = name
			p.Files = append(p.Files, f)
		case strings.HasPrefix(line, "+++ "):
			if f == nil || len(f.Hunks) > 0 {
				return nil, fmt.Errorf("unexpected line %d '%s'", i, line)
			}
			name, err := trimSide(line, "+++ ", "b/")
			if err != nil {
				return nil, fmt.Errorf("invalid line %d '%s': %v", i, line, err)
			}
			f.NewName = name
		case strings.HasPrefix(line, "@@ -"):
			if f == nil {
				return nil, fmt.Errorf("f is nil but line %d is '%s'", i, line)
			}
			h, err := parseHunk(line)
			if err != nil {
				return nil, err
			}
			f.Hunks = append(f.Hunks, h)
			oldLeft, newLeft = h.OldLines, h.NewLines
		}
	}
	return &p, nil
}

// trimSide strips the marker and the a/ or b/ prefix. /dev/null maps to "".
func trimSide(line, marker, prefix string) (string, error) {
	name := strings.TrimPrefix(line, marker)
	// git appends a tab and timestamp for some external diff drivers
	if i := strings.IndexByte(name, '\t'); i >= 0 {
		name = name[:i]
	}
	if name == "/dev/null" {
		return "", nil
	}
	if !strings.HasPrefix(name, prefix) {
		return "", fmt.Errorf("missing %q prefix", prefix)
	}
	return strings.TrimPrefix(name, prefix), nil
}

func parseHunk(line string) (*Hunk, error) {
	match := hunkHeader.FindStringSubmatch(line)
	if match == nil {
		return nil, fmt.Errorf("could not extract hunk info from line '%s'", line)
	}
	nums := [4]int{0, 1, 0, 1}
	for i, s := range match[1:] {
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("error converting %q to integer in '%s': %v", s, line, err)
		}
		nums[i] = n
	}
	return &Hunk{OldPos: nums[0], OldLines: nums[1], NewPos: nums[2], NewLines: nums[3]}, nil
}

// ChangedFiles returns the new-side names of files that still exist,
// without duplicates, in the order they appear in the diff.
func (p *Patch) ChangedFiles() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range p.Files {
		if f.NewName == "" || seen[f.NewName] {
			continue
		}
		seen[f.NewName] = true
		names = append(names, f.NewName)
	}
	return names
}

// LineRange is an inclusive range of new-side line numbers.
type LineRange struct {
	Start, End int
}

// AddedLines returns the new-side ranges touched in the named file.
func (p *Patch) AddedLines(name string) []LineRange {
	var ranges []LineRange
	for _, f := range p.Files {
		if f.NewName != name {
			continue
		}
		for _, h := range f.Hunks {
			if h.NewLines == 0 {
				continue
			}
			ranges = append(ranges, LineRange{Start: h.NewPos, End: h.NewPos + h.NewLines - 1})
		}
	}
	return ranges
}
