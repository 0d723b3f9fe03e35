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

package filetype

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang/glog"
	"golang.org/x/exp/slices"
	"naive.systems/covbot/utils"
)

var KSupportImplementationSuffixs = []string{"c", "cpp", "cc", "cxx", "c++"}
var KSupportHeaderSuffixs = []string{"h", "hh", "hpp", "hxx", "h++", "inl", "ipp"}

// MIME types reported by file(1) for C and C++ sources.
var KSupportMimeTypes = []string{"text/x-c", "text/x-c++"}

// MimeFunc returns the MIME type of a file, as `file -b --mime-type` does.
type MimeFunc func(path string) (string, error)

type Detector struct {
	// doublestar patterns matched against the repository relative path
	IgnorePatterns []string
	Mime           MimeFunc
}

func NewDetector(fileBin string, ignorePatterns []string) *Detector {
	return &Detector{
		IgnorePatterns: ignorePatterns,
		Mime:           FileCommandMime(fileBin),
	}
}

// FileCommandMime runs file(1) to sniff the MIME type.
func FileCommandMime(fileBin string) MimeFunc {
	return func(path string) (string, error) {
		lines, err := utils.GetCommandStdoutLines(exec.Command(fileBin, "-b", "--mime-type", path), "")
		if err != nil {
			return "", err
		}
		if len(lines) == 0 {
			return "", fmt.Errorf("%s printed nothing for %s", fileBin, path)
		}
		return strings.TrimSpace(lines[0]), nil
	}
}

func extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// IsCCSource reports whether path names a C/C++ implementation or header
// file by its extension alone.
func IsCCSource(path string) bool {
	ext := extension(path)
	return slices.Contains(KSupportImplementationSuffixs, ext) || slices.Contains(KSupportHeaderSuffixs, ext)
}

func (d *Detector) Ignored(path string) (bool, error) {
	for _, pattern := range d.IgnorePatterns {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, fmt.Errorf("malformed ignore_dir pattern %s", pattern)
		}
		if matched {
			glog.Infof("Source file %s ignored due to pattern %s", path, pattern)
			return true, nil
		}
	}
	return false, nil
}

// Classify returns the subset of paths, relative to root, that are C/C++
// files. Files without an extension are sniffed with Mime when they exist,
// which catches headers like <vector>-style extensionless includes.
func (d *Detector) Classify(root string, paths []string) ([]string, error) {
	var ccFiles []string
	for _, path := range paths {
		ignored, err := d.Ignored(path)
		if err != nil {
			return nil, err
		}
		if ignored {
			continue
		}
		if IsCCSource(path) {
			ccFiles = append(ccFiles, path)
			continue
		}
		if extension(path) != "" || d.Mime == nil {
			continue
		}
		full := filepath.Join(root, path)
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		mime, err := d.Mime(full)
		if err != nil {
			glog.Warningf("failed to detect the type of %s: %v", full, err)
			continue
		}
		if slices.Contains(KSupportMimeTypes, mime) {
			ccFiles = append(ccFiles, path)
		}
	}
	return ccFiles, nil
}
