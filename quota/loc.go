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

package quota

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang/glog"
	"github.com/hhatto/gocloc"
)

// Languages counted towards the Coverity Scan project size.
var CountLangs = []string{"C", "C++", "C Header", "C++ Header"}

// CountLines returns the code lines of C/C++ files under srcDir, skipping
// files whose path relative to srcDir matches an ignore pattern.
func CountLines(srcDir string, ignorePatterns []string) (int, error) {
	clocOpts := gocloc.NewClocOptions()
	languages := gocloc.NewDefinedLanguages()
	for _, lang := range CountLangs {
		if _, exists := languages.Langs[lang]; exists {
			clocOpts.IncludeLangs[lang] = struct{}{}
		}
	}
	processor := gocloc.NewProcessor(languages, clocOpts)
	result, err := processor.Analyze([]string{srcDir})
	if err != nil {
		return 0, fmt.Errorf("gocloc: %v", err)
	}
	sum := 0
	for _, file := range result.Files {
		rel, err := filepath.Rel(srcDir, file.Name)
		if err != nil {
			rel = file.Name
		}
		ignored := false
		for _, pattern := range ignorePatterns {
			matched, err := doublestar.Match(pattern, filepath.ToSlash(rel))
			if err != nil {
				return 0, fmt.Errorf("malformed ignore_dir pattern %s", pattern)
			}
			if matched {
				ignored = true
				break
			}
		}
		if ignored {
			continue
		}
		sum += int(file.Code)
	}
	glog.Infof("%d lines of C/C++ code in %s", sum, srcDir)
	return sum, nil
}
