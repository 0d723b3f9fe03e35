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

package covbuild

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// cov-build ends with a line such as
//
//	42 C/C++ compilation units (100%) are ready for analysis
var readyUnits = regexp.MustCompile(`(\d+) C/C\+\+ compilation units \((\d+)%\) are ready for analysis`)

type LogSummary struct {
	Units       int
	Percent     int
	NoneEmitted bool
}

// ParseBuildLog scans a cov-build log. The last summary line wins since
// incremental captures append to the same log.
func ParseBuildLog(r io.Reader) (*LogSummary, error) {
	summary := &LogSummary{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "No files were emitted") {
			summary.NoneEmitted = true
			continue
		}
		match := readyUnits.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		units, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, err
		}
		percent, err := strconv.Atoi(match[2])
		if err != nil {
			return nil, err
		}
		summary.Units, summary.Percent, summary.NoneEmitted = units, percent, false
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return summary, nil
}
