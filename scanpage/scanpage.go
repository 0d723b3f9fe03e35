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

/*
Package scanpage scrapes the public Coverity Scan project page.

The page has no API contract. Values are found by their visible labels in
any of these shapes, so small markup changes do not break the scraper:

	<dl><dt>Last Analyzed</dt><dd>February 14, 2024</dd></dl>
	<tr><th>Outstanding</th><td>1,024</td></tr>
	<p>Last Build Status: <span>Success</span></p>
*/
package scanpage

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type ProjectStatus struct {
	LastBuildStatus string    `json:"last_build_status,omitempty"`
	LastBuild       time.Time `json:"last_build"`
	// LastBuildDateOnly is set when the page only shows a calendar day.
	LastBuildDateOnly bool    `json:"last_build_date_only,omitempty"`
	Outstanding       int     `json:"outstanding"`
	Fixed             int     `json:"fixed"`
	Dismissed         int     `json:"dismissed"`
	NewDefects        int     `json:"new_defects"`
	LinesOfCode       int     `json:"lines_of_code"`
	DefectDensity     float64 `json:"defect_density"`
}

// InProgress reports whether the last submission is still queued or being
// analyzed.
func (s *ProjectStatus) InProgress() bool {
	status := strings.ToLower(s.LastBuildStatus)
	for _, word := range []string{"running", "queue", "pending", "in progress"} {
		if strings.Contains(status, word) {
			return true
		}
	}
	return false
}

var (
	lastBuildStatusLabels = []string{"last build status"}
	lastBuildLabels       = []string{"last analyzed", "last build analyzed", "last build"}
	outstandingLabels     = []string{"outstanding", "outstanding defects"}
	fixedLabels           = []string{"fixed", "fixed defects"}
	dismissedLabels       = []string{"dismissed", "dismissed defects"}
	newDefectsLabels      = []string{"newly detected", "new defects", "new"}
	linesOfCodeLabels     = []string{"lines of code analyzed", "lines of code"}
	defectDensityLabels   = []string{"defect density"}
)

var timeLayouts = []struct {
	layout   string
	dateOnly bool
}{
	{time.RFC3339, false},
	{"2006-01-02 15:04:05 MST", false},
	{"2006-01-02 15:04:05", false},
	{"Jan 2, 2006 15:04:05", false},
	{"January 2, 2006", true},
	{"Jan 2, 2006", true},
	{"2006-01-02", true},
}

var spaces = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSuffix(normalize(s), ":"))
}

// collectFields maps lower-cased labels to their values. The first
// occurrence of a label wins.
func collectFields(doc *goquery.Document) map[string]string {
	fields := make(map[string]string)
	add := func(label, value string) {
		label = normalizeLabel(label)
		value = normalize(value)
		if label == "" || value == "" {
			return
		}
		if _, ok := fields[label]; !ok {
			fields[label] = value
		}
	}
	doc.Find("dt").Each(func(_ int, s *goquery.Selection) {
		add(s.Text(), s.NextFiltered("dd").Text())
	})
	doc.Find("th").Each(func(_ int, s *goquery.Selection) {
		add(s.Text(), s.NextFiltered("td").Text())
	})
	doc.Find("li, p, div.stat, span.stat").Each(func(_ int, s *goquery.Selection) {
		label, value, ok := strings.Cut(normalize(s.Text()), ":")
		if ok {
			add(label, value)
		}
	})
	return fields
}

func lookup(fields map[string]string, labels []string) (string, bool) {
	for _, label := range labels {
		if v, ok := fields[label]; ok {
			return v, true
		}
	}
	return "", false
}

func parseCount(s string) (int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty count")
	}
	return strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
}

func parseTime(s string) (time.Time, bool, error) {
	for _, l := range timeLayouts {
		t, err := time.Parse(l.layout, s)
		if err == nil {
			return t.UTC(), l.dateOnly, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized time %q", s)
}

// ParseProjectPage extracts the project status. A page without a last
// build time is an error because the quota check depends on it.
func ParseProjectPage(r io.Reader) (*ProjectStatus, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("goquery.NewDocumentFromReader: %v", err)
	}
	fields := collectFields(doc)

	status := &ProjectStatus{}
	raw, ok := lookup(fields, lastBuildLabels)
	if !ok {
		return nil, fmt.Errorf("last build time not found on the project page")
	}
	status.LastBuild, status.LastBuildDateOnly, err = parseTime(raw)
	if err != nil {
		return nil, err
	}
	status.LastBuildStatus, _ = lookup(fields, lastBuildStatusLabels)

	for _, c := range []struct {
		labels []string
		dst    *int
	}{
		{outstandingLabels, &status.Outstanding},
		{fixedLabels, &status.Fixed},
		{dismissedLabels, &status.Dismissed},
		{newDefectsLabels, &status.NewDefects},
		{linesOfCodeLabels, &status.LinesOfCode},
	} {
		raw, ok := lookup(fields, c.labels)
		if !ok {
			continue
		}
		n, err := parseCount(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %v", c.labels[0], raw, err)
		}
		*c.dst = n
	}
	if raw, ok := lookup(fields, defectDensityLabels); ok {
		density, err := strconv.ParseFloat(strings.Fields(raw)[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid defect density %q: %v", raw, err)
		}
		status.DefectDensity = density
	}
	return status, nil
}
