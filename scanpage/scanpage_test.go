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

package scanpage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const definitionListPage = `<html><body>
<div class="project-stats">
  <p>Last Build Status: <span class="label">Success</span></p>
  <dl>
    <dt>Last Analyzed</dt>
    <dd>
      February 14, 2024
    </dd>
    <dt>Lines of Code Analyzed</dt><dd>123,456</dd>
    <dt>Defect Density</dt><dd>0.42</dd>
  </dl>
  <table>
    <tr><th>Outstanding</th><td>1,024</td></tr>
    <tr><th>Dismissed</th><td>7</td></tr>
    <tr><th>Fixed</th><td>300</td></tr>
  </table>
  <ul><li>Newly detected: 3 defects</li></ul>
</div>
</body></html>`

const paragraphPage = `<html><body>
<p>Last Build Status: Running. Your build is currently being analyzed</p>
<p>Last Analyzed: 2024-03-01 08:15:00 UTC</p>
<p>Outstanding: 12</p>
</body></html>`

func TestParseProjectPage(t *testing.T) {
	for _, testCase := range [...]struct {
		name     string
		page     string
		expected *ProjectStatus
	}{
		{
			name: "definition list and table",
			page: definitionListPage,
			expected: &ProjectStatus{
				LastBuildStatus:   "Success",
				LastBuild:         time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC),
				LastBuildDateOnly: true,
				Outstanding:       1024,
				Fixed:             300,
				Dismissed:         7,
				NewDefects:        3,
				LinesOfCode:       123456,
				DefectDensity:     0.42,
			},
		},
		{
			name: "paragraphs",
			page: paragraphPage,
			expected: &ProjectStatus{
				LastBuildStatus: "Running. Your build is currently being analyzed",
				LastBuild:       time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC),
				Outstanding:     12,
			},
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := ParseProjectPage(strings.NewReader(testCase.page))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d := cmp.Diff(testCase.expected, got); d != "" {
				t.Errorf("unexpected status (-want +got):\n%s", d)
			}
		})
	}
}

func TestParseProjectPageErrors(t *testing.T) {
	for _, testCase := range [...]struct {
		name string
		page string
	}{
		{"no last build", "<p>Outstanding: 3</p>"},
		{"bad time", "<p>Last Analyzed: yesterday-ish</p>"},
		{"bad count", "<dl><dt>Last Analyzed</dt><dd>2024-01-01</dd><dt>Outstanding</dt><dd>many</dd></dl>"},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := ParseProjectPage(strings.NewReader(testCase.page)); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestInProgress(t *testing.T) {
	for _, testCase := range [...]struct {
		status   string
		expected bool
	}{
		{"Running. Your build is currently being analyzed", true},
		{"Queued. Your build is in the queue to be analyzed", true},
		{"Success", false},
		{"Failed", false},
	} {
		t.Run(testCase.status, func(t *testing.T) {
			s := &ProjectStatus{LastBuildStatus: testCase.status}
			if got := s.InProgress(); got != testCase.expected {
				t.Errorf("unexpected result. Get %v, Expect %v", got, testCase.expected)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/acme%2Fwidget" && r.URL.RawPath != "/projects/acme%2Fwidget" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("project page must be fetched without credentials")
		}
		fmt.Fprint(w, paragraphPage)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	status, err := c.Fetch(context.Background(), "acme/widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Outstanding != 12 {
		t.Errorf("unexpected outstanding count %d", status.Outstanding)
	}
	if _, err := c.Fetch(context.Background(), "other"); err == nil {
		t.Errorf("expected an error for a 404 page")
	}
}

func TestWaitForAnalysis(t *testing.T) {
	submitted := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			// previous build, still shown
			fmt.Fprint(w, "<p>Last Build Status: Success</p><p>Last Analyzed: 2024-02-28 10:00:00 UTC</p>")
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		case 3:
			fmt.Fprint(w, "<p>Last Build Status: Running</p><p>Last Analyzed: 2024-03-01 08:05:00 UTC</p>")
		default:
			fmt.Fprint(w, "<p>Last Build Status: Success</p><p>Last Analyzed: 2024-03-01 08:30:00 UTC</p><p>Outstanding: 5</p>")
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := NewClient(srv.URL).WaitForAnalysis(ctx, "widget", submitted, nil, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Outstanding != 5 {
		t.Errorf("unexpected status %+v", status)
	}
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Errorf("unexpected number of polls. Get %d, Expect %d", got, 4)
	}
}

func TestWaitForAnalysisTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<p>Last Build Status: Queued</p><p>Last Analyzed: 2024-02-28</p>")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	status, err := NewClient(srv.URL).WaitForAnalysis(ctx, "widget", time.Now(), nil, 5*time.Millisecond)
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	if status == nil || status.LastBuildStatus != "Queued" {
		t.Errorf("expected the last seen status, got %+v", status)
	}
}

func TestAnalyzedAfter(t *testing.T) {
	since := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	morning := &ProjectStatus{LastBuildStatus: "Success", LastBuild: day(1), LastBuildDateOnly: true, Outstanding: 99}
	for _, testCase := range [...]struct {
		name          string
		status        *ProjectStatus
		before        *ProjectStatus
		sawInProgress bool
		expected      bool
	}{
		{"exact stamp after", &ProjectStatus{LastBuild: since.Add(time.Minute)}, nil, false, true},
		{"exact stamp before", &ProjectStatus{LastBuild: since.Add(-time.Minute)}, nil, false, false},
		{"in progress", &ProjectStatus{LastBuildStatus: "Running", LastBuild: since.Add(time.Hour)}, nil, false, false},
		{"earlier day", &ProjectStatus{LastBuild: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), LastBuildDateOnly: true}, nil, true, false},
		{"later day", &ProjectStatus{LastBuild: day(2), LastBuildDateOnly: true}, morning, false, true},
		{"same day unchanged", &ProjectStatus{LastBuildStatus: "Success", LastBuild: day(1), LastBuildDateOnly: true, Outstanding: 99}, morning, false, false},
		{"same day unknown before", &ProjectStatus{LastBuildStatus: "Success", LastBuild: day(1), LastBuildDateOnly: true, Outstanding: 99}, nil, false, false},
		{"same day after in progress", &ProjectStatus{LastBuildStatus: "Success", LastBuild: day(1), LastBuildDateOnly: true, Outstanding: 99}, morning, true, true},
		{"same day new counts", &ProjectStatus{LastBuildStatus: "Success", LastBuild: day(1), LastBuildDateOnly: true, Outstanding: 97}, morning, false, true},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			if got := analyzedAfter(testCase.status, since, testCase.before, testCase.sawInProgress); got != testCase.expected {
				t.Errorf("unexpected result. Get %v, Expect %v", got, testCase.expected)
			}
		})
	}
}

func TestWaitForAnalysisDateOnly(t *testing.T) {
	submitted := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	const analyzedToday = "<dl><dt>Last Build Status</dt><dd>Success</dd><dt>Last Analyzed</dt><dd>March 1, 2024</dd><dt>Outstanding</dt><dd>99</dd></dl>"
	before, err := ParseProjectPage(strings.NewReader(analyzedToday))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("earlier build of the same day", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			fmt.Fprint(w, analyzedToday)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := NewClient(srv.URL).WaitForAnalysis(ctx, "widget", submitted, before, 5*time.Millisecond)
		if err == nil {
			t.Fatalf("an unchanged page must not end the wait")
		}
		if atomic.LoadInt32(&calls) < 2 {
			t.Errorf("expected the page to be polled again")
		}
	})

	t.Run("queued then analyzed", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch atomic.AddInt32(&calls, 1) {
			case 1:
				fmt.Fprint(w, analyzedToday)
			case 2:
				fmt.Fprint(w, "<dl><dt>Last Build Status</dt><dd>Queued</dd><dt>Last Analyzed</dt><dd>March 1, 2024</dd></dl>")
			default:
				fmt.Fprint(w, analyzedToday)
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		status, err := NewClient(srv.URL).WaitForAnalysis(ctx, "widget", submitted, before, time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.Outstanding != 99 {
			t.Errorf("unexpected status %+v", status)
		}
		if got := atomic.LoadInt32(&calls); got != 3 {
			t.Errorf("unexpected number of polls. Get %d, Expect %d", got, 3)
		}
	})
}
