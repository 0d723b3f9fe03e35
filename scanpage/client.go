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
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"
)

const maxPageSize = 4 << 20

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ProjectURL is the human facing page of the project, also used as the
// target link of commit statuses.
func (c *Client) ProjectURL(project string) string {
	return c.BaseURL + "/projects/" + url.PathEscape(project)
}

// Fetch downloads and parses the project page. No credentials are sent.
func (c *Client) Fetch(ctx context.Context, project string) (*ProjectStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ProjectURL(project), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	glog.Infof("GET %s", req.URL)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch project page: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch project page: resp status %d %s", resp.StatusCode, resp.Status)
	}
	status, err := ParseProjectPage(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("parse project page %s: %v", req.URL, err)
	}
	return status, nil
}

// changed reports whether the page shows anything other than before.
func changed(status, before *ProjectStatus) bool {
	if before == nil {
		return false
	}
	return !status.LastBuild.Equal(before.LastBuild) ||
		status.LastBuildStatus != before.LastBuildStatus ||
		status.Outstanding != before.Outstanding ||
		status.NewDefects != before.NewDefects ||
		status.Fixed != before.Fixed ||
		status.Dismissed != before.Dismissed ||
		status.LinesOfCode != before.LinesOfCode
}

// analyzedAfter reports whether status describes a finished analysis of a
// build submitted at since. A date-only stamp on the submission day could
// still be an earlier build of that day, so it only counts once the page
// was seen in progress or differs from before.
func analyzedAfter(status *ProjectStatus, since time.Time, before *ProjectStatus, sawInProgress bool) bool {
	if status.InProgress() {
		return false
	}
	if !status.LastBuildDateOnly {
		return status.LastBuild.After(since)
	}
	day := since.UTC().Truncate(24 * time.Hour)
	switch {
	case status.LastBuild.Before(day):
		return false
	case status.LastBuild.After(day):
		return true
	}
	return sawInProgress || changed(status, before)
}

// WaitForAnalysis polls the project page at most once per interval until
// it shows the analysis of a build submitted at since. before is the page
// as it was ahead of the submission, nil if unknown. When ctx ends first,
// the last status seen (possibly nil) is returned together with ctx.Err().
func (c *Client) WaitForAnalysis(ctx context.Context, project string, since time.Time, before *ProjectStatus, interval time.Duration) (*ProjectStatus, error) {
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	var last *ProjectStatus
	sawInProgress := false
	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, err
		}
		status, err := c.Fetch(ctx, project)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			glog.Warningf("polling %s: %v", project, err)
			continue
		}
		last = status
		if analyzedAfter(status, since, before, sawInProgress) {
			return status, nil
		}
		if status.InProgress() {
			sawInProgress = true
		}
		glog.Infof("analysis of %s not finished yet (last build %s, %q)", project, status.LastBuild.Format(time.RFC3339), status.LastBuildStatus)
	}
}
