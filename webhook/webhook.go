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

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
)

// Commit status states understood by the hosting API.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailure = "failure"
	StateError   = "error"
)

type Status struct {
	State       string `json:"state"`
	TargetURL   string `json:"target_url,omitempty"`
	Description string `json:"description,omitempty"`
	Context     string `json:"context,omitempty"`
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("webhook: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	BaseURL    string
	Token      string
	Owner      string
	Repo       string
	HTTPClient *http.Client
}

func NewClient(baseURL, token, owner, repo string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		Owner:      owner,
		Repo:       repo,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) repoPath(parts ...string) string {
	elems := []string{c.BaseURL, "repos", url.PathEscape(c.Owner), url.PathEscape(c.Repo)}
	for _, p := range parts {
		elems = append(elems, url.PathEscape(p))
	}
	return strings.Join(elems, "/")
}

// CreateStatus sets the commit status of sha.
func (c *Client) CreateStatus(ctx context.Context, sha string, status Status) error {
	if sha == "" {
		return fmt.Errorf("webhook.CreateStatus: empty commit sha")
	}
	return c.post(ctx, c.repoPath("statuses", sha), status)
}

// CreateComment adds a comment to pull request pr.
func (c *Client) CreateComment(ctx context.Context, pr int, body string) error {
	if pr <= 0 {
		return fmt.Errorf("webhook.CreateComment: invalid pull request number %d", pr)
	}
	return c.post(ctx, c.repoPath("issues", fmt.Sprint(pr), "comments"), map[string]string{"body": body})
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	glog.Infof("POST %s", endpoint)
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
