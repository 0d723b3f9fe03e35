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

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 5 * time.Second
)

// Submission is one cov-int archive sent to Coverity Scan.
type Submission struct {
	Project     string
	Token       string
	Email       string
	Version     string
	Description string
	ArchivePath string
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("resp status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) temporary() bool {
	return e.StatusCode >= 500
}

type Client struct {
	URL        string
	HTTPClient *http.Client
	MaxRetries int
	RetryDelay time.Duration
}

func NewClient(scanURL string) *Client {
	return &Client{
		URL: strings.TrimRight(scanURL, "/"),
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				TLSHandshakeTimeout:   defaultRetryDelay,
				ResponseHeaderTimeout: 10 * time.Minute,
			},
		},
		MaxRetries: defaultMaxRetries,
		RetryDelay: defaultRetryDelay,
	}
}

func (c *Client) endpoint(project string) string {
	return c.URL + "/builds?project=" + url.QueryEscape(project)
}

// Submit uploads the archive. Server errors and transport failures are
// retried, client errors are returned at once.
func (c *Client) Submit(ctx context.Context, s Submission) error {
	if s.Project == "" || s.Token == "" {
		return fmt.Errorf("upload.Submit: project and token are required")
	}
	if _, err := os.Stat(s.ArchivePath); err != nil {
		return fmt.Errorf("upload.Submit: %v", err)
	}
	maxRetries := c.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	retryCount := 0
	for {
		err := c.post(ctx, s)
		if err == nil {
			return nil
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !httpErr.temporary() {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		retryCount++
		if retryCount >= maxRetries {
			return fmt.Errorf("upload.Submit: giving up after %d attempts: %w", retryCount, err)
		}
		glog.Warningf("upload of %s failed (attempt %d/%d): %v", filepath.Base(s.ArchivePath), retryCount, maxRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.RetryDelay):
		}
	}
}

func (c *Client) post(ctx context.Context, s Submission) error {
	archive, err := os.Open(s.ArchivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(writeForm(form, s, archive))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(s.Project), body)
	if err != nil {
		body.Close()
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	glog.Infof("uploading %s to %s", s.ArchivePath, c.endpoint(s.Project))
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		body.Close()
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode >= 400 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	glog.Infof("upload accepted: %s", resp.Status)
	return nil
}

func writeForm(form *multipart.Writer, s Submission, archive io.Reader) error {
	fields := [][2]string{
		{"token", s.Token},
		{"email", s.Email},
		{"version", s.Version},
		{"description", s.Description},
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", filepath.Base(s.ArchivePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, archive); err != nil {
		return err
	}
	return form.Close()
}
