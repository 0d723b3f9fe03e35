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

// Package history remembers Coverity Scan submissions so the quota can be
// checked without trusting the project page alone.
package history

import (
	"context"
	"strings"
	"time"
)

type Submission struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Commit      string    `json:"commit"`
	PullRequest int       `json:"pull_request,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Store interface {
	Record(ctx context.Context, s Submission) error
	// Since returns the submissions of project made after t, oldest first.
	Since(ctx context.Context, project string, t time.Time) ([]Submission, error)
	Close() error
}

// Open returns a PostgresStore for postgres:// DSNs and a FileStore for
// anything else, which is taken as a file path.
func Open(dsnOrPath string) (Store, error) {
	if strings.HasPrefix(dsnOrPath, "postgres://") || strings.HasPrefix(dsnOrPath, "postgresql://") {
		return OpenPostgres(dsnOrPath)
	}
	return NewFileStore(dsnOrPath), nil
}
