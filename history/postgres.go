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

package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang/glog"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS coverity_submissions (
	id TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	commit_sha TEXT NOT NULL,
	pull_request INTEGER NOT NULL DEFAULT 0,
	submitted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coverity_submissions_project
	ON coverity_submissions(project, submitted_at);
`

// PostgresStore shares the submission history between CI runners.
type PostgresStore struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("history.OpenPostgres: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history.OpenPostgres: failed to initialize schema: %v", err)
	}
	glog.Info("history: using postgres store")
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Record(ctx context.Context, s Submission) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO coverity_submissions (id, project, commit_sha, pull_request, submitted_at)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
		s.ID, s.Project, s.Commit, s.PullRequest, s.SubmittedAt.UTC())
	if err != nil {
		return fmt.Errorf("history.Record: %v", err)
	}
	return nil
}

func (p *PostgresStore) Since(ctx context.Context, project string, t time.Time) ([]Submission, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, project, commit_sha, pull_request, submitted_at FROM coverity_submissions
		WHERE project = $1 AND submitted_at > $2 ORDER BY submitted_at`,
		project, t.UTC())
	if err != nil {
		return nil, fmt.Errorf("history.Since: %v", err)
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.Project, &s.Commit, &s.PullRequest, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("history.Since: %v", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
