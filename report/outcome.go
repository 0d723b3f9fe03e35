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

package report

import (
	"time"

	"naive.systems/covbot/covbuild"
	"naive.systems/covbot/quota"
	"naive.systems/covbot/scanpage"
)

type State string

const (
	Success State = "success"
	Failure State = "failure"
	Skip    State = "skip"
)

// Steps at which a run can stop.
const (
	StepSetup   = "setup"
	StepChanges = "changes"
	StepQuota   = "quota"
	StepBuild   = "build"
	StepArchive = "archive"
	StepUpload  = "upload"
	StepDone    = "done"
)

// Outcome is the result of one scan run.
type Outcome struct {
	State        State                   `json:"state"`
	Step         string                  `json:"step"`
	Reason       string                  `json:"reason,omitempty"`
	ChangedFiles []string                `json:"changed_files"`
	// Status is the analysis of this run's build, nil until the project
	// page shows it. PreviousStatus is the page read for the quota check.
	Status         *scanpage.ProjectStatus `json:"status,omitempty"`
	PreviousStatus *scanpage.ProjectStatus `json:"previous_status,omitempty"`
	Decision     *quota.Decision         `json:"decision,omitempty"`
	Build        *covbuild.Result        `json:"build,omitempty"`
	SubmissionID string                  `json:"submission_id"`
	Uploaded     bool                    `json:"uploaded"`
	Elapsed      time.Duration           `json:"elapsed"`
}

// CommitState maps the outcome to a commit status state. A skipped scan
// does not block the pull request.
func (o *Outcome) CommitState() string {
	if o.State == Failure {
		return "failure"
	}
	return "success"
}

func (o *Outcome) ExitCode() int {
	if o.State == Failure {
		return 1
	}
	return 0
}
