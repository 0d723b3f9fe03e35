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
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/message"
	"naive.systems/covbot/basic"
)

const (
	maxListedFiles    = 20
	maxDescriptionLen = 140
	markerPrefix      = "<!-- covbot:"
)

type Links struct {
	ProjectURL string
	BuildLog   string
}

// Marker is the hidden comment that identifies comments from a run.
func Marker(runID string) string {
	return markerPrefix + runID + " -->"
}

func title(p *message.Printer, state State) string {
	switch state {
	case Success:
		return p.Sprintf("Coverity scan succeeded")
	case Failure:
		return p.Sprintf("Coverity scan failed")
	case Skip:
		return p.Sprintf("Coverity scan skipped")
	}
	return p.Sprintf("Coverity scan is running")
}

func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func quotaLine(p *message.Printer, o *Outcome) string {
	d := o.Decision
	return p.Sprintf("Quota exceeded: %d/%d builds today, %d/%d this week. Next slot at %s.",
		d.UsedToday, d.Policy.PerDay, d.UsedThisWeek, d.Policy.PerWeek, stamp(d.NextAllowed))
}

// Comment renders the Markdown comment posted on the pull request.
func Comment(p *message.Printer, o *Outcome, links Links) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Marker(o.SubmissionID))
	fmt.Fprintf(&b, "### %s\n\n", title(p, o.State))

	switch {
	case o.State == Skip && o.Step == StepChanges:
		fmt.Fprintf(&b, "%s\n\n", p.Sprintf("No C/C++ files changed."))
	case o.State == Skip && o.Step == StepQuota && o.Decision != nil:
		fmt.Fprintf(&b, "%s\n\n", quotaLine(p, o))
	case o.State == Skip:
		fmt.Fprintf(&b, "%s\n\n", p.Sprintf("Skipped: %s", o.Reason))
	case o.State == Failure:
		fmt.Fprintf(&b, "%s\n\n", p.Sprintf("Failed at step %s: %s", o.Step, o.Reason))
	}

	if len(o.ChangedFiles) > 0 {
		fmt.Fprintf(&b, "%s\n\n", p.Sprintf("Changed C/C++ files (%d):", len(o.ChangedFiles)))
		for i, name := range o.ChangedFiles {
			if i == maxListedFiles {
				fmt.Fprintf(&b, "- %s\n", p.Sprintf("and %d more", len(o.ChangedFiles)-maxListedFiles))
				break
			}
			fmt.Fprintf(&b, "- `%s`\n", name)
		}
		b.WriteString("\n")
	}

	if o.Build != nil {
		fmt.Fprintf(&b, "%s\n\n", p.Sprintf("Compilation units captured: %d (%d%%)", o.Build.Units, o.Build.Percent))
	}
	if o.State == Success {
		if o.Uploaded {
			fmt.Fprintf(&b, "%s\n\n", p.Sprintf("Submitted build %s to Coverity Scan.", o.SubmissionID))
		} else {
			fmt.Fprintf(&b, "%s\n\n", p.Sprintf("Upload skipped (dry run)."))
		}
		if o.Status != nil {
			fmt.Fprintf(&b, "%s\n\n", p.Sprintf("Outstanding defects: %d, newly detected: %d, fixed: %d",
				o.Status.Outstanding, o.Status.NewDefects, o.Status.Fixed))
		} else {
			fmt.Fprintf(&b, "%s\n\n", p.Sprintf("Defect counts are not available yet."))
		}
	}

	var footer []string
	if links.ProjectURL != "" {
		footer = append(footer, p.Sprintf("Project page: %s", links.ProjectURL))
	}
	if links.BuildLog != "" && o.State == Failure {
		footer = append(footer, p.Sprintf("Build log: %s", links.BuildLog))
	}
	if o.Elapsed > 0 {
		footer = append(footer, p.Sprintf("Elapsed: %s", basic.FormatTimeDuration(o.Elapsed)))
	}
	if len(footer) > 0 {
		fmt.Fprintf(&b, "<sub>%s</sub>\n", strings.Join(footer, " · "))
	}
	return b.String()
}

// Description is the one-line commit status text.
func Description(p *message.Printer, o *Outcome) string {
	var desc string
	switch o.State {
	case Success:
		units := 0
		if o.Build != nil {
			units = o.Build.Units
		}
		desc = p.Sprintf("%d files scanned, %d units captured", len(o.ChangedFiles), units)
		if o.Uploaded {
			desc += ", " + p.Sprintf("build submitted")
		}
	case Skip:
		if o.Step == StepQuota && o.Decision != nil {
			desc = p.Sprintf("quota exceeded until %s", stamp(o.Decision.NextAllowed))
		} else if o.Step == StepChanges {
			desc = p.Sprintf("no C/C++ changes")
		} else {
			desc = p.Sprintf("Skipped: %s", o.Reason)
		}
	case Failure:
		desc = p.Sprintf("failed at %s", o.Step) + ": " + o.Reason
	default:
		desc = p.Sprintf("Coverity scan is running")
	}
	return truncate(desc, maxDescriptionLen)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
