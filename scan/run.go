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

// Package scan runs Coverity over the C/C++ files a change touches and
// reports the result back to the pull request.
package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"golang.org/x/text/message"
	"naive.systems/covbot/basic"
	"naive.systems/covbot/covbuild"
	"naive.systems/covbot/diff"
	"naive.systems/covbot/history"
	"naive.systems/covbot/i18n"
	"naive.systems/covbot/options"
	"naive.systems/covbot/quota"
	"naive.systems/covbot/report"
	"naive.systems/covbot/scanpage"
	"naive.systems/covbot/stats"
	"naive.systems/covbot/upload"
	"naive.systems/covbot/webhook"
)

type Outcome = report.Outcome

// A page stamp this close after a recorded submission is taken to be the
// analysis of that submission.
const analysisLag = 12 * time.Hour

type ChangeLister func(repoDir, base, head string) (*diff.Patch, error)

type Classifier interface {
	Classify(root string, paths []string) ([]string, error)
}

type ProjectPage interface {
	Fetch(ctx context.Context, project string) (*scanpage.ProjectStatus, error)
	WaitForAnalysis(ctx context.Context, project string, since time.Time, before *scanpage.ProjectStatus, interval time.Duration) (*scanpage.ProjectStatus, error)
	ProjectURL(project string) string
}

type Builder interface {
	Build(ctx context.Context) (*covbuild.Result, error)
}

type Uploader interface {
	Submit(ctx context.Context, s upload.Submission) error
}

type Reporter interface {
	CreateStatus(ctx context.Context, sha string, status webhook.Status) error
	CreateComment(ctx context.Context, pr int, body string) error
}

// Deps are the collaborators of Run. Reporter may be nil.
type Deps struct {
	Changes    ChangeLister
	HasParent  func(repoDir, rev string) (bool, error)
	Files      Classifier
	Page       ProjectPage
	CountLines func(srcDir string, ignorePatterns []string) (int, error)
	Builder    Builder
	Uploader   Uploader
	Reporter   Reporter
	History    history.Store
	Now        func() time.Time
	NewID      func() string
}

type run struct {
	opts    *options.SharedOptions
	deps    *Deps
	p       *message.Printer
	start   time.Time
	outcome *Outcome
}

// Run executes the pipeline and reports its outcome. The returned error
// is set for infrastructure problems; the outcome is a failure then and
// has already been reported.
func Run(ctx context.Context, opts *options.SharedOptions, deps *Deps) (*Outcome, error) {
	r := newRun(opts, deps)
	glog.Infof("scan %s of %s started", r.outcome.SubmissionID, opts.GetProjectName())
	r.postStatus(ctx, webhook.StatePending, r.p.Sprintf("Coverity scan is running"))
	err := r.execute(ctx)
	if err != nil && r.outcome.State == "" {
		r.fail(r.outcome.Step, err.Error())
	}
	r.finish(ctx)
	return r.outcome, err
}

// Fail reports a run that could not be set up, for example because
// cov-build is missing. Only the Page, Reporter, Now and NewID
// collaborators of deps are used.
func Fail(ctx context.Context, opts *options.SharedOptions, deps *Deps, err error) *Outcome {
	r := newRun(opts, deps)
	r.fail(report.StepSetup, err.Error())
	r.finish(ctx)
	return r.outcome
}

func newRun(opts *options.SharedOptions, deps *Deps) *run {
	return &run{
		opts:    opts,
		deps:    deps,
		p:       i18n.GetPrinter(opts.GetLang()),
		start:   deps.Now(),
		outcome: &Outcome{SubmissionID: deps.NewID()},
	}
}

func (r *run) progress(stage int) {
	stats.WriteProgress(r.opts.GetResultsDir(), stage, stats.DoneRatio(stage), r.start)
}

func (r *run) fail(step, reason string) {
	r.outcome.State, r.outcome.Step, r.outcome.Reason = report.Failure, step, reason
	glog.Errorf("scan failed at %s: %s", step, reason)
}

func (r *run) skip(step, reason string) {
	r.outcome.State, r.outcome.Step, r.outcome.Reason = report.Skip, step, reason
	basic.PrintfWithTimeStamp("Skipping Coverity scan: %s", reason)
}

func (r *run) execute(ctx context.Context) error {
	o := r.outcome
	project := r.opts.GetProjectName()

	o.Step = report.StepChanges
	r.progress(stats.CF)
	files, err := r.changedFiles()
	if err != nil {
		return err
	}
	o.ChangedFiles = files
	if len(files) == 0 {
		r.skip(report.StepChanges, "no C/C++ changes")
		return nil
	}
	basic.PrintfWithTimeStamp("%d C/C++ files changed", len(files))

	o.Step = report.StepQuota
	r.progress(stats.QC)
	decision := r.checkQuota(ctx)
	o.Decision = &decision
	if !decision.Allowed {
		r.skip(report.StepQuota, fmt.Sprintf("%s, next slot at %s", decision.Reason, decision.NextAllowed.UTC().Format(time.RFC3339)))
		return nil
	}

	o.Step = report.StepBuild
	r.progress(stats.CB)
	result, err := r.deps.Builder.Build(ctx)
	o.Build = result
	if err != nil {
		var buildErr *covbuild.Error
		if errors.As(err, &buildErr) {
			r.fail(report.StepBuild, buildErr.Error())
			return nil
		}
		return err
	}

	o.Step = report.StepArchive
	archive := filepath.Join(r.opts.GetResultsDir(), ArchiveName(project))
	if err := basic.TarFile(r.opts.GetCovDir(), archive); err != nil {
		r.fail(report.StepArchive, err.Error())
		return nil
	}

	o.Step = report.StepUpload
	r.progress(stats.UP)
	if r.opts.GetDryRun() {
		basic.PrintfWithTimeStamp("Dry run, %s is not uploaded", archive)
	} else {
		if err := r.deps.Uploader.Submit(ctx, r.submission(archive)); err != nil {
			r.fail(report.StepUpload, err.Error())
			return nil
		}
		o.Uploaded = true
		submittedAt := r.deps.Now()
		r.record(ctx, submittedAt)
		if r.opts.GetWaitAnalysis() {
			r.progress(stats.WA)
			r.waitForAnalysis(ctx, submittedAt)
		}
	}

	o.State, o.Step = report.Success, report.StepDone
	return nil
}

func (r *run) changedFiles() ([]string, error) {
	src := r.opts.GetSrcDir()
	base, head := r.opts.GetBaseRev(), r.opts.GetHeadRev()
	if base == options.Defaults.BaseRev && r.deps.HasParent != nil {
		has, err := r.deps.HasParent(src, head)
		if err != nil {
			return nil, err
		}
		if !has {
			glog.Infof("%s is a root commit, comparing against the empty tree", head)
			base = ""
		}
	}
	patch, err := r.deps.Changes(src, base, head)
	if err != nil {
		return nil, err
	}
	return r.deps.Files.Classify(src, patch.ChangedFiles())
}

// checkQuota merges the project page with the local history. Neither
// source failing stops the run; the decision just has less to go on.
func (r *run) checkQuota(ctx context.Context) quota.Decision {
	project := r.opts.GetProjectName()
	now := r.deps.Now()

	status, err := r.deps.Page.Fetch(ctx, project)
	if err != nil {
		glog.Warningf("failed to read the Coverity Scan project page, using local history only: %v", err)
		status = nil
	}
	r.outcome.PreviousStatus = status

	lines := 0
	if status != nil && status.LinesOfCode > 0 {
		lines = status.LinesOfCode
	} else if lines, err = r.deps.CountLines(r.opts.GetSrcDir(), r.opts.GetIgnoreDirPatterns()); err != nil {
		glog.Warningf("failed to count lines, assuming the smallest quota: %v", err)
		lines = quota.LargestTierLines
	}
	policy := quota.PolicyForLines(lines).Override(r.opts.GetBuildsPerDay(), r.opts.GetBuildsPerWeek())
	glog.Infof("%d lines of code, quota %d per day and %d per week", lines, policy.PerDay, policy.PerWeek)

	var submissions []history.Submission
	if r.deps.History != nil {
		submissions, err = r.deps.History.Since(ctx, project, now.Add(-quota.Week))
		if err != nil {
			glog.Warningf("failed to read submission history: %v", err)
		}
	}
	decision := quota.Decide(now, policy, mergeBuilds(submissions, status))
	glog.Infof("quota decision: %+v", decision)
	return decision
}

// mergeBuilds combines recorded submissions with the last build shown on
// the project page, unless the page is just showing one of ours.
func mergeBuilds(submissions []history.Submission, status *scanpage.ProjectStatus) []quota.Build {
	var builds []quota.Build
	for _, s := range submissions {
		builds = append(builds, quota.Build{At: s.SubmittedAt})
	}
	if status == nil || status.LastBuild.IsZero() {
		return builds
	}
	page := quota.Build{At: status.LastBuild, DateOnly: status.LastBuildDateOnly}
	if !page.DateOnly {
		for _, s := range submissions {
			if !s.SubmittedAt.After(page.At) && page.At.Sub(s.SubmittedAt) < analysisLag {
				return builds
			}
		}
	}
	return append(builds, page)
}

func (r *run) submission(archive string) upload.Submission {
	description := r.opts.GetDescription()
	if description == "" {
		description = fmt.Sprintf("covbot %s", r.opts.GetCommitSHA())
		if pr := r.opts.GetPullRequest(); pr > 0 {
			description = fmt.Sprintf("covbot PR #%d %s", pr, r.opts.GetCommitSHA())
		}
	}
	return upload.Submission{
		Project:     r.opts.GetProjectName(),
		Token:       r.opts.GetScanToken(),
		Email:       r.opts.GetScanEmail(),
		Version:     r.opts.GetCommitSHA(),
		Description: strings.TrimSpace(description) + " [" + r.outcome.SubmissionID + "]",
		ArchivePath: archive,
	}
}

func (r *run) record(ctx context.Context, submittedAt time.Time) {
	if r.deps.History == nil {
		return
	}
	err := r.deps.History.Record(ctx, history.Submission{
		ID:          r.outcome.SubmissionID,
		Project:     r.opts.GetProjectName(),
		Commit:      r.opts.GetCommitSHA(),
		PullRequest: r.opts.GetPullRequest(),
		SubmittedAt: submittedAt,
	})
	if err != nil {
		glog.Errorf("failed to record submission %s: %v", r.outcome.SubmissionID, err)
	}
}

func (r *run) waitForAnalysis(ctx context.Context, since time.Time) {
	basic.PrintfWithTimeStamp("Waiting up to %s for Coverity Scan to analyze the build", basic.FormatTimeDuration(r.opts.GetWaitTimeout()))
	wctx, cancel := context.WithTimeout(ctx, r.opts.GetWaitTimeout())
	defer cancel()
	status, err := r.deps.Page.WaitForAnalysis(wctx, r.opts.GetProjectName(), since, r.outcome.PreviousStatus, r.opts.GetPollInterval())
	if err != nil {
		glog.Warningf("analysis not finished: %v", err)
		return
	}
	r.outcome.Status = status
}

// ArchiveName is the file the cov-int directory is packed into.
func ArchiveName(project string) string {
	name := strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', ' ', ':':
			return '-'
		}
		return c
	}, project)
	return name + ".tgz"
}

func (r *run) finish(ctx context.Context) {
	o := r.outcome
	o.Elapsed = r.deps.Now().Sub(r.start)
	r.progress(stats.RP)

	links := report.Links{ProjectURL: r.deps.Page.ProjectURL(r.opts.GetProjectName()), BuildLog: r.opts.GetBuildURL()}
	r.postStatus(ctx, o.CommitState(), report.Description(r.p, o))
	if r.deps.Reporter != nil && r.opts.GetPullRequest() > 0 {
		if err := r.deps.Reporter.CreateComment(ctx, r.opts.GetPullRequest(), report.Comment(r.p, o, links)); err != nil {
			glog.Errorf("failed to comment on pull request %d: %v", r.opts.GetPullRequest(), err)
		}
	}

	if err := stats.WriteSummary(r.opts.GetResultsDir(), o); err != nil {
		glog.Errorf("failed to write %s: %v", stats.SummaryFile, err)
	}
	r.progress(stats.END)
	basic.PrintfWithTimeStamp("Coverity scan %s [%s]", o.State, basic.FormatTimeDuration(o.Elapsed))
}

func (r *run) postStatus(ctx context.Context, state, description string) {
	if r.deps.Reporter == nil {
		return
	}
	sha := r.opts.GetCommitSHA()
	if sha == "" {
		glog.Warning("no commit sha, commit status not posted")
		return
	}
	target := r.opts.GetBuildURL()
	if target == "" {
		target = r.deps.Page.ProjectURL(r.opts.GetProjectName())
	}
	err := r.deps.Reporter.CreateStatus(ctx, sha, webhook.Status{
		State:       state,
		TargetURL:   target,
		Description: description,
		Context:     r.opts.GetStatusContext(),
	})
	if err != nil {
		glog.Errorf("failed to post %s commit status: %v", state, err)
	}
}
