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

package scan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"naive.systems/covbot/covbuild"
	"naive.systems/covbot/cpumem"
	"naive.systems/covbot/filetype"
	"naive.systems/covbot/gitchange"
	"naive.systems/covbot/history"
	"naive.systems/covbot/options"
	"naive.systems/covbot/podman"
	"naive.systems/covbot/quota"
	"naive.systems/covbot/scanpage"
	"naive.systems/covbot/upload"
	"naive.systems/covbot/utils"
	"naive.systems/covbot/webhook"
)

// NewDeps wires the collaborators that talk to Coverity Scan and the
// webhook. They do not touch the checkout or the toolchain, so a run that
// fails in Setup can still be reported with Fail.
func NewDeps(opts *options.SharedOptions) (*Deps, error) {
	deps := &Deps{
		Changes:    gitchange.Changes,
		HasParent:  gitchange.HasParent,
		Files:      filetype.NewDetector(opts.GetFileBin(), opts.GetIgnoreDirPatterns()),
		Page:       scanpage.NewClient(opts.GetScanURL()),
		CountLines: quota.CountLines,
		Uploader:   upload.NewClient(opts.GetScanURL()),
		Now:        time.Now,
		NewID:      uuid.NewString,
	}
	if opts.GetWebhookURL() != "" {
		owner, repo, err := opts.OwnerRepo()
		if err != nil {
			return nil, err
		}
		deps.Reporter = webhook.NewClient(opts.GetWebhookURL(), opts.GetWebhookToken(), owner, repo)
	}
	return deps, nil
}

// Setup resolves the commit sha when neither -commit nor $COMMIT_SHA is
// set, prepares the builder and opens the submission history.
func (d *Deps) Setup(opts *options.SharedOptions) error {
	if opts.GetCommitSHA() == "" {
		sha, err := gitchange.ResolveCommit(opts.GetSrcDir(), opts.GetHeadRev())
		if err != nil {
			return fmt.Errorf("scan.Setup: %v", err)
		}
		opts.SetCommitSHA(sha)
	}
	builder, err := newBuilder(opts)
	if err != nil {
		return fmt.Errorf("scan.Setup: %v", err)
	}
	store, err := history.Open(opts.GetHistoryPath())
	if err != nil {
		return fmt.Errorf("scan.Setup: %v", err)
	}
	d.Builder, d.History = builder, store
	return nil
}

func newBuilder(opts *options.SharedOptions) (*covbuild.Builder, error) {
	generator, err := opts.GeneratorArgs()
	if err != nil {
		return nil, err
	}
	buildCommand, err := opts.BuildArgs()
	if err != nil {
		return nil, err
	}

	var runner covbuild.CommandRunner
	if opts.GetUsePodman() {
		bin, err := utils.ResolveBinaryPath(opts.GetPodmanBin())
		if err != nil {
			return nil, err
		}
		if err := podman.LoadImage(bin, opts.GetPodmanImage(), opts.GetPodmanLoadURLs()); err != nil {
			return nil, err
		}
		runner = &podman.Runner{
			Bin:     bin,
			Image:   opts.GetPodmanImage(),
			SrcDir:  opts.GetSrcDir(),
			Volumes: opts.GetPodmanVolumes(),
		}
	} else {
		if _, err := utils.ResolveBinaryPath(opts.GetCovBuildBin()); err != nil {
			return nil, err
		}
		runner = covbuild.LocalRunner{}
	}

	jobs := cpumem.DetectBuildJobs(opts.GetJobs())
	return covbuild.New(covbuild.Config{
		SrcDir:            opts.GetSrcDir(),
		BuildDir:          opts.GetBuildDir(),
		CovDir:            opts.GetCovDir(),
		Generator:         generator,
		BuildCommand:      buildCommand,
		CovBuild:          opts.GetCovBuildBin(),
		CompilerCache:     opts.GetCompilerCache(),
		Jobs:              jobs,
		MinEmittedPercent: opts.GetMinEmittedPercent(),
		Timeout:           opts.GetBuildTimeout(),
	}, runner), nil
}
