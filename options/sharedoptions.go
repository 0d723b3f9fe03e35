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

package options

import (
	"flag"
	"time"
)

type SharedOptions struct {
	BaseRev           *string
	BuildCommand      *string
	BuildDir          *string
	BuildTimeout      *int
	BuildURL          *string
	BuildsPerDay      *int
	BuildsPerWeek     *int
	CommitSHA         *string
	CompilerCache     *string
	ConfigFile        *string
	CovBuildBin       *string
	CovDir            *string
	DebugMode         *bool
	Description       *string
	DryRun            *bool
	FileBin           *string
	Generator         *string
	HeadRev           *string
	HistoryPath       *string
	IgnoreDirPatterns ArrayFlags
	Jobs              *int
	Lang              *string
	MinEmittedPercent *int
	PodmanBin         *string
	PodmanImage       *string
	PodmanLoadURLs    ArrayFlags
	PodmanVolumes     ArrayFlags
	PollInterval      *int
	ProjectName       *string
	PullRequest       *int
	Repository        *string
	ResultsDir        *string
	ScanEmail         *string
	ScanToken         *string
	ScanURL           *string
	SrcDir            *string
	StatusContext     *string
	UsePodman         *bool
	WaitAnalysis      *bool
	WaitTimeout       *int
	WebhookToken      *string
	WebhookURL        *string
}

func (s SharedOptions) GetBaseRev() string {
	return *s.BaseRev
}

func (s SharedOptions) GetBuildCommand() string {
	return *s.BuildCommand
}

func (s SharedOptions) GetBuildDir() string {
	return *s.BuildDir
}

func (s SharedOptions) GetBuildTimeout() time.Duration {
	return time.Duration(*s.BuildTimeout) * time.Minute
}

func (s SharedOptions) GetBuildURL() string {
	return *s.BuildURL
}

func (s SharedOptions) GetBuildsPerDay() int {
	return *s.BuildsPerDay
}

func (s SharedOptions) GetBuildsPerWeek() int {
	return *s.BuildsPerWeek
}

func (s SharedOptions) GetCommitSHA() string {
	return *s.CommitSHA
}

func (s SharedOptions) GetCompilerCache() string {
	return *s.CompilerCache
}

func (s SharedOptions) GetConfigFile() string {
	return *s.ConfigFile
}

func (s SharedOptions) GetCovBuildBin() string {
	return *s.CovBuildBin
}

func (s SharedOptions) GetCovDir() string {
	return *s.CovDir
}

func (s SharedOptions) GetDebugMode() bool {
	return *s.DebugMode
}

func (s SharedOptions) GetDescription() string {
	return *s.Description
}

func (s SharedOptions) GetDryRun() bool {
	return *s.DryRun
}

func (s SharedOptions) GetFileBin() string {
	return *s.FileBin
}

func (s SharedOptions) GetGenerator() string {
	return *s.Generator
}

func (s SharedOptions) GetHeadRev() string {
	return *s.HeadRev
}

func (s SharedOptions) GetHistoryPath() string {
	return *s.HistoryPath
}

func (s SharedOptions) GetIgnoreDirPatterns() ArrayFlags {
	return s.IgnoreDirPatterns
}

func (s SharedOptions) GetJobs() int {
	return *s.Jobs
}

func (s SharedOptions) GetLang() string {
	return *s.Lang
}

func (s SharedOptions) GetMinEmittedPercent() int {
	return *s.MinEmittedPercent
}

func (s SharedOptions) GetPodmanBin() string {
	return *s.PodmanBin
}

func (s SharedOptions) GetPodmanImage() string {
	return *s.PodmanImage
}

func (s SharedOptions) GetPodmanLoadURLs() ArrayFlags {
	return s.PodmanLoadURLs
}

func (s SharedOptions) GetPodmanVolumes() ArrayFlags {
	return s.PodmanVolumes
}

func (s SharedOptions) GetPollInterval() time.Duration {
	return time.Duration(*s.PollInterval) * time.Second
}

func (s SharedOptions) GetProjectName() string {
	return *s.ProjectName
}

func (s SharedOptions) GetPullRequest() int {
	return *s.PullRequest
}

func (s SharedOptions) GetRepository() string {
	return *s.Repository
}

func (s SharedOptions) GetResultsDir() string {
	return *s.ResultsDir
}

func (s SharedOptions) GetScanEmail() string {
	return *s.ScanEmail
}

func (s SharedOptions) GetScanToken() string {
	return *s.ScanToken
}

func (s SharedOptions) GetScanURL() string {
	return *s.ScanURL
}

func (s SharedOptions) GetSrcDir() string {
	return *s.SrcDir
}

func (s SharedOptions) GetStatusContext() string {
	return *s.StatusContext
}

func (s SharedOptions) GetUsePodman() bool {
	return *s.UsePodman
}

func (s SharedOptions) GetWaitAnalysis() bool {
	return *s.WaitAnalysis
}

func (s SharedOptions) GetWaitTimeout() time.Duration {
	return time.Duration(*s.WaitTimeout) * time.Minute
}

func (s SharedOptions) GetWebhookToken() string {
	return *s.WebhookToken
}

func (s SharedOptions) GetWebhookURL() string {
	return *s.WebhookURL
}

func (s SharedOptions) SetCommitSHA(sha string) {
	*s.CommitSHA = sha
}

type DefaultOptionValues struct {
	BaseRev           string
	BuildCommand      string
	BuildDir          string
	BuildTimeout      int
	BuildsPerDay      int
	BuildsPerWeek     int
	CovBuildBin       string
	CovDir            string
	FileBin           string
	Generator         string
	HeadRev           string
	HistoryPath       string
	IgnoreDirPatterns ArrayFlags
	Lang              string
	MinEmittedPercent int
	PodmanBin         string
	PollInterval      int
	ResultsDir        string
	ScanURL           string
	SrcDir            string
	StatusContext     string
	WaitTimeout       int
}

var Defaults = DefaultOptionValues{
	BaseRev:           "HEAD^",
	BuildCommand:      "ninja -j{jobs}",
	BuildDir:          "",
	BuildTimeout:      120,
	BuildsPerDay:      0,
	BuildsPerWeek:     0,
	CovBuildBin:       "cov-build",
	CovDir:            "",
	FileBin:           "file",
	Generator:         "cmake -G Ninja {src}",
	HeadRev:           "HEAD",
	HistoryPath:       "",
	IgnoreDirPatterns: []string{".covbot/**"},
	Lang:              "en",
	MinEmittedPercent: 85,
	PodmanBin:         "podman",
	PollInterval:      60,
	ResultsDir:        "/output",
	ScanURL:           "https://scan.coverity.com",
	SrcDir:            "/src",
	StatusContext:     "coverity",
	WaitTimeout:       60,
}

// NewSharedOptions registers the options on fs. Pass flag.CommandLine
// from main.
func NewSharedOptions(fs *flag.FlagSet) *SharedOptions {
	option := &SharedOptions{}

	option.BaseRev = fs.String("base", Defaults.BaseRev, "Revision the change is compared against")
	option.BuildCommand = fs.String("build_command", Defaults.BuildCommand, "Build command run under cov-build. Supports {src}, {build}, {cov_dir} and {jobs}")
	option.BuildDir = fs.String("build_dir", Defaults.BuildDir, "Build directory, defaults to <src_dir>/.covbot/build")
	option.BuildTimeout = fs.Int("build_timeout", Defaults.BuildTimeout, "Minutes before the build is aborted. 0 means no limit")
	option.BuildURL = fs.String("build_url", "", "Link attached to the commit status, usually the CI job page")
	option.BuildsPerDay = fs.Int("builds_per_day", Defaults.BuildsPerDay, "Override the daily submission quota. 0 uses the Coverity Scan tier")
	option.BuildsPerWeek = fs.Int("builds_per_week", Defaults.BuildsPerWeek, "Override the weekly submission quota. 0 uses the Coverity Scan tier")
	option.CommitSHA = fs.String("commit", "", "Commit the status is reported on. Falls back to $COMMIT_SHA, then the head revision")
	option.CompilerCache = fs.String("compiler_cache", "", "Compiler launcher passed to CMake, e.g. ccache")
	option.ConfigFile = fs.String("config", "", "YAML file whose keys are option names")
	option.CovBuildBin = fs.String("cov_build_bin", Defaults.CovBuildBin, "cov-build binary location")
	option.CovDir = fs.String("cov_dir", Defaults.CovDir, "cov-build intermediate directory, defaults to <src_dir>/.covbot/cov-int")
	option.DebugMode = fs.Bool("debug_mode", false, "Whether to display error information")
	option.Description = fs.String("description", "", "Description sent with the submission")
	option.DryRun = fs.Bool("dry_run", false, "Build but do not upload or record the submission")
	option.FileBin = fs.String("file_bin", Defaults.FileBin, "file(1) binary used to sniff extensionless sources")
	option.Generator = fs.String("generator", Defaults.Generator, "Build system generator command. Empty skips the step")
	option.HeadRev = fs.String("head", Defaults.HeadRev, "Revision under test")
	option.HistoryPath = fs.String("history", Defaults.HistoryPath, "Submission history, a JSON file path or a postgres:// DSN. Defaults to <results_dir>/coverity_history.json")
	option.Jobs = fs.Int("jobs", 0, "Build parallelism. 0 picks a value from CPUs and available memory")
	option.Lang = fs.String("lang", Defaults.Lang, "Language of the report, en or zh")
	option.MinEmittedPercent = fs.Int("min_emitted_percent", Defaults.MinEmittedPercent, "Minimum percentage of compilation units cov-build must capture")
	option.PodmanBin = fs.String("podman_bin", Defaults.PodmanBin, "Podman binary location")
	option.PodmanImage = fs.String("podman_image", "", "Image the build runs in")
	option.PollInterval = fs.Int("poll_interval", Defaults.PollInterval, "Seconds between project page checks while waiting for analysis")
	option.ProjectName = fs.String("project_name", "", "Coverity Scan project name")
	option.PullRequest = fs.Int("pr", 0, "Pull request number. Falls back to $PR_NUMBER")
	option.Repository = fs.String("repository", "", "Repository as owner/name for the webhook API")
	option.ResultsDir = fs.String("results_dir", Defaults.ResultsDir, "Absolute path to the directory of results files")
	option.ScanEmail = fs.String("scan_email", "", "Email Coverity Scan notifies about the analysis")
	option.ScanToken = fs.String("scan_token", "", "Coverity Scan project token. Falls back to $COVERITY_SCAN_TOKEN")
	option.ScanURL = fs.String("scan_url", Defaults.ScanURL, "Coverity Scan base URL")
	option.SrcDir = fs.String("src_dir", Defaults.SrcDir, "Absolute path to the repository checkout")
	option.StatusContext = fs.String("status_context", Defaults.StatusContext, "Context of the commit status")
	option.UsePodman = fs.Bool("podman", false, "Run the build inside -podman_image")
	option.WaitAnalysis = fs.Bool("wait_analysis", false, "Wait for Coverity Scan to analyze the submission")
	option.WaitTimeout = fs.Int("wait_timeout", Defaults.WaitTimeout, "Minutes to wait for the analysis")
	option.WebhookToken = fs.String("webhook_token", "", "Bearer token of the webhook API. Falls back to $WEBHOOK_TOKEN")
	option.WebhookURL = fs.String("webhook_url", "", "Base URL of the webhook API. Empty disables reporting")

	option.IgnoreDirPatterns = append(ArrayFlags{}, Defaults.IgnoreDirPatterns...)
	fs.Var(&option.IgnoreDirPatterns, "ignore_dir", "Doublestar pattern of paths that will be ignored")
	fs.Var(&option.PodmanLoadURLs, "podman_load_url", "Image archive tried with podman load before pulling")
	fs.Var(&option.PodmanVolumes, "podman_volume", "Extra volume for the build container, host:container[:opts]")

	return option
}
