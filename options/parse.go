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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"gopkg.in/yaml.v2"
	"naive.systems/covbot/i18n"
)

// Environment variables consulted when the matching option is empty.
const (
	EnvScanToken    = "COVERITY_SCAN_TOKEN"
	EnvWebhookToken = "WEBHOOK_TOKEN"
	EnvPullRequest  = "PR_NUMBER"
	EnvCommitSHA    = "COMMIT_SHA"
)

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// Parse parses args into fs, then fills options that were not given on
// the command line from the -config file and the environment.
func (s *SharedOptions) Parse(fs *flag.FlagSet, args []string, lookupEnv LookupEnv) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if s.GetConfigFile() != "" {
		if err := LoadConfigFile(fs, s.GetConfigFile(), explicit); err != nil {
			return err
		}
	}
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if err := s.applyEnv(lookupEnv); err != nil {
		return err
	}
	s.applyDerivedDefaults()
	return nil
}

// LoadConfigFile applies a YAML mapping of option names to values. Keys
// in skip are left alone so that the command line wins.
func LoadConfigFile(fs *flag.FlagSet, path string, skip map[string]bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("options.LoadConfigFile: %v", err)
	}
	values := map[string]interface{}{}
	if err := yaml.Unmarshal(content, &values); err != nil {
		return fmt.Errorf("options.LoadConfigFile: %s: %v", path, err)
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "config" {
			return fmt.Errorf("options.LoadConfigFile: %s: config files cannot be nested", path)
		}
		if fs.Lookup(key) == nil {
			return fmt.Errorf("options.LoadConfigFile: %s: unknown option %q", path, key)
		}
		if skip[key] {
			continue
		}
		var items []interface{}
		if list, ok := values[key].([]interface{}); ok {
			items = list
		} else {
			items = []interface{}{values[key]}
		}
		for _, item := range items {
			if item == nil {
				continue
			}
			if err := fs.Set(key, fmt.Sprint(item)); err != nil {
				return fmt.Errorf("options.LoadConfigFile: %s: invalid value for %s: %v", path, key, err)
			}
		}
	}
	return nil
}

func (s *SharedOptions) applyEnv(lookupEnv LookupEnv) error {
	fill := func(field *string, key string) {
		if *field != "" {
			return
		}
		if value, ok := lookupEnv(key); ok {
			*field = strings.TrimSpace(value)
		}
	}
	fill(s.ScanToken, EnvScanToken)
	fill(s.WebhookToken, EnvWebhookToken)
	fill(s.CommitSHA, EnvCommitSHA)
	if *s.PullRequest == 0 {
		if value, ok := lookupEnv(EnvPullRequest); ok && strings.TrimSpace(value) != "" {
			pr, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("invalid $%s %q: %v", EnvPullRequest, value, err)
			}
			*s.PullRequest = pr
		}
	}
	return nil
}

func (s *SharedOptions) applyDerivedDefaults() {
	workDir := filepath.Join(s.GetSrcDir(), ".covbot")
	if *s.BuildDir == "" {
		*s.BuildDir = filepath.Join(workDir, "build")
	}
	if *s.CovDir == "" {
		*s.CovDir = filepath.Join(workDir, "cov-int")
	}
	if *s.HistoryPath == "" {
		*s.HistoryPath = filepath.Join(s.GetResultsDir(), "coverity_history.json")
	}
}

func splitCommand(name, command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid -%s %q: %v", name, command, err)
	}
	return args, nil
}

func (s SharedOptions) GeneratorArgs() ([]string, error) {
	return splitCommand("generator", s.GetGenerator())
}

func (s SharedOptions) BuildArgs() ([]string, error) {
	return splitCommand("build_command", s.GetBuildCommand())
}

// OwnerRepo splits -repository.
func (s SharedOptions) OwnerRepo() (string, string, error) {
	owner, repo, found := strings.Cut(s.GetRepository(), "/")
	if !found || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid -repository %q, expect owner/name", s.GetRepository())
	}
	return owner, repo, nil
}

// Validate reports all missing or inconsistent options at once.
func (s SharedOptions) Validate() error {
	var problems []string
	if s.GetProjectName() == "" {
		problems = append(problems, "-project_name is required")
	}
	if !filepath.IsAbs(s.GetSrcDir()) {
		problems = append(problems, "-src_dir must be an absolute path")
	}
	if s.GetScanToken() == "" && !s.GetDryRun() {
		problems = append(problems, "-scan_token or $"+EnvScanToken+" is required unless -dry_run")
	}
	if s.GetWebhookURL() != "" {
		if _, _, err := s.OwnerRepo(); err != nil {
			problems = append(problems, err.Error())
		}
		if s.GetWebhookToken() == "" {
			problems = append(problems, "-webhook_token or $"+EnvWebhookToken+" is required with -webhook_url")
		}
	}
	if !i18n.Supported(s.GetLang()) {
		problems = append(problems, fmt.Sprintf("unsupported -lang %q", s.GetLang()))
	}
	if p := s.GetMinEmittedPercent(); p < 0 || p > 100 {
		problems = append(problems, "-min_emitted_percent must be between 0 and 100")
	}
	if s.GetBuildsPerDay() < 0 || s.GetBuildsPerWeek() < 0 {
		problems = append(problems, "-builds_per_day and -builds_per_week must not be negative")
	}
	if s.GetUsePodman() && s.GetPodmanImage() == "" {
		problems = append(problems, "-podman_image is required with -podman")
	}
	if s.GetWaitAnalysis() && s.GetPollInterval() <= 0 {
		problems = append(problems, "-poll_interval must be positive")
	}
	if args, err := s.BuildArgs(); err != nil {
		problems = append(problems, err.Error())
	} else if len(args) == 0 {
		problems = append(problems, "-build_command is required")
	}
	if _, err := s.GeneratorArgs(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid options:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
