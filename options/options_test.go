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
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestOptions() (*flag.FlagSet, *SharedOptions) {
	fs := flag.NewFlagSet("covbot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs, NewSharedOptions(fs)
}

func envMap(m map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestParseDefaults(t *testing.T) {
	fs, s := newTestOptions()
	if err := s.Parse(fs, []string{"-project_name", "widget"}, envMap(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.GetBuildDir() != "/src/.covbot/build" || s.GetCovDir() != "/src/.covbot/cov-int" {
		t.Errorf("unexpected work dirs %s %s", s.GetBuildDir(), s.GetCovDir())
	}
	if s.GetHistoryPath() != "/output/coverity_history.json" {
		t.Errorf("unexpected history path %s", s.GetHistoryPath())
	}
	if d := cmp.Diff(ArrayFlags{".covbot/**"}, s.GetIgnoreDirPatterns()); d != "" {
		t.Errorf("unexpected ignore patterns (-want +got):\n%s", d)
	}
}

func TestParseConfigFileAndEnv(t *testing.T) {
	config := filepath.Join(t.TempDir(), "covbot.yaml")
	content := `project_name: acme/widget
lang: zh
builds_per_day: 2
dry_run: true
ignore_dir:
  - third_party/**
  - build/**
generator: cmake -G "Unix Makefiles" {src}
build_command: make -j{jobs}
scan_token: from-file
`
	if err := os.WriteFile(config, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	fs, s := newTestOptions()
	args := []string{"-config", config, "-lang", "en", "-src_dir", "/work/widget"}
	env := envMap(map[string]string{
		EnvScanToken:    "from-env",
		EnvWebhookToken: "hook",
		EnvPullRequest:  " 42 ",
		EnvCommitSHA:    "abc123",
	})
	if err := s.Parse(fs, args, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, testCase := range [...]struct {
		name     string
		got      any
		expected any
	}{
		{"project from file", s.GetProjectName(), "acme/widget"},
		{"command line wins", s.GetLang(), "en"},
		{"int from file", s.GetBuildsPerDay(), 2},
		{"bool from file", s.GetDryRun(), true},
		{"file wins over env", s.GetScanToken(), "from-file"},
		{"token from env", s.GetWebhookToken(), "hook"},
		{"pr from env", s.GetPullRequest(), 42},
		{"commit from env", s.GetCommitSHA(), "abc123"},
		{"derived build dir", s.GetBuildDir(), "/work/widget/.covbot/build"},
	} {
		if d := cmp.Diff(testCase.expected, testCase.got); d != "" {
			t.Errorf("%s (-want +got):\n%s", testCase.name, d)
		}
	}
	if d := cmp.Diff(ArrayFlags{".covbot/**", "third_party/**", "build/**"}, s.GetIgnoreDirPatterns()); d != "" {
		t.Errorf("unexpected ignore patterns (-want +got):\n%s", d)
	}
	generator, err := s.GeneratorArgs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := cmp.Diff([]string{"cmake", "-G", "Unix Makefiles", "{src}"}, generator); d != "" {
		t.Errorf("unexpected generator (-want +got):\n%s", d)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	dir := t.TempDir()
	for _, testCase := range [...]struct {
		name    string
		content string
		errPart string
	}{
		{"unknown key", "colour: blue\n", "unknown option"},
		{"nested config", "config: other.yaml\n", "cannot be nested"},
		{"bad value", "jobs: many\n", "invalid value for jobs"},
		{"bad yaml", "jobs: [\n", "covbot.yaml"},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			path := filepath.Join(dir, "covbot.yaml")
			os.WriteFile(path, []byte(testCase.content), 0644)
			fs, _ := newTestOptions()
			err := LoadConfigFile(fs, path, nil)
			if err == nil || !strings.Contains(err.Error(), testCase.errPart) {
				t.Errorf("expected an error containing %q, got %v", testCase.errPart, err)
			}
		})
	}
}

func TestInvalidPullRequestEnv(t *testing.T) {
	fs, s := newTestOptions()
	if err := s.Parse(fs, nil, envMap(map[string]string{EnvPullRequest: "refs/pull/3"})); err == nil {
		t.Errorf("expected an error for a malformed PR number")
	}
}

func TestValidate(t *testing.T) {
	for _, testCase := range [...]struct {
		name     string
		args     []string
		problems []string
	}{
		{
			name: "valid dry run",
			args: []string{"-project_name", "widget", "-dry_run"},
		},
		{
			name: "valid with webhook",
			args: []string{"-project_name", "widget", "-scan_token", "t", "-webhook_url", "https://git.example.com/api/v1", "-webhook_token", "w", "-repository", "acme/widget"},
		},
		{
			name:     "missing everything",
			args:     []string{"-src_dir", "relative", "-lang", "fr", "-build_command", ""},
			problems: []string{"-project_name is required", "-src_dir must be an absolute path", "-scan_token", "unsupported -lang", "-build_command is required"},
		},
		{
			name:     "webhook without repository",
			args:     []string{"-project_name", "widget", "-dry_run", "-webhook_url", "https://x", "-repository", "widget"},
			problems: []string{"invalid -repository", "-webhook_token"},
		},
		{
			name:     "bad ranges",
			args:     []string{"-project_name", "widget", "-dry_run", "-min_emitted_percent", "120", "-builds_per_day", "-1", "-podman"},
			problems: []string{"-min_emitted_percent", "must not be negative", "-podman_image is required"},
		},
		{
			name:     "unbalanced quotes",
			args:     []string{"-project_name", "widget", "-dry_run", "-generator", "cmake \"-G"},
			problems: []string{"invalid -generator"},
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			fs, s := newTestOptions()
			if err := s.Parse(fs, testCase.args, envMap(nil)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			err := s.Validate()
			if len(testCase.problems) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected problems %v", testCase.problems)
			}
			for _, p := range testCase.problems {
				if !strings.Contains(err.Error(), p) {
					t.Errorf("error does not mention %q:\n%v", p, err)
				}
			}
		})
	}
}

func TestOwnerRepo(t *testing.T) {
	fs, s := newTestOptions()
	s.Parse(fs, []string{"-repository", "acme/widget"}, envMap(nil))
	owner, repo, err := s.OwnerRepo()
	if err != nil || owner != "acme" || repo != "widget" {
		t.Errorf("unexpected result %s %s %v", owner, repo, err)
	}
}
