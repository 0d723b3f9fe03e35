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

package covbuild

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"naive.systems/covbot/basic"
	"naive.systems/covbot/utils"
)

// BuildLogName is the file cov-build writes into its intermediate dir.
const BuildLogName = "build-log.txt"

// CommandRunner executes a build step. Path maps host paths to the paths
// the command sees, which differ when the step runs in a container.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command []string, log io.Writer) error
	Path(hostPath string) string
}

type LocalRunner struct {
	Env []string
}

func (LocalRunner) Path(hostPath string) string {
	return hostPath
}

func (r LocalRunner) Run(ctx context.Context, dir string, command []string, log io.Writer) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	if err := utils.PrintCmdOutput(cmd, log); err != nil {
		return fmt.Errorf("%s: %v", cmd.String(), err)
	}
	return nil
}

type Config struct {
	SrcDir   string
	BuildDir string
	// CovDir is the cov-build intermediate directory, cov-int by convention.
	CovDir string
	// Generator configures the build tree; empty skips the step.
	// BuildCommand performs the build under cov-build. Both accept the
	// placeholders {src}, {build}, {jobs} and {cov_dir}.
	Generator    []string
	BuildCommand []string
	CovBuild     string
	// CompilerCache is a compiler launcher such as ccache, passed to
	// CMake generators only.
	CompilerCache     string
	Jobs              int
	MinEmittedPercent int
	Timeout           time.Duration
}

type Result struct {
	Units   int           `json:"units"`
	Percent int           `json:"percent"`
	LogPath string        `json:"log_path"`
	Elapsed time.Duration `json:"elapsed"`
}

// Error is a build that ran but did not produce something worth
// uploading. Infrastructure errors are returned unwrapped.
type Error struct {
	Step   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Reason)
}

type Builder struct {
	Config
	Exec CommandRunner
}

func New(config Config, runner CommandRunner) *Builder {
	if runner == nil {
		runner = LocalRunner{}
	}
	return &Builder{Config: config, Exec: runner}
}

func (b *Builder) expand(command []string) []string {
	replacer := strings.NewReplacer(
		"{src}", b.Exec.Path(b.SrcDir),
		"{build}", b.Exec.Path(b.BuildDir),
		"{cov_dir}", b.Exec.Path(b.CovDir),
		"{jobs}", strconv.Itoa(b.Jobs),
	)
	out := make([]string, 0, len(command))
	for _, arg := range command {
		out = append(out, replacer.Replace(arg))
	}
	return out
}

func isCMake(command []string) bool {
	return len(command) > 0 && filepath.Base(command[0]) == "cmake"
}

// GeneratorCommand is the expanded generator invocation, with compiler
// launcher definitions added for CMake.
func (b *Builder) GeneratorCommand() []string {
	if len(b.Generator) == 0 {
		return nil
	}
	command := b.expand(b.Generator)
	if b.CompilerCache != "" && isCMake(command) {
		command = append(command,
			"-DCMAKE_C_COMPILER_LAUNCHER="+b.CompilerCache,
			"-DCMAKE_CXX_COMPILER_LAUNCHER="+b.CompilerCache)
	}
	return command
}

func (b *Builder) CovBuildCommand() []string {
	command := []string{b.CovBuild, "--dir", b.Exec.Path(b.CovDir)}
	return append(command, b.expand(b.BuildCommand)...)
}

// Build configures and builds the project under cov-build and checks how
// many compilation units were captured.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	if len(b.BuildCommand) == 0 {
		return nil, fmt.Errorf("no build command configured")
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	for _, dir := range []string{b.BuildDir, b.CovDir} {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("failed to clean %s: %v", dir, err)
		}
	}
	if err := os.MkdirAll(b.BuildDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create build dir: %v", err)
	}
	logFile, err := os.Create(filepath.Join(b.BuildDir, "covbot-build.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to create build log: %v", err)
	}
	defer logFile.Close()

	if command := b.GeneratorCommand(); command != nil {
		basic.PrintfWithTimeStamp("Configuring %s", b.SrcDir)
		if err := b.Exec.Run(ctx, b.BuildDir, command, logFile); err != nil {
			if ctx.Err() != nil {
				return nil, &Error{Step: "configure", Reason: fmt.Sprintf("timed out after %s", b.Timeout)}
			}
			return nil, &Error{Step: "configure", Reason: err.Error()}
		}
	}

	basic.PrintfWithTimeStamp("Building %s under cov-build", b.SrcDir)
	if err := b.Exec.Run(ctx, b.BuildDir, b.CovBuildCommand(), logFile); err != nil {
		if ctx.Err() != nil {
			return nil, &Error{Step: "build", Reason: fmt.Sprintf("timed out after %s", b.Timeout)}
		}
		return nil, &Error{Step: "build", Reason: err.Error()}
	}

	logPath := filepath.Join(b.CovDir, BuildLogName)
	f, err := os.Open(logPath)
	if err != nil {
		return nil, &Error{Step: "build", Reason: fmt.Sprintf("cov-build left no %s: %v", BuildLogName, err)}
	}
	defer f.Close()
	summary, err := ParseBuildLog(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", logPath, err)
	}
	result := &Result{
		Units:   summary.Units,
		Percent: summary.Percent,
		LogPath: logPath,
		Elapsed: time.Since(start),
	}
	basic.PrintfWithTimeStamp("cov-build captured %d compilation units (%d%%) [%s]", result.Units, result.Percent, basic.FormatTimeDuration(result.Elapsed))
	if summary.NoneEmitted || result.Units == 0 {
		return result, &Error{Step: "build", Reason: "no files were emitted"}
	}
	if result.Percent < b.MinEmittedPercent {
		return result, &Error{Step: "build", Reason: fmt.Sprintf("only %d%% of compilation units are ready for analysis, %d%% required", result.Percent, b.MinEmittedPercent)}
	}
	return result, nil
}
