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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/golang/glog"
	"naive.systems/covbot/basic"
	"naive.systems/covbot/options"
	"naive.systems/covbot/scan"
	"naive.systems/covbot/utils"
)

func main() {
	sharedOptions := options.NewSharedOptions(flag.CommandLine)
	if err := sharedOptions.Parse(flag.CommandLine, os.Args[1:], os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// Do not call any logging functions of glog before this part.
	resultsDir := sharedOptions.GetResultsDir()
	logDir := flag.Lookup("log_dir")
	if logDir.Value.String() == "" {
		err := flag.Set("log_dir", filepath.Join(resultsDir, "logs"))
		if err != nil {
			glog.Fatalf("failed to set default log_dir: %v", err)
		}
	}
	if err := os.MkdirAll(logDir.Value.String(), os.ModePerm); err != nil {
		glog.Fatalf("failed to create log dir: %v", err)
	}
	if !sharedOptions.GetDebugMode() {
		err := flag.Set("stderrthreshold", "FATAL")
		if err != nil {
			glog.Fatalf("failed to set default stderrthreshold: %v", err)
		}
	}

	if err := sharedOptions.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := os.MkdirAll(resultsDir, os.ModePerm); err != nil {
		glog.Fatalf("failed to create result dir: %v", err)
	}
	keep := []string{filepath.Base(logDir.Value.String()), filepath.Base(sharedOptions.GetHistoryPath())}
	if err := utils.CleanDir(resultsDir, keep); err != nil {
		glog.Fatalf("failed to clean results dir: %v", err)
	}

	os.Exit(run(sharedOptions, logDir.Value.String()))
}

func run(sharedOptions *options.SharedOptions, logDir string) int {
	defer archiveLogs(sharedOptions.GetResultsDir(), logDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := scan.NewDeps(sharedOptions)
	if err != nil {
		glog.Errorf("scan.NewDeps: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := deps.Setup(sharedOptions); err != nil {
		glog.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		return scan.Fail(ctx, sharedOptions, deps, err).ExitCode()
	}
	defer deps.History.Close()

	outcome, err := scan.Run(ctx, sharedOptions, deps)
	if err != nil {
		glog.Errorf("scan.Run: %v", err)
	}
	return outcome.ExitCode()
}

func archiveLogs(resultsDir, logDir string) {
	glog.Flush()
	if err := basic.TarFile(logDir, filepath.Join(resultsDir, "logs.tar.gz")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to archive logs: %v\n", err)
	}
}
