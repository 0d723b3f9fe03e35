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

package utils

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
)

// Returns the lines of stdout of a command as string.
func GetCommandStdoutLines(cmd *exec.Cmd, workingDir string) ([]string, error) {
	var stdLogs []string
	if workingDir != "" {
		cmd.Dir = workingDir
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("cmd.StdoutPipe: %v", err)
	}
	glog.Infof("executing: $ %s", cmd.String())
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cmd.Start: %v", err)
	}
	in := bufio.NewScanner(stdout)
	for in.Scan() {
		stdLogs = append(stdLogs, in.Text())
	}
	if err := in.Err(); err != nil {
		cmd.Wait()
		return stdLogs, fmt.Errorf("bufio.NewScanner: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		return stdLogs, fmt.Errorf("%s: %v: %s", cmd.String(), err, strings.TrimSpace(stderr.String()))
	}
	return stdLogs, nil
}

// PrintCmdOutput runs cmd with its output copied to the process stdout and
// stderr, and additionally into log when it is not nil.
func PrintCmdOutput(cmd *exec.Cmd, log io.Writer) error {
	if log != nil {
		cmd.Stdout = io.MultiWriter(os.Stdout, log)
		cmd.Stderr = io.MultiWriter(os.Stderr, log)
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	glog.Infof("executing: $ %s", cmd.String())
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Wait()
}

func ResolveBinaryPath(binPath string) (string, error) {
	if filepath.IsAbs(binPath) {
		if _, err := os.Stat(binPath); err != nil {
			return binPath, fmt.Errorf("when resolving %s, os.Stat failed: %v", binPath, err)
		}
		return binPath, nil
	}
	// exec.LookPath will silently allow relative path, so we manually check it.
	if strings.Contains(binPath, string(filepath.Separator)) {
		absBinPath, err := filepath.Abs(binPath)
		if err != nil {
			return binPath, fmt.Errorf("when resolving %s, failed to convert to abs path: %v", binPath, err)
		}
		if _, err := os.Stat(absBinPath); err != nil {
			return absBinPath, fmt.Errorf("when resolving %s, os.Stat failed: %v", binPath, err)
		}
		return absBinPath, nil
	}
	if _, err := exec.LookPath(binPath); err != nil {
		return binPath, fmt.Errorf("when resolving %s, not found in $PATH: %v", binPath, err)
	}
	return binPath, nil // The binary is in $PATH, just leave it alone
}

func CleanDir(dir string, filesToIgnore []string) error {
	glog.Info("cleaning ", dir)
	keep := make(map[string]bool)
	for _, fileName := range filesToIgnore {
		keep[fileName] = true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, d := range entries {
		if keep[d.Name()] {
			continue
		}
		glog.Infof("remove %s", filepath.Join(dir, d.Name()))
		if err := os.RemoveAll(filepath.Join(dir, d.Name())); err != nil {
			return err
		}
	}
	return nil
}
