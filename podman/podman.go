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

package podman

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"naive.systems/covbot/utils"
)

const srcMount = "/src"

// Runner executes build commands inside a container that has SrcDir
// mounted at /src. Paths outside SrcDir are not visible to the container.
type Runner struct {
	Bin    string
	Image  string
	SrcDir string
	// extra volumes, "host:container[:opts]"
	Volumes []string
	Env     []string
}

// Path maps a host path under SrcDir to its location in the container.
func (r *Runner) Path(hostPath string) string {
	rel, err := filepath.Rel(r.SrcDir, hostPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return hostPath
	}
	return path.Join(srcMount, filepath.ToSlash(rel))
}

func (r *Runner) Args(dir string, command []string) []string {
	args := []string{
		"run",
		"--rm",
		"-v", fmt.Sprintf("%s:%s:Z", r.SrcDir, srcMount),
		"-w", r.Path(dir),
	}
	for _, v := range r.Volumes {
		args = append(args, "-v", v)
	}
	for _, e := range r.Env {
		args = append(args, "-e", e)
	}
	args = append(args, r.Image)
	return append(args, command...)
}

func (r *Runner) Run(ctx context.Context, dir string, command []string, log io.Writer) error {
	cmd := exec.CommandContext(ctx, r.Bin, r.Args(dir, command)...)
	if err := utils.PrintCmdOutput(cmd, log); err != nil {
		return fmt.Errorf("%s: %v", strings.Join(command, " "), err)
	}
	return nil
}

func LoadImage(podmanBinPath,
	imageName string,
	podmanLoadURLs []string,
) error {
	// verify if a image exists
	cmd := exec.Command(podmanBinPath, "image", "exists", imageName)
	glog.Infof("executing: $ %s", cmd.String())
	err := cmd.Run()
	if err == nil {
		glog.Infof("image: %s exists", imageName)
		return nil
	}
	// load image from urls, then fall back to pulling it
	for _, url := range podmanLoadURLs {
		if url == "" {
			continue
		}
		cmd = exec.Command(podmanBinPath, "load", "-i", url)
		glog.Infof("executing: $ %s", cmd.String())
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err = cmd.Run(); err != nil {
			glog.Infof("Load image from url %s fails", url)
			continue
		}
		glog.Infof("Load image from %s succeed", url)
		return nil
	}
	cmd = exec.Command(podmanBinPath, "pull", imageName)
	glog.Infof("executing: $ %s", cmd.String())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err = cmd.Run(); err != nil {
		return fmt.Errorf("failed to obtain image %s: %v", imageName, err)
	}
	return nil
}
