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

/*
This package should not import any other package of covbot to avoid
recursive import.
*/
package basic

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
)

func PrintfWithTimeStamp(format string, arg ...any) {
	prefix := fmt.Sprintf("%v ", time.Now().Format("2006-01-02 15:04:05"))
	message := fmt.Sprintf(prefix+format, arg...)
	fmt.Println(message)
	glog.Info(message)
}

// FormatTimeDuration prints d as seconds with at most three trimmed
// fractional digits, e.g. "3s", "1.5s", "12.034s".
func FormatTimeDuration(d time.Duration) string {
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	if ms == 0 {
		return fmt.Sprintf("%ds", s)
	}
	frac := strings.TrimRight(fmt.Sprintf("%03d", ms), "0")
	return fmt.Sprintf("%d.%ss", s, frac)
}

// GetTotalAvailMem returns MemAvailable from /proc/meminfo in KB.
func GetTotalAvailMem() (int, error) {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return parseMemAvailable(file)
}

func parseMemAvailable(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || key != "MemAvailable" {
			continue
		}
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "kB"))
		kb, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid MemAvailable %q: %v", value, err)
		}
		return kb, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("failed to find MemAvailable")
}

// TarFile writes srcDir as a gzip compressed tarball to fileName. Entry
// names are relative to the parent of srcDir, so archiving /work/cov-int
// yields entries under cov-int/ as Coverity Scan expects.
func TarFile(srcDir string, fileName string) (err error) {
	fw, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("create tar file error: %v", err)
	}
	defer func() {
		if cerr := fw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %v", fileName, cerr)
		}
	}()
	gw := gzip.NewWriter(fw)
	tw := tar.NewWriter(gw)
	err = filepath.Walk(srcDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walk func failed: %v", err)
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("get header failed: %v", err)
		}
		rel, err := filepath.Rel(filepath.Dir(srcDir), path)
		if err != nil {
			return fmt.Errorf("failed to get relative path of %v to %v: %v", path, filepath.Dir(srcDir), err)
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header failed: %v", err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		fr, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open failed: %v", err)
		}
		defer fr.Close()
		if _, err := io.CopyN(tw, fr, info.Size()); err != nil {
			return fmt.Errorf("copy %s failed: %v", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk func error: %v", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar writer: %v", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("close gzip writer: %v", err)
	}
	return nil
}
