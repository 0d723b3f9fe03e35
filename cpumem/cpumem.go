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

package cpumem

import (
	"runtime"

	"github.com/golang/glog"
	"naive.systems/covbot/basic"
)

// DefaultPerJobKB is the memory budget of one compiler job running under
// cov-build, which roughly doubles the footprint of a plain compile.
const DefaultPerJobKB = 1536 * 1024

// BuildJobs returns the number of parallel build jobs that fit both the cpu
// count and the available memory. A non-positive availMemKB means unknown
// and only the cpu count is used. The result is at least 1.
func BuildJobs(cpus, availMemKB, perJobKB int) int {
	jobs := cpus
	if availMemKB > 0 && perJobKB > 0 {
		if byMem := availMemKB / perJobKB; byMem < jobs {
			jobs = byMem
		}
	}
	if jobs < 1 {
		jobs = 1
	}
	return jobs
}

// DetectBuildJobs applies BuildJobs to this machine. requested > 0 wins.
func DetectBuildJobs(requested int) int {
	if requested > 0 {
		return requested
	}
	availMem, err := basic.GetTotalAvailMem()
	if err != nil {
		glog.Warningf("basic.GetTotalAvailMem: %v", err)
		availMem = 0
	}
	jobs := BuildJobs(runtime.NumCPU(), availMem, DefaultPerJobKB)
	glog.Infof("%d cpus, %d KB memory available, using %d build jobs", runtime.NumCPU(), availMem, jobs)
	return jobs
}
