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

package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"naive.systems/covbot/atomic"
)

// scan stages
const (
	CF     int = iota // Changed files
	QC                // Quota check
	CB                // cov-build
	UP                // Upload
	WA                // Waiting for analysis
	RP                // Report
	END
)

const (
	ProgressFile = "progress.json"
	SummaryFile  = "scan_summary.json"
)

type Progress struct {
	StageID   int       `json:"stage_id"`
	DoneRatio string    `json:"done_ratio"`
	StartedAt time.Time `json:"started_at"`
}

// DoneRatio is the share of stages finished when stageID starts.
func DoneRatio(stageID int) string {
	if stageID < 0 {
		stageID = 0
	}
	if stageID > END {
		stageID = END
	}
	return fmt.Sprintf("%.2f", float64(stageID)/float64(END))
}

func WriteProgress(resultDir string, stageID int, doneRatio string, startedAt time.Time) {
	// skip writing it if resultDir does not exist
	_, err := os.Stat(resultDir)
	if os.IsNotExist(err) {
		glog.Warningf("result dir %s does not exist", resultDir)
		return
	}
	path := filepath.Join(resultDir, ProgressFile)
	progress, err := json.Marshal(Progress{StageID: stageID, DoneRatio: doneRatio, StartedAt: startedAt})
	if err != nil {
		glog.Errorf("failed to marshal json stageID %d and doneRatio %s: %v", stageID, doneRatio, err)
		return
	}
	err = atomic.Write(path, progress)
	if err != nil {
		glog.Errorf("failed to write to file %s: %v", path, err)
	}
}

// WriteSummary stores the final outcome of a run.
func WriteSummary(resultDir string, summary any) error {
	if err := os.MkdirAll(resultDir, os.ModePerm); err != nil {
		return err
	}
	return atomic.WriteJSON(filepath.Join(resultDir, SummaryFile), summary)
}
