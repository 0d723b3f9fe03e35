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

// Package atomic replaces files through a rename so readers of metadata
// and history files never observe a partial write.
package atomic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write stores data into name with mode 0644.
func Write(name string, data []byte) error {
	return WriteMode(name, data, 0644)
}

func WriteMode(name string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(name), "tmp-*-"+filepath.Base(name))
	if err != nil {
		return fmt.Errorf("os.CreateTemp: %v", err)
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return fmt.Errorf("chmod %s: %v", tmpName, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write to file %s: %v", tmpName, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %v", tmpName, err)
	}
	if err := os.Rename(tmpName, name); err != nil {
		return fmt.Errorf("failed to rename file %s to %s: %v", tmpName, name, err)
	}
	return nil
}

// WriteJSON marshals v with tab indentation and writes it atomically.
func WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %v", err)
	}
	return Write(name, append(data, '\n'))
}
