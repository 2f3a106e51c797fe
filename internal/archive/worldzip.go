// ***************************************************************************
//
//  Copyright 2017 David (Dizzy) Smith, dizzyd@dizzyd.com
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
// ***************************************************************************

package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExtractWorld extracts a bundled world archive (downloaded separately from
// the pack archive, spec.md §4.6) into targetDir, flattening the archive's
// top-level directory. If targetDir already exists, extraction is skipped
// entirely -- operator world data is never clobbered.
func ExtractWorld(zipPath, targetDir string) (extracted bool, err error) {
	if dirExists(targetDir) {
		return false, nil
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return false, fmt.Errorf("failed to open world archive %s: %+v", zipPath, err)
	}
	defer r.Close()

	if len(r.File) == 0 {
		return false, fmt.Errorf("world archive %s is empty", zipPath)
	}

	first := r.File[0]
	if !first.FileInfo().IsDir() {
		return false, fmt.Errorf("world archive %s does not start with a directory entry", zipPath)
	}
	prefixLength := len(first.Name)

	if err := os.MkdirAll(targetDir, 0700); err != nil {
		return false, fmt.Errorf("failed to create %s: %+v", targetDir, err)
	}

	for _, f := range r.File[1:] {
		if len(f.Name) < prefixLength {
			continue
		}
		dest := filepath.Join(targetDir, filepath.FromSlash(f.Name[prefixLength:]))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0700); err != nil {
				return false, fmt.Errorf("failed to create %s: %+v", dest, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
			return false, fmt.Errorf("failed to create %s: %+v", dest, err)
		}

		if err := copyZipFile(f, dest); err != nil {
			return false, err
		}
	}

	return true, nil
}

func copyZipFile(f *zip.File, dest string) error {
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %+v", f.Name, err)
	}
	defer r.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %+v", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write %s: %+v", dest, err)
	}
	return nil
}

func dirExists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.IsDir()
}
