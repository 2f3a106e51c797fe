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

// zipHelper caches the forge installer's central directory so repeated
// lookups (install_profile.json, version.json, maven/* artifacts) don't
// re-parse the archive -- adapted from the teacher's ziphelper.go.
package forge

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Jeffail/gabs"
)

type zipHelper struct {
	data  []byte
	files map[string]int
}

func newZipHelper(data []byte) (*zipHelper, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP data: %+v", err)
	}

	zh := &zipHelper{data: data, files: make(map[string]int, len(r.File))}
	for i, f := range r.File {
		zh.files[f.Name] = i
	}
	return zh, nil
}

func (zh *zipHelper) getFile(name string) (io.ReadCloser, error) {
	idx, ok := zh.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found in ZIP: %s", name)
	}
	r, _ := zip.NewReader(bytes.NewReader(zh.data), int64(len(zh.data)))
	return r.File[idx].Open()
}

func (zh *zipHelper) getJSONFile(name string) (*gabs.Container, error) {
	r, err := zh.getFile(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	json, err := gabs.ParseJSONBuffer(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s JSON: %+v", name, err)
	}
	return json, nil
}

func (zh *zipHelper) writeFileToDir(zipFilename, targetDir string) (string, error) {
	return zh.writeFile(zipFilename, filepath.Join(targetDir, zipFilename))
}

func (zh *zipHelper) writeFile(zipFilename, filename string) (string, error) {
	r, err := zh.getFile(zipFilename)
	if err != nil {
		return "", err
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return "", fmt.Errorf("failed to create directories for %s: %+v", filename, err)
	}
	return filename, writeStream(filename, r)
}

// readZipFileContents reads a single named entry out of an ordinary (not
// installer-embedded) ZIP/JAR file on disk, such as a processor JAR's
// MANIFEST.MF.
func readZipFileContents(zipPath, entryName string) ([]byte, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %+v", zipPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != entryName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s in %s: %+v", entryName, zipPath, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in %s", entryName, zipPath)
}
