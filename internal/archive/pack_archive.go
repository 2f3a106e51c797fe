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

// Package archive wraps the pack archive's zip contents, generalizing the
// teacher's ZipHelper (ziphelper.go) from a single-purpose Forge-installer
// reader into the Overrides Applier and pack-manifest lookup spec.md §4.5
// describes.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
)

const manifestEntryName = "manifest.json"

// PackArchive is an opened pack .zip file.
type PackArchive struct {
	reader *zip.ReadCloser
	path   string
}

// Open opens a pack archive from a path on disk.
func Open(path string) (*PackArchive, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pack archive %s: %+v", path, err)
	}
	return &PackArchive{reader: r, path: path}, nil
}

func (a *PackArchive) Close() error {
	return a.reader.Close()
}

// ManifestJSON returns a reader over the embedded manifest.json, or an
// error if the archive has none (spec.md §7 Input error).
func (a *PackArchive) ManifestJSON() (io.ReadCloser, error) {
	for _, f := range a.reader.File {
		if f.Name == manifestEntryName {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("pack archive %s has no manifest.json", a.path)
}
