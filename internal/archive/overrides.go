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
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// OverridesResult is the set of paths written by ApplyOverrides, plus the
// level name when levelFrom=OVERRIDES selected the embedded world dir.
type OverridesResult struct {
	Paths     []string
	LevelName *string
}

// LevelFromPolicy mirrors config.LevelFromPolicy without importing the
// config package, so archive has no upward dependency.
type LevelFromPolicy string

const (
	LevelFromUnset     LevelFromPolicy = ""
	LevelFromOverrides LevelFromPolicy = "OVERRIDES"
	LevelFromWorldFile LevelFromPolicy = "WORLD_FILE"
)

// ApplyOverrides streams the pack archive's overrides/ subtree onto disk
// under the strict overwrite rules of spec.md §4.5. Rationale (per spec):
// the archive's entry order is not guaranteed to list directories before
// files, hence directories are created on demand; world data already on
// disk is never overwritten, so operator saves survive re-installs.
func ApplyOverrides(a *PackArchive, outputRoot, overridesDir string, levelFrom LevelFromPolicy, skipExisting bool, log *zap.SugaredLogger) (OverridesResult, error) {
	prefix := overridesDir + "/"

	levelEntryName := ""
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		if strings.HasSuffix(f.Name, "/level.dat") {
			sub := strings.TrimPrefix(f.Name, prefix)
			levelEntryName = strings.TrimSuffix(sub, "/level.dat")
			break
		}
	}

	worldOutputDirExists := false
	if levelEntryName != "" {
		if stat, err := os.Stat(filepath.Join(outputRoot, filepath.FromSlash(levelEntryName))); err == nil && stat.IsDir() {
			worldOutputDirExists = true
		}
	}

	var result OverridesResult
	levelPrefix := levelEntryName + "/"

	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}

		subpath := strings.TrimPrefix(f.Name, prefix)
		outPath := filepath.Join(outputRoot, filepath.FromSlash(subpath))

		insideWorldDir := levelEntryName != "" && (subpath == levelEntryName || strings.HasPrefix(subpath, levelPrefix))

		if worldOutputDirExists && insideWorldDir {
			continue
		}

		if skipExisting && fileExists(outPath) {
			if log != nil {
				log.Infof("skipping existing override %s", subpath)
			}
		} else {
			if err := writeEntry(f, outPath); err != nil {
				return OverridesResult{}, err
			}
		}

		if !(worldOutputDirExists && insideWorldDir) {
			result.Paths = append(result.Paths, outPath)
		}
	}

	if levelFrom == LevelFromOverrides && levelEntryName != "" {
		level := levelEntryName
		result.LevelName = &level
	}

	return result, nil
}

func writeEntry(f *zip.File, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0700); err != nil {
		return err
	}
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, r)
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
