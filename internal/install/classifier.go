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

package install

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"packsync/internal/archive"
	"packsync/internal/config"
	"packsync/internal/manifest"
	"packsync/internal/registry"
)

// PathWithInfo is a single file the classifier wrote (or left untouched),
// plus the level name when it is an extracted bundled world selected as
// the active level -- spec.md §3.
type PathWithInfo struct {
	Path      string
	LevelName *string
}

const maxClassifierWorkers = 8

// classifyAndDownload runs the File Classifier & Downloader (spec.md §4.4)
// across every reference in pm.Files. It gathers the whole result vector
// before returning -- the "collect-before-overrides barrier" spec.md §5
// requires -- using a bounded worker pool over pm.Files, the same channel
// + WaitGroup shape mixer-tools' swupd manifest generation uses for its
// own per-bundle fan-out.
func classifyAndDownload(pm *manifest.PackManifest, ids excludeIncludeIDs, ctx *Context, root string, levelFrom config.LevelFromPolicy, log *zap.SugaredLogger) ([]PathWithInfo, error) {
	numWorkers := maxClassifierWorkers
	if numWorkers > len(pm.Files) {
		numWorkers = len(pm.Files)
	}
	if numWorkers == 0 {
		return nil, nil
	}

	refChan := make(chan manifest.FileRef)
	errChan := make(chan error, numWorkers)

	var mu sync.Mutex
	var results []PathWithInfo
	var firstErr error

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	worker := func() {
		defer wg.Done()
		for ref := range refChan {
			pwi, skip, err := classifyOne(ref, ids, ctx, root, levelFrom, log)
			if err != nil {
				errChan <- err
				return
			}
			if skip {
				continue
			}
			mu.Lock()
			results = append(results, pwi)
			mu.Unlock()
		}
	}

	for i := 0; i < numWorkers; i++ {
		go worker()
	}

	for _, ref := range pm.Files {
		refChan <- ref
	}
	close(refChan)

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return results, nil
}

type excludeIncludeIDs struct {
	Excludes      map[int]bool
	ForceIncludes map[int]bool
}

// classifyOne implements spec.md §4.4 steps 1-9 for a single reference.
func classifyOne(ref manifest.FileRef, ids excludeIncludeIDs, ctx *Context, root string, levelFrom config.LevelFromPolicy, log *zap.SugaredLogger) (PathWithInfo, bool, error) {
	if !ref.Required {
		return PathWithInfo{}, true, nil
	}
	if ids.Excludes[ref.ProjectID] {
		return PathWithInfo{}, true, nil
	}

	mod, err := ctx.Client.GetModInfo(ref.ProjectID)
	if err != nil {
		return PathWithInfo{}, false, fmt.Errorf("failed to get mod info for project %d: %+v", ref.ProjectID, err)
	}

	category, ok := ctx.CategoryInfo.ContentClassIDs[mod.ClassID]
	if !ok {
		log.Warnf("project %d (%s) has no recognized content category; skipping", ref.ProjectID, mod.Slug)
		return PathWithInfo{}, true, nil
	}

	destDir, isWorld, err := destinationFor(category.Slug)
	if err != nil {
		return PathWithInfo{}, false, fmt.Errorf("project %d (%s): %+v", ref.ProjectID, mod.Slug, err)
	}

	file, err := ctx.Client.GetModFileInfo(ref.ProjectID, ref.FileID)
	if err != nil {
		return PathWithInfo{}, false, fmt.Errorf("failed to get file info for %d/%d: %+v", ref.ProjectID, ref.FileID, err)
	}
	if file == nil {
		return PathWithInfo{}, false, fmt.Errorf("registry could not resolve file %d/%d", ref.ProjectID, ref.FileID)
	}

	if !ids.ForceIncludes[ref.ProjectID] && !isServerMod(file.GameVersions) {
		return PathWithInfo{}, true, nil
	}

	if file.DownloadURL == "" {
		log.Warnf("no download URL for %s (project %d); supply this file manually", file.FileName, ref.ProjectID)
		return PathWithInfo{}, true, nil
	}

	baseDir := filepath.Join(root, destDir)
	path, err := ctx.Client.Download(*file, baseDir, func(status registry.DownloadStatus, f registry.File) {
		if status == registry.StatusAlreadyPresent {
			log.Infof("%s already present", f.FileName)
		} else {
			log.Infof("downloaded %s", f.FileName)
		}
		if ctx.Progress != nil {
			ctx.Progress(status, f)
		}
	})
	if err != nil {
		return PathWithInfo{}, false, fmt.Errorf("failed to download %s: %+v", file.FileName, err)
	}

	if !isWorld {
		return PathWithInfo{Path: path}, false, nil
	}

	return classifyWorld(path, mod.Slug, root, levelFrom)
}

func classifyWorld(zipPath, slug, root string, levelFrom config.LevelFromPolicy) (PathWithInfo, bool, error) {
	if levelFrom != config.LevelFromWorldFile {
		return PathWithInfo{Path: zipPath}, false, nil
	}

	targetDir := filepath.Join(root, "saves", slug)
	if _, err := archive.ExtractWorld(zipPath, targetDir); err != nil {
		return PathWithInfo{}, false, fmt.Errorf("failed to extract world %s: %+v", zipPath, err)
	}

	level := filepath.ToSlash(filepath.Join("saves", slug))
	return PathWithInfo{Path: zipPath, LevelName: &level}, false, nil
}

// destinationFor maps a content category slug to its output subdirectory,
// spec.md §4.4 step 4.
func destinationFor(categorySlug string) (dir string, isWorld bool, err error) {
	switch {
	case strings.HasSuffix(categorySlug, "-mods"):
		return "mods", false, nil
	case strings.HasSuffix(categorySlug, "-plugins"):
		return "plugins", false, nil
	case categorySlug == "worlds":
		return "saves", true, nil
	default:
		return "", false, fmt.Errorf("unrecognized content category %q", categorySlug)
	}
}

// isServerMod implements the server-mod predicate over a file's
// gameVersions list, spec.md §4.4: explicit "server" wins, explicit
// "client" (with no "server") excludes, anything else (including an empty
// list) is kept.
func isServerMod(gameVersions []string) bool {
	sawClient := false
	for _, v := range gameVersions {
		switch strings.ToLower(v) {
		case "server":
			return true
		case "client":
			sawClient = true
		}
	}
	return !sawClient
}
