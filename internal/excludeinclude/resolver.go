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

// Package excludeinclude resolves the operator-supplied exclude/force-include
// configuration (spec.md §4.3) into two integer project-ID sets.
package excludeinclude

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"packsync/internal/registry"
)

// LoadContent reads the operator-supplied exclude/force-include document
// (CF_EXCLUDE_INCLUDE_FILE) from disk. A missing path is not an error --
// callers pass the empty string through and Resolve treats a nil Content
// as two empty sets.
func LoadContent(path string) (*Content, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exclude/include file %s: %+v", path, err)
	}
	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse exclude/include file %s: %+v", path, err)
	}
	return &c, nil
}

// PerPackIDs is the excludes/forceIncludes pair scoped to one pack slug.
type PerPackIDs struct {
	Excludes      []string `json:"excludes"`
	ForceIncludes []string `json:"forceIncludes"`
}

// Content is the whole exclude/include configuration document, spec.md §4.3.
type Content struct {
	GlobalExcludes      []string              `json:"globalExcludes"`
	GlobalForceIncludes []string              `json:"globalForceIncludes"`
	Modpacks            map[string]PerPackIDs `json:"modpacks"`
}

// IDs is the resolved pair of integer project-ID sets.
type IDs struct {
	Excludes      map[int]bool
	ForceIncludes map[int]bool
}

// Resolve unions the global and per-slug entries, resolving any non-integer
// entry to a project ID via the registry client's SlugToID. A nil content
// (no configuration supplied) resolves to two empty sets.
func Resolve(content *Content, slug string, categoryInfo registry.CategoryInfo, client registry.Client) (IDs, error) {
	ids := IDs{Excludes: make(map[int]bool), ForceIncludes: make(map[int]bool)}
	if content == nil {
		return ids, nil
	}

	perPack := content.Modpacks[slug]

	excludeEntries := append(append([]string{}, content.GlobalExcludes...), perPack.Excludes...)
	includeEntries := append(append([]string{}, content.GlobalForceIncludes...), perPack.ForceIncludes...)

	var err error
	if ids.Excludes, err = resolveSet(excludeEntries, categoryInfo, client); err != nil {
		return IDs{}, err
	}
	if ids.ForceIncludes, err = resolveSet(includeEntries, categoryInfo, client); err != nil {
		return IDs{}, err
	}
	return ids, nil
}

func resolveSet(entries []string, categoryInfo registry.CategoryInfo, client registry.Client) (map[int]bool, error) {
	result := make(map[int]bool, len(entries))
	for _, e := range entries {
		if id, err := strconv.Atoi(e); err == nil {
			result[id] = true
			continue
		}
		id, err := client.SlugToID(categoryInfo, e)
		if err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, nil
}
