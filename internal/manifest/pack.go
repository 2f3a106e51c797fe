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

// Package manifest parses the pack manifest embedded in a pack archive (or
// provided standalone) and reads/writes the persisted install manifest.
//
// The typed-struct-plus-encoding/json approach here follows the teacher's
// own src/mcdex/cursepack.go CurseManifest, rather than the dynamic gabs
// container the teacher's later modpack.go reaches for -- the schema in
// spec.md §3 is fixed, so a struct is the idiomatic fit.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
)

// ManifestType is the only manifestType value the parser accepts.
const ManifestType = "minecraftModpack"

// ModLoader is a single minecraft.modLoaders entry.
type ModLoader struct {
	ID      string `json:"id"`
	Primary bool   `json:"primary"`
}

// MinecraftInfo is the minecraft.* block of a pack manifest.
type MinecraftInfo struct {
	Version    string      `json:"version"`
	ModLoaders []ModLoader `json:"modLoaders"`
}

// FileRef is a single entry of a pack manifest's files list.
type FileRef struct {
	ProjectID int  `json:"projectID"`
	FileID    int  `json:"fileID"`
	Required  bool `json:"required"`
}

// PackManifest is the parsed manifest.json document, spec.md §3.
type PackManifest struct {
	Name         string        `json:"name"`
	Version      string        `json:"version"`
	ManifestType string        `json:"manifestType"`
	Overrides    string        `json:"overrides"`
	Minecraft    MinecraftInfo `json:"minecraft"`
	Files        []FileRef     `json:"files"`
}

// ParsePackManifest decodes and validates a manifest.json document.
// Unknown fields are ignored, matching encoding/json's default behavior and
// spec.md §6's "unknown fields are ignored" requirement.
func ParsePackManifest(r io.Reader) (*PackManifest, error) {
	var pm PackManifest
	if err := json.NewDecoder(r).Decode(&pm); err != nil {
		return nil, fmt.Errorf("failed to parse manifest.json: %+v", err)
	}

	if pm.ManifestType != ManifestType {
		return nil, fmt.Errorf("unexpected manifest type: %q", pm.ManifestType)
	}

	if _, err := pm.PrimaryModLoader(); err != nil {
		return nil, err
	}

	return &pm, nil
}

// PrimaryModLoader returns the single ModLoader entry marked primary, or an
// error if there isn't exactly one (spec.md §3 invariant).
func (pm *PackManifest) PrimaryModLoader() (ModLoader, error) {
	var found *ModLoader
	for i := range pm.Minecraft.ModLoaders {
		if pm.Minecraft.ModLoaders[i].Primary {
			if found != nil {
				return ModLoader{}, fmt.Errorf("more than one primary mod loader declared")
			}
			found = &pm.Minecraft.ModLoaders[i]
		}
	}
	if found == nil {
		return ModLoader{}, fmt.Errorf("no primary mod loader declared in manifest")
	}
	return *found, nil
}
