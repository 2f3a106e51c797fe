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

// Package mmcconfig generates a MultiMC client instance pointed at the same
// pack a server just installed, following the teacher's mmc.go. This is
// additive: nothing in the core install path depends on it, but an operator
// running a hybrid server+client setup can hand the generated instance
// straight to MultiMC instead of hand-assembling one.
package mmcconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Jeffail/gabs"
)

const instanceCfgTemplate = `InstanceType=OneSix
iconKey=flame
name=%s
`

// componentUIDs maps a loader family (the part of modLoaderId before the
// first '-', spec.md §4.7) to the MultiMC component UID it corresponds to.
var componentUIDs = map[string]string{
	"forge":  "net.minecraftforge",
	"fabric": "net.fabricmc.fabric-loader",
}

// Generate writes instance.cfg and mmc-pack.json into instanceDir, matching
// the teacher's generateMMCConfig but parameterized on whatever mod loader
// family the pack actually uses instead of assuming Forge.
func Generate(instanceDir, packName, mcVersion, modLoaderID string) error {
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %+v", instanceDir, err)
	}

	cfgPath := filepath.Join(instanceDir, "instance.cfg")
	if !fileExists(cfgPath) {
		cfg := fmt.Sprintf(instanceCfgTemplate, packName)
		if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
			return fmt.Errorf("failed to save instance.cfg: %+v", err)
		}
	}

	packPath := filepath.Join(instanceDir, "mmc-pack.json")
	if fileExists(packPath) {
		return nil
	}

	family, loaderVersion, err := splitLoaderID(modLoaderID)
	if err != nil {
		return err
	}
	uid, ok := componentUIDs[family]
	if !ok {
		return fmt.Errorf("no MultiMC component known for mod loader family %q", family)
	}

	mmcpack := gabs.New()
	if _, err := mmcpack.Array("components"); err != nil {
		return fmt.Errorf("failed to build mmc-pack.json: %+v", err)
	}
	if err := mmcpack.ArrayAppend(map[string]interface{}{
		"important": true,
		"uid":       "net.minecraft",
		"version":   mcVersion,
	}, "components"); err != nil {
		return fmt.Errorf("failed to append minecraft component: %+v", err)
	}
	if err := mmcpack.ArrayAppend(map[string]interface{}{
		"uid":     uid,
		"version": loaderVersion,
	}, "components"); err != nil {
		return fmt.Errorf("failed to append %s component: %+v", family, err)
	}
	if _, err := mmcpack.Set(1, "formatVersion"); err != nil {
		return fmt.Errorf("failed to set formatVersion: %+v", err)
	}

	if err := os.WriteFile(packPath, []byte(mmcpack.StringIndent("", "  ")), 0644); err != nil {
		return fmt.Errorf("failed to save mmc-pack.json: %+v", err)
	}
	return nil
}

func splitLoaderID(modLoaderID string) (family, version string, err error) {
	idx := strings.Index(modLoaderID, "-")
	if idx < 0 {
		return "", "", fmt.Errorf("modLoaderId %q is missing a '-' separator between family and version", modLoaderID)
	}
	return modLoaderID[:idx], modLoaderID[idx+1:], nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
