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

package forge

import (
	"fmt"
	"path/filepath"

	"github.com/Jeffail/gabs"
)

const globalVersionManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

// installServerMinecraftJar ensures minecraft_server.<version>.jar is
// present in baseDir, downloading it from Mojang's version manifest if
// necessary. Adapted from the teacher's minecraft.go installMinecraftJar,
// trimmed to the server-only case this installer needs.
func installServerMinecraftJar(version, baseDir string) (string, error) {
	filename := filepath.Join(baseDir, fmt.Sprintf("minecraft_server.%s.jar", version))
	if fileExists(filename) {
		return filename, nil
	}

	global, err := getJSONFromURL(globalVersionManifestURL)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve global version manifest: %+v", err)
	}

	var versionManifest *gabs.Container
	versionObjs, _ := global.Path("versions").Children()
	for _, v := range versionObjs {
		if id, ok := v.Path("id").Data().(string); ok && id == version {
			versionManifest, err = getJSONFromURL(v.Path("url").Data().(string))
			if err != nil {
				return "", fmt.Errorf("failed to retrieve manifest for %s: %+v", version, err)
			}
			break
		}
	}
	if versionManifest == nil {
		return "", fmt.Errorf("failed to find a version manifest entry for %s", version)
	}

	url, ok := versionManifest.Path("downloads.server.url").Data().(string)
	if !ok || url == "" {
		return "", fmt.Errorf("no server download listed for Minecraft %s", version)
	}

	if err := downloadHTTPFile(url, filename); err != nil {
		return "", fmt.Errorf("failed to download minecraft_server.%s.jar: %+v", version, err)
	}
	return filename, nil
}

func getJSONFromURL(url string) (*gabs.Container, error) {
	resp, err := httpGet(url)
	if err != nil {
		return nil, fmt.Errorf("failed HTTP request to %s: %+v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("failed to retrieve %s: HTTP %d", url, resp.StatusCode)
	}
	return gabs.ParseJSONBuffer(resp.Body)
}
