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

// Package fabric installs a Fabric mod loader version into a server root by
// downloading the official fabric-installer from Maven and invoking it,
// the way the teacher's fabric.go does for its server install path.
package fabric

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"packsync/internal/maven"
	"packsync/internal/results"
)

const installerRepo = "https://maven.fabricmc.net"

var javaHome string

// SetJavaHome points subsequent Install calls at a JDK whose bin/java
// should run the fabric-installer jar, instead of resolving it off PATH.
func SetJavaHome(dir string) {
	javaHome = dir
}

func javaCmd() string {
	if javaHome == "" {
		return "java"
	}
	return filepath.Join(javaHome, "bin", "java")
}

func loaderID(mcVersion, fabricVersion string) string {
	return fmt.Sprintf("fabric-loader-%s-%s", fabricVersion, mcVersion)
}

func isInstalled(root string) bool {
	_, err := os.Stat(filepath.Join(root, "fabric-server-launch.jar"))
	return err == nil
}

// Install downloads the fabric-installer and runs it against root in
// server mode, matching the loader.Installer signature.
func Install(log *zap.SugaredLogger, mcVersion, fabricVersion, root, resultsFile string) error {
	id := loaderID(mcVersion, fabricVersion)

	if isInstalled(root) {
		log.Infof("Fabric %s already available", fabricVersion)
		return writeFabricResult(resultsFile, id)
	}

	tmpDir, err := ioutil.TempDir("", "packsync-fabricinstall")
	if err != nil {
		return fmt.Errorf("failed to create temp dir for Fabric installer: %+v", err)
	}
	defer os.RemoveAll(tmpDir)

	url, err := latestInstallerURL()
	if err != nil {
		return fmt.Errorf("failed to resolve fabric-installer download URL: %+v", err)
	}

	installerJar := filepath.Join(tmpDir, "fabric-installer.jar")
	if err := downloadFile(url, installerJar); err != nil {
		return fmt.Errorf("failed to download fabric-installer from %s: %+v", url, err)
	}

	args := []string{
		"-Djava.awt.headless=true", "-jar", installerJar,
		"server", "-downloadMinecraft",
		"-mcversion", mcVersion,
		"-loader", fabricVersion,
		"-dir", root,
	}

	log.Infof("Running fabric-installer for %s", id)
	cmd := exec.Command(javaCmd(), args...)
	cmd.Dir = root
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("fabric-installer failed for %s: %+v: %s", id, err, out)
	}

	return writeFabricResult(resultsFile, id)
}

// latestInstallerURL resolves the release version of net.fabricmc:fabric-installer
// from Fabric's maven-metadata.xml and returns its download URL.
func latestInstallerURL() (string, error) {
	mod, err := maven.NewModule("net.fabricmc:fabric-installer")
	if err != nil {
		return "", err
	}

	metadata, err := mod.LoadMetadata(installerRepo)
	if err != nil {
		return "", fmt.Errorf("failed to load fabric-installer metadata: %+v", err)
	}
	if metadata.VersionInfo.Release == "" {
		return "", fmt.Errorf("maven-metadata.xml for fabric-installer has no release version")
	}

	return mod.ToVersionPath(installerRepo, metadata.VersionInfo.Release, "jar")
}

func downloadFile(url, target string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}

func writeFabricResult(resultsFile, id string) error {
	if resultsFile == "" {
		return nil
	}
	sink := results.NewSink(resultsFile)
	sink.Set("FABRIC_LOADER_ID", id)
	return sink.Flush()
}
