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

// Package forge installs a Forge mod loader version into a server root,
// the way the teacher's forge.go installs it into a client or server
// profile -- trimmed here to the server-only case the install engine
// needs (client profile wiring is out of scope, spec.md §1).
package forge

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/Jeffail/gabs"
	"github.com/xi2/xz"
	"go.uber.org/zap"

	"packsync/internal/results"
)

var javaHome string

// SetJavaHome points subsequent Install calls at a JDK whose bin/java and
// bin/unpack200 should be invoked instead of resolving those binaries off
// PATH. Mirrors the teacher's envConsts.JavaDir singleton.
func SetJavaHome(dir string) {
	javaHome = dir
}

func javaCmd() string {
	if javaHome == "" {
		return "java"
	}
	return filepath.Join(javaHome, "bin", "java")
}

func unpack200Cmd() string {
	if javaHome == "" {
		return "unpack200"
	}
	return filepath.Join(javaHome, "bin", "unpack200")
}

type forgeContext struct {
	log          *zap.SugaredLogger
	baseDir      string
	tmpDir       string
	minecraftVsn string
	forgeVsn     string

	installArchive *zipHelper
	installJSON    *gabs.Container
	versionJSON    *gabs.Container
	isLegacy       bool
}

func (fc *forgeContext) artifactDir() string {
	return filepath.Join(fc.baseDir, "libraries")
}

func (fc *forgeContext) forgeID() string {
	return fc.minecraftVsn + "-forge-" + fc.forgeVsn
}

// Install downloads and installs the given Forge version into root,
// matching the loader.Installer signature so it can be handed to
// loader.Dispatch directly.
func Install(log *zap.SugaredLogger, mcVersion, forgeVersion, root, resultsFile string) error {
	fc := &forgeContext{
		log:          log,
		baseDir:      root,
		minecraftVsn: mcVersion,
		forgeVsn:     forgeVersion,
	}

	forgeFilename := fmt.Sprintf("forge-%s-%s.jar", fc.minecraftVsn, fc.forgeVsn)
	if fileExists(filepath.Join(fc.baseDir, forgeFilename)) {
		log.Infof("Forge %s already installed", fc.forgeVsn)
		return writeForgeResult(resultsFile, fc.forgeID())
	}

	tmpDir, err := ioutil.TempDir("", "packsync-forgeinstall")
	if err != nil {
		return fmt.Errorf("failed to create temp dir for Forge processors: %+v", err)
	}
	fc.tmpDir = tmpDir
	defer os.RemoveAll(fc.tmpDir)

	if err := fc.downloadInstaller(); err != nil {
		return err
	}

	if err := fc.loadProfiles(); err != nil {
		return err
	}

	if err := installForgeArtifacts(fc); err != nil {
		return fmt.Errorf("failed to install Forge artifacts: %+v", err)
	}
	log.Infof("Installed Forge artifacts for %s", fc.forgeID())

	if err := installForgeLibraries(fc.installJSON, fc); err != nil {
		return fmt.Errorf("failed to install libraries from install_profile.json: %+v", err)
	}
	if err := installForgeLibraries(fc.versionJSON, fc); err != nil {
		return fmt.Errorf("failed to install libraries from version.json: %+v", err)
	}
	log.Infof("Installed all Forge libraries for %s", fc.forgeID())

	minecraftJar, err := installServerMinecraftJar(fc.minecraftVsn, fc.baseDir)
	if err != nil {
		return fmt.Errorf("failed to install minecraft server jar %s: %+v", fc.minecraftVsn, err)
	}
	log.Infof("Installed Minecraft server %s jar", fc.minecraftVsn)

	if err := runForgeProcessors(fc, minecraftJar); err != nil {
		return fmt.Errorf("failed to run Forge processors: %+v", err)
	}
	log.Infof("Executed Forge processors for %s", fc.forgeID())

	return writeForgeResult(resultsFile, fc.forgeID())
}

func writeForgeResult(resultsFile, forgeID string) error {
	if resultsFile == "" {
		return nil
	}
	sink := results.NewSink(resultsFile)
	sink.Set("FORGE_ID", forgeID)
	return sink.Flush()
}

// forgeInstallerURL mirrors the teacher's special-cased 1.7.10 URL format;
// every later Minecraft version uses the shorter form.
func forgeInstallerURL(mcVersion, forgeVersion string) string {
	if mcVersion == "1.7.10" {
		return fmt.Sprintf("http://files.minecraftforge.net/maven/net/minecraftforge/forge/%s-%s-%s/forge-%s-%s-%s-installer.jar",
			mcVersion, forgeVersion, mcVersion, mcVersion, forgeVersion, mcVersion)
	}
	return fmt.Sprintf("http://files.minecraftforge.net/maven/net/minecraftforge/forge/%s-%s/forge-%s-%s-installer.jar",
		mcVersion, forgeVersion, mcVersion, forgeVersion)
}

func (fc *forgeContext) downloadInstaller() error {
	url := forgeInstallerURL(fc.minecraftVsn, fc.forgeVsn)
	fc.log.Infof("Downloading Forge installer from %s", url)

	resp, err := httpGet(url)
	if err != nil {
		return fmt.Errorf("download failed: %+v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("download of %s failed: HTTP %d", url, resp.StatusCode)
	}

	installerBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Forge installer body: %+v", err)
	}

	fc.installArchive, err = newZipHelper(installerBytes)
	if err != nil {
		return fmt.Errorf("failed to open Forge installer archive: %+v", err)
	}
	return nil
}

// loadProfiles reads install_profile.json and version.json out of the
// installer jar, falling back to the pre-1.13 layout (a single
// install_profile.json with "install" and "versionInfo" sections) when
// version.json is absent.
func (fc *forgeContext) loadProfiles() error {
	installJSON, err := fc.installArchive.getJSONFile("install_profile.json")
	if err != nil {
		return fmt.Errorf("failed to read install_profile.json: %+v", err)
	}
	fc.installJSON = installJSON

	fc.versionJSON, _ = fc.installArchive.getJSONFile("version.json")
	if fc.versionJSON == nil {
		if !fc.installJSON.ExistsP("versionInfo") {
			return fmt.Errorf("install_profile.json has neither version.json nor a versionInfo section")
		}
		fc.isLegacy = true
		fc.versionJSON = fc.installJSON.Path("versionInfo")
		fc.installJSON = fc.installJSON.Path("install")
	}

	// Forge's own installer assigns a repeating default ID; overwrite with
	// the ID our directory layout actually uses.
	fc.versionJSON.SetP(fc.forgeID(), "id")
	return nil
}

func installForgeArtifacts(fc *forgeContext) error {
	artifactID, ok := fc.installJSON.S("path").Data().(string)
	if !ok {
		return fmt.Errorf("install_profile.json is missing a path entry")
	}

	forgeFilename := fmt.Sprintf("forge-%s-%s.jar", fc.minecraftVsn, fc.forgeVsn)

	var sourceFile string
	if fc.isLegacy {
		sourceFile, _ = fc.installJSON.S("filePath").Data().(string)
	} else {
		sourceFile = path.Join("maven", artifactToPath(artifactID))
	}
	targetFile := filepath.Join(fc.baseDir, forgeFilename)

	fc.log.Infof("Installing %s", artifactID)
	if _, err := fc.installArchive.writeFile(sourceFile, targetFile); err != nil {
		return fmt.Errorf("failed to write %s: %+v", targetFile, err)
	}
	return nil
}

func installForgeLibraries(section *gabs.Container, fc *forgeContext) error {
	libs, _ := section.Path("libraries").Children()
	for _, lib := range libs {
		if err := installForgeLibrary(lib, fc); err != nil {
			return fmt.Errorf("%v: %+v", lib.Path("name").Data(), err)
		}
	}
	return nil
}

func installForgeLibrary(library *gabs.Container, fc *forgeContext) error {
	name, _ := library.Path("name").Data().(string)
	var url string

	if library.ExistsP("downloads.artifact.url") {
		url, _ = library.Path("downloads.artifact.url").Data().(string)
		if url == "" {
			filename, _ := library.Path("downloads.artifact.path").Data().(string)
			sourceFile := path.Join("maven", filename)
			targetFile := filepath.Join(fc.artifactDir(), filename)

			fc.log.Infof("Installing %s", name)
			_, err := fc.installArchive.writeFile(sourceFile, targetFile)
			if err != nil {
				return fmt.Errorf("failed to write %s: %+v", filename, err)
			}
			return nil
		}
	} else {
		isClientLib := getFlag(library, "clientreq")
		isServerLib := getFlag(library, "serverreq")
		if !isClientLib && !isServerLib {
			return nil
		}

		if library.ExistsP("url") {
			url, _ = library.Path("url").Data().(string)
		}
		if url == "" {
			url = "https://libraries.minecraft.net"
		}
	}

	fc.log.Infof("Installing %s", name)

	artifactName := artifactToPath(name)
	filename := filepath.Join(fc.artifactDir(), artifactName)
	if fileExists(filename) {
		return nil
	}

	if fc.isLegacy {
		url = url + "/" + artifactName
	}

	if err := downloadXzPack(url, filename); err != nil {
		if err := downloadJar(url, filename); err != nil {
			return err
		}
	}
	return nil
}

func getFlag(obj *gabs.Container, flag string) bool {
	v, ok := obj.S(flag).Data().(bool)
	return ok && v
}

// downloadXzPack fetches the .pack.xz sibling of url, decompresses it, and
// unpacks the pack200-encoded JAR. Older Forge libraries are frequently
// published only in this form to save bandwidth.
func downloadXzPack(url, filename string) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	finalURL := fmt.Sprintf("%s.pack.xz", url)
	resp, err := httpGet(finalURL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %+v", finalURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("failed to download %s: HTTP %d", finalURL, resp.StatusCode)
	}

	xzReader, err := xz.NewReader(resp.Body, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s as xz: %+v", finalURL, err)
	}

	var packBuf bytes.Buffer
	packSz, err := packBuf.ReadFrom(xzReader)
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %+v", finalURL, err)
	}
	packData := packBuf.Bytes()

	sigLen, err := signatureLen(packData)
	if err != nil {
		return fmt.Errorf("failed to strip pack200 signature from %s: %+v", finalURL, err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %+v", dir, err)
	}

	if err := writeStream(filepath.Join(dir, "tmp.pack"), bytes.NewReader(packData[0:packSz-sigLen])); err != nil {
		return fmt.Errorf("failed to write tmp.pack in %s: %+v", dir, err)
	}

	return invokeUnpack200(dir, base)
}

func downloadJar(url, filename string) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	resp, err := httpGet(url)
	if err != nil {
		return fmt.Errorf("failed to download %s: %+v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("failed to download %s: HTTP %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %+v", dir, err)
	}
	return writeStream(filepath.Join(dir, base), resp.Body)
}

// signatureLen reads the trailing "SIGN"-tagged footer that Forge's XZ pack
// files carry and returns how many bytes (footer included) to strip before
// handing the payload to unpack200.
func signatureLen(data []byte) (int64, error) {
	sz := len(data)
	if sz < 8 || string(data[sz-4:sz]) != "SIGN" {
		return 0, fmt.Errorf("missing SIGN footer")
	}

	var sigLen uint32
	if err := binary.Read(bytes.NewReader(data[sz-8:sz-4]), binary.LittleEndian, &sigLen); err != nil {
		return 0, fmt.Errorf("invalid signature length: %+v", err)
	}
	return int64(sigLen) + 8, nil
}

func invokeUnpack200(libDir, libName string) error {
	cmd := exec.Command(unpack200Cmd(), "-r",
		filepath.Join(libDir, "tmp.pack"),
		filepath.Join(libDir, libName))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("unpack200 failed for %s: %+v: %s", libName, err, out)
	}
	return nil
}

func invokeProcessor(log *zap.SugaredLogger, name string, args []string) error {
	log.Infof("Running Forge processor %s", name)
	cmd := exec.Command(javaCmd(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("processor %s failed: %+v: %s", name, err, out)
	}
	return nil
}

func runForgeProcessors(fc *forgeContext, minecraftJar string) error {
	processors, _ := fc.installJSON.Path("processors").Children()
	if len(processors) == 0 {
		fc.log.Infof("No Forge processors to run for %s", fc.forgeID())
		return nil
	}

	data, err := loadForgeData(fc)
	if err != nil {
		return fmt.Errorf("failed to parse install_profile.json data section: %+v", err)
	}
	data["MINECRAFT_JAR"] = minecraftJar

	for _, p := range processors {
		processor, _ := p.Path("jar").Data().(string)
		processorJarName := filepath.Join(fc.artifactDir(), artifactToPath(processor))

		classpathItems, _ := p.Path("classpath").Children()
		classpathJars := make([]string, 0, len(classpathItems)+1)
		for _, item := range classpathItems {
			itemName, _ := item.Data().(string)
			classpathJars = append(classpathJars, filepath.Join(fc.artifactDir(), artifactToPath(itemName)))
		}
		classpathJars = append(classpathJars, processorJarName)

		mainClass, err := getJavaMainClass(processorJarName)
		if err != nil {
			return fmt.Errorf("failed to read main class for processor %s: %+v", processor, err)
		}

		args := []string{"-classpath", strings.Join(classpathJars, string(os.PathListSeparator)), mainClass}
		args = append(args, parseProcessorArgs(p, fc, data)...)

		if err := invokeProcessor(fc.log, processor, args); err != nil {
			return err
		}
	}
	return nil
}

func parseProcessorArgs(processor *gabs.Container, fc *forgeContext, data map[string]string) []string {
	var result []string
	args, _ := processor.Path("args").Children()
	for _, argItem := range args {
		argStr, _ := argItem.Data().(string)
		switch {
		case strings.HasPrefix(argStr, "{"):
			result = append(result, data[strings.Trim(argStr, "{}")])
		case strings.HasPrefix(argStr, "["):
			result = append(result, filepath.Join(fc.artifactDir(), artifactToPath(strings.Trim(argStr, "[]"))))
		default:
			result = append(result, argStr)
		}
	}
	return result
}

// loadForgeData resolves the server-side values of install_profile.json's
// data section: artifact references, quoted literals, and files that must
// be extracted from the installer into a temp directory first.
func loadForgeData(fc *forgeContext) (map[string]string, error) {
	dataJSON, err := fc.installJSON.Path("data").ChildrenMap()
	if err != nil || dataJSON == nil {
		return nil, fmt.Errorf("missing or empty data section: %+v", err)
	}

	dataMap := make(map[string]string, len(dataJSON))
	for k, v := range dataJSON {
		value, _ := v.Path("server").Data().(string)
		switch {
		case strings.HasPrefix(value, "["):
			dataMap[k] = filepath.Join(fc.artifactDir(), artifactToPath(strings.Trim(value, "[]")))
		case strings.HasPrefix(value, "'"):
			dataMap[k] = strings.Trim(value, "'")
		default:
			tmpFilename, err := fc.installArchive.writeFileToDir(strings.TrimLeft(value, "/"), fc.tmpDir)
			if err != nil {
				return nil, fmt.Errorf("failed to extract temp file %s (server): %+v", k, err)
			}
			dataMap[k] = tmpFilename
		}
	}
	return dataMap, nil
}

// artifactToPath converts a Maven coordinate (groupId:artifactId:version
// [:suffix][@ext]) into the repository-relative path for that artifact.
func artifactToPath(id string) string {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) < 3 {
		return id
	}

	groupID := strings.Split(parts[0], ".")
	artifactID := parts[1]
	vsn := parts[2]
	ext := "jar"
	suffix := ""

	if strings.Contains(vsn, "@") {
		vsnParts := strings.SplitN(vsn, "@", 2)
		vsn = vsnParts[0]
		ext = vsnParts[1]
	}
	if strings.Contains(vsn, ":") {
		vsnParts := strings.SplitN(vsn, ":", 2)
		vsn = vsnParts[0]
		suffix = "-" + vsnParts[1]
	}

	return filepath.Join(filepath.Join(groupID...), artifactID, vsn,
		fmt.Sprintf("%s-%s%s.%s", artifactID, vsn, suffix, ext))
}

func getJavaMainClass(jarfile string) (string, error) {
	data, err := readZipFileContents(jarfile, "META-INF/MANIFEST.MF")
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "Main-Class:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Main-Class:")), nil
		}
	}
	return "", fmt.Errorf("no Main-Class entry in %s", jarfile)
}
