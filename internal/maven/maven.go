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

// Package maven parses Maven coordinates and resolves them against a Maven
// repository, the way the teacher's maven.go resolves fabric-installer and
// Forge library coordinates.
package maven

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Module is a parsed Maven coordinate: groupId:artifactId:version[:suffix][@ext].
type Module struct {
	GroupID    string
	ArtifactID string
	Version    string
	Extension  string
	Suffix     string
}

// Metadata is the subset of maven-metadata.xml this installer consults to
// find a module's latest release.
type Metadata struct {
	XMLName     xml.Name     `xml:"metadata"`
	GroupID     string       `xml:"groupId"`
	ArtifactID  string       `xml:"artifactId"`
	VersionInfo VersionInfo  `xml:"versioning"`
}

type VersionInfo struct {
	XMLName  xml.Name `xml:"versioning"`
	Latest   string   `xml:"latest"`
	Release  string   `xml:"release"`
	Versions []string `xml:"versions>version"`
}

// NewModule parses a Maven coordinate string into a Module.
func NewModule(coordinate string) (Module, error) {
	parts := strings.SplitN(coordinate, ":", 3)
	if len(parts) < 2 {
		return Module{}, fmt.Errorf("maven coordinate %q requires at least group and artifact IDs", coordinate)
	}

	groupID := parts[0]
	artifactID := parts[1]

	var vsn string
	if len(parts) > 2 {
		vsn = parts[2]
	}

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
		suffix = vsnParts[1]
	}

	return Module{
		GroupID:    groupID,
		ArtifactID: artifactID,
		Version:    vsn,
		Extension:  ext,
		Suffix:     suffix,
	}, nil
}

func (m Module) String() string {
	base := fmt.Sprintf("%s:%s:%s", m.GroupID, m.ArtifactID, m.Version)
	if m.Suffix != "" {
		base = base + ":" + m.Suffix
	}
	if m.Extension != "" {
		base = base + "@" + m.Extension
	}
	return base
}

// RepositoryPath resolves the full download URL for this module's artifact
// within the given repository base URL.
func (m Module) RepositoryPath(repo string) (string, error) {
	if m.Version == "" {
		return "", fmt.Errorf("version not set; cannot resolve repository path for %s", m)
	}

	var filename string
	if m.Suffix != "" {
		filename = fmt.Sprintf("%s-%s-%s.%s", m.ArtifactID, m.Version, m.Suffix, m.Extension)
	} else {
		filename = fmt.Sprintf("%s-%s.%s", m.ArtifactID, m.Version, m.Extension)
	}

	groupPath := path.Join(strings.Split(m.GroupID, ".")...)
	return urlJoin(repo, groupPath, m.ArtifactID, m.Version, filename)
}

// ToVersionPath resolves the download URL for an explicit version of this
// module, independent of whatever version the Module itself carries --
// used when the version comes from maven-metadata.xml's <release> tag.
func (m Module) ToVersionPath(repo, version, extension string) (string, error) {
	filename := fmt.Sprintf("%s-%s.%s", m.ArtifactID, version, extension)
	groupPath := path.Join(strings.Split(m.GroupID, ".")...)
	return urlJoin(repo, groupPath, m.ArtifactID, version, filename)
}

// LoadMetadata fetches and parses maven-metadata.xml for this module from
// the given repository base URL.
func (m Module) LoadMetadata(repo string) (Metadata, error) {
	groupPath := path.Join(strings.Split(m.GroupID, ".")...)
	metadataURL, err := urlJoin(repo, groupPath, m.ArtifactID, "maven-metadata.xml")
	if err != nil {
		return Metadata{}, err
	}

	body, err := readString(metadataURL)
	if err != nil {
		return Metadata{}, fmt.Errorf("unable to retrieve %s: %+v", metadataURL, err)
	}

	var metadata Metadata
	if err := xml.Unmarshal([]byte(body), &metadata); err != nil {
		return Metadata{}, fmt.Errorf("unable to parse %s: %+v", metadataURL, err)
	}
	return metadata, nil
}

func readString(rawURL string) (string, error) {
	resp, err := http.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to GET %s: %+v", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("failed to GET %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body of %s: %+v", rawURL, err)
	}
	return strings.TrimSpace(string(body)), nil
}

func urlJoin(urlBase string, paths ...string) (string, error) {
	u, err := url.Parse(urlBase)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %+v", urlBase, err)
	}

	u.Path = path.Join(append([]string{u.Path}, paths...)...)
	return u.String(), nil
}
