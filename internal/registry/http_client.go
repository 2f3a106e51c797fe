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

package registry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/viki-org/dnscache"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// httpClient is the sole owner of network sockets and connection pooling
// for an install, per spec.md §5. It is safe for concurrent use: http.Client
// already is, and the dnscache resolver below guards its own map.
type httpClient struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	log      *zap.SugaredLogger
	resolver *dnscache.Resolver
	printer  *message.Printer
}

// Options configures the registry's HTTP transport. These mirror the
// {responseTimeout, tlsHandshakeTimeout, connectionPoolMaxIdleTimeout}
// trio from spec.md §6.
type Options struct {
	BaseURL             string
	APIKey              string
	ResponseTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	IdleConnTimeout     time.Duration
}

// NewHTTPClient constructs the concrete Client implementation. Acquired
// once per install (spec.md §5) and released via Close.
func NewHTTPClient(opts Options, log *zap.SugaredLogger) Client {
	resolver := dnscache.New(15 * time.Minute)

	transport := &http.Transport{
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       opts.IdleConnTimeout,
		TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
		ResponseHeaderTimeout: opts.ResponseTimeout,
	}
	// Wire a dnscache-backed dialer, matching the teacher's util.go
	// NewHttpClient resolver strategy.
	transport.Dial = func(network, address string) (net.Conn, error) {
		sep := strings.LastIndex(address, ":")
		host := address[:sep]
		port := address[sep:]
		ip, err := resolver.FetchOne(host)
		if err != nil {
			return nil, err
		}
		ipStr := ip.String()
		if ip.To4() == nil {
			ipStr = "[" + ipStr + "]"
		}
		return net.DialTimeout("tcp", ipStr+port, 5*time.Second)
	}
	_ = http2.ConfigureTransport(transport)

	return &httpClient{
		http:     &http.Client{Transport: transport},
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		log:      log,
		resolver: resolver,
		printer:  message.NewPrinter(language.English),
	}
}

func (c *httpClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *httpClient) get(path string) (*http.Response, error) {
	url := c.baseURL + path
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "packsync/1.0")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request to %s failed: %+v", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp, nil
}

func (c *httpClient) getJSON(path string, out interface{}) error {
	resp, err := c.get(path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

type addonResponse struct {
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	ClassID  int    `json:"classId"`
}

type addonFileResponse struct {
	ID           int      `json:"id"`
	FileName     string   `json:"fileName"`
	DownloadURL  string   `json:"downloadUrl"`
	GameVersions []string `json:"gameVersions"`
}

type categoryResponse struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	ClassID int  `json:"classId"`
}

func (c *httpClient) GetModInfo(projectID int) (Mod, error) {
	var a addonResponse
	if err := c.getJSON(fmt.Sprintf("/addon/%d", projectID), &a); err != nil {
		return Mod{}, fmt.Errorf("failed to retrieve project %d: %+v", projectID, err)
	}
	return Mod{ID: a.ID, Slug: a.Slug, Name: a.Name, ClassID: a.ClassID}, nil
}

func (c *httpClient) GetModFileInfo(modID, fileID int) (*File, error) {
	var f addonFileResponse
	err := c.getJSON(fmt.Sprintf("/addon/%d/file/%d", modID, fileID), &f)
	if err != nil {
		if httpErr, ok := err.(*HTTPError); ok && httpErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to resolve file %d for mod %d: %+v", fileID, modID, err)
	}
	return &File{ID: f.ID, ModID: modID, FileName: f.FileName, DownloadURL: f.DownloadURL, GameVersions: f.GameVersions}, nil
}

func (c *httpClient) SearchMod(slug string, categoryInfo CategoryInfo) (Mod, error) {
	var results []addonResponse
	path := fmt.Sprintf("/addon/search?gameId=432&slug=%s", slug)
	if err := c.getJSON(path, &results); err != nil {
		return Mod{}, fmt.Errorf("failed to search for %s: %+v", slug, err)
	}
	for _, r := range results {
		if r.Slug == slug {
			return Mod{ID: r.ID, Slug: r.Slug, Name: r.Name, ClassID: r.ClassID}, nil
		}
	}
	return Mod{}, fmt.Errorf("no modpack found for slug %s", slug)
}

func (c *httpClient) LoadCategoryInfo(classSlugs []string, packCategorySlug string) (CategoryInfo, error) {
	var cats []categoryResponse
	if err := c.getJSON("/category", &cats); err != nil {
		return CategoryInfo{}, fmt.Errorf("failed to load category info: %+v", err)
	}

	wanted := make(map[string]bool, len(classSlugs))
	for _, s := range classSlugs {
		wanted[s] = true
	}

	info := CategoryInfo{ContentClassIDs: make(map[int]Category)}
	for _, cat := range cats {
		if wanted[cat.Slug] {
			info.ContentClassIDs[cat.ClassID] = Category{ID: cat.ID, Slug: cat.Slug}
		}
	}
	return info, nil
}

func (c *httpClient) SlugToID(categoryInfo CategoryInfo, slug string) (int, error) {
	mod, err := c.SearchMod(slug, categoryInfo)
	if err != nil {
		return 0, err
	}
	return mod.ID, nil
}

// ResolveModpackFile picks a single File for a modpack Mod, optionally
// filtered by fileMatcher; when nil, the most recent file is used.
func (c *httpClient) ResolveModpackFile(mod Mod, fileMatcher func(File) bool) (File, error) {
	var files []addonFileResponse
	if err := c.getJSON(fmt.Sprintf("/addon/%d/files", mod.ID), &files); err != nil {
		return File{}, fmt.Errorf("failed to list files for %s: %+v", mod.Slug, err)
	}
	if len(files) == 0 {
		return File{}, fmt.Errorf("no files available for %s", mod.Slug)
	}

	for i := len(files) - 1; i >= 0; i-- {
		f := File{ID: files[i].ID, ModID: mod.ID, FileName: files[i].FileName, DownloadURL: files[i].DownloadURL, GameVersions: files[i].GameVersions}
		if fileMatcher == nil || fileMatcher(f) {
			return f, nil
		}
	}
	return File{}, fmt.Errorf("no matching file found for %s", mod.Slug)
}

func (c *httpClient) Download(file File, baseDir string, statusCb StatusCallback) (string, error) {
	target := filepath.Join(baseDir, file.FileName)
	if fileExists(target) {
		if statusCb != nil {
			statusCb(StatusAlreadyPresent, file)
		}
		return target, nil
	}

	if err := c.downloadTo(file, target); err != nil {
		return "", err
	}
	if statusCb != nil {
		statusCb(StatusDownloaded, file)
	}
	return target, nil
}

func (c *httpClient) DownloadTemp(file File, ext string, statusCb StatusCallback) (string, error) {
	tmpDir, err := os.MkdirTemp("", "packsync-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %+v", err)
	}
	target := filepath.Join(tmpDir, file.FileName)
	if ext != "" && filepath.Ext(target) == "" {
		target += ext
	}

	if err := c.downloadTo(file, target); err != nil {
		return "", err
	}
	if statusCb != nil {
		statusCb(StatusDownloaded, file)
	}
	return target, nil
}

func (c *httpClient) downloadTo(file File, target string) error {
	if file.DownloadURL == "" {
		return fmt.Errorf("no downloadUrl available for %s", file.FileName)
	}

	resp, err := c.http.Get(file.DownloadURL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %+v", file.FileName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, URL: file.DownloadURL}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %+v", target, err)
	}

	tmp := target + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %+v", target, err)
	}
	w := bufio.NewWriter(f)
	written, copyErr := io.Copy(w, resp.Body)
	flushErr := w.Flush()
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %+v", target, copyErr)
	}
	if flushErr != nil || closeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to flush %s: %+v", target, flushErr)
	}
	if c.log != nil {
		c.log.Debugf("downloaded %s (%s bytes)", filepath.Base(target), c.printer.Sprintf("%d", written))
	}
	return os.Rename(tmp, target)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
