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
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

var httpClient = http.Client{Timeout: 60 * time.Second}

func httpGet(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "packsync/1.0")
	return httpClient.Do(req)
}

func downloadHTTPFile(url, targetFile string) error {
	resp, err := httpGet(url)
	if err != nil {
		return fmt.Errorf("failed to retrieve %s: %+v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("failed to retrieve %s: HTTP %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(targetFile), 0700); err != nil {
		return fmt.Errorf("failed to create directories for %s: %+v", targetFile, err)
	}
	return writeStream(targetFile, resp.Body)
}

func writeStream(filename string, data io.Reader) error {
	tmp := filename + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %+v", filename, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := io.Copy(w, data); err != nil {
		return fmt.Errorf("failed to write %s: %+v", filename, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %+v", filename, err)
	}
	f.Close()

	return os.Rename(tmp, filename)
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
