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

package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/apoorvam/goterminal"

	"packsync/internal/registry"
)

// progressReporter prints a single updating line ("downloaded N, already
// present M") during the concurrent download fan-out, following the teacher's
// pkg/console.go logAction pattern built on goterminal. classifyAndDownload
// invokes the returned callback from multiple goroutines, so updates are
// serialized behind a mutex.
type progressReporter struct {
	mu        sync.Mutex
	term      *goterminal.Writer
	downloaded int
	present    int
}

func newProgressReporter() *progressReporter {
	return &progressReporter{term: goterminal.New(os.Stdout)}
}

func (p *progressReporter) report(status registry.DownloadStatus, f registry.File) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if status == registry.StatusAlreadyPresent {
		p.present++
	} else {
		p.downloaded++
	}

	p.term.Clear()
	fmt.Fprintf(p.term, "downloaded %d, already present %d (%s)\n", p.downloaded, p.present, f.FileName)
	p.term.Print()
}

func (p *progressReporter) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.term.Reset()
}
