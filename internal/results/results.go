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

// Package results writes the line-oriented KEY=VALUE results file described
// in spec.md §6, in the teacher's writeStringFile style.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sink accumulates KEY=VALUE pairs and flushes them in insertion order.
type Sink struct {
	path   string
	keys   []string
	values map[string]string
}

func NewSink(path string) *Sink {
	return &Sink{path: path, values: make(map[string]string)}
}

// Set records a key, overwriting any previous value but preserving its
// original position so VERSION/LEVEL order stays stable across installs.
func (s *Sink) Set(key, value string) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Flush writes the accumulated pairs to disk, creating parent directories
// as needed.
func (s *Sink) Flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %+v", s.path, err)
	}

	var b strings.Builder
	for _, k := range s.keys {
		fmt.Fprintf(&b, "%s=%s\n", k, s.values[k])
	}

	if err := os.WriteFile(s.path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write results file %s: %+v", s.path, err)
	}
	return nil
}
