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

package manifest

import "hash/fnv"

// PseudoModID derives a stable, host-independent pseudo modId for archive
// and standalone-manifest installs, which have no registry-assigned
// project ID (spec.md §4.2). FNV-32a is used as the "any stable 32-bit
// string hash" the spec calls for.
func PseudoModID(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return abs32(int32(h.Sum32()))
}

// PseudoFileID derives a stable, order-sensitive pseudo fileId from the
// manifest's file list, per spec.md §4.2's 32-bit running hash recurrence.
func PseudoFileID(files []FileRef) int {
	var h int32 = 7
	for _, f := range files {
		h = 31*h + int32(f.ProjectID)
		h = 31*h + int32(f.FileID)
	}
	return abs32(h)
}

func abs32(v int32) int {
	if v < 0 {
		return int(-v)
	}
	return int(v)
}
