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

package install

import (
	"packsync/internal/manifest"
)

// decision is what the Prior-Install Comparator (spec.md §4.1) tells the
// orchestrator to do with a candidate (modId, fileId).
type decision int

const (
	decisionFullInstall decision = iota
	decisionFinalizeExisting
)

// decide implements the idempotence rule verbatim: a prior manifest exists
// AND identifies the same pack instance (by modId or by slug) AND the same
// fileId selects finalize-existing, unless forceSynchronize is set or a
// tracked file has gone missing since the prior run.
func decide(prior *manifest.PersistedManifest, slug string, modID, fileID int, root string, forceSync bool) decision {
	if prior == nil {
		return decisionFullInstall
	}

	samePack := prior.ModID == modID || prior.Slug == slug
	if !samePack || prior.FileID != fileID {
		return decisionFullInstall
	}

	if forceSync {
		return decisionFullInstall
	}

	if manifest.AllFilesPresent(root, prior) {
		return decisionFinalizeExisting
	}

	return decisionFullInstall
}
