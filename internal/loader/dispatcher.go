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

// Package loader parses a modLoaderId string (spec.md §4.7) and dispatches
// to the matching installer.
package loader

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Installer installs one mod-loader version into root, reporting its ID
// into resultsFile -- the signature spec.md §6 describes for installForge
// and installFabric.
type Installer func(log *zap.SugaredLogger, mcVersion, loaderVersion, root, resultsFile string) error

// Dispatch parses modLoaderId on its first '-' into (family, version) and
// invokes the matching installer. An unrecognized family is skipped with a
// logged warning and no error (spec.md §9 Open Question); a missing '-'
// separator is a hard error.
func Dispatch(modLoaderID, mcVersion, root, resultsFile string, log *zap.SugaredLogger, forge, fabric Installer) error {
	idx := strings.Index(modLoaderID, "-")
	if idx < 0 {
		return fmt.Errorf("modLoaderId %q is missing a '-' separator between family and version", modLoaderID)
	}

	family := modLoaderID[:idx]
	version := modLoaderID[idx+1:]

	switch family {
	case "forge":
		return forge(log, mcVersion, version, root, resultsFile)
	case "fabric":
		return fabric(log, mcVersion, version, root, resultsFile)
	default:
		if log != nil {
			log.Warnf("unrecognized mod loader family %q in %q; skipping loader install", family, modLoaderID)
		}
		return nil
	}
}
