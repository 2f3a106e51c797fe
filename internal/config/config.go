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

// Package config resolves the installer's environment-driven configuration
// once at startup, the way the teacher's env.go resolves envConsts.
package config

import (
	"os"
	"strconv"
	"time"
)

// LevelFromPolicy selects which source (if any) governs the persisted
// PersistedManifest.levelName.
type LevelFromPolicy string

const (
	LevelFromUnset     LevelFromPolicy = ""
	LevelFromOverrides LevelFromPolicy = "OVERRIDES"
	LevelFromWorldFile LevelFromPolicy = "WORLD_FILE"
)

// Config is the resolved set of optional knobs described in spec.md §6.
type Config struct {
	APIKey    string
	APIBaseURL string

	ModpackZipPath string
	Slug           string
	FileID         int

	ForceSynchronize     bool
	ExcludeIncludesFile  string
	LevelFrom            LevelFromPolicy
	OverridesSkipExisting bool

	ResponseTimeout          time.Duration
	TLSHandshakeTimeout      time.Duration
	ConnectionPoolIdleTimeout time.Duration

	ResultsFile string
	Verbose     bool

	// JavaHome, when set, points at a JDK install whose bin/java and
	// bin/unpack200 the mod-loader installers invoke. Left unset, they
	// resolve those binaries from PATH instead.
	JavaHome string
}

const (
	envAPIKey         = "CF_API_KEY"
	envAPIBaseURL     = "CF_API_BASE_URL"
	envModpackZip     = "CF_MODPACK_ZIP"
	envSlug           = "CF_SLUG"
	envFileID         = "CF_FILE_ID"
	envForceSync      = "CF_FORCE_SYNCHRONIZE"
	envExcludeInclude = "CF_EXCLUDE_INCLUDE_FILE"
	envLevelFrom      = "CF_LEVEL_FROM"
	envSkipExisting   = "CF_OVERRIDES_SKIP_EXISTING"
	envRespTimeout    = "CF_RESPONSE_TIMEOUT"
	envTLSTimeout     = "CF_TLS_HANDSHAKE_TIMEOUT"
	envIdleTimeout    = "CF_CONN_POOL_IDLE_TIMEOUT"
	envResultsFile    = "CF_RESULTS_FILE"
	envVerbose        = "CF_VERBOSE"
	envJavaHome       = "CF_JAVA_HOME"
)

// FromEnv resolves a Config from the process environment. Every field is
// optional per spec.md §6; callers decide whether a missing APIKey is fatal.
func FromEnv() Config {
	return Config{
		APIKey:                    os.Getenv(envAPIKey),
		APIBaseURL:                envOrDefault(envAPIBaseURL, "https://addons-ecs.forgesvc.net/api/v2"),
		ModpackZipPath:            os.Getenv(envModpackZip),
		Slug:                      os.Getenv(envSlug),
		FileID:                    envInt(envFileID, 0),
		ForceSynchronize:          envBool(envForceSync),
		ExcludeIncludesFile:       os.Getenv(envExcludeInclude),
		LevelFrom:                 LevelFromPolicy(os.Getenv(envLevelFrom)),
		OverridesSkipExisting:     envBool(envSkipExisting),
		ResponseTimeout:           envDuration(envRespTimeout, 30*time.Second),
		TLSHandshakeTimeout:       envDuration(envTLSTimeout, 10*time.Second),
		ConnectionPoolIdleTimeout: envDuration(envIdleTimeout, 90*time.Second),
		ResultsFile:               envOrDefault(envResultsFile, "results.txt"),
		Verbose:                   envBool(envVerbose),
		JavaHome:                  os.Getenv(envJavaHome),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
