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

// Package install is the core engine: the Installer Orchestrator, the
// Prior-Install Comparator, and the File Classifier & Downloader, wired
// together the way the teacher's modpack.go wires ModPack, MetaCache and
// the curseforge file installers, generalized to a registry-agnostic
// Client interface.
package install

import (
	"go.uber.org/zap"

	"packsync/internal/config"
	"packsync/internal/excludeinclude"
	"packsync/internal/loader"
	"packsync/internal/manifest"
	"packsync/internal/registry"
)

// Context is the per-install value threaded through the orchestrator: the
// slug being installed, the registry client, the category taxonomy it
// loaded, and the prior manifest (if any) -- spec.md §3 InstallContext.
type Context struct {
	Slug         string
	Client       registry.Client
	CategoryInfo registry.CategoryInfo
	PriorManifest *manifest.PersistedManifest

	// Progress, if set, is invoked alongside logging for every Download
	// callback the classifier issues -- the hook cmd/packsync wires a
	// goterminal single-line reporter into, spec.md §4.4 step 8.
	Progress registry.StatusCallback
}

// Options bundles everything the three entry points need beyond their own
// positional arguments: the output root, the operator configuration, the
// mod-loader installers to dispatch to, and a logger. ForgeInstall and
// FabricInstall are injected rather than imported directly so install has
// no upward dependency on either concrete loader package -- only on the
// loader.Installer function type both satisfy.
type Options struct {
	Root    string
	Config  config.Config
	Logger  *zap.SugaredLogger

	ForgeInstall  loader.Installer
	FabricInstall loader.Installer

	ExcludeInclude *excludeinclude.Content

	// NewClient constructs the registry client for this install. Exposed as
	// a func so tests can inject a fake without an HTTP round trip; the CLI
	// entrypoint wires registry.NewHTTPClient here.
	NewClient func(apiKey string, log *zap.SugaredLogger) registry.Client

	// Progress, when set, receives every download status callback alongside
	// the installer's own logging. Left nil outside cmd/packsync.
	Progress registry.StatusCallback
}

const (
	categoryMods    = "mc-mods"
	categoryPlugins = "bukkit-plugins"
	categoryWorlds  = "worlds"
	packCategory    = "modpacks"
)

var contentClassSlugs = []string{categoryMods, categoryPlugins, categoryWorlds}
