// ***************************************************************************
//
//  Copyright 2017-2021 David (Dizzy) Smith, dizzyd@dizzyd.com
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

// packsync installs a CurseForge-distributed Minecraft modpack into a
// server directory, generalizing the teacher's cmd/mcdex command-table
// dispatcher to the engine in internal/install.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/xeonx/timeago"
	"go.uber.org/zap"

	"packsync/internal/config"
	"packsync/internal/excludeinclude"
	"packsync/internal/fabric"
	"packsync/internal/forge"
	"packsync/internal/install"
	"packsync/internal/logging"
	"packsync/internal/manifest"
	"packsync/internal/mmcconfig"
	"packsync/internal/modcache"
	"packsync/internal/registry"
)

var version = "dev"

var argRoot string

type command struct {
	Fn        func(cfg config.Config, log *zap.SugaredLogger) error
	Desc      string
	ArgsCount int
	Args      string
}

var gCommands = map[string]command{
	"install": {
		Fn:        cmdInstall,
		Desc:      "Install a modpack into -root, resolving it from CF_MODPACK_ZIP, a manifest path, or CF_SLUG",
		ArgsCount: 0,
		Args:      "[<manifest.json path>]",
	},
	"mmc.generate": {
		Fn:        cmdMMCGenerate,
		Desc:      "Generate a MultiMC client instance pointed at the pack just installed in -root",
		ArgsCount: 0,
	},
	"version": {
		Fn:        cmdVersion,
		Desc:      "Print the installed packsync version",
		ArgsCount: 0,
	},
}

// cmdInstall dispatches to whichever of the three install.InstallFrom*
// entry points the resolved configuration selects, spec.md §4.1: an
// archive path (CF_MODPACK_ZIP) wins, then an explicit standalone
// manifest.json argument, then a bare slug search.
func cmdInstall(cfg config.Config, log *zap.SugaredLogger) error {
	opts, cleanup, err := buildOptions(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if info, err := os.Stat(filepath.Join(argRoot, manifest.FileName)); err == nil {
		log.Infof("found existing install, last written %s", timeago.English.Format(info.ModTime()))
	}

	slug := cfg.Slug
	manifestArg := flag.Arg(1)

	switch {
	case cfg.ModpackZipPath != "":
		return install.InstallFromArchive(cfg.ModpackZipPath, slug, opts)
	case manifestArg != "":
		return install.InstallFromManifestFile(manifestArg, slug, opts)
	case slug != "":
		return install.InstallFromSlug(slug, nil, cfg.FileID, opts)
	default:
		return fmt.Errorf("nothing to install: set CF_MODPACK_ZIP, CF_SLUG, or pass a manifest.json path")
	}
}

func cmdMMCGenerate(cfg config.Config, log *zap.SugaredLogger) error {
	prior, err := manifest.Load(argRoot)
	if err != nil {
		return err
	}
	if prior == nil {
		return fmt.Errorf("no %s found in %s; run install first", manifest.FileName, argRoot)
	}

	instanceDir := filepath.Join(argRoot, ".mmc-instance")
	if err := mmcconfig.Generate(instanceDir, prior.ModpackName, prior.MinecraftVersion, prior.ModLoaderID); err != nil {
		return err
	}
	log.Infof("generated MultiMC instance at %s", instanceDir)
	return nil
}

func cmdVersion(cfg config.Config, log *zap.SugaredLogger) error {
	fmt.Printf("packsync %s\n", version)
	return nil
}

// buildOptions assembles install.Options from the resolved configuration:
// the registry client (wrapped with the on-disk slug cache), the two
// mod-loader installers, the exclude/include document, and a progress
// reporter feeding the same status callback the classifier already issues
// for logging. The returned cleanup func releases the progress terminal
// and is safe to defer unconditionally.
func buildOptions(cfg config.Config, logger *zap.SugaredLogger) (install.Options, func(), error) {
	if cfg.JavaHome != "" {
		forge.SetJavaHome(cfg.JavaHome)
		fabric.SetJavaHome(cfg.JavaHome)
	}

	excludeInclude, err := excludeinclude.LoadContent(cfg.ExcludeIncludesFile)
	if err != nil {
		return install.Options{}, func() {}, err
	}

	progress := newProgressReporter()

	opts := install.Options{
		Root:           argRoot,
		Config:         cfg,
		Logger:         logger,
		ForgeInstall:   forge.Install,
		FabricInstall:  fabric.Install,
		ExcludeInclude: excludeInclude,
		Progress:       progress.report,
		NewClient: func(apiKey string, log *zap.SugaredLogger) registry.Client {
			client := registry.NewHTTPClient(registry.Options{
				BaseURL:             cfg.APIBaseURL,
				APIKey:              apiKey,
				ResponseTimeout:     cfg.ResponseTimeout,
				TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
				IdleConnTimeout:     cfg.ConnectionPoolIdleTimeout,
			}, log)

			cache, cacheErr := modcache.Open(filepath.Join(argRoot, "modcache.dat"))
			if cacheErr != nil {
				log.Warnf("failed to open local mod cache, continuing without it: %+v", cacheErr)
				return client
			}
			return modcache.Wrap(client, cache, log)
		},
	}

	return opts, progress.done, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: packsync [<options>] <command> [<args>]\n")
	fmt.Fprintf(os.Stderr, "<options>\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\n<commands>\n")

	keys := make([]string, 0, len(gCommands))
	for k := range gCommands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(os.Stderr, "  - %s %s: %s\n", k, gCommands[k].Args, gCommands[k].Desc)
	}
}

func main() {
	var verbose bool
	flag.StringVar(&argRoot, "root", ".", "Server output root directory")
	flag.BoolVar(&verbose, "v", false, "Enable verbose (debug-level) logging")
	flag.Parse()

	if !flag.Parsed() || flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cfg := config.FromEnv()
	cfg.Verbose = cfg.Verbose || verbose
	logger := logging.New(cfg.Verbose)
	defer logger.Sync()

	name := flag.Arg(0)
	cmd, exists := gCommands[name]
	if !exists {
		fmt.Fprintf(os.Stderr, "ERROR: unknown command %q\n", name)
		usage()
		os.Exit(1)
	}

	if flag.NArg() < cmd.ArgsCount+1 {
		fmt.Fprintf(os.Stderr, "ERROR: insufficient arguments for %s\n", name)
		fmt.Fprintf(os.Stderr, "usage: packsync %s %s\n", name, cmd.Args)
		os.Exit(1)
	}

	if err := cmd.Fn(cfg, logger); err != nil {
		log.Fatalf("%+v\n", err)
	}
}
