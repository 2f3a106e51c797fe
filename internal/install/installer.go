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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"packsync/internal/archive"
	"packsync/internal/excludeinclude"
	"packsync/internal/loader"
	"packsync/internal/manifest"
	"packsync/internal/registry"
	"packsync/internal/results"
)

// InstallFromArchive is the archive entry point, spec.md §4.1: parses the
// pack archive's embedded manifest.json and installs it.
func InstallFromArchive(archivePath, slug string, opts Options) error {
	a, err := archive.Open(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	pm, err := parsePackManifest(a)
	if err != nil {
		return err
	}

	return runInstall(pm, slug, opts, func(ctx *Context, newPM *manifest.PersistedManifest) ([]PathWithInfo, error) {
		return applyOverridesAndWorlds(a, pm, opts)
	})
}

// InstallFromManifestFile is the standalone-manifest entry point: the
// overrides step is a no-op since there is no archive to stream them from.
func InstallFromManifestFile(manifestPath, slug string, opts Options) error {
	f, err := os.Open(manifestPath)
	if err != nil {
		return inputErrorf("failed to open %s: %+v", manifestPath, err)
	}
	defer f.Close()

	pm, err := manifest.ParsePackManifest(f)
	if err != nil {
		return inputErrorf("%+v", err)
	}

	return runInstall(pm, slug, opts, func(ctx *Context, newPM *manifest.PersistedManifest) ([]PathWithInfo, error) {
		return nil, nil
	})
}

// InstallFromSlug searches the registry for slug, resolves one pack file
// (optionally matching fileMatcher or an explicit fileId), downloads it to
// a temp path, and proceeds as InstallFromArchive -- except the identity
// used for the Prior-Install Comparator comes from the registry's own
// (modId, fileId) rather than spec.md §4.2's pseudo-IDs, since this entry
// point actually has registry-assigned ones. The temp archive is removed
// in a guaranteed-release block regardless of outcome, spec.md §5.
func InstallFromSlug(slug string, fileMatcher func(registry.File) bool, fileID int, opts Options) error {
	prior, err := manifest.Load(opts.Root)
	if err != nil {
		return err
	}

	client, categoryInfo, err := openClient(opts, prior, opts.Logger)
	if client == nil {
		// openClient returned a finalize-existing decision or a fatal error;
		// either way there's nothing further to do here.
		return err
	}
	defer client.Close()

	mod, err := client.SearchMod(slug, categoryInfo)
	if err != nil {
		return rewriteForbidden(err)
	}

	matcher := fileMatcher
	if fileID != 0 {
		matcher = func(f registry.File) bool { return f.ID == fileID }
	}

	file, err := client.ResolveModpackFile(mod, matcher)
	if err != nil {
		return rewriteForbidden(err)
	}

	if file.DownloadURL == "" {
		return accessDeniedErrorf("pack file %s has no download URL; set CF_MODPACK_ZIP to supply the archive manually", file.FileName)
	}

	archivePath, err := client.DownloadTemp(file, ".zip", func(registry.DownloadStatus, registry.File) {})
	if err != nil {
		return rewriteForbidden(err)
	}
	defer os.Remove(archivePath)

	a, err := archive.Open(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	pm, err := parsePackManifest(a)
	if err != nil {
		return err
	}

	return runInstallWithClient(pm, slug, opts, client, categoryInfo, prior, identity{modID: mod.ID, fileID: file.ID},
		func(ctx *Context, newPM *manifest.PersistedManifest) ([]PathWithInfo, error) {
			return applyOverridesAndWorlds(a, pm, opts)
		})
}

func parsePackManifest(a *archive.PackArchive) (*manifest.PackManifest, error) {
	r, err := a.ManifestJSON()
	if err != nil {
		return nil, inputErrorf("%+v", err)
	}
	defer r.Close()

	pm, err := manifest.ParsePackManifest(r)
	if err != nil {
		return nil, inputErrorf("%+v", err)
	}
	return pm, nil
}

// overridesFunc applies whatever overrides/world handling an entry point
// needs once the idempotence decision says a full install is required.
type overridesFunc func(ctx *Context, newPM *manifest.PersistedManifest) ([]PathWithInfo, error)

// identity is the (modId, fileId) pair an entry point supplies to the
// Prior-Install Comparator. A zero value tells runInstallWithClient to
// derive pseudo-IDs instead (spec.md §4.2), which is what the archive and
// standalone-manifest entry points need since they have no registry ID.
type identity struct {
	modID, fileID int
}

// runInstall is the common algorithm for entry points that have no
// registry-assigned identity (archive, standalone manifest): it loads the
// prior manifest, decides whether an API key is required, and opens its
// own client only if a full install turns out to be necessary.
func runInstall(pm *manifest.PackManifest, slug string, opts Options, apply overridesFunc) error {
	prior, err := manifest.Load(opts.Root)
	if err != nil {
		return err
	}

	client, categoryInfo, err := openClient(opts, prior, opts.Logger)
	if client == nil {
		return err
	}
	defer client.Close()

	return runInstallWithClient(pm, slug, opts, client, categoryInfo, prior, identity{}, apply)
}

func runInstallWithClient(pm *manifest.PackManifest, slug string, opts Options, client registry.Client, categoryInfo registry.CategoryInfo, prior *manifest.PersistedManifest, id identity, apply overridesFunc) error {
	log := opts.Logger
	root := opts.Root

	modID, fileID := id.modID, id.fileID
	if modID == 0 && fileID == 0 {
		modID = manifest.PseudoModID(pm.Name)
		fileID = manifest.PseudoFileID(pm.Files)
	}

	primaryLoader, err := pm.PrimaryModLoader()
	if err != nil {
		return inputErrorf("%+v", err)
	}
	if !strings.Contains(primaryLoader.ID, "-") {
		return configErrorf("modLoaderId %q is missing a '-' separator between family and version", primaryLoader.ID)
	}

	if decide(prior, slug, modID, fileID, root, opts.Config.ForceSynchronize) == decisionFinalizeExisting {
		log.Infof("existing install of %s/%s matches requested pack; finalizing without re-download", slug, pm.Version)
		return finalizeExisting(prior, opts)
	}

	ctx := &Context{Slug: slug, Client: client, CategoryInfo: categoryInfo, PriorManifest: prior, Progress: opts.Progress}

	ids, err := resolveExcludeInclude(opts, ctx)
	if err != nil {
		return err
	}

	for _, dir := range []string{"mods", "plugins", "saves"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0700); err != nil {
			return fmt.Errorf("failed to create %s: %+v", dir, err)
		}
	}

	downloaded, err := classifyAndDownload(pm, ids, ctx, root, opts.Config.LevelFrom, log)
	if err != nil {
		return rewriteForbidden(err)
	}

	newPM := &manifest.PersistedManifest{
		Slug:             slug,
		ModpackName:      pm.Name,
		ModpackVersion:   pm.Version,
		FileName:         opts.Config.ModpackZipPath,
		ModID:            modID,
		FileID:           fileID,
		MinecraftVersion: pm.Minecraft.Version,
		ModLoaderID:      primaryLoader.ID,
	}

	var allPaths []string
	absorb := func(pwi PathWithInfo) {
		allPaths = append(allPaths, pwi.Path)
		if pwi.LevelName != nil {
			level := *pwi.LevelName
			newPM.LevelName = &level
		}
	}
	for _, d := range downloaded {
		absorb(d)
	}

	overridden, err := apply(ctx, newPM)
	if err != nil {
		return err
	}
	for _, d := range overridden {
		absorb(d)
	}

	relPaths, err := manifest.RelativizeAll(root, allPaths)
	if err != nil {
		return err
	}
	newPM.Files = relPaths

	if err := loader.Dispatch(primaryLoader.ID, pm.Minecraft.Version, root, opts.Config.ResultsFile, log, opts.ForgeInstall, opts.FabricInstall); err != nil {
		return err
	}

	if err := manifest.Save(root, newPM); err != nil {
		return err
	}
	if err := manifest.Cleanup(root, prior, newPM); err != nil {
		return err
	}

	return writeResults(opts.Config.ResultsFile, newPM)
}

func resolveExcludeInclude(opts Options, ctx *Context) (excludeIncludeIDs, error) {
	resolved, err := excludeinclude.Resolve(opts.ExcludeInclude, ctx.Slug, ctx.CategoryInfo, ctx.Client)
	if err != nil {
		return excludeIncludeIDs{}, err
	}
	return excludeIncludeIDs{Excludes: resolved.Excludes, ForceIncludes: resolved.ForceIncludes}, nil
}

// applyOverridesAndWorlds runs the Overrides Applier over the archive.
func applyOverridesAndWorlds(a *archive.PackArchive, pm *manifest.PackManifest, opts Options) ([]PathWithInfo, error) {
	result, err := archive.ApplyOverrides(a, opts.Root, pm.Overrides, archive.LevelFromPolicy(opts.Config.LevelFrom), opts.Config.OverridesSkipExisting, opts.Logger)
	if err != nil {
		return nil, err
	}

	out := make([]PathWithInfo, 0, len(result.Paths))
	for _, p := range result.Paths {
		out = append(out, PathWithInfo{Path: p})
	}
	if result.LevelName != nil {
		level := *result.LevelName
		if len(out) > 0 {
			out[len(out)-1].LevelName = &level
		} else {
			out = append(out, PathWithInfo{LevelName: &level})
		}
	}
	return out, nil
}

// finalizeExisting is the short-circuit spec.md §4.1 describes: re-invoke
// the mod-loader installer with the prior identity and emit results
// without touching the file tree.
func finalizeExisting(prior *manifest.PersistedManifest, opts Options) error {
	if err := loader.Dispatch(prior.ModLoaderID, prior.MinecraftVersion, opts.Root, opts.Config.ResultsFile, opts.Logger, opts.ForgeInstall, opts.FabricInstall); err != nil {
		return err
	}
	return writeResults(opts.Config.ResultsFile, prior)
}

func writeResults(resultsFile string, pm *manifest.PersistedManifest) error {
	if resultsFile == "" {
		return nil
	}
	sink := results.NewSink(resultsFile)
	if pm.LevelName != nil {
		sink.Set("LEVEL", *pm.LevelName)
	}
	sink.Set("VERSION", pm.MinecraftVersion)
	return sink.Flush()
}

// openClient implements spec.md §4.1 steps 2-3. Without an API key: if a
// prior manifest exists this finalizes the existing install and returns
// (nil, _, err) where err is already the finalize-existing outcome -- the
// caller is expected to return it directly; otherwise it's a fatal
// ConfigError. With an API key, it constructs the client and loads the
// fixed category taxonomy.
func openClient(opts Options, prior *manifest.PersistedManifest, log interface {
	Warnf(string, ...interface{})
}) (registry.Client, registry.CategoryInfo, error) {
	if opts.Config.APIKey == "" {
		if prior != nil {
			log.Warnf("no API key configured; finalizing existing install of %s without checking for updates", prior.Slug)
			return nil, registry.CategoryInfo{}, finalizeExisting(prior, opts)
		}
		return nil, registry.CategoryInfo{}, configErrorf("no API key configured (set CF_API_KEY) and no prior install to finalize")
	}

	client := opts.NewClient(opts.Config.APIKey, opts.Logger)
	categoryInfo, err := client.LoadCategoryInfo(contentClassSlugs, packCategory)
	if err != nil {
		return nil, registry.CategoryInfo{}, rewriteForbidden(err)
	}
	return client, categoryInfo, nil
}

// rewriteForbidden re-raises an HTTP 403 from the registry client as a
// ConfigError naming the API-key environment variable, spec.md §4.1 step 4
// and §7.
func rewriteForbidden(err error) error {
	if httpErr, ok := err.(*registry.HTTPError); ok && httpErr.StatusCode == 403 {
		return configErrorf("registry denied access (HTTP 403); check CF_API_KEY: %+v", err)
	}
	return err
}
