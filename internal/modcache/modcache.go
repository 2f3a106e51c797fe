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

// Package modcache is a small sqlite-backed memo of slug-to-project-ID
// resolutions, following the teacher's MetaCache/pkg.Database pattern of a
// local cache file consulted before a network round trip. The Exclude/Include
// Resolver (spec.md §4.3) and the slug entry point both resolve the same
// slugs repeatedly across runs; this cache lets a repeat install skip the
// search call entirely.
package modcache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"packsync/internal/registry"
)

// Cache wraps a single sqlite database file mapping slug -> project ID.
type Cache struct {
	db *sql.DB
}

// Open creates (if necessary) and opens the cache database at path,
// mirroring the teacher's OpenMetaCache lazy-create-table pattern.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open modcache at %s: %+v", path, err)
	}

	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS slugs(slug TEXT PRIMARY KEY, project_id INTEGER)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize modcache schema: %+v", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying sqlite handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup returns the cached project ID for slug, if any.
func (c *Cache) Lookup(slug string) (id int, found bool, err error) {
	err = c.db.QueryRow("SELECT project_id FROM slugs WHERE slug = ?", slug).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to query modcache for %s: %+v", slug, err)
	}
	return id, true, nil
}

// Store records slug's resolved project ID, overwriting any prior entry.
func (c *Cache) Store(slug string, id int) error {
	_, err := c.db.Exec("INSERT OR REPLACE INTO slugs(slug, project_id) VALUES (?, ?)", slug, id)
	if err != nil {
		return fmt.Errorf("failed to store %s in modcache: %+v", slug, err)
	}
	return nil
}

// cachingClient decorates a registry.Client, satisfying the interface in
// full but memoizing SlugToID lookups through a Cache first.
type cachingClient struct {
	registry.Client
	cache *Cache
	log   *zap.SugaredLogger
}

// Wrap returns a registry.Client that checks cache before delegating
// SlugToID to client, and populates cache with whatever client resolves.
// Every other method passes straight through to client unchanged.
func Wrap(client registry.Client, cache *Cache, log *zap.SugaredLogger) registry.Client {
	return &cachingClient{Client: client, cache: cache, log: log}
}

func (c *cachingClient) SlugToID(categoryInfo registry.CategoryInfo, slug string) (int, error) {
	if id, found, err := c.cache.Lookup(slug); err == nil && found {
		if c.log != nil {
			c.log.Debugf("modcache hit for slug %s -> %d", slug, id)
		}
		return id, nil
	}

	id, err := c.Client.SlugToID(categoryInfo, slug)
	if err != nil {
		return 0, err
	}

	if err := c.cache.Store(slug, id); err != nil && c.log != nil {
		c.log.Warnf("failed to populate modcache for %s: %+v", slug, err)
	}
	return id, nil
}
