/*
 *     Copyright 2025 The CNAI Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
)

const (
	// TTL is the time-to-live for cached items.
	TTL = 24 * time.Hour

	// FileLockRetryDelay is the delay between retries when acquiring file locks.
	FileLockRetryDelay = 100 * time.Millisecond
)

// ErrNotFound is returned when an item is not found in the cache.
var ErrNotFound = errors.New("item not found")

// Cache is the interface for caching repository file listings.
type Cache interface {
	// Get retrieves an item from the cache.
	Get(ctx context.Context, key string) (*Item, error)

	// Put inserts or updates an item in the cache.
	Put(ctx context.Context, item *Item) error
}

// Item represents the file listing of one repository revision.
type Item struct {
	// Key identifies the listing, see Key.
	Key string `json:"key"`

	// Files are the repository relative file paths.
	Files []string `json:"files"`

	// CreatedAt is the time when the item was created.
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the cache key of a repository revision.
func Key(repoID, revision string) string {
	return repoID + "@" + revision
}

// cache is the implementation of the Cache interface.
type cache struct {
	// storageDir is the directory where the cache items are stored.
	storageDir string

	// flock is the file lock for the cache file.
	flock *flock.Flock

	now func() time.Time
}

// New creates a new cache instance.
func New(storageDir string) (Cache, error) {
	c := &cache{
		storageDir: storageDir,
		now:        time.Now,
	}

	// Ensure cache directory exists.
	if err := os.MkdirAll(c.storageDir, 0755); err != nil {
		return nil, err
	}

	c.flock = flock.New(c.lockPath())
	return c, nil
}

// storagePath returns the path to the storage cache file.
func (c *cache) storagePath() string {
	return filepath.Join(c.storageDir, "llmctl-hub-cache.json")
}

func (c *cache) lockPath() string {
	return c.storagePath() + ".lock"
}

// readItems reads all items from the cache file without locking.
// The caller must hold the lock.
func (c *cache) readItems() (map[string]*Item, error) {
	data, err := os.ReadFile(c.storagePath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Item), nil
		}
		return nil, err
	}

	if len(data) == 0 {
		return make(map[string]*Item), nil
	}

	var items []*Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}

	itemMap := make(map[string]*Item, len(items))
	for _, item := range items {
		itemMap[item.Key] = item
	}

	return itemMap, nil
}

// writeItems writes items to the cache file without locking.
// The caller must hold the lock.
func (c *cache) writeItems(itemsMap map[string]*Item) error {
	items := make([]*Item, 0, len(itemsMap))
	for _, item := range itemsMap {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b *Item) int {
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})

	data, err := json.Marshal(items)
	if err != nil {
		return err
	}

	tmp := c.storagePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, c.storagePath())
}

func (c *cache) expired(item *Item) bool {
	return c.now().Sub(item.CreatedAt) > TTL
}

// Get retrieves an item from the cache.
func (c *cache) Get(ctx context.Context, key string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := c.flock.TryRLockContext(ctx, FileLockRetryDelay); err != nil {
		return nil, err
	}
	defer c.flock.Unlock()

	items, err := c.readItems()
	if err != nil {
		return nil, err
	}

	item, ok := items[key]
	if !ok || c.expired(item) {
		return nil, ErrNotFound
	}

	return item, nil
}

// Put inserts or updates an item in the cache and prunes expired items.
func (c *cache) Put(ctx context.Context, item *Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.flock.TryLockContext(ctx, FileLockRetryDelay); err != nil {
		return err
	}
	defer c.flock.Unlock()

	itemsMap, err := c.readItems()
	if err != nil {
		return err
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = c.now()
	}
	itemsMap[item.Key] = item

	for key, it := range itemsMap {
		if c.expired(it) {
			delete(itemsMap, key)
		}
	}

	return c.writeItems(itemsMap)
}
