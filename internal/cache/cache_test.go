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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutAndGet(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := New(dir)
	require.NoError(t, err)

	_, err = c.Get(ctx, Key("gpt2", "main"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Put(ctx, &Item{Key: Key("gpt2", "11c5a3d"), Files: []string{"config.json", "model.safetensors"}}))

	item, err := c.Get(ctx, "gpt2@11c5a3d")
	require.NoError(t, err)
	assert.Equal(t, []string{"config.json", "model.safetensors"}, item.Files)
	assert.False(t, item.CreatedAt.IsZero())

	// A second instance sees the persisted items.
	other, err := New(dir)
	require.NoError(t, err)
	item, err = other.Get(ctx, "gpt2@11c5a3d")
	require.NoError(t, err)
	assert.Len(t, item.Files, 2)
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := New(t.TempDir())
	require.NoError(t, err)

	now := time.Now()
	impl := c.(*cache)
	impl.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, &Item{Key: "old", Files: []string{"a"}, CreatedAt: now.Add(-TTL - time.Minute)}))
	_, err = c.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Put(ctx, &Item{Key: "new", Files: []string{"b"}}))
	items, err := impl.readItems()
	require.NoError(t, err)
	assert.NotContains(t, items, "old", "expired items are pruned on put")
	assert.Contains(t, items, "new")
}

func TestCache_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "llmctl-hub-cache.json"), []byte("{"), 0644))

	_, err = c.Get(context.Background(), "gpt2@main")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCache_CanceledContext(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Get(ctx, "gpt2@main")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, c.Put(ctx, &Item{Key: "k"}), context.Canceled)
}
