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

package xattr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeKey(t *testing.T) {
	assert.Equal(t, "user.llmctl", MakeKey("llmctl"))
	assert.Equal(t, "user.llmctl.size", MakeKey(KeySize))
	assert.Equal(t, "user.llmctl.archive.digest", MakeKey("llmctl", "archive", "digest"))
}

// supported skips the test when the filesystem of path has no xattr support.
func supported(t *testing.T, path string) {
	if err := Set(path, "user.test", []byte("probe")); err != nil {
		t.Skip("Filesystem does not support extended attributes")
	}
}

func TestSetAndGet(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test_file")
	require.NoError(t, os.WriteFile(filePath, []byte("test"), 0644))
	supported(t, filePath)

	value := []byte("hello world")
	require.NoError(t, Set(filePath, "user.key", value))

	retrieved, err := Get(filePath, "user.key")
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	_, err = Get(filePath, "user.nonexistent")
	assert.Error(t, err)
}

func TestStoreAndLoadDigest(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "gpt2_11c5a3d.mar")
	require.NoError(t, os.WriteFile(filePath, []byte("archive"), 0644))
	supported(t, filePath)

	fp := Fingerprint{Size: 7, ModTime: 1700000000}
	_, ok := LoadDigest(filePath, fp)
	assert.False(t, ok)

	require.NoError(t, StoreDigest(filePath, fp, "sha256:abc"))

	digest, ok := LoadDigest(filePath, fp)
	assert.True(t, ok)
	assert.Equal(t, "sha256:abc", digest)

	_, ok = LoadDigest(filePath, Fingerprint{Size: 8, ModTime: fp.ModTime})
	assert.False(t, ok, "size change invalidates the digest")

	_, ok = LoadDigest(filePath, Fingerprint{Size: fp.Size, ModTime: fp.ModTime + 1})
	assert.False(t, ok, "mtime change invalidates the digest")
}
