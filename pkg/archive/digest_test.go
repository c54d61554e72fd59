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

package archive

import (
	"os"
	"path/filepath"
	"testing"

	godigest "github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpack/llmctl/pkg/xattr"
)

func TestDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpt2_11c5a3d.mar")
	require.NoError(t, os.WriteFile(path, []byte("archive"), 0644))

	result, err := Describe(path)
	require.NoError(t, err)
	assert.Equal(t, godigest.FromString("archive"), result.Digest)
	assert.Equal(t, int64(7), result.Size)

	again, err := Describe(path)
	require.NoError(t, err)
	assert.Equal(t, result, again)
}

func TestDescribe_UsesRecordedDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpt2_11c5a3d.mar")
	require.NoError(t, os.WriteFile(path, []byte("archive"), 0644))
	if err := xattr.Set(path, "user.test", []byte("probe")); err != nil {
		t.Skip("Filesystem does not support extended attributes")
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	recorded := godigest.FromString("recorded")
	require.NoError(t, xattr.StoreDigest(path, xattr.Fingerprint{Size: info.Size(), ModTime: info.ModTime().UnixNano()}, recorded.String()))

	result, err := Describe(path)
	require.NoError(t, err)
	assert.Equal(t, recorded, result.Digest)

	_, err = Describe(filepath.Join(t.TempDir(), "missing.mar"))
	assert.Error(t, err)
}
