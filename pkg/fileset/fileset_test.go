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

package fileset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/modelpack/llmctl/pkg/errdefs"
	mockhub "github.com/modelpack/llmctl/test/mocks/hfhub"
)

func writeFiles(t *testing.T, dir string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0644))
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "config.json", "sub/deep/tokenizer.json", "model.safetensors")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0755))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"config.json", "sub/deep/tokenizer.json", "model.safetensors"}, files)

	empty, err := IsEmptyDir(filepath.Join(dir, "empty"))
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = ListFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name           string
		local          []string
		remote         []string
		wantMissing    []string
		wantUnexpected []string
	}{
		{
			name:   "exact match in shuffled order",
			local:  []string{"b.json", "a.bin", "c/d.txt"},
			remote: []string{"c/d.txt", "a.bin", "b.json"},
		},
		{
			name:        "one remote file missing locally",
			local:       []string{"a.bin"},
			remote:      []string{"b.json", "a.bin"},
			wantMissing: []string{"b.json"},
		},
		{
			name:           "extra local files are sorted",
			local:          []string{"z.txt", "a.bin", "m.txt"},
			remote:         []string{"a.bin"},
			wantUnexpected: []string{"m.txt", "z.txt"},
		},
		{
			name:        "multiset counts duplicates",
			local:       []string{"a.bin"},
			remote:      []string{"a.bin", "a.bin"},
			wantMissing: []string{"a.bin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := Compare(tt.local, tt.remote)
			assert.Equal(t, len(tt.wantMissing) == 0 && len(tt.wantUnexpected) == 0, diff.Empty())
			if len(tt.wantMissing) > 0 {
				assert.Equal(t, tt.wantMissing, diff.Missing)
			}
			if len(tt.wantUnexpected) > 0 {
				assert.Equal(t, tt.wantUnexpected, diff.Unexpected)
			}
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	remote := []string{"config.json", "model.safetensors", "pytorch_model.bin", "flax_model.msgpack", "tokenizer/vocab.json"}

	tests := []struct {
		name    string
		local   []string
		listErr error
		wantErr error
	}{
		{
			name:  "match after ignore filtering",
			local: []string{"tokenizer/vocab.json", "model.safetensors", "config.json"},
		},
		{
			name:    "missing file",
			local:   []string{"model.safetensors", "config.json"},
			wantErr: errdefs.ErrFileSetMismatch,
		},
		{
			name:    "ignored format present locally",
			local:   []string{"tokenizer/vocab.json", "model.safetensors", "config.json", "pytorch_model.bin"},
			wantErr: errdefs.ErrFileSetMismatch,
		},
		{
			name:    "stray weights of another format",
			local:   []string{"tokenizer/vocab.json", "model.safetensors", "config.json", "stray.bin", "x.onnx"},
			wantErr: errdefs.ErrFileSetMismatch,
		},
		{
			name:    "listing fails",
			listErr: errdefs.ErrMissingCredential,
			wantErr: errdefs.ErrMissingCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.local...)

			hub := mockhub.NewHub(t)
			if tt.listErr != nil {
				hub.On("ListRepoFiles", mock.Anything, "org/model", "abc", "tok").Return(nil, tt.listErr)
			} else {
				hub.On("ListRepoFiles", mock.Anything, "org/model", "abc", "tok").Return(remote, nil)
			}

			err := NewValidator(hub).Validate(context.Background(), dir, "org/model", "abc", "tok")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidator_Validate_ReportsStrayWeights(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "config.json", "model.safetensors", "stray.bin", "x.onnx")

	hub := mockhub.NewHub(t)
	hub.On("ListRepoFiles", mock.Anything, "org/model", "abc", "").
		Return([]string{"config.json", "model.safetensors", "pytorch_model.bin"}, nil)

	err := NewValidator(hub).Validate(context.Background(), dir, "org/model", "abc", "")
	require.ErrorIs(t, err, errdefs.ErrFileSetMismatch)
	assert.Contains(t, err.Error(), "unexpected [stray.bin, x.onnx]")
	assert.Contains(t, err.Error(), "missing []")
}
