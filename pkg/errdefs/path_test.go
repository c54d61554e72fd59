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

package errdefs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "handler.py")
	require.NoError(t, os.WriteFile(file, []byte("pass"), 0644))

	tests := []struct {
		name    string
		path    string
		isDir   bool
		wantErr bool
	}{
		{name: "existing directory", path: dir, isDir: true},
		{name: "existing file", path: file, isDir: false},
		{name: "file checked as directory", path: file, isDir: true, wantErr: true},
		{name: "directory checked as file", path: dir, isDir: false, wantErr: true},
		{name: "missing path", path: filepath.Join(dir, "wrong_model_store"), isDir: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPath(tt.path, "test path", tt.isDir)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			assert.True(t, errors.Is(err, ErrPathNotFound))
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}
