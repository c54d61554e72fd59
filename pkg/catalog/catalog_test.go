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

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default("/opt/llm")
	require.NoError(t, err)

	entry, ok := c.Lookup("gpt2")
	require.True(t, ok)
	assert.Equal(t, "gpt2", entry.RepoID)
	assert.Len(t, entry.RepoVersion, 40)
	assert.Equal(t, "/opt/llm/handler.py", c.HandlerPath(entry))
	assert.Contains(t, c.Names(), "llama2_7b")
	assert.IsIncreasing(t, c.Names())
}

func TestLoad(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "model_config.json",
			content: `{"tiny": {"repo_id": "org/tiny", "repo_version": "abc1234", "handler": "h.py",
				"model_params": {"temperature": 0.2}, "registration_params": {"batch_size": 4}}}`,
		},
		{
			name: "yaml",
			file: "model_config.yaml",
			content: `tiny:
  repo_id: org/tiny
  repo_version: abc1234
  handler: h.py
  model_params:
    temperature: 0.2
  registration_params:
    batch_size: 4
`,
		},
		{
			name: "toml",
			file: "model_config.toml",
			content: `[tiny]
repo_id = "org/tiny"
repo_version = "abc1234"
handler = "h.py"

[tiny.model_params]
temperature = 0.2

[tiny.registration_params]
batch_size = 4
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tc.file)
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))

			c, err := Load(path)
			require.NoError(t, err)

			entry, ok := c.Lookup("tiny")
			require.True(t, ok)
			assert.Equal(t, "org/tiny", entry.RepoID)
			assert.Equal(t, "abc1234", entry.RepoVersion)
			assert.Equal(t, 0.2, entry.ModelParams["temperature"])
			assert.Equal(t, 4, entry.RegistrationParams.BatchSize)
			assert.Zero(t, entry.RegistrationParams.InitialWorkers)
			assert.Equal(t, filepath.Join(dir, "h.py"), c.HandlerPath(entry))
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "model_config.ini")
	require.NoError(t, os.WriteFile(ini, []byte("x=1"), 0644))
	_, err = Load(ini)
	assert.ErrorContains(t, err, "unsupported catalog extension")
}

func TestLookup_ReturnsCopy(t *testing.T) {
	c := New("/tmp", map[string]Entry{
		"m": {RepoID: "org/m", ModelParams: map[string]float64{"top_p": 0.9}},
	})

	entry, ok := c.Lookup("m")
	require.True(t, ok)
	entry.ModelParams["top_p"] = 0.1
	delete(entry.ModelParams, "top_p")

	again, _ := c.Lookup("m")
	assert.Equal(t, 0.9, again.ModelParams["top_p"])

	_, ok = c.Lookup("unknown")
	assert.False(t, ok)
}

func TestEntry_SupportsGPU(t *testing.T) {
	entry := Entry{GPUTypes: []string{"A100", "L40"}}
	assert.True(t, entry.SupportsGPU("a100"))
	assert.False(t, entry.SupportsGPU("T4"))
	assert.True(t, Entry{}.SupportsGPU("T4"))
}
