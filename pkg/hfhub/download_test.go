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

package hfhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpack/llmctl/internal/cache"
	internalpb "github.com/modelpack/llmctl/internal/pb"
	"github.com/modelpack/llmctl/pkg/errdefs"
)

func TestParseModelURL(t *testing.T) {
	tests := []struct {
		name        string
		modelURL    string
		want        string
		wantErr     bool
		errContains string
	}{
		{
			name:     "full URL",
			modelURL: "https://huggingface.co/meta-llama/Llama-2-7b-hf",
			want:     "meta-llama/Llama-2-7b-hf",
		},
		{
			name:     "full URL with trailing slash",
			modelURL: "https://huggingface.co/meta-llama/Llama-2-7b-hf/",
			want:     "meta-llama/Llama-2-7b-hf",
		},
		{
			name:     "full URL with tree path",
			modelURL: "https://huggingface.co/tiiuae/falcon-7b/tree/main",
			want:     "tiiuae/falcon-7b",
		},
		{
			name:     "short form",
			modelURL: "meta-llama/Llama-2-7b-hf",
			want:     "meta-llama/Llama-2-7b-hf",
		},
		{
			name:     "single segment",
			modelURL: " gpt2 ",
			want:     "gpt2",
		},
		{
			name:        "too many segments",
			modelURL:    "a/b/c",
			wantErr:     true,
			errContains: "expected format: owner/repo",
		},
		{
			name:        "empty owner",
			modelURL:    "/repo",
			wantErr:     true,
			errContains: "cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModelURL(tt.modelURL)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeHub struct {
	token   string
	commits []string
	files   map[string]string
}

func (f *fakeHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/org/model/revision/{rev}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		if r.PathValue("rev") != "abc1234" {
			http.NotFound(w, r)
			return
		}

		var siblings []string
		for name := range f.files {
			siblings = append(siblings, fmt.Sprintf(`{"rfilename": %q}`, name))
		}
		fmt.Fprintf(w, `{"sha": "abc1234", "siblings": [%s]}`, strings.Join(siblings, ","))
	})
	mux.HandleFunc("/api/models/org/model/commits/{rev}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		if r.PathValue("rev") == "missing" {
			http.NotFound(w, r)
			return
		}

		var commits []string
		for _, id := range f.commits {
			commits = append(commits, fmt.Sprintf(`{"id": %q, "title": "update"}`, id))
		}
		fmt.Fprintf(w, "[%s]", strings.Join(commits, ","))
	})
	mux.HandleFunc("/org/model/resolve/abc1234/{file...}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		content, ok := f.files[r.PathValue("file")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, content)
	})

	return mux
}

func (f *fakeHub) authorized(w http.ResponseWriter, r *http.Request) bool {
	if f.token == "" || r.Header.Get("Authorization") == "Bearer "+f.token {
		return true
	}

	http.Error(w, "Access to model org/model is restricted", http.StatusUnauthorized)
	return false
}

func newTestClient(t *testing.T, hub *fakeHub) *Client {
	server := httptest.NewServer(hub.handler(t))
	t.Cleanup(server.Close)

	return New(WithBaseURL(server.URL+"/"), WithConcurrency(2))
}

func TestClient_ListRepoFiles(t *testing.T) {
	client := newTestClient(t, &fakeHub{
		token: "secret",
		files: map[string]string{"config.json": "{}", "model.safetensors": "weights"},
	})

	files, err := client.ListRepoFiles(context.Background(), "org/model", "abc1234", "secret")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"config.json", "model.safetensors"}, files)

	_, err = client.ListRepoFiles(context.Background(), "org/model", "abc1234", "")
	assert.True(t, errors.Is(err, errdefs.ErrMissingCredential), "got %v", err)

	_, err = client.ListRepoFiles(context.Background(), "org/model", "deadbee", "secret")
	assert.True(t, errors.Is(err, errdefs.ErrInvalidRevision), "got %v", err)
}

func TestClient_ListRepoCommits(t *testing.T) {
	client := newTestClient(t, &fakeHub{commits: []string{"abc1234ffff", "0123456aaaa"}})

	commits, err := client.ListRepoCommits(context.Background(), "org/model", "main", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc1234ffff", "0123456aaaa"}, commits)

	_, err = client.ListRepoCommits(context.Background(), "org/model", "missing", "")
	assert.True(t, errors.Is(err, errdefs.ErrInvalidRevision), "got %v", err)
}

func TestClient_SnapshotDownload(t *testing.T) {
	internalpb.SetDisableProgress(true)
	t.Cleanup(func() { internalpb.SetDisableProgress(false) })

	client := newTestClient(t, &fakeHub{
		files: map[string]string{
			"config.json":          `{"model_type": "gpt2"}`,
			"model.safetensors":    "safetensors weights",
			"pytorch_model.bin":    "bin weights",
			"tokenizer/vocab.json": `{"a": 1}`,
		},
	})

	dir := filepath.Join(t.TempDir(), "model")
	err := client.SnapshotDownload(context.Background(), "org/model", "abc1234", dir, "", []string{"*.bin"})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "tokenizer", "vocab.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(content))

	assert.FileExists(t, filepath.Join(dir, "model.safetensors"))
	assert.NoFileExists(t, filepath.Join(dir, "pytorch_model.bin"))
	assert.NoFileExists(t, filepath.Join(dir, "model.safetensors"+incompleteSuffix))
}

func TestClient_ListRepoFiles_Cache(t *testing.T) {
	const commit = "11c5a3d5811f50298f278a704980280950aedb10"

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `{"sha": "11c5a3d5811f50298f278a704980280950aedb10", "siblings": [{"rfilename": "config.json"}]}`)
	}))
	t.Cleanup(server.Close)

	listings, err := cache.New(t.TempDir())
	require.NoError(t, err)
	client := New(WithBaseURL(server.URL), WithListingCache(listings))

	for range 2 {
		files, err := client.ListRepoFiles(context.Background(), "gpt2", commit, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"config.json"}, files)
	}
	assert.Equal(t, int32(1), requests.Load(), "commit listings are served from the cache")

	for range 2 {
		_, err := client.ListRepoFiles(context.Background(), "gpt2", "main", "")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), requests.Load(), "branch listings are never cached")
}
