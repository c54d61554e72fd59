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
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultHandlerName is the handler used for custom models when none is given.
const DefaultHandlerName = "handler.py"

//go:embed model_config.json
var defaultCatalog []byte

// RegistrationParams are the worker settings used when a model is registered with
// the inference server. Zero values mean unset.
type RegistrationParams struct {
	InitialWorkers  int `json:"initial_workers,omitempty" yaml:"initial_workers,omitempty" toml:"initial_workers,omitempty"`
	BatchSize       int `json:"batch_size,omitempty" yaml:"batch_size,omitempty" toml:"batch_size,omitempty"`
	MaxBatchDelay   int `json:"max_batch_delay,omitempty" yaml:"max_batch_delay,omitempty" toml:"max_batch_delay,omitempty"`
	ResponseTimeout int `json:"response_timeout,omitempty" yaml:"response_timeout,omitempty" toml:"response_timeout,omitempty"`
}

// Entry describes one supported model.
type Entry struct {
	// RepoID is the repository id on the model hub, e.g. "meta-llama/Llama-2-7b-hf".
	RepoID string `json:"repo_id" yaml:"repo_id" toml:"repo_id"`
	// RepoVersion is the default pinned revision.
	RepoVersion string `json:"repo_version" yaml:"repo_version" toml:"repo_version"`
	// Handler is the handler file, relative to the catalog directory unless absolute.
	Handler string `json:"handler" yaml:"handler" toml:"handler"`
	// GPUTypes lists the GPU types the model was validated on.
	GPUTypes []string `json:"gpu_type,omitempty" yaml:"gpu_type,omitempty" toml:"gpu_type,omitempty"`
	// ModelParams are the generation parameters (temperature, top_p, ...).
	ModelParams map[string]float64 `json:"model_params,omitempty" yaml:"model_params,omitempty" toml:"model_params,omitempty"`
	// RegistrationParams are the worker settings for registration.
	RegistrationParams RegistrationParams `json:"registration_params" yaml:"registration_params" toml:"registration_params"`
}

// Catalog is a read-only set of supported models.
type Catalog struct {
	baseDir string
	models  map[string]Entry
}

// New creates a catalog from the given entries. Handlers are resolved against baseDir.
func New(baseDir string, models map[string]Entry) *Catalog {
	c := &Catalog{
		baseDir: baseDir,
		models:  make(map[string]Entry, len(models)),
	}

	for name, entry := range models {
		c.models[name] = cloneEntry(entry)
	}

	return c
}

// Load reads a catalog file. The format is chosen by extension: .json, .yaml/.yml or .toml.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	models, err := decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	return New(filepath.Dir(absPath), models), nil
}

// Default returns the catalog embedded in the binary. Handlers are resolved against baseDir.
func Default(baseDir string) (*Catalog, error) {
	models, err := decode(".json", defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedded catalog: %w", err)
	}

	return New(baseDir, models), nil
}

func decode(ext string, data []byte) (map[string]Entry, error) {
	models := map[string]Entry{}
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &models); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &models); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &models); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %q", ext)
	}

	return models, nil
}

// Lookup returns a copy of the entry for the given model name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	entry, ok := c.models[name]
	if !ok {
		return Entry{}, false
	}

	return cloneEntry(entry), true
}

// Names returns the sorted model names.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.models))
}

// BaseDir returns the directory handlers are resolved against.
func (c *Catalog) BaseDir() string {
	return c.baseDir
}

// HandlerPath returns the absolute handler path of the entry.
func (c *Catalog) HandlerPath(entry Entry) string {
	if entry.Handler == "" {
		return c.DefaultHandlerPath()
	}

	if filepath.IsAbs(entry.Handler) {
		return entry.Handler
	}

	return filepath.Join(c.baseDir, entry.Handler)
}

// DefaultHandlerPath returns the handler used for custom models.
func (c *Catalog) DefaultHandlerPath() string {
	return filepath.Join(c.baseDir, DefaultHandlerName)
}

// SupportsGPU reports whether gpuType is listed for the entry. An entry without a
// GPU list supports any type.
func (e Entry) SupportsGPU(gpuType string) bool {
	if len(e.GPUTypes) == 0 {
		return true
	}

	return slices.ContainsFunc(e.GPUTypes, func(t string) bool {
		return strings.EqualFold(t, gpuType)
	})
}

func cloneEntry(e Entry) Entry {
	e.GPUTypes = slices.Clone(e.GPUTypes)
	e.ModelParams = maps.Clone(e.ModelParams)
	return e
}
