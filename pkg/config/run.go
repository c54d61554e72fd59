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

package config

import (
	"fmt"
	"path/filepath"
)

const (
	// DefaultGenFolderName is the run folder created under the working directory.
	DefaultGenFolderName = "gen"
)

type Run struct {
	Data           string
	ModelName      string
	RepoVersion    string
	GPUType        string
	GenFolderName  string
	StopServer     bool
	TSCleanup      bool
	Debug          bool
	ModelStore     string
	QuantizeBits   int
	RegisterViaAPI bool
	ServerConfig   string
	LogConfig      string
}

func NewRun() *Run {
	return &Run{
		GenFolderName: DefaultGenFolderName,
	}
}

func (r *Run) Validate() error {
	if len(r.ModelName) == 0 {
		return fmt.Errorf("model name is required")
	}

	if len(r.ModelStore) == 0 {
		return fmt.Errorf("model store directory is required")
	}

	if len(r.GenFolderName) == 0 {
		return fmt.Errorf("gen folder name is required")
	}

	if filepath.Base(r.GenFolderName) != r.GenFolderName {
		return fmt.Errorf("invalid gen folder name: %s", r.GenFolderName)
	}

	if r.QuantizeBits != 0 && r.QuantizeBits != 4 && r.QuantizeBits != 8 {
		return fmt.Errorf("invalid quantize bits: %d", r.QuantizeBits)
	}

	return nil
}
