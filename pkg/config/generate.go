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

import "fmt"

const (
	defaultGenerateConcurrency = 5
)

type Generate struct {
	ModelName    string
	RepoID       string
	RepoVersion  string
	SkipDownload bool
	ModelPath    string
	MarOutput    string
	HandlerPath  string
	HFToken      string
	Debug        bool
	Concurrency  int
}

func NewGenerate() *Generate {
	return &Generate{
		Concurrency: defaultGenerateConcurrency,
	}
}

func (g *Generate) Validate() error {
	if len(g.ModelName) == 0 {
		return fmt.Errorf("model name is required")
	}

	if len(g.ModelPath) == 0 {
		return fmt.Errorf("model path is required")
	}

	if len(g.MarOutput) == 0 {
		return fmt.Errorf("mar output directory is required")
	}

	if g.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency: %d", g.Concurrency)
	}

	return nil
}
