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

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	defaultBatchSize       = 1
	defaultMaxBatchDelay   = 1
	defaultResponseTimeout = 120
)

// SnapshotModel is the registration of one model in the startup snapshot.
// Zero values take their defaults independently.
type SnapshotModel struct {
	ModelName       string
	Version         string
	ArchiveName     string
	Workers         int
	BatchSize       int
	MaxBatchDelay   int
	ResponseTimeout int
}

type snapshot struct {
	Name       string                                  `json:"name"`
	ModelCount int                                     `json:"modelCount"`
	Models     map[string]map[string]snapshotModelSpec `json:"models"`
}

type snapshotModelSpec struct {
	DefaultVersion  bool   `json:"defaultVersion"`
	MarName         string `json:"marName"`
	MinWorkers      int    `json:"minWorkers"`
	MaxWorkers      int    `json:"maxWorkers"`
	BatchSize       int    `json:"batchSize"`
	MaxBatchDelay   int    `json:"maxBatchDelay"`
	ResponseTimeout int    `json:"responseTimeout"`
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}

	return def
}

// SnapshotLine renders the model_snapshot property registering m at startup.
func SnapshotLine(m SnapshotModel) (string, error) {
	workers := orDefault(m.Workers, 1)
	s := snapshot{
		Name:       "startup.cfg",
		ModelCount: 1,
		Models: map[string]map[string]snapshotModelSpec{
			m.ModelName: {
				m.Version: {
					DefaultVersion:  true,
					MarName:         m.ArchiveName,
					MinWorkers:      workers,
					MaxWorkers:      workers,
					BatchSize:       orDefault(m.BatchSize, defaultBatchSize),
					MaxBatchDelay:   orDefault(m.MaxBatchDelay, defaultMaxBatchDelay),
					ResponseTimeout: orDefault(m.ResponseTimeout, defaultResponseTimeout),
				},
			},
		},
	}

	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode model snapshot: %w", err)
	}

	return "model_snapshot=" + string(data), nil
}

// WriteConfig copies the template server config to dst and, when m is not
// nil, appends the startup snapshot registering it.
func WriteConfig(template, dst string, m *SnapshotModel) error {
	src, err := os.Open(template)
	if err != nil {
		return fmt.Errorf("failed to open server config template: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create server config: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to copy server config: %w", err)
	}

	if m != nil {
		line, err := SnapshotLine(*m)
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintf(out, "\n%s", line); err != nil {
			return fmt.Errorf("failed to append model snapshot: %w", err)
		}
	}

	return out.Close()
}
