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

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/pkg/config"
	"github.com/modelpack/llmctl/pkg/inference"
	"github.com/modelpack/llmctl/pkg/system"
)

// InferenceOutput is the response to one input.
type InferenceOutput struct {
	// Input is the input file or prompt.
	Input string
	Body  []byte
}

// Register implements Backend.
func (b *backend) Register(ctx context.Context, cfg *config.Register) error {
	client := b.newClient(
		inference.WithInferenceAddress(cfg.InferenceAddress),
		inference.WithManagementAddress(cfg.ManagementAddress),
	)

	workers := cfg.InitialWorkers
	if workers == 0 {
		workers = system.NewDetector(b.runner).WorkerHint(ctx)
		logrus.Debugf("register: using worker hint [model: %s, workers: %d]", cfg.ModelName, workers)
	}

	return client.Register(ctx, inference.Registration{
		ModelName:       cfg.ModelName,
		ArchiveLocator:  cfg.Archive,
		InitialWorkers:  workers,
		BatchSize:       cfg.BatchSize,
		MaxBatchDelay:   cfg.MaxBatchDelay,
		ResponseTimeout: cfg.ResponseTimeout,
	})
}

// Unregister implements Backend.
func (b *backend) Unregister(ctx context.Context, cfg *config.Unregister) error {
	client := b.newClient(
		inference.WithInferenceAddress(cfg.InferenceAddress),
		inference.WithManagementAddress(cfg.ManagementAddress),
	)

	return client.Unregister(ctx, cfg.ModelName)
}

// Infer implements Backend.
func (b *backend) Infer(ctx context.Context, cfg *config.Infer) ([]*InferenceOutput, error) {
	client := b.newClient(
		inference.WithInferenceAddress(cfg.InferenceAddress),
		inference.WithManagementAddress(cfg.ManagementAddress),
	)

	if cfg.Data != "" {
		return b.inferDir(ctx, client, cfg.ModelName, cfg.Data)
	}

	if cfg.V2 {
		resp, err := client.InferV2(ctx, cfg.ModelName, inference.NewTextRequest(cfg.Prompts...))
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(resp)
		if err != nil {
			return nil, err
		}

		return []*InferenceOutput{{Input: strings.Join(cfg.Prompts, "\n"), Body: body}}, nil
	}

	outputs := make([]*InferenceOutput, 0, len(cfg.Prompts))
	for _, prompt := range cfg.Prompts {
		body, err := client.Predict(ctx, cfg.ModelName, inference.ContentTypeText, []byte(prompt))
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, &InferenceOutput{Input: prompt, Body: body})
	}

	return outputs, nil
}

// inferDir runs inference on every .txt and .json file of dir in name order.
func (b *backend) inferDir(ctx context.Context, client *inference.Client, modelName, dir string) ([]*InferenceOutput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input data folder: %w", err)
	}

	var outputs []*InferenceOutput
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		output, err := inferFile(ctx, client, modelName, path)
		if err != nil {
			return nil, err
		}
		if output != nil {
			outputs = append(outputs, output)
		}
	}

	logrus.Infof("infer: %d inputs processed [model: %s, dir: %s]", len(outputs), modelName, dir)
	return outputs, nil
}

// inferFile sends one input file. Files other than .txt and .json are skipped.
func inferFile(ctx context.Context, client *inference.Client, modelName, path string) (*InferenceOutput, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".txt" && ext != ".json" {
		logrus.Debugf("infer: skipping %s", path)
		return nil, nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", path, err)
	}

	if ext == ".txt" {
		body, err := client.Predict(ctx, modelName, inference.ContentTypeText, payload)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", path, err)
		}

		return &InferenceOutput{Input: path, Body: body}, nil
	}

	req, structured, err := inference.ParseInferRequest(payload)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", path, err)
	}

	if !structured {
		body, err := client.Predict(ctx, modelName, inference.ContentTypeJSON, payload)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", path, err)
		}

		return &InferenceOutput{Input: path, Body: body}, nil
	}

	resp, err := client.PredictStructured(ctx, modelName, req)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", path, err)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}

	return &InferenceOutput{Input: path, Body: body}, nil
}

func (b *backend) printOutputs(outputs []*InferenceOutput) {
	for _, o := range outputs {
		fmt.Fprintf(b.out, "## Inference on %s:\n%s\n\n", o.Input, o.Body)
	}
}
