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
	"io"
	"os"
	"slices"

	"github.com/modelpack/llmctl/internal/process"
	"github.com/modelpack/llmctl/pkg/archive"
	"github.com/modelpack/llmctl/pkg/archiver"
	"github.com/modelpack/llmctl/pkg/catalog"
	"github.com/modelpack/llmctl/pkg/config"
	"github.com/modelpack/llmctl/pkg/hfhub"
	"github.com/modelpack/llmctl/pkg/inference"
	"github.com/modelpack/llmctl/pkg/server"
)

// Backend is the interface to represent the backend.
type Backend interface {
	// Generate downloads a model, validates its files and packages it into an archive.
	Generate(ctx context.Context, cfg *config.Generate) (*archive.Result, error)

	// Run starts the inference server with an archive, waits for its workers and
	// runs inference on the input data.
	Run(ctx context.Context, cfg *config.Run) error

	// Cleanup stops the inference server and removes the run folder.
	Cleanup(ctx context.Context, cfg *config.Cleanup) error

	// Register registers an archive with a running inference server.
	Register(ctx context.Context, cfg *config.Register) error

	// Unregister removes a model from a running inference server.
	Unregister(ctx context.Context, cfg *config.Unregister) error

	// Infer sends inference requests to a running inference server.
	Infer(ctx context.Context, cfg *config.Infer) ([]*InferenceOutput, error)
}

// backend is the implementation of Backend.
type backend struct {
	catalog *catalog.Catalog
	hub     hfhub.Hub
	runner  process.Runner
	env     server.Environ
	out     io.Writer

	// workDir holds the run folders.
	workDir string

	// cacheDir holds hub listings, empty disables caching.
	cacheDir string

	archiverExecutable string
	controllerOpts     []server.ControllerOption
	clientOpts         []inference.Option
}

// New creates a new backend over a read-only catalog.
func New(c *catalog.Catalog, opts ...Option) (Backend, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	b := &backend{
		catalog:            c,
		runner:             process.NewExecRunner(),
		env:                server.ProcessEnviron{},
		out:                os.Stdout,
		workDir:            workDir,
		archiverExecutable: archiver.DefaultCommand,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// newClient creates an inference client. opts override the backend defaults.
func (b *backend) newClient(opts ...inference.Option) *inference.Client {
	return inference.New(append(slices.Clone(b.clientOpts), opts...)...)
}

// newController creates a server controller talking to client.
func (b *backend) newController(client server.StatusClient, debug bool) *server.Controller {
	opts := append([]server.ControllerOption{server.WithEnviron(b.env), server.WithDebug(debug)}, b.controllerOpts...)
	return server.NewController(b.runner, client, opts...)
}
