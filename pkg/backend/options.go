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
	"io"
	"time"

	"github.com/modelpack/llmctl/internal/poll"
	"github.com/modelpack/llmctl/internal/process"
	"github.com/modelpack/llmctl/pkg/hfhub"
	"github.com/modelpack/llmctl/pkg/inference"
	"github.com/modelpack/llmctl/pkg/server"
)

type Option func(*backend)

// WithHub sets the model hub. By default a hub client is created per generation.
func WithHub(hub hfhub.Hub) Option {
	return func(b *backend) {
		b.hub = hub
	}
}

// WithRunner sets the runner of the archiver and server commands.
func WithRunner(runner process.Runner) Option {
	return func(b *backend) {
		b.runner = runner
	}
}

// WithWorkDir sets the directory holding the run folders.
func WithWorkDir(dir string) Option {
	return func(b *backend) {
		b.workDir = dir
	}
}

// WithCacheDir enables the hub listing cache in dir.
func WithCacheDir(dir string) Option {
	return func(b *backend) {
		b.cacheDir = dir
	}
}

// WithEnviron sets the environment inherited by the server.
func WithEnviron(env server.Environ) Option {
	return func(b *backend) {
		b.env = env
	}
}

// WithOutput sets where inference results and status lines are printed.
func WithOutput(out io.Writer) Option {
	return func(b *backend) {
		b.out = out
	}
}

// WithArchiverExecutable sets the archiver executable.
func WithArchiverExecutable(executable string) Option {
	return func(b *backend) {
		b.archiverExecutable = executable
	}
}

// WithServerExecutable sets the inference server executable.
func WithServerExecutable(executable string) Option {
	return func(b *backend) {
		b.controllerOpts = append(b.controllerOpts, server.WithExecutable(executable))
	}
}

// WithSettleDelay sets the delay waited after server start and stop.
func WithSettleDelay(d time.Duration) Option {
	return func(b *backend) {
		b.controllerOpts = append(b.controllerOpts, server.WithSettleDelay(d))
	}
}

// WithHealthPolicy sets the worker readiness polling policy.
func WithHealthPolicy(policy poll.Policy) Option {
	return func(b *backend) {
		b.controllerOpts = append(b.controllerOpts, server.WithHealthPolicy(policy))
	}
}

// WithServerAddresses sets the inference and management API addresses of the
// server started by Run.
func WithServerAddresses(inferenceAddress, managementAddress string) Option {
	return func(b *backend) {
		b.clientOpts = append(b.clientOpts,
			inference.WithInferenceAddress(inferenceAddress),
			inference.WithManagementAddress(managementAddress),
		)
	}
}
