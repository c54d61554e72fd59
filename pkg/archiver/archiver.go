/*
 *     Copyright 2024 The CNAI Authors
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

package archiver

import (
	"context"
	"strings"

	"github.com/modelpack/llmctl/internal/process"
)

// DefaultCommand is the model archiver executable.
const DefaultCommand = "torch-model-archiver"

// Args are the inputs of one archiver invocation.
type Args struct {
	// ModelName is the archive name, the archiver writes <ModelName>.mar.
	ModelName string
	Version   string
	Handler   string
	// ExtraFiles are bundled next to the handler, in order.
	ExtraFiles []string
	ExportPath string
}

// BuildCommand assembles the archiver command line. Empty arguments are
// omitted and the output is always overwritten.
func BuildCommand(executable string, args Args) process.Command {
	var argv []string
	if args.ModelName != "" {
		argv = append(argv, "--model-name", args.ModelName)
	}
	if args.Version != "" {
		argv = append(argv, "--version", args.Version)
	}
	if args.Handler != "" {
		argv = append(argv, "--handler", args.Handler)
	}
	if len(args.ExtraFiles) > 0 {
		argv = append(argv, "--extra-files", strings.Join(args.ExtraFiles, ","))
	}
	if args.ExportPath != "" {
		argv = append(argv, "--export-path", args.ExportPath)
	}

	return process.Command{Name: executable, Args: append(argv, "--force")}
}

// Archiver runs the model archiver.
type Archiver struct {
	runner     process.Runner
	executable string
}

// New creates an archiver. An empty executable selects DefaultCommand.
func New(runner process.Runner, executable string) *Archiver {
	if executable == "" {
		executable = DefaultCommand
	}

	return &Archiver{runner: runner, executable: executable}
}

// Archive runs the archiver and returns its combined output.
func (a *Archiver) Archive(ctx context.Context, args Args) ([]byte, error) {
	return a.runner.Run(ctx, BuildCommand(a.executable, args))
}
