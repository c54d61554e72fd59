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

package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Command is an external command invocation.
type Command struct {
	// Name is the executable, resolved through PATH.
	Name string
	// Args are the arguments without the executable.
	Args []string
	// Env is appended to the current process environment.
	Env []string
	// Dir is the working directory, the current one when empty.
	Dir string
}

// String renders the command line for logging.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner runs external commands.
type Runner interface {
	// Run runs the command to completion and returns its combined output.
	// A non-zero exit status is reported as an error.
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out

	logrus.Debugf("process: running [cmd: %s, dir: %s]", cmd, cmd.Dir)
	if err := c.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("failed to run %s: %w", cmd.Name, err)
	}

	return out.Bytes(), nil
}
