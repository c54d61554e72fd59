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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/internal/poll"
	"github.com/modelpack/llmctl/internal/process"
	"github.com/modelpack/llmctl/pkg/errdefs"
	"github.com/modelpack/llmctl/pkg/inference"
)

const (
	// DefaultCommand is the inference server executable.
	DefaultCommand = "torchserve"

	// DefaultSettleDelay is waited after start and stop commands.
	DefaultSettleDelay = 10 * time.Second

	// DefaultHealthInterval and DefaultHealthTimeout drive worker readiness polling.
	DefaultHealthInterval = 15 * time.Second
	DefaultHealthTimeout  = 1200 * time.Second

	consoleLogName = "ts_console.log"
)

// RuntimeConfig is the configuration of one server run.
type RuntimeConfig struct {
	ModelStore string
	// LogDir receives the server console log, logs and metrics.
	LogDir    string
	LogConfig string
	// ServerConfig is the per run server config, see WriteConfig.
	ServerConfig string
}

// LogFile is the server console log.
func (c RuntimeConfig) LogFile() string {
	return filepath.Join(c.LogDir, consoleLogName)
}

// StatusClient queries a running server.
type StatusClient interface {
	Ping(ctx context.Context) error
	WorkersReady(ctx context.Context, modelName string) (bool, error)
}

// Controller drives the external inference server process.
type Controller struct {
	mu    sync.Mutex
	state State

	runner     process.Runner
	client     StatusClient
	env        Environ
	executable string
	settle     time.Duration
	health     poll.Policy
	debug      bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

func WithExecutable(executable string) ControllerOption {
	return func(c *Controller) {
		if executable != "" {
			c.executable = executable
		}
	}
}

func WithSettleDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.settle = d
	}
}

// WithHealthPolicy overrides the worker readiness polling.
func WithHealthPolicy(policy poll.Policy) ControllerOption {
	return func(c *Controller) {
		c.health = policy
	}
}

func WithEnviron(env Environ) ControllerOption {
	return func(c *Controller) {
		c.env = env
	}
}

// WithDebug surfaces the server command output in errors.
func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) {
		c.debug = debug
	}
}

// NewController creates a controller in the stopped state.
func NewController(runner process.Runner, client StatusClient, opts ...ControllerOption) *Controller {
	c := &Controller{
		state:      StateStopped,
		runner:     runner,
		client:     client,
		env:        ProcessEnviron{},
		executable: DefaultCommand,
		settle:     DefaultSettleDelay,
		health:     poll.Policy{Interval: DefaultHealthInterval, Timeout: DefaultHealthTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Controller) transition(to State, from ...State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(from) > 0 {
		allowed := false
		for _, s := range from {
			if c.state == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("invalid server transition from %s to %s", c.state, to)
		}
	}

	logrus.Debugf("server: %s -> %s", c.state, to)
	c.state = to
	return nil
}

// Start starts the server with cfg and waits the settle delay.
func (c *Controller) Start(ctx context.Context, cfg RuntimeConfig) error {
	if err := c.transition(StateStarting, StateStopped, StateFailed); err != nil {
		return err
	}

	if err := c.start(ctx, cfg); err != nil {
		_ = c.transition(StateFailed)
		return err
	}

	return c.transition(StateRunning)
}

func (c *Controller) start(ctx context.Context, cfg RuntimeConfig) error {
	if err := errdefs.CheckPath(cfg.ModelStore, "model store", true); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	if err := configureLogEnvironment(c.env, cfg.LogDir); err != nil {
		return err
	}

	args := []string{"--start", "--model-store=" + cfg.ModelStore, "--ncs"}
	if cfg.ServerConfig != "" {
		args = append(args, "--ts-config="+cfg.ServerConfig)
	}
	if cfg.LogConfig != "" {
		args = append(args, "--log-config", cfg.LogConfig)
	}

	cmd := process.Command{Name: c.executable, Args: args}
	logrus.Infof("server: starting [cmd: %s, console log: %s]", cmd, cfg.LogFile())

	out, err := c.runner.Run(ctx, cmd)
	appendConsoleLog(cfg.LogFile(), out)
	if err != nil {
		if c.debug {
			return fmt.Errorf("%w: %v\n%s", errdefs.ErrServerStartFailed, err, out)
		}

		return fmt.Errorf("%w: make sure it is not running already: %v", errdefs.ErrServerStartFailed, err)
	}

	return sleep(ctx, c.settle)
}

func appendConsoleLog(path string, out []byte) {
	if len(out) == 0 {
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logrus.Warnf("server: failed to open console log %s: %v", path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(out); err != nil {
		logrus.Warnf("server: failed to write console log %s: %v", path, err)
	}
}

// HealthCheck waits until every worker of the model is ready. Request errors
// count as not ready.
func (c *Controller) HealthCheck(ctx context.Context, modelName string) error {
	err := c.health.Until(ctx, func(ctx context.Context) (bool, error) {
		ready, err := c.client.WorkersReady(ctx, modelName)
		if err != nil {
			logrus.Debugf("server: health check of %s failed: %v", modelName, err)
			return false, nil
		}

		return ready, nil
	})
	if err == nil {
		logrus.Infof("server: health check passed [model: %s]", modelName)
		return nil
	}

	_ = c.transition(StateFailed)
	if errors.Is(err, poll.ErrTimeout) {
		return fmt.Errorf("%w: model %s: %w", errdefs.ErrHealthCheckTimeout, modelName, err)
	}

	return err
}

// Stop stops the server and removes logDir. An unreachable server is already
// stopped.
func (c *Controller) Stop(ctx context.Context, logDir string) error {
	prev := c.State()
	if err := c.transition(StateStopping); err != nil {
		return err
	}

	if err := c.client.Ping(ctx); err != nil && inference.IsUnreachable(err) {
		logrus.Infof("server: not reachable, treating as stopped [err: %v]", err)
	} else {
		cmd := process.Command{Name: c.executable, Args: []string{"--stop"}}
		logrus.Infof("server: stopping [cmd: %s]", cmd)
		if out, err := c.runner.Run(ctx, cmd); err != nil {
			_ = c.transition(StateFailed)
			return fmt.Errorf("failed to stop server (was %s): %w: %s", prev, err, out)
		}

		if err := sleep(ctx, c.settle); err != nil {
			return err
		}
	}

	if logDir != "" {
		if err := os.RemoveAll(logDir); err != nil {
			logrus.Warnf("server: failed to remove logs %s: %v", logDir, err)
		}
	}

	return c.transition(StateStopped)
}

// Session starts the server, runs fn and stops the server again when fn fails,
// panics or stopOnSuccess is set.
func (c *Controller) Session(ctx context.Context, cfg RuntimeConfig, stopOnSuccess bool, fn func(ctx context.Context) error) (err error) {
	succeeded := false
	defer func() {
		if succeeded && !stopOnSuccess {
			return
		}

		if stopErr := c.Stop(context.WithoutCancel(ctx), cfg.LogDir); stopErr != nil {
			logrus.Errorf("server: cleanup failed: %v", stopErr)
			err = errors.Join(err, stopErr)
		}
	}()

	if err := c.Start(ctx, cfg); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		return err
	}

	succeeded = true
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
