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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/pkg/archive"
	"github.com/modelpack/llmctl/pkg/catalog"
	"github.com/modelpack/llmctl/pkg/config"
	"github.com/modelpack/llmctl/pkg/errdefs"
	"github.com/modelpack/llmctl/pkg/inference"
	"github.com/modelpack/llmctl/pkg/resolver"
	"github.com/modelpack/llmctl/pkg/server"
	"github.com/modelpack/llmctl/pkg/system"
)

const (
	// ServerConfigName is the server config template next to the catalog.
	ServerConfigName = "config.properties"
	// LogConfigName is the server log config next to the catalog.
	LogConfigName = "log4j2.xml"

	logsDirName = "logs"
)

const readyBanner = `
**************************************
*
*
*  Ready For Inferencing
*
*
**************************************
`

// runPlan is everything a run needs before the server is started.
type runPlan struct {
	entry      catalog.Entry
	custom     bool
	revision   string
	archive    string
	workers    int
	runtimeCfg server.RuntimeConfig
}

// Run implements Backend.
func (b *backend) Run(ctx context.Context, cfg *config.Run) (err error) {
	genDir := filepath.Join(b.workDir, cfg.GenFolderName)
	logDir := filepath.Join(genDir, logsDirName)
	client := b.newClient()
	controller := b.newController(client, cfg.Debug)

	lock, err := server.LockRunDir(genDir)
	if err != nil {
		return err
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logrus.Warnf("run: failed to unlock run folder: %v", unlockErr)
		}

		// The run folder only goes once the server it belongs to is stopped.
		if cfg.TSCleanup && (err != nil || cfg.StopServer) {
			if rmErr := os.RemoveAll(genDir); rmErr != nil {
				logrus.Warnf("run: failed to remove run folder %s: %v", genDir, rmErr)
			}
		}
	}()

	// Stop a server left over from a previous run.
	if err := controller.Stop(ctx, logDir); err != nil {
		return err
	}

	plan, err := b.planRun(ctx, cfg, genDir, logDir)
	if err != nil {
		return err
	}

	quantize := ""
	if cfg.QuantizeBits > 0 {
		quantize = strconv.Itoa(cfg.QuantizeBits)
	}
	if err := server.ConfigureEnvironment(b.env, plan.entry.ModelParams, quantize); err != nil {
		return err
	}

	var snapshot *server.SnapshotModel
	if !cfg.RegisterViaAPI {
		snapshot = &server.SnapshotModel{
			ModelName:       cfg.ModelName,
			Version:         plan.revision,
			ArchiveName:     filepath.Base(plan.archive),
			Workers:         plan.workers,
			BatchSize:       plan.entry.RegistrationParams.BatchSize,
			MaxBatchDelay:   plan.entry.RegistrationParams.MaxBatchDelay,
			ResponseTimeout: plan.entry.RegistrationParams.ResponseTimeout,
		}
	}

	template := cfg.ServerConfig
	if template == "" {
		template = filepath.Join(b.catalog.BaseDir(), ServerConfigName)
	}
	if err := errdefs.CheckPath(template, "server config", false); err != nil {
		return err
	}
	if err := server.WriteConfig(template, plan.runtimeCfg.ServerConfig, snapshot); err != nil {
		return err
	}

	return controller.Session(ctx, plan.runtimeCfg, cfg.StopServer, func(ctx context.Context) error {
		if cfg.RegisterViaAPI {
			if err := client.Register(ctx, inference.Registration{
				ModelName:       cfg.ModelName,
				ArchiveLocator:  filepath.Base(plan.archive),
				InitialWorkers:  plan.workers,
				BatchSize:       plan.entry.RegistrationParams.BatchSize,
				MaxBatchDelay:   plan.entry.RegistrationParams.MaxBatchDelay,
				ResponseTimeout: plan.entry.RegistrationParams.ResponseTimeout,
			}); err != nil {
				return err
			}
		}

		if err := controller.HealthCheck(ctx, cfg.ModelName); err != nil {
			return err
		}

		if cfg.Data != "" {
			outputs, err := b.inferDir(ctx, client, cfg.ModelName, cfg.Data)
			if err != nil {
				return err
			}

			b.printOutputs(outputs)
		}

		fmt.Fprint(b.out, readyBanner)
		return nil
	})
}

// planRun validates the run inputs and resolves the archive and worker settings.
func (b *backend) planRun(ctx context.Context, cfg *config.Run, genDir, logDir string) (*runPlan, error) {
	if err := errdefs.CheckPath(cfg.ModelStore, "model store", true); err != nil {
		return nil, err
	}

	plan := &runPlan{}
	entry, ok := b.catalog.Lookup(cfg.ModelName)
	if ok {
		plan.entry = entry
		plan.revision = cfg.RepoVersion
		if plan.revision == "" {
			plan.revision = entry.RepoVersion
		}
	} else {
		plan.custom = true
		plan.revision = cfg.RepoVersion
		if plan.revision == "" {
			plan.revision = resolver.CustomRevision
		}
		fmt.Fprintf(b.out, "## Using custom archive: %s%s\nWARNING: This model has not been validated\n", cfg.ModelName, archive.Extension)
	}

	plan.archive = archive.Path(cfg.ModelStore, archive.Name(cfg.ModelName, plan.revision, plan.custom))
	if err := errdefs.CheckPath(plan.archive, "archive", false); err != nil {
		return nil, err
	}

	if cfg.Debug {
		if result, err := archive.Describe(plan.archive); err == nil {
			logrus.Infof("run: archive [path: %s, digest: %s, size: %d]", result.Path, result.Digest, result.Size)
		}
	}

	if cfg.Data != "" {
		if err := errdefs.CheckPath(cfg.Data, "input data folder", true); err != nil {
			return nil, err
		}
	}

	gpus := system.NewDetector(b.runner).GPUs(ctx)
	if len(gpus) > 0 {
		fmt.Fprintf(b.out, "## Running model on NVIDIA GPU(s)\n## Name of GPU(s): %s\n## Number of GPUs used: %d\n", strings.Join(gpus, ", "), len(gpus))
	} else {
		fmt.Fprintf(b.out, "## Running model on CPU\n")
	}

	if cfg.GPUType != "" && !plan.entry.SupportsGPU(cfg.GPUType) {
		return nil, fmt.Errorf("%w: %s is not validated for %s, supported: %s", errdefs.ErrUnsupportedGPUType,
			cfg.ModelName, cfg.GPUType, strings.Join(plan.entry.GPUTypes, ", "))
	}

	plan.workers = plan.entry.RegistrationParams.InitialWorkers
	if plan.workers == 0 {
		plan.workers = system.WorkerHint(gpus)
	}

	logConfig := cfg.LogConfig
	if logConfig == "" {
		if p := filepath.Join(b.catalog.BaseDir(), LogConfigName); errdefs.CheckPath(p, "log config", false) == nil {
			logConfig = p
		}
	}

	plan.runtimeCfg = server.RuntimeConfig{
		ModelStore:   cfg.ModelStore,
		LogDir:       logDir,
		LogConfig:    logConfig,
		ServerConfig: filepath.Join(genDir, ServerConfigName),
	}

	logrus.Infof("run: planned [model: %s, archive: %s, revision: %s, workers: %d, custom: %t]", cfg.ModelName, plan.archive, plan.revision, plan.workers, plan.custom)
	return plan, nil
}

// Cleanup implements Backend.
func (b *backend) Cleanup(ctx context.Context, cfg *config.Cleanup) error {
	genDir := filepath.Join(b.workDir, cfg.GenFolderName)
	controller := b.newController(b.newClient(), false)

	var errs []error
	if err := controller.Stop(ctx, filepath.Join(genDir, logsDirName)); err != nil {
		errs = append(errs, err)
	}

	if !cfg.KeepGenFolder {
		if err := os.RemoveAll(genDir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove run folder: %w", err))
		}
	}

	return errors.Join(errs...)
}
