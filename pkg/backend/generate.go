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
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/internal/cache"
	"github.com/modelpack/llmctl/pkg/archive"
	"github.com/modelpack/llmctl/pkg/archiver"
	"github.com/modelpack/llmctl/pkg/config"
	"github.com/modelpack/llmctl/pkg/errdefs"
	"github.com/modelpack/llmctl/pkg/fileset"
	"github.com/modelpack/llmctl/pkg/hfhub"
	"github.com/modelpack/llmctl/pkg/resolver"
)

// Generate implements Backend.
func (b *backend) Generate(ctx context.Context, cfg *config.Generate) (*archive.Result, error) {
	logrus.Infof("generate: starting [model: %s, path: %s, output: %s, skip download: %t]", cfg.ModelName, cfg.ModelPath, cfg.MarOutput, cfg.SkipDownload)

	if err := errdefs.CheckPath(cfg.ModelPath, "model path", true); err != nil {
		return nil, err
	}

	if err := errdefs.CheckPath(cfg.MarOutput, "mar output", true); err != nil {
		return nil, err
	}

	hub := b.hub
	if hub == nil {
		hub = b.newHub(cfg.Concurrency)
	}

	id, err := resolver.New(b.catalog, hub).Resolve(ctx, resolver.Request{
		ModelName:    cfg.ModelName,
		RepoID:       cfg.RepoID,
		Revision:     cfg.RepoVersion,
		Token:        cfg.HFToken,
		SkipDownload: cfg.SkipDownload,
		ModelPath:    cfg.ModelPath,
		HandlerPath:  cfg.HandlerPath,
	})
	if err != nil {
		return nil, err
	}

	if id.Custom {
		fmt.Fprintf(b.out, "## Generating archive for custom model files: %s\n", cfg.ModelName)
	}

	desc := archive.Descriptor{
		ArchiveID:       archive.Name(id.LogicalName, id.Revision, id.Custom),
		ModelName:       id.LogicalName,
		Revision:        id.Revision,
		SourceModelPath: cfg.ModelPath,
		HandlerPath:     id.HandlerPath,
		OutputDir:       cfg.MarOutput,
	}

	// Skip the download when the archive would not be generated anyway.
	if _, err := os.Stat(desc.Path()); err == nil {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrArchiveAlreadyExists, desc.Path())
	}

	if !cfg.SkipDownload {
		if err := b.download(ctx, hub, id, cfg.ModelPath); err != nil {
			return nil, err
		}
	}

	if !(id.Custom && cfg.SkipDownload) {
		if err := fileset.NewValidator(hub).Validate(ctx, cfg.ModelPath, id.RepoID, id.Revision, id.Token); err != nil {
			return nil, err
		}
	}

	if err := errdefs.CheckPath(id.HandlerPath, "handler", false); err != nil {
		return nil, err
	}

	stager := archive.NewStager(archiver.New(b.runner, b.archiverExecutable), archive.WithDebug(cfg.Debug))
	result, err := stager.StageAndPromote(ctx, desc)
	if err != nil {
		return nil, err
	}

	logrus.Infof("generate: archive ready [model: %s, path: %s, digest: %s]", cfg.ModelName, result.Path, result.Digest)
	return result, nil
}

func (b *backend) download(ctx context.Context, hub hfhub.Hub, id *resolver.ModelIdentity, dir string) error {
	empty, err := fileset.IsEmptyDir(dir)
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("%w: %s", errdefs.ErrModelDirectoryNotEmpty, dir)
	}

	files, err := hub.ListRepoFiles(ctx, id.RepoID, id.Revision, id.Token)
	if err != nil {
		return fmt.Errorf("failed to list repository files: %w", err)
	}

	patterns := fileset.IgnorePatterns(files)
	fmt.Fprintf(b.out, "## Starting model files download from %s@%s\n", id.RepoID, id.Revision)
	if err := hub.SnapshotDownload(ctx, id.RepoID, id.Revision, dir, id.Token, patterns); err != nil {
		return err
	}

	fmt.Fprintf(b.out, "## Successfully downloaded model files\n")
	return nil
}

// newHub creates the default hub client. A broken cache directory only costs the cache.
func (b *backend) newHub(concurrency int) hfhub.Hub {
	opts := []hfhub.Option{hfhub.WithConcurrency(concurrency)}
	if b.cacheDir != "" {
		listings, err := cache.New(b.cacheDir)
		if err != nil {
			logrus.Warnf("backend: hub listing cache disabled: %v", err)
		} else {
			opts = append(opts, hfhub.WithListingCache(listings))
		}
	}

	return hfhub.New(opts...)
}
