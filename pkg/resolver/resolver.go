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

package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/pkg/catalog"
	"github.com/modelpack/llmctl/pkg/errdefs"
	"github.com/modelpack/llmctl/pkg/fileset"
	"github.com/modelpack/llmctl/pkg/hfhub"
)

const (
	// CustomRevision is the revision of custom models whose files are provided locally.
	CustomRevision = "1.0"

	// latestRef is listed when no revision is pinned.
	latestRef = "main"
)

// DefaultGatedNamespaces are the hub namespaces requiring an access token.
var DefaultGatedNamespaces = []string{"meta-llama"}

var commitHash = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// Request is a model resolution request.
type Request struct {
	ModelName string
	// RepoID overrides the repository of custom models.
	RepoID string
	// Revision overrides the catalog revision.
	Revision string
	Token    string
	// SkipDownload uses files already present in ModelPath.
	SkipDownload bool
	ModelPath    string
	// HandlerPath overrides the catalog handler.
	HandlerPath string
}

// ModelIdentity is a fully resolved model. It is never modified after Resolve.
type ModelIdentity struct {
	LogicalName string
	Custom      bool
	RepoID      string
	Revision    string
	Token       string
	HandlerPath string
}

// CommitLister lists the commits of a repository revision.
type CommitLister interface {
	ListRepoCommits(ctx context.Context, repoID, revision, token string) ([]string, error)
}

// Resolver resolves logical model names.
type Resolver struct {
	catalog         *catalog.Catalog
	hub             CommitLister
	gatedNamespaces []string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGatedNamespaces replaces the namespaces requiring an access token.
func WithGatedNamespaces(namespaces ...string) Option {
	return func(r *Resolver) {
		r.gatedNamespaces = namespaces
	}
}

// New creates a resolver over a read-only catalog.
func New(c *catalog.Catalog, hub CommitLister, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:         c,
		hub:             hub,
		gatedNamespaces: DefaultGatedNamespaces,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve resolves req into a model identity. Catalog models take their
// repository and handler from the catalog, every other name is a custom model.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*ModelIdentity, error) {
	if entry, ok := r.catalog.Lookup(req.ModelName); ok {
		return r.resolveCatalog(ctx, req, entry)
	}

	return r.resolveCustom(ctx, req)
}

func (r *Resolver) resolveCatalog(ctx context.Context, req Request, entry catalog.Entry) (*ModelIdentity, error) {
	id := &ModelIdentity{
		LogicalName: req.ModelName,
		RepoID:      entry.RepoID,
		Revision:    req.Revision,
		Token:       req.Token,
		HandlerPath: req.HandlerPath,
	}
	if id.Revision == "" {
		id.Revision = entry.RepoVersion
	}
	if id.HandlerPath == "" {
		id.HandlerPath = r.catalog.HandlerPath(entry)
	}

	if err := r.checkToken(id.RepoID, id.Token); err != nil {
		return nil, err
	}

	revision, err := r.pin(ctx, id.RepoID, id.Revision, id.Token)
	if err != nil {
		return nil, err
	}

	id.Revision = revision
	logrus.Infof("resolver: resolved catalog model [name: %s, repo: %s, revision: %s]", id.LogicalName, id.RepoID, id.Revision)
	return id, nil
}

func (r *Resolver) resolveCustom(ctx context.Context, req Request) (*ModelIdentity, error) {
	id := &ModelIdentity{
		LogicalName: req.ModelName,
		Custom:      true,
		RepoID:      req.RepoID,
		Revision:    req.Revision,
		Token:       req.Token,
		HandlerPath: req.HandlerPath,
	}
	if id.HandlerPath == "" {
		id.HandlerPath = r.catalog.DefaultHandlerPath()
	}

	if req.SkipDownload {
		empty, err := fileset.IsEmptyDir(req.ModelPath)
		if err != nil {
			return nil, err
		}
		if empty {
			return nil, fmt.Errorf("%w: custom model %s needs its files in %s", errdefs.ErrEmptyModelDirectory, req.ModelName, req.ModelPath)
		}

		if id.Revision == "" {
			id.Revision = CustomRevision
		}

		logrus.Warnf("resolver: using custom model files [name: %s, path: %s], this model has not been validated", req.ModelName, req.ModelPath)
		return id, nil
	}

	if id.RepoID == "" {
		return nil, fmt.Errorf("%w: %s is not a known model, pass --repo_id to download it or use one of: %s",
			errdefs.ErrMissingRepositoryID, req.ModelName, strings.Join(r.catalog.Names(), ", "))
	}

	repoID, err := hfhub.ParseModelURL(id.RepoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrInvalidRepositoryID, err)
	}
	id.RepoID = repoID

	if err := r.checkToken(id.RepoID, id.Token); err != nil {
		return nil, err
	}

	revision, err := r.pin(ctx, id.RepoID, id.Revision, id.Token)
	if err != nil {
		return nil, err
	}

	id.Revision = revision
	logrus.Infof("resolver: resolved custom model [name: %s, repo: %s, revision: %s]", id.LogicalName, id.RepoID, id.Revision)
	return id, nil
}

func (r *Resolver) checkToken(repoID, token string) error {
	if token != "" {
		return nil
	}

	for _, ns := range r.gatedNamespaces {
		if strings.HasPrefix(repoID, ns) {
			return fmt.Errorf("%w: %s requires a hub token, pass it with --hf_token", errdefs.ErrMissingCredential, repoID)
		}
	}

	return nil
}

// pin confirms revision exists in the repository history. An empty revision
// resolves to the latest commit at call time.
func (r *Resolver) pin(ctx context.Context, repoID, revision, token string) (string, error) {
	ref := revision
	if ref == "" {
		ref = latestRef
	}

	commits, err := r.hub.ListRepoCommits(ctx, repoID, ref, token)
	if err != nil {
		if errors.Is(err, errdefs.ErrMissingCredential) || errors.Is(err, errdefs.ErrInvalidRevision) {
			return "", err
		}

		return "", fmt.Errorf("failed to validate revision %s of %s: %w", ref, repoID, err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("%w: %s has no commits at %s", errdefs.ErrInvalidRevision, repoID, ref)
	}

	if revision == "" {
		logrus.Warnf("resolver: no revision pinned for %s, using latest commit %s", repoID, commits[0])
		return commits[0], nil
	}

	if commitHash.MatchString(revision) && !slices.ContainsFunc(commits, func(c string) bool {
		return strings.HasPrefix(c, revision)
	}) {
		return "", fmt.Errorf("%w: %s not found in history of %s", errdefs.ErrInvalidRevision, revision, repoID)
	}

	return revision, nil
}
