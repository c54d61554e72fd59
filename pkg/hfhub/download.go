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

package hfhub

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	internalpb "github.com/modelpack/llmctl/internal/pb"
	"github.com/modelpack/llmctl/pkg/fileset"
)

const (
	promptDownloading = "Downloading"

	// incompleteSuffix marks a file still being downloaded.
	incompleteSuffix = ".incomplete"
)

// ParseModelURL normalizes a hub model URL or short identifier into a repository
// id. Both "owner/repo" and single segment ids such as "gpt2" are accepted.
func ParseModelURL(modelURL string) (string, error) {
	modelURL = strings.TrimSuffix(strings.TrimSpace(modelURL), "/")

	if strings.HasPrefix(modelURL, "http://") || strings.HasPrefix(modelURL, "https://") {
		u, err := url.Parse(modelURL)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}

		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) > 2 {
			// drop trailing segments such as "tree/main"
			parts = parts[:2]
		}

		modelURL = strings.Join(parts, "/")
	}

	parts := strings.Split(modelURL, "/")
	if len(parts) > 2 {
		return "", fmt.Errorf("invalid model identifier %q, expected format: owner/repo", modelURL)
	}

	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid model identifier %q, owner and repository name cannot be empty", modelURL)
		}
	}

	return modelURL, nil
}

// SnapshotDownload implements Hub. Each file is written to a sibling
// ".incomplete" file and renamed once fully downloaded.
func (c *Client) SnapshotDownload(ctx context.Context, repoID, revision, localDir, token string, ignorePatterns []string) error {
	files, err := c.ListRepoFiles(ctx, repoID, revision, token)
	if err != nil {
		return err
	}

	filter, err := fileset.NewPathFilter(ignorePatterns...)
	if err != nil {
		return err
	}

	files = filter.Filter(files)
	logrus.Infof("hfhub: downloading %d files [repo: %s, revision: %s, dir: %s]", len(files), repoID, revision, localDir)

	if err := os.MkdirAll(localDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	pb := internalpb.NewProgressBar()
	defer pb.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, file := range files {
		g.Go(func() error {
			return c.downloadFile(ctx, pb, repoID, revision, file, localDir, token)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to download snapshot of %s@%s: %w", repoID, revision, err)
	}

	return nil
}

func (c *Client) downloadFile(ctx context.Context, pb *internalpb.ProgressBar, repoID, revision, file, localDir, token string) error {
	if !filepath.IsLocal(filepath.FromSlash(file)) {
		return fmt.Errorf("refusing to write file outside of %s: %s", localDir, file)
	}

	segments := strings.Split(file, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	endpoint := fmt.Sprintf("%s/%s/resolve/%s/%s", c.baseURL, repoID, url.PathEscape(revision), strings.Join(segments, "/"))
	resp, err := c.get(ctx, endpoint, token)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", file, err)
	}
	defer resp.Body.Close()

	dest := filepath.Join(localDir, filepath.FromSlash(file))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", file, err)
	}

	tmp := dest + incompleteSuffix
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	reader := pb.Add(internalpb.NormalizePrompt(promptDownloading), file, max(resp.ContentLength, 0), resp.Body)
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		os.Remove(tmp)
		pb.Abort(file, err)
		return fmt.Errorf("failed to write %s: %w", file, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}

	pb.Complete(file, fmt.Sprintf("%s %s", internalpb.NormalizePrompt("Downloaded"), file))
	return nil
}
