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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/internal/cache"
	"github.com/modelpack/llmctl/pkg/errdefs"
)

const (
	// HuggingFaceBaseURL is the default hub endpoint.
	HuggingFaceBaseURL = "https://huggingface.co"

	// DefaultConcurrency is the default number of concurrent file downloads.
	DefaultConcurrency = 5

	// DefaultTimeout bounds every metadata request.
	DefaultTimeout = 30 * time.Second
)

// commitRevision matches a full commit id, the only revisions whose listing is immutable.
var commitRevision = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Hub is the remote model hub.
type Hub interface {
	// ListRepoFiles lists the files of the repository at revision.
	ListRepoFiles(ctx context.Context, repoID, revision, token string) ([]string, error)

	// ListRepoCommits lists the commit ids reachable from revision, newest first.
	ListRepoCommits(ctx context.Context, repoID, revision, token string) ([]string, error)

	// SnapshotDownload downloads the repository at revision into localDir,
	// skipping files matched by ignorePatterns.
	SnapshotDownload(ctx context.Context, repoID, revision, localDir, token string, ignorePatterns []string) error
}

// Client talks to the hub REST API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	concurrency int
	timeout     time.Duration
	listings    cache.Cache
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the hub endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient overrides the http client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithConcurrency sets the number of concurrent file downloads.
func WithConcurrency(concurrency int) Option {
	return func(c *Client) {
		if concurrency > 0 {
			c.concurrency = concurrency
		}
	}
}

// WithTimeout sets the timeout of metadata requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithListingCache caches file listings of full commit revisions.
func WithListingCache(listings cache.Cache) Option {
	return func(c *Client) {
		c.listings = listings
	}
}

// New creates a hub client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:     HuggingFaceBaseURL,
		httpClient:  &http.Client{},
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type repoInfo struct {
	SHA      string `json:"sha"`
	Siblings []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

type commitInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListRepoFiles implements Hub.
func (c *Client) ListRepoFiles(ctx context.Context, repoID, revision, token string) ([]string, error) {
	cacheable := c.listings != nil && commitRevision.MatchString(revision)
	if cacheable {
		item, err := c.listings.Get(ctx, cache.Key(repoID, revision))
		if err == nil {
			logrus.Debugf("hfhub: using cached listing [repo: %s, revision: %s]", repoID, revision)
			return item.Files, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			logrus.Warnf("hfhub: failed to read listing cache: %v", err)
		}
	}

	var info repoInfo
	endpoint := fmt.Sprintf("%s/api/models/%s/revision/%s", c.baseURL, repoID, url.PathEscape(revision))
	if err := c.getJSON(ctx, endpoint, token, &info); err != nil {
		return nil, fmt.Errorf("failed to list files of %s@%s: %w", repoID, revision, err)
	}

	files := make([]string, 0, len(info.Siblings))
	for _, s := range info.Siblings {
		files = append(files, s.RFilename)
	}

	logrus.Debugf("hfhub: listed %d files [repo: %s, revision: %s]", len(files), repoID, revision)
	if cacheable {
		if err := c.listings.Put(ctx, &cache.Item{Key: cache.Key(repoID, revision), Files: files}); err != nil {
			logrus.Warnf("hfhub: failed to update listing cache: %v", err)
		}
	}

	return files, nil
}

// ListRepoCommits implements Hub.
func (c *Client) ListRepoCommits(ctx context.Context, repoID, revision, token string) ([]string, error) {
	var commits []commitInfo
	endpoint := fmt.Sprintf("%s/api/models/%s/commits/%s", c.baseURL, repoID, url.PathEscape(revision))
	if err := c.getJSON(ctx, endpoint, token, &commits); err != nil {
		return nil, fmt.Errorf("failed to list commits of %s@%s: %w", repoID, revision, err)
	}

	ids := make([]string, 0, len(commits))
	for _, commit := range commits {
		ids = append(ids, commit.ID)
	}

	return ids, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, token string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.get(ctx, endpoint, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) get(ctx context.Context, endpoint, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", endpoint, err)
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", errdefs.ErrMissingCredential, resp.StatusCode, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d: %s", errdefs.ErrInvalidRevision, resp.StatusCode, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
}
