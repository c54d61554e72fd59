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

package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/pkg/errdefs"
)

const (
	// DefaultInferenceAddress is the inference API of a local server.
	DefaultInferenceAddress = "http://localhost:8080"

	// DefaultManagementAddress is the management API of a local server.
	DefaultManagementAddress = "http://localhost:8081"

	// DefaultTimeout bounds inference and status requests.
	DefaultTimeout = 120 * time.Second

	// WorkerReady is the status of a worker able to serve requests.
	WorkerReady = "READY"

	ContentTypeText = "application/text; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
)

// Registration registers an archive with the server. Zero values are left to
// the server defaults.
type Registration struct {
	ModelName string
	// ArchiveLocator is the archive file name in the model store or an URL.
	ArchiveLocator  string
	InitialWorkers  int
	BatchSize       int
	MaxBatchDelay   int
	ResponseTimeout int
}

// Worker is the status of one model worker.
type Worker struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	GPU    bool   `json:"gpu"`
}

// ModelStatus is the management API description of a model version.
type ModelStatus struct {
	ModelName    string   `json:"modelName"`
	ModelVersion string   `json:"modelVersion"`
	BatchSize    int      `json:"batchSize"`
	MinWorkers   int      `json:"minWorkers"`
	MaxWorkers   int      `json:"maxWorkers"`
	Workers      []Worker `json:"workers"`
}

// Client talks to the inference and management APIs of the server.
type Client struct {
	inferenceAddress  string
	managementAddress string
	httpClient        *http.Client
	timeout           time.Duration
}

// Option configures the client.
type Option func(*Client)

func WithInferenceAddress(address string) Option {
	return func(c *Client) {
		c.inferenceAddress = strings.TrimSuffix(address, "/")
	}
}

func WithManagementAddress(address string) Option {
	return func(c *Client) {
		c.managementAddress = strings.TrimSuffix(address, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the timeout of inference and status requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// New creates a client for a local server.
func New(opts ...Option) *Client {
	c := &Client{
		inferenceAddress:  DefaultInferenceAddress,
		managementAddress: DefaultManagementAddress,
		httpClient:        &http.Client{},
		timeout:           DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Ping checks the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.do(ctx, http.MethodGet, c.inferenceAddress+"/ping", "", nil)
	return err
}

// Register registers an archive and waits for its workers to start.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	query := url.Values{}
	query.Set("url", reg.ArchiveLocator)
	if reg.ModelName != "" {
		query.Set("model_name", reg.ModelName)
	}
	setPositive(query, "initial_workers", reg.InitialWorkers)
	setPositive(query, "batch_size", reg.BatchSize)
	setPositive(query, "max_batch_delay", reg.MaxBatchDelay)
	setPositive(query, "response_timeout", reg.ResponseTimeout)
	query.Set("synchronous", "true")

	body, err := c.do(ctx, http.MethodPost, c.managementAddress+"/models?"+query.Encode(), "", nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errdefs.ErrRegistrationFailed, reg.ModelName, err)
	}

	logrus.Infof("inference: registered model [name: %s, archive: %s, response: %s]", reg.ModelName, reg.ArchiveLocator, strings.TrimSpace(string(body)))
	return nil
}

func setPositive(query url.Values, key string, value int) {
	if value > 0 {
		query.Set(key, strconv.Itoa(value))
	}
}

// Unregister removes a model from the server.
func (c *Client) Unregister(ctx context.Context, modelName string) error {
	if _, err := c.do(ctx, http.MethodDelete, c.managementAddress+"/models/"+url.PathEscape(modelName), "", nil); err != nil {
		return fmt.Errorf("failed to unregister model %s: %w", modelName, err)
	}

	logrus.Infof("inference: unregistered model %s", modelName)
	return nil
}

// Describe returns the status of every version of a model.
func (c *Client) Describe(ctx context.Context, modelName string) ([]ModelStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, c.managementAddress+"/models/"+url.PathEscape(modelName), "", nil)
	if err != nil {
		return nil, err
	}

	var status []ModelStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode model status: %w", err)
	}

	return status, nil
}

// WorkersReady reports whether the model has workers and all of them are ready.
func (c *Client) WorkersReady(ctx context.Context, modelName string) (bool, error) {
	status, err := c.Describe(ctx, modelName)
	if err != nil {
		return false, err
	}

	if len(status) == 0 || len(status[0].Workers) == 0 {
		return false, nil
	}

	for _, w := range status[0].Workers {
		if w.Status != WorkerReady {
			return false, nil
		}
	}

	return true, nil
}

// Predict posts a raw payload to the prediction endpoint and returns the response body.
func (c *Client) Predict(ctx context.Context, modelName, contentType string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodPost, c.inferenceAddress+"/predictions/"+url.PathEscape(modelName), contentType, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errdefs.ErrInferenceFailed, modelName, err)
	}

	return body, nil
}

// statusError is a non-200 response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// IsUnreachable reports whether err is a transport failure rather than a server response.
func IsUnreachable(err error) bool {
	var se *statusError
	return err != nil && !errors.As(err, &se)
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	return body, nil
}
