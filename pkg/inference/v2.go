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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/modelpack/llmctl/pkg/errdefs"
)

// Tensor is a named input or output of the structured inference protocol.
type Tensor struct {
	Name     string `json:"name"`
	Shape    []int  `json:"shape"`
	Datatype string `json:"datatype"`
	Data     []any  `json:"data"`
}

// InferRequest is a structured inference request.
type InferRequest struct {
	ID     string   `json:"id,omitempty"`
	Inputs []Tensor `json:"inputs"`
}

// InferResponse is a structured inference response.
type InferResponse struct {
	ID           string   `json:"id"`
	ModelName    string   `json:"model_name"`
	ModelVersion string   `json:"model_version"`
	Outputs      []Tensor `json:"outputs"`
}

// NewTextRequest builds a request with one BYTES input per prompt.
func NewTextRequest(prompts ...string) *InferRequest {
	req := &InferRequest{ID: uuid.NewString()}
	for i, p := range prompts {
		req.Inputs = append(req.Inputs, Tensor{
			Name:     fmt.Sprintf("input-%d", i),
			Shape:    []int{1},
			Datatype: "BYTES",
			Data:     []any{p},
		})
	}

	return req
}

// ParseInferRequest decodes a structured request. ok is false when the payload
// is valid JSON without structured inputs.
func ParseInferRequest(payload []byte) (req *InferRequest, ok bool, err error) {
	req = &InferRequest{}
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, false, fmt.Errorf("failed to decode inference request: %w", err)
	}

	return req, len(req.Inputs) > 0, nil
}

// InferV2 posts a structured request. A request without id gets a random one
// and the response must echo it.
func (c *Client) InferV2(ctx context.Context, modelName string, req *InferRequest) (*InferResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodPost, c.inferenceAddress+"/v2/models/"+url.PathEscape(modelName)+"/infer", ContentTypeJSON, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errdefs.ErrInferenceFailed, modelName, err)
	}

	return decodeInferResponse(modelName, req.ID, body)
}

// PredictStructured posts a structured request to the prediction endpoint of a
// handler answering in the structured response shape.
func (c *Client) PredictStructured(ctx context.Context, modelName string, req *InferRequest) (*InferResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	body, err := c.Predict(ctx, modelName, ContentTypeJSON, payload)
	if err != nil {
		return nil, err
	}

	return decodeInferResponse(modelName, req.ID, body)
}

func decodeInferResponse(modelName, id string, body []byte) (*InferResponse, error) {
	var resp InferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to decode response: %w", errdefs.ErrInferenceFailed, modelName, err)
	}

	if resp.ID != id {
		return nil, fmt.Errorf("%w: %s: response id %q does not match request id %q", errdefs.ErrInferenceFailed, modelName, resp.ID, id)
	}

	return &resp, nil
}
