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

package config

import "fmt"

type Infer struct {
	Server
	ModelName string
	Data      string
	Prompts   []string
	// V2 sends prompts to the versioned structured endpoint.
	V2 bool
}

func NewInfer() *Infer {
	return &Infer{
		Server: Server{
			InferenceAddress:  defaultInferenceAddress,
			ManagementAddress: defaultManagementAddress,
		},
	}
}

func (i *Infer) Validate() error {
	if len(i.ModelName) == 0 {
		return fmt.Errorf("model name is required")
	}

	if len(i.Data) == 0 && len(i.Prompts) == 0 {
		return fmt.Errorf("either data directory or prompt is required")
	}

	if len(i.Data) > 0 && len(i.Prompts) > 0 {
		return fmt.Errorf("data directory and prompt are mutually exclusive")
	}

	if i.V2 && len(i.Prompts) == 0 {
		return fmt.Errorf("v2 inference requires prompt")
	}

	return i.Server.validate()
}
