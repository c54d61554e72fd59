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

import (
	"fmt"
	"net/url"
)

const (
	defaultInferenceAddress  = "http://localhost:8080"
	defaultManagementAddress = "http://localhost:8081"
)

// Server holds the addresses of a running inference server.
type Server struct {
	InferenceAddress  string
	ManagementAddress string
}

func (s *Server) validate() error {
	for _, addr := range []string{s.InferenceAddress, s.ManagementAddress} {
		u, err := url.Parse(addr)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid server address: %q", addr)
		}
	}

	return nil
}

type Register struct {
	Server
	ModelName       string
	Archive         string
	InitialWorkers  int
	BatchSize       int
	MaxBatchDelay   int
	ResponseTimeout int
}

func NewRegister() *Register {
	return &Register{
		Server: Server{
			InferenceAddress:  defaultInferenceAddress,
			ManagementAddress: defaultManagementAddress,
		},
	}
}

func (r *Register) Validate() error {
	if len(r.ModelName) == 0 {
		return fmt.Errorf("model name is required")
	}

	if len(r.Archive) == 0 {
		return fmt.Errorf("archive is required")
	}

	if r.InitialWorkers < 0 || r.BatchSize < 0 || r.MaxBatchDelay < 0 || r.ResponseTimeout < 0 {
		return fmt.Errorf("registration parameters must not be negative")
	}

	return r.Server.validate()
}

type Unregister struct {
	Server
	ModelName string
}

func NewUnregister() *Unregister {
	return &Unregister{
		Server: Server{
			InferenceAddress:  defaultInferenceAddress,
			ManagementAddress: defaultManagementAddress,
		},
	}
}

func (u *Unregister) Validate() error {
	if len(u.ModelName) == 0 {
		return fmt.Errorf("model name is required")
	}

	return u.Server.validate()
}
