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
	"fmt"
	"os"
	"strconv"
)

const (
	EnvLogLocation     = "LOG_LOCATION"
	EnvMetricsLocation = "METRICS_LOCATION"
	EnvQuantization    = "NAI_QUANTIZATION"
)

// GenerationEnv maps generation parameter names to the environment variables
// read by the model handler.
var GenerationEnv = map[string]string{
	"temperature":        "NAI_TEMPERATURE",
	"repetition_penalty": "NAI_REP_PENALTY",
	"top_p":              "NAI_TOP_P",
	"max_new_tokens":     "NAI_MAX_TOKENS",
}

// Environ is the environment inherited by the server process.
type Environ interface {
	Setenv(key, value string) error
	Unsetenv(key string) error
}

// ProcessEnviron is the environment of the current process.
type ProcessEnviron struct{}

func (ProcessEnviron) Setenv(key, value string) error { return os.Setenv(key, value) }

func (ProcessEnviron) Unsetenv(key string) error { return os.Unsetenv(key) }

// ConfigureEnvironment projects the generation parameters of a model into env.
// Every known variable without a parameter is removed, so nothing survives
// from a previously configured model.
func ConfigureEnvironment(env Environ, params map[string]float64, quantizeBits string) error {
	for name, key := range GenerationEnv {
		value, ok := params[name]
		if !ok {
			if err := env.Unsetenv(key); err != nil {
				return fmt.Errorf("failed to unset %s: %w", key, err)
			}
			continue
		}

		if err := env.Setenv(key, strconv.FormatFloat(value, 'f', -1, 64)); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	if quantizeBits == "" {
		return env.Unsetenv(EnvQuantization)
	}

	return env.Setenv(EnvQuantization, quantizeBits)
}

// configureLogEnvironment routes the server logs and metrics to logDir.
func configureLogEnvironment(env Environ, logDir string) error {
	for _, key := range []string{EnvLogLocation, EnvMetricsLocation} {
		if err := env.Setenv(key, logDir); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}
