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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEnviron map[string]string

func (m mapEnviron) Setenv(key, value string) error {
	m[key] = value
	return nil
}

func (m mapEnviron) Unsetenv(key string) error {
	delete(m, key)
	return nil
}

func TestConfigureEnvironment(t *testing.T) {
	env := mapEnviron{"PATH": "/usr/bin"}

	require.NoError(t, ConfigureEnvironment(env, map[string]float64{
		"temperature":        0.5,
		"repetition_penalty": 1.2,
		"top_p":              0.9,
		"max_new_tokens":     200,
	}, "8"))
	assert.Equal(t, mapEnviron{
		"PATH":            "/usr/bin",
		"NAI_TEMPERATURE": "0.5",
		"NAI_REP_PENALTY": "1.2",
		"NAI_TOP_P":       "0.9",
		"NAI_MAX_TOKENS":  "200",
		EnvQuantization:   "8",
	}, env)

	// A model without temperature must not inherit the previous value.
	require.NoError(t, ConfigureEnvironment(env, map[string]float64{"max_new_tokens": 1024}, ""))
	assert.Equal(t, mapEnviron{"PATH": "/usr/bin", "NAI_MAX_TOKENS": "1024"}, env)

	require.NoError(t, ConfigureEnvironment(env, nil, ""))
	assert.Equal(t, mapEnviron{"PATH": "/usr/bin"}, env)
}

func TestConfigureEnvironment_Process(t *testing.T) {
	t.Setenv("NAI_TEMPERATURE", "0.1")

	env := ProcessEnviron{}
	require.NoError(t, ConfigureEnvironment(env, map[string]float64{"top_p": 0.95}, ""))

	_, ok := os.LookupEnv("NAI_TEMPERATURE")
	assert.False(t, ok)
	v, ok := os.LookupEnv("NAI_TOP_P")
	assert.True(t, ok)
	assert.Equal(t, "0.95", v)
	require.NoError(t, env.Unsetenv("NAI_TOP_P"))
}
