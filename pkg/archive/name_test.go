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

package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		revision string
		custom   bool
		expected string
	}{
		{"catalog model", "gpt2", "11c5a3d5811f50298f278a704980280950aedb10", false, "gpt2_11c5a3d"},
		{"custom model ignores revision", "my_model", "11c5a3d5811f50298f278a704980280950aedb10", true, "my_model"},
		{"custom model placeholder revision", "my_model", "1.0", true, "my_model"},
		{"short revision", "gpt2", "v1", false, "gpt2_v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Name(tt.model, tt.revision, tt.custom))
			// repeated calls are stable
			assert.Equal(t, Name(tt.model, tt.revision, tt.custom), Name(tt.model, tt.revision, tt.custom))
		})
	}
}

func TestName_TruncationLength(t *testing.T) {
	id := Name("m", "0123456789abcdef", false)
	assert.Equal(t, "m_0123456", id)
	assert.Len(t, id, len("m_")+RevisionPrefixLen)
}

func TestName_PrefixCollision(t *testing.T) {
	// Revisions sharing the first seven characters name the same archive.
	a := Name("llama2_7b", "94b07a6e30c3292b8265ed32ffdeccfdadf434a8", false)
	b := Name("llama2_7b", "94b07a6ffffffffffffffffffffffffffffffff", false)
	assert.Equal(t, a, b)
}

func TestName_CustomChangesShape(t *testing.T) {
	rev := "11c5a3d5811f50298f278a704980280950aedb10"
	assert.NotEqual(t, Name("gpt2", rev, true), Name("gpt2", rev, false))
	assert.Equal(t, "/mars/gpt2_11c5a3d.mar", Path("/mars", Name("gpt2", rev, false)))
}
