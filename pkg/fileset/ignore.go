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

package fileset

import (
	"path"
	"slices"
)

var (
	// PreferredWeightFormats are the weight serializations in order of preference.
	PreferredWeightFormats = []string{".safetensors", ".bin"}

	// alternateWeightPatterns are dropped whenever a preferred format is present.
	alternateWeightPatterns = []string{"*.pt", "*.h5", "*.gguf", "*.msgpack", "*.tflite", "*.ot", "*.onnx"}
)

// IgnorePatterns computes the ignore patterns for a repository file listing.
// The first preferred weight format present upstream is kept and every other
// weight format is ignored. Without any preferred format nothing is ignored.
func IgnorePatterns(repoFiles []string) []string {
	present := make(map[string]bool, len(PreferredWeightFormats))
	for _, f := range repoFiles {
		present[path.Ext(f)] = true
	}

	for i, format := range PreferredWeightFormats {
		if !present[format] {
			continue
		}

		patterns := make([]string, 0, len(PreferredWeightFormats)+len(alternateWeightPatterns))
		for j, other := range PreferredWeightFormats {
			if j != i {
				patterns = append(patterns, "*"+other)
			}
		}

		return append(patterns, slices.Clone(alternateWeightPatterns)...)
	}

	return nil
}
