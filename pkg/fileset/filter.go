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
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathFilter matches slash separated relative paths against ignore patterns.
// Patterns without a slash are matched against the base name, so "*.bin" also
// ignores "subdir/model.bin".
type PathFilter struct {
	patterns []string
}

func NewPathFilter(patterns ...string) (*PathFilter, error) {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern: %q", p)
		}
		// listed paths never carry a trailing separator
		cleaned = append(cleaned, strings.TrimRight(p, "/"))
	}

	return &PathFilter{patterns: cleaned}, nil
}

// Patterns returns the cleaned patterns.
func (pf *PathFilter) Patterns() []string {
	return pf.patterns
}

func (pf *PathFilter) Match(name string) bool {
	if len(pf.patterns) == 0 {
		return false
	}

	for _, pattern := range pf.patterns {
		target := name
		if !strings.Contains(pattern, "/") {
			target = path.Base(name)
		}

		// The only possible error is ErrBadPattern, checked in NewPathFilter.
		if matched, _ := doublestar.Match(pattern, target); matched {
			return true
		}
	}

	return false
}

// Filter returns the paths not matched by any pattern, keeping their order.
func (pf *PathFilter) Filter(paths []string) []string {
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if !pf.Match(p) {
			kept = append(kept, p)
		}
	}

	return kept
}
