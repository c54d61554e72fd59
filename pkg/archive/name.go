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

import "path/filepath"

const (
	// RevisionPrefixLen is the number of revision characters kept in an archive id.
	// Revisions sharing this prefix map to the same archive id.
	RevisionPrefixLen = 7

	// Extension is the archive file extension.
	Extension = ".mar"
)

// Name returns the archive id of a model. Custom models use the bare name,
// catalog models append the revision prefix: "gpt2_11c5a3d".
func Name(modelName, revision string, custom bool) string {
	if custom {
		return modelName
	}

	return modelName + "_" + revision[:min(len(revision), RevisionPrefixLen)]
}

// Path returns the archive file path of an archive id inside dir.
func Path(dir, archiveID string) string {
	return filepath.Join(dir, archiveID+Extension)
}
