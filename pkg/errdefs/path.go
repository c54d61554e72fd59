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

package errdefs

import (
	"fmt"
	"os"
)

// CheckPath verifies that path exists and is a directory (isDir) or a regular file.
// The returned error wraps ErrPathNotFound and names what was being checked.
func CheckPath(path, what string, isDir bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s - %s", ErrPathNotFound, what, path)
	}

	if isDir && !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory - %s", ErrPathNotFound, what, path)
	}

	if !isDir && !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file - %s", ErrPathNotFound, what, path)
	}

	return nil
}
