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

type Cleanup struct {
	GenFolderName string
	// KeepGenFolder only removes the server logs from the run folder.
	KeepGenFolder bool
}

func NewCleanup() *Cleanup {
	return &Cleanup{
		GenFolderName: DefaultGenFolderName,
	}
}

func (c *Cleanup) Validate() error {
	if len(c.GenFolderName) == 0 {
		return fmt.Errorf("gen folder name is required")
	}

	return nil
}
