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
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockName = ".lock"

// RunLock is an exclusive lock on a run folder.
type RunLock struct {
	flock *flock.Flock
}

// LockRunDir creates dir if needed and locks it for the current process.
func LockRunDir(dir string) (*RunLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run folder: %w", err)
	}

	fl := flock.New(filepath.Join(dir, lockName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock run folder %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("run folder %s is used by another run", dir)
	}

	return &RunLock{flock: fl}, nil
}

// Unlock releases the lock.
func (l *RunLock) Unlock() error {
	return l.flock.Unlock()
}
