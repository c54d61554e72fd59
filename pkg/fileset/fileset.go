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
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/pkg/errdefs"
)

// ListFiles returns every regular file under dir as a slash separated path
// relative to dir, recursively.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files in %s: %w", dir, err)
	}

	return files, nil
}

// IsEmptyDir reports whether dir has no files at any depth.
func IsEmptyDir(dir string) (bool, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return false, err
	}

	return len(files) == 0, nil
}

// Diff is the difference between a local and a remote file set.
type Diff struct {
	// Missing are remote files absent locally, sorted.
	Missing []string
	// Unexpected are local files absent remotely, sorted.
	Unexpected []string
}

// Empty reports whether both sets are equal.
func (d *Diff) Empty() bool {
	return len(d.Missing) == 0 && len(d.Unexpected) == 0
}

// Compare compares two file sets as multisets, ignoring order.
func Compare(local, remote []string) *Diff {
	counts := make(map[string]int, len(remote))
	for _, f := range remote {
		counts[f]++
	}
	for _, f := range local {
		counts[f]--
	}

	missing := treeset.NewWithStringComparator()
	unexpected := treeset.NewWithStringComparator()
	for f, n := range counts {
		switch {
		case n > 0:
			missing.Add(f)
		case n < 0:
			unexpected.Add(f)
		}
	}

	return &Diff{Missing: toStrings(missing), Unexpected: toStrings(unexpected)}
}

func toStrings(set *treeset.Set) []string {
	values := set.Values()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.(string))
	}

	return out
}

// Lister lists the files of a remote repository revision.
type Lister interface {
	ListRepoFiles(ctx context.Context, repoID, revision, token string) ([]string, error)
}

// Validator checks a local model directory against the remote file listing.
type Validator struct {
	lister Lister
}

func NewValidator(lister Lister) *Validator {
	return &Validator{lister: lister}
}

// Validate fails with ErrFileSetMismatch unless the files under dir equal the
// remote repository files after applying the weight format ignore policy.
// The policy only narrows the remote listing, every local file must be expected.
func (v *Validator) Validate(ctx context.Context, dir, repoID, revision, token string) error {
	remote, err := v.lister.ListRepoFiles(ctx, repoID, revision, token)
	if err != nil {
		return fmt.Errorf("failed to list repository files: %w", err)
	}

	local, err := ListFiles(dir)
	if err != nil {
		return err
	}

	filter, err := NewPathFilter(IgnorePatterns(remote)...)
	if err != nil {
		return err
	}

	logrus.Debugf("fileset: ignoring remote files [patterns: %v]", filter.Patterns())
	diff := Compare(local, filter.Filter(remote))
	if !diff.Empty() {
		logrus.Debugf("fileset: mismatch [dir: %s, missing: %v, unexpected: %v]", dir, diff.Missing, diff.Unexpected)
		return fmt.Errorf("%w: missing [%s], unexpected [%s]", errdefs.ErrFileSetMismatch,
			strings.Join(diff.Missing, ", "), strings.Join(diff.Unexpected, ", "))
	}

	logrus.Debugf("fileset: %d files match %s@%s", len(local), repoID, revision)
	return nil
}
