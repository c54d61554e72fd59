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
	"fmt"
	"io"
	"os"

	sha256 "github.com/minio/sha256-simd"
	godigest "github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/pkg/xattr"
)

// Describe returns the digest and size of the archive at path. The digest is
// recorded in the file xattrs and reused while size and mtime are unchanged.
func Describe(path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	fp := xattr.Fingerprint{Size: info.Size(), ModTime: info.ModTime().UnixNano()}
	if cached, ok := xattr.LoadDigest(path, fp); ok {
		if digest, err := godigest.Parse(cached); err == nil {
			logrus.Debugf("archive: retrieved digest from xattr for %s [digest: %s]", path, digest)
			return &Result{Path: path, Digest: digest, Size: info.Size()}, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(hash, f)
	if err != nil {
		return nil, fmt.Errorf("failed to copy content to hash: %w", err)
	}

	digest := godigest.NewDigest(godigest.SHA256, hash)
	if err := xattr.StoreDigest(path, fp, digest.String()); err != nil {
		logrus.Debugf("archive: failed to record digest in xattr for %s: %v", path, err)
	}

	return &Result{Path: path, Digest: digest, Size: size}, nil
}
