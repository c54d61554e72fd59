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

package xattr

import (
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	// Prefix for all xattr keys to ensure compatibility across platforms.
	// Linux requires "user." prefix for user-space xattrs, while macOS allows any key.
	Prefix = "user."

	// Common xattr keys.
	KeySize   = "llmctl.size"
	KeyMtime  = "llmctl.mtime"
	KeySha256 = "llmctl.sha256"
)

// Get retrieves an xattr value for a given key.
func Get(path, key string) ([]byte, error) {
	var value []byte
	sz, err := unix.Getxattr(path, key, value)
	if err != nil {
		return nil, err
	}

	value = make([]byte, sz)
	_, err = unix.Getxattr(path, key, value)
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set sets an xattr value for a given key.
func Set(path, key string, value []byte) error {
	return unix.Setxattr(path, key, value, 0)
}

// MakeKey creates a fully-qualified xattr key with the user prefix.
func MakeKey(parts ...string) string {
	return Prefix + strings.Join(parts, ".")
}

// Fingerprint identifies the content of a file whose digest was recorded.
type Fingerprint struct {
	Size    int64
	ModTime int64
}

// LoadDigest returns the digest recorded on path when the file still matches fp.
func LoadDigest(path string, fp Fingerprint) (string, bool) {
	size, err := Get(path, MakeKey(KeySize))
	if err != nil || string(size) != strconv.FormatInt(fp.Size, 10) {
		return "", false
	}

	mtime, err := Get(path, MakeKey(KeyMtime))
	if err != nil || string(mtime) != strconv.FormatInt(fp.ModTime, 10) {
		return "", false
	}

	digest, err := Get(path, MakeKey(KeySha256))
	if err != nil || len(digest) == 0 {
		return "", false
	}

	return string(digest), true
}

// StoreDigest records digest and fp on path. The digest is written last so a
// partial write never validates.
func StoreDigest(path string, fp Fingerprint, digest string) error {
	if err := Set(path, MakeKey(KeySize), []byte(strconv.FormatInt(fp.Size, 10))); err != nil {
		return err
	}

	if err := Set(path, MakeKey(KeyMtime), []byte(strconv.FormatInt(fp.ModTime, 10))); err != nil {
		return err
	}

	return Set(path, MakeKey(KeySha256), []byte(digest))
}
