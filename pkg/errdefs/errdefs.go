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

import "errors"

// Errors returned by the archive pipeline and the inference run. Every failure
// is fatal to the current invocation; callers match them with errors.Is.
var (
	// ErrMissingCredential is returned when a gated repository is accessed without a token,
	// or when the hub rejects the supplied token.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidRevision is returned when the revision is not part of the repository history.
	ErrInvalidRevision = errors.New("invalid revision")

	// ErrEmptyModelDirectory is returned when the model directory holds no files.
	ErrEmptyModelDirectory = errors.New("empty model directory")

	// ErrModelDirectoryNotEmpty is returned when a download targets a non-empty directory.
	ErrModelDirectoryNotEmpty = errors.New("model directory not empty")

	// ErrMissingRepositoryID is returned when a custom model download has no repository id.
	ErrMissingRepositoryID = errors.New("missing repository id")

	// ErrInvalidRepositoryID is returned when a repository id or hub URL cannot be parsed.
	ErrInvalidRepositoryID = errors.New("invalid repository id")

	// ErrUnknownModel is returned when a model name is required to be in the catalog but is not.
	ErrUnknownModel = errors.New("unknown model")

	// ErrFileSetMismatch is returned when local model files differ from the remote listing.
	ErrFileSetMismatch = errors.New("file set mismatch")

	// ErrArchiveAlreadyExists is returned when the target archive is already in the store.
	ErrArchiveAlreadyExists = errors.New("archive already exists")

	// ErrArchiveGenerationFailed is returned when the external archiver exits non-zero.
	ErrArchiveGenerationFailed = errors.New("archive generation failed")

	// ErrArchiveOutputMissing is returned when the archiver succeeded without producing the archive.
	ErrArchiveOutputMissing = errors.New("archive output missing")

	// ErrServerStartFailed is returned when the inference server does not start.
	ErrServerStartFailed = errors.New("server start failed")

	// ErrHealthCheckTimeout is returned when workers are not ready before the deadline.
	ErrHealthCheckTimeout = errors.New("health check timeout")

	// ErrRegistrationFailed is returned when the server rejects a registration.
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrInferenceFailed is returned when a prediction request fails.
	ErrInferenceFailed = errors.New("inference failed")

	// ErrUnsupportedGPUType is returned when the requested GPU type is not listed for the model.
	ErrUnsupportedGPUType = errors.New("unsupported gpu type")

	// ErrPathNotFound is returned when a required file or directory does not exist.
	ErrPathNotFound = errors.New("path not found")
)
