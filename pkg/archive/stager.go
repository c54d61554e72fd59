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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/google/uuid"
	godigest "github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	internalpb "github.com/modelpack/llmctl/internal/pb"
	"github.com/modelpack/llmctl/pkg/archiver"
	"github.com/modelpack/llmctl/pkg/errdefs"
	"github.com/modelpack/llmctl/pkg/fileset"
	"github.com/modelpack/llmctl/pkg/system"
)

const (
	// sizeOverhead inflates the input size to estimate the archive size.
	sizeOverhead = 1.15

	defaultMonitorInterval = time.Second

	promptArchiving = "Archiving"
)

// Descriptor describes the archive to build.
type Descriptor struct {
	// ArchiveID is the archive file name without extension, see Name.
	ArchiveID string
	// ModelName is the logical model name passed to the archiver.
	ModelName string
	// Revision is recorded as the archive version.
	Revision        string
	SourceModelPath string
	HandlerPath     string
	OutputDir       string
}

// Path returns the final archive path.
func (d Descriptor) Path() string {
	return Path(d.OutputDir, d.ArchiveID)
}

// Result is a promoted archive.
type Result struct {
	Path   string
	Digest godigest.Digest
	Size   int64
}

// Archiver builds an archive into args.ExportPath.
type Archiver interface {
	Archive(ctx context.Context, args archiver.Args) ([]byte, error)
}

// Stager builds archives in a private staging directory and moves the result
// into the output directory.
type Stager struct {
	archiver        Archiver
	debug           bool
	monitorInterval time.Duration
	suffix          func() string
}

// StagerOption configures a Stager.
type StagerOption func(*Stager)

// WithDebug surfaces the archiver output in errors.
func WithDebug(debug bool) StagerOption {
	return func(s *Stager) {
		s.debug = debug
	}
}

// WithMonitorInterval sets how often the archive size is sampled for progress.
func WithMonitorInterval(interval time.Duration) StagerOption {
	return func(s *Stager) {
		if interval > 0 {
			s.monitorInterval = interval
		}
	}
}

// NewStager creates a stager.
func NewStager(a Archiver, opts ...StagerOption) *Stager {
	s := &Stager{
		archiver:        a,
		monitorInterval: defaultMonitorInterval,
		suffix: func() string {
			id := uuid.NewString()
			return id[len(id)-5:]
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// StageAndPromote builds the archive of d. It fails with ErrArchiveAlreadyExists
// before touching the file system when the archive is present. The staging
// directory is removed on every path.
func (s *Stager) StageAndPromote(ctx context.Context, d Descriptor) (*Result, error) {
	target := d.Path()
	if _, err := os.Stat(target); err == nil {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrArchiveAlreadyExists, target)
	}

	files, err := fileset.ListFiles(d.SourceModelPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrEmptyModelDirectory, d.SourceModelPath)
	}

	extraFiles := make([]string, 0, len(files))
	var inputSize int64
	for _, f := range files {
		p := filepath.Join(d.SourceModelPath, filepath.FromSlash(f))
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}

		inputSize += info.Size()
		extraFiles = append(extraFiles, p)
	}

	estimated := int64(float64(inputSize) * sizeOverhead)
	if free, err := system.DiskFree(d.OutputDir); err == nil && free < uint64(estimated) {
		logrus.Warnf("stager: low disk space [dir: %s, free: %s, estimated: %s]", d.OutputDir, humanize.IBytes(free), humanize.IBytes(uint64(estimated)))
	}

	staging := filepath.Join(d.OutputDir, fmt.Sprintf("tmp_%s_%s", d.ArchiveID, s.suffix()))
	if err := os.Mkdir(staging, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			logrus.Warnf("stager: failed to remove staging directory %s: %v", staging, err)
		}
	}()

	logrus.Infof("stager: generating archive [id: %s, files: %d, input: %s, staging: %s]", d.ArchiveID, len(files), humanize.IBytes(uint64(inputSize)), staging)
	produced := filepath.Join(staging, d.ModelName+Extension)

	pb := internalpb.NewProgressBar()
	defer pb.Stop()
	pb.Add(internalpb.NormalizePrompt(promptArchiving), d.ArchiveID+Extension, estimated, nil)

	monitorCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.monitor(monitorCtx, pb, produced, d.ArchiveID+Extension)
	}()

	out, err := s.archiver.Archive(ctx, archiver.Args{
		ModelName:  d.ModelName,
		Version:    d.Revision,
		Handler:    d.HandlerPath,
		ExtraFiles: extraFiles,
		ExportPath: staging,
	})
	cancel()
	wg.Wait()

	if err != nil {
		pb.Abort(d.ArchiveID+Extension, errdefs.ErrArchiveGenerationFailed)
		logrus.Errorf("stager: archiver failed [id: %s, err: %v, output: %s]", d.ArchiveID, err, out)
		if s.debug {
			return nil, fmt.Errorf("%w: %s: %v\n%s", errdefs.ErrArchiveGenerationFailed, d.ModelName, err, out)
		}

		return nil, fmt.Errorf("%w: %s", errdefs.ErrArchiveGenerationFailed, d.ModelName)
	}

	if _, err := os.Stat(produced); err != nil {
		pb.Abort(d.ArchiveID+Extension, errdefs.ErrArchiveOutputMissing)
		return nil, fmt.Errorf("%w: %s", errdefs.ErrArchiveOutputMissing, produced)
	}

	if err := os.Rename(produced, target); err != nil {
		pb.Abort(d.ArchiveID+Extension, err)
		return nil, fmt.Errorf("failed to move archive into %s: %w", d.OutputDir, err)
	}

	pb.Complete(d.ArchiveID+Extension, fmt.Sprintf("%s %s", internalpb.NormalizePrompt("Archived"), d.ArchiveID+Extension))

	result, err := Describe(target)
	if err != nil {
		return nil, err
	}

	logrus.Infof("stager: archive generated [path: %s, digest: %s, size: %d]", result.Path, result.Digest, result.Size)
	return result, nil
}

// monitor samples the size of the growing archive until ctx is done.
func (s *Stager) monitor(ctx context.Context, pb *internalpb.ProgressBar, path, name string) {
	ticker := time.NewTicker(s.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if info, err := os.Stat(path); err == nil {
				pb.SetCurrent(name, info.Size())
			}
		}
	}
}
