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

package system

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"

	"github.com/modelpack/llmctl/internal/process"
)

// gpuLine matches one line of `nvidia-smi -L`, e.g.
// "GPU 0: NVIDIA A100-SXM4-40GB (UUID: GPU-...)".
var gpuLine = regexp.MustCompile(`^GPU \d+: (.+?)(?: \(UUID: .*\))?$`)

// Detector inspects the local machine.
type Detector struct {
	runner process.Runner
}

// NewDetector creates a detector running external tools through runner.
func NewDetector(runner process.Runner) *Detector {
	return &Detector{runner: runner}
}

// GPUs lists the NVIDIA GPU names. Machines without nvidia-smi have none.
func (d *Detector) GPUs(ctx context.Context) []string {
	out, err := d.runner.Run(ctx, process.Command{Name: "nvidia-smi", Args: []string{"-L"}})
	if err != nil {
		logrus.Debugf("system: no NVIDIA GPU detected: %v", err)
		return nil
	}

	var gpus []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if m := gpuLine.FindStringSubmatch(strings.TrimSpace(scanner.Text())); m != nil {
			gpus = append(gpus, m[1])
		}
	}

	return gpus
}

// WorkerHint is the default worker count for a model: one per GPU, one on CPU.
func (d *Detector) WorkerHint(ctx context.Context) int {
	return WorkerHint(d.GPUs(ctx))
}

// WorkerHint returns the worker count for already detected gpus.
func WorkerHint(gpus []string) int {
	return max(len(gpus), 1)
}

// DiskFree returns the free bytes of the file system holding path.
func DiskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get disk usage of %s: %w", path, err)
	}

	return usage.Free, nil
}

// Describe returns a one line summary of the host for logging.
func Describe(ctx context.Context) string {
	var parts []string
	if info, err := host.InfoWithContext(ctx); err == nil {
		parts = append(parts, fmt.Sprintf("os: %s, platform: %s %s", info.OS, info.Platform, info.PlatformVersion))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		parts = append(parts, fmt.Sprintf("memory: %d/%d MiB available", vm.Available>>20, vm.Total>>20))
	}

	return strings.Join(parts, ", ")
}
