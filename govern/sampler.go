// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package govern

import (
	"os"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Usage is one observation of process and system memory.
type Usage struct {
	// SystemPercent is system-wide memory utilization, 0-100.
	SystemPercent float64

	// ProcessRSS is this process's resident set size in bytes.
	ProcessRSS uint64

	// AvailableBytes is system memory still available.
	AvailableBytes uint64

	// TotalBytes is total system memory.
	TotalBytes uint64
}

// Sampler produces memory usage observations. The system sampler reads
// real process and host statistics; tests substitute scripted samplers.
type Sampler interface {
	Sample() (Usage, error)
}

// systemSampler reads memory statistics via gopsutil.
type systemSampler struct {
	proc *process.Process
}

var _ Sampler = (*systemSampler)(nil)

// NewSystemSampler creates a sampler observing this process and its host.
//
// Returns the Sampler interface to enforce abstraction.
func NewSystemSampler() (Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &systemSampler{proc: proc}, nil
}

// Sample reads current system and process memory statistics.
func (s *systemSampler) Sample() (Usage, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Usage{}, err
	}

	usage := Usage{
		SystemPercent:  vm.UsedPercent,
		AvailableBytes: vm.Available,
		TotalBytes:     vm.Total,
	}

	if info, err := s.proc.MemoryInfo(); err == nil {
		usage.ProcessRSS = info.RSS
	}

	return usage, nil
}
