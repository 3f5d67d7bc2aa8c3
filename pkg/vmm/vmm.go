// Copyright 2025 Alexandre Mahdhaoui
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

// Package vmm launches guest virtual machines under the firmware being
// verified. Each supported monitor gets its own Launcher building the
// monitor-specific command line; the spawned child is handed back as a
// Process that can be killed and reaped exactly once.
package vmm

import (
	"context"
	"errors"
	"io"
	"os/exec"

	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
)

var (
	ErrFirmwareRequired = errors.New("firmware path is required")
	ErrOSDiskRequired   = errors.New("OS disk path is required")
	ErrSeedRequired     = errors.New("seed image path is required")
	ErrSpawnVMM         = errors.New("failed to spawn VMM process")
)

// LaunchSpec describes one guest to boot.
type LaunchSpec struct {
	// FirmwarePath is the firmware binary the monitor loads as its
	// kernel. This is the artifact under test.
	FirmwarePath string
	// OSDiskPath is the guest's root disk image.
	OSDiskPath string
	// SeedImagePath is the cloud-init seed image built for this guest.
	SeedImagePath string
	// Identity binds the guest to its tap device and MAC address.
	Identity netident.Identity

	// SerialOutput receives the guest's serial console when non-nil.
	SerialOutput io.Writer
}

func (s LaunchSpec) validate() error {
	if s.FirmwarePath == "" {
		return ErrFirmwareRequired
	}
	if s.OSDiskPath == "" {
		return ErrOSDiskRequired
	}
	if s.SeedImagePath == "" {
		return ErrSeedRequired
	}
	return nil
}

// Launcher spawns a guest under one monitor variant.
type Launcher interface {
	// Name identifies the monitor variant, e.g. for log records.
	Name() string
	// Binary is the monitor executable Spawn will invoke, honoring any
	// configured override. Callers can preflight it before acquiring
	// resources.
	Binary() string
	// Args builds the full argument list for the spec, without the
	// binary itself.
	Args(spec LaunchSpec) []string
	// Spawn validates the spec and starts the monitor as a child
	// process. The child is not waited on; callers own its lifecycle
	// through the returned Process.
	Spawn(ctx context.Context, spec LaunchSpec) (*Process, error)
}

// spawn starts the monitor binary with the given arguments and wires up
// the serial output. Shared by all launchers.
func spawn(binary string, args []string, serial io.Writer) (*Process, error) {
	cmd := exec.Command(binary, args...)
	if serial != nil {
		cmd.Stdout = serial
		cmd.Stderr = serial
	}

	return startProcess(cmd)
}
