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

package vmm

import (
	"context"
	"fmt"
)

const defaultCloudHypervisorBinary = "cloud-hypervisor"

// CloudHypervisor launches guests under the cloud-hypervisor monitor,
// which boots the firmware directly via --kernel.
type CloudHypervisor struct {
	// BinaryPath overrides the monitor binary. Defaults to
	// "cloud-hypervisor" resolved through PATH.
	BinaryPath string
}

// Name implements Launcher.
func (c *CloudHypervisor) Name() string { return "cloud-hypervisor" }

// Binary implements Launcher.
func (c *CloudHypervisor) Binary() string {
	if c.BinaryPath != "" {
		return c.BinaryPath
	}
	return defaultCloudHypervisorBinary
}

// Args implements Launcher.
func (c *CloudHypervisor) Args(spec LaunchSpec) []string {
	return []string{
		"--console", "off",
		"--serial", "tty",
		"--kernel", spec.FirmwarePath,
		"--disk",
		fmt.Sprintf("path=%s", spec.OSDiskPath),
		fmt.Sprintf("path=%s", spec.SeedImagePath),
		"--net",
		fmt.Sprintf("tap=%s,mac=%s", spec.Identity.TapName, spec.Identity.GuestMAC),
	}
}

// Spawn implements Launcher.
func (c *CloudHypervisor) Spawn(_ context.Context, spec LaunchSpec) (*Process, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	return spawn(c.Binary(), c.Args(spec), spec.SerialOutput)
}
