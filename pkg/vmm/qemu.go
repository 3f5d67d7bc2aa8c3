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

const (
	defaultQEMUBinary = "qemu-system-x86_64"
	defaultQEMUMemory = "1G"
)

// QEMU launches guests under qemu with KVM acceleration, loading the
// firmware via -kernel and exposing both disks as modern virtio-blk
// devices.
type QEMU struct {
	// BinaryPath overrides the monitor binary. Defaults to
	// "qemu-system-x86_64" resolved through PATH.
	BinaryPath string
	// Memory is the guest memory size. Defaults to 1G.
	Memory string
}

// Name implements Launcher.
func (q *QEMU) Name() string { return "qemu" }

// Binary implements Launcher.
func (q *QEMU) Binary() string {
	if q.BinaryPath != "" {
		return q.BinaryPath
	}
	return defaultQEMUBinary
}

// Args implements Launcher.
func (q *QEMU) Args(spec LaunchSpec) []string {
	memory := q.Memory
	if memory == "" {
		memory = defaultQEMUMemory
	}

	return []string{
		"-machine", "q35,accel=kvm",
		"-cpu", "host,-vmx",
		"-kernel", spec.FirmwarePath,
		"-display", "none",
		"-nodefaults",
		"-serial", "stdio",
		"-drive",
		fmt.Sprintf("id=os,file=%s,if=none", spec.OSDiskPath),
		"-device", "virtio-blk-pci,drive=os,disable-legacy=on",
		"-drive",
		fmt.Sprintf("id=ci,file=%s,if=none,format=raw", spec.SeedImagePath),
		"-device", "virtio-blk-pci,drive=ci,disable-legacy=on",
		"-m", memory,
		"-netdev",
		fmt.Sprintf(
			"tap,id=net0,ifname=%s,script=no,downscript=no",
			spec.Identity.TapName,
		),
		"-device",
		fmt.Sprintf("virtio-net-pci,netdev=net0,mac=%s", spec.Identity.GuestMAC),
	}
}

// Spawn implements Launcher.
func (q *QEMU) Spawn(_ context.Context, spec LaunchSpec) (*Process, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	return spawn(q.Binary(), q.Args(spec), spec.SerialOutput)
}
