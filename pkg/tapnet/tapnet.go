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

// Package tapnet manages the host-side tap device backing one guest's
// network. All operations shell out to the ip command and need
// administrative network privilege, usually granted through a sudo
// exec context.
package tapnet

import (
	"context"
	"errors"
	"strings"

	"github.com/alexandremahdhaoui/bootprobe/pkg/hostexec"
	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
)

var (
	ErrTapNameRequired = errors.New("tap device name is required")
	ErrCreateTap       = errors.New("failed to create tap device")
	ErrAddTapIP        = errors.New("failed to add IP address to tap device")
	ErrBringTapUp      = errors.New("failed to bring tap device up")
	ErrDeleteTap       = errors.New("failed to delete tap device")
	ErrCheckTapExists  = errors.New("failed to check if tap device exists")
)

type runFunc func(
	ctx context.Context,
	execCtx hostexec.Context,
	name string,
	args ...string,
) (hostexec.Result, error)

// Manager creates and deletes tap devices.
type Manager struct {
	execCtx hostexec.Context
	run     runFunc
}

// NewManager creates a Manager executing ip through execCtx. Pass
// hostexec.Sudo() when not running as root.
func NewManager(execCtx hostexec.Context) *Manager {
	return &Manager{
		execCtx: execCtx,
		run:     hostexec.Run,
	}
}

// BringUp creates the identity's tap device, assigns the host address and
// sets the device up. The three steps are separate privileged commands;
// if a later step fails the device created by the first one is deleted
// again so nothing leaks.
func (m *Manager) BringUp(ctx context.Context, id netident.Identity) error {
	if id.TapName == "" {
		return ErrTapNameRequired
	}

	if _, err := m.run(ctx, m.execCtx,
		"ip", "tuntap", "add", "name", id.TapName, "mode", "tap",
	); err != nil {
		return errors.Join(err, ErrCreateTap)
	}

	if _, err := m.run(ctx, m.execCtx,
		"ip", "addr", "add", id.HostCIDR(), "dev", id.TapName,
	); err != nil {
		_ = m.deleteTap(ctx, id.TapName)
		return errors.Join(err, ErrAddTapIP)
	}

	if _, err := m.run(ctx, m.execCtx,
		"ip", "link", "set", id.TapName, "up",
	); err != nil {
		_ = m.deleteTap(ctx, id.TapName)
		return errors.Join(err, ErrBringTapUp)
	}

	return nil
}

// TearDown deletes the tap device by name. Idempotent: a device that does
// not exist (or was never created because BringUp failed early) is not an
// error.
func (m *Manager) TearDown(ctx context.Context, name string) error {
	if name == "" {
		return ErrTapNameRequired
	}

	exists, err := m.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	return m.deleteTap(ctx, name)
}

// deleteTap performs the actual deletion without existence check.
func (m *Manager) deleteTap(ctx context.Context, name string) error {
	if _, err := m.run(ctx, m.execCtx,
		"ip", "link", "delete", name,
	); err != nil {
		return errors.Join(err, ErrDeleteTap)
	}
	return nil
}

// Exists reports whether a link with the given name is present.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, ErrTapNameRequired
	}

	res, err := m.run(ctx, m.execCtx, "ip", "link", "show", name)
	if err != nil {
		// ip exits non-zero with a "does not exist" message for unknown
		// devices; that is the expected negative answer, not a failure.
		if strings.Contains(string(res.Output), "does not exist") ||
			strings.Contains(err.Error(), "does not exist") {
			return false, nil
		}
		return false, errors.Join(err, ErrCheckTapExists)
	}

	return true, nil
}
