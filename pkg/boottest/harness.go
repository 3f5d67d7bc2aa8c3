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

// Package boottest orchestrates boot-verification runs: per scenario it
// generates a guest network identity, seeds a first-boot image, stages a
// private copy of the reference OS disk, brings up the tap device,
// spawns the monitor under test, probes for guest readiness over SSH and
// issues a remote shutdown. Every acquired resource is released on every
// exit path.
package boottest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alexandremahdhaoui/bootprobe/pkg/hostexec"
	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
	"github.com/alexandremahdhaoui/bootprobe/pkg/seed"
	"github.com/alexandremahdhaoui/bootprobe/pkg/tapnet"
	"github.com/alexandremahdhaoui/bootprobe/pkg/vmm"
	"github.com/google/uuid"

	utilssh "github.com/alexandremahdhaoui/bootprobe/internal/util/ssh"
)

// Defaults matching the guest images the suite ships scenarios for.
const (
	DefaultBootDelay       = 20 * time.Second
	DefaultProbeAttempts   = 6
	DefaultProbeBackoff    = 10 * time.Second
	DefaultShutdownCommand = "sudo shutdown -h now"

	guestSSHPort = "22"

	// firstIdentityCounter leaves 192.168.0-5.0/24 to manually configured
	// host networks.
	firstIdentityCounter = 6
)

var (
	ErrFirmwareUnset = errors.New("firmware path is not configured")
	ErrWorkDir       = errors.New("failed to create run work directory")
	ErrStageOSDisk   = errors.New("failed to stage OS disk")
	ErrPreflight     = errors.New("preflight tool check failed")
)

// Config carries the harness-wide settings shared by all scenarios.
type Config struct {
	// WorkloadsDir holds the reference OS images scenarios name.
	WorkloadsDir string
	// ResourcesDir holds the cloud-init template trees.
	ResourcesDir string
	// FirmwarePath is the firmware binary under test. A scenario may
	// override it.
	FirmwarePath string

	// BootDelay is the settling time between monitor spawn and the first
	// readiness probe. Defaults to 20s.
	BootDelay time.Duration
	// ProbeAttempts is the readiness probe budget. Defaults to 6.
	ProbeAttempts uint
	// ProbeBackoff is the linear backoff base between probe attempts.
	// Defaults to 10s.
	ProbeBackoff time.Duration
	// ShutdownCommand is the remote command proving guest readiness.
	// Defaults to "sudo shutdown -h now".
	ShutdownCommand string
}

func (c Config) withDefaults() Config {
	if c.BootDelay == 0 {
		c.BootDelay = DefaultBootDelay
	}
	if c.ProbeAttempts == 0 {
		c.ProbeAttempts = DefaultProbeAttempts
	}
	if c.ProbeBackoff == 0 {
		c.ProbeBackoff = DefaultProbeBackoff
	}
	if c.ShutdownCommand == "" {
		c.ShutdownCommand = DefaultShutdownCommand
	}
	return c
}

// Narrow views of the collaborators, so scenario-flow tests can swap in
// fakes without external tools or privileges.
type (
	identitySource interface {
		Next() netident.Identity
	}

	tapManager interface {
		BringUp(ctx context.Context, id netident.Identity) error
		TearDown(ctx context.Context, name string) error
	}

	guestProcess interface {
		PID() int
		Terminate() error
		Wait(ctx context.Context) error
	}

	prober interface {
		RunWithRetry(
			ctx context.Context,
			command string,
			maxAttempts uint,
			baseBackoff time.Duration,
		) (string, error)
	}
)

// Harness runs boot-test scenarios.
type Harness struct {
	cfg Config

	identities identitySource
	tap        tapManager
	builders   map[string]seed.Builder
	launchers  map[string]vmm.Launcher

	spawn     func(ctx context.Context, l vmm.Launcher, spec vmm.LaunchSpec) (guestProcess, error)
	newProber func(host string) prober
	sleep     func(ctx context.Context, d time.Duration) error
	preflight func(tools ...string) error
}

// New creates a Harness with real collaborators. Privileged ip commands
// go through sudo unless the process already runs as root.
func New(cfg Config) *Harness {
	cfg = cfg.withDefaults()

	var execCtx hostexec.Context
	if os.Geteuid() != 0 {
		execCtx = hostexec.Sudo()
	}

	return &Harness{
		cfg:        cfg,
		identities: netident.NewGenerator(firstIdentityCounter),
		tap:        tapnet.NewManager(execCtx),
		builders: map[string]seed.Builder{
			DistroUbuntu: seed.NewUbuntu(cfg.ResourcesDir),
			DistroClear:  seed.NewClear(cfg.ResourcesDir),
		},
		launchers: map[string]vmm.Launcher{
			VMMQEMU:            &vmm.QEMU{},
			VMMCloudHypervisor: &vmm.CloudHypervisor{},
		},
		spawn: func(ctx context.Context, l vmm.Launcher, spec vmm.LaunchSpec) (guestProcess, error) {
			return l.Spawn(ctx, spec)
		},
		newProber: func(host string) prober {
			return utilssh.NewClient(host, guestSSHPort, seed.GuestUser, seed.GuestPassword)
		},
		sleep:     sleepCtx,
		preflight: hostexec.LookupTools,
	}
}

// Run executes one scenario end to end and always returns a Report; a
// failed run is reported, not returned as an error. Teardown runs on
// every exit path and its outcome is reported separately.
func (h *Harness) Run(ctx context.Context, sc Scenario) Report {
	start := time.Now()
	rep := Report{
		Scenario: sc.Name,
		RunID:    uuid.NewString(),
		VMM:      sc.VMM,
		Distro:   sc.Distro,
		Stage:    StageCreated,
	}

	cleanup := &cleanupStack{}
	rep.Err = h.runStages(ctx, sc, &rep, cleanup)
	rep.TeardownErr = cleanup.run()
	rep.Duration = time.Since(start)

	observeReport(rep)
	return rep
}

func (h *Harness) runStages(
	ctx context.Context,
	sc Scenario,
	rep *Report,
	cleanup *cleanupStack,
) error {
	if err := sc.validate(); err != nil {
		return err
	}

	firmware := sc.Firmware
	if firmware == "" {
		firmware = h.cfg.FirmwarePath
	}
	if firmware == "" {
		return ErrFirmwareUnset
	}

	// The monitor binary is checked up front so a missing VMM fails fast,
	// before any privileged resources are acquired.
	launcher := h.launchers[sc.VMM]
	if err := h.preflight("mkdosfs", "mcopy", "ip", launcher.Binary()); err != nil {
		return errors.Join(err, ErrPreflight)
	}

	log := slog.With("scenario", sc.Name, "run_id", rep.RunID, "vmm", sc.VMM)

	workDir, err := os.MkdirTemp("", "bootprobe-")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkDir, err)
	}
	cleanup.push(func() error { return os.RemoveAll(workDir) })

	id := h.identities.Next()
	rep.Stage = StageNetworkPrepared
	log.Info("network identity generated",
		"tap", id.TapName, "guest_ip", id.GuestIP, "mac", id.GuestMAC)

	seedPath, err := h.builders[sc.Distro].Prepare(ctx, workDir, id)
	if err != nil {
		return err
	}
	rep.Stage = StageImageSeeded

	osDisk, err := stageOSDisk(workDir, filepath.Join(h.cfg.WorkloadsDir, sc.Image))
	if err != nil {
		return err
	}
	rep.Stage = StageOSDiskStaged

	if err := h.tap.BringUp(ctx, id); err != nil {
		return err
	}
	cleanup.push(func() error { return h.tap.TearDown(context.WithoutCancel(ctx), id.TapName) })
	rep.Stage = StageInterfaceUp

	proc, err := h.spawn(ctx, launcher, vmm.LaunchSpec{
		FirmwarePath:  firmware,
		OSDiskPath:    osDisk,
		SeedImagePath: seedPath,
		Identity:      id,
	})
	if err != nil {
		return err
	}
	cleanup.push(proc.Terminate)
	rep.Stage = StageVMMRunning
	log.Info("vmm spawned", "pid", proc.PID())

	// The guest's network stack is not assumed ready right after spawn.
	if err := h.sleep(ctx, h.cfg.BootDelay); err != nil {
		return err
	}

	out, err := h.newProber(id.GuestIP).RunWithRetry(
		ctx, h.cfg.ShutdownCommand, h.cfg.ProbeAttempts, h.cfg.ProbeBackoff,
	)
	if err != nil {
		rep.Stage = StageShutdownFailed
		rep.ProbePhase = probePhase(err)
		return err
	}

	rep.Stage = StageShutdownIssued
	rep.ShutdownOutput = out
	log.Info("shutdown issued", "output_bytes", len(out))
	return nil
}

// stageOSDisk copies the reference image into the run's work directory so
// the monitor under test never touches the golden copy.
func stageOSDisk(workDir, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrStageOSDisk, src, err)
	}
	defer in.Close()

	dst := filepath.Join(workDir, "osdisk.img")
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrStageOSDisk, dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrStageOSDisk, dst, err)
	}
	return dst, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
