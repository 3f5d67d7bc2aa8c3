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

package boottest

import (
	"errors"
	"fmt"
	"time"

	"github.com/alexandremahdhaoui/bootprobe/internal/util/ssh"
)

// Stage is how far a test case progressed before succeeding or failing.
type Stage string

const (
	StageCreated         Stage = "created"
	StageNetworkPrepared Stage = "network-prepared"
	StageImageSeeded     Stage = "image-seeded"
	StageOSDiskStaged    Stage = "os-disk-staged"
	StageInterfaceUp     Stage = "interface-up"
	StageVMMRunning      Stage = "vmm-running"
	StageShutdownIssued  Stage = "shutdown-issued"
	StageShutdownFailed  Stage = "shutdown-failed"
)

// Report is the outcome of one scenario run.
type Report struct {
	Scenario string
	RunID    string
	VMM      string
	Distro   string

	// Stage is the furthest stage the run reached.
	Stage Stage
	// Err is the failure that stopped the run, nil on success.
	Err error
	// ProbePhase names the login-protocol phase that failed when Err is a
	// readiness-probe failure; empty otherwise.
	ProbePhase string
	// ShutdownOutput is the output of the remote shutdown command.
	ShutdownOutput string
	// TeardownErr aggregates cleanup failures. Teardown runs on every
	// exit path; its failures do not mask Err.
	TeardownErr error

	Duration time.Duration
}

// Passed reports whether the guest booted, accepted the shutdown command
// and every resource was released.
func (r Report) Passed() bool {
	return r.Err == nil && r.TeardownErr == nil
}

// String renders a one-line result for CLI output.
func (r Report) String() string {
	status := "PASS"
	detail := ""
	if r.Err != nil {
		status = "FAIL"
		detail = fmt.Sprintf(" stage=%s err=%q", r.Stage, r.Err.Error())
		if r.ProbePhase != "" {
			detail += fmt.Sprintf(" phase=%s", r.ProbePhase)
		}
	}
	if r.TeardownErr != nil {
		status = "FAIL"
		detail += fmt.Sprintf(" teardown=%q", r.TeardownErr.Error())
	}
	return fmt.Sprintf(
		"%s %s (vmm=%s distro=%s duration=%s)%s",
		status, r.Scenario, r.VMM, r.Distro, r.Duration.Round(time.Millisecond), detail,
	)
}

// probePhase maps a prober error to the name of the protocol phase that
// failed.
func probePhase(err error) string {
	switch {
	case errors.Is(err, ssh.ErrConnection):
		return "connection"
	case errors.Is(err, ssh.ErrHandshake):
		return "handshake"
	case errors.Is(err, ssh.ErrAuthentication):
		return "authentication"
	case errors.Is(err, ssh.ErrChannel):
		return "channel"
	case errors.Is(err, ssh.ErrCommand):
		return "command"
	default:
		return ""
	}
}
