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
	"log/slog"
	"os/exec"
	"sync"
)

// Process is a running monitor child. It is reaped by an internal
// goroutine, so the exit status is collected no matter how the child
// dies.
type Process struct {
	cmd     *exec.Cmd
	stopped chan struct{}

	termOnce sync.Once
}

func startProcess(cmd *exec.Cmd) (*Process, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnVMM, cmd.Path, err)
	}

	p := &Process{
		cmd:     cmd,
		stopped: make(chan struct{}),
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			// Normal for a guest that is killed rather than shut down.
			slog.Debug("vmm process exited", "pid", cmd.Process.Pid, "err", err.Error())
		}
		close(p.stopped)
	}()

	return p, nil
}

// PID returns the child's process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Alive reports whether the child has not been reaped yet.
func (p *Process) Alive() bool {
	select {
	case <-p.stopped:
		return false
	default:
		return true
	}
}

// Terminate kills the child and blocks until it has been reaped.
// Idempotent; a child that already exited is not an error.
func (p *Process) Terminate() error {
	p.termOnce.Do(func() {
		select {
		case <-p.stopped:
		default:
			if err := p.cmd.Process.Kill(); err != nil {
				slog.Debug("kill after exit race", "pid", p.PID(), "err", err.Error())
			}
		}
	})
	<-p.stopped
	return nil
}

// Wait blocks until the child exits on its own or ctx is done. The
// child's own exit error is not surfaced: guests are killed rather than
// shut down cleanly, so a non-zero exit is the normal case.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
