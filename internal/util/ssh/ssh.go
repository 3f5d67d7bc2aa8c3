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

// Package ssh implements the guest readiness prober: a password
// authenticated SSH client whose failures are distinguished by protocol
// phase, retried with linear backoff until the guest's login service
// comes up.
package ssh

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors naming the protocol phase that failed. Every error
// returned by Client.Run wraps exactly one of these.
var (
	ErrConnection     = errors.New("ssh connection failed")
	ErrHandshake      = errors.New("ssh handshake failed")
	ErrAuthentication = errors.New("ssh authentication failed")
	ErrChannel        = errors.New("ssh channel session failed")
	ErrCommand        = errors.New("ssh command execution failed")
)

// Runner executes commands on a remote host. The orchestrator depends on
// this interface so tests can substitute a fake guest.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
	RunWithRetry(
		ctx context.Context,
		command string,
		maxAttempts uint,
		baseBackoff time.Duration,
	) (string, error)
}
