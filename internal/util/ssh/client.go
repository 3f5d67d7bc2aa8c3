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

package ssh

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/alexandremahdhaoui/bootprobe/internal/util/retry"
	"golang.org/x/crypto/ssh"
)

const defaultDialTimeout = 10 * time.Second

// Client implements Runner against a real SSH server using password
// authentication. The credentials are baked into the guest image under
// test, not managed by this harness.
type Client struct {
	Host     string
	Port     string
	User     string
	Password string

	// DialTimeout bounds the TCP connect of a single attempt. Defaults
	// to 10s when zero.
	DialTimeout time.Duration
}

// NewClient creates a password-authenticated SSH client.
func NewClient(host, port, user, password string) *Client {
	return &Client{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
	}
}

// Run opens one session to the guest and executes command. The returned
// error wraps the sentinel of the protocol phase that failed. Output is
// captured best-effort: once the command has started, a channel closed by
// the remote side is expected and not treated as a failure.
func (c *Client) Run(ctx context.Context, command string) (string, error) {
	timeout := c.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}

	addr := net.JoinHostPort(c.Host, c.Port)

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConnection, addr, err)
	}
	defer runFuncAndLogErr(conn.Close)

	config := &ssh.ClientConfig{
		User: c.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // Guests use throwaway host keys.
		Timeout:         timeout,
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		// The client library folds authentication into the handshake;
		// tell the two phases apart by the error text it produces.
		if strings.Contains(err.Error(), "unable to authenticate") {
			return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return "", fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	defer runFuncAndLogErr(client.Close)

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChannel, err)
	}
	defer runFuncAndLogErr(session.Close)

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	if err := session.Start(command); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCommand, err)
	}

	// The command may tear the connection down (e.g. a shutdown), so the
	// session ending abnormally is not a fault.
	_ = session.Wait()

	return out.String(), nil
}

// RunWithRetry runs command, retrying failed attempts with linear backoff
// (baseBackoff * attemptNumber) up to maxAttempts attempts. This is how
// the harness waits for a booting guest's login service instead of dead
// reckoning. The final attempt's phase-kinded error is returned when the
// budget is exhausted.
func (c *Client) RunWithRetry(
	ctx context.Context,
	command string,
	maxAttempts uint,
	baseBackoff time.Duration,
) (string, error) {
	attempt := 0
	return retry.Do(ctx, maxAttempts, retry.Linear(baseBackoff),
		func() (string, error) {
			attempt++
			out, err := c.Run(ctx, command)
			if err != nil {
				slog.Debug(
					"ssh attempt failed",
					"host", c.Host,
					"attempt", attempt,
					"err", err.Error(),
				)
			}
			return out, err
		})
}

func runFuncAndLogErr(f func() error) {
	if err := f(); err != nil {
		slog.Debug("error closing ssh session or connection", "err", err.Error())
	}
}
