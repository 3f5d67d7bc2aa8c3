package tapnet

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alexandremahdhaoui/bootprobe/pkg/hostexec"
	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records every command line and answers each one from a
// scripted response table keyed by the command's first words.
type fakeRunner struct {
	calls []string
	// failOn makes the command whose line starts with the given prefix
	// fail.
	failOn string
	// output is returned for every call.
	output string
}

func (f *fakeRunner) run(
	_ context.Context,
	_ hostexec.Context,
	name string,
	args ...string,
) (hostexec.Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, line)

	res := hostexec.Result{Cmd: line, Output: []byte(f.output)}
	if f.failOn != "" && strings.HasPrefix(line, f.failOn) {
		res.ExitCode = 1
		return res, fmt.Errorf(
			"%w: %s: exit status 1, output: %s",
			hostexec.ErrToolFailed, line, f.output,
		)
	}
	return res, nil
}

func newTestManager(fake *fakeRunner) *Manager {
	return &Manager{execCtx: nil, run: fake.run}
}

func testIdentity() netident.Identity {
	return netident.Identity{
		GuestMAC: "2e:aa:bb:cc:dd:ee",
		HostIP:   "192.168.8.1",
		GuestIP:  "192.168.8.2",
		TapName:  "fwtap8",
	}
}

func TestBringUp_RunsThreeCommandsInOrder(t *testing.T) {
	fake := &fakeRunner{}
	m := newTestManager(fake)

	require.NoError(t, m.BringUp(context.Background(), testIdentity()))

	assert.Equal(t, []string{
		"ip tuntap add name fwtap8 mode tap",
		"ip addr add 192.168.8.1/24 dev fwtap8",
		"ip link set fwtap8 up",
	}, fake.calls)
}

func TestBringUp_RollsBackWhenAddrFails(t *testing.T) {
	fake := &fakeRunner{failOn: "ip addr add"}
	m := newTestManager(fake)

	err := m.BringUp(context.Background(), testIdentity())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAddTapIP)
	assert.Contains(t, fake.calls, "ip link delete fwtap8",
		"the freshly created device is deleted again")
}

func TestBringUp_RollsBackWhenLinkUpFails(t *testing.T) {
	fake := &fakeRunner{failOn: "ip link set"}
	m := newTestManager(fake)

	err := m.BringUp(context.Background(), testIdentity())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBringTapUp)
	assert.Equal(t, "ip link delete fwtap8", fake.calls[len(fake.calls)-1])
}

func TestBringUp_RequiresName(t *testing.T) {
	m := newTestManager(&fakeRunner{})
	err := m.BringUp(context.Background(), netident.Identity{})
	assert.ErrorIs(t, err, ErrTapNameRequired)
}

func TestTearDown_DeletesExistingDevice(t *testing.T) {
	fake := &fakeRunner{}
	m := newTestManager(fake)

	require.NoError(t, m.TearDown(context.Background(), "fwtap8"))

	assert.Equal(t, []string{
		"ip link show fwtap8",
		"ip link delete fwtap8",
	}, fake.calls)
}

func TestTearDown_IdempotentWhenDeviceAbsent(t *testing.T) {
	fake := &fakeRunner{
		failOn: "ip link show",
		output: `Device "fwtap8" does not exist.`,
	}
	m := newTestManager(fake)

	require.NoError(t, m.TearDown(context.Background(), "fwtap8"))
	assert.Equal(t, []string{"ip link show fwtap8"}, fake.calls,
		"no delete is attempted for an absent device")
}

func TestExists_SurfacesUnexpectedFailure(t *testing.T) {
	fake := &fakeRunner{
		failOn: "ip link show",
		output: "RTNETLINK answers: operation not permitted",
	}
	m := newTestManager(fake)

	_, err := m.Exists(context.Background(), "fwtap8")
	assert.ErrorIs(t, err, ErrCheckTapExists)
}
