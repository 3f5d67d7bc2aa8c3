//go:build integration

package tapnet_test

import (
	"os"
	"testing"

	"github.com/alexandremahdhaoui/bootprobe/pkg/hostexec"
	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
	"github.com/alexandremahdhaoui/bootprobe/pkg/tapnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires the ip command and administrative network privilege.
func TestBringUpAndTearDown(t *testing.T) {
	require.NoError(t, hostexec.LookupTools("ip"))

	var execCtx hostexec.Context
	if os.Geteuid() != 0 {
		execCtx = hostexec.Sudo()
	}

	m := tapnet.NewManager(execCtx)
	id := netident.NewIdentity(250)
	ctx := t.Context()

	require.NoError(t, m.BringUp(ctx, id))
	t.Cleanup(func() { _ = m.TearDown(ctx, id.TapName) })

	exists, err := m.Exists(ctx, id.TapName)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, m.TearDown(ctx, id.TapName))

	exists, err = m.Exists(ctx, id.TapName)
	require.NoError(t, err)
	assert.False(t, exists)

	// A second teardown of the same device is a no-op.
	require.NoError(t, m.TearDown(ctx, id.TapName))
}
