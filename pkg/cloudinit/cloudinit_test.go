package cloudinit_test

import (
	"testing"

	"github.com/alexandremahdhaoui/bootprobe/pkg/cloudinit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDataRender(t *testing.T) {
	ud := cloudinit.UserData{
		SSHPwAuth: true,
		Users:     []cloudinit.User{cloudinit.NewPasswordUser("cloud", "$6$abc$hash")},
	}

	out, err := ud.Render()
	require.NoError(t, err)

	assert.True(t, len(out) > 0)
	assert.Contains(t, out, "#cloud-config\n")
	assert.Contains(t, out, "name: cloud")
	assert.Contains(t, out, "ssh_pwauth: true")
	assert.Contains(t, out, "lock_passwd: false")
	assert.Contains(t, out, "NOPASSWD:ALL")
}

func TestNetworkConfigRender(t *testing.T) {
	nc := cloudinit.NewStaticNetworkConfig("12:34:56:78:90:ab", "192.168.2.2/24", "192.168.2.1")

	out, err := nc.Render()
	require.NoError(t, err)

	assert.Contains(t, out, "version: 2")
	assert.Contains(t, out, "macaddress: 12:34:56:78:90:ab")
	assert.Contains(t, out, "192.168.2.2/24")
	assert.Contains(t, out, "gateway4: 192.168.2.1")
}
