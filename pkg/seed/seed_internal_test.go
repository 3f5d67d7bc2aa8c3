package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity() netident.Identity {
	return netident.Identity{
		GuestMAC: "2e:aa:bb:cc:dd:ee",
		HostIP:   "192.168.7.1",
		GuestIP:  "192.168.7.2",
		TapName:  "fwtap7",
	}
}

func writeTemplates(t *testing.T) string {
	t.Helper()
	resourcesDir := t.TempDir()
	require.NoError(t, WriteDefaultTemplates(resourcesDir))
	return resourcesDir
}

func TestUbuntuStage(t *testing.T) {
	resourcesDir := writeTemplates(t)
	workDir := t.TempDir()
	id := testIdentity()

	stageDir, err := NewUbuntu(resourcesDir).stage(workDir, id)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "cloud-init", "ubuntu"), stageDir)

	metaData, err := os.ReadFile(filepath.Join(stageDir, "meta-data"))
	require.NoError(t, err)
	original, err := os.ReadFile(filepath.Join(resourcesDir, "ubuntu", "meta-data"))
	require.NoError(t, err)
	assert.Equal(t, original, metaData, "meta-data is copied verbatim")

	networkConfig, err := os.ReadFile(filepath.Join(stageDir, "network-config"))
	require.NoError(t, err)
	assert.Contains(t, string(networkConfig), id.GuestMAC)
	assert.Contains(t, string(networkConfig), id.GuestIP+"/24")
	assert.Contains(t, string(networkConfig), "gateway4: "+id.HostIP)
	assert.NotContains(t, string(networkConfig), PlaceholderMAC)
	assert.NotContains(t, string(networkConfig), PlaceholderGuestIP)
}

func TestClearStage(t *testing.T) {
	resourcesDir := writeTemplates(t)
	workDir := t.TempDir()
	id := testIdentity()

	stageRoot, err := NewClear(resourcesDir).stage(workDir, id)
	require.NoError(t, err)
	assert.Equal(
		t,
		filepath.Join(workDir, "cloud-init", "clear", "openstack"),
		stageRoot,
		"the openstack directory itself lands at the image root",
	)

	metaData, err := os.ReadFile(filepath.Join(stageRoot, "latest", "meta_data.json"))
	require.NoError(t, err)
	assert.Contains(t, string(metaData), `"hostname"`)

	userData, err := os.ReadFile(filepath.Join(stageRoot, "latest", "user_data"))
	require.NoError(t, err)
	assert.Contains(t, string(userData), "MACAddress="+id.GuestMAC)
	assert.Contains(t, string(userData), "Address="+id.GuestIP+"/24")
	assert.Contains(t, string(userData), "Gateway="+id.HostIP)
	assert.NotContains(t, string(userData), PlaceholderHostIP)
}

func TestPrepare_FailsWithoutResourcesDir(t *testing.T) {
	ctx := t.Context()

	_, err := (&Ubuntu{}).Prepare(ctx, t.TempDir(), testIdentity())
	assert.ErrorIs(t, err, ErrResourcesDir)

	_, err = (&Clear{}).Prepare(ctx, t.TempDir(), testIdentity())
	assert.ErrorIs(t, err, ErrResourcesDir)
}

func TestStage_FailsOnMissingTemplate(t *testing.T) {
	resourcesDir := writeTemplates(t)
	require.NoError(t, os.Remove(
		filepath.Join(resourcesDir, "ubuntu", "network-config"),
	))

	_, err := NewUbuntu(resourcesDir).stage(t.TempDir(), testIdentity())
	assert.ErrorIs(t, err, ErrReadTemplate)
}
