package vmm_test

import (
	"context"
	"testing"

	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
	"github.com/alexandremahdhaoui/bootprobe/pkg/vmm"
	"github.com/stretchr/testify/assert"
)

func testSpec() vmm.LaunchSpec {
	return vmm.LaunchSpec{
		FirmwarePath:  "/opt/fw/hypervisor-fw",
		OSDiskPath:    "/work/os.img",
		SeedImagePath: "/work/cloudinit",
		Identity: netident.Identity{
			GuestMAC: "2e:aa:bb:cc:dd:ee",
			HostIP:   "192.168.6.1",
			GuestIP:  "192.168.6.2",
			TapName:  "fwtap6",
		},
	}
}

func TestCloudHypervisorArgs(t *testing.T) {
	launcher := &vmm.CloudHypervisor{}

	assert.Equal(t, []string{
		"--console", "off",
		"--serial", "tty",
		"--kernel", "/opt/fw/hypervisor-fw",
		"--disk",
		"path=/work/os.img",
		"path=/work/cloudinit",
		"--net",
		"tap=fwtap6,mac=2e:aa:bb:cc:dd:ee",
	}, launcher.Args(testSpec()))
}

func TestQEMUArgs(t *testing.T) {
	launcher := &vmm.QEMU{}

	assert.Equal(t, []string{
		"-machine", "q35,accel=kvm",
		"-cpu", "host,-vmx",
		"-kernel", "/opt/fw/hypervisor-fw",
		"-display", "none",
		"-nodefaults",
		"-serial", "stdio",
		"-drive", "id=os,file=/work/os.img,if=none",
		"-device", "virtio-blk-pci,drive=os,disable-legacy=on",
		"-drive", "id=ci,file=/work/cloudinit,if=none,format=raw",
		"-device", "virtio-blk-pci,drive=ci,disable-legacy=on",
		"-m", "1G",
		"-netdev", "tap,id=net0,ifname=fwtap6,script=no,downscript=no",
		"-device", "virtio-net-pci,netdev=net0,mac=2e:aa:bb:cc:dd:ee",
	}, launcher.Args(testSpec()))
}

func TestBinary_DefaultsAndOverride(t *testing.T) {
	assert.Equal(t, "cloud-hypervisor", (&vmm.CloudHypervisor{}).Binary())
	assert.Equal(t, "qemu-system-x86_64", (&vmm.QEMU{}).Binary())

	assert.Equal(t, "/opt/ch/cloud-hypervisor",
		(&vmm.CloudHypervisor{BinaryPath: "/opt/ch/cloud-hypervisor"}).Binary())
	assert.Equal(t, "/usr/libexec/qemu-kvm",
		(&vmm.QEMU{BinaryPath: "/usr/libexec/qemu-kvm"}).Binary())
}

func TestQEMUArgs_MemoryOverride(t *testing.T) {
	launcher := &vmm.QEMU{Memory: "4G"}
	assert.Contains(t, launcher.Args(testSpec()), "4G")
}

func TestSpawn_ValidatesSpec(t *testing.T) {
	ctx := context.Background()

	for _, launcher := range []vmm.Launcher{
		&vmm.CloudHypervisor{},
		&vmm.QEMU{},
	} {
		t.Run(launcher.Name(), func(t *testing.T) {
			spec := testSpec()
			spec.FirmwarePath = ""
			_, err := launcher.Spawn(ctx, spec)
			assert.ErrorIs(t, err, vmm.ErrFirmwareRequired)

			spec = testSpec()
			spec.OSDiskPath = ""
			_, err = launcher.Spawn(ctx, spec)
			assert.ErrorIs(t, err, vmm.ErrOSDiskRequired)

			spec = testSpec()
			spec.SeedImagePath = ""
			_, err = launcher.Spawn(ctx, spec)
			assert.ErrorIs(t, err, vmm.ErrSeedRequired)
		})
	}
}

func TestSpawn_MissingBinary(t *testing.T) {
	launcher := &vmm.CloudHypervisor{BinaryPath: "/nonexistent/cloud-hypervisor"}
	_, err := launcher.Spawn(context.Background(), testSpec())
	assert.ErrorIs(t, err, vmm.ErrSpawnVMM)
}
