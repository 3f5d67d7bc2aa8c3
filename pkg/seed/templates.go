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

package seed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexandremahdhaoui/bootprobe/pkg/cloudinit"
)

// Credentials baked into every generated guest login. The readiness
// prober authenticates with these.
const (
	GuestUser     = "cloud"
	GuestPassword = "cloud123"

	// guestPasswordHash is the crypt(3) SHA-512 hash of GuestPassword.
	guestPasswordHash = "$6$7125787751a8d18a$sHwGySomUA1PawiNFWVCKYQN.Ec.Wzz0JtPPL1MvzFrkwmop2dq7.4CYf03A5oemPQ4pOFCCrtCelvFBEle/K." //nolint:gosec // throwaway test guest credential
)

const ubuntuMetaDataContent = `instance-id: bootprobe
local-hostname: bootprobe-guest
`

const clearMetaDataContent = `{
    "hostname": "cloud",
    "uuid": "4851056a-6869-4e44-b62f-68bf0b9b2b72"
}
`

// clearNetworkUnit is a systemd-networkd unit materialized in the guest,
// binding the guest address to the NIC by MAC. It carries the placeholder
// tokens and is substituted per test.
const clearNetworkUnit = `[Match]
MACAddress=` + PlaceholderMAC + `

[Network]
Address=` + PlaceholderGuestIP + `/24
Gateway=` + PlaceholderHostIP + `
`

// WriteDefaultTemplates materializes the built-in template trees for both
// supported distribution families under resourcesDir. Existing files are
// overwritten; the harness calls this when pointed at an empty resources
// directory.
func WriteDefaultTemplates(resourcesDir string) error {
	if resourcesDir == "" {
		return ErrResourcesDir
	}
	if err := writeUbuntuTemplates(filepath.Join(resourcesDir, "ubuntu")); err != nil {
		return err
	}
	return writeClearTemplates(filepath.Join(resourcesDir, "clear", "openstack", "latest"))
}

func writeUbuntuTemplates(dir string) error {
	if err := mkdirAll(dir); err != nil {
		return err
	}

	userData, err := cloudinit.UserData{
		Hostname:  "bootprobe-guest",
		SSHPwAuth: true,
		Users:     []cloudinit.User{cloudinit.NewPasswordUser(GuestUser, guestPasswordHash)},
	}.Render()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteTemplate, err)
	}

	networkConfig, err := cloudinit.NewStaticNetworkConfig(
		PlaceholderMAC,
		PlaceholderGuestIP+"/24",
		PlaceholderHostIP,
	).Render()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteTemplate, err)
	}

	return writeAll(dir, map[string]string{
		ubuntuMetaData:      ubuntuMetaDataContent,
		ubuntuUserData:      userData,
		ubuntuNetworkConfig: networkConfig,
	})
}

func writeClearTemplates(dir string) error {
	if err := mkdirAll(dir); err != nil {
		return err
	}

	// Clear Linux has no NoCloud network-config stage, so the static
	// address is applied through a networkd unit dropped by cloud-init.
	userData, err := cloudinit.UserData{
		SSHPwAuth: true,
		Users:     []cloudinit.User{cloudinit.NewPasswordUser(GuestUser, guestPasswordHash)},
		WriteFiles: []cloudinit.WriteFile{{
			Path:        "/etc/systemd/network/00-static-l2.network",
			Permissions: "0644",
			Content:     clearNetworkUnit,
		}},
		RunCommands: []string{
			"systemctl restart systemd-networkd",
		},
	}.Render()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteTemplate, err)
	}

	return writeAll(dir, map[string]string{
		clearMetaData: clearMetaDataContent,
		clearUserData: userData,
	})
}

func writeAll(dir string, files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrWriteTemplate, path, err)
		}
	}
	return nil
}
