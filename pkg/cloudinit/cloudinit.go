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

// Package cloudinit renders the cloud-config documents carried by seed
// images: a user-data document creating the password login the readiness
// prober authenticates with, and a v2 network-config binding a static
// address to the guest NIC by MAC.
package cloudinit

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// User describes a guest login created on first boot.
type User struct {
	Name string `json:"name"`
	// Passwd is the crypt(3) hash of the user's password.
	Passwd     string `json:"passwd,omitempty"`
	Sudo       string `json:"sudo,omitempty"`
	Shell      string `json:"shell,omitempty"`
	LockPasswd bool   `json:"lock_passwd"`
}

// NewPasswordUser creates a passwordless-sudo user authenticating with
// the given password hash. Password login is what the readiness prober
// relies on, so the account must not be locked.
func NewPasswordUser(name, passwdHash string) User {
	return User{
		Name:       name,
		Passwd:     passwdHash,
		Sudo:       "ALL=(ALL) NOPASSWD:ALL",
		Shell:      "/bin/bash",
		LockPasswd: false,
	}
}

// WriteFile is a file materialized in the guest on first boot.
type WriteFile struct {
	Path        string `json:"path"`
	Permissions string `json:"permissions,omitempty"`
	Content     string `json:"content"`
}

// UserData is a cloud-config document.
type UserData struct {
	Hostname    string      `json:"hostname,omitempty"`
	SSHPwAuth   bool        `json:"ssh_pwauth"`
	Users       []User      `json:"users"`
	WriteFiles  []WriteFile `json:"write_files,omitempty"`
	RunCommands []string    `json:"runcmd,omitempty"`
}

// Render serializes the document with its #cloud-config header.
func (ud UserData) Render() (string, error) {
	b, err := yaml.Marshal(ud)
	if err != nil {
		return "", fmt.Errorf("cannot render cloud-config from UserData: %v", err)
	}
	return fmt.Sprintf("#cloud-config\n%s", string(b)), nil
}

// EthernetMatch selects a guest NIC by hardware address.
type EthernetMatch struct {
	MACAddress string `json:"macaddress"`
}

// Ethernet is the static address configuration of one matched NIC.
type Ethernet struct {
	Match     EthernetMatch `json:"match"`
	Addresses []string      `json:"addresses"`
	Gateway4  string        `json:"gateway4,omitempty"`
}

// NetworkConfig is a version-2 (netplan style) network-config document.
type NetworkConfig struct {
	Version   int                 `json:"version"`
	Ethernets map[string]Ethernet `json:"ethernets"`
}

// NewStaticNetworkConfig binds guestCIDR to the NIC carrying mac, with
// gateway as the default IPv4 route (the host side of the tap device).
func NewStaticNetworkConfig(mac, guestCIDR, gateway string) NetworkConfig {
	return NetworkConfig{
		Version: 2,
		Ethernets: map[string]Ethernet{
			"id0": {
				Match:     EthernetMatch{MACAddress: mac},
				Addresses: []string{guestCIDR},
				Gateway4:  gateway,
			},
		},
	}
}

// Render serializes the network-config document.
func (nc NetworkConfig) Render() (string, error) {
	b, err := yaml.Marshal(nc)
	if err != nil {
		return "", fmt.Errorf("cannot render network-config: %v", err)
	}
	return string(b), nil
}
