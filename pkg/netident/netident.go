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

// Package netident generates the per-test guest network identity: a
// locally administered MAC address, a host/guest IPv4 pair on a synthetic
// /24, and the name of the tap device backing the test's network.
package netident

import (
	"crypto/rand"
	"fmt"
	"net"
	"sync/atomic"
)

// localAdminOctet is forced as the first MAC octet: the locally
// administered bit is set and the multicast bit is clear, so generated
// addresses never collide with vendor-assigned ones.
const localAdminOctet = 0x2e

// Identity is the network identity of a single test case. Immutable after
// creation; every live test case owns exactly one.
type Identity struct {
	// GuestMAC is the colon-hex hardware address assigned to the guest's
	// virtual NIC.
	GuestMAC string
	// HostIP is the address assigned to the host side of the tap device.
	HostIP string
	// GuestIP is the address the guest configures on its NIC via the
	// seed image.
	GuestIP string
	// TapName is the host tap device name.
	TapName string
}

// HostCIDR returns the host address in CIDR notation, as passed to
// ip addr add.
func (id Identity) HostCIDR() string {
	return id.HostIP + "/24"
}

// NewIdentity derives an identity from a counter value. Identities built
// from distinct counters have disjoint subnets and distinct tap names.
func NewIdentity(counter uint8) Identity {
	mac := make(net.HardwareAddr, 6)
	// rand.Read never fails; it panics if the kernel CSPRNG is broken.
	_, _ = rand.Read(mac)
	mac[0] = localAdminOctet

	return Identity{
		GuestMAC: mac.String(),
		HostIP:   fmt.Sprintf("192.168.%d.1", counter),
		GuestIP:  fmt.Sprintf("192.168.%d.2", counter),
		TapName:  fmt.Sprintf("fwtap%d", counter),
	}
}

// Generator hands out identities from an atomically incremented sequence,
// so concurrent test cases never share a subnet or tap name. The zero
// value is not usable; call NewGenerator.
type Generator struct {
	counter *atomic.Uint32
}

// NewGenerator creates a Generator whose first identity uses the given
// counter value. Values below 6 are reserved for manually configured
// networks on the host and rejected at the call site by convention, not
// enforced here.
func NewGenerator(first uint32) *Generator {
	c := new(atomic.Uint32)
	c.Store(first)
	return &Generator{counter: c}
}

// Next returns a fresh identity. Safe for concurrent use. The sequence
// value is truncated to 8 bits to form the subnet octet, so identities
// repeat after 256 draws; callers own that limit.
func (g *Generator) Next() Identity {
	n := g.counter.Add(1) - 1
	return NewIdentity(uint8(n))
}
