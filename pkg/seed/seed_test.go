package seed_test

import (
	"testing"

	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
	"github.com/alexandremahdhaoui/bootprobe/pkg/seed"
	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	id := netident.Identity{
		GuestMAC: "2e:11:22:33:44:55",
		HostIP:   "192.168.9.1",
		GuestIP:  "192.168.9.2",
		TapName:  "fwtap9",
	}

	in := []byte(
		"addr " + seed.PlaceholderGuestIP +
			" gw " + seed.PlaceholderHostIP +
			" mac " + seed.PlaceholderMAC + "\n",
	)

	out := seed.Substitute(in, id)
	assert.Equal(t, "addr 192.168.9.2 gw 192.168.9.1 mac 2e:11:22:33:44:55\n", string(out))

	// Substitution is idempotent once the placeholders are gone.
	assert.Equal(t, out, seed.Substitute(out, id))
}

func TestSubstitute_NoPlaceholders(t *testing.T) {
	id := netident.NewIdentity(6)
	in := []byte("nothing to see here\n")
	assert.Equal(t, in, seed.Substitute(in, id))
}
