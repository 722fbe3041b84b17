package unixremote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIfconfig(t *testing.T) {
	lines := []string{
		"eth0      Link encap:Ethernet  HWaddr 08:00:27:00:00:00",
		"          inet addr:192.168.99.100  Bcast:192.168.99.255  Mask:255.255.255.0",
		"          inet6 addr: fe80::a00:27ff:fe00:0/64 Scope:Link",
		"vboxnet0  Link encap:Ethernet",
		"          inet addr:192.168.56.1  Bcast:192.168.56.255  Mask:255.255.255.0",
	}
	addrs := parseIfconfig(lines)
	require.Len(t, addrs, 2)
	require.Equal(t, "eth0", addrs[0].Name)
	require.Equal(t, "192.168.99.100", addrs[0].IPv4)
	require.Equal(t, "fe80::a00:27ff:fe00:0/64", addrs[0].IPv6)
	require.Equal(t, "vboxnet0", addrs[1].Name)
}
