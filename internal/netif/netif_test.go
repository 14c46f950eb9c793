package netif

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// absentRange returns a documentation /30 that no local interface address falls into.
func absentRange(t *testing.T) *net.IPNet {
	t.Helper()
	addrs, err := net.InterfaceAddrs()
	require.NoError(t, err)

	for _, cidr := range []string{"192.0.2.252/30", "198.51.100.252/30", "203.0.113.252/30", "192.0.2.0/30"} {
		_, ipNet, err := net.ParseCIDR(cidr)
		require.NoError(t, err)
		used := false
		for _, a := range addrs {
			if ip, _, err := net.ParseCIDR(a.String()); err == nil && ipNet.Contains(ip) {
				used = true
				break
			}
		}
		if !used {
			return ipNet
		}
	}
	t.Skip("every candidate range is assigned on this host")
	return nil
}

func TestFindIPInRangeLoopback(t *testing.T) {
	ip, err := FindIPInRange("127.0.0.0/8")
	require.NoError(t, err)
	assert.True(t, ip.IsLoopback())
}

func TestFindIPInRangeErrors(t *testing.T) {
	_, err := FindIPInRange("not-a-cidr")
	assert.Error(t, err)

	_, err = FindIPInRange(absentRange(t).String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInterfaceByIP(t *testing.T) {
	itf, err := InterfaceByIP(net.IPv4zero)
	require.NoError(t, err)
	assert.Nil(t, itf)

	itf, err = InterfaceByIP(net.ParseIP("127.0.0.1"))
	require.NoError(t, err)
	require.NotNil(t, itf)
	assert.NotZero(t, itf.Flags&net.FlagLoopback)

	absent := absentRange(t)
	ip := make(net.IP, len(absent.IP))
	copy(ip, absent.IP)
	ip[len(ip)-1]++
	_, err = InterfaceByIP(ip)
	assert.ErrorIs(t, err, ErrNotFound)
}
