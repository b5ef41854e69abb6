package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/retry"
)

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC(s)
	require.NoError(t, err)
	return mac
}

func newTestMonitor(iface string, ifs func() ([]Interface, error)) *Monitor {
	m := NewMonitor(iface, zap.NewNop())
	m.interfaces = ifs
	return m
}

func TestDeviceIDSkipsLoopback(t *testing.T) {
	ifs := []Interface{
		{Name: "lo", Loopback: true, Up: true, Addrs: []net.IP{net.ParseIP("127.0.0.1")}},
		{Name: "wlan0", MAC: mustMAC(t, "b8:27:eb:12:34:56"), Up: true},
	}
	m := newTestMonitor("", func() ([]Interface, error) { return ifs, nil })

	id, err := m.DeviceID()
	require.NoError(t, err)
	assert.Equal(t, "B8:27:EB:12:34:56", id)
}

func TestDeviceIDNamedInterface(t *testing.T) {
	ifs := []Interface{
		{Name: "eth0", MAC: mustMAC(t, "dc:a6:32:00:00:01")},
		{Name: "wlan0", MAC: mustMAC(t, "dc:a6:32:00:00:02")},
	}
	m := newTestMonitor("wlan0", func() ([]Interface, error) { return ifs, nil })

	id, err := m.DeviceID()
	require.NoError(t, err)
	assert.Equal(t, "DC:A6:32:00:00:02", id)
}

func TestDeviceIDNoHardware(t *testing.T) {
	m := newTestMonitor("", func() ([]Interface, error) {
		return []Interface{{Name: "lo", Loopback: true}}, nil
	})
	_, err := m.DeviceID()
	assert.ErrorIs(t, err, ErrNoHardwareAddr)
}

func TestIsConnected(t *testing.T) {
	mac := mustMAC(t, "b8:27:eb:00:00:01")
	tests := []struct {
		name string
		ifc  Interface
		want bool
	}{
		{"up with address", Interface{Name: "wlan0", MAC: mac, Up: true, Addrs: []net.IP{net.ParseIP("192.168.1.40")}}, true},
		{"down", Interface{Name: "wlan0", MAC: mac, Up: false, Addrs: []net.IP{net.ParseIP("192.168.1.40")}}, false},
		{"link-local only", Interface{Name: "wlan0", MAC: mac, Up: true, Addrs: []net.IP{net.ParseIP("fe80::1")}}, false},
		{"no address", Interface{Name: "wlan0", MAC: mac, Up: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMonitor("", func() ([]Interface, error) { return []Interface{tt.ifc}, nil })
			assert.Equal(t, tt.want, m.IsConnected())
		})
	}
}

func TestIsConnectedListError(t *testing.T) {
	m := newTestMonitor("", func() ([]Interface, error) { return nil, errors.New("netlink") })
	assert.False(t, m.IsConnected())
}

func TestWaitConnectedAfterNFailures(t *testing.T) {
	mac := mustMAC(t, "b8:27:eb:00:00:01")
	calls := 0
	m := newTestMonitor("", func() ([]Interface, error) {
		calls++
		ifc := Interface{Name: "wlan0", MAC: mac, Up: true}
		if calls > 3 {
			ifc.Addrs = []net.IP{net.ParseIP("10.0.0.7")}
		}
		return []Interface{ifc}, nil
	})

	attempts, err := m.WaitConnected(context.Background(), retry.NewPolicy(0, time.Millisecond, time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, "10.0.0.7", m.LocalIP())
}

func TestWaitConnectedBoundedGivesUp(t *testing.T) {
	m := newTestMonitor("", func() ([]Interface, error) { return nil, nil })

	attempts, err := m.WaitConnected(context.Background(), retry.NewPolicy(2, time.Millisecond, time.Millisecond))
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 2, attempts)
}
