// Package network reports link state and the device's hardware identity.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/retry"
)

var (
	// ErrNotConnected means no usable interface has a routable address.
	ErrNotConnected = errors.New("network: not connected")
	// ErrNoHardwareAddr means no interface exposes a MAC address.
	ErrNoHardwareAddr = errors.New("network: no hardware address")
)

// Connectivity reports whether the device is online.
type Connectivity interface {
	IsConnected() bool
}

// Interface is the subset of net.Interface the monitor needs.
type Interface struct {
	Name     string
	MAC      net.HardwareAddr
	Up       bool
	Loopback bool
	Addrs    []net.IP
}

// Monitor inspects local interfaces. If iface is empty the first non-loopback
// interface with a hardware address is used.
type Monitor struct {
	iface      string
	interfaces func() ([]Interface, error)
	log        *zap.Logger
}

// NewMonitor creates a monitor for the named interface ("" = auto).
func NewMonitor(iface string, log *zap.Logger) *Monitor {
	return &Monitor{
		iface:      iface,
		interfaces: systemInterfaces,
		log:        log,
	}
}

func systemInterfaces() ([]Interface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]Interface, 0, len(ifs))
	for _, ifc := range ifs {
		i := Interface{
			Name:     ifc.Name,
			MAC:      ifc.HardwareAddr,
			Up:       ifc.Flags&net.FlagUp != 0,
			Loopback: ifc.Flags&net.FlagLoopback != 0,
		}
		addrs, err := ifc.Addrs()
		if err == nil {
			for _, a := range addrs {
				if ipn, ok := a.(*net.IPNet); ok {
					i.Addrs = append(i.Addrs, ipn.IP)
				}
			}
		}
		out = append(out, i)
	}
	return out, nil
}

// selected returns the interfaces the monitor considers, in order.
func (m *Monitor) selected() ([]Interface, error) {
	all, err := m.interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var out []Interface
	for _, i := range all {
		if m.iface != "" {
			if i.Name == m.iface {
				out = append(out, i)
			}
			continue
		}
		if !i.Loopback && len(i.MAC) > 0 {
			out = append(out, i)
		}
	}
	return out, nil
}

// IsConnected reports whether a selected interface is up with a global unicast address.
func (m *Monitor) IsConnected() bool {
	ifs, err := m.selected()
	if err != nil {
		m.log.Warn("interface scan failed", zap.Error(err))
		return false
	}
	for _, i := range ifs {
		if !i.Up {
			continue
		}
		for _, ip := range i.Addrs {
			if ip.IsGlobalUnicast() {
				return true
			}
		}
	}
	return false
}

// WaitConnected blocks until IsConnected is true or the policy gives up.
// It returns the number of checks made.
func (m *Monitor) WaitConnected(ctx context.Context, policy retry.Policy) (int, error) {
	return policy.Do(ctx, func(context.Context) error {
		if !m.IsConnected() {
			return ErrNotConnected
		}
		return nil
	})
}

// LocalIP returns the first global unicast address of a selected interface.
func (m *Monitor) LocalIP() string {
	ifs, err := m.selected()
	if err != nil {
		return ""
	}
	for _, i := range ifs {
		for _, ip := range i.Addrs {
			if ip.IsGlobalUnicast() {
				return ip.String()
			}
		}
	}
	return ""
}

// DeviceID returns the MAC of the selected interface in upper-case colon form.
func (m *Monitor) DeviceID() (string, error) {
	ifs, err := m.selected()
	if err != nil {
		return "", err
	}
	for _, i := range ifs {
		if len(i.MAC) > 0 {
			return FormatMAC(i.MAC), nil
		}
	}
	return "", ErrNoHardwareAddr
}

// FormatMAC renders a hardware address as AA:BB:CC:DD:EE:FF.
func FormatMAC(mac net.HardwareAddr) string {
	return strings.ToUpper(mac.String())
}
