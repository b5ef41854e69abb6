// Package adc reads the raw water level magnitude from an analog input.
// The real implementation uses the Linux Industrial I/O (IIO) sysfs interface,
// which exposes ADC chips such as the ADS1015 or MCP3208 once their kernel
// driver is bound.
package adc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Reader performs a blocking read of one analog channel.
type Reader interface {
	// Read returns the raw magnitude (0-4095 for a 12-bit converter).
	Read() (int, error)

	// Close releases the input.
	Close() error
}

// Defaults for the IIO channel.
const (
	DefaultDevice  = 0
	DefaultChannel = 0
)

// ChannelPath returns the sysfs path of a raw voltage channel.
func ChannelPath(device, channel int) string {
	return fmt.Sprintf("/sys/bus/iio/devices/iio:device%d/in_voltage%d_raw", device, channel)
}

// IIOReader reads raw samples from an IIO sysfs attribute.
type IIOReader struct {
	path string
}

// NewIIOReader opens the channel at path and checks that it is readable.
func NewIIOReader(path string) (*IIOReader, error) {
	r := &IIOReader{path: path}
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("open adc channel: %w", err)
	}
	return r, nil
}

// Path returns the sysfs attribute being read.
func (r *IIOReader) Path() string {
	return r.path
}

// Read triggers a conversion by reading the attribute and parses the result.
func (r *IIOReader) Read() (int, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", r.path, err)
	}
	raw, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse sample from %s: %w", r.path, err)
	}
	return raw, nil
}

// Close is a no-op; the attribute is reopened on every read.
func (r *IIOReader) Close() error {
	return nil
}
