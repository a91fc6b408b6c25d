// Package serial opens the hardware channel. Several serial libraries are
// supported because they behave differently across platforms and USB CDC
// devices; all of them yield an io.ReadWriteCloser.
package serial

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Driver names.
const (
	DriverTarm     = "tarm"
	DriverGoserial = "goserial"
	DriverJacobsa  = "jacobsa"
	DriverTerm     = "term"
)

// Config holds serial port configuration.
type Config struct {
	// Driver selects the serial library. Default: tarm.
	Driver string

	// Baud rate. USB CDC devices ignore it.
	Baud int

	// ReadTimeout bounds a single read (0 = blocking, where the driver
	// allows it).
	ReadTimeout time.Duration
}

// DefaultConfig returns 9600 baud over tarm/serial, which is what the
// controller board firmware expects.
func DefaultConfig() Config {
	return Config{
		Driver:      DriverTarm,
		Baud:        9600,
		ReadTimeout: 100 * time.Millisecond,
	}
}

type openFunc func(device string, cfg Config) (io.ReadWriteCloser, error)

var drivers = map[string]openFunc{
	DriverTarm:     openTarm,
	DriverGoserial: openGoserial,
	DriverJacobsa:  openJacobsa,
	DriverTerm:     openTerm,
}

// Drivers returns the supported driver names.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens device with the configured driver.
func Open(device string, cfg Config) (io.ReadWriteCloser, error) {
	if device == "" {
		return nil, fmt.Errorf("no serial device given")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverTarm
	}
	open, ok := drivers[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown serial driver %q (want one of %v)", cfg.Driver, Drivers())
	}

	port, err := open(device, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s with %s: %w", device, cfg.Driver, err)
	}
	return port, nil
}

// Opener returns a function that opens any device with cfg.
func Opener(cfg Config) func(device string) (io.ReadWriteCloser, error) {
	return func(device string) (io.ReadWriteCloser, error) {
		return Open(device, cfg)
	}
}
