package config

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/kerinin/machinectl"
	"github.com/kerinin/machinectl/internal/kinematics"
	"github.com/kerinin/machinectl/internal/serial"
)

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var err error

	axes, axesErr := c.AxisConfig()
	err = multierr.Append(err, axesErr)

	if axes != nil {
		if len(c.Machine.Origin) > 0 {
			if oerr := machinectl.Validate(machinectl.MoveRequest(c.Machine.Origin), axes); oerr != nil {
				err = multierr.Append(err, fmt.Errorf("machine.origin: %w", oerr))
			}
		} else if oerr := machinectl.Validate(make(machinectl.MoveRequest, axes.Len()), axes); oerr != nil {
			err = multierr.Append(err, fmt.Errorf("machine.origin defaults to zero: %w", oerr))
		}
		if _, kerr := kinematics.New(c.Kinematics, axes.IDs()); kerr != nil {
			err = multierr.Append(err, fmt.Errorf("kinematics: %w", kerr))
		}
	}

	err = multierr.Append(err, c.validateMotors())

	switch machinectl.AddressMode(c.Dispatch.AddressBy) {
	case machinectl.AddressStages, machinectl.AddressMotors:
	default:
		err = multierr.Append(err, fmt.Errorf("dispatch.address_by must be %q or %q, got %q",
			machinectl.AddressStages, machinectl.AddressMotors, c.Dispatch.AddressBy))
	}
	if c.Dispatch.AckTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("dispatch.ack_timeout must not be negative"))
	}

	if !contains(serial.Drivers(), c.Serial.Driver) {
		err = multierr.Append(err, fmt.Errorf("serial.driver must be one of %v, got %q", serial.Drivers(), c.Serial.Driver))
	}
	if c.Serial.Baud <= 0 {
		err = multierr.Append(err, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}

	if _, lerr := log.ParseLevel(c.Log.Level); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log.level: %w", lerr))
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		err = multierr.Append(err, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return err
}

// validateMotors checks motors.map against the configured stages. In motor
// addressing every stage needs a motor, or its moves could never be sent.
func (c *Config) validateMotors() error {
	var err error

	stages := c.StageNames()
	mapped := make(map[string]bool, len(c.Motors.Map))
	for i, a := range c.Motors.Map {
		switch {
		case a.Stage == "":
			err = multierr.Append(err, fmt.Errorf("motors.map[%d]: empty stage name", i))
		case !contains(stages, a.Stage):
			err = multierr.Append(err, fmt.Errorf("motors.map[%d]: stage %q is not one of %v", i, a.Stage, stages))
		case mapped[a.Stage]:
			err = multierr.Append(err, fmt.Errorf("motors.map[%d]: stage %q is mapped twice", i, a.Stage))
		}
		if a.Motor == "" {
			err = multierr.Append(err, fmt.Errorf("motors.map[%d]: empty motor id for stage %q", i, a.Stage))
		}
		mapped[a.Stage] = true
	}

	if machinectl.AddressMode(c.Dispatch.AddressBy) == machinectl.AddressMotors {
		for _, stage := range stages {
			if !mapped[stage] {
				err = multierr.Append(err, fmt.Errorf("motors.map: stage %q has no motor, required by dispatch.address_by %q",
					stage, machinectl.AddressMotors))
			}
		}
	}
	return err
}

// MotorMap converts motors.map into the core map.
func (c *Config) MotorMap() machinectl.MotorMap {
	m := make(machinectl.MotorMap, len(c.Motors.Map))
	for _, a := range c.Motors.Map {
		m[a.Stage] = a.Motor
	}
	return m
}

// AxisConfig builds the core axis configuration.
func (c *Config) AxisConfig() (*machinectl.AxisConfig, error) {
	raw := make([]string, len(c.Machine.Axes))
	min := make([]int, len(c.Machine.Axes))
	max := make([]int, len(c.Machine.Axes))
	for i, a := range c.Machine.Axes {
		raw[i], min[i], max[i] = a.Name, a.Min, a.Max
	}
	return machinectl.NewAxisConfig(machinectl.CleanAxisIDs(raw, c.Machine.AxisPrefix), min, max)
}

// Origin returns the configured start position, or nil for all zeros.
func (c *Config) Origin() machinectl.Position {
	if len(c.Machine.Origin) == 0 {
		return nil
	}
	return machinectl.Position(c.Machine.Origin).Clone()
}

// StageNames returns the configured stage names in order.
func (c *Config) StageNames() []string {
	names := make([]string, len(c.Kinematics.Stages))
	for i, s := range c.Kinematics.Stages {
		names[i] = s.Name
	}
	return names
}

// DispatchOptions converts the dispatch section.
func (c *Config) DispatchOptions() machinectl.DispatchConfig {
	return machinectl.DispatchConfig{
		AddressBy:   machinectl.AddressMode(c.Dispatch.AddressBy),
		AckTimeout:  c.Dispatch.AckTimeout,
		ReadLogSize: c.Dispatch.ReadLogSize,
	}
}

// SerialOptions converts the serial section.
func (c *Config) SerialOptions() serial.Config {
	return serial.Config{
		Driver:      c.Serial.Driver,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeout,
	}
}

// Controller builds a machinectl.Controller from c. It is not connected.
func (c *Config) Controller() (*machinectl.Controller, error) {
	axes, err := c.AxisConfig()
	if err != nil {
		return nil, err
	}
	solver, err := kinematics.New(c.Kinematics, axes.IDs())
	if err != nil {
		return nil, err
	}

	opener := serial.Opener(c.SerialOptions())
	return machinectl.NewController(machinectl.Options{
		Axes:            axes,
		Origin:          c.Origin(),
		Solver:          solver,
		Dispatcher:      machinectl.NewDispatcher(c.DispatchOptions()),
		Opener:          machinectl.Opener(opener),
		Stages:          c.StageNames(),
		AvailableMotors: c.Motors.Available,
		Motors:          c.MotorMap(),
	})
}

// Apply configures the standard logrus logger.
func (l LogConfig) Apply() error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(l.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{})
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
