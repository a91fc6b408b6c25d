// Package config provides configuration loading for machinectl.
//
// Configuration is loaded using Viper from a YAML file, with environment
// variable overrides. An optional .env file is read first so its values act
// like real environment variables.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (MACHINECTL_ prefix, dots become underscores,
//     e.g. MACHINECTL_SERIAL_PORT)
//  2. Config file given with --config or MACHINECTL_CONFIG_PATH
//  3. ./machinectl.yaml
//  4. [DefaultConfig] defaults
package config

import (
	"time"

	"github.com/kerinin/machinectl/internal/kinematics"
	"github.com/kerinin/machinectl/internal/serial"
)

// Config is the root configuration structure.
type Config struct {
	Machine    MachineConfig     `mapstructure:"machine" yaml:"machine"`
	Motors     MotorsConfig      `mapstructure:"motors" yaml:"motors"`
	Kinematics kinematics.Config `mapstructure:"kinematics" yaml:"kinematics"`
	Serial     SerialConfig      `mapstructure:"serial" yaml:"serial"`
	Dispatch   DispatchConfig    `mapstructure:"dispatch" yaml:"dispatch"`
	Log        LogConfig         `mapstructure:"log" yaml:"log"`
}

// MachineConfig describes the machine geometry.
type MachineConfig struct {
	// Axes in order. Names may carry AxisPrefix, which is stripped.
	Axes []AxisConfig `mapstructure:"axes" yaml:"axes"`

	// AxisPrefix is removed from axis names, e.g. "AXIS_X" becomes "X".
	AxisPrefix string `mapstructure:"axis_prefix" yaml:"axis_prefix"`

	// Origin is the position assumed at start-up. Empty means all zeros.
	Origin []int `mapstructure:"origin" yaml:"origin"`
}

// AxisConfig is one axis and its inclusive limits.
type AxisConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Min  int    `mapstructure:"min" yaml:"min"`
	Max  int    `mapstructure:"max" yaml:"max"`
}

// MotorsConfig holds the stage to physical motor mapping.
type MotorsConfig struct {
	// Map is the initial stage to motor map. It can be rebuilt with the
	// interactive "map" command. It is a list rather than a YAML mapping so
	// that stage names keep their case through viper.
	Map []MotorAssignment `mapstructure:"map" yaml:"map"`

	// Available lists the physical motor ids offered when remapping.
	Available []string `mapstructure:"available" yaml:"available"`
}

// MotorAssignment maps one stage to the physical motor that drives it.
type MotorAssignment struct {
	Stage string `mapstructure:"stage" yaml:"stage"`
	Motor string `mapstructure:"motor" yaml:"motor"`
}

// SerialConfig configures the hardware channel.
type SerialConfig struct {
	// Port is the device opened at start-up. Empty means start unconnected.
	Port        string        `mapstructure:"port" yaml:"port"`
	Baud        int           `mapstructure:"baud" yaml:"baud"`
	Driver      string        `mapstructure:"driver" yaml:"driver"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
}

// DispatchConfig configures how moves are sent.
type DispatchConfig struct {
	// AddressBy is "stage" (send stage names) or "motor" (send the mapped
	// physical motor ids).
	AddressBy string `mapstructure:"address_by" yaml:"address_by"`

	// AckTimeout, when non-zero, makes each move wait for an {"ok":true}
	// reply from the hardware. Zero treats an accepted write as success.
	AckTimeout time.Duration `mapstructure:"ack_timeout" yaml:"ack_timeout"`

	// ReadLogSize is how many received bytes the "log" command can show.
	ReadLogSize int `mapstructure:"read_log_size" yaml:"read_log_size"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a [Config] describing the two-axis plotter the
// controller was first built for: a y stage and a two-motor x gantry.
func DefaultConfig() *Config {
	serialDefaults := serial.DefaultConfig()
	return &Config{
		Machine: MachineConfig{
			Axes: []AxisConfig{
				{Name: "AXIS_x", Min: 0, Max: 100},
				{Name: "AXIS_y", Min: 0, Max: 100},
			},
			AxisPrefix: "AXIS_",
		},
		Motors: MotorsConfig{
			Map: []MotorAssignment{
				{Stage: "y", Motor: "PHYS_X"},
				{Stage: "x2", Motor: "PHYS_Z"},
				{Stage: "x1", Motor: "PHYS_Y"},
			},
			Available: []string{"PHYS_X", "PHYS_Y", "PHYS_Z"},
		},
		Kinematics: kinematics.Config{
			Type: kinematics.TypeLinear,
			Stages: []kinematics.Stage{
				{Name: "y", Axis: "y", StepsPerUnit: 1},
				{Name: "x1", Axis: "x", StepsPerUnit: 1},
				{Name: "x2", Axis: "x", StepsPerUnit: 1},
			},
		},
		Serial: SerialConfig{
			Port:        "/dev/tty.usbmodem14101",
			Baud:        serialDefaults.Baud,
			Driver:      serialDefaults.Driver,
			ReadTimeout: serialDefaults.ReadTimeout,
		},
		Dispatch: DispatchConfig{
			AddressBy:   "stage",
			ReadLogSize: 4096,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
