package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "MACHINECTL"

// DefaultFile is looked up in the working directory when no config file is
// given.
const DefaultFile = "machinectl.yaml"

// Loader handles Viper-based configuration loading.
type Loader struct {
	v *viper.Viper
	// EnvFile is loaded with godotenv before the environment is read.
	// Missing files are ignored.
	EnvFile string
}

// NewLoader returns a Loader with defaults and environment bindings set up.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("machine.axis_prefix", d.Machine.AxisPrefix)
	v.SetDefault("kinematics.type", d.Kinematics.Type)
	v.SetDefault("kinematics.max_steps", d.Kinematics.MaxSteps)
	v.SetDefault("serial.port", d.Serial.Port)
	v.SetDefault("serial.baud", d.Serial.Baud)
	v.SetDefault("serial.driver", d.Serial.Driver)
	v.SetDefault("serial.read_timeout", d.Serial.ReadTimeout)
	v.SetDefault("dispatch.address_by", d.Dispatch.AddressBy)
	v.SetDefault("dispatch.ack_timeout", d.Dispatch.AckTimeout)
	v.SetDefault("dispatch.read_log_size", d.Dispatch.ReadLogSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	return &Loader{v: v, EnvFile: ".env"}
}

// Load reads the config file named by MACHINECTL_CONFIG_PATH, or
// ./machinectl.yaml if it exists, falling back to defaults.
func (l *Loader) Load() (*Config, error) {
	l.loadEnvFile()

	path := os.Getenv(EnvPrefix + "_CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path == "" {
		return l.unmarshal()
	}
	return l.readFile(path)
}

// LoadFromFile reads configuration from path. Environment overrides still
// apply.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.loadEnvFile()
	return l.readFile(path)
}

func (l *Loader) loadEnvFile() {
	if l.EnvFile == "" {
		return
	}
	if err := godotenv.Load(l.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("reading %s: %s", l.EnvFile, err)
	}
}

func (l *Loader) readFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	log.Debugf("loaded config from %s", path)
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyDefaults fills in the list and map settings, which viper cannot
// default per element.
func applyDefaults(cfg *Config) {
	d := DefaultConfig()
	if len(cfg.Machine.Axes) == 0 {
		cfg.Machine.Axes = d.Machine.Axes
	}
	if len(cfg.Kinematics.Stages) == 0 {
		cfg.Kinematics.Stages = d.Kinematics.Stages
	}
	if cfg.Motors.Map == nil {
		cfg.Motors.Map = d.Motors.Map
	}
	if cfg.Motors.Available == nil {
		cfg.Motors.Available = d.Motors.Available
	}
}
