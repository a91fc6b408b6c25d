package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kerinin/machinectl/internal/config"
	"github.com/kerinin/machinectl/internal/shell"
)

type rootFlags struct {
	configPath string
	port       string
	driver     string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "machinectl",
		Short: "Interactive controller for a multi-axis positioning machine",
		Long: `machinectl moves a plotter/CNC-style machine to absolute coordinates.

Targets are checked against the configured axis limits, converted into a
relative displacement, solved into motor steps and sent to the controller
board over a serial port as one line of JSON per move.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ./machinectl.yaml)")
	root.PersistentFlags().StringVar(&flags.port, "port", "", "serial device to connect to at start-up")
	root.PersistentFlags().StringVar(&flags.driver, "driver", "", "serial driver: goserial, jacobsa, tarm or term")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive session (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runShell(cmd, flags)
			},
		},
		&cobra.Command{
			Use:   "config",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd, flags)
				if err != nil {
					return err
				}
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			},
		},
	)
	return root
}

func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	loader := config.NewLoader()

	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = loader.LoadFromFile(flags.configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("port") {
		cfg.Serial.Port = flags.port
	}
	if cmd.Flags().Changed("driver") {
		cfg.Serial.Driver = flags.driver
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runShell(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	if err := cfg.Log.Apply(); err != nil {
		return err
	}

	ctl, err := cfg.Controller()
	if err != nil {
		return fmt.Errorf("building controller: %w", err)
	}
	defer func() {
		if err := ctl.Disconnect(); err != nil {
			log.Warnf("closing hardware channel: %s", err)
		}
	}()

	if cfg.Serial.Port != "" {
		// A failed connect is not fatal; "connect <port>" can retry.
		if err := ctl.Connect(cfg.Serial.Port); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}

	return shell.New(ctl, os.Stdin, cmd.OutOrStdout()).Run(cmd.Context())
}
