package shell

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kerinin/machinectl"
)

func newMapCommand(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "map",
		Short: "Ask which physical motor drives each stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.ctl.Remap(s)
			if err != nil {
				return fmt.Errorf("mapping motors: %w", err)
			}
			printMotorMap(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func newGetMapCommand(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "getmap",
		Short: "Show the stage to motor map",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printMotorMap(cmd.OutOrStdout(), s.ctl.MotorMap())
		},
	}
}

func printMotorMap(w io.Writer, m machinectl.MotorMap) {
	if len(m) == 0 {
		fmt.Fprintln(w, "(no motors mapped)")
		return
	}
	stages := make([]string, 0, len(m))
	for stage := range m {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		fmt.Fprintf(w, "  %s -> %s\n", stage, m[stage])
	}
}
