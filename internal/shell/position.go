package shell

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPosCommand(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "pos",
		Short: "Show the current position and axis limits",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			axes := s.ctl.Axes()
			pos := s.ctl.Position()

			parts := make([]string, axes.Len())
			for i, id := range axes.IDs() {
				min, max := axes.Bounds(i)
				parts[i] = fmt.Sprintf("%s=%d [%d..%d]", id, pos[i], min, max)
			}
			status := "disconnected"
			if s.ctl.Connected() {
				status = "connected"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", strings.Join(parts, " "), status)
		},
	}
}
