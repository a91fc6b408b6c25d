package shell

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kerinin/machinectl"
)

func newMoveCommand(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "move <coord>...",
		Short: "Move to an absolute position, one integer per axis",
		Long: `Move to an absolute position, one integer per axis.

The target is checked against the axis limits, turned into a relative
displacement, solved into motor steps and sent to the hardware. The stored
position only changes if the move is sent successfully.`,
		Args: cobra.ArbitraryArgs,
		// Negative coordinates must not be read as flags.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseCoords(args)
			if err != nil {
				return err
			}

			res, err := s.ctl.Move(cmd.Context(), target)
			if res != nil && res.Plan != nil {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(fmt.Sprintf("steps %v", res.Plan)))
			}
			if err != nil {
				return fmt.Errorf("tried to move to %v, but couldn't: %w", target, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Moved successfully to %v", res.Target)))
			return nil
		},
	}
}

func parseCoords(args []string) (machinectl.MoveRequest, error) {
	target := make(machinectl.MoveRequest, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("can't understand where to move: %q is not an integer", a)
		}
		target[i] = v
	}
	return target, nil
}
