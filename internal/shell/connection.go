package shell

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConnectCommand(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <port>",
		Short: "Replace the hardware connection with one on port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ctl.Reconnect(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Connected to %s", args[0])))
			return nil
		},
	}
}

func newLogCommand(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Show the most recent bytes received from the hardware",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			data := s.ctl.ReadLog()
			if len(data) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(nothing received)")
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		},
	}
}

func newByeCommand(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:     "bye",
		Aliases: []string{"quit", "exit"},
		Short:   "End the session",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Bye!")
			s.done = true
		},
	}
}
