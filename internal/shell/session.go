// Package shell is the interactive command session around a Controller.
//
// Each input line is split into fields and run through a fresh cobra
// command tree, so commands behave like small CLI programs: "move 30 30",
// "connect /dev/ttyACM0", "map", "getmap", "pos", "log", "bye".
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kerinin/machinectl"
)

// ErrInputClosed is returned when input ends while a command is waiting for
// an answer.
var ErrInputClosed = errors.New("input closed")

// Session reads commands from in and writes results to out.
type Session struct {
	ctl  *machinectl.Controller
	in   *bufio.Scanner
	out  io.Writer
	done bool

	// Input is scanned on its own goroutine so a blocked read never holds
	// up cancellation.
	startRead sync.Once
	lines     chan string
	readErr   error

	// ctx is the context of the running command, used by Ask.
	ctx context.Context
}

// New returns a Session driving ctl.
func New(ctl *machinectl.Controller, in io.Reader, out io.Writer) *Session {
	return &Session{
		ctl:   ctl,
		in:    bufio.NewScanner(in),
		out:   out,
		lines: make(chan string),
		ctx:   context.Background(),
	}
}

// next returns the next input line. It returns io.EOF at the end of input
// and ctx.Err() if ctx is done first.
func (s *Session) next(ctx context.Context) (string, error) {
	s.startRead.Do(func() {
		go func() {
			defer close(s.lines)
			for s.in.Scan() {
				s.lines <- s.in.Text()
			}
			s.readErr = s.in.Err()
		}()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			if s.readErr != nil {
				return "", s.readErr
			}
			return "", io.EOF
		}
		return line, nil
	}
}

// Prompt is printed before each command.
func (s *Session) Prompt() string {
	return fmt.Sprintf("machine %v > ", s.ctl.Axes().IDs())
}

// Run reads and executes commands until "bye", end of input, or ctx is
// cancelled, even while waiting for a line. Command failures are printed and
// never end the session.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Welcome to the interpreter.")
	for !s.done {
		fmt.Fprint(s.out, promptStyle.Render(s.Prompt()))
		line, err := s.next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), ctx.Err() != nil:
			fmt.Fprintln(s.out)
			return nil
		default:
			return err
		}
		s.Exec(ctx, line)
	}
	return nil
}

// Exec runs one command line. The error is also printed to out.
func (s *Session) Exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	s.ctx = ctx
	defer func() { s.ctx = context.Background() }()

	root := s.commands()
	root.SetArgs(args)
	root.SetOut(s.out)
	root.SetErr(s.out)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(s.out, errStyle.Render(err.Error()))
	}
	return err
}

// Done reports whether "bye" has been run.
func (s *Session) Done() bool {
	return s.done
}

func (s *Session) commands() *cobra.Command {
	root := &cobra.Command{
		Use:           "machine",
		Short:         "Move the machine and manage its hardware connection",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddCommand(
		newMoveCommand(s),
		newMapCommand(s),
		newGetMapCommand(s),
		newConnectCommand(s),
		newPosCommand(s),
		newLogCommand(s),
		newByeCommand(s),
	)
	return root
}

// Ask implements machinectl.Asker by printing question and reading the next
// input line.
func (s *Session) Ask(question string) (string, error) {
	fmt.Fprint(s.out, question)
	line, err := s.next(s.ctx)
	if errors.Is(err, io.EOF) {
		return "", ErrInputClosed
	}
	return line, err
}
