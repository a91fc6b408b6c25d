package machinectl

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// mockChannel is an in-memory hardware channel. Writes are recorded; reads
// return whatever has been queued with Respond.
type mockChannel struct {
	mx       sync.Mutex
	written  bytes.Buffer
	inbound  bytes.Buffer
	writeErr error
	closeErr error
	short    bool
	closed   bool
	writes   int
	onWrite  func(frame []byte)
}

func (c *mockChannel) Read(p []byte) (int, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed {
		return 0, errors.New("channel closed")
	}
	if c.inbound.Len() == 0 {
		return 0, io.EOF
	}
	return c.inbound.Read(p)
}

func (c *mockChannel) Write(p []byte) (int, error) {
	c.mx.Lock()
	c.writes++
	if c.writeErr != nil {
		c.mx.Unlock()
		return 0, c.writeErr
	}
	if c.short {
		c.mx.Unlock()
		return len(p) / 2, nil
	}
	c.written.Write(p)
	onWrite := c.onWrite
	c.mx.Unlock()

	if onWrite != nil {
		onWrite(append([]byte(nil), p...))
	}
	return len(p), nil
}

func (c *mockChannel) Close() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *mockChannel) Respond(line string) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.inbound.WriteString(line)
}

func (c *mockChannel) Written() string {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.written.String()
}

func (c *mockChannel) Writes() int {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.writes
}

func (c *mockChannel) Closed() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.closed
}

// mockSolver returns a fixed plan (or error) and records the displacements
// it was asked to solve.
type mockSolver struct {
	plan  StepPlan
	err   error
	calls []Displacement
}

func (s *mockSolver) Solve(d Displacement) (StepPlan, error) {
	s.calls = append(s.calls, append(Displacement(nil), d...))
	if s.err != nil {
		return nil, s.err
	}
	if s.plan != nil {
		return s.plan, nil
	}
	plan := make(StepPlan, len(d))
	for i, v := range d {
		plan[[]string{"x", "y", "z"}[i]] = v
	}
	return plan, nil
}

func plotterAxes(t *testing.T) *AxisConfig {
	t.Helper()
	axes, err := NewAxisConfig([]string{"x", "y"}, []int{0, 0}, []int{100, 100})
	require.NoError(t, err)
	return axes
}

func newTestController(t *testing.T, solver Solver, ch *mockChannel) *Controller {
	t.Helper()
	c, err := NewController(Options{
		Axes:   plotterAxes(t),
		Solver: solver,
		Opener: func(address string) (io.ReadWriteCloser, error) {
			if ch == nil {
				return nil, errors.New("no such device")
			}
			return ch, nil
		},
	})
	require.NoError(t, err)
	if ch != nil {
		require.NoError(t, c.Connect("/dev/test"))
		t.Cleanup(func() { c.Disconnect() })
	}
	return c
}
