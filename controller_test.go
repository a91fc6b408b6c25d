package machinectl

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_ScenarioA_Move(t *testing.T) {
	ch := &mockChannel{}
	solver := &mockSolver{plan: StepPlan{"x": 30, "y": 30}}
	c := newTestController(t, solver, ch)

	res, err := c.Move(context.Background(), MoveRequest{30, 30})

	require.NoError(t, err)
	assert.Equal(t, Committed, res.State)
	assert.Equal(t, Position{30, 30}, c.Position())
	assert.Equal(t, Position{0, 0}, res.From)
	assert.Equal(t, Displacement{30, 30}, res.Displacement)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, `{"inst":"move","steps":{"x":30,"y":30}}`+"\n", ch.Written())
}

func TestController_ScenarioB_AxisCountMismatch(t *testing.T) {
	ch := &mockChannel{}
	solver := &mockSolver{}
	c := newTestController(t, solver, ch)

	res, err := c.Move(context.Background(), MoveRequest{10, 10, 10})

	assert.ErrorIs(t, err, ErrAxisCountMismatch)
	var countErr *AxisCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, 3, countErr.Got)
	assert.Equal(t, 2, countErr.Want)
	assert.Equal(t, Rejected, res.State)
	assert.Equal(t, Position{0, 0}, c.Position())
	assert.Empty(t, solver.calls)
	assert.Zero(t, ch.Writes())
}

func TestController_ScenarioC_OutOfBounds(t *testing.T) {
	ch := &mockChannel{}
	c := newTestController(t, &mockSolver{}, ch)

	_, err := c.Move(context.Background(), MoveRequest{150, 50})

	var boundsErr *OutOfBoundsError
	require.ErrorAs(t, err, &boundsErr)
	assert.Equal(t, 0, boundsErr.Axis)
	assert.Equal(t, "x", boundsErr.AxisID)
	assert.Equal(t, 100, boundsErr.Bound)
	assert.Equal(t, Position{0, 0}, c.Position())
	assert.Zero(t, ch.Writes())
}

func TestController_ScenarioD_TransportFailure(t *testing.T) {
	ch := &mockChannel{writeErr: errors.New("device unplugged")}
	c := newTestController(t, &mockSolver{}, ch)

	res, err := c.Move(context.Background(), MoveRequest{50, 50})

	assert.ErrorIs(t, err, ErrTransportWrite)
	assert.Contains(t, err.Error(), "device unplugged")
	assert.Equal(t, Rejected, res.State)
	assert.Equal(t, Position{0, 0}, c.Position())
	// The channel stays attached so the next move can be tried.
	assert.True(t, c.Connected())

	ch.mx.Lock()
	ch.writeErr = nil
	ch.mx.Unlock()
	_, err = c.Move(context.Background(), MoveRequest{50, 50})
	require.NoError(t, err)
	assert.Equal(t, Position{50, 50}, c.Position())
}

func TestController_ScenarioE_Displacement(t *testing.T) {
	ch := &mockChannel{}
	solver := &mockSolver{}
	c := newTestController(t, solver, ch)

	_, err := c.Move(context.Background(), MoveRequest{30, 30})
	require.NoError(t, err)
	res, err := c.Move(context.Background(), MoveRequest{50, 20})
	require.NoError(t, err)

	assert.Equal(t, Displacement{20, -10}, res.Displacement)
	assert.Equal(t, Displacement{20, -10}, solver.calls[1])
	assert.Equal(t, Position{50, 20}, c.Position())
}

func TestController_IKUnsolvable(t *testing.T) {
	tests := []struct {
		name      string
		solverErr error
	}{
		{name: "sentinel", solverErr: ErrIKUnsolvable},
		{name: "plain error", solverErr: errors.New("singular configuration")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChannel{}
			c := newTestController(t, &mockSolver{err: tt.solverErr}, ch)

			res, err := c.Move(context.Background(), MoveRequest{10, 10})

			assert.ErrorIs(t, err, ErrIKUnsolvable)
			assert.ErrorIs(t, err, tt.solverErr)
			assert.Equal(t, Rejected, res.State)
			assert.Equal(t, Position{0, 0}, c.Position())
			assert.Zero(t, ch.Writes())
		})
	}
}

func TestController_ChannelUnavailable(t *testing.T) {
	c := newTestController(t, &mockSolver{}, nil)

	err := c.Connect("/dev/missing")
	assert.ErrorIs(t, err, ErrConnection)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "/dev/missing", connErr.Address)

	_, err = c.Move(context.Background(), MoveRequest{10, 10})
	assert.ErrorIs(t, err, ErrChannelUnavailable)
	assert.Equal(t, Position{0, 0}, c.Position())
}

func TestController_IdempotentRejection(t *testing.T) {
	targets := []MoveRequest{{10}, {10, 10, 10}, {-1, 0}, {0, 101}}

	for _, target := range targets {
		t.Run(target.String(), func(t *testing.T) {
			c := newTestController(t, &mockSolver{}, &mockChannel{})
			_, err := c.Move(context.Background(), MoveRequest{40, 40})
			require.NoError(t, err)

			_, err1 := c.Move(context.Background(), target)
			_, err2 := c.Move(context.Background(), target)

			require.Error(t, err1)
			assert.Equal(t, err1.Error(), err2.Error())
			assert.Equal(t, errors.Is(err1, ErrOutOfBounds), errors.Is(err2, ErrOutOfBounds))
			assert.Equal(t, errors.Is(err1, ErrAxisCountMismatch), errors.Is(err2, ErrAxisCountMismatch))
			assert.Equal(t, Position{40, 40}, c.Position())
		})
	}
}

func TestController_BoundsInvariant(t *testing.T) {
	c := newTestController(t, &mockSolver{}, &mockChannel{})
	axes := c.Axes()

	for i := -20; i <= 120; i += 7 {
		_, _ = c.Move(context.Background(), MoveRequest{i, 120 - i})
		pos := c.Position()
		for a := range pos {
			min, max := axes.Bounds(a)
			assert.GreaterOrEqual(t, pos[a], min)
			assert.LessOrEqual(t, pos[a], max)
		}
	}
}

func TestController_StateTransitions(t *testing.T) {
	var (
		mx     sync.Mutex
		states []MoveState
	)
	record := func(id string, s MoveState) {
		mx.Lock()
		defer mx.Unlock()
		states = append(states, s)
	}

	ch := &mockChannel{}
	c, err := NewController(Options{
		Axes:    plotterAxes(t),
		Solver:  &mockSolver{},
		Opener:  func(string) (io.ReadWriteCloser, error) { return ch, nil },
		OnState: record,
	})
	require.NoError(t, err)
	require.NoError(t, c.Connect("/dev/test"))
	defer c.Disconnect()

	_, err = c.Move(context.Background(), MoveRequest{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []MoveState{Validating, Computing, Dispatching, Committed, Idle}, states)

	states = nil
	_, err = c.Move(context.Background(), MoveRequest{1000, 1})
	require.Error(t, err)
	assert.Equal(t, []MoveState{Validating, Rejected, Idle}, states)
	assert.Equal(t, Idle, c.State())
}

func TestController_CommitAtomicity(t *testing.T) {
	ch := &mockChannel{}
	c := newTestController(t, &mockSolver{}, ch)
	targets := []MoveRequest{{10, 90}, {90, 10}, {50, 50}, {0, 100}}

	valid := map[string]bool{Position{0, 0}.String(): true}
	for _, tgt := range targets {
		valid[Position(tgt).String()] = true
	}

	done := make(chan struct{})
	var observed []Position
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			observed = append(observed, c.Position())
		}
	}()

	var wg sync.WaitGroup
	for _, tgt := range targets {
		wg.Add(1)
		go func(tgt MoveRequest) {
			defer wg.Done()
			_, err := c.Move(context.Background(), tgt)
			assert.NoError(t, err)
		}(tgt)
	}
	wg.Wait()
	<-done

	for _, p := range observed {
		assert.True(t, valid[p.String()], "observed intermediate position %v", p)
	}
	assert.True(t, valid[c.Position().String()])
	assert.Equal(t, len(targets), ch.Writes())
}

func TestController_Reconnect(t *testing.T) {
	first := &mockChannel{}
	second := &mockChannel{}
	channels := []*mockChannel{first, second}

	c, err := NewController(Options{
		Axes:   plotterAxes(t),
		Solver: &mockSolver{},
		Opener: func(string) (io.ReadWriteCloser, error) {
			ch := channels[0]
			channels = channels[1:]
			return ch, nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, c.Connect("/dev/a"))
	require.NoError(t, c.Reconnect("/dev/b"))
	defer c.Disconnect()

	assert.True(t, first.Closed())
	_, err = c.Move(context.Background(), MoveRequest{5, 5})
	require.NoError(t, err)
	assert.Empty(t, first.Written())
	assert.NotEmpty(t, second.Written())
}

func TestController_ConnectFailureClearsChannel(t *testing.T) {
	ch := &mockChannel{}
	fail := false
	c, err := NewController(Options{
		Axes:   plotterAxes(t),
		Solver: &mockSolver{},
		Opener: func(string) (io.ReadWriteCloser, error) {
			if fail {
				return nil, errors.New("busy")
			}
			return ch, nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, c.Connect("/dev/a"))

	fail = true
	assert.Error(t, c.Reconnect("/dev/b"))
	assert.False(t, c.Connected())
	assert.True(t, ch.Closed())
}

func TestController_ConnectLogsCloseFailure(t *testing.T) {
	hook := logtest.NewGlobal()
	defer log.StandardLogger().ReplaceHooks(make(log.LevelHooks))

	busy := errors.New("busy")
	tests := []struct {
		name   string
		opener Opener
	}{
		{name: "no opener"},
		{name: "opener fails", opener: func(string) (io.ReadWriteCloser, error) { return nil, busy }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			ch := &mockChannel{closeErr: errors.New("port wedged")}
			d := NewDispatcher(DispatchConfig{})
			d.Attach(ch)

			c, err := NewController(Options{
				Axes:       plotterAxes(t),
				Solver:     &mockSolver{},
				Dispatcher: d,
				Opener:     tt.opener,
			})
			require.NoError(t, err)

			assert.ErrorIs(t, c.Connect("/dev/b"), ErrConnection)
			assert.False(t, c.Connected())

			var logged bool
			for _, e := range hook.AllEntries() {
				if e.Level == log.WarnLevel && e.Message == "closing previous channel: port wedged" {
					logged = true
				}
			}
			assert.True(t, logged, "close error was not logged")
		})
	}
}

func TestNewController_Errors(t *testing.T) {
	axes := plotterAxes(t)

	_, err := NewController(Options{Solver: &mockSolver{}})
	assert.Error(t, err)

	_, err = NewController(Options{Axes: axes})
	assert.Error(t, err)

	_, err = NewController(Options{Axes: axes, Solver: &mockSolver{}, Origin: Position{0, 200}})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = NewController(Options{Axes: axes, Solver: &mockSolver{}, Origin: Position{0}})
	assert.ErrorIs(t, err, ErrAxisCountMismatch)

	c, err := NewController(Options{Axes: axes, Solver: &mockSolver{}, Origin: Position{5, 6}})
	require.NoError(t, err)
	assert.Equal(t, Position{5, 6}, c.Position())
}

func TestController_PositionIsACopy(t *testing.T) {
	c := newTestController(t, &mockSolver{}, nil)
	p := c.Position()
	p[0] = 99
	assert.Equal(t, Position{0, 0}, c.Position())
}

func TestController_Remap(t *testing.T) {
	c, err := NewController(Options{
		Axes:            plotterAxes(t),
		Solver:          &mockSolver{},
		Stages:          []string{"y", "x1", "x2"},
		AvailableMotors: []string{"PHYS_X", "PHYS_Y", "PHYS_Z"},
		Motors:          MotorMap{"y": "PHYS_X"},
	})
	require.NoError(t, err)

	answers := []string{"PHYS_X", "PHYS_Y", "PHYS_Z"}
	m, err := c.Remap(AskerFunc(func(q string) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}))
	require.NoError(t, err)

	want := MotorMap{"y": "PHYS_X", "x1": "PHYS_Y", "x2": "PHYS_Z"}
	assert.Equal(t, want, m)
	assert.Equal(t, want, c.MotorMap())

	_, err = c.Remap(AskerFunc(func(string) (string, error) { return "", io.EOF }))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, want, c.MotorMap())
}

func TestMoveState_String(t *testing.T) {
	assert.Equal(t, "dispatching", Dispatching.String())
	assert.Equal(t, "MoveState(42)", MoveState(42).String())
}
