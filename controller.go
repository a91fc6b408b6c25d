package machinectl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MoveState is a step of the move pipeline.
type MoveState int32

const (
	Idle MoveState = iota
	Validating
	Computing
	Dispatching
	Committed
	Rejected
)

func (s MoveState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Computing:
		return "computing"
	case Dispatching:
		return "dispatching"
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("MoveState(%d)", int32(s))
	}
}

// Opener opens the hardware channel at address.
type Opener func(address string) (io.ReadWriteCloser, error)

// MoveResult describes one call to Controller.Move.
type MoveResult struct {
	ID           string
	From         Position
	Target       MoveRequest
	Displacement Displacement
	Plan         StepPlan
	State        MoveState
	Err          error
}

// Options configures a Controller.
type Options struct {
	Axes *AxisConfig
	// Origin is the starting position. nil means all zeros.
	Origin Position
	Solver Solver
	// Dispatcher defaults to NewDispatcher(DispatchConfig{}).
	Dispatcher *Dispatcher
	Opener     Opener

	// Stages and AvailableMotors drive Remap.
	Stages          []string
	AvailableMotors []string
	Motors          MotorMap

	// OnState, when set, is called on every pipeline transition. It runs
	// while the move holds the controller lock and must not call back into
	// the Controller.
	OnState func(id string, s MoveState)
}

// Controller runs moves one at a time and owns the machine's position.
type Controller struct {
	mx         sync.Mutex
	axes       *AxisConfig
	position   Position
	motors     MotorMap
	solver     Solver
	dispatcher *Dispatcher
	opener     Opener
	stages     []string
	available  []string
	onState    func(string, MoveState)
	state      atomic.Int32
}

// NewController returns a Controller positioned at opts.Origin. It does not
// connect to the hardware.
func NewController(opts Options) (*Controller, error) {
	if opts.Axes == nil {
		return nil, errors.New("no axis configuration")
	}
	if opts.Solver == nil {
		return nil, errors.New("no IK solver")
	}

	origin := opts.Origin.Clone()
	if origin == nil {
		origin = make(Position, opts.Axes.Len())
	}
	if err := Validate(MoveRequest(origin), opts.Axes); err != nil {
		return nil, fmt.Errorf("origin %v: %w", origin, err)
	}

	d := opts.Dispatcher
	if d == nil {
		d = NewDispatcher(DispatchConfig{})
	}

	return &Controller{
		axes:       opts.Axes,
		position:   origin,
		motors:     opts.Motors.Clone(),
		solver:     opts.Solver,
		dispatcher: d,
		opener:     opts.Opener,
		stages:     append([]string(nil), opts.Stages...),
		available:  append([]string(nil), opts.AvailableMotors...),
		onState:    opts.OnState,
	}, nil
}

// Axes returns the axis configuration.
func (c *Controller) Axes() *AxisConfig {
	return c.axes
}

// Position returns a copy of the current position.
func (c *Controller) Position() Position {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.position.Clone()
}

// State returns the pipeline state of the move in progress, or Idle.
func (c *Controller) State() MoveState {
	return MoveState(c.state.Load())
}

// Move drives the machine to target. The position changes only if every
// step succeeds; on failure the returned error says which check failed and
// the position is left as it was.
func (c *Controller) Move(ctx context.Context, target MoveRequest) (*MoveResult, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	res := &MoveResult{
		ID:     uuid.NewString(),
		From:   c.position.Clone(),
		Target: append(MoveRequest(nil), target...),
	}
	entry := log.WithField("move", res.ID)
	entry.Infof("Going to move to %v", res.Target)

	c.enter(res.ID, Validating)
	if err := Validate(res.Target, c.axes); err != nil {
		return c.reject(entry, res, err)
	}

	c.enter(res.ID, Computing)
	disp, err := Displace(res.Target, c.position)
	if err != nil {
		return c.reject(entry, res, err)
	}
	res.Displacement = disp

	plan, err := c.solver.Solve(disp)
	if err != nil {
		if !errors.Is(err, ErrIKUnsolvable) {
			err = fmt.Errorf("%w: %w", ErrIKUnsolvable, err)
		}
		return c.reject(entry, res, err)
	}
	res.Plan = plan
	entry.Debugf("displacement %v -> steps %v", disp, plan)

	c.enter(res.ID, Dispatching)
	if err := c.dispatcher.Dispatch(ctx, plan, c.motors); err != nil {
		return c.reject(entry, res, err)
	}

	c.position = Position(res.Target).Clone()
	res.State = Committed
	c.enter(res.ID, Committed)
	c.enter(res.ID, Idle)
	entry.Infof("Moved successfully to %v", c.position)
	return res, nil
}

func (c *Controller) reject(entry *log.Entry, res *MoveResult, err error) (*MoveResult, error) {
	res.State = Rejected
	res.Err = err
	c.enter(res.ID, Rejected)
	c.enter(res.ID, Idle)
	entry.Warnf("Tried to move, but couldn't: %s", err)
	return res, err
}

func (c *Controller) enter(id string, s MoveState) {
	c.state.Store(int32(s))
	if c.onState != nil {
		c.onState(id, s)
	}
}

// Connect opens the hardware channel at address. On failure any existing
// channel is closed and left unset.
func (c *Controller) Connect(address string) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.opener == nil {
		c.dropChannel()
		return &ConnectionError{Address: address, Err: errors.New("no channel opener configured")}
	}

	ch, err := c.opener(address)
	if err != nil {
		c.dropChannel()
		log.Warnf("Could not connect to port %s: %s", address, err)
		return &ConnectionError{Address: address, Err: err}
	}

	c.dispatcher.Attach(ch)
	log.Infof("Connected to %s", address)
	return nil
}

func (c *Controller) dropChannel() {
	if err := c.dispatcher.Detach(); err != nil {
		log.Warnf("closing previous channel: %s", err)
	}
}

// Reconnect replaces the hardware channel with one opened at address.
func (c *Controller) Reconnect(address string) error {
	return c.Connect(address)
}

// Disconnect closes the hardware channel.
func (c *Controller) Disconnect() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.dispatcher.Detach()
}

// Connected reports whether a hardware channel is open.
func (c *Controller) Connected() bool {
	return c.dispatcher.Connected()
}

// ReadLog returns the most recent bytes received from the hardware.
func (c *Controller) ReadLog() []byte {
	return c.dispatcher.ReadLog()
}

// MotorMap returns a copy of the stage to motor map.
func (c *Controller) MotorMap() MotorMap {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.motors.Clone()
}

// SetMotorMap replaces the stage to motor map.
func (c *Controller) SetMotorMap(m MotorMap) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.motors = m.Clone()
}

// Remap asks asker which physical motor drives each configured stage and
// installs the result. The existing map is kept if asking fails.
func (c *Controller) Remap(asker Asker) (MotorMap, error) {
	m, err := RemapMotors(c.stages, c.available, asker)
	if err != nil {
		return nil, err
	}
	c.SetMotorMap(m)
	return m.Clone(), nil
}
