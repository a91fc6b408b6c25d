package machinectl

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrAxisCountMismatch  = errors.New("axis count mismatch")
	ErrOutOfBounds        = errors.New("target out of bounds")
	ErrIKUnsolvable       = errors.New("no step plan for displacement")
	ErrChannelUnavailable = errors.New("no hardware channel connected")
	ErrTransportWrite     = errors.New("hardware write failed")
	ErrConnection         = errors.New("could not connect to hardware")
	ErrUnmappedStage      = errors.New("stage has no motor mapping")
	ErrAckTimeout         = errors.New("timed out waiting for hardware acknowledgment")
	ErrNack               = errors.New("hardware rejected move")
)

// AxisCountError is returned when a target has the wrong number of
// coordinates.
type AxisCountError struct {
	Target MoveRequest
	Got    int
	Want   int
}

func (e *AxisCountError) Error() string {
	return fmt.Sprintf("%v has %d axes, but I need %d", e.Target, e.Got, e.Want)
}

func (e *AxisCountError) Is(target error) bool {
	return target == ErrAxisCountMismatch
}

// OutOfBoundsError identifies the first axis of a target that falls outside
// its configured limits.
type OutOfBoundsError struct {
	Axis   int
	AxisID string
	Value  int
	// Bound is the limit that was crossed, either Min or Max.
	Bound int
	Min   int
	Max   int
}

func (e *OutOfBoundsError) Error() string {
	side := "max"
	if e.Value < e.Min {
		side = "min"
	}
	return fmt.Sprintf("axis %d (%s) = %d is outside my bounds %d to %d (violates %s %d)",
		e.Axis, e.AxisID, e.Value, e.Min, e.Max, side, e.Bound)
}

func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// TransportError wraps a failed write to the hardware channel.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("writing to hardware: %s", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransportWrite
}

// ConnectionError is returned when a hardware channel cannot be opened.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to port %s: %s", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// UnmappedStageError is returned when steps are addressed to physical motors
// and a stage in the plan has no entry in the motor map.
type UnmappedStageError struct {
	Stage  string
	Motors MotorMap
}

func (e *UnmappedStageError) Error() string {
	return fmt.Sprintf("stage %q has no motor mapping in %v", e.Stage, e.Motors)
}

func (e *UnmappedStageError) Is(target error) bool {
	return target == ErrUnmappedStage
}

// NackError carries the reason the hardware gave for refusing a move.
type NackError struct {
	Reason string
}

func (e *NackError) Error() string {
	if e.Reason == "" {
		return ErrNack.Error()
	}
	return fmt.Sprintf("%s: %s", ErrNack, e.Reason)
}

func (e *NackError) Is(target error) bool {
	return target == ErrNack
}
