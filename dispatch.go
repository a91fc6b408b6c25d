package machinectl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// MoveInstruction is the "inst" value of a move message.
const MoveInstruction = "move"

// DefaultReadLogSize is the number of inbound bytes kept for inspection.
const DefaultReadLogSize = 4096

// AddressMode selects what the keys of the wire "steps" object name.
type AddressMode string

const (
	// AddressStages sends bare stage names, e.g. {"x1": 30}.
	AddressStages AddressMode = "stage"
	// AddressMotors sends the physical motor mapped to each stage.
	AddressMotors AddressMode = "motor"
)

type moveMessage struct {
	Inst string `json:"inst"`
	// Seq numbers moves in acknowledgment mode so late acks can be told
	// apart. Zero is left out.
	Seq   uint64         `json:"seq,omitempty"`
	Steps map[string]int `json:"steps"`
}

type ackMessage struct {
	OK    *bool   `json:"ok"`
	Seq   *uint64 `json:"seq,omitempty"`
	Error string  `json:"error,omitempty"`
}

// DispatchConfig configures a Dispatcher.
type DispatchConfig struct {
	AddressBy AddressMode
	// AckTimeout enables acknowledgment mode when positive: after writing a
	// move the dispatcher waits this long for a {"ok":...} line. When zero a
	// move succeeds as soon as the write is accepted.
	AckTimeout  time.Duration
	ReadLogSize int
}

// Dispatcher owns the hardware channel and sends step plans over it.
type Dispatcher struct {
	cfg DispatchConfig

	mx        sync.Mutex
	ch        io.ReadWriteCloser
	readLog   *ReadLog
	responses chan []byte
	done      chan struct{}
	seq       uint64
}

// NewDispatcher returns a Dispatcher with no channel attached.
func NewDispatcher(cfg DispatchConfig) *Dispatcher {
	if cfg.AddressBy == "" {
		cfg.AddressBy = AddressStages
	}
	if cfg.ReadLogSize <= 0 {
		cfg.ReadLogSize = DefaultReadLogSize
	}
	return &Dispatcher{cfg: cfg}
}

// Attach makes ch the hardware channel, closing any previous one, and starts
// reading from it.
func (d *Dispatcher) Attach(ch io.ReadWriteCloser) {
	d.mx.Lock()
	defer d.mx.Unlock()

	if err := d.detach(); err != nil {
		log.Warnf("closing previous channel: %s", err)
	}
	if ch == nil {
		return
	}

	d.ch = ch
	d.readLog = NewReadLog(d.cfg.ReadLogSize, ch)
	d.responses = make(chan []byte, 8)
	d.done = make(chan struct{})

	go d.process(bufio.NewReader(d.readLog), d.responses, d.done)
}

// Detach closes the channel, if any. Later dispatches fail with
// ErrChannelUnavailable.
func (d *Dispatcher) Detach() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.detach()
}

func (d *Dispatcher) detach() error {
	if d.ch == nil {
		return nil
	}
	close(d.done)
	err := d.ch.Close()
	d.ch = nil
	d.responses = nil
	return err
}

// Connected reports whether a channel is attached.
func (d *Dispatcher) Connected() bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.ch != nil
}

// ReadLog returns the most recent bytes received on the current channel. It
// is kept after Detach until the next Attach.
func (d *Dispatcher) ReadLog() []byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.readLog == nil {
		return nil
	}
	return d.readLog.Bytes()
}

// Dispatch sends plan to the hardware as a single newline-terminated JSON
// line. motors is only consulted when addressing physical motors.
//
// In acknowledgment mode each frame carries the next sequence number and
// only an ack echoing that number, or an ack with no number, settles it.
func (d *Dispatcher) Dispatch(ctx context.Context, plan StepPlan, motors MotorMap) error {
	d.mx.Lock()
	defer d.mx.Unlock()

	var seq uint64
	if d.cfg.AckTimeout > 0 {
		seq = d.seq + 1
	}
	frame, err := d.encode(plan, motors, seq)
	if err != nil {
		return err
	}

	if d.ch == nil {
		return ErrChannelUnavailable
	}

	if d.cfg.AckTimeout > 0 {
		d.seq = seq
		drain(d.responses)
	}

	if err := d.write(frame, "--> Move"); err != nil {
		return err
	}

	if d.cfg.AckTimeout > 0 {
		return d.awaitAck(ctx, d.responses, seq)
	}
	return nil
}

// Encode returns the wire frame for plan without sending it. The frame has
// no sequence number.
func (d *Dispatcher) Encode(plan StepPlan, motors MotorMap) ([]byte, error) {
	return d.encode(plan, motors, 0)
}

func (d *Dispatcher) encode(plan StepPlan, motors MotorMap, seq uint64) ([]byte, error) {
	stages, err := plan.Stages()
	if err != nil {
		return nil, fmt.Errorf("building move message: %w", err)
	}

	steps := stages
	if d.cfg.AddressBy == AddressMotors {
		steps = make(map[string]int, len(stages))
		owner := make(map[string]string, len(stages))
		for stage, n := range stages {
			motor, ok := motors[stage]
			if !ok || motor == "" {
				return nil, &UnmappedStageError{Stage: stage, Motors: motors.Clone()}
			}
			if other, dup := owner[motor]; dup {
				return nil, fmt.Errorf("stages %q and %q both map to motor %q", other, stage, motor)
			}
			owner[motor] = stage
			steps[motor] = n
		}
	}

	data, err := json.Marshal(moveMessage{Inst: MoveInstruction, Seq: seq, Steps: steps})
	if err != nil {
		return nil, fmt.Errorf("encoding move message: %w", err)
	}
	return append(data, '\n'), nil
}

func (d *Dispatcher) write(frame []byte, title string) error {
	log.Debugf("%s %s", title, frame[:len(frame)-1])
	n, err := d.ch.Write(frame)
	if err != nil {
		return &TransportError{Err: err}
	}
	if n != len(frame) {
		return &TransportError{Err: io.ErrShortWrite}
	}
	return nil
}

func (d *Dispatcher) awaitAck(ctx context.Context, responses <-chan []byte, seq uint64) error {
	timeout := time.NewTimer(d.cfg.AckTimeout)
	defer timeout.Stop()

	for {
		select {
		case line := <-responses:
			var ack ackMessage
			if err := json.Unmarshal(line, &ack); err != nil || ack.OK == nil {
				log.Debugf("ignoring non-ack line while waiting for ack: %q", line)
				continue
			}
			if ack.Seq != nil && *ack.Seq != seq {
				log.Debugf("ignoring ack for move %d while waiting for %d", *ack.Seq, seq)
				continue
			}
			if !*ack.OK {
				return &NackError{Reason: ack.Error}
			}
			log.Debugf("<-- Ack")
			return nil
		case <-timeout.C:
			return fmt.Errorf("%w after %s", ErrAckTimeout, d.cfg.AckTimeout)
		case <-ctx.Done():
			return fmt.Errorf("waiting for ack: %w", ctx.Err())
		}
	}
}

// process reads newline-terminated lines from the hardware until the
// channel is detached. Lines are only queued for awaitAck in acknowledgment
// mode; otherwise they are just logged.
func (d *Dispatcher) process(r *bufio.Reader, responses chan<- []byte, done <-chan struct{}) {
	var pending []byte
	for {
		chunk, err := r.ReadBytes('\n')
		pending = append(pending, chunk...)

		if err == nil {
			line := pending[:len(pending)-1]
			pending = nil
			log.Debugf("<-- %s", line)
			if d.cfg.AckTimeout > 0 {
				select {
				case responses <- line:
				default:
					log.Warnf("dropping hardware line: %q", line)
				}
			}
			continue
		}

		select {
		case <-done:
			return
		default:
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrNoProgress) {
			log.Warnf("reading from hardware: %s", err)
			return
		}
		<-time.After(5 * time.Millisecond)
	}
}

func drain(ch <-chan []byte) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
