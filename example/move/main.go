// Command move sends a single absolute move to the machine and exits.
//
//	go run ./example/move -serial-port /dev/ttyACM0 -- 10 -5
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kerinin/machinectl"
	"github.com/kerinin/machinectl/internal/config"
	"github.com/kerinin/machinectl/internal/serial"
)

var (
	serialPort = flag.String("serial-port", "/dev/tty.usbmodem14101", "The serial port the controller board is on")
	driver     = flag.String("driver", serial.DriverTarm, "Serial driver")
	baud       = flag.Int("baud", 9600, "Serial port Baud Rate")
	ack        = flag.Duration("ack", 0, "Wait this long for the board to confirm the move (0 disables)")
)

func main() {
	flag.Parse()
	log.SetLevel(log.DebugLevel)

	if err := run(flag.Args()); err != nil {
		log.Fatalf("%s", err)
	}
}

func run(args []string) error {
	target := make(machinectl.MoveRequest, 0, len(args))
	for _, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q: %w", arg, err)
		}
		target = append(target, v)
	}

	cfg := config.DefaultConfig()
	cfg.Serial.Port = *serialPort
	cfg.Serial.Driver = *driver
	cfg.Serial.Baud = *baud
	cfg.Dispatch.AckTimeout = *ack
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctl, err := cfg.Controller()
	if err != nil {
		return fmt.Errorf("failed to build controller: %w", err)
	}

	log.Infof("opening port %s", *serialPort)
	if err := ctl.Connect(*serialPort); err != nil {
		return err
	}
	defer func() {
		if err := ctl.Disconnect(); err != nil {
			log.Warnf("failed to close port: %s", err)
		}
	}()

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer func() {
		signal.Stop(c)
		cancel()
	}()
	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Infof("moving to %v", target)
	res, err := ctl.Move(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to move: %w", err)
	}
	log.Infof("move complete: %s -> %s steps %s", res.From, res.Target, res.Plan)

	// Give the reader a moment to collect anything the board printed.
	time.Sleep(100 * time.Millisecond)
	if out := ctl.ReadLog(); len(out) > 0 {
		log.Infof("board said: %q", out)
	}
	return nil
}
