package serial

import (
	"io"

	"github.com/huin/goserial"
	jacobsa "github.com/jacobsa/go-serial/serial"
	tarm "github.com/tarm/serial"
)

func openTarm(device string, cfg Config) (io.ReadWriteCloser, error) {
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}

func openGoserial(device string, cfg Config) (io.ReadWriteCloser, error) {
	return goserial.OpenPort(&goserial.Config{Name: device, Baud: cfg.Baud})
}

func openJacobsa(device string, cfg Config) (io.ReadWriteCloser, error) {
	opts := jacobsa.OpenOptions{
		PortName:        device,
		BaudRate:        uint(cfg.Baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	if cfg.ReadTimeout > 0 {
		// InterCharacterTimeout is in milliseconds, a multiple of 100, and
		// requires a zero MinimumReadSize.
		ms := (cfg.ReadTimeout.Milliseconds() + 99) / 100 * 100
		opts.MinimumReadSize = 0
		opts.InterCharacterTimeout = uint(ms)
	}
	return jacobsa.Open(opts)
}
