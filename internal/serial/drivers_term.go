//go:build !windows

package serial

import (
	"io"

	"github.com/pkg/term"
)

func openTerm(device string, cfg Config) (io.ReadWriteCloser, error) {
	t, err := term.Open(device, term.Speed(cfg.Baud), term.RawMode)
	if err != nil {
		return nil, err
	}
	if cfg.ReadTimeout > 0 {
		if err := t.SetReadTimeout(cfg.ReadTimeout); err != nil {
			t.Close()
			return nil, err
		}
	}
	return t, nil
}
