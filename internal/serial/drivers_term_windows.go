package serial

import (
	"errors"
	"io"
)

func openTerm(device string, cfg Config) (io.ReadWriteCloser, error) {
	return nil, errors.New("the term driver is not available on windows")
}
