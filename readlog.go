package machinectl

import (
	"fmt"
	"io"
	"sync"

	"github.com/smallnest/ringbuffer"
)

// ReadLog keeps the most recent bytes read from a reader. Older bytes are
// dropped once capacity is reached.
type ReadLog struct {
	mx  sync.Mutex
	buf *ringbuffer.RingBuffer
	r   io.Reader
}

func NewReadLog(capacity int, in io.Reader) *ReadLog {
	return &ReadLog{buf: ringbuffer.New(capacity), r: in}
}

func (l *ReadLog) Read(p []byte) (n int, err error) {
	n, err = l.r.Read(p)
	if n > 0 {
		if logErr := l.record(p[:n]); logErr != nil {
			return n, fmt.Errorf("recording read: %w", logErr)
		}
	}
	return n, err
}

func (l *ReadLog) record(data []byte) error {
	l.mx.Lock()
	defer l.mx.Unlock()

	if over := len(data) - l.buf.Capacity(); over > 0 {
		data = data[over:]
	}

	if toDrop := l.buf.Length() + len(data) - l.buf.Capacity(); toDrop > 0 {
		dropped, err := l.buf.Read(make([]byte, toDrop))
		if err != nil {
			return fmt.Errorf("dropping from buffer: %w", err)
		}
		if dropped != toDrop {
			return fmt.Errorf("failed to drop %d bytes from buffer", toDrop-dropped)
		}
	}

	_, err := l.buf.Write(data)
	return err
}

func (l *ReadLog) Bytes() []byte {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.buf.Bytes()
}

func (l *ReadLog) String() string {
	return string(l.Bytes())
}
