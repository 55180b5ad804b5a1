package scanner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultConnectTimeout bounds opening the peripheral device.
const DefaultConnectTimeout = 15 * time.Second

// SerialPeripheral reads newline-delimited tag payloads from a character
// device or any byte stream. It is the concrete transport behind the
// Peripheral interface; scanner firmware behavior is outside this package.
type SerialPeripheral struct {
	rc        io.ReadCloser
	ch        chan []byte
	closeOnce sync.Once
}

// OpenSerial opens the device path and starts streaming notifications.
// Opening is bounded by the connect timeout; on expiry the attempt is
// abandoned and an error returned.
func OpenSerial(path string, timeout time.Duration) (*SerialPeripheral, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	type opened struct {
		f   *os.File
		err error
	}
	ch := make(chan opened, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		ch <- opened{f, err}
	}()
	select {
	case o := <-ch:
		if o.err != nil {
			return nil, fmt.Errorf("open peripheral %s: %w", path, o.err)
		}
		return NewSerialPeripheral(o.f), nil
	case <-time.After(timeout):
		go func() {
			if o := <-ch; o.f != nil {
				_ = o.f.Close()
			}
		}()
		return nil, fmt.Errorf("open peripheral %s: timeout after %s", path, timeout)
	}
}

// NewSerialPeripheral wraps an already-open stream. Tests feed it pipes.
func NewSerialPeripheral(rc io.ReadCloser) *SerialPeripheral {
	p := &SerialPeripheral{rc: rc, ch: make(chan []byte, 16)}
	go p.read()
	return p
}

func (p *SerialPeripheral) read() {
	defer close(p.ch)
	sc := bufio.NewScanner(p.rc)
	for sc.Scan() {
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())
		p.ch <- line
	}
	// EOF or read error: the channel close signals a spontaneous disconnect.
}

// Notifications returns the payload stream.
func (p *SerialPeripheral) Notifications() <-chan []byte { return p.ch }

// Close tears down the underlying stream.
func (p *SerialPeripheral) Close() error {
	var err error
	p.closeOnce.Do(func() { err = p.rc.Close() })
	return err
}
