package dmx

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaud is the fixture controller line rate.
const DefaultBaud = 250000

var (
	ErrNoPort       = errors.New("no serial ports are currently available")
	ErrPortNotFound = errors.New("DMX serial port not found")
)

// Opener enumerates and opens serial links.
type Opener interface {
	Ports() ([]string, error)
	Open(name string, baud int) (io.ReadWriteCloser, error)
}

// SerialOpener opens system serial ports.
type SerialOpener struct{}

func (SerialOpener) Ports() ([]string, error) {
	return serial.GetPortsList()
}

func (SerialOpener) Open(name string, baud int) (io.ReadWriteCloser, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// SelectPort returns want when it is an enumerated port, or the first
// enumerated port when want is empty.
func SelectPort(o Opener, want string) (string, error) {
	names, err := o.Ports()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	if want == "" {
		if len(names) == 0 {
			return "", ErrNoPort
		}
		return names[0], nil
	}
	for _, n := range names {
		if n == want {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPortNotFound, want)
}
