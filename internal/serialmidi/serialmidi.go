// Package serialmidi carries MIDI over a serial line, such as a USB CDC
// device or a DIN-MIDI adapter. The line shows up as a single input and a
// single output named after the device path.
package serialmidi

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/PixPMusic/mixerconf/internal/session"
	"github.com/PixPMusic/mixerconf/internal/sysex"
	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

const (
	// DefaultBaud is the DIN-MIDI rate
	DefaultBaud = 31250

	readTimeout = 200 * time.Millisecond
	maxPacket   = 1024
)

// ErrUnknownPort is returned by Send for a port id this line does not own
var ErrUnknownPort = errors.New("unknown serial port")

// Line is a session.Host over one serial connection
type Line struct {
	name string
	conn io.ReadWriteCloser

	mu        sync.Mutex
	handler   session.PacketHandler
	listening bool
	closed    bool
	done      chan struct{}
}

// Open opens device at baud. A zero baud uses DefaultBaud.
func Open(device string, baud int) (*Line, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	conn, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	log.Infof("Opened serial MIDI on %s at %d baud", device, baud)
	return New(device, conn), nil
}

// New wraps an already open connection
func New(name string, conn io.ReadWriteCloser) *Line {
	return &Line{
		name: name,
		conn: conn,
		done: make(chan struct{}),
	}
}

// Port returns the single endpoint of this line
func (l *Line) Port() session.Port {
	return session.Port{ID: "serial:" + l.name, Name: l.name}
}

// Ports reports the line as one input and one output
func (l *Line) Ports() (inputs, outputs []session.Port, err error) {
	p := l.Port()
	return []session.Port{p}, []session.Port{p}, nil
}

// Send writes pkt to the line
func (l *Line) Send(outputID string, pkt []byte) error {
	if outputID != l.Port().ID {
		return fmt.Errorf("%w: %s", ErrUnknownPort, outputID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return io.ErrClosedPipe
	}
	_, err := l.conn.Write(pkt)
	return err
}

// Listen sets the packet handler. The read loop starts on the first call.
func (l *Line) Listen(handler session.PacketHandler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return io.ErrClosedPipe
	}

	l.handler = handler
	if !l.listening {
		l.listening = true
		go l.readLoop()
	}
	return nil
}

func (l *Line) readLoop() {
	defer close(l.done)

	id := l.Port().ID
	framer := sysex.NewFramer(l.conn, maxPacket)
	for {
		pkt, err := framer.Read()
		if err != nil {
			if l.isClosed() {
				return
			}
			// Read timeouts surface as EOF
			if errors.Is(err, io.EOF) {
				continue
			}
			log.Warnf("Serial read on %s failed: %v", l.name, err)
			return
		}

		l.mu.Lock()
		h := l.handler
		l.mu.Unlock()
		if h != nil {
			h(id, pkt)
		}
	}
}

func (l *Line) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close closes the connection and waits for the read loop to exit
func (l *Line) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	listening := l.listening
	l.mu.Unlock()

	err := l.conn.Close()
	if listening {
		<-l.done
	}
	return err
}
