// Package midi exposes the operating system's MIDI ports as a session.Host.
// A driver must be registered by the main package, e.g. by importing
// gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
package midi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/PixPMusic/mixerconf/internal/session"
	"github.com/PixPMusic/mixerconf/internal/sysex"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// SysExBufferSize bounds a single inbound SysEx message
const SysExBufferSize = 1024

var (
	// ErrPortNotFound is returned by Send for an output that is no longer present
	ErrPortNotFound = errors.New("output port not found")

	// ErrNoDriver means MIDI could not be started because no driver is registered
	ErrNoDriver = errors.New("could not start MIDI: no driver registered")
)

// Manager handles MIDI port discovery, sending and receiving
type Manager struct {
	syncMu sync.Mutex // held across a listener resync and Close

	mu        sync.Mutex
	handler   session.PacketHandler
	listeners map[string]func() // input port id -> stop
}

// NewManager creates a new MIDI manager
func NewManager() *Manager {
	return &Manager{listeners: make(map[string]func())}
}

// Open creates a manager after checking that a MIDI driver is available
func Open() (*Manager, error) {
	if drivers.Get() == nil {
		return nil, ErrNoDriver
	}
	return NewManager(), nil
}

func inPorts() ([]drivers.In, error) {
	if drivers.Get() == nil {
		return nil, ErrNoDriver
	}
	ins, err := drivers.Ins()
	if err != nil {
		return nil, fmt.Errorf("could not start MIDI: %w", err)
	}
	return ins, nil
}

func outPorts() ([]drivers.Out, error) {
	if drivers.Get() == nil {
		return nil, ErrNoDriver
	}
	outs, err := drivers.Outs()
	if err != nil {
		return nil, fmt.Errorf("could not start MIDI: %w", err)
	}
	return outs, nil
}

type endpoint interface {
	Number() int
	String() string
}

func portID(e endpoint) string {
	return fmt.Sprintf("%d:%s", e.Number(), e.String())
}

func portsOf[T endpoint](list []T) []session.Port {
	ports := make([]session.Port, 0, len(list))
	for _, e := range list {
		ports = append(ports, session.Port{ID: portID(e), Name: e.String()})
	}
	return ports
}

// Ports enumerates inputs and outputs. Inputs that appeared since the last
// call start listening, vanished ones are stopped.
func (m *Manager) Ports() (inputs, outputs []session.Port, err error) {
	ins, err := inPorts()
	if err != nil {
		return nil, nil, err
	}
	outs, err := outPorts()
	if err != nil {
		return nil, nil, err
	}

	m.syncListeners(ins)
	return portsOf(ins), portsOf(outs), nil
}

// Listen sets the handler for SysEx packets from every input
func (m *Manager) Listen(handler session.PacketHandler) error {
	ins, err := inPorts()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()

	m.syncListeners(ins)
	return nil
}

func (m *Manager) syncListeners(ins []drivers.In) {
	resync(m, ins, m.listenTo)
}

// resync starts listeners for new inputs and stops vanished ones. Whole
// passes are serialized by syncMu so concurrent enumerations cannot start a
// port twice.
func resync[T endpoint](m *Manager, ins []T, start func(T) (func(), error)) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	m.mu.Lock()
	if m.handler == nil {
		m.mu.Unlock()
		return
	}

	present := make(map[string]bool, len(ins))
	var added []T
	for _, in := range ins {
		id := portID(in)
		present[id] = true
		if _, ok := m.listeners[id]; !ok {
			added = append(added, in)
		}
	}

	var stops []func()
	for id, stop := range m.listeners {
		if !present[id] {
			stops = append(stops, stop)
			delete(m.listeners, id)
		}
	}
	m.mu.Unlock()

	// stop and start outside mu; callbacks take it too
	for _, stop := range stops {
		stop()
	}
	for _, in := range added {
		stop, err := start(in)
		if err != nil {
			log.Warnf("Failed to listen on %s: %v", in.String(), err)
			continue
		}
		m.mu.Lock()
		m.listeners[portID(in)] = stop
		m.mu.Unlock()
	}
}

func (m *Manager) listenTo(in drivers.In) (func(), error) {
	id := portID(in)
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		if len(msg) == 0 || msg[0] != sysex.Start {
			return
		}
		m.mu.Lock()
		h := m.handler
		m.mu.Unlock()
		if h != nil {
			h(id, msg.Bytes())
		}
	}, midi.UseSysEx(), midi.SysExBufferSize(SysExBufferSize))
	if err != nil {
		return nil, fmt.Errorf("failed to start listening: %w", err)
	}
	log.Debugf("Listening on %s", in.String())
	return stop, nil
}

// Send writes a raw SysEx packet to the output with the given id
func (m *Manager) Send(outputID string, pkt []byte) error {
	out, err := findOutPort(outputID)
	if err != nil {
		return err
	}
	if out == nil {
		return fmt.Errorf("%w: %s", ErrPortNotFound, outputID)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		return fmt.Errorf("failed to create sender: %w", err)
	}
	return send(midi.Message(pkt))
}

func findOutPort(id string) (drivers.Out, error) {
	outs, err := outPorts()
	if err != nil {
		return nil, err
	}
	for _, out := range outs {
		if portID(out) == id {
			return out, nil
		}
	}
	return nil, nil
}

// Close stops all listeners and cleans up the MIDI driver
func (m *Manager) Close() error {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	m.mu.Lock()
	stops := make([]func(), 0, len(m.listeners))
	for id, stop := range m.listeners {
		stops = append(stops, stop)
		delete(m.listeners, id)
	}
	m.handler = nil
	m.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	midi.CloseDriver()
	return nil
}
