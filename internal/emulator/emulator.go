// Package emulator plays the device side of the configuration protocol so the
// tools can run without hardware attached.
package emulator

import (
	"fmt"
	"sync"

	"github.com/PixPMusic/mixerconf/internal/device"
	"github.com/PixPMusic/mixerconf/internal/session"
	"github.com/PixPMusic/mixerconf/internal/sysex"
	log "github.com/sirupsen/logrus"
)

// DefaultFirmware is reported unless another version is set
var DefaultFirmware = sysex.FirmwareVersion{1, 0, 0}

const (
	inputID  = "emulator:in"
	outputID = "emulator:out"
)

// Device is an emulated controller. It implements session.Host: packets sent
// to its output are handled as the hardware would and replies arrive on its
// input.
type Device struct {
	model *device.Model

	mu         sync.Mutex
	record     *device.Config
	firmware   sysex.FirmwareVersion
	modelID    byte
	protocol   byte
	failWrites bool
	stores     int
	handler    session.PacketHandler
	closed     bool

	// replies waiting for the delivery goroutine, in send order
	queue   [][]byte
	wake    chan struct{}
	done    chan struct{}
	running bool
}

// New creates an emulated model holding its factory defaults
func New(model *device.Model) *Device {
	return &Device{
		model:    model,
		record:   model.Defaults(),
		firmware: DefaultFirmware,
		modelID:  model.ID,
		protocol: model.ProtocolVersion,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// SetFirmware changes the firmware version sent in responses
func (d *Device) SetFirmware(fw sysex.FirmwareVersion) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.firmware = fw
}

// SetIdentity changes the model id and protocol version the device claims,
// to emulate a foreign or outdated unit.
func (d *Device) SetIdentity(modelID, protocolVersion byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modelID = modelID
	d.protocol = protocolVersion
}

// FailWrites makes every following Store answer with WriteFailed
func (d *Device) FailWrites(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWrites = fail
}

// Record returns a copy of the stored configuration
func (d *Device) Record() *device.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record.Clone()
}

// SetRecord replaces the stored configuration
func (d *Device) SetRecord(cfg *device.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record = cfg.Clone()
}

// Stores counts the Store commands that were accepted
func (d *Device) Stores() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stores
}

// Port returns the input and output the emulator presents
func (d *Device) Port() (in, out session.Port) {
	in = session.Port{ID: inputID, Name: d.model.PortName}
	out = session.Port{ID: outputID, Name: d.model.PortName}
	return in, out
}

func (d *Device) Ports() (inputs, outputs []session.Port, err error) {
	in, out := d.Port()
	return []session.Port{in}, []session.Port{out}, nil
}

func (d *Device) Listen(handler session.PacketHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.handler = nil
	d.queue = nil
	close(d.done)
	return nil
}

// Send delivers pkt to the emulated device. Replies are written to the input
// from a separate goroutine, one at a time and in order, as they would arrive
// from hardware.
func (d *Device) Send(id string, pkt []byte) error {
	if id != outputID {
		return fmt.Errorf("unknown emulator port %s", id)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("emulator closed")
	}
	reply := d.handle(pkt)
	if reply != nil && d.handler != nil {
		d.queue = append(d.queue, reply)
		if !d.running {
			d.running = true
			go d.deliver()
		}
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

func (d *Device) deliver() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}

		for {
			d.mu.Lock()
			if d.closed || len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			pkt := d.queue[0]
			d.queue = d.queue[1:]
			h := d.handler
			d.mu.Unlock()

			if h != nil {
				h(inputID, pkt)
			}
		}
	}
}

// handle runs with d.mu held and returns the reply, if any
func (d *Device) handle(pkt []byte) []byte {
	msg, ok := sysex.Parse(pkt)
	if !ok {
		log.Debugf("Emulator ignoring % X", pkt)
		return nil
	}
	if msg.ModelID != d.model.ID || msg.ProtocolVersion != d.model.ProtocolVersion {
		log.Debugf("Emulator ignoring %s for model 0x%02X v%d", msg.Command, msg.ModelID, msg.ProtocolVersion)
		return nil
	}

	switch msg.Command {
	case sysex.Request:
		payload, err := device.Serialize(d.record, d.model.Schema())
		if err != nil {
			log.Errorf("Emulator cannot serialize its record: %v", err)
			return nil
		}
		return sysex.BuildResponse(d.modelID, d.protocol, d.firmware, payload)

	case sysex.Store:
		if d.failWrites {
			return sysex.BuildWriteFailed(d.modelID, d.protocol)
		}
		cfg, err := device.Deserialize(msg.Data, d.model.Schema())
		if err != nil {
			log.Debugf("Emulator rejecting store: %v", err)
			return sysex.BuildWriteFailed(d.modelID, d.protocol)
		}
		d.record = cfg
		d.stores++
		return nil
	}
	return nil
}
