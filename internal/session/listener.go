package session

import (
	"github.com/PixPMusic/mixerconf/internal/device"
	"github.com/PixPMusic/mixerconf/internal/sysex"
	log "github.com/sirupsen/logrus"
)

// Listener receives the session's outcomes. Methods are called from the
// goroutine driving the session, one at a time; they must not block on the
// session's Loop.
type Listener interface {
	// PortsUpdated carries the full new port lists, not a delta
	PortsUpdated(inputs, outputs []Port)

	// ConfigUpdated fires when a valid configuration arrived from the device
	ConfigUpdated(cfg *device.Config, fw sysex.FirmwareVersion)

	// ConfigInvalid fires when a response could not be decoded; the session
	// keeps its previous record
	ConfigInvalid(err error)

	// ConfigSent fires after a Store was handed to the output port
	ConfigSent()

	// IncompatibleModel fires when the device reports a different model id
	IncompatibleModel(found byte)

	// IncompatibleProtocol fires when the device speaks another protocol version
	IncompatibleProtocol(found byte)

	// WriteFailed fires when the device rejected a Store
	WriteFailed()
}

// NopListener ignores every outcome. Embed it to implement only some methods.
type NopListener struct{}

func (NopListener) PortsUpdated(inputs, outputs []Port)                        {}
func (NopListener) ConfigUpdated(cfg *device.Config, fw sysex.FirmwareVersion) {}
func (NopListener) ConfigInvalid(err error)                                    {}
func (NopListener) ConfigSent()                                                {}
func (NopListener) IncompatibleModel(found byte)                               {}
func (NopListener) IncompatibleProtocol(found byte)                            {}
func (NopListener) WriteFailed()                                               {}

// Listeners fans each outcome out to every member in order
type Listeners []Listener

func (ls Listeners) PortsUpdated(inputs, outputs []Port) {
	for _, l := range ls {
		l.PortsUpdated(inputs, outputs)
	}
}

func (ls Listeners) ConfigUpdated(cfg *device.Config, fw sysex.FirmwareVersion) {
	for _, l := range ls {
		l.ConfigUpdated(cfg, fw)
	}
}

func (ls Listeners) ConfigInvalid(err error) {
	for _, l := range ls {
		l.ConfigInvalid(err)
	}
}

func (ls Listeners) ConfigSent() {
	for _, l := range ls {
		l.ConfigSent()
	}
}

func (ls Listeners) IncompatibleModel(found byte) {
	for _, l := range ls {
		l.IncompatibleModel(found)
	}
}

func (ls Listeners) IncompatibleProtocol(found byte) {
	for _, l := range ls {
		l.IncompatibleProtocol(found)
	}
}

func (ls Listeners) WriteFailed() {
	for _, l := range ls {
		l.WriteFailed()
	}
}

// LogListener writes every outcome to the log
type LogListener struct {
	Model *device.Model
}

func (l LogListener) PortsUpdated(inputs, outputs []Port) {
	log.Infof("MIDI ports changed: %d inputs, %d outputs", len(inputs), len(outputs))
	for _, p := range inputs {
		log.Debugf("  in  %s (%s)", p.Name, p.ID)
	}
	for _, p := range outputs {
		log.Debugf("  out %s (%s)", p.Name, p.ID)
	}
}

func (l LogListener) ConfigUpdated(cfg *device.Config, fw sysex.FirmwareVersion) {
	log.Infof("Updated from %s (firmware %s)", l.Model.Name, fw)
}

func (l LogListener) ConfigInvalid(err error) {
	log.Warnf("Invalid data received: %v", err)
}

func (l LogListener) ConfigSent() {
	log.Infof("Sent to device")
}

func (l LogListener) IncompatibleModel(found byte) {
	log.Warnf("Incompatible device selected (model 0x%02X, want 0x%02X)", found, l.Model.ID)
}

func (l LogListener) IncompatibleProtocol(found byte) {
	log.Warnf("Incompatible firmware: protocol version %d, expecting %d", found, l.Model.ProtocolVersion)
}

func (l LogListener) WriteFailed() {
	log.Errorf("Device reported a failed write")
}
