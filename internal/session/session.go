// Package session tracks the selected MIDI ports, detects port-set changes and
// dispatches configuration traffic for one controller model.
//
// A Session is not safe for concurrent use. Drive it from a single goroutine,
// normally through a Loop.
package session

import (
	"errors"
	"fmt"

	"github.com/PixPMusic/mixerconf/internal/device"
	"github.com/PixPMusic/mixerconf/internal/sysex"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrNoOutput is returned when there is no output port to send on
	ErrNoOutput = errors.New("no output port available")

	// ErrPortIndex is returned by SelectPorts for an index outside the port list
	ErrPortIndex = errors.New("port index out of range")
)

// Session holds the port state and current configuration for one model
type Session struct {
	model    *device.Model
	sender   Sender
	listener Listener

	inputs      []Port
	outputs     []Port
	selectedIn  int
	selectedOut int
	preferIn    string
	preferOut   string

	config   *device.Config
	firmware sysex.FirmwareVersion
}

// New creates a session for model holding the factory defaults. A nil
// listener is replaced by NopListener.
func New(model *device.Model, sender Sender, listener Listener) *Session {
	if listener == nil {
		listener = NopListener{}
	}
	return &Session{
		model:    model,
		sender:   sender,
		listener: listener,
		config:   model.Defaults(),
	}
}

// Model returns the active controller model
func (s *Session) Model() *device.Model {
	return s.model
}

// PreferPorts overrides the names auto-selection looks for. Empty names fall
// back to the model's port name.
func (s *Session) PreferPorts(in, out string) {
	s.preferIn = in
	s.preferOut = out
}

// PortsChanged reconciles a fresh enumeration with the last one and reports
// whether anything changed.
//
// The sets differ when their lengths differ or when any position holds a
// different port id; inputs and outputs are compared independently. On a
// change both lists are replaced, selection is re-derived by name and
// listeners receive the full new lists.
func (s *Session) PortsChanged(inputs, outputs []Port) bool {
	inChanged := portsDiffer(s.inputs, inputs)
	outChanged := portsDiffer(s.outputs, outputs)
	if !inChanged && !outChanged {
		return false
	}

	s.inputs = append([]Port(nil), inputs...)
	s.outputs = append([]Port(nil), outputs...)
	s.selectedIn = autoSelect(s.inputs, s.preferIn, s.model.PortName)
	s.selectedOut = autoSelect(s.outputs, s.preferOut, s.model.PortName)

	s.listener.PortsUpdated(s.Inputs(), s.Outputs())
	return true
}

func portsDiffer(prev, next []Port) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range next {
		if prev[i].ID != next[i].ID {
			return true
		}
	}
	return false
}

func autoSelect(ports []Port, prefer, fallback string) int {
	name := prefer
	if name == "" {
		name = fallback
	}
	for i, p := range ports {
		if p.Name == name {
			return i
		}
	}
	return 0
}

// Inputs returns a copy of the last observed input ports
func (s *Session) Inputs() []Port {
	return append([]Port(nil), s.inputs...)
}

// Outputs returns a copy of the last observed output ports
func (s *Session) Outputs() []Port {
	return append([]Port(nil), s.outputs...)
}

// Selection returns the selected input and output indices
func (s *Session) Selection() (in, out int) {
	return s.selectedIn, s.selectedOut
}

// SelectedInput returns the selected input port, if any
func (s *Session) SelectedInput() (Port, bool) {
	if len(s.inputs) == 0 {
		return Port{}, false
	}
	return s.inputs[s.selectedIn], true
}

// SelectedOutput returns the selected output port, if any
func (s *Session) SelectedOutput() (Port, bool) {
	if len(s.outputs) == 0 {
		return Port{}, false
	}
	return s.outputs[s.selectedOut], true
}

// SelectPorts chooses the input and output by index. Index 0 is accepted
// for an empty list.
func (s *Session) SelectPorts(in, out int) error {
	if !validIndex(in, len(s.inputs)) {
		return fmt.Errorf("%w: input %d of %d", ErrPortIndex, in, len(s.inputs))
	}
	if !validIndex(out, len(s.outputs)) {
		return fmt.Errorf("%w: output %d of %d", ErrPortIndex, out, len(s.outputs))
	}
	s.selectedIn = in
	s.selectedOut = out
	return nil
}

func validIndex(i, n int) bool {
	return i == 0 || (i > 0 && i < n)
}

// Config returns a copy of the current record
func (s *Session) Config() *device.Config {
	return s.config.Clone()
}

// Firmware returns the version reported by the last valid response
func (s *Session) Firmware() sysex.FirmwareVersion {
	return s.firmware
}

// RestoreDefaults replaces the current record with the factory settings and
// returns a copy. Nothing is sent.
func (s *Session) RestoreDefaults() *device.Config {
	s.config = s.model.Defaults()
	return s.config.Clone()
}

// RequestConfig asks the device on the selected output for its
// configuration. The answer arrives as a listener outcome; there is no
// timeout or retry.
func (s *Session) RequestConfig() error {
	return s.send(sysex.BuildRequest(s.model.ID, s.model.ProtocolVersion))
}

// SendConfig validates cfg, writes it to the device and makes it the current
// record.
func (s *Session) SendConfig(cfg *device.Config) error {
	schema := s.model.Schema()
	if err := cfg.Validate(schema); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	payload, err := device.Serialize(cfg, schema)
	if err != nil {
		return err
	}
	if err := s.send(sysex.BuildStore(s.model.ID, s.model.ProtocolVersion, payload)); err != nil {
		return err
	}

	s.config = cfg.Clone()
	s.listener.ConfigSent()
	return nil
}

func (s *Session) send(pkt []byte) error {
	out, ok := s.SelectedOutput()
	if !ok {
		return ErrNoOutput
	}
	log.Debugf("Sending % X to %s", pkt, out.Name)
	if err := s.sender.Send(out.ID, pkt); err != nil {
		return fmt.Errorf("failed to send to %s: %w", out.Name, err)
	}
	return nil
}

// PacketReceived handles one inbound packet. Packets from anything but the
// selected input, malformed or foreign packets and host-bound commands are
// dropped without an outcome.
func (s *Session) PacketReceived(source string, pkt []byte) {
	in, ok := s.SelectedInput()
	if !ok || in.ID != source {
		return
	}

	msg, ok := sysex.Parse(pkt)
	if !ok {
		log.Debugf("Ignoring packet from %s: % X", in.Name, pkt)
		return
	}

	switch msg.Command {
	case sysex.Response, sysex.WriteFailed:
	default:
		log.Debugf("Ignoring %s from %s", msg.Command, in.Name)
		return
	}

	if msg.ModelID != s.model.ID {
		s.listener.IncompatibleModel(msg.ModelID)
		return
	}
	if msg.ProtocolVersion != s.model.ProtocolVersion {
		s.listener.IncompatibleProtocol(msg.ProtocolVersion)
		return
	}

	if msg.Command == sysex.WriteFailed {
		s.listener.WriteFailed()
		return
	}

	cfg, err := device.Deserialize(msg.Data, s.model.Schema())
	if err != nil {
		s.listener.ConfigInvalid(err)
		return
	}
	s.config = cfg
	s.firmware = msg.Firmware
	s.listener.ConfigUpdated(cfg.Clone(), msg.Firmware)
}
