package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/PixPMusic/mixerconf/internal/device"
	"github.com/PixPMusic/mixerconf/internal/session"
	"github.com/PixPMusic/mixerconf/internal/sysex"
)

// Event is the last user-facing outcome of the session. No outcome is
// fatal; Failed marks the ones the user has to act on.
type Event struct {
	Seq      uint64    `json:"seq"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
	Failed   bool      `json:"failed,omitempty"`
	Found    string    `json:"found,omitempty"` // model id or protocol version the device reported
	Detail   string    `json:"detail,omitempty"`
	Firmware string    `json:"firmware,omitempty"`
	Time     time.Time `json:"time"`
}

// Status is a session.Listener that keeps the most recent outcome for the
// status endpoint. It is safe for concurrent use.
type Status struct {
	model *device.Model

	mu   sync.Mutex
	last Event
}

// NewStatus creates a tracker for model
func NewStatus(model *device.Model) *Status {
	return &Status{model: model}
}

// Last returns the most recent event. Seq is zero before the first one.
func (s *Status) Last() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Status) set(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Seq = s.last.Seq + 1
	ev.Time = time.Now()
	s.last = ev
}

func (s *Status) PortsUpdated(inputs, outputs []session.Port) {
	s.set(Event{
		Kind:    "ports",
		Message: fmt.Sprintf("MIDI ports changed: %d inputs, %d outputs.", len(inputs), len(outputs)),
	})
}

func (s *Status) ConfigUpdated(cfg *device.Config, fw sysex.FirmwareVersion) {
	s.set(Event{Kind: "updated", Message: "Updated from " + s.model.Name + ".", Firmware: fw.String()})
}

func (s *Status) ConfigInvalid(err error) {
	s.set(Event{Kind: "invalid", Message: "Invalid data received from device.", Failed: true, Detail: err.Error()})
}

func (s *Status) ConfigSent() {
	s.set(Event{Kind: "sent", Message: "Sent to device."})
}

func (s *Status) IncompatibleModel(found byte) {
	s.set(Event{
		Kind:    "incompatible-model",
		Message: "Incompatible device selected.",
		Failed:  true,
		Found:   fmt.Sprintf("0x%02X", found),
	})
}

func (s *Status) IncompatibleProtocol(found byte) {
	s.set(Event{
		Kind:    "incompatible-protocol",
		Message: fmt.Sprintf("Incompatible firmware. Expecting protocol version %d.", s.model.ProtocolVersion),
		Failed:  true,
		Found:   fmt.Sprintf("%d", found),
		Detail:  fmt.Sprintf("device reports protocol version %d", found),
	})
}

func (s *Status) WriteFailed() {
	s.set(Event{Kind: "write-failed", Message: "Device could not store the configuration.", Failed: true})
}
