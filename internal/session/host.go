package session

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Port is one MIDI endpoint as reported by the host transport
type Port struct {
	ID   string `json:"id"`   // identity used for change detection and routing
	Name string `json:"name"` // display name, matched against the model's port name
}

// PacketHandler receives raw packets together with the id of the input port
// they arrived on
type PacketHandler func(portID string, pkt []byte)

// Sender delivers a packet on an output port
type Sender interface {
	Send(outputID string, pkt []byte) error
}

// Host is the platform transport: port enumeration plus raw send and receive
type Host interface {
	Sender

	// Ports enumerates the currently available inputs and outputs
	Ports() (inputs, outputs []Port, err error)

	// Listen registers the handler for packets from every input. It may be
	// called from any goroutine.
	Listen(handler PacketHandler) error

	Close() error
}

// Attach routes packets from host through the loop into the session
func Attach(host Host, loop *Loop) error {
	err := host.Listen(func(portID string, pkt []byte) {
		pkt = append([]byte(nil), pkt...)
		loop.Post(func(s *Session) {
			s.PacketReceived(portID, pkt)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return nil
}

// Refresh enumerates the host's ports once and reconciles them with the
// session. It reports whether the port set changed.
func Refresh(ctx context.Context, host Host, loop *Loop) (bool, error) {
	ins, outs, err := host.Ports()
	if err != nil {
		return false, fmt.Errorf("failed to enumerate ports: %w", err)
	}

	var changed bool
	err = loop.Do(ctx, func(s *Session) error {
		changed = s.PortsChanged(ins, outs)
		return nil
	})
	return changed, err
}

// Watch re-enumerates the host's ports every interval until ctx is done.
// Hosts without hot-plug events are covered by polling; reconciliation
// decides whether anything actually changed.
func Watch(ctx context.Context, host Host, loop *Loop, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := Refresh(ctx, host, loop); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warnf("Port refresh failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
