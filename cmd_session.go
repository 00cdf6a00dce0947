package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PixPMusic/mixerconf/internal/device"
	"github.com/PixPMusic/mixerconf/internal/emulator"
	"github.com/PixPMusic/mixerconf/internal/midi"
	"github.com/PixPMusic/mixerconf/internal/serialmidi"
	"github.com/PixPMusic/mixerconf/internal/session"
	"github.com/PixPMusic/mixerconf/internal/sysex"
	log "github.com/sirupsen/logrus"
)

var (
	errTimeout              = errors.New("timed out waiting for the device")
	errIncompatibleDevice   = errors.New("incompatible device selected")
	errIncompatibleFirmware = errors.New("incompatible firmware")
	errWriteFailed          = errors.New("device could not store the configuration")
)

// conn is a running session bound to a host transport
type conn struct {
	host session.Host
	loop *session.Loop

	cancel context.CancelFunc
	done   chan struct{}
}

func (a *app) openHost() (session.Host, error) {
	dev, baud := a.cfg.Serial.Device, a.cfg.Serial.Baud
	if a.flags.serial != "" {
		dev = a.flags.serial
	}
	if a.flags.baud > 0 {
		baud = a.flags.baud
	}

	switch {
	case a.flags.emulate:
		log.Infof("Using the %s emulator", a.model.Name)
		return emulator.New(a.model), nil
	case dev != "":
		line, err := serialmidi.Open(dev, baud)
		if err != nil {
			return nil, err
		}
		return line, nil
	default:
		m, err := midi.Open()
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// connect opens the host, starts the session loop and performs the first
// port enumeration. Extra listeners receive every outcome after the log.
func (a *app) connect(ctx context.Context, extra ...session.Listener) (*conn, error) {
	host, err := a.openHost()
	if err != nil {
		return nil, err
	}

	listeners := session.Listeners{session.LogListener{Model: a.model}}
	listeners = append(listeners, extra...)

	s := session.New(a.model, host, listeners)
	in, out := a.cfg.InPort, a.cfg.OutPort
	if a.flags.in != "" {
		in = a.flags.in
	}
	if a.flags.out != "" {
		out = a.flags.out
	}
	s.PreferPorts(in, out)

	loopCtx, cancel := context.WithCancel(ctx)
	c := &conn{
		host:   host,
		loop:   session.NewLoop(s),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		c.loop.Run(loopCtx)
	}()

	if err := session.Attach(host, c.loop); err != nil {
		c.Close()
		return nil, err
	}
	if _, err := session.Refresh(ctx, host, c.loop); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Close stops the loop and releases the host
func (c *conn) Close() {
	c.cancel()
	<-c.done
	if err := c.host.Close(); err != nil {
		log.Warnf("Failed to close MIDI host: %v", err)
	}
}

// outcome is one device answer as seen by a waiting command
type outcome struct {
	cfg *device.Config
	fw  sysex.FirmwareVersion
	err error
}

// waiter turns listener callbacks into outcomes on a channel
type waiter struct {
	session.NopListener
	c chan outcome
}

func newWaiter() *waiter {
	return &waiter{c: make(chan outcome, 8)}
}

func (w *waiter) push(o outcome) {
	select {
	case w.c <- o:
	default:
		log.Debugf("Dropping outcome, nobody is waiting")
	}
}

func (w *waiter) ConfigUpdated(cfg *device.Config, fw sysex.FirmwareVersion) {
	w.push(outcome{cfg: cfg, fw: fw})
}

func (w *waiter) ConfigInvalid(err error) {
	w.push(outcome{err: fmt.Errorf("invalid data received: %w", err)})
}

func (w *waiter) IncompatibleModel(found byte) {
	w.push(outcome{err: fmt.Errorf("%w: model 0x%02X", errIncompatibleDevice, found)})
}

func (w *waiter) IncompatibleProtocol(found byte) {
	w.push(outcome{err: fmt.Errorf("%w: protocol version %d", errIncompatibleFirmware, found)})
}

func (w *waiter) WriteFailed() {
	w.push(outcome{err: errWriteFailed})
}

// fetch requests the configuration and waits for the first outcome. The
// session itself has no timeout; the wait is bounded here.
func (c *conn) fetch(ctx context.Context, w *waiter, timeout time.Duration) (*device.Config, sysex.FirmwareVersion, error) {
	err := c.loop.Do(ctx, func(s *session.Session) error {
		return s.RequestConfig()
	})
	if err != nil {
		return nil, sysex.FirmwareVersion{}, err
	}

	select {
	case o := <-w.c:
		return o.cfg, o.fw, o.err
	case <-time.After(timeout):
		return nil, sysex.FirmwareVersion{}, errTimeout
	case <-ctx.Done():
		return nil, sysex.FirmwareVersion{}, ctx.Err()
	}
}

// store sends cfg and watches for a rejection during the settle window
func (c *conn) store(ctx context.Context, w *waiter, cfg *device.Config, settle time.Duration) error {
	err := c.loop.Do(ctx, func(s *session.Session) error {
		return s.SendConfig(cfg)
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(settle)
	defer timer.Stop()
	for {
		select {
		case o := <-w.c:
			if o.err != nil {
				return o.err
			}
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
