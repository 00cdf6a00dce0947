// Package sysex frames configuration traffic as MIDI system-exclusive
// messages:
//
//	F0 | 7D 00 00 | model | version | command | payload... | F7
package sysex

import "fmt"

const (
	Start = 0xF0 // SysEx start delimiter
	End   = 0xF7 // SysEx end delimiter
)

// ManufacturerID is the 3-byte vendor id carried by every message
var ManufacturerID = [3]byte{0x7D, 0x00, 0x00}

// header is start + manufacturer + model + version + command
const headerLen = 7

// MinLen is the shortest well-formed message: header plus end delimiter
const MinLen = headerLen + 1

// FirmwareLen is the size of the version prefix on a Response payload
const FirmwareLen = 3

// Command selects the message kind
type Command byte

const (
	Request     Command = 0x00 // host asks for the stored configuration
	Store       Command = 0x01 // host writes a configuration
	Response    Command = 0x02 // device returns firmware version and configuration
	WriteFailed Command = 0x03 // device could not store a configuration
)

func (c Command) String() string {
	switch c {
	case Request:
		return "request"
	case Store:
		return "store"
	case Response:
		return "response"
	case WriteFailed:
		return "write-failed"
	default:
		return fmt.Sprintf("command(0x%02X)", byte(c))
	}
}

// FirmwareVersion is the major.minor.patch triple a device reports
type FirmwareVersion [3]byte

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// Message is a parsed envelope
type Message struct {
	ModelID         byte
	ProtocolVersion byte
	Command         Command
	Firmware        FirmwareVersion // Response only
	Data            []byte          // configuration bytes for Response, raw payload otherwise
}

func build(modelID, version byte, cmd Command, payload ...[]byte) []byte {
	n := MinLen
	for _, p := range payload {
		n += len(p)
	}
	pkt := make([]byte, 0, n)
	pkt = append(pkt, Start)
	pkt = append(pkt, ManufacturerID[:]...)
	pkt = append(pkt, modelID&0x7F, version&0x7F, byte(cmd))
	for _, p := range payload {
		pkt = append(pkt, p...)
	}
	return append(pkt, End)
}

// BuildRequest asks the device for its configuration
func BuildRequest(modelID, version byte) []byte {
	return build(modelID, version, Request)
}

// BuildStore carries a serialized configuration to the device. payload must
// already be 7-bit clean.
func BuildStore(modelID, version byte, payload []byte) []byte {
	return build(modelID, version, Store, payload)
}

// BuildResponse is the device's reply to a Request
func BuildResponse(modelID, version byte, fw FirmwareVersion, payload []byte) []byte {
	return build(modelID, version, Response, fw[:], payload)
}

// BuildWriteFailed is the device's notice that a Store was rejected
func BuildWriteFailed(modelID, version byte) []byte {
	return build(modelID, version, WriteFailed)
}

// Parse unwraps a packet. It reports false for anything that is not one of
// ours: wrong delimiters, foreign manufacturer id, or too short to carry a
// command byte. Such packets are expected on a shared port and are not errors.
func Parse(pkt []byte) (Message, bool) {
	if len(pkt) < MinLen || pkt[0] != Start || pkt[len(pkt)-1] != End {
		return Message{}, false
	}
	if pkt[1] != ManufacturerID[0] || pkt[2] != ManufacturerID[1] || pkt[3] != ManufacturerID[2] {
		return Message{}, false
	}

	msg := Message{
		ModelID:         pkt[4],
		ProtocolVersion: pkt[5],
		Command:         Command(pkt[6]),
	}
	payload := pkt[headerLen : len(pkt)-1]

	switch msg.Command {
	case Response:
		// A response too short for the firmware prefix carries no
		// configuration; it fails the length check downstream.
		if len(payload) >= FirmwareLen {
			copy(msg.Firmware[:], payload[:FirmwareLen])
			msg.Data = payload[FirmwareLen:]
		}
	default:
		msg.Data = payload
	}
	return msg, true
}
