package sysex

import (
	"bufio"
	"io"
)

// Framer extracts SysEx packets from a raw MIDI byte stream, such as a
// serial line. Bytes outside F0...F7 are discarded.
type Framer struct {
	br  *bufio.Reader
	max int

	// partial frame, kept across read errors so a timeout does not lose it
	pkt     []byte
	inFrame bool
}

// NewFramer reads from r. Packets longer than maxLen are dropped; zero means
// no limit.
func NewFramer(r io.Reader, maxLen int) *Framer {
	return &Framer{br: bufio.NewReader(r), max: maxLen}
}

// Read returns the next complete packet including both delimiters. After an
// error Read may be called again to resume the current frame.
func (f *Framer) Read() ([]byte, error) {
	for {
		b, err := f.br.ReadByte()
		if err != nil {
			return nil, err
		}

		switch {
		case b == Start:
			// A start byte always opens a new frame; an unterminated one
			// before it is lost.
			f.pkt = append(f.pkt[:0], b)
			f.inFrame = true
		case !f.inFrame:
			continue
		case b == End:
			f.inFrame = false
			if f.max > 0 && len(f.pkt)+1 > f.max {
				continue
			}
			pkt := make([]byte, len(f.pkt)+1)
			copy(pkt, f.pkt)
			pkt[len(f.pkt)] = End
			return pkt, nil
		case b >= 0xF8:
			// System real-time bytes may be interleaved.
			continue
		case b >= 0x80:
			// Any other status byte aborts the frame.
			f.inFrame = false
		default:
			if f.max > 0 && len(f.pkt) >= f.max {
				f.inFrame = false
				continue
			}
			f.pkt = append(f.pkt, b)
		}
	}
}
