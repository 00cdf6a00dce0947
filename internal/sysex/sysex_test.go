package sysex

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestBuildRequest(t *testing.T) {
	got := BuildRequest(0x00, 0x01)
	want := []byte{0xF0, 0x7D, 0x00, 0x00, 0x00, 0x01, 0x00, 0xF7}
	if !bytes.Equal(got, want) {
		t.Fatalf("BuildRequest() = % X, want % X", got, want)
	}
}

func TestBuildStoreAndParse(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	pkt := BuildStore(0x00, 0x01, payload)

	msg, ok := Parse(pkt)
	if !ok {
		t.Fatal("Parse rejected a store packet")
	}
	if msg.Command != Store || msg.ModelID != 0 || msg.ProtocolVersion != 1 {
		t.Errorf("msg = %+v", msg)
	}
	if !bytes.Equal(msg.Data, payload) {
		t.Errorf("Data = %v, want %v", msg.Data, payload)
	}
}

func TestParseResponseSplitsFirmware(t *testing.T) {
	pkt := BuildResponse(0x00, 0x01, FirmwareVersion{1, 2, 3}, []byte{9, 8, 7})

	msg, ok := Parse(pkt)
	if !ok {
		t.Fatal("Parse rejected a response packet")
	}
	if msg.Command != Response {
		t.Fatalf("Command = %v", msg.Command)
	}
	if msg.Firmware != (FirmwareVersion{1, 2, 3}) {
		t.Errorf("Firmware = %v", msg.Firmware)
	}
	if msg.Firmware.String() != "1.2.3" {
		t.Errorf("Firmware.String() = %q", msg.Firmware.String())
	}
	if !bytes.Equal(msg.Data, []byte{9, 8, 7}) {
		t.Errorf("Data = %v", msg.Data)
	}
}

func TestParseShortResponse(t *testing.T) {
	pkt := []byte{0xF0, 0x7D, 0x00, 0x00, 0x00, 0x01, byte(Response), 0x01, 0xF7}
	msg, ok := Parse(pkt)
	if !ok {
		t.Fatal("Parse rejected a short response")
	}
	if msg.Data != nil || msg.Firmware != (FirmwareVersion{}) {
		t.Errorf("msg = %+v, want empty firmware and data", msg)
	}
}

func TestParseRejects(t *testing.T) {
	good := BuildRequest(0x00, 0x01)

	mutate := func(i int, b byte) []byte {
		p := append([]byte(nil), good...)
		p[i] = b
		return p
	}

	tests := []struct {
		name string
		pkt  []byte
	}{
		{name: "nil", pkt: nil},
		{name: "wrong start", pkt: mutate(0, 0x90)},
		{name: "wrong end", pkt: mutate(len(good)-1, 0x00)},
		{name: "wrong manufacturer 0", pkt: mutate(1, 0x41)},
		{name: "wrong manufacturer 1", pkt: mutate(2, 0x01)},
		{name: "wrong manufacturer 2", pkt: mutate(3, 0x01)},
		{name: "no command byte", pkt: []byte{0xF0, 0x7D, 0x00, 0x00, 0x00, 0x01, 0xF7}},
		{name: "note on", pkt: []byte{0x90, 0x40, 0x7F}},
		{name: "foreign sysex", pkt: []byte{0xF0, 0x00, 0x20, 0x29, 0x02, 0x0D, 0x0E, 0x01, 0xF7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg, ok := Parse(tt.pkt); ok {
				t.Errorf("Parse() = %+v, want rejection", msg)
			}
		})
	}
}

func TestWriteFailed(t *testing.T) {
	msg, ok := Parse(BuildWriteFailed(0x00, 0x01))
	if !ok || msg.Command != WriteFailed || len(msg.Data) != 0 {
		t.Fatalf("Parse(BuildWriteFailed) = %+v, %v", msg, ok)
	}
}

func TestCommandString(t *testing.T) {
	if Response.String() != "response" {
		t.Errorf("Response.String() = %q", Response.String())
	}
	if Command(0x10).String() != "command(0x10)" {
		t.Errorf("unknown command string = %q", Command(0x10).String())
	}
}

func TestFramer(t *testing.T) {
	a := BuildRequest(0x00, 0x01)
	b := BuildResponse(0x00, 0x01, FirmwareVersion{1, 0, 0}, []byte{5, 6})

	var stream []byte
	stream = append(stream, 0x90, 0x40, 0x7F) // note on before a frame
	stream = append(stream, a...)
	stream = append(stream, 0xF8) // clock between frames
	stream = append(stream, b[:4]...)
	stream = append(stream, 0xFE) // active sensing inside a frame
	stream = append(stream, b[4:]...)
	stream = append(stream, 0xF0, 0x01, 0x90) // aborted frame
	stream = append(stream, a...)

	f := NewFramer(bytes.NewReader(stream), 0)
	for i, want := range [][]byte{a, b, a} {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Read %d = % X, want % X", i, got, want)
		}
	}
	if _, err := f.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("final Read err = %v, want EOF", err)
	}
}

func TestFramerDropsOversized(t *testing.T) {
	big := BuildStore(0x00, 0x01, make([]byte, 32))
	small := BuildRequest(0x00, 0x01)

	f := NewFramer(bytes.NewReader(append(big, small...)), 16)
	got, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, small) {
		t.Errorf("Read() = % X, want % X", got, small)
	}
}

// timeoutReader yields one chunk per Read and io.EOF between chunks, the way a
// serial port with a read timeout does.
type timeoutReader struct {
	chunks [][]byte
	idle   bool
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	if r.idle || len(r.chunks) == 0 {
		r.idle = false
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	r.idle = true
	return n, nil
}

func TestFramerResumesAfterTimeout(t *testing.T) {
	pkt := BuildStore(0x00, 0x01, []byte{1, 2, 3, 4})
	r := &timeoutReader{chunks: [][]byte{pkt[:3], pkt[3:6], pkt[6:]}}
	f := NewFramer(r, 0)

	var timeouts int
	for {
		got, err := f.Read()
		if errors.Is(err, io.EOF) {
			timeouts++
			if timeouts > 5 {
				t.Fatal("packet never completed")
			}
			continue
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !bytes.Equal(got, pkt) {
			t.Errorf("Read() = % X, want % X", got, pkt)
		}
		break
	}
	if timeouts != 2 {
		t.Errorf("timeouts = %d, want 2", timeouts)
	}
}
