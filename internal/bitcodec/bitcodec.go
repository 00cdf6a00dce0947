// Package bitcodec packs sequences of narrow unsigned integers into a bit
// stream and chunks that stream into 7-bit bytes suitable for SysEx payloads.
package bitcodec

// ByteWidth is the number of significant bits carried by one payload byte.
// SysEx data bytes must stay within 0-127.
const ByteWidth = 7

// Bits is an ordered bit stream, one bit (0 or 1) per element.
type Bits []uint8

// Pack emits the widths[i] least-significant bits of values[i], MSB first,
// for every value in order. Values are not clamped: bits above the width are
// dropped. widths must be at least as long as values.
func Pack(values []int, widths []int) Bits {
	total := 0
	for i := range values {
		total += widths[i]
	}

	bits := make(Bits, 0, total)
	for i, v := range values {
		bits = appendBits(bits, v, widths[i])
	}
	return bits
}

// PackUniform is Pack with the same width for every value. A width below 1
// yields an empty stream.
func PackUniform(values []int, width int) Bits {
	if width <= 0 {
		return Bits{}
	}
	bits := make(Bits, 0, len(values)*width)
	for _, v := range values {
		bits = appendBits(bits, v, width)
	}
	return bits
}

func appendBits(bits Bits, v, width int) Bits {
	for j := width - 1; j >= 0; j-- {
		bits = append(bits, uint8((v>>j)&1))
	}
	return bits
}

// PackBytes packs values at their widths and re-chunks the stream into
// 7-bit bytes. The final byte is zero-padded on the right.
func PackBytes(values []int, widths []int) []byte {
	bits := Pack(values, widths)
	if rem := len(bits) % ByteWidth; rem != 0 {
		bits = append(bits, make(Bits, ByteWidth-rem)...)
	}

	chunks := UnpackUniform(bits, ByteWidth)
	out := make([]byte, len(chunks))
	for i, c := range chunks {
		out[i] = byte(c)
	}
	return out
}

// UnpackBytes expands every byte into exactly 7 bits, MSB first. An 8th bit,
// if set, is ignored.
func UnpackBytes(b []byte) Bits {
	bits := make(Bits, 0, len(b)*ByteWidth)
	for _, v := range b {
		bits = appendBits(bits, int(v), ByteWidth)
	}
	return bits
}

// Unpack walks bits consuming widths[i] bits per step and returns one
// unsigned value per step.
//
// If the stream runs out before the schedule does, Unpack stops at the first
// step it cannot fill completely, so the result is shorter than widths.
func Unpack(bits Bits, widths []int) []int {
	values := make([]int, 0, len(widths))
	pos := 0
	for _, w := range widths {
		if pos+w > len(bits) {
			break
		}
		values = append(values, readBits(bits[pos:pos+w]))
		pos += w
	}
	return values
}

// UnpackUniform is Unpack with one global width. It yields len(bits)/width
// values; trailing bits that do not fill a whole step are ignored.
func UnpackUniform(bits Bits, width int) []int {
	if width <= 0 {
		return nil
	}
	values := make([]int, 0, len(bits)/width)
	for pos := 0; pos+width <= len(bits); pos += width {
		values = append(values, readBits(bits[pos:pos+width]))
	}
	return values
}

func readBits(bits Bits) int {
	v := 0
	for _, b := range bits {
		v = v<<1 | int(b&1)
	}
	return v
}

// PackedLen returns the number of 7-bit bytes PackBytes produces for a
// schedule totalling the given number of bits.
func PackedLen(totalBits int) int {
	return (totalBits + ByteWidth - 1) / ByteWidth
}
