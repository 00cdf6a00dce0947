package device

import (
	"fmt"

	"github.com/PixPMusic/mixerconf/internal/bitcodec"
)

// Field describes one packed value: its position in the stream is its index
// in Schema.Fields.
type Field struct {
	Name    string `json:"name"`
	Width   int    `json:"width"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Default int    `json:"default"`

	get func(c *Config) int
	set func(c *Config, v int)
}

// Clamp limits v to the field's range
func (f Field) Clamp(v int) int {
	if v < f.Min {
		return f.Min
	}
	if v > f.Max {
		return f.Max
	}
	return v
}

// Schema is the ordered field table for one model. It is immutable once built.
type Schema struct {
	Knobs  int     `json:"knobs"`
	Keys   int     `json:"keys"`
	Fields []Field `json:"fields"`

	widths []int
	bits   int
}

// Widths returns the per-field bit widths in stream order
func (s *Schema) Widths() []int {
	return append([]int(nil), s.widths...)
}

// TotalBits is the sum of all field widths
func (s *Schema) TotalBits() int {
	return s.bits
}

// PayloadLen is the number of 7-bit bytes a serialized record occupies
func (s *Schema) PayloadLen() int {
	return bitcodec.PackedLen(s.bits)
}

// NewSchema builds the field table for a controller with the given number of
// knobs and keys. defaults supplies the factory values; it must be sized to
// match.
func NewSchema(knobs, keys int, defaults *Config) (*Schema, error) {
	if defaults == nil || len(defaults.Knobs) != knobs || len(defaults.Keys) != keys {
		return nil, fmt.Errorf("defaults do not match %d knobs and %d keys", knobs, keys)
	}

	s := &Schema{Knobs: knobs, Keys: keys}

	for i := 0; i < knobs; i++ {
		s.add(fmt.Sprintf("knob%d.channel", i+1), 4, 0, 15,
			func(c *Config) int { return int(c.Knobs[i].Channel) },
			func(c *Config, v int) { c.Knobs[i].Channel = uint8(v) })
		s.add(fmt.Sprintf("knob%d.cc", i+1), 7, 0, 127,
			func(c *Config) int { return int(c.Knobs[i].CC) },
			func(c *Config, v int) { c.Knobs[i].CC = uint8(v) })
	}

	for i := 0; i < keys; i++ {
		s.add(fmt.Sprintf("key%d.type", i+1), 1, 0, 1,
			func(c *Config) int { return int(c.Keys[i].Type) },
			func(c *Config, v int) { c.Keys[i].Type = KeyType(v) })
		s.add(fmt.Sprintf("key%d.value", i+1), 7, 0, 127,
			func(c *Config) int { return int(c.Keys[i].Value) },
			func(c *Config, v int) { c.Keys[i].Value = uint8(v) })
		s.add(fmt.Sprintf("key%d.shift_value", i+1), 7, 0, 127,
			func(c *Config) int { return int(c.Keys[i].ShiftValue) },
			func(c *Config, v int) { c.Keys[i].ShiftValue = uint8(v) })
		s.add(fmt.Sprintf("key%d.behavior", i+1), 1, 0, 1,
			func(c *Config) int { return int(c.Keys[i].Behavior) },
			func(c *Config, v int) { c.Keys[i].Behavior = KeyBehavior(v) })
	}

	s.add("keypad_channel", 4, 0, 15,
		func(c *Config) int { return int(c.KeypadChannel) },
		func(c *Config, v int) { c.KeypadChannel = uint8(v) })
	s.add("shift_key", 4, 0, keys,
		func(c *Config) int { return int(c.ShiftKey) },
		func(c *Config, v int) { c.ShiftKey = uint8(v) })
	s.add("send_all_key", 5, 0, 2*keys,
		func(c *Config) int { return int(c.SendAllKey) },
		func(c *Config, v int) { c.SendAllKey = uint8(v) })

	for i := range s.Fields {
		f := &s.Fields[i]
		f.Default = f.get(defaults)
		if err := f.check(); err != nil {
			return nil, err
		}
		s.widths = append(s.widths, f.Width)
		s.bits += f.Width
	}
	return s, nil
}

func (s *Schema) add(name string, width, lo, hi int, get func(*Config) int, set func(*Config, int)) {
	s.Fields = append(s.Fields, Field{
		Name:  name,
		Width: width,
		Min:   lo,
		Max:   hi,
		get:   get,
		set:   set,
	})
}

func (f Field) check() error {
	if f.Width < 1 || f.Width > 8 {
		return fmt.Errorf("field %s: width %d outside 1-8", f.Name, f.Width)
	}
	if f.Max > 1<<f.Width-1 {
		return fmt.Errorf("field %s: max %d does not fit in %d bits", f.Name, f.Max, f.Width)
	}
	if f.Min > f.Max {
		return fmt.Errorf("field %s: min %d above max %d", f.Name, f.Min, f.Max)
	}
	if f.Default < f.Min || f.Default > f.Max {
		return fmt.Errorf("field %s: default %d outside %d-%d", f.Name, f.Default, f.Min, f.Max)
	}
	return nil
}

// MustSchema is NewSchema for model tables fixed at build time
func MustSchema(knobs, keys int, defaults *Config) *Schema {
	s, err := NewSchema(knobs, keys, defaults)
	if err != nil {
		panic(err)
	}
	return s
}

// Fits reports whether c has the knob and key counts the schema expects
func (s *Schema) Fits(c *Config) bool {
	return c != nil && len(c.Knobs) == s.Knobs && len(c.Keys) == s.Keys
}
