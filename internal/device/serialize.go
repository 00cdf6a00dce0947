package device

import (
	"errors"
	"fmt"

	"github.com/PixPMusic/mixerconf/internal/bitcodec"
)

var (
	// ErrInvalidLength is matched by errors returned when a payload does not
	// unpack to exactly one value per schema field.
	ErrInvalidLength = errors.New("invalid data length")

	// ErrFieldRange is matched by errors returned when a record holds a value
	// outside its field's range.
	ErrFieldRange = errors.New("value out of range")

	// ErrShape is returned when a record's knob or key count differs from
	// the schema's.
	ErrShape = errors.New("record does not match schema")
)

// InvalidLengthError reports how many values a payload decoded to
type InvalidLengthError struct {
	Got  int
	Want int
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("invalid data length: decoded %d values, want %d", e.Got, e.Want)
}

func (e *InvalidLengthError) Is(target error) bool {
	return target == ErrInvalidLength
}

// FieldRangeError names the first field found outside its range
type FieldRangeError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *FieldRangeError) Error() string {
	return fmt.Sprintf("%s = %d, want %d-%d", e.Field, e.Value, e.Min, e.Max)
}

func (e *FieldRangeError) Is(target error) bool {
	return target == ErrFieldRange
}

// Values flattens c into one integer per schema field, in stream order
func (s *Schema) Values(c *Config) ([]int, error) {
	if !s.Fits(c) {
		return nil, ErrShape
	}
	values := make([]int, len(s.Fields))
	for i, f := range s.Fields {
		values[i] = f.get(c)
	}
	return values, nil
}

// Serialize packs c into 7-bit payload bytes. Values are not clamped; c is
// expected to have been validated when it was edited.
func Serialize(c *Config, s *Schema) ([]byte, error) {
	values, err := s.Values(c)
	if err != nil {
		return nil, err
	}
	return bitcodec.PackBytes(values, s.widths), nil
}

// Deserialize unpacks a payload into a new record. Every value is clamped
// into its field's range; the only structural failure is a value count that
// differs from the schema's field count.
func Deserialize(b []byte, s *Schema) (*Config, error) {
	values := bitcodec.Unpack(bitcodec.UnpackBytes(b), s.widths)
	if len(values) != len(s.Fields) {
		return nil, &InvalidLengthError{Got: len(values), Want: len(s.Fields)}
	}

	c := NewConfig(s.Knobs, s.Keys)
	for i, f := range s.Fields {
		f.set(c, f.Clamp(values[i]))
	}
	return c, nil
}

// RestoreDefaults returns a record holding every field's factory value
func RestoreDefaults(s *Schema) *Config {
	c := NewConfig(s.Knobs, s.Keys)
	for _, f := range s.Fields {
		f.set(c, f.Default)
	}
	return c
}

// Validate checks every field of c against the schema
func (c *Config) Validate(s *Schema) error {
	if c == nil {
		return ErrShape
	}
	if !s.Fits(c) {
		return fmt.Errorf("%w: %d knobs and %d keys, want %d and %d",
			ErrShape, len(c.Knobs), len(c.Keys), s.Knobs, s.Keys)
	}
	for _, f := range s.Fields {
		if v := f.get(c); v < f.Min || v > f.Max {
			return &FieldRangeError{Field: f.Name, Value: v, Min: f.Min, Max: f.Max}
		}
	}
	return nil
}
