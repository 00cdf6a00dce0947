package device

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/PixPMusic/mixerconf/internal/bitcodec"
	"gopkg.in/yaml.v3"
)

func smallModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(0x05, 0x01, "Small", "Small", NewConfig(1, 1))
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func scenarioConfig() *Config {
	c := NewConfig(1, 1)
	c.Knobs[0] = Knob{Channel: 5, CC: 100}
	c.Keys[0] = Key{Type: KeyTypeNote, Value: 64, ShiftValue: 0, Behavior: KeyBehaviorMomentary}
	c.KeypadChannel = 3
	return c
}

func TestSerializeScenario(t *testing.T) {
	s := smallModel(t).Schema()

	got, err := Serialize(scenarioConfig(), s)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := []byte{46, 34, 0, 0, 48, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("Serialize() = %v, want %v", got, want)
	}

	back, err := Deserialize(got, s)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !back.Equal(scenarioConfig()) {
		t.Errorf("Deserialize() = %+v, want %+v", back, scenarioConfig())
	}
}

func TestMixerOneLayout(t *testing.T) {
	s := MixerOne.Schema()
	if len(s.Fields) != 41*2+12*4+3 {
		t.Errorf("fields = %d, want 133", len(s.Fields))
	}
	if s.TotalBits() != 656 {
		t.Errorf("TotalBits() = %d, want 656", s.TotalBits())
	}
	if s.PayloadLen() != 94 {
		t.Errorf("PayloadLen() = %d, want 94", s.PayloadLen())
	}

	b, err := Serialize(MixerOne.Defaults(), s)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(b) != 94 {
		t.Fatalf("len = %d, want 94", len(b))
	}
	if !bytes.Equal(b[:8], []byte{0, 16, 1, 64, 16, 1, 32, 12}) {
		t.Errorf("head = %v", b[:8])
	}
	if !bytes.Equal(b[len(b)-4:], []byte{44, 92, 0, 4}) {
		t.Errorf("tail = %v", b[len(b)-4:])
	}
}

func TestRoundTripAllFields(t *testing.T) {
	s := MixerOne.Schema()

	for _, pick := range []func(i int, f Field) int{
		func(i int, f Field) int { return f.Min },
		func(i int, f Field) int { return f.Max },
		func(i int, f Field) int { return (i * 37) % (f.Max + 1) },
	} {
		c := NewConfig(s.Knobs, s.Keys)
		for i, f := range s.Fields {
			f.set(c, pick(i, f))
		}
		if err := c.Validate(s); err != nil {
			t.Fatalf("Validate: %v", err)
		}

		b, err := Serialize(c, s)
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		back, err := Deserialize(b, s)
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		if !back.Equal(c) {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, c)
		}
	}
}

func TestDeserializeClamps(t *testing.T) {
	s := smallModel(t).Schema()

	// shift_key allows 0-1 and send_all_key 0-2 for a single key, but the
	// 4- and 5-bit slots can carry 15 and 31.
	raw := bitcodec.PackBytes([]int{5, 100, 0, 64, 0, 0, 3, 15, 31}, s.Widths())

	c, err := Deserialize(raw, s)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if c.ShiftKey != 1 {
		t.Errorf("ShiftKey = %d, want 1", c.ShiftKey)
	}
	if c.SendAllKey != 2 {
		t.Errorf("SendAllKey = %d, want 2", c.SendAllKey)
	}
	if err := c.Validate(s); err != nil {
		t.Errorf("clamped record invalid: %v", err)
	}
}

func TestDeserializeInvalidLength(t *testing.T) {
	s := MixerOne.Schema()
	b, _ := Serialize(MixerOne.Defaults(), s)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "one byte short", data: b[:len(b)-1]},
		{name: "empty", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Deserialize(tt.data, s)
			if !errors.Is(err, ErrInvalidLength) {
				t.Fatalf("err = %v, want ErrInvalidLength", err)
			}
			if c != nil {
				t.Error("record should be nil on failure")
			}
			var lenErr *InvalidLengthError
			if !errors.As(err, &lenErr) || lenErr.Want != 133 {
				t.Errorf("InvalidLengthError = %+v", lenErr)
			}
		})
	}
}

func TestRestoreDefaults(t *testing.T) {
	c := RestoreDefaults(MixerOne.Schema())
	if c.Knobs[0].CC != 2 || c.Knobs[40].CC != 42 {
		t.Errorf("knob CCs = %d, %d", c.Knobs[0].CC, c.Knobs[40].CC)
	}
	if c.Keys[11].Value != 11 || c.Keys[11].ShiftValue != 23 {
		t.Errorf("key 12 = %+v", c.Keys[11])
	}
	if c.SendAllKey != 1 || c.ShiftKey != 0 {
		t.Errorf("globals = %d, %d", c.ShiftKey, c.SendAllKey)
	}

	// Defaults are fresh copies.
	c.Knobs[0].CC = 99
	if MixerOne.Defaults().Knobs[0].CC != 2 {
		t.Error("defaults were mutated through a returned record")
	}
}

func TestValidate(t *testing.T) {
	s := MixerOne.Schema()

	c := MixerOne.Defaults()
	c.Knobs[3].Channel = 16
	err := c.Validate(s)
	var rangeErr *FieldRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("err = %v, want FieldRangeError", err)
	}
	if rangeErr.Field != "knob4.channel" || rangeErr.Max != 15 {
		t.Errorf("FieldRangeError = %+v", rangeErr)
	}

	short := NewConfig(2, 12)
	if err := short.Validate(s); !errors.Is(err, ErrShape) {
		t.Errorf("err = %v, want ErrShape", err)
	}
	if _, err := Serialize(short, s); !errors.Is(err, ErrShape) {
		t.Errorf("Serialize err = %v, want ErrShape", err)
	}
}

func TestNewSchemaRejectsOverflow(t *testing.T) {
	// 16 keys cannot be addressed by the 4-bit shift key slot.
	if _, err := NewSchema(0, 16, NewConfig(0, 16)); err == nil {
		t.Fatal("expected error for shift key range wider than 4 bits")
	}
	if _, err := NewSchema(1, 1, NewConfig(2, 1)); err == nil {
		t.Fatal("expected error for mismatched defaults")
	}
}

func TestMustSchemaPanics(t *testing.T) {
	s := MustSchema(1, 1, NewConfig(1, 1))
	if len(s.Fields) != 9 {
		t.Errorf("MustSchema(1, 1) has %d fields, want 9", len(s.Fields))
	}

	defer func() {
		if recover() == nil {
			t.Error("MustSchema accepted an overflowing table")
		}
	}()
	MustSchema(0, 16, NewConfig(0, 16))
}

func TestLookup(t *testing.T) {
	m, ok := Lookup(0x00)
	if !ok || m != MixerOne {
		t.Fatalf("Lookup(0) = %v, %v", m, ok)
	}
	if _, ok := Lookup(0x42); ok {
		t.Error("Lookup(0x42) should fail")
	}
}

func TestConfigEncoding(t *testing.T) {
	c := MixerOne.Defaults()
	c.Keys[2].Type = KeyTypeControlChange
	c.Keys[2].Behavior = KeyBehaviorToggle

	j, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if !bytes.Contains(j, []byte(`"type":"cc"`)) || !bytes.Contains(j, []byte(`"behavior":"toggle"`)) {
		t.Errorf("unexpected JSON: %s", j)
	}
	var fromJSON Config
	if err := json.Unmarshal(j, &fromJSON); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if !fromJSON.Equal(c) {
		t.Error("JSON round trip mismatch")
	}

	y, err := yaml.Marshal(c)
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}
	var fromYAML Config
	if err := yaml.Unmarshal(y, &fromYAML); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if !fromYAML.Equal(c) {
		t.Error("YAML round trip mismatch")
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := MixerOne.Defaults()
	b := a.Clone()
	b.Knobs[0].Channel = 9
	b.Keys[0].Value = 77
	if a.Knobs[0].Channel == 9 || a.Keys[0].Value == 77 {
		t.Error("Clone shares slices")
	}
}
