package device

import "fmt"

// KeyType selects the MIDI message a key sends
type KeyType uint8

const (
	KeyTypeNote          KeyType = 0 // Note On/Off
	KeyTypeControlChange KeyType = 1 // Control Change
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeNote:
		return "note"
	case KeyTypeControlChange:
		return "cc"
	default:
		return fmt.Sprintf("KeyType(%d)", uint8(t))
	}
}

func (t KeyType) MarshalText() ([]byte, error) {
	if t > KeyTypeControlChange {
		return nil, fmt.Errorf("invalid key type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *KeyType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "note":
		*t = KeyTypeNote
	case "cc", "control_change":
		*t = KeyTypeControlChange
	default:
		return fmt.Errorf("unknown key type %q", string(b))
	}
	return nil
}

// KeyBehavior selects how a key reacts to presses
type KeyBehavior uint8

const (
	KeyBehaviorMomentary KeyBehavior = 0 // on while held
	KeyBehaviorToggle    KeyBehavior = 1 // alternates on each press
)

func (b KeyBehavior) String() string {
	switch b {
	case KeyBehaviorMomentary:
		return "momentary"
	case KeyBehaviorToggle:
		return "toggle"
	default:
		return fmt.Sprintf("KeyBehavior(%d)", uint8(b))
	}
}

func (b KeyBehavior) MarshalText() ([]byte, error) {
	if b > KeyBehaviorToggle {
		return nil, fmt.Errorf("invalid key behavior %d", uint8(b))
	}
	return []byte(b.String()), nil
}

func (b *KeyBehavior) UnmarshalText(text []byte) error {
	switch string(text) {
	case "momentary":
		*b = KeyBehaviorMomentary
	case "toggle":
		*b = KeyBehaviorToggle
	default:
		return fmt.Errorf("unknown key behavior %q", string(text))
	}
	return nil
}

// Knob holds the assignment of one knob
type Knob struct {
	Channel uint8 `json:"channel" yaml:"channel"` // 0-15
	CC      uint8 `json:"cc" yaml:"cc"`           // 0-127
}

// Key holds the assignment of one key
type Key struct {
	Type       KeyType     `json:"type" yaml:"type"`
	Value      uint8       `json:"value" yaml:"value"`             // Note or CC number, 0-127
	ShiftValue uint8       `json:"shift_value" yaml:"shift_value"` // sent while shift is held
	Behavior   KeyBehavior `json:"behavior" yaml:"behavior"`
}

// Config is the complete configuration of one controller.
//
// ShiftKey is a 1-based key index, 0 meaning none. SendAllKey is 0 for none,
// 1..Keys for a plain key and Keys+1..2*Keys for shift plus that key.
type Config struct {
	Knobs         []Knob `json:"knobs" yaml:"knobs"`
	Keys          []Key  `json:"keys" yaml:"keys"`
	KeypadChannel uint8  `json:"keypad_channel" yaml:"keypad_channel"`
	ShiftKey      uint8  `json:"shift_key" yaml:"shift_key"`
	SendAllKey    uint8  `json:"send_all_key" yaml:"send_all_key"`
}

// NewConfig allocates a zeroed record sized for the given counts
func NewConfig(knobs, keys int) *Config {
	return &Config{
		Knobs: make([]Knob, knobs),
		Keys:  make([]Key, keys),
	}
}

// Clone returns a deep copy of c
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Knobs = append([]Knob(nil), c.Knobs...)
	out.Keys = append([]Key(nil), c.Keys...)
	return &out
}

// Equal reports whether both records hold the same settings
func (c *Config) Equal(o *Config) bool {
	if c == nil || o == nil {
		return c == o
	}
	if len(c.Knobs) != len(o.Knobs) || len(c.Keys) != len(o.Keys) {
		return false
	}
	for i := range c.Knobs {
		if c.Knobs[i] != o.Knobs[i] {
			return false
		}
	}
	for i := range c.Keys {
		if c.Keys[i] != o.Keys[i] {
			return false
		}
	}
	return c.KeypadChannel == o.KeypadChannel &&
		c.ShiftKey == o.ShiftKey &&
		c.SendAllKey == o.SendAllKey
}
