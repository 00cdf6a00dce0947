// Package device holds the controller models, their configuration records and
// the schema-driven serializer that packs a record into SysEx payload bytes.
package device

// Model identifies one controller family and its configuration layout
type Model struct {
	ID              byte   // model id byte on the wire
	ProtocolVersion byte   // wire-format revision the host expects
	Name            string // display name
	PortName        string // MIDI port name the device announces
	Knobs           int
	Keys            int

	schema *Schema
}

// Schema returns the model's field table
func (m *Model) Schema() *Schema {
	return m.schema
}

// Defaults returns a fresh record holding the factory settings
func (m *Model) Defaults() *Config {
	return RestoreDefaults(m.schema)
}

// NewModel builds a model and its schema from factory defaults
func NewModel(id, protocolVersion byte, name, portName string, defaults *Config) (*Model, error) {
	s, err := NewSchema(len(defaults.Knobs), len(defaults.Keys), defaults)
	if err != nil {
		return nil, err
	}
	return newModel(id, protocolVersion, name, portName, s), nil
}

func newModel(id, protocolVersion byte, name, portName string, s *Schema) *Model {
	return &Model{
		ID:              id,
		ProtocolVersion: protocolVersion,
		Name:            name,
		PortName:        portName,
		Knobs:           s.Knobs,
		Keys:            s.Keys,
		schema:          s,
	}
}

func mustModel(id, protocolVersion byte, name, portName string, defaults *Config) *Model {
	s := MustSchema(len(defaults.Knobs), len(defaults.Keys), defaults)
	return newModel(id, protocolVersion, name, portName, s)
}

// MixerOne is the 41-knob, 12-key reference controller
var MixerOne = mustModel(0x00, 0x01, "MIDI Mixer One", "Mixer One", mixerOneDefaults())

func mixerOneDefaults() *Config {
	c := NewConfig(41, 12)
	for i := range c.Knobs {
		c.Knobs[i] = Knob{Channel: 0, CC: uint8(2 + i)}
	}
	for i := range c.Keys {
		c.Keys[i] = Key{
			Type:       KeyTypeNote,
			Value:      uint8(i),
			ShiftValue: uint8(12 + i),
			Behavior:   KeyBehaviorMomentary,
		}
	}
	c.KeypadChannel = 0
	c.ShiftKey = 0
	c.SendAllKey = 1
	return c
}

// Models lists every known controller model
var Models = []*Model{MixerOne}

// Lookup returns the model with the given wire id
func Lookup(id byte) (*Model, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}
