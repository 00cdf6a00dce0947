package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PixPMusic/mixerconf/internal/device"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a record file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension: .yaml and .yml are YAML,
// anything else JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// MarshalRecord encodes cfg in the given format
func MarshalRecord(cfg *device.Config, f Format) ([]byte, error) {
	if f == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// UnmarshalRecord decodes a record and validates it against model
func UnmarshalRecord(data []byte, f Format, model *device.Model) (*device.Config, error) {
	var cfg device.Config
	var err error
	if f == FormatYAML {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s record: %w", f, err)
	}

	if err := cfg.Validate(model.Schema()); err != nil {
		return nil, fmt.Errorf("record does not fit %s: %w", model.Name, err)
	}
	return &cfg, nil
}

// ReadRecordFile loads a configuration record from path
func ReadRecordFile(path string, model *device.Model) (*device.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := UnmarshalRecord(data, FormatFor(path), model)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// WriteRecordFile saves cfg to path in the format its extension names
func WriteRecordFile(path string, cfg *device.Config) error {
	data, err := MarshalRecord(cfg, FormatFor(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
