package main

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PixPMusic/mixerconf/internal/config"
	"github.com/PixPMusic/mixerconf/internal/device"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func tempConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version", "--config", tempConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "mixerconf version dev") {
		t.Errorf("output = %q", out)
	}
}

func TestDefaultsCmd(t *testing.T) {
	out, err := execute(t, "defaults", "--config", tempConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := config.UnmarshalRecord([]byte(out), config.FormatYAML, device.MixerOne)
	if err != nil {
		t.Fatalf("output is not a record: %v\n%s", err, out)
	}
	if !cfg.Equal(device.MixerOne.Defaults()) {
		t.Error("printed record is not the factory defaults")
	}
}

func TestPortsCmdEmulated(t *testing.T) {
	out, err := execute(t, "ports", "--emulate", "--config", tempConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Inputs:", "Outputs:", "*  0  Mixer One", "emulator:in"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGetCmdEmulated(t *testing.T) {
	cfgPath := tempConfig(t)

	out, err := execute(t, "get", "--emulate", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := config.UnmarshalRecord([]byte(out), config.FormatYAML, device.MixerOne)
	if err != nil {
		t.Fatalf("output is not a record: %v", err)
	}
	if !cfg.Equal(device.MixerOne.Defaults()) {
		t.Error("emulated device did not report its defaults")
	}

	file := filepath.Join(t.TempDir(), "mixer.json")
	if _, err := execute(t, "get", "--emulate", "--config", cfgPath, "-o", file); err != nil {
		t.Fatal(err)
	}
	if _, err := config.ReadRecordFile(file, device.MixerOne); err != nil {
		t.Errorf("written file: %v", err)
	}
}

func TestSendCmd(t *testing.T) {
	cfgPath := tempConfig(t)
	rec := filepath.Join(t.TempDir(), "rec.yaml")
	if err := config.WriteRecordFile(rec, device.MixerOne.Defaults()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr string
		is      error
	}{
		{name: "defaults", args: []string{"--defaults"}},
		{name: "file", args: []string{"-f", rec}},
		{name: "no source", args: nil, wantErr: "exactly one of"},
		{name: "two sources", args: []string{"--defaults", "-f", rec}, wantErr: "exactly one of"},
		{name: "missing profile", args: []string{"--profile", "nope"}, is: config.ErrProfileNotFound},
		{name: "missing file", args: []string{"-f", filepath.Join(t.TempDir(), "none.yaml")}, wantErr: "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"send", "--emulate", "--config", cfgPath, "--settle", "20ms"}, tt.args...)
			out, err := execute(t, args...)
			switch {
			case tt.is != nil:
				if !errors.Is(err, tt.is) {
					t.Fatalf("err = %v, want %v", err, tt.is)
				}
			case tt.wantErr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatal(err)
				}
				if !strings.Contains(out, "Sent to device.") {
					t.Errorf("output = %q", out)
				}
			}
		})
	}
}

func TestProfileCmds(t *testing.T) {
	cfgPath := tempConfig(t)
	rec := device.MixerOne.Defaults()
	rec.KeypadChannel = 5
	file := filepath.Join(t.TempDir(), "studio.yaml")
	if err := config.WriteRecordFile(file, rec); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "profile", "list", "--config", cfgPath)
	if err != nil || !strings.Contains(out, "No profiles saved.") {
		t.Fatalf("empty list: %q, %v", out, err)
	}

	if _, err := execute(t, "profile", "save", "studio", "-f", file, "--config", cfgPath); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "profile", "save", "device", "--emulate", "--config", cfgPath); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, "profile", "list", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "studio") || !strings.Contains(out, "device") {
		t.Errorf("list = %q", out)
	}

	out, err = execute(t, "profile", "show", "studio", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	got, err := config.UnmarshalRecord([]byte(out), config.FormatYAML, device.MixerOne)
	if err != nil || !got.Equal(rec) {
		t.Errorf("show returned a different record: %v", err)
	}

	if _, err := execute(t, "send", "--emulate", "--profile", "studio", "--settle", "10ms", "--config", cfgPath); err != nil {
		t.Errorf("send profile: %v", err)
	}

	if _, err := execute(t, "profile", "delete", "studio", "--config", cfgPath); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "profile", "show", "studio", "--config", cfgPath); !errors.Is(err, config.ErrProfileNotFound) {
		t.Errorf("show after delete err = %v", err)
	}
}

func TestProfileSaveNeedsName(t *testing.T) {
	if _, err := execute(t, "profile", "save", "--config", tempConfig(t)); err == nil {
		t.Error("save without a name succeeded")
	}
}

func TestProfileDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("AppData", dir)

	if _, err := execute(t, "profile", "save", "home", "--emulate"); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "profile", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "home") {
		t.Errorf("list = %q", out)
	}
}
