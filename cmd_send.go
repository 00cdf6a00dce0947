package main

import (
	"fmt"
	"time"

	"github.com/PixPMusic/mixerconf/internal/config"
	"github.com/PixPMusic/mixerconf/internal/device"
	"github.com/spf13/cobra"
)

type sendFlags struct {
	file     string
	profile  string
	defaults bool
	settle   time.Duration
}

func newSendCmd(a *app) *cobra.Command {
	flags := &sendFlags{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Write a configuration to the device",
		Long: `Write a configuration record to the selected device. The record comes
from a file, a saved profile or the factory defaults. After sending, the
command waits briefly in case the device reports a failed write.`,
		Example: `  mixerconf send -f mixer.yaml
  mixerconf send --profile live
  mixerconf send --defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return runSend(cmd, a, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Record file to send")
	cmd.Flags().StringVar(&flags.profile, "profile", "", "Saved profile to send")
	cmd.Flags().BoolVar(&flags.defaults, "defaults", false, "Send the factory defaults")
	cmd.Flags().DurationVar(&flags.settle, "settle", 500*time.Millisecond, "How long to watch for a failed write")

	return cmd
}

// record resolves the one configured source
func (f *sendFlags) record(a *app) (*device.Config, error) {
	n := 0
	for _, set := range []bool{f.file != "", f.profile != "", f.defaults} {
		if set {
			n++
		}
	}
	if n != 1 {
		return nil, fmt.Errorf("exactly one of --file, --profile or --defaults is required")
	}

	switch {
	case f.file != "":
		return config.ReadRecordFile(f.file, a.model)
	case f.profile != "":
		p, err := a.cfg.FindProfile(f.profile)
		if err != nil {
			return nil, err
		}
		if err := p.Config.Validate(a.model.Schema()); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		return p.Config, nil
	default:
		return a.model.Defaults(), nil
	}
}

func runSend(cmd *cobra.Command, a *app, flags *sendFlags) error {
	cfg, err := flags.record(a)
	if err != nil {
		return err
	}

	w := newWaiter()
	c, err := a.connect(cmd.Context(), w)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.store(cmd.Context(), w, cfg, flags.settle); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Sent to device.")
	return nil
}
