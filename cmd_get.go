package main

import (
	"fmt"
	"time"

	"github.com/PixPMusic/mixerconf/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type getFlags struct {
	output  string
	timeout time.Duration
}

func newGetCmd(a *app) *cobra.Command {
	flags := &getFlags{}

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read the configuration from the device",
		Long: `Request the configuration from the selected device and print it as
YAML, or write it to a file. Files ending in .yaml or .yml are written as
YAML, anything else as JSON.`,
		Example: `  mixerconf get
  mixerconf get -o mixer.yaml --timeout 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return runGet(cmd, a, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the record to this file")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 5*time.Second, "How long to wait for the device")

	return cmd
}

func runGet(cmd *cobra.Command, a *app, flags *getFlags) error {
	w := newWaiter()
	c, err := a.connect(cmd.Context(), w)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg, fw, err := c.fetch(cmd.Context(), w, flags.timeout)
	if err != nil {
		return err
	}
	log.Debugf("Device firmware %s", fw)

	if flags.output != "" {
		if err := config.WriteRecordFile(flags.output, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved configuration to %s\n", flags.output)
		return nil
	}

	data, err := config.MarshalRecord(cfg, config.FormatYAML)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
