package main

import (
	"fmt"

	"github.com/PixPMusic/mixerconf/internal/config"
	"github.com/spf13/cobra"
)

func newDefaultsCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the factory configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			cfg := a.model.Defaults()
			if output != "" {
				if err := config.WriteRecordFile(output, cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved defaults to %s\n", output)
				return nil
			}
			data, err := config.MarshalRecord(cfg, config.FormatYAML)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the record to this file")
	return cmd
}
