package main

import (
	"fmt"
	"time"

	"github.com/PixPMusic/mixerconf/internal/config"
	"github.com/PixPMusic/mixerconf/internal/device"
	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved configuration profiles",
	}

	cmd.AddCommand(newProfileListCmd(a))
	cmd.AddCommand(newProfileSaveCmd(a))
	cmd.AddCommand(newProfileShowCmd(a))
	cmd.AddCommand(newProfileDeleteCmd(a))
	return cmd
}

func newProfileListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(a.cfg.Profiles) == 0 {
				fmt.Fprintln(w, "No profiles saved.")
				return nil
			}
			for _, p := range a.cfg.Profiles {
				fmt.Fprintf(w, "%.8s  %-24s %s\n", p.ID, p.Name, p.Created.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

func newProfileSaveCmd(a *app) *cobra.Command {
	var file string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Save a profile from a record file or the device",
		Long: `Save a configuration under NAME. With --file the record is read from
that file, otherwise it is requested from the selected device. A profile
with the same name is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec *device.Config
			var err error
			if file != "" {
				rec, err = config.ReadRecordFile(file, a.model)
			} else {
				rec, err = a.fetchOnce(cmd, timeout)
			}
			if err != nil {
				return err
			}

			p := a.cfg.AddProfile(args[0], rec)
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %s (%.8s)\n", p.Name, p.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Record file to save instead of reading the device")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for the device")
	return cmd
}

func (a *app) fetchOnce(cmd *cobra.Command, timeout time.Duration) (*device.Config, error) {
	w := newWaiter()
	c, err := a.connect(cmd.Context(), w)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	cfg, _, err := c.fetch(cmd.Context(), w, timeout)
	return cfg, err
}

func newProfileShowCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.cfg.FindProfile(args[0])
			if err != nil {
				return err
			}
			if output != "" {
				return config.WriteRecordFile(output, p.Config)
			}
			data, err := config.MarshalRecord(p.Config, config.FormatYAML)
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

func newProfileDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a saved profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RemoveProfile(args[0]); err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", args[0])
			return nil
		},
	}
}
