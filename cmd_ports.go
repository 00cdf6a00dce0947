package main

import (
	"fmt"
	"io"

	"github.com/PixPMusic/mixerconf/internal/session"
	"github.com/spf13/cobra"
)

func newPortsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List MIDI ports and the selected pair",
		Long: `List the available MIDI inputs and outputs. The ports that would be
used by the other commands are marked with '*'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return runPorts(cmd, a)
		},
	}
}

func runPorts(cmd *cobra.Command, a *app) error {
	c, err := a.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	var ins, outs []session.Port
	var selIn, selOut int
	err = c.loop.Do(cmd.Context(), func(s *session.Session) error {
		ins, outs = s.Inputs(), s.Outputs()
		selIn, selOut = s.Selection()
		return nil
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printPorts(w, "Inputs", ins, selIn)
	printPorts(w, "Outputs", outs, selOut)
	return nil
}

func printPorts(w io.Writer, title string, ports []session.Port, selected int) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(ports) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, p := range ports {
		mark := " "
		if i == selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %2d  %-32s %s\n", mark, i, p.Name, p.ID)
	}
}

func handleHelpArg(cmd *cobra.Command, args []string) bool {
	if len(args) > 0 && args[0] == "help" {
		_ = cmd.Help()
		return true
	}
	return false
}
