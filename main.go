package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PixPMusic/mixerconf/internal/config"
	"github.com/PixPMusic/mixerconf/internal/device"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register rtmidi driver
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	serial     string
	baud       int
	in         string
	out        string
	emulate    bool
	verbose    bool
}

// app carries the loaded settings into subcommands
type app struct {
	flags *globalFlags
	cfg   *config.Config
	model *device.Model
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{flags: &globalFlags{}, model: device.MixerOne}

	rootCmd := &cobra.Command{
		Use:   "mixerconf",
		Short: "Configure MIDI Mixer One controllers over SysEx",
		Long: `mixerconf reads and writes the knob and key assignments of a
MIDI Mixer One controller through its SysEx configuration protocol.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", "", "Config file (default is the user config dir)")
	f.StringVar(&a.flags.serial, "serial", "", "Use a serial MIDI device instead of the system MIDI driver")
	f.IntVar(&a.flags.baud, "baud", 0, "Serial baud rate (default 31250)")
	f.StringVar(&a.flags.in, "in", "", "Input port name to select")
	f.StringVar(&a.flags.out, "out", "", "Output port name to select")
	f.BoolVar(&a.flags.emulate, "emulate", false, "Talk to a built-in device emulator")
	f.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newPortsCmd(a))
	rootCmd.AddCommand(newGetCmd(a))
	rootCmd.AddCommand(newSendCmd(a))
	rootCmd.AddCommand(newDefaultsCmd(a))
	rootCmd.AddCommand(newProfileCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd
}

func (a *app) load() error {
	var cfg *config.Config
	var err error
	if a.flags.configPath == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(a.flags.configPath)
	}
	if err != nil {
		return err
	}
	a.cfg = cfg
	setupLogging(a.flags.verbose, cfg.LogLevel)
	return nil
}

func (a *app) save() error {
	if a.flags.configPath == "" {
		return a.cfg.Save()
	}
	return a.cfg.SaveTo(a.flags.configPath)
}

func setupLogging(verbose bool, level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
		return
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mixerconf version %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "date: %s\n", date)
		},
	}
}
