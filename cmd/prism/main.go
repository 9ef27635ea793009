// prism - scene graph renderer for the terminal
// Renders glTF scenes (or a built-in demo) with the software device, either
// to a PNG or live in the terminal.
//
// Controls (view):
//
//	W/S/A/D     - Move forward/back/left/right
//	Q/Z         - Move up/down
//	Arrows      - Look around
//	X/C         - Tilt
//	H           - Look at the home position
//	Space       - Random bounce
//	P           - Pause/resume animation
//	Esc         - Quit
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/taigrr/prism/pkg/config"
	"github.com/taigrr/prism/pkg/logging"
)

var version = "dev"

func main() {
	if err := fang.Execute(context.Background(), newRootCmd(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// options are the flags every subcommand shares.
type options struct {
	envFiles []string
	logLevel string
	logJSON  bool
	logFile  string
}

func newRootCmd() *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:          "prism",
		Short:        "Render 3D scenes with a software GPU",
		SilenceUsage: true,
	}
	f := root.PersistentFlags()
	f.StringSliceVar(&opts.envFiles, "env", nil, ".env files read before PRISM_* variables")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (overrides PRISM_LOG_LEVEL)")
	f.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	f.StringVar(&opts.logFile, "log-file", "", "append logs to this file")

	root.AddCommand(newRenderCmd(&opts), newViewCmd(&opts), newInfoCmd(&opts))
	return root
}

// setup loads the configuration and builds the logger. A quiet setup
// discards logs unless a log file is given, for commands that own the
// terminal.
func (o *options) setup(quiet bool) (config.Config, *logrus.Logger, func(), error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return cfg, nil, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logJSON {
		cfg.LogJSON = true
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, err
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}
	switch {
	case o.logFile != "":
		file, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return cfg, nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = file
		closeLog = func() { file.Close() }
	case quiet:
		out = io.Discard
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: out})
	if err != nil {
		closeLog()
		return cfg, nil, nil, err
	}
	return cfg, log, closeLog, nil
}
