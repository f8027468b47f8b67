// Command dieselvk opens a window and presents a cleared frame every
// refresh until the window is closed.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/andewx/dieselvk/v2"
	"github.com/spf13/cobra"
)

func init() {
	// glfw and the presentation engine want the main thread.
	runtime.LockOSThread()
}

type options struct {
	config     string
	width      int
	height     int
	frames     int
	validation bool
	logLevel   string
	stats      string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "dieselvk",
		Short:         "Present a clear-colour frame loop on a Vulkan window",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, "dieselvk:", err)
				return err
			}
			err = run(cfg)
			if err != nil {
				dieselvk.Logger().Error("dieselvk failed", "error", err)
				fmt.Fprintf(os.Stderr, "dieselvk: %v\n", err)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.config, "config", "c", "", "TOML or YAML configuration file")
	f.IntVar(&opts.width, "width", 0, "window width in pixels")
	f.IntVar(&opts.height, "height", 0, "window height in pixels")
	f.IntVar(&opts.frames, "frames", 0, "frames in flight (1-8)")
	f.BoolVar(&opts.validation, "validation", false, "enable the Khronos validation layer")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&opts.stats, "stats", "", "write frame times as CSV to this file on exit")
	return cmd
}

// loadConfig layers explicitly set flags over the config file over the
// defaults.
func loadConfig(cmd *cobra.Command, opts options) (dieselvk.Config, error) {
	cfg := dieselvk.DefaultConfig()
	if opts.config != "" {
		var err error
		if cfg, err = dieselvk.LoadConfig(opts.config); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("width") {
		cfg.Window.Width = opts.width
	}
	if flags.Changed("height") {
		cfg.Window.Height = opts.height
	}
	if flags.Changed("frames") {
		cfg.Renderer.FramesInFlight = opts.frames
	}
	if flags.Changed("validation") {
		cfg.Debug.Validation = opts.validation
	}
	if flags.Changed("log-level") {
		cfg.Debug.LogLevel = opts.logLevel
	}
	if flags.Changed("stats") {
		cfg.Debug.StatsFile = opts.stats
	}
	return cfg, cfg.Validate()
}

func run(cfg dieselvk.Config) error {
	logger, closer, err := dieselvk.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer closer.Close()
	dieselvk.SetLogger(logger)

	app := dieselvk.ClearApplication{}
	engine, err := dieselvk.NewEngine(cfg, app)
	if err != nil {
		return err
	}
	defer engine.Close()

	runErr := engine.Run(app)

	stats := engine.Renderer().Stats()
	summary := engine.Renderer().FrameStats().Summary()
	logger.Info("frame loop finished",
		"presented", stats.Presented,
		"skipped", stats.Skipped,
		"rebuilds", stats.Rebuilds,
		"avg_fps", summary.AverageFPS)

	if cfg.Debug.StatsFile != "" {
		if err := writeStats(cfg.Debug.StatsFile, engine.Renderer().FrameStats()); err != nil {
			logger.Error("write frame stats", "error", err)
		}
	}
	return runErr
}

func writeStats(path string, stats *dieselvk.FrameStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := stats.ExportCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
