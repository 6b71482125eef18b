package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/byut/redback/app"
	"github.com/byut/redback/config"
	"github.com/byut/redback/core"
	"github.com/byut/redback/terminal"
)

// Set at build time:
//
//	-ldflags "-X main.version=v1.2.0 -X main.buildType=release -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	buildType = "debug"
	buildTime = "unknown"
)

// LogFileName is the windowed backend's log file under config.Dir
const LogFileName = "redback.log"

type options struct {
	configPath string
	backend    string
	term       string
	prompt     string
	bell       string
	logFile    string
	logLevel   string
}

// newRootCmd binds the flags into o
func newRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redback",
		Short: "redback - interactive line terminal",
		Long: "redback binds the terminal to an event loop and echoes every submitted line.\n" +
			"Settings are read from $XDG_CONFIG_HOME/redback/" + config.FileName + "; flags override them.",
		Version: version + " (" + buildType + ", built " + buildTime + ")",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/redback/config.toml)")
	f.StringVarP(&o.backend, "backend", "b", "", "terminal backend: windowed or passthrough")
	f.StringVarP(&o.term, "term", "t", "", "terminfo entry (default $TERM)")
	f.StringVarP(&o.prompt, "prompt", "p", "", "passthrough prompt")
	f.StringVar(&o.bell, "bell", "", "bell: none, terminal or audio")
	f.StringVar(&o.logFile, "log-file", "", "log file (default stderr, or $XDG_CONFIG_HOME/redback/"+LogFileName+" when windowed)")
	f.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

// loadConfig reads the config file, then applies every flag that was set
func loadConfig(cmd *cobra.Command, o *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else if path, perr := config.DefaultPath(); perr == nil {
		cfg, err = config.Load(path)
	} else {
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	overlay := []struct {
		name string
		dst  *string
		val  string
	}{
		{"backend", &cfg.Backend, o.backend},
		{"term", &cfg.Terminal, o.term},
		{"prompt", &cfg.Prompt, o.prompt},
		{"bell", &cfg.Bell, o.bell},
		{"log-file", &cfg.Log.File, o.logFile},
		{"log-level", &cfg.Log.Level, o.logLevel},
	}
	for _, ov := range overlay {
		if f.Changed(ov.name) {
			*ov.dst = ov.val
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logTarget resolves where the log goes
// The windowed backend owns the screen, so stderr is only used by passthrough;
// an empty path with discard set means there is nowhere to log
func logTarget(cfg *config.Config) (path string, discard bool) {
	if cfg.Log.File != "" {
		return cfg.Log.File, false
	}
	if kind, err := cfg.Kind(); err != nil || kind != terminal.KindWindowed {
		return "", false
	}
	dir, err := config.Dir()
	if err != nil {
		return "", true
	}
	return filepath.Join(dir, LogFileName), false
}

// setupLogging opens the log sink; the closer is nil for stderr and discard
func setupLogging(cfg *config.Config) (*log.Logger, io.Closer, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	path, discard := logTarget(cfg)
	switch {
	case discard:
		w = io.Discard
	case path != "":
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, errors.Wrap(err, "log directory")
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.Wrap(err, "log file")
		}
		w, closer = file, file
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return logger, closer, nil
}

// banner is the key/value set logged at startup
func banner() []any {
	return []any{"version", version, "build", buildType, "built", buildTime}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	logger.Info("redback starting", banner()...)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	core.SetEmergencyReset(func() { terminal.EmergencyReset(os.Stdout) })
	// Panics inside reactor callbacks unwind through Run
	defer core.Recover(a.Restore)

	return a.Run(ctx)
}

func main() {
	if err := newRootCmd(&options{}).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
