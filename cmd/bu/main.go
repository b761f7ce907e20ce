package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/vanderheijden86/bu/internal/brcli"
	"github.com/vanderheijden86/bu/internal/datasource"
	"github.com/vanderheijden86/bu/pkg/config"
	"github.com/vanderheijden86/bu/pkg/debug"
	"github.com/vanderheijden86/bu/pkg/loader"
	"github.com/vanderheijden86/bu/pkg/metrics"
	"github.com/vanderheijden86/bu/pkg/session"
	"github.com/vanderheijden86/bu/pkg/ui"
	"github.com/vanderheijden86/bu/pkg/version"
	"github.com/vanderheijden86/bu/pkg/watcher"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bu: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	db         string
	beadsDir   string
	configPath string
	logFile    string
	theme      string
	refresh    time.Duration
	refreshSet bool
	noWatch    bool
	saveConfig bool
	version    bool
	help       bool
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var o options
	fs := pflag.NewFlagSet("bu", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.db, "db", "", "read this beads.db or JSONL file instead of discovering one")
	fs.StringVar(&o.beadsDir, "beads-dir", "", "beads directory (default: nearest .beads, or $BEADS_DIR)")
	fs.DurationVar(&o.refresh, "refresh", config.DefaultRefreshInterval, "periodic refresh interval (0 disables)")
	fs.StringVar(&o.configPath, "config", "", "config file (default: "+config.ConfigPath()+")")
	fs.StringVar(&o.logFile, "log-file", "", "log file (default: "+config.LogPath()+")")
	fs.BoolVar(&o.noWatch, "no-watch", false, "do not watch the store for changes")
	fs.StringVar(&o.theme, "theme", "", "theme: lazygit, tokyo-night, dracula, nord")
	fs.BoolVar(&o.saveConfig, "save-config", false, "write the effective config (file plus flags) and exit")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	fs.BoolVarP(&o.help, "help", "h", false, "show help")
	fs.SetInterspersed(false)

	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}
	o.refreshSet = fs.Changed("refresh")
	if o.help {
		printHelp(stderr, fs)
	}
	return o, fs.Args(), nil
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprint(w, `bu: terminal dashboard for beads.

Usage:
  bu [flags]          open the dashboard
  bu [flags] new      create one record from a form

Flags:
`)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// applyFlags lets explicit flags override the config file.
func applyFlags(cfg config.Config, o options) config.Config {
	if o.refreshSet {
		r := o.refresh
		cfg.RefreshInterval = &r
	}
	if o.noWatch {
		off := false
		cfg.Watch = &off
	}
	if o.theme != "" {
		cfg.UI.Theme = o.theme
	}
	return cfg
}

// saveConfig writes cfg to path, or to the XDG location when path is empty.
func saveConfig(cfg config.Config, path string) (string, error) {
	if path == "" {
		if err := config.Save(cfg); err != nil {
			return "", err
		}
		return config.ConfigPath(), nil
	}
	return path, config.SaveTo(cfg, path)
}

func run(args []string) error {
	o, rest, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if o.help {
		return nil
	}
	if o.version {
		fmt.Printf("bu %s\n", version.Version)
		return nil
	}

	var cfg config.Config
	var cfgErr error
	if o.configPath != "" {
		cfg, cfgErr = config.LoadFrom(o.configPath)
	} else {
		cfg, cfgErr = config.Load()
	}
	cfg = applyFlags(cfg, o)
	if o.saveConfig {
		if cfgErr != nil {
			return cfgErr
		}
		path, err := saveConfig(cfg, o.configPath)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	}

	logPath := o.logFile
	if logPath == "" {
		logPath = config.LogPath()
	}
	logFile, err := openLogFile(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()
	debug.SetOutput(logFile)

	tuiHandler := ui.NewTUILogHandler(slog.LevelWarn)
	logger := slog.New(newTeeHandler(
		slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}),
		tuiHandler,
	))
	slog.SetDefault(logger)
	if cfgErr != nil {
		logger.Warn("config ignored", "err", cfgErr)
	}

	beadsDir := o.beadsDir
	if beadsDir == "" {
		if beadsDir, err = loader.GetBeadsDir(""); err != nil {
			return err
		}
	}
	storeOpts := []datasource.StoreOption{datasource.WithLogger(logger)}
	if o.db != "" {
		storeOpts = append(storeOpts, datasource.WithPath(o.db))
	}
	store := datasource.NewStore(beadsDir, storeOpts...)
	src, err := store.Resolve()
	if err != nil {
		return fmt.Errorf("no readable beads data in %s: %w", beadsDir, err)
	}
	logger.Info("store selected", "source", src.String())

	executor := brcli.New(cfg.Executor.Command,
		brcli.WithDir(filepath.Dir(beadsDir)),
		brcli.WithTimeout(cfg.Executor.Timeout),
		brcli.WithLogger(logger),
	)
	if !executor.Available() {
		logger.Warn("mutation tool not found; edits will fail", "command", cfg.Executor.Command)
	}

	if len(rest) > 0 {
		switch rest[0] {
		case "new":
			return runNew(context.Background(), rest[1:], store, executor, os.Stdout)
		default:
			return fmt.Errorf("unknown command %q", rest[0])
		}
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the dashboard needs a terminal; use 'bu new' for scripted creation")
	}
	return runTUI(cfg, store, executor, logger, tuiHandler)
}

func runTUI(cfg config.Config, store *datasource.Store, executor *brcli.CLI, logger *slog.Logger, tuiHandler *ui.TUILogHandler) error {
	treePath := session.TreeStatePath(store.BeadsDir())
	collapsed, err := session.LoadTreeState(treePath)
	if err != nil {
		logger.Warn("tree state ignored", "err", err)
	}

	state := session.New(session.Options{
		PageSize:   cfg.UI.PageSize,
		SplitRatio: cfg.SplitPercent(),
		ThemeIndex: ui.ThemeIndex(cfg.UI.Theme),
		ShowClosed: cfg.UI.ShowClosed,
		ShowLabels: cfg.LabelsVisible(),
		Collapsed:  collapsed,
	})

	var w *watcher.Watcher
	if cfg.WatchEnabled() {
		w, err = watcher.NewWatcher(store.WatchPaths(),
			watcher.WithOnError(func(err error) {
				logger.Warn("store watch", "err", err)
			}),
		)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			logger.Warn("file watching disabled", "err", err)
			w = nil
		} else {
			defer w.Stop()
			if w.IsPolling() {
				logger.Info("watching by polling", "paths", w.Paths())
			}
		}
	}

	m := ui.NewModel(ui.Options{
		State:           state,
		Reader:          store,
		Executor:        executor,
		Watcher:         w,
		RefreshInterval: cfg.Refresh(),
		Themes:          ui.Themes(lipgloss.NewRenderer(os.Stdout)),
		TreeStatePath:   treePath,
		Source:          store.BeadsDir(),
		Logger:          logger,
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)
	tuiHandler.SetProgram(p)
	defer metrics.LogAll(logger)
	return runProgram(p)
}

// runProgram runs p, quitting on SIGINT/SIGTERM and killing it if a
// second signal arrives or the quit stalls.
func runProgram(p *tea.Program) error {
	runDone := make(chan struct{})
	defer close(runDone)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for scripted smoke runs: set BU_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("BU_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				select {
				case <-runDone:
				case <-time.After(time.Duration(ms) * time.Millisecond):
					p.Quit()
				}
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
