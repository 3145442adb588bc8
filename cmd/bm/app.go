package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"

	"github.com/nikbrunner/bookmarks/internal/config"
	"github.com/nikbrunner/bookmarks/internal/engine"
	"github.com/nikbrunner/bookmarks/internal/fetch"
	"github.com/nikbrunner/bookmarks/internal/legacy"
	"github.com/nikbrunner/bookmarks/internal/logging"
	"github.com/nikbrunner/bookmarks/internal/prefs"
	"github.com/nikbrunner/bookmarks/internal/prompt"
	"github.com/nikbrunner/bookmarks/internal/storage"
)

// app holds one CLI invocation, or one shell session, and everything it
// opened.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	// ttyIn is set when both ends are a terminal, so prompts can draw
	// bubbletea dialogs.
	ttyIn *os.File

	// Global flags.
	configPath string
	dataDir    string
	yes        bool
	logLevel   string

	// importMode overrides the import prompt when set by `import --mode`.
	importMode engine.ImportMode

	// session keeps the engine open between commands of `bm shell`.
	session bool

	cfg     config.Config
	logger  *log.Logger
	logFile *os.File
	store   *storage.SQLiteStore
	titles  *fetch.Runner
	source  io.Closer
	prefs   *prefs.Manager
	eng     *engine.Engine
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	a := &app{in: in, out: out, errOut: errOut, logger: logging.Discard()}
	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK && isatty.IsTerminal(inFile.Fd()) && isatty.IsTerminal(outFile.Fd()) {
		a.ttyIn = inFile
	}
	return a
}

func (a *app) interactive() bool {
	return a.ttyIn != nil
}

// loadConfig resolves config.yaml and applies the global flags.
func (a *app) loadConfig() error {
	var (
		v   *viper.Viper
		err error
	)
	if a.configPath != "" {
		v, err = config.LoadFile(a.configPath)
	} else {
		v, err = config.Load(config.DefaultConfigDir())
	}
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		v.Set(config.KeyDataDir, a.dataDir)
	}
	if a.logLevel != "" {
		v.Set(config.KeyLogLevel, a.logLevel)
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) openLogger() error {
	out := a.errOut
	if a.cfg.LogFile != "" {
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		out = f
	}
	logger, err := logging.New(logging.Options{
		Level:  a.cfg.LogLevel,
		Format: a.cfg.LogFormat,
		Output: out,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// openStore loads the configuration and opens the database, without the
// engine. It is enough for `reset`.
func (a *app) openStore() error {
	if a.store != nil {
		return nil
	}
	if err := a.loadConfig(); err != nil {
		return err
	}
	if err := a.openLogger(); err != nil {
		return err
	}

	store, err := storage.Open(a.cfg.DatabasePath(), storage.Options{MaxSizeBytes: a.cfg.MaxSizeBytes()})
	if err != nil {
		return err
	}
	a.store = store
	a.logger.Debug("opened database", "path", store.Path())
	return nil
}

// open starts the engine. It is a no-op when the engine is already open.
func (a *app) open(ctx context.Context) error {
	if a.eng != nil {
		return nil
	}
	if err := a.openStore(); err != nil {
		return err
	}

	params := engine.Params{
		Bookmarks:    a.store.Bookmarks(),
		Directories:  a.store.Directories(),
		Prompter:     a.prompter(),
		Logger:       a.logger,
		UndoCapacity: a.cfg.UndoCapacity,
	}

	migrator, err := a.migrator()
	if err != nil {
		a.logger.Warn("legacy source unavailable", "err", err)
	} else if migrator != nil {
		params.Migrator = migrator
	}

	if a.cfg.FetchEnabled {
		a.titles = fetch.NewRunner(fetch.NewHTTPFetcher(a.cfg.FetchUserAgent), fetch.RetryPolicy{
			Attempts: a.cfg.FetchRetries + 1,
			Delay:    a.cfg.FetchRetryDelay,
			Timeout:  a.cfg.FetchTimeout,
		}, a.logger)
		params.Titles = a.titles
	}

	a.eng = engine.New(params)
	report, err := a.eng.Init(ctx)
	if err != nil {
		fmt.Fprintln(a.errOut, engine.UserMessage(err))
	}
	if m := report.Migration; !m.Skipped && m.Bookmarks > 0 {
		fmt.Fprintf(a.errOut, "Migrated %d bookmark(s) and %d directory(ies) from legacy data.\n", m.Bookmarks, m.Directories)
	}
	if report.Dropped > 0 {
		a.logger.Warn("skipped invalid stored bookmarks", "count", report.Dropped)
	}

	// After Init, so a migrated layout density is picked up.
	a.prefs = prefs.NewManager(a.store.Settings(), a.logger)
	if _, err := a.prefs.Load(ctx); err != nil {
		a.logger.Warn("failed to load preferences", "err", err)
	}
	return nil
}

// migrator returns nil when no legacy source is configured.
func (a *app) migrator() (*legacy.Migrator, error) {
	var source legacy.Source
	switch {
	case a.cfg.LegacyFile != "":
		source = legacy.NewFileSource(a.cfg.LegacyFile)
	case a.cfg.LegacyRedisURL != "":
		rs, err := legacy.NewRedisSource(a.cfg.LegacyRedisURL, a.cfg.LegacyRedisPrefix)
		if err != nil {
			return nil, err
		}
		a.source = rs
		source = rs
	default:
		return nil, nil
	}

	return legacy.New(legacy.Params{
		Source:      source,
		Bookmarks:   a.store.Bookmarks(),
		Directories: a.store.Directories(),
		Settings:    a.store.Settings(),
		Logger:      a.logger,
	}), nil
}

func (a *app) prompter() engine.Prompter {
	return &cliPrompter{app: a}
}

func (a *app) styles() prefs.Styles {
	if a.prefs == nil {
		return prefs.NewStyles(prefs.Defaults())
	}
	return prefs.NewStyles(a.prefs.Current())
}

// close flushes and releases everything open returns. Safe to call twice.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.eng != nil {
		if err := a.eng.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		a.eng = nil
		a.titles = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
		a.store = nil
	}
	if a.source != nil {
		a.source.Close()
		a.source = nil
	}
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
	return errors.Join(errs...)
}

// cliPrompter picks the prompt style on first use, once preferences are
// loaded, and applies `import --mode` before asking.
type cliPrompter struct {
	app  *app
	once sync.Once
	base engine.Prompter
}

func (p *cliPrompter) prompter() engine.Prompter {
	p.once.Do(func() {
		a := p.app
		switch {
		case a.yes:
			p.base = engine.AutoPrompter{Answer: true, Mode: engine.ImportMerge}
		case a.interactive():
			p.base = prompt.NewTerminal(a.ttyIn, a.out, a.styles(), a.logger)
		default:
			p.base = prompt.NewLine(a.in, a.out)
		}
	})
	return p.base
}

func (p *cliPrompter) Confirm(ctx context.Context, pr engine.Prompt) bool {
	return p.prompter().Confirm(ctx, pr)
}

func (p *cliPrompter) ChooseImportMode(ctx context.Context, pr engine.ImportPrompt) engine.ImportMode {
	if mode := p.app.importMode; mode != engine.ImportCancel {
		return mode
	}
	return p.prompter().ChooseImportMode(ctx, pr)
}
