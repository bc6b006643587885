package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shareui/packit-repo/catalog"
	"github.com/shareui/packit-repo/catalog/extractor"
	"github.com/shareui/packit-repo/catalog/filesystem"
	"github.com/shareui/packit-repo/catalog/ports"
	"github.com/shareui/packit-repo/catalog/prompt"
	"github.com/shareui/packit-repo/catalog/services"
	"github.com/shareui/packit-repo/catalog/translate"
	"github.com/shareui/packit-repo/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Persistent flag names. Flags named after a preference key override it.
const (
	flagSettings = "settings"
	flagVerbose  = "verbose"
	flagYes      = "yes"
	flagConflict = "conflict"
)

// app carries what every subcommand needs: settings, logger and prompts.
type app struct {
	settingsPath string
	verbose      bool
	yes          bool
	conflict     string

	v        *viper.Viper
	out      io.Writer
	logger   *slog.Logger
	prompter *prompt.TerminalPrompter
	store    *settings.FileStore
	cfg      *settings.Settings
	tty      func() bool
}

func newApp() *app {
	p := prompt.NewTerminalPrompter()
	return &app{
		v:        settings.NewViper(),
		out:      os.Stdout,
		logger:   slog.Default(),
		prompter: p,
		tty:      p.IsInteractive,
	}
}

func (a *app) print() printer {
	return printer{w: a.out}
}

// setup runs before every subcommand.
func (a *app) setup(cmd *cobra.Command) {
	a.out = cmd.OutOrStdout()
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if a.settingsPath == "" {
		a.settingsPath = settings.FileName
	}
	a.store = settings.NewFileStore(settings.WithPath(a.settingsPath))
}

// loadSettings reads the preferences file, writes back defaults for missing
// keys and applies flag and environment overrides. When the catalog or
// working directory is unset it runs first-run setup, which needs a terminal.
func (a *app) loadSettings(requireConfigured bool) (*settings.Settings, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg, missing, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	if a.store.Exists() && len(missing) > 0 {
		a.logger.Info("adding missing settings", "keys", missing)
		if err := a.store.Save(cfg); err != nil {
			return nil, err
		}
	}
	if err := settings.Overlay(cfg, a.v); err != nil {
		return nil, err
	}

	if requireConfigured && cfg.NeedsFirstRun() {
		if !a.interactive() {
			return nil, cfg.Validate()
		}
		if err := a.firstRun(cfg); err != nil {
			return nil, err
		}
	}
	a.cfg = cfg
	return cfg, nil
}

func (a *app) interactive() bool {
	return a.tty()
}

func (a *app) firstRun(cfg *settings.Settings) error {
	p := a.print()
	p.plain(styleTitle.Render("=== First run setup ==="))
	p.plain(styleMuted.Render("Enter absolute paths or paths relative to the settings file."))

	base := a.store.Dir()
	configPath, err := a.prompter.Ask("Path to plugins.json", cfg.ConfigPath)
	if err != nil {
		return err
	}
	workingDir, err := a.prompter.Ask("Working directory (plugin files)", cfg.WorkingDir)
	if err != nil {
		return err
	}
	rawURL, err := a.prompter.Ask("Raw download URL base", cfg.RawDirURL)
	if err != nil {
		return err
	}
	cfg.ConfigPath = settings.ResolvePath(configPath, base)
	cfg.WorkingDir = settings.ResolvePath(workingDir, base)
	if err := cfg.Set(settings.KeyRawDirURL, rawURL); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := a.store.Save(cfg); err != nil {
		return err
	}
	result, err := a.store.EnsureGitignore()
	if err != nil {
		a.logger.Warn("cannot update .gitignore", "error", err)
	} else {
		p.line(styleAccent, "[gitignore]", "%s: %s", settings.FileName, result)
	}
	p.done("configuration saved")
	return nil
}

// decisions picks how confirmations and conflicts are answered: --yes
// accepts everything, a terminal prompts, anything else takes the defaults.
func (a *app) decisions() (ports.DecisionStrategy, error) {
	choice, err := prompt.ParseChoice(a.conflict)
	if err != nil {
		return nil, err
	}
	if a.yes {
		return prompt.Auto{AcceptAll: true, Conflict: choice}, nil
	}
	if a.interactive() {
		return a.prompter, nil
	}
	return prompt.Auto{Conflict: choice}, nil
}

func (a *app) logDir() string {
	if a.cfg != nil && a.cfg.LogDir != "" {
		return a.cfg.LogDir
	}
	return a.store.Dir()
}

func (a *app) logSink() *filesystem.FileLogSink {
	cfg := a.cfg
	return filesystem.NewFileLogSink(filesystem.LogOptions{
		Dir:           a.logDir(),
		WriteLog:      cfg.WriteLog,
		CreateForpost: cfg.CreateForpost,
		AppendToLog:   cfg.AppendToLog,
	})
}

// service wires a CatalogService from the configured settings.
func (a *app) service() (*catalog.CatalogService, error) {
	cfg, err := a.loadSettings(true)
	if err != nil {
		return nil, err
	}
	decisions, err := a.decisions()
	if err != nil {
		return nil, err
	}

	scanner, err := filesystem.NewDirScanner(
		filesystem.WithIgnorePatterns(cfg.Ignore...),
		filesystem.WithScannerLogger(a.logger))
	if err != nil {
		return nil, err
	}
	source := extractor.NewSource(filesystem.NewSHA256Digester(),
		extractor.WithStateKeywords(cfg.StateKeywords),
		extractor.WithLogger(a.logger))

	builder := services.NewEntryBuilder(services.BuildOptions{
		RawDirURL:      cfg.RawDirURL,
		AddHash:        cfg.AddHash,
		AddMinVersion:  cfg.AddMinVersion,
		AddAbout:       cfg.AddAbout,
		AddDescription: cfg.AddDescription,
		AboutLang:      cfg.AboutLang,
	}).WithLogger(a.logger)
	if cfg.AddAbout && cfg.TranslateURL != "" {
		tr, err := translate.New(cfg.TranslateURL, translate.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		builder = builder.WithTranslator(tr)
	}

	repo := filesystem.NewFileCatalogRepository(filesystem.WithRepositoryLogger(a.logger))
	return catalog.NewCatalogService(catalog.Config{
		CatalogPath:    cfg.ConfigPath,
		WorkingDir:     cfg.WorkingDir,
		BackupDir:      cfg.BackupDir,
		CreateBackup:   cfg.CreateBackup,
		HashTracking:   cfg.AddHash,
		AllowDowngrade: cfg.AllowDowngrade,
	}, repo, scanner, source, builder,
		catalog.WithDecisions(decisions),
		catalog.WithBackupSink(filesystem.NewFileBackupSink()),
		catalog.WithLogSink(a.logSink()),
		catalog.WithLogger(a.logger),
	), nil
}

// declined turns a declined confirmation into a skip message.
func (a *app) declined(err error) error {
	if errors.Is(err, catalog.ErrDeclined) {
		a.print().skip("cancelled")
		return nil
	}
	return err
}

// arg returns args[i], asking for it on a terminal when absent.
func (a *app) arg(args []string, i int, title string) (string, error) {
	if len(args) > i && args[i] != "" {
		return args[i], nil
	}
	if !a.interactive() {
		return "", fmt.Errorf("missing argument: %s", title)
	}
	return a.prompter.Ask(title, "")
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
