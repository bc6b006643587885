package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shareui/packit-repo/catalog/extractor"
	"github.com/shareui/packit-repo/catalog/filesystem"
	"github.com/shareui/packit-repo/catalog/schema"
	"github.com/shareui/packit-repo/settings"
	"github.com/spf13/cobra"
)

func newPackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pack [dir] [dest]",
		Short: "Pack an unpacked plugin directory into an .elyx archive",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.arg(args, 0, "Plugin directory")
			if err != nil {
				return err
			}
			src = absPath(src)
			dest := filepath.Join(filepath.Dir(src), filepath.Base(src)+extractor.ElyxExt)
			if len(args) == 2 {
				dest = args[1]
			}
			if !filesystem.IsUnpackedPlugin(src) {
				a.print().warn("%s has no refmap manifest", src)
			}
			out, err := extractor.PackElyx(src, dest)
			if err != nil {
				return err
			}
			a.print().done("packed %s", out)
			return nil
		},
	}
}

func newUnpackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unpack [archive] [dest-dir]",
		Short: "Extract an .elyx archive into <dest-dir>/<name>",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := a.arg(args, 0, "Path to .elyx file")
			if err != nil {
				return err
			}
			archive = absPath(archive)
			dest := filepath.Dir(archive)
			if len(args) == 2 {
				dest = args[1]
			}
			out, err := extractor.UnpackElyx(archive, dest)
			if err != nil {
				return err
			}
			a.print().done("unpacked to %s", out)
			return nil
		},
	}
}

func newClearLogsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-logs",
		Short: "Delete latest.log and forpost.txt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loadSettings(false); err != nil {
				return err
			}
			deleted, err := a.logSink().Clear()
			if err != nil {
				return err
			}
			p := a.print()
			if len(deleted) == 0 {
				p.skip("no logs to clear")
				return nil
			}
			for _, name := range deleted {
				p.line(styleError, "[deleted]", "%s", name)
			}
			return nil
		},
	}
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or edit operator settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadSettings(false)
			if err != nil {
				return err
			}
			if !a.interactive() {
				printSettings(a, cfg)
				return nil
			}
			return a.editSettings(cfg)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadSettings(false)
			if err != nil {
				return err
			}
			printSettings(a, cfg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change one setting",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settings.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.store.Load()
			if err != nil {
				return err
			}
			value := args[1]
			if args[0] == settings.KeyConfigPath || args[0] == settings.KeyWorkingDir {
				value = absPath(value)
			}
			if err := cfg.Set(args[0], value); err != nil {
				return err
			}
			if err := a.store.Save(cfg); err != nil {
				return err
			}
			a.print().done("%s saved", args[0])
			return nil
		},
	})
	return cmd
}

func printSettings(a *app, cfg *settings.Settings) {
	p := a.print()
	p.plain("%s %s", styleTitle.Render("Settings"), styleMuted.Render(a.store.Path()))
	values := cfg.ToMap()
	for _, key := range settings.Keys {
		p.plain("  %s: %v", styleUpdated.Render(key), values[key])
	}
}

// editSettings walks the operator through every setting, keeping the
// current value on a blank answer.
func (a *app) editSettings(cfg *settings.Settings) error {
	p := a.print()
	p.plain("%s %s", styleTitle.Render("Settings"), styleMuted.Render("(press Enter to keep current value)"))

	base := a.store.Dir()
	fields := []struct{ key, label string }{
		{settings.KeyConfigPath, "Path to plugins.json"},
		{settings.KeyWorkingDir, "Working directory (plugin files)"},
		{settings.KeyRawDirURL, "Raw download URL base"},
	}
	for _, f := range fields {
		current := fmt.Sprint(cfg.ToMap()[f.key])
		raw, err := a.prompter.Ask(fmt.Sprintf("%s [%s]", f.label, current), "")
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}
		if f.key != settings.KeyRawDirURL {
			raw = settings.ResolvePath(raw, base)
		}
		if err := cfg.Set(f.key, raw); err != nil {
			return err
		}
	}

	labels := map[string]string{
		settings.KeyAddHash:        "Add hash",
		settings.KeyAddMinVersion:  "Add min_version",
		settings.KeyAddAbout:       "Add about (translation)",
		settings.KeyAddDescription: "Add description",
		settings.KeyWriteLog:       "Write latest.log",
		settings.KeyCreateForpost:  "Write forpost.txt",
		settings.KeyAppendToLog:    "Append to log",
		settings.KeyAllowDowngrade: "Allow downgrade without confirmation",
		settings.KeyCreateBackup:   "Create backups",
	}
	for _, key := range settings.BoolKeys {
		current, _ := settings.ParseBool(cfg.ToMap()[key])
		mark := "N"
		if current {
			mark = "Y"
		}
		raw, err := a.prompter.Ask(fmt.Sprintf("%s [%s]", labels[key], mark), "")
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}
		if err := cfg.Set(key, raw); err != nil {
			p.warn("%s: kept %s", key, mark)
		}
	}

	if err := a.store.Save(cfg); err != nil {
		return err
	}
	p.done("settings saved")
	return nil
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the catalog JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Generate()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, string(data))
			return err
		},
	}
}

func newLintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Validate the catalog against the schema and catalog rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			report, err := svc.Lint(cmd.Context())
			if err != nil {
				return err
			}
			p := a.print()
			for _, issue := range report.Issues {
				style := styleWarn
				if issue.Severity == schema.SeverityError {
					style = styleError
				}
				p.line(style, "["+string(issue.Severity)+"]", "%s", strings.TrimPrefix(issue.String(), string(issue.Severity)+": "))
			}
			if !report.OK() {
				return fmt.Errorf("%d lint error(s)", report.Errors())
			}
			p.done("catalog is valid (%d warning(s))", len(report.Issues))
			return nil
		},
	}
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create settings and an empty catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			created, err := svc.Init(cmd.Context())
			if err != nil {
				return err
			}
			p := a.print()
			if !created {
				p.skip("%s already exists", svc.Config().CatalogPath)
				return nil
			}
			p.done("created %s", svc.Config().CatalogPath)
			if _, err := os.Stat(svc.Config().WorkingDir); err != nil {
				p.warn("working directory %s does not exist yet", svc.Config().WorkingDir)
			}
			return nil
		},
	}
}
