package main

import (
	"github.com/shareui/packit-repo/settings"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	return buildRootCmd(newApp())
}

func buildRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "packit",
		Short:         "Plugin catalog maintenance",
		Long:          "packit reconciles a directory of plugin files into a plugins.json catalog and manages client repositories.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.interactive() {
				return cmd.Help()
			}
			return runMenu(cmd, a)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.settingsPath, flagSettings, settings.FileName, "path to the settings file")
	pf.BoolVarP(&a.verbose, flagVerbose, "v", false, "verbose output")
	pf.BoolVarP(&a.yes, flagYes, "y", false, "answer yes to every confirmation")
	pf.StringVar(&a.conflict, flagConflict, "take", "non-interactive field conflict choice: keep or take")

	pf.String("catalog", "", "catalog file (overrides config_path)")
	pf.String("workdir", "", "plugin working directory (overrides working_dir)")
	pf.Bool("allow-downgrade", false, "apply downgrades without asking (overrides allow_downgrade)")
	_ = a.v.BindPFlag(settings.KeyConfigPath, pf.Lookup("catalog"))
	_ = a.v.BindPFlag(settings.KeyWorkingDir, pf.Lookup("workdir"))
	_ = a.v.BindPFlag(settings.KeyAllowDowngrade, pf.Lookup("allow-downgrade"))

	root.AddCommand(
		newScanCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
		newChangeCmd(a),
		newDeleteCmd(a),
		newClearMissingCmd(a),
		newEditCmd(a),
		newSortCmd(a),
		newResetKeyCmd(a),
		newRegenCmd(a),
		newPackCmd(a),
		newUnpackCmd(a),
		newClearLogsCmd(a),
		newSettingsCmd(a),
		newSchemaCmd(a),
		newLintCmd(a),
		newInitCmd(a),
		newReposCmd(a),
		newMenuCmd(a),
	)
	return root
}
