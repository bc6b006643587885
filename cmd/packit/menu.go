package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

const menuExit = "exit"

// menuItems are the interactive menu entries, each naming a subcommand.
var menuItems = []struct {
	label   string
	command string
}{
	{"Scan & Apply", "scan"},
	{"Dir Status", "status"},
	{"Change Plugin", "change"},
	{"Delete Plugin", "delete"},
	{"Clear Missing", "clear-missing"},
	{"Edit Plugin", "edit"},
	{"Sort Plugins", "sort"},
	{"Reset Key", "reset-key"},
	{"Unpack Elyx", "unpack"},
	{"Pack Elyx", "pack"},
	{"Clear Logs", "clear-logs"},
	{"Reset (regen)", "regen"},
	{"Settings", "settings"},
}

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.interactive() {
				return errors.New("menu needs a terminal")
			}
			return runMenu(cmd, a)
		},
	}
}

// runMenu loops until the operator exits. A failed action is printed and
// the menu shown again.
func runMenu(cmd *cobra.Command, a *app) error {
	options := make([]huh.Option[string], 0, len(menuItems)+1)
	for i, item := range menuItems {
		options = append(options, huh.NewOption(fmt.Sprintf("%2d. %s", i+1, item.label), item.command))
	}
	options = append(options, huh.NewOption(" 0. Exit", menuExit))

	root := cmd.Root()
	for {
		choice, err := a.prompter.Choose(styleTitle.Render("PackIt Repo Manager"), options)
		if errors.Is(err, huh.ErrUserAborted) || choice == menuExit {
			return nil
		}
		if err != nil {
			return err
		}

		sub, _, err := root.Find([]string{choice})
		if err != nil || sub.RunE == nil {
			a.print().line(styleError, "[error]", "unknown option")
			continue
		}
		sub.SetContext(cmd.Context())
		runErr := sub.RunE(sub, nil)
		// Settings may have changed; reload them for the next action.
		a.cfg = nil
		switch {
		case errors.Is(runErr, huh.ErrUserAborted):
			a.print().line(styleWarn, "[interrupted]", "")
		case runErr != nil:
			a.print().line(styleError, "[error]", "%v", runErr)
		}
		if cmd.Context().Err() != nil {
			return nil
		}
	}
}
