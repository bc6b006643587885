package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/shareui/packit-repo/catalog"
	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/filesystem"
	"github.com/shareui/packit-repo/catalog/ports"
	"github.com/shareui/packit-repo/catalog/services"
	"github.com/spf13/cobra"
)

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the working directory and apply changes to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			res, err := svc.ScanApply(cmd.Context())
			if res != nil {
				a.print().result(res)
			}
			if err == nil || res == nil || !a.interactive() {
				return err
			}
			return retrySave(cmd.Context(), svc, res, err, a.prompter, a.print())
		},
	}
}

type resultSaver interface {
	SaveResult(ctx context.Context, res *services.Result) error
}

// retrySave offers to save a merged result again after saveErr, until the
// save succeeds or the operator declines. Declining returns the last error.
func retrySave(ctx context.Context, svc resultSaver, res *services.Result, saveErr error, c ports.Confirmer, p printer) error {
	for saveErr != nil {
		p.line(styleError, "[error]", "%v", saveErr)
		retry, err := c.Confirm(ctx, entities.Confirmation{
			Kind:    entities.ConfirmRetrySave,
			Message: "Saving failed. Retry saving the merged catalog?",
			Default: true,
		})
		if err != nil {
			return err
		}
		if !retry {
			return saveErr
		}
		saveErr = svc.SaveResult(ctx, res)
	}
	p.done("catalog saved (%d plugins)", res.Catalog.Len())
	return nil
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how the working directory differs from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			res, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			a.print().status(res)
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run status whenever the working directory changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p := a.print()
			run := func() {
				res, err := svc.Status(ctx)
				if err != nil {
					a.logger.Error("status failed", "error", err)
					return
				}
				p.status(res)
			}

			run()
			p.info("watching %s (ctrl+c to stop)", svc.Config().WorkingDir)
			w := filesystem.NewDirWatcher(filesystem.WithDebounce(debounce), filesystem.WithWatcherLogger(a.logger))
			return w.Watch(ctx, svc.Config().WorkingDir, func(paths []string) {
				a.logger.Debug("working directory changed", "paths", len(paths))
				p.plain("")
				run()
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", filesystem.DefaultDebounce, "quiet period before re-running")
	return cmd
}

func newChangeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "change [file]",
		Short: "Rebuild one catalog entry from its plugin file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			name, err := a.arg(args, 0, "Plugin file name")
			if err != nil {
				return err
			}
			u, err := svc.Change(cmd.Context(), name)
			if err != nil {
				return err
			}
			a.print().updated(*u)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove a plugin from the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			id, err := a.arg(args, 0, "Plugin id")
			if err != nil {
				return err
			}
			removed, err := svc.Delete(cmd.Context(), id)
			if err != nil {
				return a.declined(err)
			}
			a.print().deleted(removed)
			return nil
		},
	}
}

func newClearMissingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-missing",
		Short: "Remove catalog entries whose files are gone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			p := a.print()
			missing, err := svc.Missing(cmd.Context())
			if err != nil {
				return err
			}
			if len(missing) == 0 {
				p.info("no missing plugins")
				return nil
			}
			for _, e := range missing {
				p.deleted(e)
			}
			removed, err := svc.ClearMissing(cmd.Context())
			if err != nil {
				return a.declined(err)
			}
			p.done("removed %d plugin(s)", len(removed))
			return nil
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var set map[string]string
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Edit fields of a catalog entry",
		Long:  "Edit sets existing fields of one entry. Editable: " + strings.Join(catalog.EditableFields, ", ") + ".",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			id, err := a.arg(args, 0, "Plugin id")
			if err != nil {
				return err
			}
			if len(set) == 0 {
				if !a.interactive() {
					return fmt.Errorf("nothing to edit: pass --set field=value")
				}
				if set, err = a.askEdits(cmd, svc, id); err != nil {
					return err
				}
			}
			entry, err := svc.Edit(cmd.Context(), id, set)
			if err != nil {
				return err
			}
			a.print().done("updated %s: %s", entryLabel(entry.Name(), entry.ID()),
				strings.Join(slices.Sorted(maps.Keys(set)), ", "))
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&set, "set", nil, "field=value to set (repeatable)")
	return cmd
}

// askEdits prompts for each editable field the entry already has.
func (a *app) askEdits(cmd *cobra.Command, svc *catalog.CatalogService, id string) (map[string]string, error) {
	entry, err := svc.Entry(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	changes := map[string]string{}
	for _, field := range catalog.EditableFields {
		if !entry.Has(field) {
			continue
		}
		raw, _ := entry.Get(field)
		current := entry.String(field)
		if current == "" {
			current = string(raw)
		}
		value, err := a.prompter.Ask(fmt.Sprintf("%s [%s]", field, current), "")
		if err != nil {
			return nil, err
		}
		if value != "" {
			changes[field] = value
		}
	}
	return changes, nil
}

func newSortCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "sort [name|id|version]",
		Short:     "Sort catalog entries",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{entities.SortByName, entities.SortByID, entities.SortByVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			by := entities.SortByName
			if len(args) == 1 {
				by = args[0]
			} else if a.interactive() {
				if by, err = a.prompter.Choose("Sort by", huh.NewOptions(entities.SortByName, entities.SortByID, entities.SortByVersion)); err != nil {
					return err
				}
			}
			if err := svc.Sort(cmd.Context(), by); err != nil {
				return err
			}
			a.print().done("sorted by %s", by)
			return nil
		},
	}
}

func newResetKeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-key [key]",
		Short: "Remove a field from every entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			key, err := a.arg(args, 0, "Field to remove")
			if err != nil {
				return err
			}
			n, err := svc.ResetKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			if n == 0 {
				a.print().skip("no entries have %q", key)
				return nil
			}
			a.print().done("removed %q from %d entries", key, n)
			return nil
		},
	}
}

func newRegenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regen",
		Short: "Regenerate the whole plugin list from files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			res, err := svc.Regenerate(cmd.Context())
			if err != nil {
				return a.declined(err)
			}
			p := a.print()
			p.failures(res.Failures)
			for _, e := range res.Added {
				p.added(e)
			}
			p.done("regenerated catalog with %s plugins", styleBold.Render(fmt.Sprint(res.Catalog.Len())))
			return nil
		},
	}
}
