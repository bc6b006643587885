package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/client"
	"github.com/shareui/packit-repo/netutil"
	"github.com/spf13/cobra"
)

// ClientFileName is the default client settings file, next to the settings file.
const ClientFileName = "packit_client.json"

type reposCmd struct {
	a    *app
	file string
}

func (r *reposCmd) provider() (*client.FileProvider, error) {
	path := r.file
	if path == "" {
		path = filepath.Join(r.a.store.Dir(), ClientFileName)
	}
	return client.OpenFileProvider(path)
}

func (r *reposCmd) manager() (*client.RepositoryManager, client.Provider, error) {
	p, err := r.provider()
	if err != nil {
		return nil, nil, err
	}
	return client.NewRepositoryManager(p, client.WithManagerLogger(r.a.logger)), p, nil
}

func (r *reposCmd) cache() (*client.Cache, error) {
	repos, p, err := r.manager()
	if err != nil {
		return nil, err
	}
	return client.NewCache(p, repos, r.a.logger), nil
}

func parseIndex(s string, n int) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", s, err)
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("index %d out of range (0-%d)", idx, n-1)
	}
	return idx, nil
}

func newReposCmd(a *app) *cobra.Command {
	r := &reposCmd{a: a}
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Manage client repositories and their catalog caches",
	}
	cmd.PersistentFlags().StringVar(&r.file, "file", "", "client settings file (default "+ClientFileName+" next to the settings file)")

	cmd.AddCommand(
		r.listCmd(),
		r.addCmd(),
		r.removeCmd(),
		r.setCmd(),
		r.toggleCmd(),
		r.refreshCmd(),
		r.searchCmd(),
		r.infoCmd(),
		r.commandsCmd(),
	)
	return cmd
}

func (r *reposCmd) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, _, err := r.manager()
			if err != nil {
				return err
			}
			if _, err := repos.EnsureDefault(); err != nil {
				return err
			}
			p := r.a.print()
			for i, repo := range repos.List() {
				state := styleAdded.Render("enabled")
				if !repo.Enabled {
					state = styleMuted.Render("disabled")
				}
				p.plain("%d. %s %s %s", i, styleBold.Render(repo.Name), state, styleMuted.Render(netutil.StripCredentials(repo.URL)))
			}
			return nil
		},
	}
}

func (r *reposCmd) addCmd() *cobra.Command {
	var name, url string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url != "" {
				if err := netutil.ValidateRepositoryURL(url); err != nil {
					return err
				}
			}
			repos, _, err := r.manager()
			if err != nil {
				return err
			}
			isFirst := len(repos.List()) == 0
			if _, err := repos.Add(isFirst); err != nil {
				return err
			}
			idx := len(repos.List()) - 1
			if name != "" {
				if err := repos.UpdateField(idx, client.FieldName, name); err != nil {
					return err
				}
			}
			if url != "" {
				if err := repos.UpdateField(idx, client.FieldURL, url); err != nil {
					return err
				}
			}
			r.a.print().done("added repository %d", idx)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "repository name")
	cmd.Flags().StringVar(&url, "url", "", "catalog URL")
	return cmd
}

func (r *reposCmd) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, _, err := r.manager()
			if err != nil {
				return err
			}
			idx, err := parseIndex(args[0], len(repos.List()))
			if err != nil {
				return err
			}
			if err := repos.Remove(idx); err != nil {
				return err
			}
			r.a.print().line(styleError, "[deleted]", "repository %d", idx)
			return nil
		},
	}
}

func (r *reposCmd) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <index> <field> <value>",
		Short:     "Set name, url, enabled or collapsed of a repository",
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{client.FieldName, client.FieldURL, client.FieldEnabled, client.FieldCollapsed},
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, _, err := r.manager()
			if err != nil {
				return err
			}
			idx, err := parseIndex(args[0], len(repos.List()))
			if err != nil {
				return err
			}
			if args[1] == client.FieldURL {
				if err := netutil.ValidateRepositoryURL(args[2]); err != nil {
					return err
				}
			}
			if err := repos.UpdateField(idx, args[1], args[2]); err != nil {
				return err
			}
			r.a.print().done("repository %d: %s updated", idx, args[1])
			return nil
		},
	}
}

func (r *reposCmd) toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <index>",
		Short: "Collapse or expand a repository in listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, _, err := r.manager()
			if err != nil {
				return err
			}
			idx, err := parseIndex(args[0], len(repos.List()))
			if err != nil {
				return err
			}
			return repos.ToggleCollapsed(idx)
		},
	}
}

func (r *reposCmd) refreshCmd() *cobra.Command {
	var (
		clientVersion string
		insecure      bool
		timeout       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Download every enabled repository catalog into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, p, err := r.manager()
			if err != nil {
				return err
			}
			if _, err := repos.EnsureDefault(); err != nil {
				return err
			}
			fetcher := client.NewHTTPFetcher(
				client.WithTimeout(timeout),
				client.WithInsecureTLS(insecure),
				client.WithFetchLogger(r.a.logger))
			refresher := client.NewRefresher(repos, client.NewCache(p, repos, r.a.logger), fetcher,
				client.WithClientVersion(clientVersion),
				client.WithRefreshLogger(r.a.logger))

			res := refresher.Refresh(cmd.Context())
			pr := r.a.print()
			for _, repo := range repos.Enabled() {
				if err, ok := res.Errors[repo.ID]; ok {
					pr.line(styleError, "[failed]", "%s: %v", repo.Name, err)
				}
			}
			pr.plain("%s %d updated, %d failed", styleTitle.Render("Refresh:"), res.Success, res.Failed)
			if res.Success == 0 && res.Failed > 0 {
				return fmt.Errorf("no repository could be refreshed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&clientVersion, "client-version", "", "hide plugins whose min_version is above this version")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	return cmd
}

func (r *reposCmd) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search cached plugins by id, name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := r.cache()
			if err != nil {
				return err
			}
			found := cache.Search(args[0])
			p := r.a.print()
			if len(found) == 0 {
				p.skip("nothing matches %q", args[0])
				return nil
			}
			for _, c := range found {
				p.plain("%s %s %s", entryLabel(c.Entry.Name(), c.ID()), c.Entry.Version(), styleMuted.Render(c.RepoName))
			}
			return nil
		},
	}
}

func (r *reposCmd) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show one cached plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := r.cache()
			if err != nil {
				return err
			}
			c, ok := cache.Lookup(args[0])
			if !ok {
				return fmt.Errorf("plugin %q not found in any enabled repository", args[0])
			}
			p := r.a.print()
			p.plain("%s", styleTitle.Render(entryLabel(c.Entry.Name(), c.ID())))
			p.plain("  repository: %s", c.RepoName)
			for _, key := range c.Entry.Keys() {
				p.plain("  %s: %s", styleUpdated.Render(key), displayValue(c.Entry, key))
			}
			return nil
		},
	}
}

func displayValue(e *entities.PluginEntry, key string) string {
	if s := e.String(key); s != "" {
		return s
	}
	raw, _ := e.Get(key)
	return string(raw)
}

func (r *reposCmd) commandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "Show the client command aliases, storing defaults for unset ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prov, err := r.provider()
			if err != nil {
				return err
			}
			set, err := client.InitDefaultCommands(prov)
			if err != nil {
				return err
			}
			p := r.a.print()
			if len(set) > 0 {
				p.info("stored %d default command(s)", len(set))
			}
			for _, key := range client.CommandKeys {
				p.plain("  %s: %s", styleUpdated.Render(key), client.Command(prov, key))
			}
			return nil
		},
	}
}
