package client

// Command setting keys.
const (
	CmdInfo       = "cmd_info"
	CmdSearch     = "cmd_search"
	CmdInstall    = "cmd_install"
	CmdUninstall  = "cmd_uninstall"
	CmdPluginList = "cmd_pluginlist"
	CmdRepoList   = "cmd_repolist"
	CmdShare      = "cmd_share"
	CmdUpdate     = "cmd_update"
	CmdUpgrade    = "cmd_upgrade"
)

// CommandKeys lists the command settings in display order.
var CommandKeys = []string{
	CmdInfo, CmdSearch, CmdInstall, CmdUninstall, CmdUpdate,
	CmdUpgrade, CmdPluginList, CmdRepoList, CmdShare,
}

var commandVerbs = map[string]string{
	CmdInfo:       "info",
	CmdSearch:     "search",
	CmdInstall:    "install",
	CmdUninstall:  "uninstall",
	CmdPluginList: "pluginlist",
	CmdRepoList:   "repolist",
	CmdShare:      "share",
	CmdUpdate:     "update",
	CmdUpgrade:    "upgrade",
}

// DefaultCommand returns the default alias for a command key, "packit <verb>".
func DefaultCommand(key string) string {
	verb, ok := commandVerbs[key]
	if !ok {
		return ""
	}
	return "packit " + verb
}

// Command returns the configured alias for key.
func Command(p Provider, key string) string {
	return Get(p, key, DefaultCommand(key))
}

// InitDefaultCommands stores the default alias for every unset command and
// returns the keys it set.
func InitDefaultCommands(p Provider) ([]string, error) {
	var set []string
	for _, key := range CommandKeys {
		if _, ok := p.Lookup(key); ok {
			continue
		}
		if err := p.Set(key, DefaultCommand(key)); err != nil {
			return set, err
		}
		set = append(set, key)
	}
	return set, nil
}
