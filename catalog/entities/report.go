package entities

import "time"

// UpdatedEntry pairs an applied entry with the version it replaced.
type UpdatedEntry struct {
	Entry           *PluginEntry
	PreviousVersion string
}

// ChangeReport summarizes the catalog changes made by one operation. Log
// sinks render it.
type ChangeReport struct {
	Operation string
	Time      time.Time
	Added     []*PluginEntry
	Updated   []UpdatedEntry
	Deleted   []*PluginEntry
	Total     int
}

// Empty reports whether the operation changed nothing.
func (r *ChangeReport) Empty() bool {
	return len(r.Added) == 0 && len(r.Updated) == 0 && len(r.Deleted) == 0
}
