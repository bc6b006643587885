package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shareui/packit-repo/catalog/entities"
)

// Log file names written into the log directory.
const (
	LatestLogName = "latest.log"
	ForpostName   = "forpost.txt"
)

// LogOptions selects which log files are written.
type LogOptions struct {
	Dir           string
	WriteLog      bool
	CreateForpost bool
	AppendToLog   bool
}

// FileLogSink implements ports.LogSink with latest.log and forpost.txt.
type FileLogSink struct {
	opts LogOptions
	now  func() time.Time
}

// NewFileLogSink creates a log sink.
func NewFileLogSink(opts LogOptions) *FileLogSink {
	return &FileLogSink{opts: opts, now: time.Now}
}

// WithClock returns a copy of the sink that reads time from now.
func (s *FileLogSink) WithClock(now func() time.Time) *FileLogSink {
	return &FileLogSink{opts: s.opts, now: now}
}

// LogPath returns the path of latest.log.
func (s *FileLogSink) LogPath() string { return filepath.Join(s.opts.Dir, LatestLogName) }

// ForpostPath returns the path of forpost.txt.
func (s *FileLogSink) ForpostPath() string { return filepath.Join(s.opts.Dir, ForpostName) }

// WriteReport writes the enabled log files. Empty reports are ignored.
func (s *FileLogSink) WriteReport(ctx context.Context, report *entities.ChangeReport) error {
	if report == nil || report.Empty() {
		return nil
	}
	if report.Time.IsZero() {
		report.Time = s.now()
	}
	if s.opts.Dir != "" && (s.opts.WriteLog || s.opts.CreateForpost) {
		if err := os.MkdirAll(s.opts.Dir, 0o750); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
	}

	if s.opts.WriteLog {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if s.opts.AppendToLog {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		if err := writeFile(s.LogPath(), flags, FormatLog(report)); err != nil {
			return err
		}
	}
	if s.opts.CreateForpost {
		if err := writeFile(s.ForpostPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FormatForpost(report)); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes both log files and returns the names that were deleted.
func (s *FileLogSink) Clear() ([]string, error) {
	var deleted []string
	for _, p := range []string{s.LogPath(), s.ForpostPath()} {
		err := os.Remove(p)
		switch {
		case err == nil:
			deleted = append(deleted, filepath.Base(p))
		case os.IsNotExist(err):
		default:
			return deleted, fmt.Errorf("removing %q: %w", p, err)
		}
	}
	return deleted, nil
}

func writeFile(path string, flags int, content string) error {
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening %q: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return f.Close()
}

// FormatLog renders the detailed change log.
func FormatLog(r *entities.ChangeReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", r.Time.Format("2006-01-02 15:04:05"), r.Operation)
	if len(r.Added) > 0 {
		fmt.Fprintf(&b, "Added (%d):\n", len(r.Added))
		for _, e := range r.Added {
			fmt.Fprintf(&b, "  + %s (%s) v%s [%s] by %s\n", e.Name(), e.ID(), e.Version(), e.State(), e.Author())
		}
	}
	if len(r.Updated) > 0 {
		fmt.Fprintf(&b, "Updated (%d):\n", len(r.Updated))
		for _, u := range r.Updated {
			fmt.Fprintf(&b, "  ~ %s (%s) v%s -> v%s [%s]\n",
				u.Entry.Name(), u.Entry.ID(), u.PreviousVersion, u.Entry.Version(), u.Entry.State())
		}
	}
	if len(r.Deleted) > 0 {
		fmt.Fprintf(&b, "Deleted (%d):\n", len(r.Deleted))
		for _, e := range r.Deleted {
			fmt.Fprintf(&b, "  - %s (%s)\n", e.Name(), e.ID())
		}
	}
	fmt.Fprintf(&b, "Total: %d\n\n", r.Total)
	return b.String()
}

// FormatForpost renders the short announcement text.
func FormatForpost(r *entities.ChangeReport) string {
	var b strings.Builder
	if len(r.Added) > 0 {
		b.WriteString("New plugins:\n")
		for _, e := range r.Added {
			fmt.Fprintf(&b, "• %s v%s by %s\n", e.Name(), e.Version(), e.Author())
		}
		b.WriteString("\n")
	}
	if len(r.Updated) > 0 {
		b.WriteString("Updated:\n")
		for _, u := range r.Updated {
			fmt.Fprintf(&b, "• %s %s -> %s\n", u.Entry.Name(), u.PreviousVersion, u.Entry.Version())
		}
		b.WriteString("\n")
	}
	if len(r.Deleted) > 0 {
		b.WriteString("Removed:\n")
		for _, e := range r.Deleted {
			fmt.Fprintf(&b, "• %s\n", e.Name())
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total plugins: %d\n", r.Total)
	return b.String()
}
