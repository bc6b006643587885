// Package settings manages the operator preferences file (script_cfg.yml)
// and its environment and flag overlay.
package settings

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shareui/packit-repo/catalog/values"
	"github.com/spf13/cast"
)

// FileName is the preferences file name.
const FileName = "script_cfg.yml"

// Preference keys.
const (
	KeyConfigPath     = "config_path"
	KeyWorkingDir     = "working_dir"
	KeyRawDirURL      = "raw_dir_url"
	KeyStateKeywords  = "state_keywords"
	KeyAddHash        = "add_hash"
	KeyAddMinVersion  = "add_min_version"
	KeyAddAbout       = "add_about"
	KeyAddDescription = "add_description"
	KeyWriteLog       = "write_log"
	KeyCreateForpost  = "create_forpost"
	KeyAppendToLog    = "append_to_log"
	KeyAllowDowngrade = "allow_downgrade"
	KeyCreateBackup   = "create_backup"
	KeyBackupDir      = "backup_dir"
	KeyLogDir         = "log_dir"
	KeyAboutLang      = "about_lang"
	KeyIgnore         = "ignore"
	KeyTranslateURL   = "translate_url"
)

// DefaultRawDirURL is the link base used until the operator sets one.
const DefaultRawDirURL = "https://raw.githubusercontent.com/shareui/packit/main/plugins"

// Keys lists every preference key in file order.
var Keys = []string{
	KeyConfigPath, KeyWorkingDir, KeyRawDirURL, KeyStateKeywords,
	KeyAddHash, KeyAddMinVersion, KeyAddAbout, KeyAddDescription,
	KeyWriteLog, KeyCreateForpost, KeyAppendToLog, KeyAllowDowngrade,
	KeyCreateBackup, KeyBackupDir, KeyLogDir, KeyAboutLang, KeyIgnore, KeyTranslateURL,
}

// BoolKeys lists the toggle preferences.
var BoolKeys = []string{
	KeyAddHash, KeyAddMinVersion, KeyAddAbout, KeyAddDescription,
	KeyWriteLog, KeyCreateForpost, KeyAppendToLog, KeyAllowDowngrade, KeyCreateBackup,
}

// ErrNotConfigured is returned when a required path has not been set.
var ErrNotConfigured = errors.New("settings not configured")

// NotConfiguredError names the missing required key.
type NotConfiguredError struct {
	Key string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("cfg %q is not set, run settings first", e.Key)
}

// Is implements error matching for errors.Is() checks.
func (e *NotConfiguredError) Is(target error) bool {
	return target == ErrNotConfigured
}

// Settings are the operator preferences.
type Settings struct {
	ConfigPath     string   `yaml:"config_path"`
	WorkingDir     string   `yaml:"working_dir"`
	RawDirURL      string   `yaml:"raw_dir_url"`
	StateKeywords  []string `yaml:"state_keywords"`
	AddHash        bool     `yaml:"add_hash"`
	AddMinVersion  bool     `yaml:"add_min_version"`
	AddAbout       bool     `yaml:"add_about"`
	AddDescription bool     `yaml:"add_description"`
	WriteLog       bool     `yaml:"write_log"`
	CreateForpost  bool     `yaml:"create_forpost"`
	AppendToLog    bool     `yaml:"append_to_log"`
	AllowDowngrade bool     `yaml:"allow_downgrade"`
	CreateBackup   bool     `yaml:"create_backup"`
	BackupDir      string   `yaml:"backup_dir"`
	LogDir         string   `yaml:"log_dir"`
	AboutLang      string   `yaml:"about_lang"`
	Ignore         []string `yaml:"ignore"`
	TranslateURL   string   `yaml:"translate_url"`
}

// Defaults returns the preferences used for missing keys.
func Defaults() *Settings {
	return &Settings{
		RawDirURL:     DefaultRawDirURL,
		StateKeywords: slices.Clone(values.DefaultStateKeywords),
		AddHash:       true,
		WriteLog:      true,
		CreateForpost: true,
		CreateBackup:  true,
		AboutLang:     "ru",
		Ignore:        []string{},
	}
}

// Validate checks that the catalog and working directory paths are set.
func (s *Settings) Validate() error {
	if s.ConfigPath == "" {
		return &NotConfiguredError{Key: KeyConfigPath}
	}
	if s.WorkingDir == "" {
		return &NotConfiguredError{Key: KeyWorkingDir}
	}
	return nil
}

// NeedsFirstRun reports whether the required paths are still empty.
func (s *Settings) NeedsFirstRun() bool {
	return s.Validate() != nil
}

// ToMap returns the preferences keyed by preference key.
func (s *Settings) ToMap() map[string]any {
	return map[string]any{
		KeyConfigPath:     s.ConfigPath,
		KeyWorkingDir:     s.WorkingDir,
		KeyRawDirURL:      s.RawDirURL,
		KeyStateKeywords:  s.StateKeywords,
		KeyAddHash:        s.AddHash,
		KeyAddMinVersion:  s.AddMinVersion,
		KeyAddAbout:       s.AddAbout,
		KeyAddDescription: s.AddDescription,
		KeyWriteLog:       s.WriteLog,
		KeyCreateForpost:  s.CreateForpost,
		KeyAppendToLog:    s.AppendToLog,
		KeyAllowDowngrade: s.AllowDowngrade,
		KeyCreateBackup:   s.CreateBackup,
		KeyBackupDir:      s.BackupDir,
		KeyLogDir:         s.LogDir,
		KeyAboutLang:      s.AboutLang,
		KeyIgnore:         s.Ignore,
		KeyTranslateURL:   s.TranslateURL,
	}
}

// Set assigns one preference from a loosely typed value.
func (s *Settings) Set(key string, value any) error {
	if b, ok := boolField(s, key); ok {
		v, err := ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*b = v
		return nil
	}

	switch key {
	case KeyStateKeywords, KeyIgnore:
		list, err := toList(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == KeyIgnore {
			s.Ignore = list
		} else {
			s.StateKeywords = list
		}
		return nil
	}

	str, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	switch key {
	case KeyConfigPath:
		s.ConfigPath = str
	case KeyWorkingDir:
		s.WorkingDir = str
	case KeyRawDirURL:
		s.RawDirURL = strings.TrimRight(str, "/")
	case KeyBackupDir:
		s.BackupDir = str
	case KeyLogDir:
		s.LogDir = str
	case KeyAboutLang:
		s.AboutLang = str
	case KeyTranslateURL:
		s.TranslateURL = str
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func boolField(s *Settings, key string) (*bool, bool) {
	switch key {
	case KeyAddHash:
		return &s.AddHash, true
	case KeyAddMinVersion:
		return &s.AddMinVersion, true
	case KeyAddAbout:
		return &s.AddAbout, true
	case KeyAddDescription:
		return &s.AddDescription, true
	case KeyWriteLog:
		return &s.WriteLog, true
	case KeyCreateForpost:
		return &s.CreateForpost, true
	case KeyAppendToLog:
		return &s.AppendToLog, true
	case KeyAllowDowngrade:
		return &s.AllowDowngrade, true
	case KeyCreateBackup:
		return &s.CreateBackup, true
	}
	return nil, false
}

// ParseBool accepts y/yes/on and n/no/off in addition to what cast understands.
func ParseBool(value any) (bool, error) {
	if str, ok := value.(string); ok {
		switch strings.ToLower(strings.TrimSpace(str)) {
		case "y", "yes", "on":
			return true, nil
		case "n", "no", "off", "":
			return false, nil
		}
	}
	return cast.ToBoolE(value)
}

// toList accepts a sequence or a comma separated string.
func toList(value any) ([]string, error) {
	if str, ok := value.(string); ok {
		var out []string
		for part := range strings.SplitSeq(str, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	return cast.ToStringSliceE(value)
}

// ResolvePath makes a relative path absolute against baseDir.
func ResolvePath(raw, baseDir string) string {
	if raw == "" || filepath.IsAbs(raw) {
		return raw
	}
	return filepath.Clean(filepath.Join(baseDir, raw))
}
