package settings

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PACKIT_WORKING_DIR.
const EnvPrefix = "PACKIT"

// NewViper returns a viper instance that resolves every preference key
// from PACKIT_* environment variables. Callers bind cobra flags onto it.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	for _, key := range Keys {
		_ = v.BindEnv(key)
	}
	return v
}

// Overlay applies values set in v (flags or environment) over cfg.
// Unset keys keep the file value.
func Overlay(cfg *Settings, v *viper.Viper) error {
	for _, key := range Keys {
		if !v.IsSet(key) {
			continue
		}
		if err := cfg.Set(key, v.Get(key)); err != nil {
			return fmt.Errorf("override: %w", err)
		}
	}
	return nil
}
