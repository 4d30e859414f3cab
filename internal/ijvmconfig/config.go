// Copyright 2024 The ProbeChain Authors
// This file is part of the ijvm library.
//
// The ijvm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ijvm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ijvm library. If not, see <http://www.gnu.org/licenses/>.

// Package ijvmconfig loads optional TOML configuration for the cmd/ijvm
// CLI. The VM itself takes no configuration (§5): everything here governs
// the CLI's own behavior around a run.
package ijvmconfig

import (
	"os"
	"reflect"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
)

// Config holds CLI-level settings. Every field's zero value reproduces the
// spec's own defaults, so an absent config file is equivalent to the
// built-in behavior.
type Config struct {
	// LogLevel selects verbosity for internal/log ("error", "warn", "info",
	// "debug"). Empty means "info".
	LogLevel string `toml:"loglevel"`

	// WatchDebounceMillis is a delay in milliseconds read from the config
	// file. The `run --watch` subcommand does not consult it: it re-runs
	// the image immediately on every filesystem event.
	WatchDebounceMillis int `toml:"watch_debounce_ms"`

	// MaxCallStackDepth is a call-stack depth ceiling read from the config
	// file. No subcommand consults it; `step` prints no depth warning.
	MaxCallStackDepth int `toml:"max_call_stack_depth"`
}

var tomlSettings = toml.Config{
	NormFieldName: func(typ reflect.Type, key string) string { return key },
	FieldToKey:    func(typ reflect.Type, field string) string { return field },
}

// Load reads and parses the TOML file at path. A missing file is not an
// error: Load returns the zero Config (i.e. spec defaults).
func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "ijvmconfig: open %s", path)
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "ijvmconfig: parse %s", path)
	}
	return cfg, nil
}
