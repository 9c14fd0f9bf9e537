package bind

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Options are the engine's feature toggles. They affect which binding
// facilities are available, not the semantics of the ones that are.
type Options struct {
	// EnableClosures includes the closure adapter and its manufactured
	// Closure class.
	EnableClosures bool `toml:"enable_closures"`

	// Libraries lists the engine standard libraries to open. Supported:
	// base, table, string, math. The io, os, debug and package modules
	// are never opened.
	Libraries []string `toml:"libraries"`
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		EnableClosures: true,
		Libraries:      []string{"base", "table", "string", "math"},
	}
}

// LoadOptions reads options from a TOML file. A missing file is not an
// error; defaults are returned. Fields absent from the file keep their
// defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("reading options file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &opts); err != nil {
		return DefaultOptions(), fmt.Errorf("parsing options file %s: %w", path, err)
	}
	return opts, nil
}
