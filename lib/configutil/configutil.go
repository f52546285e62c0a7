package configutil

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localName turns `dir/config.json5` into `dir/config.local.json5`.
func localName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

func readFile[T any](name string, out *T) (bool, error) {
	contents, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReadConfig reads a json5 configuration file, `name` should come with a file extension.
// The following files are merged, where a higher number takes priority.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// If neither exists, os.ErrNotExist is returned.
func ReadConfig[T any](name string) (T, error) {
	var out T

	foundDefault, err := readFile(name, &out)
	if err != nil {
		return out, err
	}

	var override T
	local := localName(name)
	foundLocal, err := readFile(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Debug("merging config with local overrides", "local", local)
	}

	if !foundDefault && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig, but it walks up the filesystem from the cwd until
// it finds a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var empty T

	current, err := os.Getwd()
	if err != nil {
		return empty, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return empty, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return empty, os.ErrNotExist
		}
		current = parent
	}
}
