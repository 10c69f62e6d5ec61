// Package config loads runtime settings layered from flag defaults, an
// optional YAML file, ANKIBOX_* environment variables and finally
// explicitly-set command-line flags, each layer overriding the previous
// one.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

const envPrefix = "ANKIBOX_"

// Config holds the settings shared by all commands.
type Config struct {
	DBPath     string   `koanf:"db" validate:"required"`
	Deck       string   `koanf:"deck" validate:"required"`
	Model      string   `koanf:"model" validate:"required"`
	ExportPath string   `koanf:"export-path" validate:"required"`
	ReposDir   string   `koanf:"repos-dir" validate:"required"`
	Sources    []string `koanf:"sources"`
}

// Flags registers the config flags, with the built-in defaults, on a
// pflag set. The parsed set is handed back to Load.
func Flags(fs *flag.FlagSet) {
	fs.String("db", "collection.anki2", "path to the collection database file")
	fs.String("deck", "Default", "deck name used by add/import commands")
	fs.String("model", "Basic", "model name used by add/import commands")
	fs.String("export-path", "collection.apkg", "destination for the export command")
	fs.String("repos-dir", "repos", "working directory for git deck sources")
	fs.StringSlice("sources", nil, "deck source directory or git URL (repeatable)")
	fs.String("config", "", "path to a YAML config file")
}

// Load layers file, environment and flag values and validates the
// result. Environment variables map onto flag names with underscores
// turned into dashes: ANKIBOX_EXPORT_PATH sets export-path.
func Load(fs *flag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", "-")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
