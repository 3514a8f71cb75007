package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Config represents configuration for the tracedis tool
type Config struct {
	Arch     string `json:"arch,omitempty" jsonschema:"title=Architecture,description=Instruction set used when the input does not name one,enum=pdp11,enum=h8s,enum=amd64,enum=arm64"`
	Base     string `json:"base,omitempty" jsonschema:"title=Base Address,description=Address of the first byte of raw input (decimal or 0x hex)"`
	Debug    bool   `json:"debug,omitempty" jsonschema:"title=Debug,description=Enable debug logging"`
	NoColor  bool   `json:"noColor,omitempty" jsonschema:"title=No Color,description=Disable coloured output"`
	Demangle bool   `json:"demangle" jsonschema:"title=Demangle,description=Demangle C++ and Rust symbol names,default=true"`
	Workers  int    `json:"workers,omitempty" jsonschema:"title=Workers,description=Sections scanned concurrently (0 means one per CPU),minimum=0"`
	LogFile  string `json:"logFile,omitempty" jsonschema:"title=Log File,description=Write logs to this file instead of stderr"`
}

func defaultConfig() Config {
	return Config{Demangle: true}
}

// loadConfig reads path over the defaults. An empty path yields the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with the persistent flags the user set.
func applyFlags(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	if flags.Changed("arch") {
		cfg.Arch, _ = flags.GetString("arch")
	}
	if flags.Changed("base") {
		cfg.Base, _ = flags.GetString("base")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("no-color") {
		cfg.NoColor, _ = flags.GetBool("no-color")
	}
	if flags.Changed("demangle") {
		cfg.Demangle, _ = flags.GetBool("demangle")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
}

// BaseAddr parses Base. Empty means 0.
func (c Config) BaseAddr() (uint64, error) {
	if c.Base == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(c.Base, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid base address %q: %w", c.Base, err)
	}
	return v, nil
}
