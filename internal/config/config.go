// Package config implements Baa's optional baa.yml configuration file
// (SPEC_FULL.md §A.2): a driver convenience the teacher itself has no
// equivalent for, parsed with gopkg.in/yaml.v3 — already present in the
// teacher's indirect dependency closure (through testify/glsp) and
// promoted here to a direct, wired dependency.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/OmarAglan/baa/internal/ir/pipeline"
)

// defaultMaxPipelineIterations mirrors the §4.4/§9 fixpoint cap's
// built-in default; a config file only needs to name it when overriding.
const defaultMaxPipelineIterations = 10

// Config holds baa.yml's fields. Every field is optional; a zero Config is
// the documented default (-O2, 10 iterations, no debug gate, windows-x64).
type Config struct {
	OptLevel              *int   `yaml:"optLevel"`
	MaxPipelineIterations *int   `yaml:"maxPipelineIterations"`
	DebugGate             *bool  `yaml:"debugGate"`
	DataLayout            string `yaml:"dataLayout"`
}

// Default returns the documented baseline configuration.
func Default() Config {
	opt := int(pipeline.O2)
	iters := defaultMaxPipelineIterations
	gate := false
	return Config{OptLevel: &opt, MaxPipelineIterations: &iters, DebugGate: &gate, DataLayout: "windows-x64"}
}

// Load reads and parses the baa.yml at path. A missing file is returned
// as the underlying os error — callers that were only probing a default
// location should check os.IsNotExist themselves and fall back to
// Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	if c.DataLayout != "" && c.DataLayout != "windows-x64" {
		return Config{}, errors.Errorf("config: unsupported dataLayout %q (only \"windows-x64\" is implemented)", c.DataLayout)
	}
	return c, nil
}

// Find locates baa.yml next to sourcePath, returning "" if none exists.
func Find(sourcePath string) string {
	candidate := filepath.Join(filepath.Dir(sourcePath), "baa.yml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Merge overlays override's explicitly-set fields onto base (CLI flags
// always win over the config file, per §A.2's documented precedence) and
// returns a Config with no nil optional field left unresolved.
func Merge(base, override Config) Config {
	out := base
	if override.OptLevel != nil {
		out.OptLevel = override.OptLevel
	}
	if override.MaxPipelineIterations != nil {
		out.MaxPipelineIterations = override.MaxPipelineIterations
	}
	if override.DebugGate != nil {
		out.DebugGate = override.DebugGate
	}
	if override.DataLayout != "" {
		out.DataLayout = override.DataLayout
	}
	return fillDefaults(out)
}

func fillDefaults(c Config) Config {
	d := Default()
	if c.OptLevel == nil {
		c.OptLevel = d.OptLevel
	}
	if c.MaxPipelineIterations == nil {
		c.MaxPipelineIterations = d.MaxPipelineIterations
	}
	if c.DebugGate == nil {
		c.DebugGate = d.DebugGate
	}
	if c.DataLayout == "" {
		c.DataLayout = d.DataLayout
	}
	return c
}

// PipelineOptions translates the resolved config into pipeline.Options.
func (c Config) PipelineOptions() pipeline.Options {
	resolved := fillDefaults(c)
	opts := pipeline.Options{
		Level:         pipeline.OptLevel(*resolved.OptLevel),
		MaxIterations: *resolved.MaxPipelineIterations,
	}
	if *resolved.DebugGate {
		opts.VerifyIR = true
		opts.VerifySSA = true
	}
	return opts
}
