// Package config holds solver defaults and the instance catalog.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed instances.yaml
var builtin []byte

// ErrUnknownInstance is returned by Lookup for names missing from the catalog.
var ErrUnknownInstance = errors.New("config: unknown instance")

// Defaults are the solver parameters used when a request or flag leaves them unset.
type Defaults struct {
	MaxVehicles     int     `yaml:"max_vehicles" json:"maxVehicles"`
	MaxNoImprove    int     `yaml:"max_no_improve" json:"maxNoImprove"`
	RemovalFraction float64 `yaml:"removal_fraction" json:"removalFraction"`
	Seed            int64   `yaml:"seed" json:"seed"`
}

// Instance is the metadata of a known benchmark instance. BestKnown is zero
// when no reference distance is recorded.
type Instance struct {
	Name      string  `yaml:"name" json:"name"`
	Capacity  float64 `yaml:"capacity" json:"capacity"`
	Vehicles  int     `yaml:"vehicles" json:"vehicles"`
	BestKnown float64 `yaml:"best_known" json:"bestKnown,omitempty"`
}

// Catalog is the parsed configuration file.
type Catalog struct {
	Defaults  Defaults   `yaml:"defaults" json:"defaults"`
	Instances []Instance `yaml:"instances" json:"instances"`

	byName map[string]Instance
}

// Parse decodes a catalog and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	if err := c.Defaults.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.byName = make(map[string]Instance, len(c.Instances))
	for _, in := range c.Instances {
		k := nameKey(in.Name)
		if k == "" {
			return errors.New("config: instance without a name")
		}
		if _, dup := c.byName[k]; dup {
			return fmt.Errorf("config: instance %s listed twice", in.Name)
		}
		if in.Capacity < 0 || in.Vehicles < 0 || in.BestKnown < 0 {
			return fmt.Errorf("config: instance %s: negative value", in.Name)
		}
		c.byName[k] = in
	}
	return nil
}

func (d Defaults) validate() error {
	if d.MaxVehicles < 1 {
		return fmt.Errorf("config: max_vehicles must be >= 1, got %d", d.MaxVehicles)
	}
	if d.MaxNoImprove < 0 {
		return fmt.Errorf("config: max_no_improve must be >= 0, got %d", d.MaxNoImprove)
	}
	if d.RemovalFraction <= 0 || d.RemovalFraction > 1 {
		return fmt.Errorf("config: removal_fraction must be in (0, 1], got %v", d.RemovalFraction)
	}
	return nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FromEnv loads the catalog named by VRPTW_CONFIG (the built-in one when unset)
// and applies the VRPTW_* overrides.
func FromEnv() (*Catalog, error) {
	c := Default()
	if path := os.Getenv("VRPTW_CONFIG"); path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}
	if err := c.Defaults.applyEnv(); err != nil {
		return nil, err
	}
	return c, c.Defaults.validate()
}

func (d *Defaults) applyEnv() error {
	if v := os.Getenv("VRPTW_MAX_VEHICLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: VRPTW_MAX_VEHICLES: %w", err)
		}
		d.MaxVehicles = n
	}
	if v := os.Getenv("VRPTW_MAX_NO_IMPROVE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: VRPTW_MAX_NO_IMPROVE: %w", err)
		}
		d.MaxNoImprove = n
	}
	if v := os.Getenv("VRPTW_REMOVAL_FRACTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: VRPTW_REMOVAL_FRACTION: %w", err)
		}
		d.RemovalFraction = f
	}
	if v := os.Getenv("VRPTW_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: VRPTW_SEED: %w", err)
		}
		d.Seed = n
	}
	return nil
}

// nameKey reduces an instance name or file path to its upper-cased stem, so
// "C104", "c104.txt" and "data/C104.txt" name the same instance.
func nameKey(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Lookup finds an instance by name or file name, ignoring case, directory and
// extension. Names are never matched by substring.
func (c *Catalog) Lookup(name string) (Instance, error) {
	in, ok := c.byName[nameKey(name)]
	if !ok {
		return Instance{}, fmt.Errorf("%w: %q", ErrUnknownInstance, name)
	}
	return in, nil
}

// BestKnown returns the reference distance of an instance, if recorded.
func (c *Catalog) BestKnown(name string) (float64, bool) {
	in, err := c.Lookup(name)
	if err != nil || in.BestKnown <= 0 {
		return 0, false
	}
	return in.BestKnown, true
}

// EnvInt reads an integer environment variable, returning def when it is unset or invalid.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// EnvFloat is EnvInt for floats.
func EnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
