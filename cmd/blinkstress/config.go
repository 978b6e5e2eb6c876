package main

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/alexhholmes/blinktree"
)

// Config describes one stress run.
type Config struct {
	Capacity int
	Threads  int
	Keys     int
	Ops      int // operations per thread
	Strategy string
	Seed     int64
	LogLevel string
}

// DefaultConfig is the reference workload: fan-out 32, 32 threads over 32^3
// keys.
func DefaultConfig() Config {
	return Config{
		Capacity: 32,
		Threads:  32,
		Keys:     32 * 32 * 32,
		Ops:      32 * 32 * 32,
		Strategy: blinktree.Optimistic.String(),
		Seed:     1,
		LogLevel: "info",
	}
}

// LoadConfig overlays the TOML file at path on cfg. Keys missing from the
// file keep their current value.
func LoadConfig(path string, cfg Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	ints := map[string]*int{
		"capacity": &cfg.Capacity,
		"threads":  &cfg.Threads,
		"keys":     &cfg.Keys,
		"ops":      &cfg.Ops,
	}
	for key, dst := range ints {
		if !tree.Has(key) {
			continue
		}
		v, ok := tree.Get(key).(int64)
		if !ok {
			return cfg, errors.Errorf("config %s: %s must be an integer", path, key)
		}
		*dst = int(v)
	}

	if tree.Has("seed") {
		v, ok := tree.Get("seed").(int64)
		if !ok {
			return cfg, errors.Errorf("config %s: seed must be an integer", path)
		}
		cfg.Seed = v
	}

	strs := map[string]*string{
		"strategy":  &cfg.Strategy,
		"log_level": &cfg.LogLevel,
	}
	for key, dst := range strs {
		if !tree.Has(key) {
			continue
		}
		v, ok := tree.Get(key).(string)
		if !ok {
			return cfg, errors.Errorf("config %s: %s must be a string", path, key)
		}
		*dst = v
	}
	return cfg, nil
}

// Validate rejects configurations the run cannot execute.
func (c Config) Validate() error {
	switch {
	case c.Capacity < blinktree.MinKeyCapacity:
		return errors.Errorf("capacity %d below minimum %d", c.Capacity, blinktree.MinKeyCapacity)
	case c.Threads < 1:
		return errors.Errorf("threads must be positive, got %d", c.Threads)
	case c.Keys < c.Threads:
		return errors.Errorf("need at least one key per thread, got %d keys for %d threads", c.Keys, c.Threads)
	case c.Ops < 0:
		return errors.Errorf("ops must not be negative, got %d", c.Ops)
	}
	_, err := c.insertStrategy()
	return err
}

func (c Config) insertStrategy() (blinktree.InsertStrategy, error) {
	switch c.Strategy {
	case "", blinktree.Optimistic.String():
		return blinktree.Optimistic, nil
	case blinktree.Pessimistic.String():
		return blinktree.Pessimistic, nil
	default:
		return 0, errors.Errorf("unknown insert strategy %q", c.Strategy)
	}
}
