package main

import (
	"os"
	"time"

	"github.com/agentuity/go-timedcache/cache"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Duration accepts the extended units of str2duration (d, w) in YAML files.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := str2duration.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// benchConfig is the workload description, read from --config and then
// overridden by any flag set explicitly.
type benchConfig struct {
	Timeout           Duration `yaml:"timeout"`
	CleanupInterval   Duration `yaml:"cleanup_interval"`
	RefreshOnAccess   bool     `yaml:"refresh_on_access"`
	RetainAfterExpiry bool     `yaml:"retain_after_expiry"`
	DeferredReclaim   bool     `yaml:"deferred_reclaim"`
	Disabled          bool     `yaml:"disabled"`
	Keys              int      `yaml:"keys"`
	Workers           int      `yaml:"workers"`
	Duration          Duration `yaml:"duration"`
	ValueSize         string   `yaml:"value_size"`
}

func defaultBenchConfig() benchConfig {
	return benchConfig{
		Timeout:         Duration(time.Second),
		CleanupInterval: Duration(500 * time.Millisecond),
		Keys:            10_000,
		Workers:         8,
		Duration:        Duration(5 * time.Second),
		ValueSize:       "1Ki",
	}
}

func (c benchConfig) cacheConfig() cache.Config {
	return cache.Config{
		Timeout:           time.Duration(c.Timeout),
		CleanupInterval:   time.Duration(c.CleanupInterval),
		RefreshOnAccess:   c.RefreshOnAccess,
		RetainAfterExpiry: c.RetainAfterExpiry,
		DeferredReclaim:   c.DeferredReclaim,
	}
}

// valueBytes converts ValueSize, a quantity such as "512" or "4Ki", to bytes.
func (c benchConfig) valueBytes() (int, error) {
	q, err := resource.ParseQuantity(c.ValueSize)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid value size %q", c.ValueSize)
	}
	n, ok := q.AsInt64()
	if !ok || n < 0 {
		return 0, errors.Newf("value size %q is not a whole number of bytes", c.ValueSize)
	}
	return int(n), nil
}

func (c benchConfig) validate() error {
	if c.Keys < 1 {
		return errors.New("keys must be at least 1")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	if _, err := c.valueBytes(); err != nil {
		return err
	}
	if c.Disabled {
		return nil
	}
	return c.cacheConfig().Validate()
}

func loadBenchConfig(filename string) (benchConfig, error) {
	cfg := defaultBenchConfig()
	if filename == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(filename)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading %s", filename)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", filename)
	}
	return cfg, nil
}

func durationFlag(cmd *cobra.Command, name string, target *Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	s, _ := cmd.Flags().GetString(name)
	v, err := str2duration.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid --%s", name)
	}
	*target = Duration(v)
	return nil
}

func boolFlag(cmd *cobra.Command, name string, target *bool) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetBool(name)
	}
}

func intFlag(cmd *cobra.Command, name string, target *int) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetInt(name)
	}
}

// resolveConfig loads --config and applies explicitly set flags on top.
func resolveConfig(cmd *cobra.Command) (benchConfig, error) {
	filename, _ := cmd.Flags().GetString("config")
	cfg, err := loadBenchConfig(filename)
	if err != nil {
		return cfg, err
	}
	for name, target := range map[string]*Duration{
		"timeout":  &cfg.Timeout,
		"cleanup":  &cfg.CleanupInterval,
		"duration": &cfg.Duration,
	} {
		if err := durationFlag(cmd, name, target); err != nil {
			return cfg, err
		}
	}
	boolFlag(cmd, "refresh", &cfg.RefreshOnAccess)
	boolFlag(cmd, "retain", &cfg.RetainAfterExpiry)
	boolFlag(cmd, "deferred", &cfg.DeferredReclaim)
	boolFlag(cmd, "disabled", &cfg.Disabled)
	intFlag(cmd, "keys", &cfg.Keys)
	intFlag(cmd, "workers", &cfg.Workers)
	if cmd.Flags().Changed("value-size") {
		cfg.ValueSize, _ = cmd.Flags().GetString("value-size")
	}
	return cfg, cfg.validate()
}
