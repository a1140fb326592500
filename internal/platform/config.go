package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/thoughts/pkg/core"
)

// ConfigFileName is the file FindConfig looks for.
const ConfigFileName = "thoughts.yaml"

// ErrConfigNotFound is returned by FindConfig when no config file exists up to the filesystem root.
var ErrConfigNotFound = errors.New("config file not found")

// FileConfig is the content of thoughts.yaml. Zero fields keep the defaults.
type FileConfig struct {
	Adapter          string        `yaml:"adapter"`
	URI              string        `yaml:"uri"`
	Collection       string        `yaml:"collection"`
	Strategy         string        `yaml:"strategy"`
	Strict           bool          `yaml:"strict"`
	Watch            bool          `yaml:"watch"`
	ServerTimestamps *bool         `yaml:"server_timestamps"`
	ProbeInterval    time.Duration `yaml:"probe_interval"`
	SentryDSN        string        `yaml:"sentry_dsn"`
	Addr             string        `yaml:"addr"`
}

// FindConfig looks upwards from startDir for thoughts.yaml and returns its absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrConfigNotFound
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (FileConfig, error) {
	var cfg FileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from THOUGHTS_* environment variables.
func (c *FileConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		"THOUGHTS_ADAPTER":    &c.Adapter,
		"THOUGHTS_URI":        &c.URI,
		"THOUGHTS_COLLECTION": &c.Collection,
		"THOUGHTS_STRATEGY":   &c.Strategy,
		"THOUGHTS_SENTRY_DSN": &c.SentryDSN,
		"THOUGHTS_ADDR":       &c.Addr,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"THOUGHTS_STRICT": &c.Strict,
		"THOUGHTS_WATCH":  &c.Watch,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup("THOUGHTS_SERVER_TIMESTAMPS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("THOUGHTS_SERVER_TIMESTAMPS: %w", err)
		}
		c.ServerTimestamps = &b
	}
	if v, ok := lookup("THOUGHTS_PROBE_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("THOUGHTS_PROBE_INTERVAL: %w", err)
		}
		c.ProbeInterval = d
	}
	return nil
}

// Options translates the file config into functional options.
func (c FileConfig) Options() ([]Option, error) {
	var opts []Option
	if c.Adapter != "" {
		opts = append(opts, WithAdapter(c.Adapter))
	}
	if c.Collection != "" {
		opts = append(opts, WithCollection(c.Collection))
	}
	if c.Strategy != "" {
		s, err := core.ParseStrategy(c.Strategy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithStrategy(s))
	}
	if c.Strict {
		opts = append(opts, WithStrict(true))
	}
	if c.Watch {
		opts = append(opts, WithWatchConnectivity(true))
	}
	if c.ServerTimestamps != nil {
		opts = append(opts, WithServerTimestamps(*c.ServerTimestamps))
	}
	if c.ProbeInterval > 0 {
		opts = append(opts, WithProbeInterval(c.ProbeInterval))
	}
	return opts, nil
}
