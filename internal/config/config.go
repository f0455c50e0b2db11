package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Category describes one exported calendar: a name (e.g. "Jääkiekko")
// and the upstream services it aggregates, each mapped to the location
// names that are relevant for it.
type Category struct {
	// Name is the category's display name; the calendar file name is
	// derived from it.
	Name string `yaml:"name" json:"name"`

	// Services maps an upstream service name (e.g. "Koripallo") to the
	// list of relevant location names for that service.
	Services map[string][]string `yaml:"services" json:"services"`
}

// Config is the top-level application configuration.
type Config struct {
	// BaseURL is the root of the upstream reservation API.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Timezone is the IANA timezone the upstream timestamps are
	// expressed in (e.g. "Europe/Helsinki").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Schedule is a cron-style expression (e.g. "0 3 * * *") used for
	// the recurring batch mode. If empty, only one-shot runs happen.
	Schedule string `yaml:"schedule" json:"schedule"`

	// OutputDir is where per-category ICS files are written.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// AggregateFile is the path of the JSON aggregate consumed by the
	// static-site loader.
	AggregateFile string `yaml:"aggregate_file" json:"aggregate_file"`

	// RawDir is where raw upstream response bodies are dumped for
	// debugging. Empty disables the dumps.
	RawDir string `yaml:"raw_dir" json:"raw_dir"`

	// DateRange is an explicit ISO-week span (e.g. "2024-W50--2024-W51")
	// overriding the default window of this week through next week.
	DateRange string `yaml:"date_range" json:"date_range"`

	// MaxRetries is the number of times a failed upstream request is
	// retried. 0 means a single attempt, matching the upstream
	// pipeline's fail-fast contract.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// Categories lists the calendars to generate, in output order.
	Categories []Category `yaml:"categories" json:"categories"`
}

var iceHockeyLocations = []string{
	"Brahenkenttä",
	"Jätkäsaaren liikuntapuisto",
	"Oulunkylän liikuntapuisto",
	"Käpylän liikuntapuisto",
	"Lauttasaaren liikuntapuisto",
}

// DefaultConfig returns an in-memory default configuration covering the
// Helsinki venues the calendars were originally built for.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://liikuntakauppa.hel.fi/helsinginkaupunki",
		Timezone:      "Europe/Helsinki",
		Schedule:      "",
		OutputDir:     filepath.Join("public", "calendars"),
		AggregateFile: filepath.Join("src", "data", "calendar-events.json"),
		RawDir:        "raw",
		DateRange:     "",
		MaxRetries:    0,
		Categories: []Category{
			{
				Name: "Jääkiekko",
				Services: map[string][]string{
					"Jääkiekko":     iceHockeyLocations,
					"Jääpallo":      iceHockeyLocations,
					"Taitoluistelu": iceHockeyLocations,
				},
			},
			{
				Name: "Jalkapallo",
				Services: map[string][]string{
					"Jalkapallo": {"Töölön pallokenttä"},
				},
			},
			{
				Name: "Koripallo",
				Services: map[string][]string{
					"Koripallo": {"Töölön kisahalli"},
				},
			},
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = "https://liikuntakauppa.hel.fi/helsinginkaupunki"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Helsinki"
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join("public", "calendars")
	}
	if c.AggregateFile == "" {
		c.AggregateFile = filepath.Join("src", "data", "calendar-events.json")
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Categories == nil {
		c.Categories = []Category{}
	}
}

// Validate rejects malformed category configuration before any network
// call is made.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: unknown timezone %q: %w", c.Timezone, err)
	}

	if len(c.Categories) == 0 {
		return errors.New("config: no categories configured")
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("config: category %d has no name", i)
		}
		if seen[cat.Name] {
			return fmt.Errorf("config: duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true

		if len(cat.Services) == 0 {
			return fmt.Errorf("config: category %q has no services", cat.Name)
		}
		for service, locations := range cat.Services {
			if service == "" {
				return fmt.Errorf("config: category %q has a service with an empty name", cat.Name)
			}
			if len(locations) == 0 {
				return fmt.Errorf("config: category %q service %q has no locations", cat.Name, service)
			}
			for _, loc := range locations {
				if loc == "" {
					return fmt.Errorf("config: category %q service %q has an empty location name", cat.Name, service)
				}
			}
		}
	}

	return nil
}

// Location resolves the configured timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".vuorokal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}
