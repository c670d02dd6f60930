package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Endpoint Endpoint `yaml:"endpoint"`
	Parse    Parse    `yaml:"parse"`
	Render   Render   `yaml:"render"`
	Output   Output   `yaml:"output"`
}

// Endpoint holds hosted inference endpoint settings. The API key and secret
// can also come from the VISIONFLOW_API_KEY and VISIONFLOW_API_SECRET
// environment variables, which take priority over the file.
type Endpoint struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	APISecret      string `yaml:"api_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Parse holds result parsing settings.
type Parse struct {
	// CoordinateSpace is "auto", "normalized" or "pixel".
	CoordinateSpace string `yaml:"coordinate_space"`
}

// Render holds overlay rendering defaults.
type Render struct {
	ShowLabels   bool    `yaml:"show_labels"`
	ShowScores   bool    `yaml:"show_scores"`
	MaskAlpha    float64 `yaml:"mask_alpha"`
	BoxThickness int     `yaml:"box_thickness"`
}

// Output holds settings for written artifacts.
type Output struct {
	Dir     string `yaml:"dir"`
	Format  string `yaml:"format"`
	Quality int    `yaml:"quality"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Endpoint: Endpoint{
			TimeoutSeconds: 60,
		},
		Parse: Parse{
			CoordinateSpace: "auto",
		},
		Render: Render{
			ShowLabels:   true,
			ShowScores:   true,
			MaskAlpha:    0.5,
			BoxThickness: 2,
		},
		Output: Output{
			Dir:     "./out",
			Format:  "png",
			Quality: 92,
		},
	}
}

// LoadFromFile loads configuration from a YAML file and applies environment
// overrides.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// FromEnv returns the default configuration with environment overrides
// applied, for callers running without a config file.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VISIONFLOW_ENDPOINT"); v != "" {
		c.Endpoint.URL = v
	}
	if v := os.Getenv("VISIONFLOW_API_KEY"); v != "" {
		c.Endpoint.APIKey = v
	}
	if v := os.Getenv("VISIONFLOW_API_SECRET"); v != "" {
		c.Endpoint.APISecret = v
	}
}

// SaveToFile saves the configuration to a YAML file.
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Endpoint.TimeoutSeconds < 1 {
		return fmt.Errorf("endpoint.timeout_seconds must be positive")
	}

	switch c.Parse.CoordinateSpace {
	case "auto", "normalized", "pixel":
	default:
		return fmt.Errorf("parse.coordinate_space must be auto, normalized or pixel")
	}

	if c.Render.MaskAlpha < 0 || c.Render.MaskAlpha > 1 {
		return fmt.Errorf("render.mask_alpha must be between 0 and 1")
	}
	if c.Render.BoxThickness < 1 {
		return fmt.Errorf("render.box_thickness must be at least 1")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "visionflow", "config.yaml")
}
