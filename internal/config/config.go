// Package config loads run settings from the environment and keyword
// profiles from YAML.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/happyhackingspace/formschema/driver"
)

// EnvPrefix prefixes every environment variable, e.g. FORMSCHEMA_DRIVER.
const EnvPrefix = "FORMSCHEMA"

// DefaultSource is the registration form scraped when no source is given.
const DefaultSource = "https://udyamregistration.gov.in/UdyamRegistration.aspx"

// Config holds the settings of a scrape run.
type Config struct {
	Source    string        `envconfig:"SOURCE" default:"https://udyamregistration.gov.in/UdyamRegistration.aspx"`
	Output    string        `envconfig:"OUTPUT" default:"data"`
	Driver    string        `envconfig:"DRIVER" default:"chromedp"`
	UserAgent string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"`
	Width     int           `envconfig:"WIDTH" default:"1366"`
	Height    int           `envconfig:"HEIGHT" default:"900"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"120s"`
	Headless  bool          `envconfig:"HEADLESS" default:"true"`
	Keywords  string        `envconfig:"KEYWORDS"`
	OpenAPI   string        `envconfig:"OPENAPI"`
}

// Load reads an optional .env file, then the FORMSCHEMA_* environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when the environment sets nothing.
func Default() *Config {
	return &Config{
		Source:    DefaultSource,
		Output:    "data",
		Driver:    driver.Chromedp,
		UserAgent: driver.DefaultUserAgent,
		Width:     driver.DefaultWidth,
		Height:    driver.DefaultHeight,
		Timeout:   driver.DefaultTimeout,
		Headless:  true,
	}
}

// DriverOptions returns the browser settings of the configuration.
func (c *Config) DriverOptions() driver.Options {
	return driver.Options{
		UserAgent: c.UserAgent,
		Width:     c.Width,
		Height:    c.Height,
		Timeout:   c.Timeout,
		Headless:  c.Headless,
	}
}
