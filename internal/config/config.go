// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for loan-tracker.
type Configuration struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Display DisplayConfig `yaml:"display,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// StorageConfig selects where the loan collection is kept.
type StorageConfig struct {
	Backend string `yaml:"backend,omitempty"` // json, sqlite
	Path    string `yaml:"path,omitempty"`
}

// DisplayConfig holds presentation options.
type DisplayConfig struct {
	Currency string `yaml:"currency,omitempty"` // ISO 4217 code
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Every key can be overridden from the environment,
// e.g. LOANTRACKER_STORAGE_BACKEND=sqlite.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r with the same
// defaults and environment overrides as LoadConfiguration.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	return decode(v)
}

// Default returns the configuration used when no config file exists.
func Default() (*Configuration, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults also register the keys AutomaticEnv can override.
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("storage.backend", constants.StorageBackendJSON)
	v.SetDefault("storage.path", constants.DefaultDataFile)
	v.SetDefault("display.currency", constants.DefaultCurrency)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.Display.Currency = strings.ToUpper(strings.TrimSpace(configuration.Display.Currency))
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Validate checks the enumerated settings.
func (c *Configuration) Validate() error {
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	if err := validation.ValidateStorageBackend(c.Storage.Backend); err != nil {
		return err
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage path is required")
	}
	return validation.ValidateCurrency(c.Display.Currency)
}
