// Package config provides configuration management for ocrsweep.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "OCRSWEEP"

// Config holds all configuration settings for ocrsweep.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// DataDir is the dataset root holding one directory per split
	DataDir string `yaml:"data-dir"`

	// OutputDir receives one <split>_ocr_results.json per split
	OutputDir string `yaml:"output-dir"`

	// Splits are processed in order
	Splits []string `yaml:"splits"`

	// Folders are the image folders scanned inside each split
	Folders []string `yaml:"folders"`

	// ImageExtension selects which files are images (matched as a suffix)
	ImageExtension string `yaml:"image-extension"`

	// DedupeWords drops repeated word text within one image
	DedupeWords bool `yaml:"dedupe-words"`

	// DryRun lists pending images without calling the API
	DryRun bool `yaml:"dry-run"`

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log-level"`

	// LogFormat is console or json
	LogFormat string `yaml:"log-format"`

	// LogFile optionally tees log output to a file
	LogFile string `yaml:"log-file,omitempty"`

	// OCR configures the OCR.space client. Its keys sit at the top level of
	// the config file, next to the dataset keys.
	OCR OCRConfig `yaml:",inline"`
}

// OCRConfig holds the OCR.space request settings
type OCRConfig struct {
	// Endpoint is the parse/image URL
	Endpoint string `yaml:"endpoint"`

	// APIKey is read from OCRSWEEP_API_KEY, falling back to OCR_SPACE_API_KEY
	APIKey string `yaml:"api-key"`

	// Language is the OCR.space language code
	Language string `yaml:"language"`

	// Overlay requests word coordinates; without it no words are extracted
	Overlay bool `yaml:"overlay"`

	// Engine is the OCR.space engine number (1-3)
	Engine int `yaml:"engine"`

	// Timeout bounds each request
	Timeout time.Duration `yaml:"timeout"`

	// RequestInterval is the minimum spacing between requests (0 = none)
	RequestInterval time.Duration `yaml:"request-interval"`
}

// Load reads the configuration with Read and validates it
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	config, err := Read(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Read merges the optional config file, the environment and any changed
// flags in flags over the defaults, without validating the result.
func Read(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".ocrsweep")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	config := &Config{
		DataDir:        v.GetString("data-dir"),
		OutputDir:      v.GetString("output-dir"),
		Splits:         v.GetStringSlice("splits"),
		Folders:        v.GetStringSlice("folders"),
		ImageExtension: v.GetString("image-extension"),
		DedupeWords:    v.GetBool("dedupe-words"),
		DryRun:         v.GetBool("dry-run"),
		LogLevel:       v.GetString("log-level"),
		LogFormat:      v.GetString("log-format"),
		LogFile:        v.GetString("log-file"),
		OCR: OCRConfig{
			Endpoint:        v.GetString("endpoint"),
			APIKey:          v.GetString("api-key"),
			Language:        v.GetString("language"),
			Overlay:         v.GetBool("overlay"),
			Engine:          v.GetInt("engine"),
			Timeout:         v.GetDuration("timeout"),
			RequestInterval: v.GetDuration("request-interval"),
		},
	}

	if config.OCR.APIKey == "" {
		config.OCR.APIKey = os.Getenv("OCR_SPACE_API_KEY")
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("data-dir", "data")
	v.SetDefault("output-dir", "")
	v.SetDefault("splits", []string{"train", "val", "test"})
	v.SetDefault("folders", []string{"abc_question_images", "question_images", "teaching_images", "textbook_images"})
	v.SetDefault("image-extension", ".png")
	v.SetDefault("dedupe-words", false)
	v.SetDefault("dry-run", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("log-file", "")

	v.SetDefault("endpoint", "https://api.ocr.space/parse/image")
	v.SetDefault("api-key", "")
	v.SetDefault("language", "eng")
	v.SetDefault("overlay", true)
	v.SetDefault("engine", 2)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("request-interval", 0*time.Second)
}

// Validate checks that the configuration is usable, fills derived paths and
// creates the output directory.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data-dir cannot be empty")
	}
	dataDir, err := expandHome(c.DataDir)
	if err != nil {
		return fmt.Errorf("failed to expand home directory in data-dir: %w", err)
	}
	c.DataDir = dataDir

	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.DataDir, "processed_data", "ocr_results")
	}
	outputDir, err := expandHome(c.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to expand home directory in output-dir: %w", err)
	}
	c.OutputDir = outputDir

	c.Splits = compact(c.Splits)
	if len(c.Splits) == 0 {
		return fmt.Errorf("splits cannot be empty")
	}
	c.Folders = compact(c.Folders)
	if len(c.Folders) == 0 {
		return fmt.Errorf("folders cannot be empty")
	}

	if c.ImageExtension == "" {
		return fmt.Errorf("image-extension cannot be empty")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q, must be console or json", c.LogFormat)
	}

	if err := c.validateOCR(); err != nil {
		return fmt.Errorf("invalid OCR configuration: %w", err)
	}

	if !c.DryRun {
		if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", c.OutputDir, err)
		}
	}

	return nil
}

// validateOCR validates the OCR.space settings
func (c *Config) validateOCR() error {
	if c.OCR.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if c.OCR.APIKey == "" && !c.DryRun {
		return fmt.Errorf("API key not found, set %s_API_KEY or OCR_SPACE_API_KEY", EnvPrefix)
	}

	if c.OCR.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if c.OCR.Engine < 1 || c.OCR.Engine > 3 {
		return fmt.Errorf("engine must be between 1 and 3, got %d", c.OCR.Engine)
	}

	if c.OCR.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.OCR.Timeout)
	}

	if c.OCR.RequestInterval < 0 {
		return fmt.Errorf("request-interval must be non-negative, got %s", c.OCR.RequestInterval)
	}

	return nil
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() Config {
	out := *c
	out.OCR.APIKey = redact(c.OCR.APIKey)
	return out
}

// String returns a string representation of the configuration (with the API key redacted)
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  DataDir: %s
  OutputDir: %s
  Splits: %v
  Folders: %v
  ImageExtension: %s
  DedupeWords: %t
  DryRun: %t
  LogLevel: %s
  LogFormat: %s
  OCR:
    Endpoint: %s
    APIKey: %s
    Language: %s
    Overlay: %t
    Engine: %d
    Timeout: %s
    RequestInterval: %s`,
		c.DataDir,
		c.OutputDir,
		c.Splits,
		c.Folders,
		c.ImageExtension,
		c.DedupeWords,
		c.DryRun,
		c.LogLevel,
		c.LogFormat,
		c.OCR.Endpoint,
		redact(c.OCR.APIKey),
		c.OCR.Language,
		c.OCR.Overlay,
		c.OCR.Engine,
		c.OCR.Timeout,
		c.OCR.RequestInterval,
	)
}

func redact(secret string) string {
	switch {
	case secret == "":
		return "not set"
	case len(secret) > 8:
		return "***" + secret[len(secret)-4:]
	default:
		return "***"
	}
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// compact splits comma-separated entries (as they arrive from environment
// variables), trims them and drops empty ones
func compact(list []string) []string {
	var out []string
	for _, entry := range list {
		for _, item := range strings.Split(entry, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
