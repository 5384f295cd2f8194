package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaultSensors = []string{
	"channel_1", "channel_2", "channel_3", "channel_4",
	"channel_5", "channel_6", "channel_7", "channel_8",
}

type Config struct {
	DatabaseURL       string
	Sensors           []string
	SamplingFrequency float64
	// AcceptableRange disables faulty-sensor filtering when nil.
	AcceptableRange  *float64
	NumReaderWorkers int
	KeepDurations    bool
	LogLevel         string
	LogFormat        string
	APIPort          string
}

// Profile describes a dataset layout. Zero fields leave the environment values untouched.
type Profile struct {
	Sensors           []string `yaml:"sensors"`
	SamplingFrequency float64  `yaml:"sampling_frequency"`
	AcceptableRange   *float64 `yaml:"acceptable_range"`
}

// New reads the configuration from the environment. Callers load .env first.
func New() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Sensors:           append([]string(nil), defaultSensors...),
		SamplingFrequency: 20000,
		NumReaderWorkers:  1,
		LogLevel:          "info",
		LogFormat:         "json",
		APIPort:           "8080",
	}

	var err error
	cfg.Sensors = getEnvAsList("SENSORS", cfg.Sensors)

	cfg.SamplingFrequency, err = getEnvAsFloat("SAMPLING_FREQUENCY", cfg.SamplingFrequency)
	if err != nil {
		return nil, err
	}

	if os.Getenv("ACCEPTABLE_SENSOR_RANGE") != "" {
		acceptableRange, err := getEnvAsFloat("ACCEPTABLE_SENSOR_RANGE", 0)
		if err != nil {
			return nil, err
		}
		cfg.AcceptableRange = &acceptableRange
	}

	cfg.NumReaderWorkers, err = getEnvAsInt("NUM_READER_WORKERS", cfg.NumReaderWorkers)
	if err != nil {
		return nil, err
	}

	cfg.KeepDurations, err = getEnvAsBool("KEEP_DURATIONS", cfg.KeepDurations)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyProfile overrides the dataset fields with the ones set in the YAML file at path.
func (c *Config) ApplyProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if len(profile.Sensors) > 0 {
		c.Sensors = profile.Sensors
	}
	if profile.SamplingFrequency != 0 {
		c.SamplingFrequency = profile.SamplingFrequency
	}
	if profile.AcceptableRange != nil {
		c.AcceptableRange = profile.AcceptableRange
	}

	return c.Validate()
}

func (c *Config) Validate() error {
	if len(c.Sensors) == 0 {
		return fmt.Errorf("at least one sensor is required")
	}
	if c.SamplingFrequency <= 0 {
		return fmt.Errorf("invalid sampling frequency %v: must be positive", c.SamplingFrequency)
	}
	if c.AcceptableRange != nil && *c.AcceptableRange < 0 {
		return fmt.Errorf("invalid acceptable sensor range %v: must not be negative", *c.AcceptableRange)
	}
	if c.NumReaderWorkers < 1 {
		return fmt.Errorf("invalid number of reader workers %d: must be at least 1", c.NumReaderWorkers)
	}
	return nil
}

// RequireDatabase fails when DATABASE_URL is not set.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected a number, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: expected a boolean, got '%s'", key, valueStr)
	}

	return value, nil
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	return values
}
