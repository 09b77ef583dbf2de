package recon

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultNearestDistance is the search radius used to resolve raw positions
// to model points when the config does not override it.
const DefaultNearestDistance = 1.0

// ScanConfig defines one reconstruction to serve measurements for.
type ScanConfig struct {
	ID              string `yaml:"id" json:"id"`
	SparseDir       string `yaml:"sparseDir" json:"sparseDir"`
	CalibrationFile string `yaml:"calibrationFile,omitempty" json:"calibrationFile,omitempty"`
}

// CalibrationPath returns the configured calibration file path, defaulting
// to calibration.json next to the sparse model.
func (sc *ScanConfig) CalibrationPath() string {
	if sc.CalibrationFile != "" {
		return sc.CalibrationFile
	}
	return filepath.Join(sc.SparseDir, "calibration.json")
}

// MQTTConfig holds MQTT connection settings. An empty broker disables event
// publishing.
type MQTTConfig struct {
	Broker        string `yaml:"broker,omitempty" json:"broker,omitempty"`
	PublishPrefix string `yaml:"publishPrefix,omitempty" json:"publishPrefix,omitempty"`
	ClientID      string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config is the full configuration file.
type Config struct {
	MQTT            MQTTConfig   `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	Scans           []ScanConfig `yaml:"scans" json:"scans"`
	NearestDistance float64      `yaml:"nearestDistance,omitempty" json:"nearestDistance,omitempty"`
}

// GetScanByID returns the scan config for the given ID, or nil.
func (c *Config) GetScanByID(id string) *ScanConfig {
	for i := range c.Scans {
		if c.Scans[i].ID == id {
			return &c.Scans[i]
		}
	}
	return nil
}

// GetNearestDistance returns the configured nearest-point search radius or
// the default.
func (c *Config) GetNearestDistance() float64 {
	if c.NearestDistance > 0 {
		return c.NearestDistance
	}
	return DefaultNearestDistance
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if len(config.Scans) == 0 {
		return nil, fmt.Errorf("at least one scan must be defined")
	}
	for i, sc := range config.Scans {
		if sc.ID == "" {
			return nil, fmt.Errorf("scan[%d].id is required", i)
		}
		if sc.SparseDir == "" {
			return nil, fmt.Errorf("scan[%d].sparseDir is required for %s", i, sc.ID)
		}
	}
	if config.NearestDistance < 0 {
		return nil, fmt.Errorf("nearestDistance must not be negative")
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
