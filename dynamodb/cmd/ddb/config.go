package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const configFilename = "ddb.yaml"

// Config is loaded from ddb.yaml.
type Config struct {
	// Region and Endpoint override the AWS SDK defaults. Endpoint is
	// typically a DynamoDB Local URL.
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`

	// DataDir is where the local store keeps its data. Empty means in-memory.
	DataDir string `yaml:"dataDir"`

	Tables []TableConfig `yaml:"tables" validate:"required,min=1,unique=Name,dive"`
}

type TableConfig struct {
	Name         string      `yaml:"name" validate:"required"`
	PartitionKey KeyConfig   `yaml:"partitionKey"`
	SortKey      *KeyConfig  `yaml:"sortKey"`
	GSIs         []GSIConfig `yaml:"gsis" validate:"unique=Name,dive"`
}

type GSIConfig struct {
	Name         string     `yaml:"name" validate:"required"`
	PartitionKey KeyConfig  `yaml:"partitionKey"`
	SortKey      *KeyConfig `yaml:"sortKey"`
}

// KeyConfig describes one key attribute. Format is applied to command line
// key inputs, e.g. "USER#%s".
type KeyConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Kind   string `yaml:"kind" validate:"omitempty,oneof=S N B"`
	Format string `yaml:"format"`
}

func (c Config) Table(name string) (TableConfig, error) {
	for _, t := range c.Tables {
		if t.Name == name {
			return t, nil
		}
	}
	if name == "" && len(c.Tables) == 1 {
		return c.Tables[0], nil
	}
	return TableConfig{}, fmt.Errorf("table %q not found in %s", name, configFilename)
}

func (t TableConfig) GSI(name string) (GSIConfig, error) {
	for _, g := range t.GSIs {
		if g.Name == name {
			return g, nil
		}
	}
	return GSIConfig{}, fmt.Errorf("table %q has no index %q", t.Name, name)
}

// LoadConfig reads the config at path. An empty path searches for ddb.yaml
// starting from the current directory and walking up to the filesystem root.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return Config{}, fmt.Errorf("%s not found", configFilename)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	err := validator.New().Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", e.Namespace(), e.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// findConfigFile searches for ddb.yaml walking up from the current directory.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, configFilename)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
