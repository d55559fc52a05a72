// Package config loads pmdconv.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/binzume/pmdconv/converter"
	"github.com/binzume/pmdconv/pmd"
)

const FileName = "pmdconv.yaml"

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Export  ExportConfig  `yaml:"export"`
	GLTF    GLTFConfig    `yaml:"gltf"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type ExportConfig struct {
	Extension pmd.Extension `yaml:"extension"`
	Trim      bool          `yaml:"trim"`
}

type GLTFConfig struct {
	Scale  float32 `yaml:"scale"`
	Morphs bool    `yaml:"morphs"`
	Skin   bool    `yaml:"skin"`
}

func Default() *Config {
	gltf := converter.DefaultPMDToGLTFOption()
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Export:  ExportConfig{Extension: pmd.ExtPhysics},
		GLTF:    GLTFConfig{Scale: gltf.Scale, Morphs: gltf.ExportMorphs, Skin: gltf.ExportSkin},
	}
}

// Load returns the defaults overlaid with a config file. An explicit path
// must exist; otherwise the working directory and then Dir are searched.
// The returned path is empty when no file was read.
func Load(explicit string) (*Config, string, error) {
	cfg := Default()
	path := explicit
	if path == "" {
		path = find()
	}
	if path == "" {
		return cfg, "", nil
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, path, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, path, nil
}

func find() string {
	candidates := []string{FileName}
	if dir := Dir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, FileName))
	}
	for _, path := range candidates {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

// Dir is the per-user config directory, or "" when the platform has none.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pmdconv")
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, c)
}

// SaveTo writes c as YAML, creating the parent directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) GLTFOption() *converter.PMDToGLTFOption {
	return &converter.PMDToGLTFOption{
		Scale:        c.GLTF.Scale,
		ExportMorphs: c.GLTF.Morphs,
		ExportSkin:   c.GLTF.Skin,
	}
}
