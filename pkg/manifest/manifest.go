// Package manifest generates the data.yaml file that tells the detector where the
// dataset splits live and which classes exist.
package manifest

import (
	"fmt"
	"os"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/milvehicles/pkg/config"
	"gopkg.in/yaml.v3"
)

// Manifest is the dataset descriptor consumed by the detector.
// Field order is the key order of the YAML file.
type Manifest struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`

	// Splits whose directory was not found. Not serialized.
	Missing []string `yaml:"-"`
}

// Generate builds a manifest from the config.
// Missing split directories produce a warning, but are not an error, because the
// detector only needs the splits that it is asked to use.
func Generate(log logs.Log, cfg *config.Config) (*Manifest, error) {
	m := &Manifest{
		Train: cfg.TrainDir(),
		Val:   cfg.ValDir(),
		Test:  cfg.TestDir(),
		NC:    cfg.NumClasses(),
		Names: append([]string{}, cfg.Data.Classes...),
	}
	if m.NC == 0 {
		return nil, fmt.Errorf("Class table is empty")
	}

	log.Infof("Checking data directories")
	for _, split := range config.Splits {
		dir, _ := cfg.SplitDir(split)
		st, err := os.Stat(dir)
		if err != nil || !st.IsDir() {
			log.Warnf("%v directory not found at %v", split, dir)
			m.Missing = append(m.Missing, split)
		} else {
			log.Infof("Found %v: %v", split, dir)
		}
	}
	if len(m.Missing) != 0 {
		log.Warnf("Some data directories are missing (%v). Training might fail.", m.Missing)
	}
	return m, nil
}

// Marshal encodes the manifest as YAML
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Write saves the manifest to filename
func (m *Manifest) Write(filename string) error {
	b, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("Error writing manifest %v: %w", filename, err)
	}
	return nil
}

// Load reads a manifest from filename
func Load(filename string) (*Manifest, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("Error parsing manifest %v: %w", filename, err)
	}
	if m.NC != len(m.Names) {
		return nil, fmt.Errorf("Manifest %v has nc=%v, but %v names", filename, m.NC, len(m.Names))
	}
	return m, nil
}

// Create generates the manifest and writes it to the path configured in cfg
func Create(log logs.Log, cfg *config.Config) (*Manifest, error) {
	m, err := Generate(log, cfg)
	if err != nil {
		return nil, err
	}
	path := cfg.ManifestPath()
	if err := m.Write(path); err != nil {
		return nil, err
	}
	log.Infof("Created detector dataset configuration at %v", path)
	return m, nil
}
