package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/milvehicles/pkg/nn"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// Environment variables with this prefix override config values.
// MV_TRAIN_EPOCHS=10 sets train.epochs.
const EnvPrefix = "MV_"

// Names of the three dataset splits, as they appear in the manifest
const (
	SplitTrain = "train"
	SplitVal   = "val"
	SplitTest  = "test"
)

var Splits = []string{SplitTrain, SplitVal, SplitTest}

type DataConfig struct {
	Dir        string   `koanf:"dir"`        // Root of the dataset, relative to the project root
	TrainDir   string   `koanf:"train"`      // Train split, relative to Dir
	ValDir     string   `koanf:"val"`        // Validation split, relative to Dir
	TestDir    string   `koanf:"test"`       // Test split, relative to Dir
	Images     string   `koanf:"images"`     // Images subdirectory of each split
	Labels     string   `koanf:"labels"`     // Labels subdirectory of each split
	Classes    []string `koanf:"classes"`    // Ordered class table
	ClassFile  string   `koanf:"classfile"`  // If set, classes are read from this file instead (one per line)
	Manifest   string   `koanf:"manifest"`   // Path of the generated data.yaml
	Extensions []string `koanf:"extensions"` // Image file extensions that the loader picks up
}

type TrainConfig struct {
	Epochs    int    `koanf:"epochs"`
	BatchSize int    `koanf:"batchsize"`
	ImageSize int    `koanf:"imagesize"`
	RunName   string `koanf:"runname"` // Name of the training run under RunsDir
}

type DetectorConfig struct {
	Executable string  `koanf:"executable"` // Detector CLI, eg "yolo"
	Pretrained string  `koanf:"pretrained"` // Last resort weights identifier
	RunsDir    string  `koanf:"runsdir"`    // Project directory of detector runs, relative to the project root
	Confidence float32 `koanf:"confidence"`
}

type LoaderConfig struct {
	Shuffle bool  `koanf:"shuffle"`
	Workers int   `koanf:"workers"`
	Seed    int64 `koanf:"seed"`
}

type Config struct {
	BaseDir  string         `koanf:"basedir"` // Project root. Empty means the current directory.
	Data     DataConfig     `koanf:"data"`
	Train    TrainConfig    `koanf:"train"`
	Detector DetectorConfig `koanf:"detector"`
	Loader   LoaderConfig   `koanf:"loader"`
}

func defaults() map[string]any {
	return map[string]any{
		"basedir":             "",
		"data.dir":            "data",
		"data.train":          "train",
		"data.val":            "valid",
		"data.test":           "test",
		"data.images":         "images",
		"data.labels":         "labels",
		"data.classes":        nn.MilitaryClasses,
		"data.classfile":      "",
		"data.manifest":       "data.yaml",
		"data.extensions":     []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"},
		"train.epochs":        50,
		"train.batchsize":     16,
		"train.imagesize":     nn.DefaultImageSize,
		"train.runname":       "yolov8_military_vehicles",
		"detector.executable": "yolo",
		"detector.pretrained": "yolov8n.pt",
		"detector.runsdir":    filepath.Join("runs", "detect"),
		"detector.confidence": nn.DefaultConfidenceThreshold,
		"loader.shuffle":      true,
		"loader.workers":      1,
		"loader.seed":         0,
	}
}

// Default returns the built-in configuration, rooted at the current directory
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// The defaults are static, so this can only be a programming error
		panic(err)
	}
	return cfg
}

// Load builds the configuration from the defaults, then the optional YAML file
// at filename, then MV_ environment variables.
func Load(filename string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, err
	}

	if filename != "" {
		if err := k.Load(file.Provider(filename), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("Error loading config %v: %w", filename, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(s string, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
		if strings.Contains(v, ",") {
			return key, strings.Split(strings.TrimSpace(v), ",")
		}
		return key, v
	}), nil); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cfg.BaseDir = wd
	}
	abs, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	cfg.BaseDir = abs

	if cfg.Data.ClassFile != "" {
		classes, err := nn.LoadClassFile(cfg.Path(cfg.Data.ClassFile))
		if err != nil {
			return nil, fmt.Errorf("Error loading class file: %w", err)
		}
		cfg.Data.Classes = classes
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values that would make the tools misbehave
func (c *Config) Validate() error {
	if len(c.Data.Classes) == 0 {
		return errors.New("Class table is empty")
	}
	seen := map[string]bool{}
	for _, name := range c.Data.Classes {
		if seen[name] {
			return fmt.Errorf("Duplicate class name '%v'", name)
		}
		seen[name] = true
	}
	if c.Train.ImageSize <= 0 {
		return fmt.Errorf("Invalid image size %v", c.Train.ImageSize)
	}
	if c.Train.BatchSize <= 0 {
		return fmt.Errorf("Invalid batch size %v", c.Train.BatchSize)
	}
	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		return fmt.Errorf("Confidence threshold %v is outside [0,1]", c.Detector.Confidence)
	}
	if len(c.Data.Extensions) == 0 {
		return errors.New("No image extensions configured")
	}
	return nil
}

// Path resolves p against the project root. Absolute paths are returned unchanged.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.BaseDir, p)
}

func (c *Config) DataDir() string {
	return c.Path(c.Data.Dir)
}

func (c *Config) TrainDir() string {
	return filepath.Join(c.DataDir(), c.Data.TrainDir)
}

func (c *Config) ValDir() string {
	return filepath.Join(c.DataDir(), c.Data.ValDir)
}

func (c *Config) TestDir() string {
	return filepath.Join(c.DataDir(), c.Data.TestDir)
}

// SplitDir returns the directory of one of the splits "train", "val" or "test".
// "valid" is accepted as an alias of "val".
func (c *Config) SplitDir(split string) (string, error) {
	switch split {
	case SplitTrain:
		return c.TrainDir(), nil
	case SplitVal, "valid":
		return c.ValDir(), nil
	case SplitTest:
		return c.TestDir(), nil
	}
	return "", fmt.Errorf("Unknown split '%v'", split)
}

func (c *Config) ImagesDir(split string) (string, error) {
	dir, err := c.SplitDir(split)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Data.Images), nil
}

func (c *Config) LabelsDir(split string) (string, error) {
	dir, err := c.SplitDir(split)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Data.Labels), nil
}

func (c *Config) ManifestPath() string {
	return c.Path(c.Data.Manifest)
}

func (c *Config) RunsDir() string {
	return c.Path(c.Detector.RunsDir)
}

// BestWeightsPath is where the detector leaves the best checkpoint of our training run
func (c *Config) BestWeightsPath() string {
	return filepath.Join(c.RunsDir(), c.Train.RunName, "weights", "best.pt")
}

// NumClasses is the size of the class table
func (c *Config) NumClasses() int {
	return len(c.Data.Classes)
}
