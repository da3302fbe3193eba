package nn

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
)

// Package nn holds the vocabulary shared by the dataset, detector and
// visualization packages: class tables, boxes and detection parameters.
// Running a model is done by the yolo package.

const DefaultConfidenceThreshold = 0.25
const DefaultImageSize = 640

// Detection parameters passed through to the external detector
type DetectionParams struct {
	ConfidenceThreshold float32 // Value between 0 and 1. Lower values will find more objects. Zero value will use the default.
	ImageSize           int     // Inference image edge length. Zero value will use the default.
}

// Create a default DetectionParams object
func NewDetectionParams() *DetectionParams {
	return &DetectionParams{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		ImageSize:           DefaultImageSize,
	}
}

// Returns the confidence threshold, substituting the default for zero
func (p *DetectionParams) Confidence() float32 {
	if p == nil || p.ConfidenceThreshold == 0 {
		return DefaultConfidenceThreshold
	}
	return p.ConfidenceThreshold
}

// Returns the image size, substituting the default for zero
func (p *DetectionParams) Size() int {
	if p == nil || p.ImageSize == 0 {
		return DefaultImageSize
	}
	return p.ImageSize
}

// ModelConfig describes a trained model. It can be saved as JSON alongside the weights.
type ModelConfig struct {
	Architecture string   `json:"architecture"` // eg "yolov8"
	Width        int      `json:"width"`        // eg 640
	Height       int      `json:"height"`       // eg 640
	Classes      []string `json:"classes"`      // eg ["TANK", "IFV", ...]
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// Save model config as an indented JSON file
func (c *ModelConfig) Save(filename string) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}

// Load a text file with class names on each line
func LoadClassFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	return classes, scanner.Err()
}
