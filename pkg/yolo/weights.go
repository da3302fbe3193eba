package yolo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/milvehicles/pkg/config"
	"github.com/cyclopcam/milvehicles/pkg/nn"
)

// Where a weights file came from
type WeightsSource string

const (
	WeightsExplicit   WeightsSource = "explicit"   // The path that the user asked for
	WeightsBest       WeightsSource = "best"       // The best checkpoint of our own training run
	WeightsPretrained WeightsSource = "pretrained" // A generic pretrained model, which the detector fetches itself
)

type Weights struct {
	Path   string          // File path, or a pretrained model identifier such as "yolov8n.pt"
	Source WeightsSource
	Config *nn.ModelConfig // Model description saved next to the weights, if any
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// ModelConfigPath is the JSON file that describes a weights file: "best.pt" -> "best.json"
func ModelConfigPath(weights string) string {
	return strings.TrimSuffix(weights, filepath.Ext(weights)) + ".json"
}

// ResolveWeights decides which model to run. We try, in order:
//  1. requested, if it exists
//  2. the best weights of our training run
//  3. the pretrained model named in the config
//
// Falling back is logged as a warning, but it is never an error.
// An empty requested path means the pretrained model.
func ResolveWeights(log logs.Log, cfg *config.Config, requested string) Weights {
	pretrained := cfg.Detector.Pretrained
	if requested == "" {
		requested = pretrained
	}

	var w Weights
	best := cfg.BestWeightsPath()
	if fileExists(requested) {
		abs, err := filepath.Abs(requested)
		if err != nil {
			abs = requested
		}
		w = Weights{Path: abs, Source: WeightsExplicit}
	} else if fileExists(best) {
		log.Warnf("Model not found at %v, using best model from training: %v", requested, best)
		w = Weights{Path: best, Source: WeightsBest}
	} else {
		if requested != pretrained {
			log.Warnf("Model not found at %v and no trained model at %v. Falling back to pretrained %v", requested, best, pretrained)
		}
		return Weights{Path: pretrained, Source: WeightsPretrained}
	}

	if fileExists(ModelConfigPath(w.Path)) {
		mc, err := nn.LoadModelConfig(ModelConfigPath(w.Path))
		if err != nil {
			log.Warnf("Ignoring unreadable model description %v: %v", ModelConfigPath(w.Path), err)
		} else {
			w.Config = mc
		}
	}
	return w
}
