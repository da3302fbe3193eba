// Package yolo runs an external YOLO detector (the Ultralytics "yolo" CLI).
// All detection and training logic lives in that program; we only marshal
// parameters, pick the weights, and find out where the results went.
package yolo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/milvehicles/pkg/nn"
	"github.com/cyclopcam/milvehicles/pkg/shell"
)

// Detector is the external object detector
type Detector interface {
	Predict(req *PredictRequest) (*PredictResult, error)
	Train(req *TrainRequest) (*TrainResult, error)
}

type PredictRequest struct {
	Weights Weights
	Source  Source
	Params  *nn.DetectionParams
	Project string // Results are written to Project/Name (or Name2, Name3... if that exists)
	Name    string
}

type PredictResult struct {
	SaveDir string // Where the detector wrote the annotated images or video
}

type TrainRequest struct {
	Manifest  string // data.yaml
	Model     string // Starting weights, eg "yolov8n.pt"
	Classes   []string
	Epochs    int
	ImageSize int
	BatchSize int
	Project   string
	Name      string
}

type TrainResult struct {
	RunDir      string
	BestWeights string
}

// CLI runs the detector as a subprocess
type CLI struct {
	Executable string    // eg "yolo"
	Dir        string    // Working directory of the detector. Relative paths are resolved against it.
	Log        logs.Log
	Echo       io.Writer // If not nil, the detector's output is echoed here
}

func NewCLI(log logs.Log, executable, dir string) *CLI {
	return &CLI{
		Executable: executable,
		Dir:        dir,
		Log:        log,
		Echo:       os.Stdout,
	}
}

// Resolve a path that the detector sees relative to its working directory
func (c *CLI) abs(path string) string {
	if !filepath.IsAbs(path) && c.Dir != "" {
		path = filepath.Join(c.Dir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}

func (c *CLI) run(args []string) (string, error) {
	c.Log.Infof("Running %v %v", c.Executable, strings.Join(args, " "))
	cmd := &shell.Command{
		Name: c.Executable,
		Args: args,
		Dir:  c.Dir,
		Echo: c.Echo,
	}
	out, err := cmd.Run()
	if err != nil {
		return out, fmt.Errorf("%v failed: %w", c.Executable, err)
	}
	return out, nil
}

// PredictArgs builds the detector command line for a prediction
func PredictArgs(req *PredictRequest) []string {
	return []string{
		"detect",
		"predict",
		"model=" + req.Weights.Path,
		"source=" + req.Source.String(),
		fmt.Sprintf("conf=%v", req.Params.Confidence()),
		fmt.Sprintf("imgsz=%v", req.Params.Size()),
		"save=True",
		"project=" + req.Project,
		"name=" + req.Name,
	}
}

func (c *CLI) Predict(req *PredictRequest) (*PredictResult, error) {
	out, err := c.run(PredictArgs(req))
	if err != nil {
		return nil, err
	}
	if dir := ParseSaveDir(out); dir != "" {
		return &PredictResult{SaveDir: c.abs(dir)}, nil
	}
	// Older detector versions don't print the location, so look for the newest run directory
	dir, err := NewestRunDir(c.abs(req.Project), req.Name)
	if err != nil {
		return nil, fmt.Errorf("Unable to find the detector output: %w", err)
	}
	return &PredictResult{SaveDir: dir}, nil
}

// TrainArgs builds the detector command line for a training run
func TrainArgs(req *TrainRequest) []string {
	return []string{
		"detect",
		"train",
		"data=" + req.Manifest,
		"model=" + req.Model,
		fmt.Sprintf("epochs=%v", req.Epochs),
		fmt.Sprintf("imgsz=%v", req.ImageSize),
		fmt.Sprintf("batch=%v", req.BatchSize),
		"project=" + req.Project,
		"name=" + req.Name,
		"exist_ok=True",
	}
}

func (c *CLI) Train(req *TrainRequest) (*TrainResult, error) {
	if _, err := c.run(TrainArgs(req)); err != nil {
		return nil, err
	}
	runDir := filepath.Join(c.abs(req.Project), req.Name)
	res := &TrainResult{
		RunDir:      runDir,
		BestWeights: filepath.Join(runDir, "weights", "best.pt"),
	}
	if !fileExists(res.BestWeights) {
		return nil, fmt.Errorf("Training finished, but %v was not produced", res.BestWeights)
	}
	mc := &nn.ModelConfig{
		Architecture: strings.TrimSuffix(filepath.Base(req.Model), filepath.Ext(req.Model)),
		Width:        req.ImageSize,
		Height:       req.ImageSize,
		Classes:      req.Classes,
	}
	if err := mc.Save(ModelConfigPath(res.BestWeights)); err != nil {
		return nil, err
	}
	return res, nil
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
var savedTo = regexp.MustCompile(`Results saved to (.+)`)

// ParseSaveDir extracts the output directory from the detector's log, or returns
// an empty string if it isn't there. The last mention wins. The path is returned
// as printed, so it may be relative to the detector's working directory.
func ParseSaveDir(output string) string {
	clean := ansiEscape.ReplaceAllString(output, "")
	matches := savedTo.FindAllStringSubmatch(clean, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}

// NewestRunDir returns the most recently modified directory inside project that is
// either name, or name followed by a number (the detector appends 2, 3, ... to avoid
// overwriting an earlier run).
func NewestRunDir(project, name string) (string, error) {
	isRun := regexp.MustCompile(`^` + regexp.QuoteMeta(name) + `[0-9]*$`)
	entries, err := os.ReadDir(project)
	if err != nil {
		return "", err
	}
	type candidate struct {
		path    string
		modTime int64
	}
	candidates := []candidate{}
	for _, e := range entries {
		if !e.IsDir() || !isRun.MatchString(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{filepath.Join(project, e.Name()), info.ModTime().UnixNano()})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("No '%v' directory in %v", name, project)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime > candidates[j].modTime
	})
	return candidates[0].path, nil
}
