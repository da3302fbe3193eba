package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/milvehicles/pkg/nn"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	base := t.TempDir()
	t.Setenv("MV_BASEDIR", base)
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, nn.MilitaryClasses, cfg.Data.Classes)
	require.Equal(t, 11, cfg.NumClasses())
	require.Equal(t, 50, cfg.Train.Epochs)
	require.Equal(t, 16, cfg.Train.BatchSize)
	require.Equal(t, 640, cfg.Train.ImageSize)
	require.InDelta(t, 0.25, cfg.Detector.Confidence, 1e-6)
	require.Equal(t, filepath.Join(base, "data", "train"), cfg.TrainDir())
	require.Equal(t, filepath.Join(base, "data", "valid"), cfg.ValDir())
	require.Equal(t, filepath.Join(base, "data", "test"), cfg.TestDir())
	require.Equal(t, filepath.Join(base, "data.yaml"), cfg.ManifestPath())
	require.Equal(t, filepath.Join(base, "runs", "detect", "yolov8_military_vehicles", "weights", "best.pt"), cfg.BestWeightsPath())

	images, err := cfg.ImagesDir("valid")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "data", "valid", "images"), images)
	labels, err := cfg.LabelsDir(SplitTest)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "data", "test", "labels"), labels)
	_, err = cfg.SplitDir("holdout")
	require.Error(t, err)
}

func TestFileAndEnvOverrides(t *testing.T) {
	base := t.TempDir()
	fn := filepath.Join(base, "config.yaml")
	yml := `
basedir: ` + base + `
data:
  classes: ["TANK", "IFV"]
train:
  epochs: 5
detector:
  confidence: 0.5
`
	require.NoError(t, os.WriteFile(fn, []byte(yml), 0644))
	t.Setenv("MV_TRAIN_BATCHSIZE", "4")

	cfg, err := Load(fn)
	require.NoError(t, err)
	require.Equal(t, base, cfg.BaseDir)
	require.Equal(t, []string{"TANK", "IFV"}, cfg.Data.Classes)
	require.Equal(t, 5, cfg.Train.Epochs)
	require.Equal(t, 4, cfg.Train.BatchSize)
	require.InDelta(t, 0.5, cfg.Detector.Confidence, 1e-6)
}

func TestClassFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "classes.txt"), []byte("A\nB\nC\n"), 0644))
	t.Setenv("MV_BASEDIR", base)
	t.Setenv("MV_DATA_CLASSFILE", "classes.txt")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, cfg.Data.Classes)
}

func TestValidate(t *testing.T) {
	t.Setenv("MV_BASEDIR", t.TempDir())
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Data.Classes = nil
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Data.Classes = []string{"TANK", "TANK"}
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Train.ImageSize = 0
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Detector.Confidence = 1.5
	require.Error(t, bad.Validate())

	require.Equal(t, "/abs/path", cfg.Path("/abs/path"))
}
