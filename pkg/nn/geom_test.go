package nn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoxToRect(t *testing.T) {
	b := Box{XCenter: 0.5, YCenter: 0.5, Width: 0.5, Height: 0.25}
	x1, y1, x2, y2 := b.Corners(640, 480)
	require.InDelta(t, 160, x1, 1e-4)
	require.InDelta(t, 180, y1, 1e-4)
	require.InDelta(t, 480, x2, 1e-4)
	require.InDelta(t, 300, y2, 1e-4)

	r := b.ToRect(640, 480)
	require.Equal(t, Rect{X: 160, Y: 180, Width: 320, Height: 120}, r)
	require.Equal(t, 480, r.X2())
	require.Equal(t, 300, r.Y2())
	require.Equal(t, 320*120, r.Area())
}

func TestBoxNormalized(t *testing.T) {
	require.True(t, Box{0.5, 0.5, 1, 1}.Normalized())
	require.True(t, Box{0, 0, 0, 0}.Normalized())
	require.False(t, Box{1.5, 0.5, 0.1, 0.1}.Normalized())
	require.False(t, Box{0.5, -0.1, 0.1, 0.1}.Normalized())
}

func TestRectClip(t *testing.T) {
	r := Rect{X: -10, Y: 5, Width: 50, Height: 200}
	require.Equal(t, Rect{X: 0, Y: 5, Width: 40, Height: 95}, r.Clip(100, 100))
	// Entirely outside
	r = Rect{X: 200, Y: 200, Width: 10, Height: 10}
	require.Equal(t, 0, r.Clip(100, 100).Area())
}

func TestClassTable(t *testing.T) {
	require.Len(t, MilitaryClasses, 11)
	require.Equal(t, "TANK", MilitaryClasses[ClassTank])
	require.Equal(t, "SPART", MilitaryClasses[ClassSPART])
	require.Equal(t, "IFV", ClassName(MilitaryClasses, ClassIFV))
	require.Equal(t, "#11", ClassName(MilitaryClasses, 11))
	require.Equal(t, "#-1", ClassName(MilitaryClasses, -1))
}

func TestLoadClassFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, os.WriteFile(fn, []byte("TANK\n\n  IFV \nAPC\n"), 0644))
	classes, err := LoadClassFile(fn)
	require.NoError(t, err)
	require.Equal(t, []string{"TANK", "IFV", "APC"}, classes)
}

func TestModelConfigRoundTrip(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "best.json")
	cfg := &ModelConfig{Architecture: "yolov8", Width: 640, Height: 640, Classes: []string{"TANK", "IFV"}}
	require.NoError(t, cfg.Save(fn))
	loaded, err := LoadModelConfig(fn)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestImageLabelsSplit(t *testing.T) {
	l := ImageLabels{
		Objects: []Annotation{
			{Class: 3, Box: Box{0.1, 0.2, 0.3, 0.4}},
			{Class: 0, Box: Box{0.5, 0.5, 0.5, 0.5}},
		},
	}
	boxes, classes := l.BoxesAndClasses()
	require.Equal(t, []int64{3, 0}, classes)
	require.Equal(t, []Box{{0.1, 0.2, 0.3, 0.4}, {0.5, 0.5, 0.5, 0.5}}, boxes)
	require.Equal(t, DefaultConfidenceThreshold, float64(NewDetectionParams().Confidence()))
	var nilParams *DetectionParams
	require.Equal(t, DefaultImageSize, nilParams.Size())
}

func TestBoxIOU(t *testing.T) {
	a := Box{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2}
	require.InDelta(t, 1, a.IOU(a), 1e-6)

	// Shifted right by half its width: intersection 0.1*0.2, union 0.06
	b := Box{XCenter: 0.6, YCenter: 0.5, Width: 0.2, Height: 0.2}
	require.InDelta(t, 1.0/3.0, a.IOU(b), 1e-5)

	c := Box{XCenter: 0.1, YCenter: 0.1, Width: 0.1, Height: 0.1}
	require.Equal(t, float32(0), a.IOU(c))
}

func TestFindOverlaps(t *testing.T) {
	boxes := []Box{
		{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2},
		{XCenter: 0.1, YCenter: 0.1, Width: 0.1, Height: 0.1},
		{XCenter: 0.501, YCenter: 0.5, Width: 0.2, Height: 0.2}, // duplicate of 0
		{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.2},   // same place as 0, but another class
	}
	classes := []int64{ClassTank, ClassTank, ClassTank, ClassAPC}
	overlaps := FindOverlaps(boxes, classes, 0.9)
	require.Len(t, overlaps, 1)
	require.Equal(t, 0, overlaps[0].A)
	require.Equal(t, 2, overlaps[0].B)
	require.Greater(t, overlaps[0].IOU, float32(0.9))

	require.Empty(t, FindOverlaps(nil, nil, 0.5))
}
