package dataset

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/milvehicles/pkg/nn"
	"github.com/stretchr/testify/require"
)

const testSize = 32

type testDirs struct {
	images string
	labels string
}

func makeDirs(t *testing.T) testDirs {
	t.Helper()
	root := t.TempDir()
	d := testDirs{
		images: filepath.Join(root, "images"),
		labels: filepath.Join(root, "labels"),
	}
	require.NoError(t, os.MkdirAll(d.images, 0755))
	require.NoError(t, os.MkdirAll(d.labels, 0755))
	return d
}

func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, width, height int, c color.Color) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, solidImage(width, height, c)))
}

func writeJPEG(t *testing.T, path string, width, height int, c color.Color) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, solidImage(width, height, c), &jpeg.Options{Quality: 95}))
}

func writeLabels(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

var red = color.RGBA{R: 255, A: 255}

func TestLenAndOrder(t *testing.T) {
	d := makeDirs(t)
	writePNG(t, filepath.Join(d.images, "c.png"), 10, 10, red)
	writeJPEG(t, filepath.Join(d.images, "a.jpg"), 10, 10, red)
	writePNG(t, filepath.Join(d.images, "b.PNG"), 10, 10, red)
	// Not images
	writeLabels(t, filepath.Join(d.images, "notes.txt"), "hello")
	require.NoError(t, os.Mkdir(filepath.Join(d.images, "sub.png"), 0755))

	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	require.Equal(t, filepath.Join(d.images, "a.jpg"), ds.ImagePath(0))
	require.Equal(t, filepath.Join(d.images, "b.PNG"), ds.ImagePath(1))
	require.Equal(t, filepath.Join(d.images, "c.png"), ds.ImagePath(2))
	require.Equal(t, filepath.Join(d.labels, "b.txt"), ds.LabelPath(1))
}

func TestMissingImagesDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), t.TempDir(), testSize)
	require.Error(t, err)
	_, err = New(t.TempDir(), t.TempDir(), 0)
	require.Error(t, err)
}

func TestMissingLabelFile(t *testing.T) {
	d := makeDirs(t)
	writePNG(t, filepath.Join(d.images, "x.png"), 20, 20, red)
	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)

	s, err := ds.Get(0)
	require.NoError(t, err)
	require.Empty(t, s.Boxes)
	require.Empty(t, s.Labels)
	require.Equal(t, len(s.Boxes), len(s.Labels))
}

func TestLabelsParsed(t *testing.T) {
	d := makeDirs(t)
	writePNG(t, filepath.Join(d.images, "x.png"), 20, 20, red)
	writeLabels(t, filepath.Join(d.labels, "x.txt"),
		"0 0.5 0.5 0.2 0.3",
		"",
		"7  0.1 0.2\t0.05 0.06",
		"10 0.9 0.9 0.1 0.1",
	)
	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)

	s, err := ds.Get(0)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 7, 10}, s.Labels)
	require.Len(t, s.Boxes, 3)
	require.Equal(t, nn.Box{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.3}, s.Boxes[0])
	require.Equal(t, nn.Box{XCenter: 0.1, YCenter: 0.2, Width: 0.05, Height: 0.06}, s.Boxes[1])
}

func TestImageResizedAndNormalized(t *testing.T) {
	d := makeDirs(t)
	writePNG(t, filepath.Join(d.images, "wide.png"), 97, 23, red)
	writeJPEG(t, filepath.Join(d.images, "tall.jpg"), 13, 61, red)
	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)

	for i := 0; i < ds.Len(); i++ {
		s, err := ds.Get(i)
		require.NoError(t, err)
		require.Equal(t, testSize, s.Size)
		require.Len(t, s.Image, NumChannels*testSize*testSize)
		for _, v := range s.Image {
			require.True(t, v >= 0 && v <= 1, "value %v out of range", v)
		}
		// Channel-first: the red plane comes first
		plane := testSize * testSize
		require.InDelta(t, 1.0, s.Image[plane/2], 0.02)
		require.InDelta(t, 0.0, s.Image[plane+plane/2], 0.02)
		require.InDelta(t, 0.0, s.Image[2*plane+plane/2], 0.02)
	}
}

func TestMalformedLine(t *testing.T) {
	d := makeDirs(t)
	writePNG(t, filepath.Join(d.images, "x.png"), 20, 20, red)
	labelPath := filepath.Join(d.labels, "x.txt")
	writeLabels(t, labelPath, "0 0.5 0.5 0.2 0.3", "3 0.5 0.5")
	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)

	_, err = ds.Get(0)
	require.Error(t, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, labelPath, perr.Path)
	require.Equal(t, 2, perr.Line)
	require.Contains(t, err.Error(), labelPath)
}

func TestNonNumericLine(t *testing.T) {
	_, err := ParseLabels(strings.NewReader("tank 0.5 0.5 0.1 0.1\n"), "a.txt")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, 1, perr.Line)

	_, err = ParseLabels(strings.NewReader("1 0.5 zero 0.1 0.1\n"), "a.txt")
	require.True(t, errors.As(err, &perr))

	_, err = ParseLabels(strings.NewReader("1 0.5 0.5 0.1 0.1 0.9\n"), "a.txt")
	require.True(t, errors.As(err, &perr))
}

func TestDecodeError(t *testing.T) {
	d := makeDirs(t)
	bad := filepath.Join(d.images, "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("this is not a jpeg"), 0644))
	truncated := filepath.Join(d.images, "trunc.png")
	writePNG(t, truncated, 20, 20, red)
	raw, err := os.ReadFile(truncated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(truncated, raw[:40], 0644))
	require.NoError(t, os.WriteFile(filepath.Join(d.images, "empty.png"), nil, 0644))

	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		_, err := ds.Get(i)
		var derr *DecodeError
		require.True(t, errors.As(err, &derr), "expected DecodeError for %v, got %v", ds.ImagePath(i), err)
		require.Equal(t, ds.ImagePath(i), derr.Path)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	d := makeDirs(t)
	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)
	require.Equal(t, 0, ds.Len())
	_, err = ds.Get(0)
	require.Error(t, err)
	_, err = ds.Get(-1)
	require.Error(t, err)
}

func TestTransform(t *testing.T) {
	d := makeDirs(t)
	// Left half red, right half blue
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if x < 20 {
				img.Set(x, y, red)
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	f, err := os.Create(filepath.Join(d.images, "x.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	writeLabels(t, filepath.Join(d.labels, "x.txt"), "1 0.25 0.5 0.1 0.1")

	ds, err := New(d.images, d.labels, 40, WithTransform(HorizontalFlip))
	require.NoError(t, err)
	s, err := ds.Get(0)
	require.NoError(t, err)
	require.InDelta(t, 0.75, s.Boxes[0].XCenter, 1e-6)
	require.Equal(t, []int64{1}, s.Labels)
	// After the flip, pixel (0,0) is blue
	plane := 40 * 40
	require.InDelta(t, 0.0, s.Image[0], 0.02)
	require.InDelta(t, 1.0, s.Image[2*plane], 0.02)

	dropAll := func(img *Image, boxes []nn.Box) (*Image, []nn.Box, error) {
		return img, nil, nil
	}
	ds, err = New(d.images, d.labels, 40, WithTransform(Chain(HorizontalFlip, dropAll)))
	require.NoError(t, err)
	_, err = ds.Get(0)
	require.ErrorIs(t, err, ErrTransformMismatch)
}

func TestValidateAndCount(t *testing.T) {
	d := makeDirs(t)
	writePNG(t, filepath.Join(d.images, "a.png"), 8, 8, red)
	writePNG(t, filepath.Join(d.images, "b.png"), 8, 8, red)
	writeLabels(t, filepath.Join(d.labels, "a.txt"), "0 0.5 0.5 0.1 0.1", "1 0.5 0.5 0.1 0.1")
	writeLabels(t, filepath.Join(d.labels, "b.txt"), "1 0.5 0.5 0.1 0.1")
	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)

	require.NoError(t, ds.Validate(2))
	require.Error(t, ds.Validate(1))

	counts, err := ds.CountClasses(3)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 0}, counts)
}

func TestFindDuplicates(t *testing.T) {
	d := makeDirs(t)
	writePNG(t, filepath.Join(d.images, "a.png"), 8, 8, red)
	writePNG(t, filepath.Join(d.images, "b.png"), 8, 8, red)
	writeLabels(t, filepath.Join(d.labels, "a.txt"), "0 0.5 0.5 0.2 0.2", "1 0.5 0.5 0.2 0.2")
	writeLabels(t, filepath.Join(d.labels, "b.txt"), "2 0.3 0.3 0.2 0.2", "4 0.8 0.8 0.1 0.1", "2 0.3 0.3 0.2 0.21")
	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)

	dups, err := ds.FindDuplicates(0.9)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	require.Equal(t, filepath.Join(d.labels, "b.txt"), dups[0].LabelPath)
	require.Equal(t, 0, dups[0].Overlap.A)
	require.Equal(t, 2, dups[0].Overlap.B)
}

func TestDecoderChosenByContent(t *testing.T) {
	d := makeDirs(t)
	// JPEG data behind a .png extension still decodes
	writeJPEG(t, filepath.Join(d.images, "a.png"), 12, 12, red)
	// A GIF is an image, but not one we accept
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	require.NoError(t, os.WriteFile(filepath.Join(d.images, "b.jpg"), gif, 0644))

	ds, err := New(d.images, d.labels, testSize)
	require.NoError(t, err)
	s, err := ds.Get(0)
	require.NoError(t, err)
	require.Equal(t, testSize, s.Size)

	_, err = ds.Get(1)
	var derr *DecodeError
	require.True(t, errors.As(err, &derr))
	require.Contains(t, derr.Error(), "unsupported image type image/gif")
}

func TestResizeRejectsEmptySource(t *testing.T) {
	_, err := resizeRGB(cimg.NewImage(0, 0, cimg.PixelFormatRGB), testSize, testSize)
	require.Error(t, err)

	src := cimg.NewImage(4, 4, cimg.PixelFormatRGB)
	same, err := resizeRGB(src, 4, 4)
	require.NoError(t, err)
	require.Same(t, src, same)

	big, err := resizeRGB(src, 9, 7)
	require.NoError(t, err)
	require.Equal(t, 9, big.Width)
	require.Equal(t, 7, big.Height)
}
