// Package viz draws dataset samples with their ground truth boxes, for sanity checking
// annotations before training.
package viz

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/milvehicles/pkg/dataset"
	"github.com/cyclopcam/milvehicles/pkg/nn"
	"github.com/fogleman/gg"
)

type RenderOptions struct {
	NumExamples  int // Number of images to draw. Zero or more than the batch means the whole batch.
	ImagesPerRow int // Zero means 4
	Padding      int // Pixels between tiles
	LineWidth    float64
}

func NewRenderOptions() *RenderOptions {
	return &RenderOptions{
		NumExamples:  5,
		ImagesPerRow: 4,
		Padding:      4,
		LineWidth:    2,
	}
}

var (
	boxColor   = color.RGBA{R: 255, A: 255}
	labelColor = color.RGBA{R: 255, G: 255, A: 128}
	textColor  = color.RGBA{A: 255}
)

// Grid returns the number of columns and rows for n images. Rows are rounded up.
func Grid(n, perRow int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = min(n, perRow)
	rows = (n + perRow - 1) / perRow
	return
}

// RenderBatch tiles the images of a batch into one picture, and draws every
// ground truth box with its class name.
func RenderBatch(batch *dataset.Batch, classes []string, opt *RenderOptions) (image.Image, error) {
	if batch.N == 0 {
		return nil, errors.New("Batch is empty")
	}
	if opt == nil {
		opt = NewRenderOptions()
	}
	perRow := opt.ImagesPerRow
	if perRow <= 0 {
		perRow = 4
	}
	n := opt.NumExamples
	if n <= 0 || n > batch.N {
		n = batch.N
	}
	cols, rows := Grid(n, perRow)
	size := batch.Size
	pad := opt.Padding
	width := cols*size + (cols+1)*pad
	height := rows*size + (rows+1)*pad

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetLineWidth(opt.LineWidth)

	for i := 0; i < n; i++ {
		x0 := pad + (i%perRow)*(size+pad)
		y0 := pad + (i/perRow)*(size+pad)
		img := dataset.ImageFromCHW(batch.Image(i), size, size)
		dc.DrawImage(toRGBA(img), x0, y0)
		for j, box := range batch.Boxes[i] {
			r := box.ToRect(size, size).Clip(size, size)
			drawBox(dc, r, x0, y0, nn.ClassName(classes, int(batch.Labels[i][j])))
		}
	}
	return dc.Image(), nil
}

func drawBox(dc *gg.Context, r nn.Rect, x0, y0 int, label string) {
	x := float64(x0 + r.X)
	y := float64(y0 + r.Y)
	dc.SetColor(boxColor)
	dc.DrawRectangle(x, y, float64(r.Width), float64(r.Height))
	dc.Stroke()

	tw, th := dc.MeasureString(label)
	dc.SetColor(labelColor)
	dc.DrawRectangle(x, y-th-2, tw+4, th+4)
	dc.Fill()
	dc.SetColor(textColor)
	dc.DrawString(label, x+2, y)
}

// Convert a float image to 8-bit RGBA for drawing
func toRGBA(img *dataset.Image) *image.RGBA {
	rgb := img.ToRGB()
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		src := rgb.Pixels[y*rgb.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < img.Width; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 255
		}
	}
	return out
}

// Save writes img as PNG or JPEG, depending on the file extension
func Save(img image.Image, filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return gg.SavePNG(filename, img)
	case ".jpg", ".jpeg":
		b := img.Bounds()
		rgb := cimg.NewImage(b.Dx(), b.Dy(), cimg.PixelFormatRGB)
		for y := 0; y < b.Dy(); y++ {
			row := rgb.Pixels[y*rgb.Stride:]
			for x := 0; x < b.Dx(); x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				row[x*3] = uint8(r >> 8)
				row[x*3+1] = uint8(g >> 8)
				row[x*3+2] = uint8(bl >> 8)
			}
		}
		jpg, err := cimg.Compress(rgb, cimg.MakeCompressParams(cimg.Sampling444, 95, 0))
		if err != nil {
			return err
		}
		return os.WriteFile(filename, jpg, 0644)
	}
	return fmt.Errorf("Unsupported image format '%v'. Use .png or .jpg", filepath.Ext(filename))
}
