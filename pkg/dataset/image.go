package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/bmharper/cimg/v2"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// Decoders by sniffed content type. The file extension is not trusted.
var decoders = map[string]func(r io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/bmp":  bmp.Decode,
	"image/webp": webp.Decode,
}

// Image is an RGB image with float32 channels in [0,1], stored row by row
// with interleaved channels (HWC). This is the form that a Transform sees.
type Image struct {
	Width  int
	Height int
	Pix    []float32 // len = Width * Height * 3
}

const NumChannels = 3

func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*NumChannels),
	}
}

// At returns the RGB value at x,y
func (img *Image) At(x, y int) (r, g, b float32) {
	i := (y*img.Width + x) * NumChannels
	return img.Pix[i], img.Pix[i+1], img.Pix[i+2]
}

// CHW returns the pixels in planar channel-first layout
func (img *Image) CHW() []float32 {
	plane := img.Width * img.Height
	out := make([]float32, plane*NumChannels)
	for i := 0; i < plane; i++ {
		out[i] = img.Pix[i*3]
		out[plane+i] = img.Pix[i*3+1]
		out[2*plane+i] = img.Pix[i*3+2]
	}
	return out
}

// ReadRGB reads and decodes an image file, and returns it as packed 24-bit RGB.
// Any failure is reported as a *DecodeError.
func ReadRGB(path string) (*cimg.Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if len(raw) == 0 {
		return nil, &DecodeError{Path: path, Err: errors.New("file is empty")}
	}
	mime := mimetype.Detect(raw)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("content is %v, not an image", mime.String())}
	}
	decode := decoders[mime.String()]
	if decode == nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("unsupported image type %v", mime.String())}
	}
	src, err := decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return toRGB(src), nil
}

// Convert any image to packed RGB. Alpha is dropped, which leaves
// transparent pixels composited onto black.
func toRGB(src image.Image) *cimg.Image {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	dst := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	switch s := src.(type) {
	case *image.RGBA:
		for y := 0; y < height; y++ {
			srcRow := s.Pix[y*s.Stride:]
			dstRow := dst.Pixels[y*dst.Stride:]
			for x := 0; x < width; x++ {
				dstRow[x*3] = srcRow[x*4]
				dstRow[x*3+1] = srcRow[x*4+1]
				dstRow[x*3+2] = srcRow[x*4+2]
			}
		}
	default:
		for y := 0; y < height; y++ {
			dstRow := dst.Pixels[y*dst.Stride:]
			for x := 0; x < width; x++ {
				r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				dstRow[x*3] = uint8(r >> 8)
				dstRow[x*3+1] = uint8(g >> 8)
				dstRow[x*3+2] = uint8(b >> 8)
			}
		}
	}
	return dst
}

// Resize to exactly width x height, ignoring the aspect ratio
func resizeRGB(src *cimg.Image, width, height int) (*cimg.Image, error) {
	if src.Width <= 0 || src.Height <= 0 {
		return nil, fmt.Errorf("cannot resize a %vx%v image", src.Width, src.Height)
	}
	if src.Width == width && src.Height == height {
		return src, nil
	}
	params := cimg.ResizeParams{CheapSRGBFilter: true}
	if width < src.Width || height < src.Height {
		// Box filter for downsampling, in case of a massive ratio
		params.Filter = cimg.ResizeFilterBox
	} else {
		// Triangle is bilinear on upsampling
		params.Filter = cimg.ResizeFilterTriangle
	}
	dst := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	if err := cimg.Resize(src, dst, &params); err != nil {
		return nil, err
	}
	return dst, nil
}

// Scale 8-bit RGB into a float Image with values in [0,1]
func normalize(src *cimg.Image) *Image {
	img := NewImage(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		srcRow := src.Pixels[y*src.Stride : y*src.Stride+src.Width*3]
		dstRow := img.Pix[y*src.Width*3:]
		for i, v := range srcRow {
			dstRow[i] = float32(v) / 255
		}
	}
	return img
}

// LoadImage reads an image file, resizes it to size x size, and scales it to [0,1]
func LoadImage(path string, size int) (*Image, error) {
	rgb, err := ReadRGB(path)
	if err != nil {
		return nil, err
	}
	resized, err := resizeRGB(rgb, size, size)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return normalize(resized), nil
}

// ToRGB converts the float image back to packed 8-bit RGB, clamping to [0,1]
func (img *Image) ToRGB() *cimg.Image {
	dst := cimg.NewImage(img.Width, img.Height, cimg.PixelFormatRGB)
	for y := 0; y < img.Height; y++ {
		srcRow := img.Pix[y*img.Width*3 : (y+1)*img.Width*3]
		dstRow := dst.Pixels[y*dst.Stride:]
		for i, v := range srcRow {
			dstRow[i] = uint8(min(max(v, 0), 1)*255 + 0.5)
		}
	}
	return dst
}

// ImageFromCHW builds an Image from a channel-first plane set, such as one element of a Batch
func ImageFromCHW(chw []float32, width, height int) *Image {
	img := NewImage(width, height)
	plane := width * height
	for i := 0; i < plane; i++ {
		img.Pix[i*3] = chw[i]
		img.Pix[i*3+1] = chw[plane+i]
		img.Pix[i*3+2] = chw[2*plane+i]
	}
	return img
}
