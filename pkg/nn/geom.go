package nn

import (
	"github.com/chewxy/math32"
)

// Box is a bounding box in YOLO layout: center and size, normalized to [0,1]
// relative to the image dimensions.
type Box struct {
	XCenter float32 `json:"xc"`
	YCenter float32 `json:"yc"`
	Width   float32 `json:"w"`
	Height  float32 `json:"h"`
}

// Returns true if all four values are inside [0,1]
func (b Box) Normalized() bool {
	for _, v := range [4]float32{b.XCenter, b.YCenter, b.Width, b.Height} {
		if v < 0 || v > 1 || math32.IsNaN(v) {
			return false
		}
	}
	return true
}

// Corners returns the top-left and bottom-right corners of the box, in pixels
func (b Box) Corners(imgWidth, imgHeight int) (x1, y1, x2, y2 float32) {
	w := float32(imgWidth)
	h := float32(imgHeight)
	x1 = (b.XCenter - b.Width/2) * w
	y1 = (b.YCenter - b.Height/2) * h
	x2 = x1 + b.Width*w
	y2 = y1 + b.Height*h
	return
}

// ToRect denormalizes the box into integer pixel coordinates
func (b Box) ToRect(imgWidth, imgHeight int) Rect {
	x1, y1, x2, y2 := b.Corners(imgWidth, imgHeight)
	left := int(math32.Round(x1))
	top := int(math32.Round(y1))
	return Rect{
		X:      left,
		Y:      top,
		Width:  int(math32.Round(x2)) - left,
		Height: int(math32.Round(y2)) - top,
	}
}

// Array returns the box as [xc, yc, w, h]
func (b Box) Array() [4]float32 {
	return [4]float32{b.XCenter, b.YCenter, b.Width, b.Height}
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) X2() int {
	return r.X + r.Width
}

func (r Rect) Y2() int {
	return r.Y + r.Height
}

func (r Rect) Area() int {
	return r.Width * r.Height
}

// Clip the rectangle so that it lies inside an image of the given size
func (r Rect) Clip(imgWidth, imgHeight int) Rect {
	x1 := max(r.X, 0)
	y1 := max(r.Y, 0)
	x2 := min(r.X2(), imgWidth)
	y2 := min(r.Y2(), imgHeight)
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

func (r Rect) TopLeft() Point {
	return Point{X: r.X, Y: r.Y}
}

// IOU returns the intersection over union of two boxes
func (b Box) IOU(o Box) float32 {
	ax1, ay1, ax2, ay2 := b.Corners(1, 1)
	bx1, by1, bx2, by2 := o.Corners(1, 1)
	iw := math32.Min(ax2, bx2) - math32.Max(ax1, bx1)
	ih := math32.Min(ay2, by2) - math32.Max(ay1, by1)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := b.Width*b.Height + o.Width*o.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
