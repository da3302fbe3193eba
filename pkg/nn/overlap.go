package nn

import (
	flatbush "github.com/bmharper/flatbush-go"
)

// Boxes are indexed on a grid of this many cells per axis
const overlapGrid = 1 << 16

// Overlap is a pair of boxes of the same class that cover nearly the same area.
// In a hand annotated image this is almost always an object that was labelled twice.
type Overlap struct {
	A   int // Index of the first box
	B   int // Index of the second box (B > A)
	IOU float32
}

// FindOverlaps returns every pair of boxes with the same class whose IoU is at least minIoU
func FindOverlaps(boxes []Box, classes []int64, minIoU float32) []Overlap {
	// Spatial index to avoid O(N^2) comparisons
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(boxes))
	for _, b := range boxes {
		r := b.ToRect(overlapGrid, overlapGrid)
		fb.Add(int32(r.X), int32(r.Y), int32(r.X2()), int32(r.Y2()))
	}
	fb.Finish()

	overlaps := []Overlap{}
	for i, b := range boxes {
		r := b.ToRect(overlapGrid, overlapGrid)
		for _, j := range fb.Search(int32(r.X), int32(r.Y), int32(r.X2()), int32(r.Y2())) {
			if j <= i || classes[i] != classes[j] {
				continue
			}
			if iou := b.IOU(boxes[j]); iou >= minIoU {
				overlaps = append(overlaps, Overlap{A: i, B: j, IOU: iou})
			}
		}
	}
	return overlaps
}
