package dataset

import "github.com/cyclopcam/milvehicles/pkg/nn"

// Transform is applied to every sample after it has been loaded, resized and normalized,
// and before it is packed into channel-first layout. A transform may move boxes, but it
// must return exactly one box for each box it was given.
type Transform func(img *Image, boxes []nn.Box) (*Image, []nn.Box, error)

// HorizontalFlip mirrors the image and its boxes left to right
func HorizontalFlip(img *Image, boxes []nn.Box) (*Image, []nn.Box, error) {
	out := NewImage(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		row := y * img.Width * NumChannels
		for x := 0; x < img.Width; x++ {
			src := row + x*NumChannels
			dst := row + (img.Width-1-x)*NumChannels
			copy(out.Pix[dst:dst+NumChannels], img.Pix[src:src+NumChannels])
		}
	}
	flipped := make([]nn.Box, len(boxes))
	for i, b := range boxes {
		b.XCenter = 1 - b.XCenter
		flipped[i] = b
	}
	return out, flipped, nil
}

// Chain runs transforms in order
func Chain(transforms ...Transform) Transform {
	return func(img *Image, boxes []nn.Box) (*Image, []nn.Box, error) {
		var err error
		for _, t := range transforms {
			img, boxes, err = t(img, boxes)
			if err != nil {
				return nil, nil, err
			}
		}
		return img, boxes, nil
	}
}
