package dataset

import (
	"fmt"

	"github.com/cyclopcam/milvehicles/pkg/nn"
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Batch is a set of samples. Images are stacked into one dense buffer, but boxes and
// labels stay per-image, because each image has a different number of objects.
type Batch struct {
	N        int       // Number of samples
	Channels int       // Always NumChannels for a non-empty batch
	Size     int       // Image width and height
	Images   []float32 // N x Channels x Size x Size. nil for an empty batch.
	Boxes    [][]nn.Box
	Labels   [][]int64
	Paths    []string
}

// Collate assembles samples into a Batch, preserving their order.
// Box and label lists are not padded or truncated.
// An empty input produces an empty Batch with nil Images.
func Collate(samples []*Sample) (*Batch, error) {
	b := &Batch{
		N:      len(samples),
		Boxes:  make([][]nn.Box, len(samples)),
		Labels: make([][]int64, len(samples)),
		Paths:  make([]string, len(samples)),
	}
	if len(samples) == 0 {
		return b, nil
	}

	b.Channels = NumChannels
	b.Size = samples[0].Size
	stride := b.ImageStride()
	b.Images = make([]float32, b.N*stride)
	for i, s := range samples {
		if s.Size != b.Size || len(s.Image) != stride {
			return nil, fmt.Errorf("Sample %v (%v) has size %v, but the batch size is %v", i, s.Path, s.Size, b.Size)
		}
		if len(s.Boxes) != len(s.Labels) {
			return nil, fmt.Errorf("Sample %v (%v) has %v boxes but %v labels", i, s.Path, len(s.Boxes), len(s.Labels))
		}
		copy(b.Images[i*stride:], s.Image)
		b.Boxes[i] = s.Boxes
		b.Labels[i] = s.Labels
		b.Paths[i] = s.Path
	}
	return b, nil
}

// ImageStride is the number of floats per image
func (b *Batch) ImageStride() int {
	return b.Channels * b.Size * b.Size
}

// Image returns the channel-first pixels of image i
func (b *Batch) Image(i int) []float32 {
	stride := b.ImageStride()
	return b.Images[i*stride : (i+1)*stride]
}

// Shape of the stacked image buffer
func (b *Batch) Shape() []int {
	if b.N == 0 {
		return nil
	}
	return []int{b.N, b.Channels, b.Size, b.Size}
}

// ImagesTensor returns the image stack as a [N, C, Size, Size] float32 tensor, or nil for an empty batch
func (b *Batch) ImagesTensor() *tensors.Tensor {
	if b.N == 0 {
		return nil
	}
	return tensors.FromFlatDataAndDimensions(b.Images, b.Shape()...)
}

// TargetTensors returns, per image, a [K,4] float32 box tensor and a [K] int64 label tensor
func (b *Batch) TargetTensors() (boxes []*tensors.Tensor, labels []*tensors.Tensor) {
	boxes = make([]*tensors.Tensor, b.N)
	labels = make([]*tensors.Tensor, b.N)
	for i := 0; i < b.N; i++ {
		k := len(b.Boxes[i])
		flat := make([]float32, 0, k*4)
		for _, box := range b.Boxes[i] {
			arr := box.Array()
			flat = append(flat, arr[:]...)
		}
		boxes[i] = tensors.FromFlatDataAndDimensions(flat, k, 4)
		labels[i] = tensors.FromFlatDataAndDimensions(append([]int64{}, b.Labels[i]...), k)
	}
	return
}

// NumObjects is the total number of boxes in the batch
func (b *Batch) NumObjects() int {
	n := 0
	for _, boxes := range b.Boxes {
		n += len(boxes)
	}
	return n
}
