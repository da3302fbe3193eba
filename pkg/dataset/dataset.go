package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyclopcam/milvehicles/pkg/nn"
)

// DefaultExtensions are the image file extensions picked up by New
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// Dataset pairs the images of one directory with YOLO annotation files of the same stem
// in a labels directory. The file list is captured by New, and nothing is modified after
// that, so a Dataset may be read from multiple goroutines.
type Dataset struct {
	imagesDir  string
	labelsDir  string
	size       int
	transform  Transform
	extensions []string
	files      []string // Image filenames, relative to imagesDir, sorted
}

// Sample is one loaded image with its annotations
type Sample struct {
	Path   string    // Image file
	Size   int       // Width and height of the image
	Image  []float32 // 3 x Size x Size, channel-first, values in [0,1]
	Boxes  []nn.Box  // Normalized boxes
	Labels []int64   // Class index of each box
}

type Option func(d *Dataset)

// WithTransform sets a transform that is applied to every sample
func WithTransform(t Transform) Option {
	return func(d *Dataset) {
		d.transform = t
	}
}

// WithExtensions overrides the list of image file extensions
func WithExtensions(ext []string) Option {
	return func(d *Dataset) {
		d.extensions = ext
	}
}

// New enumerates the images inside imagesDir. size is the edge length that every
// image is resized to.
func New(imagesDir, labelsDir string, size int, options ...Option) (*Dataset, error) {
	if size <= 0 {
		return nil, fmt.Errorf("Invalid image size %v", size)
	}
	d := &Dataset{
		imagesDir:  imagesDir,
		labelsDir:  labelsDir,
		size:       size,
		extensions: DefaultExtensions,
	}
	for _, opt := range options {
		opt(d)
	}

	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("Failed to list images: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if d.isImage(e.Name()) {
			d.files = append(d.files, e.Name())
		}
	}
	// ReadDir already sorts by name, but be explicit because the sample order is part of our contract
	sort.Strings(d.files)
	return d, nil
}

func (d *Dataset) isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range d.extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// Len returns the number of images
func (d *Dataset) Len() int {
	return len(d.files)
}

func (d *Dataset) Size() int {
	return d.size
}

// ImagePath returns the full path of image i
func (d *Dataset) ImagePath(i int) string {
	return filepath.Join(d.imagesDir, d.files[i])
}

// LabelPath returns the annotation file of image i, which may not exist
func (d *Dataset) LabelPath(i int) string {
	name := d.files[i]
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(d.labelsDir, stem+".txt")
}

// Labels loads the annotations of image i, without touching the image itself
func (d *Dataset) Labels(i int) (*nn.ImageLabels, error) {
	if err := d.checkIndex(i); err != nil {
		return nil, err
	}
	labels, err := LoadLabels(d.LabelPath(i))
	if err != nil {
		return nil, err
	}
	labels.Image = d.ImagePath(i)
	return labels, nil
}

func (d *Dataset) checkIndex(i int) error {
	if i < 0 || i >= len(d.files) {
		return fmt.Errorf("Index %v out of range [0, %v)", i, len(d.files))
	}
	return nil
}

// Get loads sample i
func (d *Dataset) Get(i int) (*Sample, error) {
	if err := d.checkIndex(i); err != nil {
		return nil, err
	}
	path := d.ImagePath(i)
	img, err := LoadImage(path, d.size)
	if err != nil {
		return nil, err
	}
	labels, err := d.Labels(i)
	if err != nil {
		return nil, err
	}
	boxes, classes := labels.BoxesAndClasses()

	if d.transform != nil {
		nBoxes := len(boxes)
		img, boxes, err = d.transform(img, boxes)
		if err != nil {
			return nil, fmt.Errorf("Transform failed on %v: %w", path, err)
		}
		if len(boxes) != nBoxes {
			return nil, fmt.Errorf("%v: %w (%v -> %v)", path, ErrTransformMismatch, nBoxes, len(boxes))
		}
		if img.Width != d.size || img.Height != d.size {
			return nil, fmt.Errorf("Transform changed image size of %v to %v x %v", path, img.Width, img.Height)
		}
	}

	return &Sample{
		Path:   path,
		Size:   d.size,
		Image:  img.CHW(),
		Boxes:  boxes,
		Labels: classes,
	}, nil
}

// Validate parses every annotation file, and checks that all class indices are
// inside [0, numClasses). The first problem found is returned.
func (d *Dataset) Validate(numClasses int) error {
	for i := range d.files {
		labels, err := d.Labels(i)
		if err != nil {
			return err
		}
		for j, obj := range labels.Objects {
			if obj.Class < 0 || obj.Class >= numClasses {
				return fmt.Errorf("%v: object %v has class %v, but there are only %v classes", d.LabelPath(i), j, obj.Class, numClasses)
			}
		}
	}
	return nil
}

// DuplicateBox is a box that overlaps another box of the same class in the same image
type DuplicateBox struct {
	LabelPath string
	Overlap   nn.Overlap
}

// FindDuplicates scans every annotation file for pairs of same-class boxes with an IoU
// of at least minIoU.
func (d *Dataset) FindDuplicates(minIoU float32) ([]DuplicateBox, error) {
	dups := []DuplicateBox{}
	for i := range d.files {
		labels, err := d.Labels(i)
		if err != nil {
			return nil, err
		}
		boxes, classes := labels.BoxesAndClasses()
		for _, o := range nn.FindOverlaps(boxes, classes, minIoU) {
			dups = append(dups, DuplicateBox{LabelPath: d.LabelPath(i), Overlap: o})
		}
	}
	return dups, nil
}

// CountClasses returns the number of boxes of each class over the whole dataset.
// Classes outside [0, numClasses) are ignored.
func (d *Dataset) CountClasses(numClasses int) ([]int, error) {
	counts := make([]int, numClasses)
	for i := range d.files {
		labels, err := d.Labels(i)
		if err != nil {
			return nil, err
		}
		for _, obj := range labels.Objects {
			if obj.Class >= 0 && obj.Class < numClasses {
				counts[obj.Class]++
			}
		}
	}
	return counts, nil
}
