package nn

// ImageLabels are the ground truth objects of a single image
type ImageLabels struct {
	Image   string       `json:"image"`
	Objects []Annotation `json:"objects"`
}

// Annotation is one line of a YOLO label file
type Annotation struct {
	Class int `json:"class"`
	Box   Box `json:"box"`
}

// Split the annotations into two index-aligned slices, as the training code wants them
func (l *ImageLabels) BoxesAndClasses() ([]Box, []int64) {
	boxes := make([]Box, 0, len(l.Objects))
	classes := make([]int64, 0, len(l.Objects))
	for _, obj := range l.Objects {
		boxes = append(boxes, obj.Box)
		classes = append(classes, int64(obj.Class))
	}
	return boxes, classes
}
