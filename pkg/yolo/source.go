package yolo

import (
	"fmt"
	"os"
	"strconv"
)

// Source is what the detector runs on: a file, a directory, or a live camera
type Source struct {
	Path   string // Image, video or directory. Empty for a camera.
	Camera int    // Camera index, if Path is empty
}

// ParseSource interprets a command line source argument.
// A number is a camera index, anything else must be an existing file or directory.
func ParseSource(s string) (Source, error) {
	if s == "" {
		return Source{}, fmt.Errorf("No source specified")
	}
	if cam, err := strconv.Atoi(s); err == nil {
		if cam < 0 {
			return Source{}, fmt.Errorf("Invalid camera index %v", cam)
		}
		return Source{Camera: cam}, nil
	}
	if _, err := os.Stat(s); err != nil {
		return Source{}, fmt.Errorf("Source %v: %w", s, err)
	}
	return Source{Path: s}, nil
}

func (s Source) IsCamera() bool {
	return s.Path == ""
}

// String returns the form that the detector CLI expects
func (s Source) String() string {
	if s.IsCamera() {
		return strconv.Itoa(s.Camera)
	}
	return s.Path
}
