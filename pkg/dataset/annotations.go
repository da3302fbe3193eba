package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cyclopcam/milvehicles/pkg/nn"
)

// Each annotation line is "class x_center y_center width height"
const fieldsPerLine = 5

// LoadLabels reads a YOLO annotation file.
// A missing file is not an error: the image simply has no objects.
func LoadLabels(path string) (*nn.ImageLabels, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &nn.ImageLabels{}, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLabels(f, path)
}

// ParseLabels parses annotation lines from r. path is only used for error messages.
// Blank lines are ignored.
func ParseLabels(r io.Reader, path string) (*nn.ImageLabels, error) {
	labels := &nn.ImageLabels{}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ann, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Path: path, Line: lineNum, Text: line, Err: err}
		}
		labels.Objects = append(labels.Objects, ann)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("Error reading %v: %w", path, err)
	}
	return labels, nil
}

func parseLine(line string) (nn.Annotation, error) {
	fields := strings.Fields(line)
	if len(fields) != fieldsPerLine {
		return nn.Annotation{}, fmt.Errorf("expected %v fields, got %v", fieldsPerLine, len(fields))
	}
	class, err := strconv.Atoi(fields[0])
	if err != nil {
		return nn.Annotation{}, fmt.Errorf("class index: %w", err)
	}
	var geom [4]float32
	for i := range geom {
		v, err := strconv.ParseFloat(fields[i+1], 32)
		if err != nil {
			return nn.Annotation{}, fmt.Errorf("box value %v: %w", i+1, err)
		}
		geom[i] = float32(v)
	}
	return nn.Annotation{
		Class: class,
		Box: nn.Box{
			XCenter: geom[0],
			YCenter: geom[1],
			Width:   geom[2],
			Height:  geom[3],
		},
	}, nil
}
