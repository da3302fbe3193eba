package viz

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ClassHistogram draws a bar chart of the number of boxes of each class, and saves
// it to filename (.png, .svg or .pdf).
func ClassHistogram(counts []int, classes []string, title, filename string) error {
	if len(counts) == 0 {
		return errors.New("No classes to plot")
	}
	if len(counts) != len(classes) {
		return fmt.Errorf("Have %v counts, but %v class names", len(counts), len(classes))
	}
	total := 0
	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
		total += c
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%v (%v boxes)", title, humanize.Comma(int64(total)))
	p.Y.Label.Text = "Boxes"

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(classes...)

	width := vg.Length(max(len(counts), 4)) * vg.Centimeter * 1.5
	return p.Save(width, 10*vg.Centimeter, filename)
}
