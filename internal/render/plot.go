package render

import (
	"fmt"
	"image/color"

	"github.com/LdDl/fbtrack-go/mot"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Tracks longer than this get legend entry, shorter ones are drawn without
const legendMinSamples = 50

// PlotTrajectories saves overview of every track path in image coordinates (Y axis pointing down).
// Format is chosen by path extension (png, svg, pdf, ...).
func PlotTrajectories(records []mot.TrackRecord, width, height int, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Trajectories (%d tracks)", len(records))
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.X.Min = 0
	p.X.Max = float64(width)
	p.Y.Min = 0
	p.Y.Max = float64(height)
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	for _, record := range records {
		if len(record.Samples) < 2 {
			continue
		}
		pts := make(plotter.XYs, len(record.Samples))
		for i, s := range record.Samples {
			pts[i].X = s.X
			pts[i].Y = s.Y
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "can't plot track %d", record.ID)
		}
		line.Color = color.RGBA{R: record.Color.R, G: record.Color.G, B: record.Color.B, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		if len(record.Samples) >= legendMinSamples {
			p.Legend.Add(fmt.Sprintf("#%d", record.ID), line)
		}
	}

	// Keep frame aspect ratio
	plotWidth := 8 * vg.Inch
	plotHeight := plotWidth
	if width > 0 && height > 0 {
		plotHeight = plotWidth * vg.Length(height) / vg.Length(width)
	}
	if err := p.Save(plotWidth, plotHeight+vg.Inch, path); err != nil {
		return errors.Wrapf(err, "can't save plot '%s'", path)
	}
	return nil
}
