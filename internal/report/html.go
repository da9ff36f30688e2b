package report

import (
	"fmt"
	"io"
	"os"

	"github.com/LdDl/fbtrack-go/mot"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

const histogramBins = 20

// Write renders echarts page with track counts per frame, track births and deaths,
// track length histogram and the places where tracks were lost
func Write(w io.Writer, runID string, stats []FrameStat, records []mot.TrackRecord) error {
	summary := Summarize(records)
	subtitle := fmt.Sprintf("run=%s tracks=%d mean_len=%.1f median_len=%.1f p90_len=%.1f",
		runID, summary.Tracks, summary.MeanLength, summary.MedianLength, summary.P90Length)

	page := components.NewPage()
	page.SetPageTitle("fbtrack run " + runID)
	page.AddCharts(
		activeChart(stats, subtitle),
		churnChart(stats),
		lengthChart(records),
		lossChart(records),
	)
	if err := page.Render(w); err != nil {
		return errors.Wrap(err, "can't render report")
	}
	return nil
}

// Save writes the report into file at path
func Save(path string, runID string, stats []FrameStat, records []mot.TrackRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "can't create '%s'", path)
	}
	if err := Write(f, runID, stats, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func frameAxis(stats []FrameStat) []int {
	x := make([]int, len(stats))
	for i, s := range stats {
		x[i] = s.Frame
	}
	return x
}

func activeChart(stats []FrameStat, subtitle string) *charts.Line {
	data := make([]opts.LineData, len(stats))
	for i, s := range stats {
		data[i] = opts.LineData{Value: s.Active}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Active tracks", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)
	line.SetXAxis(frameAxis(stats)).AddSeries("active", data)
	return line
}

func churnChart(stats []FrameStat) *charts.Bar {
	created := make([]opts.BarData, len(stats))
	terminated := make([]opts.BarData, len(stats))
	for i, s := range stats {
		created[i] = opts.BarData{Value: s.Created}
		terminated[i] = opts.BarData{Value: s.Terminated}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Created and terminated tracks"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)
	bar.SetXAxis(frameAxis(stats)).
		AddSeries("created", created).
		AddSeries("terminated", terminated)
	return bar
}

func lengthChart(records []mot.TrackRecord) *charts.Bar {
	edges, counts := LengthHistogram(records, histogramBins)
	labels := make([]string, len(edges))
	data := make([]opts.BarData, len(counts))
	for i := range edges {
		labels[i] = fmt.Sprintf("%.0f", edges[i])
		data[i] = opts.BarData{Value: counts[i]}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Track length histogram", Subtitle: "samples per track"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("tracks", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func lossChart(records []mot.TrackRecord) *charts.Scatter {
	_, terminated := mot.SplitByState(records)
	data := make([]opts.ScatterData, 0, len(terminated))
	for _, record := range terminated {
		last := record.Last()
		data = append(data, opts.ScatterData{Value: []interface{}{last.X, last.Y, record.ID}})
	}
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Where tracks were lost", Subtitle: "last accepted position of terminated tracks"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (px)", NameLocation: "middle", NameGap: 30, Inverse: opts.Bool(true)}),
	)
	scatter.AddSeries("lost", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}
