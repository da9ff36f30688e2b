// Package report summarizes a run and renders it as an HTML page.
package report

import (
	"sort"

	"github.com/LdDl/fbtrack-go/mot"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FrameStat is per-frame bookkeeping collected by the pipeline
type FrameStat struct {
	Frame      int
	Active     int
	Created    int
	Terminated int
}

// Summary describes track length distribution of a run. Length is number of samples.
type Summary struct {
	Tracks       int
	Active       int
	Terminated   int
	Samples      int
	MeanLength   float64
	StdDevLength float64
	MedianLength float64
	P90Length    float64
	MaxLength    float64
}

// Summarize computes Summary of the snapshot
func Summarize(records []mot.TrackRecord) Summary {
	active, terminated := mot.SplitByState(records)
	s := Summary{
		Tracks:     len(records),
		Active:     len(active),
		Terminated: len(terminated),
		Samples:    mot.SampleCount(records),
	}
	lengths := trackLengths(records)
	if len(lengths) == 0 {
		return s
	}
	s.MeanLength, s.StdDevLength = stat.MeanStdDev(lengths, nil)
	if len(lengths) == 1 {
		s.StdDevLength = 0
	}
	s.MedianLength = stat.Quantile(0.5, stat.Empirical, lengths, nil)
	s.P90Length = stat.Quantile(0.9, stat.Empirical, lengths, nil)
	s.MaxLength = floats.Max(lengths)
	return s
}

// trackLengths returns sorted sample counts
func trackLengths(records []mot.TrackRecord) []float64 {
	lengths := make([]float64, len(records))
	for i, record := range records {
		lengths[i] = float64(len(record.Samples))
	}
	sort.Float64s(lengths)
	return lengths
}

// LengthHistogram bins track lengths into equally wide bins.
// It returns lower bin edges and counts.
func LengthHistogram(records []mot.TrackRecord, bins int) ([]float64, []float64) {
	lengths := trackLengths(records)
	if len(lengths) == 0 || bins < 1 {
		return nil, nil
	}
	lo := lengths[0]
	hi := lengths[len(lengths)-1] + 1
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	counts := stat.Histogram(nil, dividers, lengths, nil)
	return dividers[:bins], counts
}
