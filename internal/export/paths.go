package export

import (
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout formats run timestamps as YYYYmmdd_HHMMSS
const TimestampLayout = "20060102_150405"

// OutputPaths are files produced by a single run
type OutputPaths struct {
	Dir       string
	Timestamp string
	CSV       string
	Report    string
	Plot      string
}

// Video returns path of rendered output with given extension ("gif", "mp4").
// For "png" it is a directory holding the frame sequence.
func (op OutputPaths) Video(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "png" {
		return filepath.Join(op.Dir, "output_ts"+op.Timestamp)
	}
	return filepath.Join(op.Dir, "output_ts"+op.Timestamp+"."+ext)
}

// DefaultOutputPaths places outputs into parent directory of the input path.
// Non-empty dir overrides that location.
func DefaultOutputPaths(input string, dir string, now time.Time) OutputPaths {
	if dir == "" {
		dir = filepath.Dir(filepath.Clean(input))
	}
	ts := now.Format(TimestampLayout)
	return OutputPaths{
		Dir:       dir,
		Timestamp: ts,
		CSV:       filepath.Join(dir, "tracks_ts"+ts+".csv"),
		Report:    filepath.Join(dir, "report_ts"+ts+".html"),
		Plot:      filepath.Join(dir, "plot_ts"+ts+".png"),
	}
}
