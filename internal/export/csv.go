// Package export writes the trajectory table produced by a run.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/LdDl/fbtrack-go/mot"
	"github.com/pkg/errors"
)

// Header is the first CSV row
var Header = []string{"track_id", "t", "x", "y"}

// WriteCSV writes every sample of every track, tracks ordered by id and samples by frame.
// Coordinates have three decimals.
func WriteCSV(w io.Writer, records []mot.TrackRecord) error {
	sorted := make([]mot.TrackRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.Wrap(err, "can't write header")
	}
	row := make([]string, 4)
	for _, record := range sorted {
		id := strconv.Itoa(record.ID)
		for _, s := range record.Samples {
			row[0] = id
			row[1] = strconv.Itoa(s.Frame)
			row[2] = strconv.FormatFloat(s.X, 'f', 3, 64)
			row[3] = strconv.FormatFloat(s.Y, 'f', 3, 64)
			if err := cw.Write(row); err != nil {
				return errors.Wrapf(err, "can't write sample of track %d", record.ID)
			}
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "can't flush csv")
}

// SaveCSV writes CSV into file at path
func SaveCSV(path string, records []mot.TrackRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "can't create '%s'", path)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
