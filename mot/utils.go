package mot

// SplitByState partitions records into active and terminated ones, preserving order
func SplitByState(records []TrackRecord) (active, terminated []TrackRecord) {
	for _, record := range records {
		if record.State == TrackActive {
			active = append(active, record)
		} else {
			terminated = append(terminated, record)
		}
	}
	return active, terminated
}

// SampleCount returns total number of samples across records
func SampleCount(records []TrackRecord) int {
	total := 0
	for _, record := range records {
		total += len(record.Samples)
	}
	return total
}
