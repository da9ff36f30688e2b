package mot

import "image/color"

// TrackState is the lifecycle state of a track
type TrackState uint8

const (
	// TrackActive tracks are advanced every frame
	TrackActive TrackState = iota
	// TrackTerminated tracks were rejected once and never receive samples again
	TrackTerminated
)

func (s TrackState) String() string {
	switch s {
	case TrackActive:
		return "active"
	case TrackTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Sample is a single accepted observation of a track
type Sample struct {
	Frame int
	X     float64
	Y     float64
}

// Point returns sample's position
func (s Sample) Point() Point {
	return Point{X: s.X, Y: s.Y}
}

// Track is a persistent point identity with its ordered sample history.
// Samples are appended only while the track is active, frame indices strictly increase.
type Track struct {
	id      int
	samples []Sample
	state   TrackState
	color   color.RGBA
}

func newTrack(id int, frame int, position Point, c color.RGBA) *Track {
	track := Track{
		id:      id,
		samples: make([]Sample, 0, 16),
		state:   TrackActive,
		color:   c,
	}
	track.samples = append(track.samples, Sample{Frame: frame, X: position.X, Y: position.Y})
	return &track
}

// IsActive reports whether the track still accepts samples
func (track *Track) IsActive() bool {
	return track.state == TrackActive
}

// Last returns the most recent sample
func (track *Track) Last() Sample {
	return track.samples[len(track.samples)-1]
}

// GetSamples returns a copy of track's sample history
func (track *Track) GetSamples() []Sample {
	out := make([]Sample, len(track.samples))
	copy(out, track.samples)
	return out
}

// append adds sample to the history. Caller guarantees the track is active and the frame is newer.
func (track *Track) append(frame int, position Point) {
	track.samples = append(track.samples, Sample{Frame: frame, X: position.X, Y: position.Y})
}

func (track *Track) record() TrackRecord {
	return TrackRecord{
		ID:      track.id,
		State:   track.state,
		Color:   track.color,
		Samples: track.GetSamples(),
	}
}

func (track *Track) terminate() {
	track.state = TrackTerminated
}
