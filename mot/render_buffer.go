package mot

// RenderBuffer keeps the most recent positions of each track for trail drawing.
// It is derived data: dropping it never affects trajectories.
type RenderBuffer struct {
	trails map[int][]Point
	// Max trail length. Default 100
	maxTrackLen int
}

// NewRenderBufferDefault creates buffer with trail cap of 100 positions
func NewRenderBufferDefault() *RenderBuffer {
	return NewRenderBuffer(100)
}

// NewRenderBuffer creates new instance of RenderBuffer. Non-positive cap is treated as 1.
func NewRenderBuffer(maxTrackLen int) *RenderBuffer {
	if maxTrackLen < 1 {
		maxTrackLen = 1
	}
	return &RenderBuffer{
		trails:      make(map[int][]Point),
		maxTrackLen: maxTrackLen,
	}
}

// Update appends position to the track's trail, keeping only the newest maxTrackLen entries
func (buffer *RenderBuffer) Update(trackID int, position Point) {
	trail := append(buffer.trails[trackID], position)
	if len(trail) > buffer.maxTrackLen {
		// Shift in place so the backing array does not grow without bound
		n := copy(trail, trail[len(trail)-buffer.maxTrackLen:])
		trail = trail[:n]
	}
	buffer.trails[trackID] = trail
}

// Drop removes trail of the track
func (buffer *RenderBuffer) Drop(trackID int) {
	delete(buffer.trails, trackID)
}

// Trail returns track's trail, oldest first. Be careful: this is not copy of trail, but reference to it
func (buffer *RenderBuffer) Trail(trackID int) []Point {
	return buffer.trails[trackID]
}

// Len returns number of tracks having a trail
func (buffer *RenderBuffer) Len() int {
	return len(buffer.trails)
}
