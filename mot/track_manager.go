package mot

import (
	"image/color"
	"sync"

	"github.com/pkg/errors"
)

// TrackPosition is an active track's identity paired with its current position
type TrackPosition struct {
	ID       int
	Position Point
}

// TrackRecord is an exported copy of a track
type TrackRecord struct {
	ID      int
	State   TrackState
	Color   color.RGBA
	Samples []Sample
}

// TrackManager owns every trajectory of a run: identity allocation, the active set,
// the accept/reject protocol and the full history of terminated tracks.
// All methods are serialized by the manager itself.
type TrackManager struct {
	mu sync.RWMutex
	// Arena of every track ever created, index is the track id
	tracks []*Track
	// Active set, ordered by creation
	activeIDs []int
	// Accept/reject thresholds and frame bounds
	policy  AcceptancePolicy
	palette Palette
}

// NewTrackManager creates new instance of TrackManager
func NewTrackManager(policy AcceptancePolicy, palette Palette) *TrackManager {
	if palette == nil {
		palette = NewRandomPalette(0)
	}
	return &TrackManager{
		tracks:    make([]*Track, 0, 64),
		activeIDs: make([]int, 0, 64),
		policy:    policy,
		palette:   palette,
	}
}

// Policy returns acceptance policy in use
func (manager *TrackManager) Policy() AcceptancePolicy {
	return manager.policy
}

// Seed creates one active track per point observed at the given frame.
// Identities are allocated in input order and returned in the same order.
func (manager *TrackManager) Seed(points []Point, frame int) []int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if len(points) == 0 {
		return []int{}
	}
	ids := make([]int, 0, len(points))
	for _, pt := range points {
		id := len(manager.tracks)
		manager.tracks = append(manager.tracks, newTrack(id, frame, pt, manager.palette.Next()))
		manager.activeIDs = append(manager.activeIDs, id)
		ids = append(ids, id)
	}
	return ids
}

// Advance applies motion results computed for the current active set at the given frame.
// Accepted tracks receive a new sample, rejected ones are terminated and returned.
//
// Results must correspond 1:1 to the active set (any order). Otherwise ErrMotionResultMismatch
// is returned and nothing is modified.
func (manager *TrackManager) Advance(results []MotionResult, frame int) ([]int, error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if len(results) != len(manager.activeIDs) {
		return nil, errors.Wrapf(ErrMotionResultMismatch, "got %d results for %d active tracks", len(results), len(manager.activeIDs))
	}
	byID := make(map[int]MotionResult, len(results))
	for _, result := range results {
		if result.TrackID < 0 || result.TrackID >= len(manager.tracks) || !manager.tracks[result.TrackID].IsActive() {
			return nil, errors.Wrapf(ErrMotionResultMismatch, "track %d is not active", result.TrackID)
		}
		if _, ok := byID[result.TrackID]; ok {
			return nil, errors.Wrapf(ErrMotionResultMismatch, "duplicate result for track %d", result.TrackID)
		}
		if last := manager.tracks[result.TrackID].Last().Frame; frame <= last {
			return nil, errors.Wrapf(ErrFrameOrder, "track %d: frame %d, last sample at %d", result.TrackID, frame, last)
		}
		byID[result.TrackID] = result
	}

	terminated := make([]int, 0)
	stillActive := manager.activeIDs[:0]
	for _, id := range manager.activeIDs {
		track := manager.tracks[id]
		result := byID[id]
		if manager.policy.Accept(result) {
			track.append(frame, result.Position)
			stillActive = append(stillActive, id)
			continue
		}
		track.terminate()
		terminated = append(terminated, id)
	}
	manager.activeIDs = stillActive
	return terminated, nil
}

// ExclusionPositions returns current position of every active track
func (manager *TrackManager) ExclusionPositions() []Point {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	positions := make([]Point, len(manager.activeIDs))
	for i, id := range manager.activeIDs {
		positions[i] = manager.tracks[id].Last().Point()
	}
	return positions
}

// ActivePositions returns identity and current position of every active track, in creation order
func (manager *TrackManager) ActivePositions() []TrackPosition {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	positions := make([]TrackPosition, len(manager.activeIDs))
	for i, id := range manager.activeIDs {
		positions[i] = TrackPosition{ID: id, Position: manager.tracks[id].Last().Point()}
	}
	return positions
}

// ActiveIDs returns copy of the active set
func (manager *TrackManager) ActiveIDs() []int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	ids := make([]int, len(manager.activeIDs))
	copy(ids, manager.activeIDs)
	return ids
}

// ActiveCount returns size of the active set
func (manager *TrackManager) ActiveCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.activeIDs)
}

// NextID returns the identity the next created track will get
func (manager *TrackManager) NextID() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.tracks)
}

// Get returns a copy of the track with given identifier
func (manager *TrackManager) Get(id int) (TrackRecord, bool) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	if id < 0 || id >= len(manager.tracks) {
		return TrackRecord{}, false
	}
	return manager.tracks[id].record(), true
}

// Color returns display color of the track. It is assigned once at creation
func (manager *TrackManager) Color(id int) (color.RGBA, bool) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	if id < 0 || id >= len(manager.tracks) {
		return color.RGBA{}, false
	}
	return manager.tracks[id].color, true
}

// Snapshot returns a copy of every track ever created (active and terminated), ordered by id
func (manager *TrackManager) Snapshot() []TrackRecord {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	records := make([]TrackRecord, len(manager.tracks))
	for i, track := range manager.tracks {
		records[i] = track.record()
	}
	return records
}

// Last returns the most recent sample of the record
func (record TrackRecord) Last() Sample {
	return record.Samples[len(record.Samples)-1]
}
