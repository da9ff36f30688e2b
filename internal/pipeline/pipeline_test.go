package pipeline

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/LdDl/fbtrack-go/features"
	"github.com/LdDl/fbtrack-go/flow"
	"github.com/LdDl/fbtrack-go/internal/config"
	"github.com/LdDl/fbtrack-go/internal/report"
	"github.com/LdDl/fbtrack-go/mot"
	"github.com/LdDl/fbtrack-go/vision"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource yields prepared frames and ignores ctx
type sliceSource struct {
	frames []image.Image
	next   int
}

func (src *sliceSource) Read(ctx context.Context) (image.Image, bool, error) {
	if src.next >= len(src.frames) {
		return nil, false, nil
	}
	img := src.frames[src.next]
	src.next++
	return img, true, nil
}

func (src *sliceSource) Close() error { return nil }

// uniformFrames encodes frame index into intensity: frame t is filled with 10*t
func uniformFrames(n, w, h int) []image.Image {
	out := make([]image.Image, n)
	for t := range out {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for i := range img.Pix {
			img.Pix[i] = uint8(10 * t)
		}
		out[t] = img
	}
	return out
}

// stepEstimator moves every point by one pixel to the right per frame, reading frame
// indices from intensities of uniformFrames. Going backwards moves points to the left.
type stepEstimator struct{}

func (stepEstimator) Estimate(prev, next *vision.Gray32, points []mot.Point, guesses []mot.Point) ([]flow.Estimate, error) {
	shift := float64(next.Pix[0]-prev.Pix[0]) / 10
	out := make([]flow.Estimate, len(points))
	for i, p := range points {
		out[i] = flow.Estimate{Point: mot.Point{X: p.X + shift, Y: p.Y}, OK: true}
	}
	return out, nil
}

type proposeCall struct {
	excluded bool
	maxCount int
}

// listProposer returns candidates in order, skipping excluded ones
type listProposer struct {
	candidates []mot.Point
	observed   int
	calls      []proposeCall
}

func (lp *listProposer) Observe(frame *vision.Gray32) error {
	lp.observed++
	return nil
}

func (lp *listProposer) Propose(frame *vision.Gray32, exclusion *features.ExclusionMask, maxCount int) ([]mot.Point, error) {
	lp.calls = append(lp.calls, proposeCall{excluded: exclusion != nil, maxCount: maxCount})
	out := []mot.Point{}
	for _, p := range lp.candidates {
		if len(out) >= maxCount {
			break
		}
		ip := p.ImagePoint()
		if !exclusion.Allows(ip.X, ip.Y) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type countingSink struct {
	frames []image.Image
	fail   bool
}

func (cs *countingSink) Write(frame image.Image) error {
	cs.frames = append(cs.frames, frame)
	if cs.fail {
		return errors.New("disk is full")
	}
	return nil
}

func (cs *countingSink) Close() error { return nil }

func scriptedConfig() config.Config {
	cfg := config.Default()
	cfg.Tracking.MaxCorners = 4
	cfg.Tracking.ReseedDivisor = 2
	cfg.Tracking.RedetectInterval = 3
	cfg.Tracking.MinDistance = 4
	return cfg
}

func scriptedProposer() *listProposer {
	return &listProposer{candidates: []mot.Point{
		{X: 5, Y: 5}, {X: 35, Y: 10}, {X: 10, Y: 15}, {X: 20, Y: 5}, {X: 8, Y: 5}, {X: 30, Y: 18},
	}}
}

func TestRunLifecycle(t *testing.T) {
	proposer := scriptedProposer()
	sink := &countingSink{}
	runID := uuid.MustParse("6f1c1f3a-7d47-4a0b-9c1e-3f0c3f7c9a11")
	result, err := Run(context.Background(), Options{
		Config:    scriptedConfig(),
		Source:    &sliceSource{frames: uniformFrames(7, 40, 20)},
		Estimator: stepEstimator{},
		Proposer:  proposer,
		Sink:      sink,
		Palette:   mot.FixedPalette(color.RGBA{R: 255, A: 255}),
		RunID:     runID,
	})
	require.NoError(t, err)
	assert.Equal(t, runID, result.RunID)
	assert.Equal(t, 7, result.Frames)
	assert.Equal(t, 40, result.Width)
	assert.Equal(t, 20, result.Height)

	// Frame 0 takes max_corners, reseed frames take max_corners/2 outside the exclusion discs
	wantCalls := []proposeCall{{false, 4}, {true, 2}, {true, 2}}
	if diff := cmp.Diff(wantCalls, proposer.calls, cmp.AllowUnexported(proposeCall{})); diff != "" {
		t.Errorf("propose calls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 7, proposer.observed)

	wantStats := []report.FrameStat{
		{Frame: 0, Active: 4, Created: 4},
		{Frame: 1, Active: 4},
		{Frame: 2, Active: 4},
		{Frame: 3, Active: 5, Created: 1},
		{Frame: 4, Active: 5},
		{Frame: 5, Active: 4, Terminated: 1},
		{Frame: 6, Active: 6, Created: 2},
	}
	if diff := cmp.Diff(wantStats, result.Stats); diff != "" {
		t.Errorf("frame stats mismatch (-want +got):\n%s", diff)
	}

	snapshot := result.Snapshot
	require.Len(t, snapshot, 7)
	for i, record := range snapshot {
		assert.Equal(t, i, record.ID)
	}
	// Track 1 leaves the frame at x=40 on frame 5
	assert.Equal(t, mot.TrackTerminated, snapshot[1].State)
	assert.Len(t, snapshot[1].Samples, 5)
	assert.Equal(t, mot.Sample{Frame: 4, X: 39, Y: 10}, snapshot[1].Last())

	assert.Equal(t, mot.TrackActive, snapshot[0].State)
	assert.Len(t, snapshot[0].Samples, 7)
	assert.Equal(t, mot.Sample{Frame: 6, X: 11, Y: 5}, snapshot[0].Last())

	// Only the candidate far from every active track survives the exclusion on frame 3
	assert.Equal(t, mot.Sample{Frame: 3, X: 30, Y: 18}, snapshot[4].Samples[0])
	assert.Len(t, snapshot[4].Samples, 4)
	assert.Equal(t, mot.Sample{Frame: 6, X: 5, Y: 5}, snapshot[5].Samples[0])
	assert.Equal(t, mot.Sample{Frame: 6, X: 35, Y: 10}, snapshot[6].Samples[0])

	// Frame 0 is not rendered
	require.Len(t, sink.frames, 6)
	assert.Equal(t, image.Rect(0, 0, 40, 20), sink.frames[0].Bounds())
}

func TestRunWithKalmanPrior(t *testing.T) {
	cfg := scriptedConfig()
	cfg.Flow.KalmanPrior = true
	result, err := Run(context.Background(), Options{
		Config:    cfg,
		Source:    &sliceSource{frames: uniformFrames(7, 40, 20)},
		Estimator: stepEstimator{},
		Proposer:  scriptedProposer(),
	})
	require.NoError(t, err)
	require.Len(t, result.Snapshot, 7)
	assert.Equal(t, mot.Sample{Frame: 6, X: 11, Y: 5}, result.Snapshot[0].Last())
	assert.NotEqual(t, uuid.Nil, result.RunID)
}

func TestRunNoFirstFrame(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Config:    config.Default(),
		Source:    &sliceSource{},
		Estimator: stepEstimator{},
		Proposer:  scriptedProposer(),
	})
	assert.ErrorIs(t, err, ErrNoFirstFrame)
}

// failingSource fails every read with err
type failingSource struct {
	err error
}

func (src failingSource) Read(ctx context.Context) (image.Image, bool, error) {
	return nil, false, src.err
}

func (src failingSource) Close() error { return nil }

func TestRunFirstFrameErrorKeepsCause(t *testing.T) {
	errCorrupted := errors.New("corrupted container")
	for _, cause := range []error{context.Canceled, errCorrupted} {
		_, err := Run(context.Background(), Options{
			Config:    config.Default(),
			Source:    failingSource{err: cause},
			Estimator: stepEstimator{},
			Proposer:  scriptedProposer(),
		})
		assert.ErrorIs(t, err, ErrNoFirstFrame)
		assert.ErrorIs(t, err, cause)
	}
}

func TestRunMissingComponents(t *testing.T) {
	_, err := Run(context.Background(), Options{Config: config.Default()})
	assert.Error(t, err)
}

func TestRunFrameSizeMismatch(t *testing.T) {
	frames := uniformFrames(2, 40, 20)
	frames = append(frames, image.NewGray(image.Rect(0, 0, 30, 20)))
	_, err := Run(context.Background(), Options{
		Config:    scriptedConfig(),
		Source:    &sliceSource{frames: frames},
		Estimator: stepEstimator{},
		Proposer:  scriptedProposer(),
	})
	assert.ErrorIs(t, err, ErrFrameSize)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := Run(ctx, Options{
		Config:    scriptedConfig(),
		Source:    &sliceSource{frames: uniformFrames(5, 40, 20)},
		Estimator: stepEstimator{},
		Proposer:  scriptedProposer(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Frames)
	require.Len(t, result.Snapshot, 4)
	for _, record := range result.Snapshot {
		assert.Equal(t, mot.TrackActive, record.State)
		assert.Len(t, record.Samples, 1)
	}
}

func TestRunSinkFailureDisablesRendering(t *testing.T) {
	sink := &countingSink{fail: true}
	result, err := Run(context.Background(), Options{
		Config:    scriptedConfig(),
		Source:    &sliceSource{frames: uniformFrames(4, 40, 20)},
		Estimator: stepEstimator{},
		Proposer:  scriptedProposer(),
		Sink:      sink,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Frames)
	assert.Len(t, sink.frames, 1)
}

// brokenEstimator drops the last estimate
type brokenEstimator struct{}

func (brokenEstimator) Estimate(prev, next *vision.Gray32, points []mot.Point, guesses []mot.Point) ([]flow.Estimate, error) {
	if len(points) == 0 {
		return nil, nil
	}
	return make([]flow.Estimate, len(points)-1), nil
}

func TestRunEstimatorContractViolation(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Config:    scriptedConfig(),
		Source:    &sliceSource{frames: uniformFrames(3, 40, 20)},
		Estimator: brokenEstimator{},
		Proposer:  scriptedProposer(),
	})
	assert.Error(t, err)
}

func texture(x, y float64) uint8 {
	return uint8(128 + 40*math.Sin(x/5) + 40*math.Cos(y/7) + 20*math.Sin((x+y)/4))
}

// panningFrames renders the texture moving one pixel to the right per frame
func panningFrames(n, w, h int) []image.Image {
	out := make([]image.Image, n)
	for t := range out {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Pix[img.PixOffset(x, y)] = texture(float64(x-t), float64(y))
			}
		}
		out[t] = img
	}
	return out
}

func TestRunNativeComponents(t *testing.T) {
	cfg := config.Default()
	cfg.Tracking.MaxCorners = 8
	cfg.Flow.WinSize = 15
	cfg.Flow.MaxLevel = 1
	cfg.Flow.KalmanPrior = true
	const w, h = 96, 72
	const n = 5
	result, err := Run(context.Background(), Options{
		Config:    cfg,
		Source:    &sliceSource{frames: panningFrames(n, w, h)},
		Estimator: flow.NewLucasKanade(cfg.Flow.WinSize, cfg.Flow.MaxLevel, cfg.Flow.MaxIter, cfg.Flow.Epsilon, cfg.Flow.MinEigThreshold),
		Proposer: features.NewMotionProposer(
			features.NewBackgroundModel(cfg.Features.BgHistory, cfg.Features.BgVarThreshold, cfg.Features.MedianKSize),
			features.CornerDetector{QualityLevel: cfg.Features.QualityLevel, MinDistance: cfg.Features.MinDistance, BlockSize: cfg.Features.BlockSize},
		),
	})
	require.NoError(t, err)
	assert.Equal(t, n, result.Frames)
	require.NotEmpty(t, result.Snapshot)

	checked := 0
	for _, record := range result.Snapshot {
		first := record.Samples[0]
		if record.State != mot.TrackActive || first.X < 12 || first.X > w-12 || first.Y < 12 || first.Y > h-12 {
			continue
		}
		last := record.Last()
		assert.Equal(t, n-1, last.Frame)
		assert.InDelta(t, first.X+float64(n-1), last.X, 0.5)
		assert.InDelta(t, first.Y, last.Y, 0.5)
		checked++
	}
	assert.Greater(t, checked, 0)
}
