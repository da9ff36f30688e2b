package features

import (
	"math"
	"testing"

	"github.com/LdDl/fbtrack-go/mot"
	"github.com/LdDl/fbtrack-go/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameWithSquare(w, h, x0, y0, side int, bg, fg float32) *vision.Gray32 {
	g := vision.NewGray32(w, h)
	for i := range g.Pix {
		g.Pix[i] = bg
	}
	for y := y0; y < y0+side; y++ {
		for x := x0; x < x0+side; x++ {
			g.Set(x, y, fg)
		}
	}
	return g
}

func nearAny(p mot.Point, targets []mot.Point, tol float64) bool {
	for _, q := range targets {
		if math.Abs(p.X-q.X) <= tol && math.Abs(p.Y-q.Y) <= tol {
			return true
		}
	}
	return false
}

func TestCornerDetectorSquare(t *testing.T) {
	frame := frameWithSquare(80, 80, 30, 30, 20, 0, 255)
	corners := NewCornerDetectorDefault().Detect(frame, nil, 10)
	require.Len(t, corners, 4)
	expected := []mot.Point{{X: 30, Y: 30}, {X: 49, Y: 30}, {X: 30, Y: 49}, {X: 49, Y: 49}}
	for _, c := range corners {
		assert.Truef(t, nearAny(c, expected, 3), "corner %v is not near square corner", c)
	}
	for i := range corners {
		for j := i + 1; j < len(corners); j++ {
			assert.GreaterOrEqual(t, mot.Distance(corners[i], corners[j]), 10.0)
		}
	}
}

func TestCornerDetectorMaxCount(t *testing.T) {
	frame := frameWithSquare(80, 80, 30, 30, 20, 0, 255)
	detector := NewCornerDetectorDefault()
	assert.Len(t, detector.Detect(frame, nil, 2), 2)
	assert.Empty(t, detector.Detect(frame, nil, 0))
}

func TestCornerDetectorFlat(t *testing.T) {
	frame := frameWithSquare(40, 40, 0, 0, 0, 128, 128)
	assert.Empty(t, NewCornerDetectorDefault().Detect(frame, nil, 10))
}

func TestExclusionMask(t *testing.T) {
	mask := NewExclusionMask(100, 100, []mot.Point{{X: 50.7, Y: 50.2}}, 12)
	assert.False(t, mask.Allows(50, 50))
	assert.False(t, mask.Allows(62, 50))
	assert.True(t, mask.Allows(63, 50))
	assert.True(t, mask.Allows(59, 59))
	assert.False(t, mask.Allows(-1, 0))
	assert.Equal(t, 12, mask.Radius())
	var none *ExclusionMask
	assert.True(t, none.Allows(1, 1))
}

func TestExclusionMaskRestrictsCorners(t *testing.T) {
	frame := frameWithSquare(80, 80, 30, 30, 20, 0, 255)
	detector := NewCornerDetectorDefault()
	// Hide the two top corners
	mask := NewExclusionMask(80, 80, []mot.Point{{X: 30, Y: 30}, {X: 49, Y: 30}}, 6)
	corners := detector.Detect(frame, mask.Intersect(nil), 10)
	require.Len(t, corners, 2)
	for _, c := range corners {
		assert.Greater(t, c.Y, 40.0)
	}
}

func TestBackgroundModel(t *testing.T) {
	model := NewBackgroundModelDefault()
	static := frameWithSquare(64, 64, 10, 10, 10, 100, 200)
	first, err := model.Apply(static)
	require.NoError(t, err)
	for _, v := range first.Pix {
		require.Equal(t, uint8(255), v)
	}
	for i := 0; i < 5; i++ {
		_, err = model.Apply(static)
		require.NoError(t, err)
	}
	moved := frameWithSquare(64, 64, 40, 40, 10, 100, 200)
	mask, err := model.Apply(moved)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), mask.GrayAt(45, 45).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(2, 60).Y)
	assert.Equal(t, 7, model.Observed())

	_, err = model.Apply(vision.NewGray32(32, 32))
	assert.Error(t, err)
}

func TestMotionProposerUsesForegroundAndExclusion(t *testing.T) {
	proposer := NewMotionProposerDefault()
	static := frameWithSquare(90, 90, 10, 10, 16, 40, 220)
	// Everything is foreground on the very first frame
	seeds, err := proposer.Propose(static, nil, 30)
	require.NoError(t, err)
	require.Len(t, seeds, 4)
	for i := 0; i < 10; i++ {
		require.NoError(t, proposer.Observe(static))
	}
	// Static square became background, only the textured newcomer is proposed
	scene := frameWithSquare(90, 90, 10, 10, 16, 40, 220)
	for y := 50; y < 74; y++ {
		for x := 50; x < 74; x++ {
			v := float32(0)
			if ((x-50)/4+(y-50)/4)%2 == 0 {
				v = 220
			}
			scene.Set(x, y, v)
		}
	}
	require.NoError(t, proposer.Observe(scene))
	points, err := proposer.Propose(scene, nil, 30)
	require.NoError(t, err)
	require.NotEmpty(t, points)
	for _, p := range points {
		assert.Greater(t, p.X, 45.0)
		assert.Greater(t, p.Y, 45.0)
	}
	exclusion := NewExclusionMask(90, 90, points, 12)
	again, err := proposer.Propose(scene, exclusion, 30)
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = proposer.Propose(scene, NewExclusionMask(10, 10, nil, 12), 30)
	assert.Error(t, err)
}
