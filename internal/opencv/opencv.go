//go:build opencv

package opencv

import (
	"context"
	"image"
	"math"

	"github.com/LdDl/fbtrack-go/features"
	"github.com/LdDl/fbtrack-go/flow"
	"github.com/LdDl/fbtrack-go/mot"
	"github.com/LdDl/fbtrack-go/vision"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Available reports whether the backend is compiled in
const Available = true

type videoSource struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// OpenVideo opens video file for sequential reading
func OpenVideo(path string) (FrameReader, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "can't open capture")
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Errorf("capture '%s' is not opened", path)
	}
	return &videoSource{
		capture: capture,
		frame:   gocv.NewMat(),
	}, nil
}

func (vs *videoSource) Read(ctx context.Context) (image.Image, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if ok := vs.capture.Read(&vs.frame); !ok || vs.frame.Empty() {
		return nil, false, nil
	}
	img, err := vs.frame.ToImage()
	if err != nil {
		return nil, false, errors.Wrap(err, "can't convert frame")
	}
	return img, true, nil
}

func (vs *videoSource) Close() error {
	vs.frame.Close()
	return vs.capture.Close()
}

func grayMat(g *vision.Gray32) (gocv.Mat, error) {
	return gocv.NewMatFromBytes(g.Height, g.Width, gocv.MatTypeCV8U, g.ToGray().Pix)
}

func pointsMat(points []mot.Point) gocv.Mat {
	m := gocv.NewMatWithSize(len(points), 2, gocv.MatTypeCV32F)
	for i, p := range points {
		m.SetFloatAt(i, 0, float32(p.X))
		m.SetFloatAt(i, 1, float32(p.Y))
	}
	return m
}

type pyrLK struct {
	winSize         int
	maxLevel        int
	criteria        gocv.TermCriteria
	minEigThreshold float64
}

// NewEstimator returns flow.Estimator backed by cv::calcOpticalFlowPyrLK
func NewEstimator(winSize, maxLevel, maxIter int, epsilon, minEigThreshold float64) (flow.Estimator, error) {
	return &pyrLK{
		winSize:         winSize,
		maxLevel:        maxLevel,
		criteria:        gocv.NewTermCriteria(gocv.Count|gocv.EPS, maxIter, epsilon),
		minEigThreshold: minEigThreshold,
	}, nil
}

func (lk *pyrLK) Estimate(prev, next *vision.Gray32, points []mot.Point, guesses []mot.Point) ([]flow.Estimate, error) {
	estimates := make([]flow.Estimate, len(points))
	if len(points) == 0 {
		return estimates, nil
	}
	if guesses == nil {
		guesses = points
	}
	if len(guesses) != len(points) {
		return nil, errors.Errorf("got %d guesses for %d points", len(guesses), len(points))
	}
	prevMat, err := grayMat(prev)
	if err != nil {
		return nil, errors.Wrap(err, "can't convert previous frame")
	}
	defer prevMat.Close()
	nextMat, err := grayMat(next)
	if err != nil {
		return nil, errors.Wrap(err, "can't convert next frame")
	}
	defer nextMat.Close()

	prevPts := pointsMat(points)
	defer prevPts.Close()
	// Initial flow is always supplied, guesses default to the points themselves
	nextPts := pointsMat(guesses)
	defer nextPts.Close()
	status := gocv.NewMat()
	defer status.Close()
	errMat := gocv.NewMat()
	defer errMat.Close()

	gocv.CalcOpticalFlowPyrLKWithParams(prevMat, nextMat, prevPts, nextPts, &status, &errMat,
		image.Pt(lk.winSize, lk.winSize), lk.maxLevel, lk.criteria, 4, lk.minEigThreshold)

	if status.Rows() != len(points) || nextPts.Rows() != len(points) {
		return nil, errors.Errorf("optical flow returned %d statuses for %d points", status.Rows(), len(points))
	}
	for i := range points {
		e := flow.Estimate{
			Point: mot.NewPoint(float64(nextPts.GetFloatAt(i, 0)), float64(nextPts.GetFloatAt(i, 1))),
			OK:    status.GetUCharAt(i, 0) == 1,
			Err:   math.Inf(1),
		}
		if errMat.Rows() == len(points) {
			e.Err = float64(errMat.GetFloatAt(i, 0))
		}
		estimates[i] = e
	}
	return estimates, nil
}

type mog2Proposer struct {
	bg           gocv.BackgroundSubtractorMOG2
	medianKSize  int
	qualityLevel float64
	minDistance  float64

	observed   *vision.Gray32
	foreground *image.Gray
}

// NewProposer returns features.Proposer using MOG2 background subtraction and cv::goodFeaturesToTrack
func NewProposer(history int, varThreshold float64, medianKSize int, qualityLevel, minDistance float64) (features.Proposer, error) {
	return &mog2Proposer{
		bg:           gocv.NewBackgroundSubtractorMOG2WithParams(history, varThreshold, false),
		medianKSize:  medianKSize,
		qualityLevel: qualityLevel,
		minDistance:  minDistance,
	}, nil
}

func (mp *mog2Proposer) Observe(frame *vision.Gray32) error {
	m, err := grayMat(frame)
	if err != nil {
		return errors.Wrap(err, "can't convert frame")
	}
	defer m.Close()
	fg := gocv.NewMat()
	defer fg.Close()
	mp.bg.Apply(m, &fg)
	if mp.medianKSize >= 3 {
		gocv.MedianBlur(fg, &fg, mp.medianKSize)
	}
	img, err := fg.ToImage()
	if err != nil {
		return errors.Wrap(err, "can't convert foreground mask")
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return errors.Errorf("unexpected foreground mask type %T", img)
	}
	mp.observed = frame
	mp.foreground = gray
	return nil
}

func (mp *mog2Proposer) Propose(frame *vision.Gray32, exclusion *features.ExclusionMask, maxCount int) ([]mot.Point, error) {
	if mp.observed != frame {
		if err := mp.Observe(frame); err != nil {
			return nil, err
		}
	}
	if maxCount <= 0 {
		return nil, nil
	}
	m, err := grayMat(frame)
	if err != nil {
		return nil, errors.Wrap(err, "can't convert frame")
	}
	defer m.Close()
	corners := gocv.NewMat()
	defer corners.Close()
	// goodFeaturesToTrack binding has no mask argument: ask for every corner and filter afterwards
	gocv.GoodFeaturesToTrack(m, &corners, 0, mp.qualityLevel, mp.minDistance)
	allowed := exclusion.Intersect(mp.foreground)
	points := make([]mot.Point, 0, maxCount)
	for i := 0; i < corners.Rows() && len(points) < maxCount; i++ {
		vec := corners.GetVecfAt(i, 0)
		p := mot.NewPoint(float64(vec[0]), float64(vec[1]))
		ip := p.ImagePoint()
		if allowed != nil && allowed.GrayAt(ip.X, ip.Y).Y == 0 {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

type videoWriter struct {
	path   string
	fps    float64
	writer *gocv.VideoWriter
}

// NewVideoWriter returns writer producing mp4v encoded file. The file is created on the first frame.
func NewVideoWriter(path string, fps float64) (FrameWriter, error) {
	return &videoWriter{
		path: path,
		fps:  fps,
	}, nil
}

func (vw *videoWriter) Write(frame image.Image) error {
	m, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return errors.Wrap(err, "can't convert frame")
	}
	defer m.Close()
	if vw.writer == nil {
		b := frame.Bounds()
		writer, err := gocv.VideoWriterFile(vw.path, "mp4v", vw.fps, b.Dx(), b.Dy(), true)
		if err != nil {
			return errors.Wrapf(err, "can't create video '%s'", vw.path)
		}
		vw.writer = writer
	}
	return vw.writer.Write(m)
}

func (vw *videoWriter) Close() error {
	if vw.writer == nil {
		return nil
	}
	return vw.writer.Close()
}
