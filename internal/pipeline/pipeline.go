// Package pipeline drives a tracking run: it pulls frames from a source, seeds tracks on the first
// frame, advances them with forward-backward verified optical flow, reseeds periodically and
// renders every processed frame.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LdDl/fbtrack-go/features"
	"github.com/LdDl/fbtrack-go/flow"
	"github.com/LdDl/fbtrack-go/internal/config"
	"github.com/LdDl/fbtrack-go/internal/frames"
	"github.com/LdDl/fbtrack-go/internal/render"
	"github.com/LdDl/fbtrack-go/internal/report"
	"github.com/LdDl/fbtrack-go/mot"
	"github.com/LdDl/fbtrack-go/vision"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrNoFirstFrame is returned when the source can't produce the first frame. Nothing is tracked then.
	ErrNoFirstFrame = errors.New("cannot read the first frame")
	// ErrFrameSize is returned when a frame differs in size from the first one
	ErrFrameSize = errors.New("frame size differs from the first frame")
)

// Options configures a single run
type Options struct {
	Config config.Config
	// Nil means slog.Default()
	Logger    *slog.Logger
	Source    frames.Source
	Estimator flow.Estimator
	Proposer  features.Proposer
	// Rendered frames go here. Nil disables rendering
	Sink render.Sink
	// Nil means random palette seeded with Config.Seed
	Palette mot.Palette
	// uuid.Nil means a new random identifier
	RunID uuid.UUID
}

// Result is outcome of a finished run
type Result struct {
	RunID    uuid.UUID
	Snapshot []mot.TrackRecord
	Stats    []report.FrameStat
	// Number of processed frames including the first one
	Frames int
	Width  int
	Height int
}

// Run processes the source until it is exhausted or ctx is done.
// Cancellation is not an error: the run stops reading and returns the tracks gathered so far.
// Source is not closed by Run, and neither is Sink.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Source == nil || opts.Estimator == nil || opts.Proposer == nil {
		return nil, errors.New("source, estimator and proposer are required")
	}
	cfg := opts.Config
	runID := opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", runID.String())
	palette := opts.Palette
	if palette == nil {
		palette = mot.NewRandomPalette(cfg.Seed)
	}

	img, ok, err := opts.Source.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFirstFrame, err)
	}
	if !ok {
		return nil, ErrNoFirstFrame
	}
	prev := vision.FromImage(img)
	width, height := prev.Width, prev.Height

	manager := mot.NewTrackManager(mot.NewAcceptancePolicy(cfg.Tracking.FBErrThresh, cfg.Tracking.ErrThresh, width, height), palette)
	buffer := mot.NewRenderBuffer(cfg.Tracking.DrawTrajLen)
	var prior *flow.KalmanPrior
	if cfg.Flow.KalmanPrior {
		prior = flow.NewKalmanPriorDefault()
	}

	if err := opts.Proposer.Observe(prev); err != nil {
		return nil, errors.Wrap(err, "frame 0")
	}
	seeds, err := opts.Proposer.Propose(prev, nil, cfg.Tracking.MaxCorners)
	if err != nil {
		return nil, errors.Wrap(err, "can't propose initial features")
	}
	created := manager.Seed(seeds, 0)
	if err := observeSeeds(prior, manager, created); err != nil {
		return nil, err
	}
	stats := []report.FrameStat{{Frame: 0, Active: manager.ActiveCount(), Created: len(created)}}
	logger.Info("pipeline: seeded", "frame", 0, "width", width, "height", height, "tracks", len(created))

	sink := opts.Sink
	t := 0
	for {
		if ctx.Err() != nil {
			logger.Info("pipeline: stopped", "frame", t, "reason", ctx.Err())
			break
		}
		img, ok, err := opts.Source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("pipeline: stopped", "frame", t, "reason", ctx.Err())
				break
			}
			return nil, errors.Wrapf(err, "can't read frame %d", t+1)
		}
		if !ok {
			break
		}
		t++
		gray := vision.FromImage(img)
		if gray.Width != width || gray.Height != height {
			return nil, errors.Wrapf(ErrFrameSize, "frame %d is %dx%d, expected %dx%d", t, gray.Width, gray.Height, width, height)
		}
		if err := opts.Proposer.Observe(gray); err != nil {
			return nil, errors.Wrapf(err, "frame %d", t)
		}

		tracks := manager.ActivePositions()
		var guesses []mot.Point
		if prior != nil {
			guesses = prior.Guesses(tracks)
		}
		results, err := flow.ForwardBackward(opts.Estimator, prev, gray, tracks, guesses)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", t)
		}
		terminated, err := manager.Advance(results, t)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", t)
		}
		for _, id := range terminated {
			buffer.Drop(id)
			if prior != nil {
				prior.Forget(id)
			}
		}
		// Reseeding comes later, so every active track here has just been accepted
		for _, tp := range manager.ActivePositions() {
			buffer.Update(tp.ID, tp.Position)
			if prior != nil {
				if err := prior.Observe(tp.ID, tp.Position); err != nil {
					return nil, errors.Wrapf(err, "frame %d", t)
				}
			}
		}

		stat := report.FrameStat{Frame: t, Terminated: len(terminated)}
		if t%cfg.Tracking.RedetectInterval == 0 {
			exclusion := features.NewExclusionMask(width, height, manager.ExclusionPositions(), cfg.Tracking.MinDistance)
			points, err := opts.Proposer.Propose(gray, exclusion, cfg.Tracking.ReseedCount())
			if err != nil {
				return nil, errors.Wrapf(err, "can't propose features on frame %d", t)
			}
			created := manager.Seed(points, t)
			if err := observeSeeds(prior, manager, created); err != nil {
				return nil, err
			}
			stat.Created = len(created)
			logger.Info("pipeline: reseeded", "frame", t, "created", len(created), "active", manager.ActiveCount())
		}
		stat.Active = manager.ActiveCount()
		stats = append(stats, stat)

		if sink != nil {
			if err := sink.Write(render.DrawTrails(img, t, manager, buffer)); err != nil {
				logger.Warn("pipeline: can't write rendered frame, rendering disabled", "frame", t, "error", err)
				sink = nil
			}
		}
		logger.Debug("pipeline: frame",
			"frame", t,
			"active", stat.Active,
			"accepted", len(tracks)-len(terminated),
			"terminated", stat.Terminated,
			"rejected", rejectionReasons(manager.Policy(), results),
			"created", stat.Created,
		)
		prev = gray
	}

	snapshot := manager.Snapshot()
	logger.Info("pipeline: finished",
		"frames", t+1,
		"tracks", len(snapshot),
		"active", manager.ActiveCount(),
		"samples", mot.SampleCount(snapshot),
	)
	return &Result{
		RunID:    runID,
		Snapshot: snapshot,
		Stats:    stats,
		Frames:   t + 1,
		Width:    width,
		Height:   height,
	}, nil
}

func observeSeeds(prior *flow.KalmanPrior, manager *mot.TrackManager, ids []int) error {
	if prior == nil {
		return nil
	}
	for _, id := range ids {
		record, ok := manager.Get(id)
		if !ok {
			continue
		}
		if err := prior.Observe(id, record.Last().Point()); err != nil {
			return errors.Wrapf(err, "can't observe track %d", id)
		}
	}
	return nil
}

// rejectionReasons counts failed checks by verdict name
func rejectionReasons(policy mot.AcceptancePolicy, results []mot.MotionResult) map[string]int {
	reasons := make(map[string]int)
	for _, result := range results {
		if verdict := policy.Evaluate(result); verdict != mot.VerdictAccepted {
			reasons[verdict.String()]++
		}
	}
	return reasons
}
