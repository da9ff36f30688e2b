// Command fbtrack extracts point trajectories from a video or an image directory using
// optical flow with forward-backward verification.
//
// Usage:
//
//	fbtrack path/to/frames                      # outputs next to the input
//	fbtrack -config fbtrack.yaml path/to/video.mp4
//	fbtrack -video png -sqlite runs.db -out-dir out path/to/frames
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LdDl/fbtrack-go/features"
	"github.com/LdDl/fbtrack-go/flow"
	"github.com/LdDl/fbtrack-go/internal/config"
	"github.com/LdDl/fbtrack-go/internal/export"
	"github.com/LdDl/fbtrack-go/internal/frames"
	"github.com/LdDl/fbtrack-go/internal/opencv"
	"github.com/LdDl/fbtrack-go/internal/pipeline"
	"github.com/LdDl/fbtrack-go/internal/render"
	"github.com/LdDl/fbtrack-go/internal/report"
	"github.com/LdDl/fbtrack-go/internal/storage/sqlite"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Wider frames are scaled down in GIF output
const gifMaxWidth = 960

type flags struct {
	configPath string
	outDir     string
	video      string
	sqlitePath string
	backend    string
}

func main() {
	var fl flags
	flag.StringVar(&fl.configPath, "config", "", "path to YAML config file (defaults are used when empty or missing)")
	flag.StringVar(&fl.outDir, "out-dir", "", "output directory, defaults to the parent directory of the input")
	flag.StringVar(&fl.video, "video", "", "rendered output: png, gif, mp4 or none (overrides config)")
	flag.StringVar(&fl.sqlitePath, "sqlite", "", "SQLite database to store the run in (overrides config)")
	flag.StringVar(&fl.backend, "backend", "", "native or opencv (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <input_path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := newLogger(*logLevel, *logFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, flag.Arg(0), fl); err != nil {
		logger.Error("fbtrack: fatal", "error", err)
		os.Exit(1)
	}
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func resolveConfig(fl flags) (config.Config, error) {
	cfg, err := config.Load(fl.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if fl.outDir != "" {
		cfg.Output.Dir = fl.outDir
	}
	if fl.video != "" {
		cfg.Output.Video = fl.video
	}
	if fl.sqlitePath != "" {
		cfg.Output.SQLite = fl.sqlitePath
	}
	if fl.backend != "" {
		cfg.Backend = fl.backend
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, errors.Wrap(err, "invalid flags")
	}
	return cfg, nil
}

// run writes nothing unless the pipeline succeeds. Rendered frames are the exception:
// sinks create their files on the first rendered frame.
func run(ctx context.Context, logger *slog.Logger, input string, fl flags) error {
	cfg, err := resolveConfig(fl)
	if err != nil {
		return err
	}
	startedAt := time.Now()
	paths := export.DefaultOutputPaths(input, cfg.Output.Dir, startedAt)

	src, err := frames.Open(input, cfg.Backend)
	if err != nil {
		return err
	}
	defer src.Close()

	estimator, proposer, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	sink, err := buildSink(cfg, paths)
	if err != nil {
		return err
	}

	runID := uuid.New()
	opts := pipeline.Options{
		Config:    cfg,
		Logger:    logger,
		Source:    src,
		Estimator: estimator,
		Proposer:  proposer,
		Sink:      sink,
		RunID:     runID,
	}
	result, err := pipeline.Run(ctx, opts)
	if sink != nil {
		if closeErr := sink.Close(); closeErr != nil {
			logger.Warn("fbtrack: can't finalize rendered output", "error", closeErr)
		} else if err == nil {
			logger.Info("Save_to", "path", paths.Video(cfg.Output.Video))
		}
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "can't create output directory '%s'", paths.Dir)
	}
	if err := export.SaveCSV(paths.CSV, result.Snapshot); err != nil {
		return err
	}
	logger.Info("Save_to", "path", paths.CSV)

	if cfg.Output.Report {
		if err := report.Save(paths.Report, runID.String(), result.Stats, result.Snapshot); err != nil {
			return err
		}
		logger.Info("Save_to", "path", paths.Report)
	}
	if cfg.Output.Plot {
		if err := render.PlotTrajectories(result.Snapshot, result.Width, result.Height, paths.Plot); err != nil {
			return err
		}
		logger.Info("Save_to", "path", paths.Plot)
	}
	if cfg.Output.SQLite != "" {
		// The run was interrupted or not, results are stored in any case
		if err := storeRun(context.WithoutCancel(ctx), cfg, input, startedAt, result); err != nil {
			return err
		}
		logger.Info("Save_to", "path", cfg.Output.SQLite, "run_id", runID.String())
	}

	summary := report.Summarize(result.Snapshot)
	logger.Info("fbtrack: done",
		"frames", result.Frames,
		"tracks", summary.Tracks,
		"active", summary.Active,
		"terminated", summary.Terminated,
		"mean_len", summary.MeanLength,
		"median_len", summary.MedianLength,
		"elapsed", time.Since(startedAt).String(),
	)
	return nil
}

// storeRun inserts the finished run and its trajectories
func storeRun(ctx context.Context, cfg config.Config, input string, startedAt time.Time, result *pipeline.Result) error {
	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "can't marshal config")
	}
	db, err := sqlite.Open(cfg.Output.SQLite)
	if err != nil {
		return err
	}
	defer db.Close()
	err = sqlite.NewRunStore(db).Insert(ctx, sqlite.Run{
		ID:         result.RunID,
		InputPath:  input,
		StartedAt:  startedAt,
		Frames:     result.Frames,
		Width:      result.Width,
		Height:     result.Height,
		ConfigYAML: string(cfgYAML),
	})
	if err != nil {
		return err
	}
	return sqlite.NewTrackStore(db).SaveSnapshot(ctx, result.RunID, result.Snapshot)
}

func buildComponents(cfg config.Config) (flow.Estimator, features.Proposer, error) {
	if cfg.Backend == "opencv" {
		estimator, err := opencv.NewEstimator(cfg.Flow.WinSize, cfg.Flow.MaxLevel, cfg.Flow.MaxIter, cfg.Flow.Epsilon, cfg.Flow.MinEigThreshold)
		if err != nil {
			return nil, nil, err
		}
		proposer, err := opencv.NewProposer(cfg.Features.BgHistory, cfg.Features.BgVarThreshold, cfg.Features.MedianKSize, cfg.Features.QualityLevel, cfg.Features.MinDistance)
		if err != nil {
			return nil, nil, err
		}
		return estimator, proposer, nil
	}
	estimator := flow.NewLucasKanade(cfg.Flow.WinSize, cfg.Flow.MaxLevel, cfg.Flow.MaxIter, cfg.Flow.Epsilon, cfg.Flow.MinEigThreshold)
	proposer := features.NewMotionProposer(
		features.NewBackgroundModel(cfg.Features.BgHistory, cfg.Features.BgVarThreshold, cfg.Features.MedianKSize),
		features.CornerDetector{
			QualityLevel: cfg.Features.QualityLevel,
			MinDistance:  cfg.Features.MinDistance,
			BlockSize:    cfg.Features.BlockSize,
		},
	)
	return estimator, proposer, nil
}

// buildSink returns nil when rendering is off. Nothing is created on disk until the first frame
func buildSink(cfg config.Config, paths export.OutputPaths) (render.Sink, error) {
	switch cfg.Output.Video {
	case "gif":
		return render.CreateGIF(paths.Video("gif"), cfg.Output.FPS, gifMaxWidth, cfg.Output.GIFMaxFrames), nil
	case "png":
		return render.NewPNGSequence(paths.Video("png"), "frame"), nil
	case "mp4":
		return opencv.NewVideoWriter(paths.Video("mp4"), float64(cfg.Output.FPS))
	default:
		return nil, nil
	}
}
