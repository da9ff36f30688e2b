package config

// TrackingConfig drives track lifecycle and reseeding
type TrackingConfig struct {
	MaxCorners       int     `yaml:"max_corners" validate:"gte=0"`
	ReseedDivisor    int     `yaml:"reseed_divisor" validate:"gte=1"`
	MinDistance      int     `yaml:"min_distance" validate:"gte=0"`
	RedetectInterval int     `yaml:"redetect_interval" validate:"gte=1"`
	FBErrThresh      float64 `yaml:"fb_err_thresh" validate:"gt=0"`
	ErrThresh        float64 `yaml:"err_thresh" validate:"gt=0"`
	DrawTrajLen      int     `yaml:"draw_traj_len" validate:"gte=1"`
}

// ReseedCount returns number of features proposed on reseed frames
func (tc TrackingConfig) ReseedCount() int {
	return tc.MaxCorners / tc.ReseedDivisor
}

// FeaturesConfig drives background subtraction and corner detection
type FeaturesConfig struct {
	QualityLevel   float64 `yaml:"quality_level" validate:"gt=0,lte=1"`
	MinDistance    float64 `yaml:"min_distance" validate:"gte=0"`
	BlockSize      int     `yaml:"block_size" validate:"gte=1"`
	BgHistory      int     `yaml:"bg_history" validate:"gte=1"`
	BgVarThreshold float64 `yaml:"bg_var_threshold" validate:"gt=0"`
	MedianKSize    int     `yaml:"median_ksize" validate:"gte=1,odd"`
}

// FlowConfig drives the Lucas-Kanade estimator
type FlowConfig struct {
	WinSize         int     `yaml:"win_size" validate:"gte=3"`
	MaxLevel        int     `yaml:"max_level" validate:"gte=0,lte=8"`
	MaxIter         int     `yaml:"max_iter" validate:"gte=1"`
	Epsilon         float64 `yaml:"epsilon" validate:"gt=0"`
	MinEigThreshold float64 `yaml:"min_eig_threshold" validate:"gte=0"`
	KalmanPrior     bool    `yaml:"kalman_prior"`
}

// OutputConfig selects produced artifacts
type OutputConfig struct {
	Dir   string `yaml:"dir"`
	FPS   int    `yaml:"fps" validate:"gte=1,lte=100"`
	Video string `yaml:"video" validate:"oneof=gif png mp4 none"`
	// GIF frames are held in memory until the run ends. Zero means no cap
	GIFMaxFrames int    `yaml:"gif_max_frames" validate:"gte=0"`
	SQLite       string `yaml:"sqlite"`
	Report       bool   `yaml:"report"`
	Plot         bool   `yaml:"plot"`
}

// Config is the whole tracker configuration
type Config struct {
	Tracking TrackingConfig `yaml:"tracking"`
	Features FeaturesConfig `yaml:"features"`
	Flow     FlowConfig     `yaml:"flow"`
	Output   OutputConfig   `yaml:"output"`
	Backend  string         `yaml:"backend" validate:"oneof=native opencv"`
	Seed     uint64         `yaml:"seed"`
}
