package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default returns configuration matching the reference tracker constants
func Default() Config {
	return Config{
		Tracking: TrackingConfig{
			MaxCorners:       30,
			ReseedDivisor:    2,
			MinDistance:      12,
			RedetectInterval: 50,
			FBErrThresh:      50.0,
			ErrThresh:        80.0,
			DrawTrajLen:      100,
		},
		Features: FeaturesConfig{
			QualityLevel:   0.01,
			MinDistance:    10,
			BlockSize:      3,
			BgHistory:      200,
			BgVarThreshold: 25,
			MedianKSize:    5,
		},
		Flow: FlowConfig{
			WinSize:         40,
			MaxLevel:        3,
			MaxIter:         30,
			Epsilon:         0.01,
			MinEigThreshold: 1e-4,
		},
		Output: OutputConfig{
			FPS:          10,
			Video:        "png",
			GIFMaxFrames: 300,
			Report:       true,
			Plot:         true,
		},
		Backend: "native",
	}
}

// Load reads YAML file on top of defaults and validates the result.
// Empty path or missing file gives defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.Wrapf(err, "can't read config file '%s'", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "can't parse config file '%s'", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config file '%s'", path)
	}
	return cfg, nil
}

// Validate checks struct tags
func (cfg Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("odd", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 == 1
	}); err != nil {
		return err
	}
	return v.Struct(cfg)
}
