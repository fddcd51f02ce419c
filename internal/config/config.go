// Package config loads and validates the kiosk configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/camkiosk/camkiosk/internal/domain"
)

// Source modes. Auto sniffs the content type on first connect.
const (
	ModeAuto     = "auto"
	ModeMJPEG    = "mjpeg"
	ModeSnapshot = "snapshot"
)

const (
	defaultFilter           = "posterize"
	defaultPosterizeLevels  = 4
	defaultTargetFPS        = 15.0
	defaultSnapshotInterval = time.Second
	defaultBackoffBase      = time.Second
	defaultBackoffMax       = 30 * time.Second
	defaultStallTimeout     = 10 * time.Second
)

// Config holds the full kiosk configuration.
type Config struct {
	// CameraURL selects the traffic camera feed. Required.
	CameraURL string `yaml:"camera_url"`
	// DisplayWidth is the display surface width in pixels. Required.
	DisplayWidth int `yaml:"display_width"`
	// DisplayHeight is the display surface height in pixels. Required.
	DisplayHeight int `yaml:"display_height"`

	// SourceMode selects the stream reader: auto, mjpeg or snapshot.
	SourceMode string `yaml:"source_mode"`
	// SnapshotInterval is the poll interval for still-image cameras.
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	// StallTimeout aborts a read when no frame arrives within it.
	StallTimeout time.Duration `yaml:"stall_timeout"`

	// Filter names the frame filter: posterize, grayscale, edge or none.
	Filter string `yaml:"filter"`
	// PosterizeLevels is the color level count for the posterize filter.
	PosterizeLevels int `yaml:"posterize_levels"`

	// TargetFPS caps the present cadence.
	TargetFPS float64 `yaml:"target_fps"`

	// BackoffBase is the initial retry delay after a stream failure.
	BackoffBase time.Duration `yaml:"backoff_base"`
	// BackoffMax caps the retry delay.
	BackoffMax time.Duration `yaml:"backoff_max"`
}

// Defaults returns a Config with every optional field populated.
func Defaults() Config {
	return Config{
		SourceMode:       ModeAuto,
		SnapshotInterval: defaultSnapshotInterval,
		StallTimeout:     defaultStallTimeout,
		Filter:           defaultFilter,
		PosterizeLevels:  defaultPosterizeLevels,
		TargetFPS:        defaultTargetFPS,
		BackoffBase:      defaultBackoffBase,
		BackoffMax:       defaultBackoffMax,
	}
}

// Load reads the YAML file at path, applies defaults and validates.
func Load(path string, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrConfig, path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		zap.String("path", path),
		zap.String("cameraURL", cfg.CameraURL),
		zap.Int("displayWidth", cfg.DisplayWidth),
		zap.Int("displayHeight", cfg.DisplayHeight),
		zap.String("filter", cfg.Filter),
		zap.Float64("targetFPS", cfg.TargetFPS))

	return &cfg, nil
}

// Validate checks required fields and value ranges. There is no partial
// startup with defaults for the required fields: a bad value is fatal.
func (c *Config) Validate() error {
	if c.CameraURL == "" {
		return fmt.Errorf("%w: camera_url is required", domain.ErrConfig)
	}
	u, err := url.Parse(c.CameraURL)
	if err != nil {
		return fmt.Errorf("%w: camera_url: %v", domain.ErrConfig, err)
	}
	// The source speaks plain HTTP; RTSP and friends fail here rather
	// than at the first connect.
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: camera_url scheme %q is not supported, use http or https",
			domain.ErrConfig, u.Scheme)
	}
	if c.DisplayWidth <= 0 || c.DisplayHeight <= 0 {
		return fmt.Errorf("%w: display_width and display_height must be positive, got %dx%d",
			domain.ErrConfig, c.DisplayWidth, c.DisplayHeight)
	}
	switch c.SourceMode {
	case ModeAuto, ModeMJPEG, ModeSnapshot:
	default:
		return fmt.Errorf("%w: unknown source_mode %q", domain.ErrConfig, c.SourceMode)
	}
	if c.TargetFPS <= 0 {
		return fmt.Errorf("%w: target_fps must be positive, got %v", domain.ErrConfig, c.TargetFPS)
	}
	if c.PosterizeLevels < 2 || c.PosterizeLevels > 256 {
		return fmt.Errorf("%w: posterize_levels must be in [2,256], got %d", domain.ErrConfig, c.PosterizeLevels)
	}
	if c.BackoffBase <= 0 || c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("%w: invalid backoff window %v..%v", domain.ErrConfig, c.BackoffBase, c.BackoffMax)
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("%w: snapshot_interval must be positive", domain.ErrConfig)
	}
	if c.StallTimeout <= 0 {
		return fmt.Errorf("%w: stall_timeout must be positive", domain.ErrConfig)
	}
	return nil
}

// Stream returns the immutable stream description used by the pipeline.
func (c *Config) Stream() domain.StreamConfig {
	return domain.StreamConfig{
		SourceURL:    c.CameraURL,
		TargetWidth:  c.DisplayWidth,
		TargetHeight: c.DisplayHeight,
	}
}
