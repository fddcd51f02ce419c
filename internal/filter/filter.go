// Package filter provides the deterministic per-frame image transforms.
// Every filter preserves frame dimensions and pixel format, never fails on
// a valid frame, and is pure: identical input bytes and parameters always
// produce identical output.
package filter

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/camkiosk/camkiosk/internal/domain"
)

// Filter names accepted in configuration.
const (
	NameNone      = "none"
	NamePosterize = "posterize"
	NameGrayscale = "grayscale"
	NameEdge      = "edge"
)

// Options configures filter construction.
type Options struct {
	// Name selects the filter.
	Name string
	// PosterizeLevels is the color level count for the posterize filter.
	PosterizeLevels int
}

// New constructs the named filter.
func New(opts Options, logger *zap.Logger) (domain.Filter, error) {
	var f domain.Filter
	switch opts.Name {
	case NameNone:
		f = &Identity{}
	case NamePosterize:
		p, err := NewPosterize(opts.PosterizeLevels)
		if err != nil {
			return nil, err
		}
		f = p
	case NameGrayscale:
		f = &Grayscale{}
	case NameEdge:
		f = &Edge{}
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", domain.ErrConfig, opts.Name)
	}

	logger.Info("Filter configured", zap.String("filter", f.Name()))
	return f, nil
}

// validate rejects frames a filter cannot process.
func validate(frame *domain.Frame) (*image.NRGBA, error) {
	if frame == nil || frame.Image == nil {
		return nil, fmt.Errorf("%w: nil frame", domain.ErrUnsupportedFormat)
	}
	img := frame.Image
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("%w: empty raster %dx%d",
			domain.ErrUnsupportedFormat, img.Bounds().Dx(), img.Bounds().Dy())
	}
	return img, nil
}

// Identity passes frames through untouched. Trivially idempotent.
type Identity struct{}

// Name returns the filter name.
func (f *Identity) Name() string { return NameNone }

// Apply returns the frame unchanged.
func (f *Identity) Apply(frame *domain.Frame) (*domain.Frame, error) {
	if _, err := validate(frame); err != nil {
		return nil, err
	}
	return frame, nil
}
