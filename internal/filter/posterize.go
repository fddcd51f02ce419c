package filter

import (
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/camkiosk/camkiosk/internal/domain"
)

// Posterize reduces each color channel to a fixed number of levels,
// producing the flat poster look of the original street-cam installation.
//
// Quantization is v -> (v / factor) * factor with factor = 256 / levels.
// The transform is mathematically idempotent: quantized values are fixed
// points of the quantization, so applying the filter twice with the same
// level count yields identical bytes.
type Posterize struct {
	levels int
	factor uint32
}

// NewPosterize creates a posterize filter with the given level count.
func NewPosterize(levels int) (*Posterize, error) {
	if levels < 2 || levels > 256 {
		return nil, fmt.Errorf("%w: posterize levels must be in [2,256], got %d",
			domain.ErrConfig, levels)
	}
	return &Posterize{
		levels: levels,
		factor: uint32(256 / levels),
	}, nil
}

// Name returns the filter name.
func (f *Posterize) Name() string { return NamePosterize }

// Apply quantizes the RGB channels, leaving alpha untouched.
func (f *Posterize) Apply(frame *domain.Frame) (*domain.Frame, error) {
	src, err := validate(frame)
	if err != nil {
		return nil, err
	}

	out := imaging.Clone(src)
	factor := uint8(f.factor)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = (out.Pix[i] / factor) * factor
		out.Pix[i+1] = (out.Pix[i+1] / factor) * factor
		out.Pix[i+2] = (out.Pix[i+2] / factor) * factor
	}

	return &domain.Frame{Seq: frame.Seq, Timestamp: frame.Timestamp, Image: out}, nil
}
