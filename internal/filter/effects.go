package filter

import (
	"github.com/disintegration/imaging"

	"github.com/camkiosk/camkiosk/internal/domain"
)

// Grayscale converts frames to luminance. Idempotent: a grayscale image
// maps to itself.
type Grayscale struct{}

// Name returns the filter name.
func (f *Grayscale) Name() string { return NameGrayscale }

// Apply converts the frame to grayscale.
func (f *Grayscale) Apply(frame *domain.Frame) (*domain.Frame, error) {
	src, err := validate(frame)
	if err != nil {
		return nil, err
	}
	out := imaging.Grayscale(src)
	return &domain.Frame{Seq: frame.Seq, Timestamp: frame.Timestamp, Image: out}, nil
}

// edgeKernel is a 3x3 Laplacian.
var edgeKernel = [9]float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// Edge highlights luminance discontinuities with a Laplacian convolution.
// NOT idempotent: re-applying it finds the edges of the edge image.
type Edge struct{}

// Name returns the filter name.
func (f *Edge) Name() string { return NameEdge }

// Apply convolves the frame with the Laplacian kernel.
func (f *Edge) Apply(frame *domain.Frame) (*domain.Frame, error) {
	src, err := validate(frame)
	if err != nil {
		return nil, err
	}
	out := imaging.Convolve3x3(src, edgeKernel, nil)
	return &domain.Frame{Seq: frame.Seq, Timestamp: frame.Timestamp, Image: out}, nil
}
