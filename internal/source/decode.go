package source

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support

	"github.com/disintegration/imaging"

	"github.com/camkiosk/camkiosk/internal/domain"
)

// maxFrameSize bounds a single frame read. Traffic-cam JPEGs are well
// under a megabyte; anything larger is a broken stream.
const maxFrameSize = 10 * 1024 * 1024

// decodeFrame decodes one full image payload into NRGBA pixels.
// A failed decode yields no frame for the cycle, never a partial one.
func decodeFrame(data []byte) (*image.NRGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba, nil
	}
	return imaging.Clone(img), nil
}
