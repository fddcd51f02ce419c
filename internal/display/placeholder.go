package display

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// placeholderCard renders the dark card shown before the first frame
// arrives: a thin frame and a centered NO SIGNAL label.
func placeholderCard(width, height int) *image.NRGBA {
	dc := gg.NewContext(width, height)

	dc.SetRGB(0.04, 0.04, 0.07)
	dc.Clear()

	inset := float64(min(width, height)) * 0.05
	dc.SetRGB(0.25, 0.25, 0.32)
	dc.SetLineWidth(2)
	dc.DrawRectangle(inset, inset, float64(width)-2*inset, float64(height)-2*inset)
	dc.Stroke()

	dc.SetRGB(0.85, 0.85, 0.9)
	dc.DrawStringAnchored("NO SIGNAL", float64(width)/2, float64(height)/2, 0.5, 0.5)

	return imaging.Clone(dc.Image())
}
