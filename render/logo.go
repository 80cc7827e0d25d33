package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultLogoText is drawn in the middle of generated codes
const DefaultLogoText = "fps2.me"

// TextLogo renders text in a fixed 7x13 face on a white background
func TextLogo(text string) image.Image {
	face := basicfont.Face7x13
	const pad = 2

	d := &font.Drawer{Face: face}
	width := d.MeasureString(text).Ceil() + 2*pad
	height := face.Metrics().Height.Ceil() + 2*pad

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	d.Dst = img
	d.Src = image.NewUniform(color.Black)
	d.Dot = fixed.P(pad, pad+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
	return img
}
