// Package render draws QR payloads as PNG images or terminal blocks.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
)

// DefaultSize is the image edge length in pixels
const DefaultSize = 256

// Options controls image rendering
type Options struct {
	Size  int
	Level qrcode.RecoveryLevel
	// Logo is drawn centered over an excavated white area. Nil draws none.
	Logo image.Image
	// LogoWidth is the logo width as a fraction of Size
	LogoWidth float64
}

// DefaultOptions renders at 256px with the highest error correction
func DefaultOptions() Options {
	return Options{
		Size:      DefaultSize,
		Level:     qrcode.Highest,
		LogoWidth: 100.0 / 256.0,
	}
}

// ParseLevel maps L, M, Q or H to a recovery level
func ParseLevel(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return qrcode.Low, nil
	case "M":
		return qrcode.Medium, nil
	case "Q":
		return qrcode.High, nil
	case "H", "":
		return qrcode.Highest, nil
	default:
		return qrcode.Highest, fmt.Errorf("unknown error correction level %q", s)
	}
}

// Image renders payload as a QR image
func Image(payload string, opts Options) (image.Image, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty payload")
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}

	q, err := qrcode.New(payload, opts.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	src := q.Image(opts.Size)
	if opts.Logo == nil {
		return src, nil
	}

	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	overlay(dst, opts.Logo, opts.LogoWidth)
	return dst, nil
}

// PNG renders payload as PNG bytes
func PNG(payload string, opts Options) ([]byte, error) {
	img, err := Image(payload, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Terminal renders payload with half-block characters for a terminal
func Terminal(payload string, level qrcode.RecoveryLevel) (string, error) {
	q, err := qrcode.New(payload, level)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}
	return q.ToSmallString(false), nil
}

// overlay clears a white box in the middle of dst and scales logo into it
func overlay(dst *image.RGBA, logo image.Image, width float64) {
	if width <= 0 || width > 0.5 {
		width = DefaultOptions().LogoWidth
	}
	b := dst.Bounds()
	lb := logo.Bounds()
	if lb.Dx() == 0 || lb.Dy() == 0 {
		return
	}

	w := int(float64(b.Dx()) * width)
	h := w * lb.Dy() / lb.Dx()
	x := b.Min.X + (b.Dx()-w)/2
	y := b.Min.Y + (b.Dy()-h)/2
	area := image.Rect(x, y, x+w, y+h)

	draw.Draw(dst, area.Inset(-2), image.NewUniform(color.White), image.Point{}, draw.Src)
	xdraw.ApproxBiLinear.Scale(dst, area, logo, lb, draw.Over, nil)
}
