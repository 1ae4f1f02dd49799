// Package compositor renders the final print file: the base artwork with the
// shopper's crop, rotation, colour adjustments and text overlays.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"storefront/internal/domain"
)

// DefaultFontSize is used for overlays that do not set one.
const DefaultFontSize = 48

// Crop selects part of the image as fractions (0-1) of its natural size.
type Crop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FullFrame keeps the whole image.
var FullFrame = Crop{X: 0, Y: 0, Width: 1, Height: 1}

// Params describe one export. Brightness, Contrast and Saturation are
// percentages where 100 leaves the image unchanged.
type Params struct {
	Crop       Crop             `json:"crop"`
	Rotation   float64          `json:"rotation"`
	Brightness float64          `json:"brightness"`
	Contrast   float64          `json:"contrast"`
	Saturation float64          `json:"saturation"`
	Overlays   []domain.Overlay `json:"overlays"`
}

// NewParams returns params for an untouched full-frame export.
func NewParams() Params {
	return Params{Crop: FullFrame, Brightness: 100, Contrast: 100, Saturation: 100}
}

var (
	fontOnce sync.Once
	boldFont *opentype.Font
	fontErr  error
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		boldFont, fontErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, fontErr
}

// Compose draws src onto a transparent canvas of the same size: clip, then
// rotate about the centre, then colour-adjust, then overlays on top.
func Compose(src image.Image, p Params) (*image.NRGBA, error) {
	if src == nil {
		return nil, errors.New("compositor: source image is required")
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("compositor: empty source image: %w", domain.ErrInvalidInput)
	}
	clip, err := clipRect(p.Crop, w, h)
	if err != nil {
		return nil, err
	}
	if p.Brightness < 0 || p.Contrast < 0 || p.Saturation < 0 {
		return nil, fmt.Errorf("compositor: adjustments must not be negative: %w", domain.ErrInvalidInput)
	}

	base := adjust(src, p.Brightness/100, p.Contrast/100, p.Saturation/100)
	if math.Mod(p.Rotation, 360) != 0 {
		base = rotate(base, p.Rotation)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, clip, base, clip.Min, draw.Src)

	for _, ov := range p.Overlays {
		if err := drawOverlay(canvas, ov); err != nil {
			return nil, err
		}
	}
	return canvas, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(img image.Image, w io.Writer) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("compositor: encode png: %w", err)
	}
	return nil
}

func clipRect(c Crop, w, h int) (image.Rectangle, error) {
	x0 := int(math.Floor(clamp01(c.X) * float64(w)))
	y0 := int(math.Floor(clamp01(c.Y) * float64(h)))
	x1 := int(math.Ceil(clamp01(c.X+c.Width) * float64(w)))
	y1 := int(math.Ceil(clamp01(c.Y+c.Height) * float64(h)))
	r := image.Rect(x0, y0, x1, y1)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("compositor: crop has no area: %w", domain.ErrInvalidInput)
	}
	return r, nil
}

// adjust applies brightness(), contrast() and saturate() in that order, with
// the same math as the CSS filter functions. Output bounds start at 0,0.
func adjust(src image.Image, brightness, contrast, saturation float64) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	identity := brightness == 1 && contrast == 1 && saturation == 1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if !identity && c.A != 0 {
				r, g, bl := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
				if brightness != 1 {
					r, g, bl = clamp01(r*brightness), clamp01(g*brightness), clamp01(bl*brightness)
				}
				if contrast != 1 {
					r = clamp01((r-0.5)*contrast + 0.5)
					g = clamp01((g-0.5)*contrast + 0.5)
					bl = clamp01((bl-0.5)*contrast + 0.5)
				}
				if saturation != 1 {
					r, g, bl = saturate(r, g, bl, saturation)
				}
				c.R, c.G, c.B = to8(r), to8(g), to8(bl)
			}
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return out
}

func saturate(r, g, b, s float64) (float64, float64, float64) {
	nr := (0.213+0.787*s)*r + (0.715-0.715*s)*g + (0.072-0.072*s)*b
	ng := (0.213-0.213*s)*r + (0.715+0.285*s)*g + (0.072-0.072*s)*b
	nb := (0.213-0.213*s)*r + (0.715-0.715*s)*g + (0.072+0.928*s)*b
	return clamp01(nr), clamp01(ng), clamp01(nb)
}

// rotate turns img clockwise by deg degrees about its centre, keeping its size.
func rotate(img *image.NRGBA, deg float64) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(out, m, img, b, draw.Over, nil)
	return out
}

func drawOverlay(dst *image.NRGBA, ov domain.Overlay) error {
	text := strings.TrimSpace(ov.Text)
	if text == "" {
		return nil
	}
	col, err := ParseColor(ov.Color)
	if err != nil {
		return err
	}
	size := ov.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	f, err := loadFont()
	if err != nil {
		return fmt.Errorf("compositor: load font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return fmt.Errorf("compositor: font face: %w", err)
	}
	defer face.Close()

	b := dst.Bounds()
	cx := ov.X / 100 * float64(b.Dx())
	cy := ov.Y / 100 * float64(b.Dy())

	bounds, _ := font.BoundString(face, text)
	midX := float64(bounds.Min.X+bounds.Max.X) / 2 / 64
	midY := float64(bounds.Min.Y+bounds.Max.Y) / 2 / 64

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(cx - midX), Y: toFixed(cy - midY)},
	}
	d.DrawString(text)
	return nil
}

// ParseColor reads #rgb or #rrggbb. Empty means white.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}, nil
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("compositor: color %q: %w", s, domain.ErrInvalidInput)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("compositor: color %q: %w", s, domain.ErrInvalidInput)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
