package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"storefront/internal/domain"
)

var (
	blue  = color.NRGBA{B: 255, A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestComposeDrawsCenteredOverlay(t *testing.T) {
	src := solid(200, 120, blue)
	p := NewParams()
	p.Overlays = []domain.Overlay{{Text: "X", X: 50, Y: 50}}

	out, err := Compose(src, p)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), src.Bounds())
	}
	if got := out.NRGBAAt(100, 60); got == blue {
		t.Fatalf("centre pixel still background: %v", got)
	}
	if got := out.NRGBAAt(2, 2); got != blue {
		t.Fatalf("corner pixel = %v, want background", got)
	}

	var buf bytes.Buffer
	if err := EncodePNG(out, &buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if decoded.Bounds().Dx() != 200 || decoded.Bounds().Dy() != 120 {
		t.Fatalf("png size = %v", decoded.Bounds())
	}
}

func TestComposeClipsToCrop(t *testing.T) {
	src := solid(100, 100, blue)
	p := NewParams()
	p.Crop = Crop{X: 0, Y: 0, Width: 0.5, Height: 1}

	out, err := Compose(src, p)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := out.NRGBAAt(10, 10); got != blue {
		t.Fatalf("inside crop = %v", got)
	}
	if got := out.NRGBAAt(75, 10); got.A != 0 {
		t.Fatalf("outside crop should be transparent, got %v", got)
	}
}

func TestComposeRotatesAboutCentre(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if x < 100 {
				src.SetNRGBA(x, y, red)
			} else {
				src.SetNRGBA(x, y, green)
			}
		}
	}
	p := NewParams()
	p.Rotation = 180

	out, err := Compose(src, p)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := out.NRGBAAt(20, 100); got != green {
		t.Fatalf("left after 180deg = %v, want green", got)
	}
	if got := out.NRGBAAt(180, 100); got != red {
		t.Fatalf("right after 180deg = %v, want red", got)
	}
}

func TestComposeColorAdjustments(t *testing.T) {
	src := solid(4, 4, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	tests := []struct {
		name   string
		modify func(*Params)
		check  func(color.NRGBA) bool
	}{
		{name: "unchanged", modify: func(p *Params) {}, check: func(c color.NRGBA) bool { return c == color.NRGBA{R: 200, G: 100, B: 50, A: 255} }},
		{name: "brightness zero is black", modify: func(p *Params) { p.Brightness = 0 }, check: func(c color.NRGBA) bool { return c.R == 0 && c.G == 0 && c.B == 0 && c.A == 255 }},
		{name: "contrast zero is mid grey", modify: func(p *Params) { p.Contrast = 0 }, check: func(c color.NRGBA) bool { return c.R == 128 && c.G == 128 && c.B == 128 }},
		{name: "saturation zero is grey", modify: func(p *Params) { p.Saturation = 0 }, check: func(c color.NRGBA) bool { return c.R == c.G && c.G == c.B }},
		{name: "brightness doubles", modify: func(p *Params) { p.Brightness = 200 }, check: func(c color.NRGBA) bool { return c.R == 255 && c.G == 200 && c.B == 100 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewParams()
			tc.modify(&p)
			out, err := Compose(src, p)
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			if got := out.NRGBAAt(1, 1); !tc.check(got) {
				t.Fatalf("unexpected pixel %v", got)
			}
		})
	}
}

func TestComposeRejectsInvalidInput(t *testing.T) {
	src := solid(10, 10, blue)
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{name: "zero area crop", modify: func(p *Params) { p.Crop = Crop{X: 0.5, Y: 0.5} }},
		{name: "negative contrast", modify: func(p *Params) { p.Contrast = -1 }},
		{name: "bad color", modify: func(p *Params) { p.Overlays = []domain.Overlay{{Text: "hi", Color: "#zzzzzz"}} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewParams()
			tc.modify(&p)
			if _, err := Compose(src, p); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := map[string]color.NRGBA{
		"":        {R: 255, G: 255, B: 255, A: 255},
		"#ff0000": {R: 255, A: 255},
		"#0f0":    {G: 255, A: 255},
		"112233":  {R: 0x11, G: 0x22, B: 0x33, A: 255},
	}
	for in, want := range tests {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Fatalf("ParseColor(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
