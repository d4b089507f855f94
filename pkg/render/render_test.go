package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"scriptvm/pkg/hostlib"
	"scriptvm/pkg/script"
)

const circle = `
float sdf(float x, float y) {
	return sqrt(x * x + y * y) - 0.5;
}`

func newCircle(t *testing.T) *script.Program {
	t.Helper()
	p := script.NewProgram("", 0, "sdf")
	if err := hostlib.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := p.CompileSource(circle); err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	return p
}

func TestSample(t *testing.T) {
	p := newCircle(t)
	tests := []struct {
		x, y, want float32
	}{
		{0.5, 0, 0},
		{0, 0, -0.5},
		{0, -1.5, 1},
	}
	for _, tt := range tests {
		d, err := Sample(p, tt.x, tt.y)
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		if d != tt.want {
			t.Errorf("distance at (%v, %v): expected %v, got %v", tt.x, tt.y, tt.want, d)
		}
	}
}

func TestNormal(t *testing.T) {
	p := newCircle(t)
	nx, ny, err := Normal(p, 0.5, 0)
	if err != nil {
		t.Fatalf("Normal: %v", err)
	}
	if nx < 0.99 || ny > 0.01 || ny < -0.01 {
		t.Errorf("normal at (0.5, 0): expected (1, 0), got (%v, %v)", nx, ny)
	}
}

func TestRasterize(t *testing.T) {
	opts := DefaultOptions()
	opts.Width, opts.Height = 16, 16
	img, err := Rasterize(newCircle(t), opts)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 16, 16) {
		t.Fatalf("bounds: expected 16x16, got %v", got)
	}
	if got := img.RGBAAt(0, 0); got != opts.Background {
		t.Errorf("corner: expected background %v, got %v", opts.Background, got)
	}
	center := img.RGBAAt(8, 8)
	if center == opts.Background || center == opts.Edge {
		t.Errorf("center: expected shaded fill, got %v", center)
	}
	if center.A != 0xFF || center.R == 0 {
		t.Errorf("center: expected opaque fill, got %v", center)
	}
}

func TestRasterizeErrors(t *testing.T) {
	if _, err := Rasterize(newCircle(t), Options{}); err == nil {
		t.Error("expected error for empty size")
	}

	p := script.NewProgram("", 0, "sdf")
	if err := p.CompileSource("int sdf(int x) { return x; }"); err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	if _, err := Rasterize(p, DefaultOptions()); err == nil {
		t.Error("expected error for wrong signature")
	}
}

func TestScale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	red := color.RGBA{0xFF, 0, 0, 0xFF}
	blue := color.RGBA{0, 0, 0xFF, 0xFF}
	src.SetRGBA(0, 0, red)
	src.SetRGBA(1, 1, blue)

	dst := Scale(src, 4, 4)
	if got := dst.RGBAAt(1, 1); got != red {
		t.Errorf("(1,1): expected red, got %v", got)
	}
	if got := dst.RGBAAt(3, 3); got != blue {
		t.Errorf("(3,3): expected blue, got %v", got)
	}
	if got := dst.RGBAAt(3, 0); got != (color.RGBA{}) {
		t.Errorf("(3,0): expected transparent, got %v", got)
	}
}

func TestSavePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(2, 1, color.RGBA{1, 2, 3, 0xFF})
	path := filepath.Join(t.TempDir(), "out.png")
	if err := SavePNG(src, path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r, g, b, _ := img.At(2, 1).RGBA(); r>>8 != 1 || g>>8 != 2 || b>>8 != 3 {
		t.Errorf("pixel: expected (1,2,3), got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}
